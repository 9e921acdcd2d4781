package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/response"
)

// RateLimitConfig tunes a RateLimit middleware instance.
type RateLimitConfig struct {
	// Name namespaces the counters so separate limiters do not share budgets.
	Name   string
	Limit  int
	Window time.Duration
	// Key derives the bucket for a request. Defaults to the client IP.
	Key func(*gin.Context) string
}

// RateLimit limits requests per bucket within a fixed window using store.
// Store failures let the request through.
func RateLimit(store RateStore, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Key == nil {
		cfg.Key = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if store == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		key := "rl:" + cfg.Name + ":" + cfg.Key(c)
		count, ttl, err := store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("rate store unavailable", zap.String("limiter", cfg.Name), zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > cfg.Limit {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
