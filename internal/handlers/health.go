package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/pkg/errors"
	"github.com/charlesng35/quotedesk/pkg/response"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports service readiness. The database is always probed; the cache only when configured.
func Health(db *gorm.DB, cache Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthTimeout)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if db != nil {
			checks["database"] = "ok"
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				checks["database"] = err.Error()
				healthy = false
			}
		}
		if cache != nil {
			checks["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				checks["cache"] = err.Error()
				healthy = false
			}
		}

		if !healthy {
			response.ErrorWithDetails(c, errors.New("UNHEALTHY", "Service unavailable", http.StatusServiceUnavailable), checks)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
