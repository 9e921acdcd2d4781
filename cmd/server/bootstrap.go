package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/api"
	"github.com/charlesng35/quotedesk/internal/app/maintenance"
	"github.com/charlesng35/quotedesk/internal/approval"
	iauth "github.com/charlesng35/quotedesk/internal/auth"
	"github.com/charlesng35/quotedesk/internal/cache"
	"github.com/charlesng35/quotedesk/internal/handlers"
	"github.com/charlesng35/quotedesk/internal/middleware"
	"github.com/charlesng35/quotedesk/internal/realtime"
	"github.com/charlesng35/quotedesk/internal/services"
	"github.com/charlesng35/quotedesk/pkg/mail"
	"github.com/charlesng35/quotedesk/pkg/money"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisClient
	Cache     cache.Store
	Hub       *realtime.Hub
	Approvals *approval.Service
	Cleaner   *maintenance.Cleaner
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, env *environment) (*runtimeStack, error) {
	cfg := env.Config
	log := env.Log
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	stack.DB, err = env.openDatabase(ctx)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Cache = dbStore
	var cachePinger handlers.Pinger

	if cfg.Cache.Redis.Enabled {
		client, redisErr := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(redisErr))
		} else {
			stack.Redis = client
			stack.Cache = client
			cachePinger = client
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Hub = realtime.NewHub()

	notificationOpts := []services.NotificationOption{
		services.WithNotificationLocale(cfg.Offers.Locale),
		services.WithNotificationBaseURL(cfg.Server.PublicBaseURL),
	}
	if cfg.Offers.HasSecondaryCurrency() {
		notificationOpts = append(notificationOpts, services.WithNotificationCurrency(cfg.Offers.SecondaryCurrency, cfg.Offers.SecondaryRate))
	}
	if cfg.Email.SMTP.Enabled {
		mailer, mailErr := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if mailErr != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", mailErr)
		}
		notificationOpts = append(notificationOpts, services.WithNotificationMailer(mailer))
	}

	notifications, err := services.NewNotificationService(stack.DB, stack.Hub, notificationOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	projects, err := services.NewProjectService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise project service: %w", err)
	}

	offers, err := services.NewOfferService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise offer service: %w", err)
	}

	store, err := approval.NewGormStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise approval store: %w", err)
	}

	stack.Approvals, err = approval.NewService(store, offers,
		approval.WithBaseURL(cfg.Server.PublicBaseURL),
		approval.WithDecisionRecorder(offers),
		approval.WithNotifier(notifications),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise approval service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.DB, dbStore,
		maintenance.WithCachePurgeSchedule(cfg.Maintenance.CachePurgeSchedule),
		maintenance.WithExpirySweepSchedule(cfg.Maintenance.ExpirySweepSchedule),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	display := handlers.MoneyDisplay{Formatter: money.NewFormatter(cfg.Offers.Locale)}
	if cfg.Offers.HasSecondaryCurrency() {
		display.SecondaryCurrency = cfg.Offers.SecondaryCurrency
		display.SecondaryRate = cfg.Offers.SecondaryRate
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:             stack.DB,
		JWT:            jwtSvc,
		Projects:       projects,
		Offers:         offers,
		Notifications:  notifications,
		Approvals:      stack.Approvals,
		Hub:            stack.Hub,
		RateStore:      middleware.NewCacheRateStore(stack.Cache),
		RateLimits:     cfg.Server.RateLimits(),
		Cache:          cachePinger,
		Money:          display,
		CORSOrigins:    cfg.Server.CORSOrigins,
		DisableMetrics: !cfg.Monitoring.Prometheus.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}
