package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/quotedesk/internal/models"
	"github.com/charlesng35/quotedesk/pkg/logger"
	"github.com/charlesng35/quotedesk/pkg/metrics"
)

const (
	defaultCachePurgeSpec  = "@hourly"
	defaultExpirySweepSpec = "@hourly"
)

// CachePurger removes expired cache entries. cache.DatabaseStore satisfies it.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: purging expired cache rows and
// tracking approvals whose link lapsed before the client decided.
type Cleaner struct {
	db      *gorm.DB
	cache   CachePurger
	cron    *cron.Cron
	now     func() time.Time
	log     *zap.Logger
	enabled bool

	cacheSchedule  string
	expirySchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCachePurgeSchedule overrides the cron expression for the cache purge. Empty disables the job.
func WithCachePurgeSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		cleaner.cacheSchedule = strings.TrimSpace(schedule)
	}
}

// WithExpirySweepSchedule overrides the cron expression for the expiry sweep. Empty disables the job.
func WithExpirySweepSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		cleaner.expirySchedule = strings.TrimSpace(schedule)
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the jobs that need it.
func NewCleaner(db *gorm.DB, cache CachePurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:             db,
		cache:          cache,
		now:            time.Now,
		cacheSchedule:  defaultCachePurgeSpec,
		expirySchedule: defaultExpirySweepSpec,
		log:            logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.cacheJobEnabled() || cleaner.expiryJobEnabled()
	return cleaner
}

func (c *Cleaner) cacheJobEnabled() bool {
	return c.cache != nil && c.cacheSchedule != ""
}

func (c *Cleaner) expiryJobEnabled() bool {
	return c.db != nil && c.expirySchedule != ""
}

// Start registers jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.cacheJobEnabled() {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.cache.PurgeExpired(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule cache purge: %w", err)
		}
	}

	if c.expiryJobEnabled() {
		if _, err := c.cron.AddFunc(c.expirySchedule, func() {
			if _, err := SweepExpiredApprovals(context.Background(), c.db, c.now()); err != nil {
				c.log.Warn("expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule expiry sweep: %w", err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially, ignoring schedules.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.cache != nil {
		purged, err := c.cache.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Debug("purged expired cache entries", zap.Int64("count", purged))
		}
	}

	if c.db != nil {
		if _, err := SweepExpiredApprovals(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// SweepExpiredApprovals counts undecided approvals whose link expired before now and
// publishes the count on the expired-pending gauge. Rows are kept so owners can extend them.
func SweepExpiredApprovals(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("expiry sweep: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.OfferApproval{}).
		Where("status IN ? AND expires_at < ?", []models.ApprovalStatus{
			models.ApprovalPending,
			models.ApprovalSent,
			models.ApprovalViewed,
		}, now.UTC()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("expiry sweep: count approvals: %w", err)
	}

	metrics.ExpiredPendingApprovals.Set(float64(count))
	return count, nil
}
