package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/quotedesk/internal/models"
)

var errStoreNotInitialised = errors.New("cache: database store not initialised")

// DatabaseOption customises a DatabaseStore.
type DatabaseOption func(*DatabaseStore)

// WithDatabaseClock overrides the clock used for expiry decisions.
func WithDatabaseClock(now func() time.Time) DatabaseOption {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// DatabaseStore implements Store on the primary SQL database. It is used when Redis is disabled.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB, opts ...DatabaseOption) *DatabaseStore {
	if db == nil {
		return nil
	}
	store := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// IncrementWithTTL increments the counter stored under key. An expired counter restarts at one
// with a fresh window; otherwise the existing window is kept.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errStoreNotInitialised
	}
	ctx = ensureContext(ctx)
	if window <= 0 {
		window = time.Minute
	}

	now := s.now().UTC()
	key = normalizeKey(key)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: now.Add(window)}
			return tx.Create(&entry).Error
		case err != nil:
			return err
		}

		count := int64(1)
		if entry.ExpiresAt.After(now) {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
		} else {
			entry.ExpiresAt = now.Add(window)
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	count, _ := strconv.ParseInt(string(entry.Value), 10, 64)
	return count, entry.ExpiresAt.Sub(now), nil
}

// Set upserts the value for a given key. A non-positive ttl never expires.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errStoreNotInitialised
	}

	var expiry time.Time
	if ttl > 0 {
		expiry = s.now().UTC().Add(ttl)
	}

	entry := models.CacheEntry{Key: normalizeKey(key), Value: value, ExpiresAt: expiry}
	return s.db.WithContext(ensureContext(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Get retrieves a value by key. Expired entries are removed and reported as missing.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errStoreNotInitialised
	}
	ctx = ensureContext(ctx)
	key = normalizeKey(key)

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !entry.ExpiresAt.IsZero() && s.now().After(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		normalized = append(normalized, normalizeKey(key))
	}
	return s.db.WithContext(ensureContext(ctx)).Where("key IN ?", normalized).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes entries whose expiry has passed and returns how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errStoreNotInitialised
	}

	var zero time.Time
	result := s.db.WithContext(ensureContext(ctx)).
		Where("expires_at > ? AND expires_at < ?", zero, s.now().UTC()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}
