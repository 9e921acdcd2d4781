package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/quotedesk/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore provides process-local rate limiting. It is concurrency-safe.
type MemoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
	hits  int
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// sweepEvery bounds how often expired counters are dropped.
const sweepEvery = 1024

// NewMemoryRateStore constructs an in-memory rate store. A nil clock uses time.Now.
func NewMemoryRateStore(clock func() time.Time) *MemoryRateStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: clock,
	}
}

// Increment bumps the counter for key, opening a new window when the last one ended.
func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%sweepEvery == 0 {
		for k, counter := range s.data {
			if !now.Before(counter.windowEnd) {
				delete(s.data, k)
			}
		}
	}

	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

type storeRateStore struct {
	store cache.Store
}

// NewCacheRateStore adapts a cache.Store (Redis or database) into a RateStore.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
