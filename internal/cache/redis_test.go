package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisClient {
	t.Helper()

	addr := os.Getenv("QUOTEDESK_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(ctx)
		_ = client.Close()
	})
	return NewRedisClientFrom(client)
}

func TestRedisClientIncrementWithTTL(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rl:test", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.LessOrEqual(t, ttl, time.Minute)
	require.Greater(t, ttl, 50*time.Second)

	count, _, err = store.IncrementWithTTL(ctx, "rl:test", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRedisClientSetGetDelete(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))
	value, ok, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", string(value))

	require.NoError(t, store.Delete(ctx, "greeting"))
	_, ok, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrefixed(t *testing.T) {
	require.Equal(t, "quotedesk:abc", prefixed(" abc "))
	require.Equal(t, "quotedesk:abc", prefixed("quotedesk:abc"))
}

func TestNewRedisClientRequiresAddress(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{})
	require.Error(t, err)
}
