package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cruise-booking/internal/config"
)

// setupTestRedis starts a Redis container and returns a connected client.
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rdb, err := NewRedisClient(ctx, config.RedisConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())}, zerolog.Nop())
	require.NoError(t, err)

	cleanup := func() {
		_ = rdb.Close()
		_ = container.Terminate(ctx)
	}
	return rdb, cleanup
}

func TestRedisIdempotencyStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisIdempotencyStore(rdb, time.Minute, time.Hour)

	t.Run("Lock is exclusive until released", func(t *testing.T) {
		ok, err := store.TryLock(ctx, "toss", "ord_lock")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.TryLock(ctx, "toss", "ord_lock")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Release(ctx, "toss", "ord_lock"))

		ok, err = store.TryLock(ctx, "toss", "ord_lock")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Recall misses then hits", func(t *testing.T) {
		_, found, err := store.Recall(ctx, "toss", "ord_map")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, store.Remember(ctx, "toss", "ord_map", "ORD-20260301-ABC123"))

		val, found, err := store.Recall(ctx, "toss", "ord_map")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "ORD-20260301-ABC123", val)

		ttl, err := rdb.TTL(ctx, "idemp:map:toss:ord_map").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
	})

	t.Run("Scopes are independent", func(t *testing.T) {
		require.NoError(t, store.Remember(ctx, "a", "key", "1"))

		_, found, err := store.Recall(ctx, "b", "key")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rdb, err := NewRedisClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())

	require.Error(t, err)
	assert.Nil(t, rdb)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestNopStore(t *testing.T) {
	ctx := context.Background()
	var store IdempotencyStore = NopStore{}

	ok, err := store.TryLock(ctx, "toss", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryLock(ctx, "toss", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Remember(ctx, "toss", "k", "v"))
	_, found, err := store.Recall(ctx, "toss", "k")
	require.NoError(t, err)
	assert.False(t, found)
}
