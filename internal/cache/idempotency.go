// Package cache holds the optional Redis replay cache for payment
// confirmations. It only saves redundant gateway calls; the orders table
// unique constraint decides whether an order exists.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cruise-booking/internal/config"
)

// IdempotencyStore maps an idempotency key to the result it produced and
// guards in-flight work.
type IdempotencyStore interface {
	// TryLock takes the in-flight lock for key. It reports false when another
	// caller already holds it.
	TryLock(ctx context.Context, scope, key string) (bool, error)

	// Release drops the in-flight lock.
	Release(ctx context.Context, scope, key string) error

	// Remember stores value as the result for key.
	Remember(ctx context.Context, scope, key, value string) error

	// Recall returns the stored result for key, if any.
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// RedisIdempotencyStore implements IdempotencyStore on Redis.
type RedisIdempotencyStore struct {
	rdb     redis.UniversalClient
	lockTTL time.Duration
	ttl     time.Duration
}

// NewRedisIdempotencyStore creates a store. lockTTL bounds how long a crashed
// holder can block retries; ttl is how long results are remembered.
func NewRedisIdempotencyStore(rdb redis.UniversalClient, lockTTL, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, lockTTL: lockTTL, ttl: ttl}
}

func lockKey(scope, key string) string { return "idemp:" + scope + ":" + key }
func resultKey(scope, key string) string { return "idemp:map:" + scope + ":" + key }

func (s *RedisIdempotencyStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.lockTTL).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func (s *RedisIdempotencyStore) Remember(ctx context.Context, scope, key, value string) error {
	return s.rdb.Set(ctx, resultKey(scope, key), value, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, resultKey(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// NopStore is used when Redis is disabled. Every lock succeeds and nothing
// is remembered.
type NopStore struct{}

func (NopStore) TryLock(context.Context, string, string) (bool, error) { return true, nil }
func (NopStore) Release(context.Context, string, string) error { return nil }
func (NopStore) Remember(context.Context, string, string, string) error { return nil }
func (NopStore) Recall(context.Context, string, string) (string, bool, error) { return "", false, nil }

var (
	_ IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ IdempotencyStore = NopStore{}
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("redis connection established")
	return rdb, nil
}
