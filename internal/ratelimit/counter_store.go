package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fundflow-core/internal/domain/shared"
)

// incrScript increments the counter and attaches the window TTL only when
// the key was just created, so the window does not slide on every hit. The
// increment and the TTL attach happen in one round trip, leaving no
// check-then-increment race window.
const incrScript = `local v = redis.call('INCRBY', KEYS[1], ARGV[1])
if v == tonumber(ARGV[1]) then redis.call('PEXPIRE', KEYS[1], ARGV[2]) end
return v`

// CounterStore is key-value counter storage with TTL and atomic
// increment-by-N, the primitive all three strategies build on
type CounterStore interface {
	IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// RedisCounterStore implements CounterStore on Redis
type RedisCounterStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCounterStore creates a Redis-backed counter store
func NewRedisCounterStore(logger *slog.Logger, client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{
		client: client,
		logger: logger,
	}
}

// IncrBy atomically increments the counter by n, creating it with the TTL
// when absent
func (s *RedisCounterStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	res, err := s.client.Eval(ctx, incrScript, []string{key}, n, ttl.Milliseconds()).Result()
	if err != nil {
		s.logger.Error("Failed to increment counter", "key", key, "error", err)
		return 0, fmt.Errorf("increment counter %s: %w", key, shared.ErrStoreUnavailable)
	}

	count, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected counter reply type for %s: %w", key, shared.ErrStoreUnavailable)
	}
	return count, nil
}

// Get reads a counter without touching it. Missing keys read as zero.
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		s.logger.Error("Failed to read counter", "key", key, "error", err)
		return 0, fmt.Errorf("read counter %s: %w", key, shared.ErrStoreUnavailable)
	}
	return count, nil
}

// Reset deletes a counter
func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Error("Failed to reset counter", "key", key, "error", err)
		return fmt.Errorf("reset counter %s: %w", key, shared.ErrStoreUnavailable)
	}
	return nil
}
