// Package locking provides the distributed mutual-exclusion lock that
// serializes balance-affecting operations on one account across process
// instances. The lock store is advisory: losing it relaxes serialization
// temporarily but can never corrupt the ledger, because balance validation
// always reads the ledger store itself.
package locking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/fundflow-core/internal/domain/shared"
)

// releaseScript deletes the lock only when the caller still owns it. A
// holder whose TTL expired must not release a lock someone else re-acquired.
const releaseScript = `if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`

// Manager implements token-based distributed locks on Redis
type Manager struct {
	client *redis.Client
	logger *slog.Logger
}

// NewManager creates a lock manager backed by the given Redis client
func NewManager(logger *slog.Logger, client *redis.Client) *Manager {
	return &Manager{
		client: client,
		logger: logger,
	}
}

// Acquire attempts to take the lock for key. On success it returns an opaque
// token proving ownership; when the lock is already held it returns
// shared.ErrLockContention, which callers must surface as "retry later",
// never as permission to proceed.
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := m.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		m.logger.Error("Failed to acquire lock", "key", key, "error", err)
		return "", fmt.Errorf("acquire lock %s: %w", key, shared.ErrStoreUnavailable)
	}
	if !ok {
		m.logger.Debug("Lock contention", "key", key)
		return "", shared.ErrLockContention
	}

	return token, nil
}

// Release frees the lock if and only if token matches the current holder.
// Returns false when the lock expired and/or is now held by someone else.
func (m *Manager) Release(ctx context.Context, key, token string) (bool, error) {
	res, err := m.client.Eval(ctx, releaseScript, []string{key}, token).Result()
	if err != nil {
		m.logger.Error("Failed to release lock", "key", key, "error", err)
		return false, fmt.Errorf("release lock %s: %w", key, shared.ErrStoreUnavailable)
	}

	deleted, ok := res.(int64)
	if !ok || deleted == 0 {
		m.logger.Warn("Lock release skipped, token no longer owns the lock", "key", key)
		return false, nil
	}

	return true, nil
}
