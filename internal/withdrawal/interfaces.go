package withdrawal

import (
	"context"
	"time"

	"github.com/fundflow-core/internal/balance"
	"github.com/fundflow-core/internal/domain/account"
)

// Locker is the distributed mutual-exclusion lock the coordinator serializes
// balance-affecting operations with
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) (bool, error)
}

// BalanceComputer aggregates the available balance fresh from the ledger
type BalanceComputer interface {
	Compute(ctx context.Context, acct *account.Account, memberID string) balance.Report
}

// EventPublisher publishes entry lifecycle events. Delivery is best-effort;
// the money path never blocks on it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}
