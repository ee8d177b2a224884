// Package withdrawal orchestrates the fund-movement core: lock acquisition,
// idempotency, balance validation, entry creation and the withdrawal state
// machine. All cross-process coordination comes from the lock manager and
// the ledger store's compare-and-swap writes; in-process mutexes would only
// protect a single instance and are deliberately absent.
package withdrawal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/config"
	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/domain/shared"
)

// Lock key prefixes. Request and execution locks are distinct so a slow
// payout execution cannot starve new withdrawal requests on the account.
const (
	requestLockPrefix   = "lock:withdraw:"
	executionLockPrefix = "lock:exec:"
)

// Failure notes written onto entries the coordinator fails itself
const (
	noteInsufficientAtExecution = "insufficient funds at execution time"
)

// CreateParams carries everything needed to request a withdrawal
type CreateParams struct {
	AccountID      uuid.UUID
	MemberID       string
	Amount         int64
	Reference      string
	IdempotencyKey string
	CorrelationID  string
	// PreApproved creates the entry directly in APPROVED. Only privileged
	// approvers may set it; the caller-facing layer enforces that.
	PreApproved bool
}

// Coordinator implements the withdrawal workflow
type Coordinator struct {
	ledgerRepo  ledger.Repository
	accountRepo account.Repository
	locks       Locker
	balances    BalanceComputer
	events      EventPublisher
	cfg         config.LockingConfig
	logger      *slog.Logger
}

// NewCoordinator creates a withdrawal coordinator. events may be nil when no
// broker is configured.
func NewCoordinator(
	logger *slog.Logger,
	cfg config.LockingConfig,
	ledgerRepo ledger.Repository,
	accountRepo account.Repository,
	locks Locker,
	balances BalanceComputer,
	events EventPublisher,
) *Coordinator {
	return &Coordinator{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		locks:       locks,
		balances:    balances,
		events:      events,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreateWithdrawal validates and records a withdrawal request under the
// account lock. Retried requests carrying the same idempotency key return
// the original entry without re-checking the balance.
func (c *Coordinator) CreateWithdrawal(ctx context.Context, p CreateParams) (*ledger.Entry, error) {
	logger := c.logger
	if p.CorrelationID != "" {
		logger = c.logger.With("correlation_id", p.CorrelationID)
	}

	if p.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}

	lockKey := requestLockPrefix + p.AccountID.String()
	token, err := c.locks.Acquire(ctx, lockKey, c.cfg.RequestTTL)
	if err != nil {
		// Contention is a retry signal, not a balance error; store failures
		// also deny because an unserialized balance check is worthless.
		logger.Warn("Could not acquire withdrawal lock", "account_id", p.AccountID.String(), "error", err)
		return nil, err
	}
	defer c.releaseLock(ctx, logger, lockKey, token)

	if p.IdempotencyKey != "" {
		existing, err := c.ledgerRepo.GetByIdempotencyKey(ctx, p.AccountID, ledger.EntryTypeWithdraw, p.IdempotencyKey)
		if err != nil {
			logger.Error("Idempotency lookup failed", "account_id", p.AccountID.String(), "error", err)
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			logger.Info("Returning existing entry for idempotency key",
				"entry_id", existing.ID.String(),
				"idempotency_key", p.IdempotencyKey,
				"status", string(existing.Status))
			return existing, nil
		}
	}

	acct, err := c.accountRepo.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	if p.MemberID != "" {
		if _, err := c.accountRepo.GetMember(ctx, p.AccountID, p.MemberID); err != nil {
			return nil, err
		}
	}

	report := c.balances.Compute(ctx, acct, p.MemberID)
	if p.Amount > report.Available {
		logger.Info("Withdrawal rejected, insufficient funds",
			"account_id", p.AccountID.String(),
			"requested", p.Amount,
			"available", report.Available)
		return nil, shared.ErrInsufficientFunds{Available: report.Available, Requested: p.Amount}
	}

	entry := ledger.NewWithdrawal(p.AccountID, p.MemberID, p.Amount, p.Reference, p.IdempotencyKey, p.PreApproved)
	entry.CorrelationID = p.CorrelationID

	if err := c.ledgerRepo.Create(ctx, entry); err != nil {
		logger.Error("Failed to create withdrawal entry", "account_id", p.AccountID.String(), "error", err)
		return nil, fmt.Errorf("create withdrawal entry: %w", err)
	}

	logger.Info("Withdrawal created",
		"entry_id", entry.ID.String(),
		"account_id", p.AccountID.String(),
		"amount", p.Amount,
		"status", string(entry.Status))

	c.publishEvent(ctx, logger, entry, "")
	return entry, nil
}

// Transition moves an entry to newStatus if the state machine table permits
// it, using a compare-and-swap write. A concurrent transition surfaces as
// ledger.ErrStatusConflict; callers should re-fetch and decide whether the
// race was benign.
func (c *Coordinator) Transition(ctx context.Context, entryID uuid.UUID, newStatus ledger.Status, note string) (*ledger.Entry, error) {
	entry, err := c.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if !entry.Status.CanTransitionTo(newStatus) {
		return nil, shared.ErrInvalidTransition{From: string(entry.Status), To: string(newStatus)}
	}

	updated, err := c.ledgerRepo.UpdateStatusCAS(ctx, entryID, entry.Status, newStatus, note)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Entry transitioned",
		"entry_id", entryID.String(),
		"from", string(entry.Status),
		"to", string(newStatus))

	c.publishEvent(ctx, c.logger, updated, note)
	return updated, nil
}

// ProcessApproved moves an approved withdrawal into PROCESSING under the
// execution lock, re-validating the balance first: balances can have moved
// since approval. An insufficient balance fails the entry with a note
// instead of erroring, so the caller always gets the entry's fate back.
func (c *Coordinator) ProcessApproved(ctx context.Context, entryID, accountID uuid.UUID) (*ledger.Entry, error) {
	lockKey := executionLockPrefix + accountID.String()
	token, err := c.locks.Acquire(ctx, lockKey, c.cfg.ExecutionTTL)
	if err != nil {
		c.logger.Warn("Could not acquire execution lock", "account_id", accountID.String(), "error", err)
		return nil, err
	}
	defer c.releaseLock(ctx, c.logger, lockKey, token)

	entry, err := c.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != ledger.StatusApproved {
		return nil, shared.ErrInvalidTransition{From: string(entry.Status), To: string(ledger.StatusProcessing)}
	}

	acct, err := c.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// The entry is still APPROVED, so for pooled accounts its own amount is
	// part of the in-flight sum; individual accounts reserve only at
	// PROCESSING, making the fresh report the full picture either way.
	report := c.balances.Compute(ctx, acct, entry.MemberID)
	available := report.Available
	if acct.IsPooled() {
		available += entry.Amount
	}
	if entry.Amount > available {
		c.logger.Warn("Approved withdrawal no longer covered, failing entry",
			"entry_id", entryID.String(),
			"amount", entry.Amount,
			"available", available)
		failed, failErr := c.ledgerRepo.UpdateStatusCAS(ctx, entryID, ledger.StatusApproved, ledger.StatusFailed, noteInsufficientAtExecution)
		if failErr != nil {
			return nil, failErr
		}
		c.publishEvent(ctx, c.logger, failed, noteInsufficientAtExecution)
		return failed, nil
	}

	processing, err := c.ledgerRepo.UpdateStatusCAS(ctx, entryID, ledger.StatusApproved, ledger.StatusProcessing, "")
	if err != nil {
		return nil, err
	}

	c.logger.Info("Withdrawal moved to processing", "entry_id", entryID.String(), "account_id", accountID.String())
	c.publishEvent(ctx, c.logger, processing, "")
	return processing, nil
}

// Rollback fails an entry after a downstream execution failure, recording
// the reason on the entry
func (c *Coordinator) Rollback(ctx context.Context, entryID uuid.UUID, reason string) (*ledger.Entry, error) {
	return c.Transition(ctx, entryID, ledger.StatusFailed, reason)
}

// FindStale exposes the query-by-status-and-staleness contract the external
// reconciliation sweep depends on
func (c *Coordinator) FindStale(ctx context.Context, statuses []ledger.Status, olderThan time.Time, limit int) ([]*ledger.Entry, error) {
	return c.ledgerRepo.FindStale(ctx, statuses, olderThan, limit)
}

// releaseLock is the guaranteed-cleanup path for every lock the coordinator
// takes; release failures are logged, never propagated, since the TTL will
// reclaim the lock anyway.
func (c *Coordinator) releaseLock(ctx context.Context, logger *slog.Logger, key, token string) {
	if _, err := c.locks.Release(ctx, key, token); err != nil {
		logger.Warn("Failed to release lock, TTL will reclaim it", "key", key, "error", err)
	}
}

func (c *Coordinator) publishEvent(ctx context.Context, logger *slog.Logger, entry *ledger.Entry, note string) {
	if c.events == nil {
		return
	}

	event := shared.EntryEvent{
		EntryID:       entry.ID,
		AccountID:     entry.AccountID,
		MemberID:      entry.MemberID,
		Type:          string(entry.Type),
		Amount:        entry.Amount,
		Status:        string(entry.Status),
		Note:          note,
		CorrelationID: entry.CorrelationID,
		Timestamp:     time.Now().UTC(),
	}
	if err := c.events.Publish(ctx, entry.ID.String(), event); err != nil {
		logger.Warn("Failed to publish entry event", "entry_id", entry.ID.String(), "error", err)
	}
}
