// Package balance computes available balances from the ledger store. The
// ledger is the single source of truth: results are never cached, because
// in-flight amounts change continuously, and aggregation failures resolve to
// a zero balance so the money path fails closed instead of proceeding on a
// default "unlimited" balance.
package balance

import (
	"context"
	"log/slog"

	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/domain/ledger"
)

// Report is the result of one balance aggregation
type Report struct {
	CompletedIn  int64 `json:"completed_in"`
	CompletedOut int64 `json:"completed_out"`
	InFlightOut  int64 `json:"in_flight_out"`
	Available    int64 `json:"available"`
}

// Aggregator sums completed and in-flight ledger entries
type Aggregator struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewAggregator creates a balance aggregator over the given ledger repository
func NewAggregator(logger *slog.Logger, ledgerRepo ledger.Repository) *Aggregator {
	return &Aggregator{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// inFlightStatuses returns the withdrawal statuses that still reserve funds.
// Pooled accounts reserve from the moment of request, because any member can
// spend the shared balance between approval and execution; individual
// accounts only reserve what is actively executing.
func inFlightStatuses(acct *account.Account) []ledger.Status {
	if acct.IsPooled() {
		return []ledger.Status{
			ledger.StatusPending,
			ledger.StatusManualReview,
			ledger.StatusApproved,
			ledger.StatusProcessing,
		}
	}
	return []ledger.Status{ledger.StatusProcessing}
}

// Compute aggregates the available balance for an account, optionally scoped
// to a pooled-account member. The three sums run fresh on every call. On any
// store failure the report is all zeros: callers must treat a zero available
// balance as a rejection, never fall back to an optimistic default.
func (a *Aggregator) Compute(ctx context.Context, acct *account.Account, memberID string) Report {
	completed := []ledger.Status{ledger.StatusComplete}

	completedIn, err := a.ledgerRepo.SumAmount(ctx, ledger.SumFilter{
		AccountID: acct.ID,
		MemberID:  memberID,
		Type:      ledger.EntryTypeDeposit,
		Statuses:  completed,
	})
	if err != nil {
		a.logger.Error("Balance aggregation failed, returning zero balance",
			"account_id", acct.ID.String(), "sum", "completed_deposits", "error", err)
		return Report{}
	}

	completedOut, err := a.ledgerRepo.SumAmount(ctx, ledger.SumFilter{
		AccountID: acct.ID,
		MemberID:  memberID,
		Type:      ledger.EntryTypeWithdraw,
		Statuses:  completed,
	})
	if err != nil {
		a.logger.Error("Balance aggregation failed, returning zero balance",
			"account_id", acct.ID.String(), "sum", "completed_withdrawals", "error", err)
		return Report{}
	}

	inFlightOut, err := a.ledgerRepo.SumAmount(ctx, ledger.SumFilter{
		AccountID: acct.ID,
		MemberID:  memberID,
		Type:      ledger.EntryTypeWithdraw,
		Statuses:  inFlightStatuses(acct),
	})
	if err != nil {
		a.logger.Error("Balance aggregation failed, returning zero balance",
			"account_id", acct.ID.String(), "sum", "in_flight_withdrawals", "error", err)
		return Report{}
	}

	return Report{
		CompletedIn:  completedIn,
		CompletedOut: completedOut,
		InFlightOut:  inFlightOut,
		Available:    completedIn - completedOut - inFlightOut,
	}
}
