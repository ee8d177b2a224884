package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/balance"
	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/withdrawal"
)

// BalanceComputer aggregates available balances for accounts
type BalanceComputer interface {
	Compute(ctx context.Context, acct *account.Account, memberID string) balance.Report
}

// AccountService defines account operations exposed over HTTP
type AccountService interface {
	CreateAccount(ctx context.Context, ownerName string, kind account.Kind, currency string) (*account.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	AddMember(ctx context.Context, accountID uuid.UUID, displayName string) (*account.Member, error)
	GetBalance(ctx context.Context, accountID uuid.UUID, memberID string) (balance.Report, error)
}

// LedgerService defines entry operations exposed over HTTP
type LedgerService interface {
	CreateWithdrawal(ctx context.Context, params withdrawal.CreateParams) (*ledger.Entry, error)
	CreateDeposit(ctx context.Context, accountID uuid.UUID, memberID string, amount int64, reference string) (*ledger.Entry, error)
	GetEntryByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	GetEntriesByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, error)
	Transition(ctx context.Context, entryID uuid.UUID, newStatus ledger.Status, note string) (*ledger.Entry, error)
	Process(ctx context.Context, entryID, accountID uuid.UUID) (*ledger.Entry, error)
	Rollback(ctx context.Context, entryID uuid.UUID, reason string) (*ledger.Entry, error)
}
