// Package postgres provides PostgreSQL implementations of the domain
// repositories. Account identity is immutable and created out-of-band;
// balances never live here, they are aggregated from the ledger store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, owner_name, kind, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.OwnerName,
		acc.Kind,
		acc.Currency,
		acc.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, owner_name, kind, currency, created_at
		FROM accounts
		WHERE id = $1
	`

	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.OwnerName,
		&acc.Kind,
		&acc.Currency,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

// CreateMember stores a new member of a pooled account
func (r *AccountRepository) CreateMember(ctx context.Context, m *account.Member) error {
	query := `
		INSERT INTO account_members (id, account_id, display_name, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.AccountID,
		m.DisplayName,
		m.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create member", "account_id", m.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetMember retrieves a member of a pooled account
func (r *AccountRepository) GetMember(ctx context.Context, accountID uuid.UUID, memberID string) (*account.Member, error) {
	query := `
		SELECT id, account_id, display_name, created_at
		FROM account_members
		WHERE account_id = $1 AND id = $2
	`

	var m account.Member
	err := r.querier.QueryRow(ctx, query, accountID, memberID).Scan(
		&m.ID,
		&m.AccountID,
		&m.DisplayName,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrMemberNotFound{AccountID: accountID, MemberID: memberID}
		}
		r.logger.Error("Failed to get member", "account_id", accountID.String(), "member_id", memberID, "error", err)
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &m, nil
}
