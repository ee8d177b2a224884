package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	acc := &account.Account{
		ID:        uuid.New(),
		OwnerName: "Test User",
		Kind:      account.KindIndividual,
		Currency:  "USD",
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO accounts \(id, owner_name, kind, currency, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.OwnerName, acc.Kind, acc.Currency, acc.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.OwnerName, acc.Kind, acc.Currency, acc.CreatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	query := `
		SELECT id, owner_name, kind, currency, created_at
		FROM accounts
		WHERE id = \$1
	`

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "owner_name", "kind", "currency", "created_at"}).
			AddRow(accID, "Pool Owner", account.KindPooled, "EUR", time.Now())

		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, accID, acc.ID)
		assert.True(t, acc.IsPooled())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: accID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetMember(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()

	query := `
		SELECT id, account_id, display_name, created_at
		FROM account_members
		WHERE account_id = \$1 AND id = \$2
	`

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "account_id", "display_name", "created_at"}).
			AddRow("member-1", accID, "Member One", time.Now())

		mock.ExpectQuery(query).WithArgs(accID, "member-1").WillReturnRows(rows)

		m, err := repo.GetMember(ctx, accID, "member-1")
		require.NoError(t, err)
		assert.Equal(t, "member-1", m.ID)
		assert.Equal(t, accID, m.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID, "ghost").WillReturnError(pgx.ErrNoRows)

		m, err := repo.GetMember(ctx, accID, "ghost")
		assert.Nil(t, m)
		assert.ErrorIs(t, err, account.ErrMemberNotFound{AccountID: accID, MemberID: "ghost"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
