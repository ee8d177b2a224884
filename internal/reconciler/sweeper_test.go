package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fundflow-core/internal/config"
	"github.com/fundflow-core/internal/domain/ledger"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, entryType ledger.EntryType, key string) (*ledger.Entry, error) {
	args := m.Called(ctx, accountID, entryType, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to ledger.Status, note string) (*ledger.Entry, error) {
	args := m.Called(ctx, id, from, to, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) IncrementRetryCount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerRepository) SumAmount(ctx context.Context, filter ledger.SumFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) FindStale(ctx context.Context, statuses []ledger.Status, olderThan time.Time, limit int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, statuses, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDLQPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestSweeper(t *testing.T, repo ledger.Repository, dlq *MockDLQPublisher) *Sweeper {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := &config.ReconcilerConfig{SweepInterval: 30 * time.Second, BatchSize: 100}
	var sweeper *Sweeper
	var err error
	if dlq != nil {
		sweeper, err = NewSweeper(logger, cfg, 2, repo, dlq)
	} else {
		sweeper, err = NewSweeper(logger, cfg, 2, repo, nil)
	}
	require.NoError(t, err)
	t.Cleanup(func() { sweeper.pool.Release() })
	return sweeper
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("fails expired pending entries without parking them", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		entry := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusPending, MaxRetries: 3}

		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return([]*ledger.Entry{entry}, nil)
		repo.On("UpdateStatusCAS", ctx, entry.ID, ledger.StatusPending, ledger.StatusFailed, noteApprovalExpired).
			Return(&ledger.Entry{ID: entry.ID, Status: ledger.StatusFailed}, nil)

		sweeper := newTestSweeper(t, repo, nil)
		require.NoError(t, sweeper.SweepOnce(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("grants a stalled execution another window while retries remain", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		entry := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusProcessing, RetryCount: 1, MaxRetries: 3}

		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return([]*ledger.Entry{entry}, nil)
		repo.On("IncrementRetryCount", ctx, entry.ID).Return(nil)
		repo.On("UpdateStatusCAS", ctx, entry.ID, ledger.StatusProcessing, ledger.StatusProcessing, mock.AnythingOfType("string")).
			Return(entry, nil)

		sweeper := newTestSweeper(t, repo, nil)
		require.NoError(t, sweeper.SweepOnce(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("fails and parks an execution that exhausted its retries", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		dlq := new(MockDLQPublisher)
		entry := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusProcessing, RetryCount: 3, MaxRetries: 3}
		failed := &ledger.Entry{ID: entry.ID, Status: ledger.StatusFailed, Notes: noteExecutionExpired}

		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return([]*ledger.Entry{entry}, nil)
		repo.On("UpdateStatusCAS", ctx, entry.ID, ledger.StatusProcessing, ledger.StatusFailed, noteExecutionExpired).
			Return(failed, nil)
		dlq.On("PublishToDLQ", ctx, entry.ID.String(), mock.AnythingOfType("[]uint8"), noteExecutionExpired).Return(nil)

		sweeper := newTestSweeper(t, repo, dlq)
		require.NoError(t, sweeper.SweepOnce(ctx))
		repo.AssertExpectations(t)
		dlq.AssertExpectations(t)
	})

	t.Run("tolerates entries that moved on between query and write", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		entry := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusPending, MaxRetries: 3}

		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return([]*ledger.Entry{entry}, nil)
		repo.On("UpdateStatusCAS", ctx, entry.ID, ledger.StatusPending, ledger.StatusFailed, noteApprovalExpired).
			Return(nil, ledger.ErrStatusConflict{EntryID: entry.ID, Expected: ledger.StatusPending})

		sweeper := newTestSweeper(t, repo, nil)
		require.NoError(t, sweeper.SweepOnce(ctx))
	})

	t.Run("propagates stale query failures", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		queryErr := errors.New("mongo unavailable")
		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return(nil, queryErr)

		sweeper := newTestSweeper(t, repo, nil)
		err := sweeper.SweepOnce(ctx)
		assert.ErrorIs(t, err, queryErr)
	})

	t.Run("empty sweep is a no-op", func(t *testing.T) {
		repo := new(MockLedgerRepository)
		repo.On("FindStale", ctx, sweepStatuses, mock.AnythingOfType("time.Time"), 100).Return([]*ledger.Entry{}, nil)

		sweeper := newTestSweeper(t, repo, nil)
		require.NoError(t, sweeper.SweepOnce(ctx))
	})
}
