package balance

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

	"github.com/fundflow-core/internal/domain/account"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAggregator_Compute_Individual(t *testing.T) {
	ctx := context.Background()
	repo := &MockLedgerRepository{}
	acct := &account.Account{ID: uuid.New(), Kind: account.KindIndividual, Currency: "USD"}

	repo.On("SumAmount", mock.Anything, ledger.SumFilter{
		AccountID: acct.ID,
		Type:      ledger.EntryTypeDeposit,
		Statuses:  []ledger.Status{ledger.StatusComplete},
	}).Return(int64(150_000), nil)
	repo.On("SumAmount", mock.Anything, ledger.SumFilter{
		AccountID: acct.ID,
		Type:      ledger.EntryTypeWithdraw,
		Statuses:  []ledger.Status{ledger.StatusComplete},
	}).Return(int64(30_000), nil)
	repo.On("SumAmount", mock.Anything, ledger.SumFilter{
		AccountID: acct.ID,
		Type:      ledger.EntryTypeWithdraw,
		Statuses:  []ledger.Status{ledger.StatusProcessing},
	}).Return(int64(20_000), nil)

	report := NewAggregator(testLogger(), repo).Compute(ctx, acct, "")

	assert.Equal(t, int64(150_000), report.CompletedIn)
	assert.Equal(t, int64(30_000), report.CompletedOut)
	assert.Equal(t, int64(20_000), report.InFlightOut)
	assert.Equal(t, int64(100_000), report.Available)
	repo.AssertExpectations(t)
}

func TestAggregator_Compute_PooledReservesPendingAndApproved(t *testing.T) {
	ctx := context.Background()
	repo := &MockLedgerRepository{}
	acct := &account.Account{ID: uuid.New(), Kind: account.KindPooled, Currency: "USD"}

	repo.On("SumAmount", mock.Anything, mock.MatchedBy(func(f ledger.SumFilter) bool {
		return f.Type == ledger.EntryTypeDeposit
	})).Return(int64(50_000), nil)
	repo.On("SumAmount", mock.Anything, mock.MatchedBy(func(f ledger.SumFilter) bool {
		return f.Type == ledger.EntryTypeWithdraw && len(f.Statuses) == 1
	})).Return(int64(0), nil)
	repo.On("SumAmount", mock.Anything, mock.MatchedBy(func(f ledger.SumFilter) bool {
		return f.Type == ledger.EntryTypeWithdraw && len(f.Statuses) == 4
	})).Return(int64(10_000), nil)

	report := NewAggregator(testLogger(), repo).Compute(ctx, acct, "member-1")

	assert.Equal(t, int64(40_000), report.Available)
	repo.AssertExpectations(t)
}

func TestAggregator_Compute_FailsClosedOnStoreError(t *testing.T) {
	ctx := context.Background()
	repo := &MockLedgerRepository{}
	acct := &account.Account{ID: uuid.New(), Kind: account.KindIndividual, Currency: "USD"}

	repo.On("SumAmount", mock.Anything, mock.Anything).Return(int64(0), errors.New("store unreachable"))

	report := NewAggregator(testLogger(), repo).Compute(ctx, acct, "")

	assert.Equal(t, Report{}, report)
	assert.Equal(t, int64(0), report.Available, "a store failure must read as zero balance, never unlimited")
}
