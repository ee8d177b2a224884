package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/withdrawal"
)

// LedgerServiceImpl implements LedgerService on top of the withdrawal
// coordinator and the ledger repository. Withdrawals go through the
// coordinator's locking path; reads and deposits go straight to the store.
type LedgerServiceImpl struct {
	coordinator *withdrawal.Coordinator
	ledgerRepo  ledger.Repository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(coordinator *withdrawal.Coordinator, ledgerRepo ledger.Repository) LedgerService {
	return &LedgerServiceImpl{
		coordinator: coordinator,
		ledgerRepo:  ledgerRepo,
	}
}

// CreateWithdrawal runs the full coordinated withdrawal path
func (s *LedgerServiceImpl) CreateWithdrawal(ctx context.Context, params withdrawal.CreateParams) (*ledger.Entry, error) {
	return s.coordinator.CreateWithdrawal(ctx, params)
}

// CreateDeposit records a settled deposit; deposits need no coordination
// since they only ever increase the balance
func (s *LedgerServiceImpl) CreateDeposit(ctx context.Context, accountID uuid.UUID, memberID string, amount int64, reference string) (*ledger.Entry, error) {
	entry := ledger.NewDeposit(accountID, memberID, amount, reference)
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetEntryByID retrieves one entry, ErrEntryNotFound if missing
func (s *LedgerServiceImpl) GetEntryByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return s.ledgerRepo.GetByID(ctx, id)
}

// GetEntriesByAccountID returns one page of account history, newest first
func (s *LedgerServiceImpl) GetEntriesByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, error) {
	offset := (page - 1) * perPage
	return s.ledgerRepo.GetByAccountID(ctx, accountID, perPage, offset)
}

// Transition drives one state machine step
func (s *LedgerServiceImpl) Transition(ctx context.Context, entryID uuid.UUID, newStatus ledger.Status, note string) (*ledger.Entry, error) {
	return s.coordinator.Transition(ctx, entryID, newStatus, note)
}

// Process moves an approved withdrawal into execution
func (s *LedgerServiceImpl) Process(ctx context.Context, entryID, accountID uuid.UUID) (*ledger.Entry, error) {
	return s.coordinator.ProcessApproved(ctx, entryID, accountID)
}

// Rollback fails an entry after a downstream execution failure
func (s *LedgerServiceImpl) Rollback(ctx context.Context, entryID uuid.UUID, reason string) (*ledger.Entry, error) {
	return s.coordinator.Rollback(ctx, entryID, reason)
}
