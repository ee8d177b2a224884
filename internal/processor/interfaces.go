package processor

import (
	"context"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/domain/shared"
)

// DecisionService applies one approval decision to the ledger
type DecisionService interface {
	ApplyDecision(ctx context.Context, decision *shared.ApprovalDecision) error
}

// WithdrawalCoordinator is the slice of the coordinator the processor drives
type WithdrawalCoordinator interface {
	Transition(ctx context.Context, entryID uuid.UUID, newStatus ledger.Status, note string) (*ledger.Entry, error)
	ProcessApproved(ctx context.Context, entryID, accountID uuid.UUID) (*ledger.Entry, error)
	Rollback(ctx context.Context, entryID uuid.UUID, reason string) (*ledger.Entry, error)
}
