// Package processor consumes approval decisions off Kafka and drives the
// withdrawal state machine with them.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/domain/shared"
)

// CoordinatorDecisionService maps approval decisions onto coordinator calls
type CoordinatorDecisionService struct {
	coordinator WithdrawalCoordinator
	logger      *slog.Logger
}

func NewCoordinatorDecisionService(logger *slog.Logger, coordinator WithdrawalCoordinator) *CoordinatorDecisionService {
	return &CoordinatorDecisionService{
		coordinator: coordinator,
		logger:      logger,
	}
}

// ApplyDecision executes one decision. The approval topic is at-least-once,
// so a decision the ledger already reflects (status conflict or a transition
// the table forbids because the entry moved on) counts as applied and
// commits the offset instead of looping forever.
func (s *CoordinatorDecisionService) ApplyDecision(ctx context.Context, decision *shared.ApprovalDecision) error {
	logger := s.logger
	if decision.CorrelationID != "" {
		logger = s.logger.With("correlation_id", decision.CorrelationID)
	}

	var err error
	switch decision.Decision {
	case shared.DecisionApprove:
		_, err = s.coordinator.Transition(ctx, decision.EntryID, ledger.StatusApproved, decision.Reason)
	case shared.DecisionReject:
		_, err = s.coordinator.Transition(ctx, decision.EntryID, ledger.StatusRejected, decision.Reason)
	case shared.DecisionProcess:
		_, err = s.coordinator.ProcessApproved(ctx, decision.EntryID, decision.AccountID)
	case shared.DecisionComplete:
		_, err = s.coordinator.Transition(ctx, decision.EntryID, ledger.StatusComplete, decision.Reason)
	case shared.DecisionRollback:
		_, err = s.coordinator.Rollback(ctx, decision.EntryID, decision.Reason)
	default:
		return fmt.Errorf("unknown decision %q for entry %s", decision.Decision, decision.EntryID.String())
	}

	if err != nil {
		if errors.Is(err, shared.ErrInvalidTransition{}) || errors.Is(err, ledger.ErrStatusConflict{}) {
			logger.Warn("Decision already reflected by the ledger, treating as applied",
				"entry_id", decision.EntryID.String(),
				"decision", string(decision.Decision),
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("applying decision %s to entry %s: %w", decision.Decision, decision.EntryID.String(), err)
	}

	logger.Info("Applied approval decision",
		"entry_id", decision.EntryID.String(),
		"decision", string(decision.Decision),
	)
	return nil
}
