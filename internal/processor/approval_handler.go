package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fundflow-core/internal/domain/shared"
	"github.com/fundflow-core/internal/platform/messaging/producers"
)

// ApprovalEventHandler decodes approval decisions off the topic and hands
// them to the decision service. Malformed or unusable messages go to the
// DLQ so the partition keeps moving.
type ApprovalEventHandler struct {
	decisions DecisionService
	dlq       producers.DeadLetterPublisher
	logger    *slog.Logger
}

func NewApprovalEventHandler(logger *slog.Logger, decisions DecisionService, dlq producers.DeadLetterPublisher) *ApprovalEventHandler {
	return &ApprovalEventHandler{
		decisions: decisions,
		dlq:       dlq,
		logger:    logger,
	}
}

// HandleMessage processes one approval message
func (h *ApprovalEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var decision shared.ApprovalDecision
	if err := json.Unmarshal(value, &decision); err != nil {
		h.logger.Error("Failed to unmarshal approval decision",
			"error", err,
			"message_key", string(key),
		)
		return h.park(ctx, key, value, fmt.Sprintf("unmarshal failed: %s", err.Error()), err)
	}

	if decision.EntryID == uuid.Nil {
		return h.park(ctx, key, value, "approval decision missing entry_id", fmt.Errorf("approval decision missing entry_id"))
	}
	switch decision.Decision {
	case shared.DecisionApprove, shared.DecisionReject, shared.DecisionProcess, shared.DecisionComplete, shared.DecisionRollback:
	default:
		reason := fmt.Sprintf("unknown decision %q", decision.Decision)
		return h.park(ctx, key, value, reason, fmt.Errorf("%s", reason))
	}

	logger := h.logger
	if decision.CorrelationID != "" {
		logger = h.logger.With("correlation_id", decision.CorrelationID)
	}

	logger.Info("Received approval decision",
		"entry_id", decision.EntryID.String(),
		"decision", string(decision.Decision),
	)

	if err := h.decisions.ApplyDecision(ctx, &decision); err != nil {
		logger.Error("Failed to apply approval decision",
			"entry_id", decision.EntryID.String(),
			"decision", string(decision.Decision),
			"error", err,
		)
		// Uncommitted, the broker redelivers
		return err
	}

	return nil
}

// park routes an unusable message to the DLQ. If dead-lettering is disabled
// or fails, the original error propagates so the message is retried rather
// than dropped.
func (h *ApprovalEventHandler) park(ctx context.Context, key, value []byte, reason string, original error) error {
	if h.dlq == nil {
		return original
	}
	if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to park message on DLQ",
			"dlq_error", dlqErr,
			"original_error", original,
			"message_key", string(key),
		)
		return original
	}
	h.logger.Info("Parked unusable approval message on DLQ", "message_key", string(key), "reason", reason)
	return nil
}
