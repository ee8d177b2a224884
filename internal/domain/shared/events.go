package shared

import (
	"time"

	"github.com/google/uuid"
)

// EntryEvent is published to Kafka whenever a ledger entry changes state.
// Consumers are downstream collaborators (reporting, notifications); the
// money path never depends on delivery.
type EntryEvent struct {
	EntryID       uuid.UUID `json:"entry_id"`
	AccountID     uuid.UUID `json:"account_id"`
	MemberID      string    `json:"member_id,omitempty"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Note          string    `json:"note,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Decision values accepted on the approval topic
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionReject   Decision = "REJECT"
	DecisionProcess  Decision = "PROCESS"
	DecisionComplete Decision = "COMPLETE"
	DecisionRollback Decision = "ROLLBACK"
)

// ApprovalDecision is the Kafka message external approval systems send to
// drive a withdrawal through its state machine.
type ApprovalDecision struct {
	EntryID       uuid.UUID `json:"entry_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Decision      Decision  `json:"decision"`
	Reason        string    `json:"reason,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
