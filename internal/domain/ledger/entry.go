package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryType defines the direction of a ledger entry
type EntryType string

const (
	EntryTypeDeposit  EntryType = "DEPOSIT"
	EntryTypeWithdraw EntryType = "WITHDRAW"
)

// Status defines the lifecycle states of a ledger entry
type Status string

const (
	StatusPending      Status = "PENDING"
	StatusManualReview Status = "MANUAL_REVIEW"
	StatusApproved     Status = "APPROVED"
	StatusProcessing   Status = "PROCESSING"
	StatusComplete     Status = "COMPLETE"
	StatusFailed       Status = "FAILED"
	StatusRejected     Status = "REJECTED"
)

// allowedTransitions is the authoritative state machine table.
// MANUAL_REVIEW behaves exactly like PENDING for transition purposes.
var allowedTransitions = map[Status][]Status{
	StatusPending:      {StatusApproved, StatusRejected, StatusFailed},
	StatusManualReview: {StatusApproved, StatusRejected, StatusFailed},
	StatusApproved:     {StatusProcessing, StatusFailed},
	StatusProcessing:   {StatusComplete, StatusFailed},
	StatusComplete:     {},
	StatusFailed:       {},
	StatusRejected:     {},
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusRejected
}

// CanTransitionTo reports whether the state machine permits moving to next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Approval timeouts. Entries waiting for a human decision get a generous
// window; entries already cleared for execution must move quickly or be
// swept as stale.
const (
	PendingTimeout   = 24 * time.Hour
	ExecutionTimeout = 5 * time.Minute
)

// TimeoutFor returns how long an entry may sit in the given status before
// the reconciliation sweep treats it as stale
func TimeoutFor(status Status) time.Duration {
	switch status {
	case StatusApproved, StatusProcessing:
		return ExecutionTimeout
	default:
		return PendingTimeout
	}
}

// Entry is a single deposit or withdrawal record. Amounts are stored in
// the smallest currency unit; entries are never deleted, terminal states
// are retained for audit and idempotency lookups.
type Entry struct {
	ID             uuid.UUID  `json:"id" bson:"entry_id"`
	AccountID      uuid.UUID  `json:"account_id" bson:"account_id"`
	MemberID       string     `json:"member_id,omitempty" bson:"member_id,omitempty"`
	Type           EntryType  `json:"type" bson:"type"`
	Amount         int64      `json:"amount" bson:"amount"`
	Status         Status     `json:"status" bson:"status"`
	Reference      string     `json:"reference,omitempty" bson:"reference,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" bson:"idempotency_key,omitempty"`
	CorrelationID  string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Notes          string     `json:"notes,omitempty" bson:"notes,omitempty"`
	RetryCount     int        `json:"retry_count" bson:"retry_count"`
	MaxRetries     int        `json:"max_retries" bson:"max_retries"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	StateChangedAt time.Time  `json:"state_changed_at" bson:"state_changed_at"`
	TimeoutAt      *time.Time `json:"timeout_at,omitempty" bson:"timeout_at,omitempty"`
}

// NewWithdrawal builds a withdrawal entry in its initial status. Privileged
// approvers may create entries directly in APPROVED, which shortens the
// timeout window accordingly.
func NewWithdrawal(accountID uuid.UUID, memberID string, amount int64, reference, idempotencyKey string, preApproved bool) *Entry {
	now := time.Now().UTC()
	status := StatusPending
	if preApproved {
		status = StatusApproved
	}
	timeoutAt := now.Add(TimeoutFor(status))

	return &Entry{
		ID:             uuid.New(),
		AccountID:      accountID,
		MemberID:       memberID,
		Type:           EntryTypeWithdraw,
		Amount:         amount,
		Status:         status,
		Reference:      reference,
		IdempotencyKey: idempotencyKey,
		MaxRetries:     3,
		CreatedAt:      now,
		StateChangedAt: now,
		TimeoutAt:      &timeoutAt,
	}
}

// NewDeposit builds a deposit entry; deposits enter the ledger as COMPLETE
// since settlement happens upstream of this core.
func NewDeposit(accountID uuid.UUID, memberID string, amount int64, reference string) *Entry {
	now := time.Now().UTC()
	return &Entry{
		ID:             uuid.New(),
		AccountID:      accountID,
		MemberID:       memberID,
		Type:           EntryTypeDeposit,
		Amount:         amount,
		Status:         StatusComplete,
		Reference:      reference,
		CreatedAt:      now,
		StateChangedAt: now,
	}
}

// IsStale reports whether a non-terminal entry has outlived its timeout
func (e *Entry) IsStale(now time.Time) bool {
	if e.Status.IsTerminal() || e.TimeoutAt == nil {
		return false
	}
	return e.TimeoutAt.Before(now)
}

// RetriesExhausted reports whether the entry has used up its retry budget
func (e *Entry) RetriesExhausted() bool {
	return e.RetryCount >= e.MaxRetries
}
