package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SumFilter scopes an amount aggregation to an account, an optional pooled
// member, an entry type, and a set of statuses
type SumFilter struct {
	AccountID uuid.UUID
	MemberID  string
	Type      EntryType
	Statuses  []Status
}

// Repository manages ledger entry persistence. UpdateStatusCAS is the
// compare-and-swap primitive the withdrawal state machine depends on: the
// update only matches when the entry still holds the expected status.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, entryType EntryType, key string) (*Entry, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to Status, note string) (*Entry, error)
	IncrementRetryCount(ctx context.Context, id uuid.UUID) error
	SumAmount(ctx context.Context, filter SumFilter) (int64, error)
	FindStale(ctx context.Context, statuses []Status, olderThan time.Time, limit int) ([]*Entry, error)
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an entry id uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrStatusConflict indicates a compare-and-swap update matched no rows:
// something else transitioned the entry first. Callers should re-fetch and
// decide whether the race was benign.
type ErrStatusConflict struct {
	EntryID  uuid.UUID
	Expected Status
}

func (e ErrStatusConflict) Error() string {
	return "ledger entry " + e.EntryID.String() + " is no longer in status " + string(e.Expected)
}

// Is implements the errors.Is interface for ErrStatusConflict
func (e ErrStatusConflict) Is(target error) bool {
	t, ok := target.(ErrStatusConflict)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
