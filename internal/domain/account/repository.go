package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	CreateMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, accountID uuid.UUID, memberID string) (*Member, error)
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrMemberNotFound indicates a missing pooled-account member
type ErrMemberNotFound struct {
	AccountID uuid.UUID
	MemberID  string
}

func (e ErrMemberNotFound) Error() string {
	return "member " + e.MemberID + " not found on account " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrMemberNotFound
func (e ErrMemberNotFound) Is(target error) bool {
	t, ok := target.(ErrMemberNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil && t.MemberID == "" {
		return true
	}
	return e.AccountID == t.AccountID && e.MemberID == t.MemberID
}
