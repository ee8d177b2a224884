package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyOwnerName        = errors.New("owner name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrInvalidKind           = errors.New("account kind must be individual or pooled")
	ErrNotPooled             = errors.New("members can only belong to pooled accounts")
)

// Kind distinguishes a solo wallet from a group wallet whose members share
// one pooled balance
type Kind string

const (
	KindIndividual Kind = "INDIVIDUAL"
	KindPooled     Kind = "POOLED"
)

// Account identifies an individual or pooled wallet. Identity is immutable;
// balances live in the ledger, never on the account row.
type Account struct {
	ID        uuid.UUID `json:"id"`
	OwnerName string    `json:"owner_name"`
	Kind      Kind      `json:"kind"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a sub-identity of a pooled account. Members draw from the
// shared pooled balance; an individual account has no members.
type Member struct {
	ID          string    `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// New creates an account with the given parameters
func New(ownerName string, kind Kind, currency string) (*Account, error) {
	if ownerName == "" {
		return nil, ErrEmptyOwnerName
	}
	if kind != KindIndividual && kind != KindPooled {
		return nil, ErrInvalidKind
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	return &Account{
		ID:        uuid.New(),
		OwnerName: ownerName,
		Kind:      kind,
		Currency:  currency,
		CreatedAt: time.Now(),
	}, nil
}

// IsPooled reports whether the account carries a shared member balance
func (a *Account) IsPooled() bool {
	return a.Kind == KindPooled
}

// NewMember creates a member for a pooled account
func (a *Account) NewMember(id, displayName string) (*Member, error) {
	if !a.IsPooled() {
		return nil, ErrNotPooled
	}
	if displayName == "" {
		return nil, ErrEmptyOwnerName
	}
	return &Member{
		ID:          id,
		AccountID:   a.ID,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}, nil
}
