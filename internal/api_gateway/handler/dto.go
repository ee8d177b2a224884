package handler

import (
	"time"

	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/domain/ledger"
)

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	OwnerName string `json:"owner_name" binding:"required"`
	Kind      string `json:"kind" binding:"required,oneof=INDIVIDUAL POOLED"`
	Currency  string `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerName string `json:"owner_name"`
	Kind      string `json:"kind"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

// AddMemberRequest represents a request to attach a member to a pooled account
type AddMemberRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// MemberResponse represents a pooled account member in API responses
type MemberResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

// CreateWithdrawalRequest represents a request to create a withdrawal
type CreateWithdrawalRequest struct {
	AccountID      string `json:"account_id" binding:"required,uuid"`
	MemberID       string `json:"member_id,omitempty"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Reference      string `json:"reference,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	PreApproved    bool   `json:"pre_approved,omitempty"`
}

// CreateDepositRequest represents a request to record a settled deposit
type CreateDepositRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	MemberID  string `json:"member_id,omitempty"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Reference string `json:"reference,omitempty"`
}

// TransitionRequest represents a request to move an entry through its state machine
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED PROCESSING COMPLETE FAILED"`
	Note   string `json:"note,omitempty"`
}

// RollbackRequest represents a request to fail an entry after a downstream error
type RollbackRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID             string `json:"id"`
	AccountID      string `json:"account_id"`
	MemberID       string `json:"member_id,omitempty"`
	Type           string `json:"type"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	Reference      string `json:"reference,omitempty"`
	Notes          string `json:"notes,omitempty"`
	RetryCount     int    `json:"retry_count"`
	CreatedAt      string `json:"created_at"`
	StateChangedAt string `json:"state_changed_at"`
	TimeoutAt      string `json:"timeout_at,omitempty"`
}

// BalanceResponse represents a balance report in API responses
type BalanceResponse struct {
	AccountID    string `json:"account_id"`
	MemberID     string `json:"member_id,omitempty"`
	CompletedIn  int64  `json:"completed_in"`
	CompletedOut int64  `json:"completed_out"`
	InFlightOut  int64  `json:"in_flight_out"`
	Available    int64  `json:"available"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerName: acc.OwnerName,
		Kind:      string(acc.Kind),
		Currency:  acc.Currency,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
	}
}

func mapMemberToResponse(m *account.Member) MemberResponse {
	return MemberResponse{
		ID:          m.ID,
		AccountID:   m.AccountID.String(),
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:             e.ID.String(),
		AccountID:      e.AccountID.String(),
		MemberID:       e.MemberID,
		Type:           string(e.Type),
		Amount:         e.Amount,
		Status:         string(e.Status),
		Reference:      e.Reference,
		Notes:          e.Notes,
		RetryCount:     e.RetryCount,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		StateChangedAt: e.StateChangedAt.Format(time.RFC3339),
	}
	if e.TimeoutAt != nil {
		resp.TimeoutAt = e.TimeoutAt.Format(time.RFC3339)
	}
	return resp
}
