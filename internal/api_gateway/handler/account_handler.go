package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fundflow-core/internal/api_gateway/service"
	"github.com/fundflow-core/internal/domain/account"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create creates a new individual or pooled account
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.OwnerName, account.Kind(req.Kind), req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrEmptyOwnerName),
			errors.Is(err, account.ErrInvalidCurrencyFormat),
			errors.Is(err, account.ErrInvalidKind):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to create account", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "account_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// AddMember attaches a member to a pooled account
func (h *AccountHandler) AddMember(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	member, err := h.accountService.AddMember(c.Request.Context(), accountID, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, account.ErrNotPooled):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to add member", "account_id", accountID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapMemberToResponse(member))
}

// GetBalance returns the account's balance report, optionally scoped to one
// member of a pooled account via the member_id query parameter
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}
	memberID := c.Query("member_id")

	report, err := h.accountService.GetBalance(c.Request.Context(), accountID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "Account not found")
		case errors.Is(err, account.ErrMemberNotFound{}):
			RespondNotFound(c, "Member not found")
		default:
			h.logger.Error("Failed to compute balance", "account_id", accountID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, BalanceResponse{
		AccountID:    accountID.String(),
		MemberID:     memberID,
		CompletedIn:  report.CompletedIn,
		CompletedOut: report.CompletedOut,
		InFlightOut:  report.InFlightOut,
		Available:    report.Available,
	})
}
