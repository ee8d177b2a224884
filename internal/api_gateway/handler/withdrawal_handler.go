package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fundflow-core/internal/api_gateway/middleware"
	"github.com/fundflow-core/internal/api_gateway/service"
	"github.com/fundflow-core/internal/domain/account"
	"github.com/fundflow-core/internal/domain/ledger"
	"github.com/fundflow-core/internal/domain/shared"
	"github.com/fundflow-core/internal/withdrawal"
)

// WithdrawalHandler handles HTTP requests for ledger entry operations
type WithdrawalHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(logger *slog.Logger, ledgerService service.LedgerService) *WithdrawalHandler {
	return &WithdrawalHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Create initiates a withdrawal. Duplicate idempotency keys return the
// original entry.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	params := withdrawal.CreateParams{
		AccountID:      accountID,
		MemberID:       req.MemberID,
		Amount:         req.Amount,
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  middleware.GetCorrelationID(c),
		PreApproved:    req.PreApproved,
	}

	entry, err := h.ledgerService.CreateWithdrawal(c.Request.Context(), params)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// CreateDeposit records a settled deposit
func (h *WithdrawalHandler) CreateDeposit(c *gin.Context) {
	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	entry, err := h.ledgerService.CreateDeposit(c.Request.Context(), accountID, req.MemberID, req.Amount, req.Reference)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// GetByID retrieves one ledger entry
func (h *WithdrawalHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.ledgerService.GetEntryByID(c.Request.Context(), id)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// GetByAccountID retrieves paginated entry history for an account
func (h *WithdrawalHandler) GetByAccountID(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.ledgerService.GetEntriesByAccountID(c.Request.Context(), accountID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	responses := make([]EntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, len(responses))
}

// Transition drives one state machine step on an entry
func (h *WithdrawalHandler) Transition(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.ledgerService.Transition(c.Request.Context(), entryID, ledger.Status(req.Status), req.Note)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Process moves an approved withdrawal into execution
func (h *WithdrawalHandler) Process(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	existing, err := h.ledgerService.GetEntryByID(c.Request.Context(), entryID)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	entry, err := h.ledgerService.Process(c.Request.Context(), entryID, existing.AccountID)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Rollback fails an entry after a downstream execution failure
func (h *WithdrawalHandler) Rollback(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.ledgerService.Rollback(c.Request.Context(), entryID, req.Reason)
	if err != nil {
		h.respondEntryError(c, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// respondEntryError maps domain errors onto HTTP statuses
func (h *WithdrawalHandler) respondEntryError(c *gin.Context, err error) {
	var insufficient shared.ErrInsufficientFunds
	var invalidTransition shared.ErrInvalidTransition
	var conflict ledger.ErrStatusConflict

	switch {
	case errors.As(err, &insufficient):
		RespondWithError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", insufficient.Error())
	case errors.As(err, &invalidTransition):
		RespondWithError(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", invalidTransition.Error())
	case errors.As(err, &conflict):
		RespondConflict(c, conflict.Error())
	case errors.Is(err, shared.ErrLockContention):
		c.Header("Retry-After", "1")
		RespondWithError(c, http.StatusConflict, "OPERATION_IN_PROGRESS", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrEntryNotFound{}):
		RespondNotFound(c, "Entry not found")
	case errors.Is(err, account.ErrAccountNotFound{}):
		RespondNotFound(c, "Account not found")
	case errors.Is(err, account.ErrMemberNotFound{}):
		RespondNotFound(c, "Member not found")
	default:
		h.logger.Error("Entry operation failed", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
	}
}
