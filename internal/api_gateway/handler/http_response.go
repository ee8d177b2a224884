package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fundflow-core/internal/api_gateway/middleware"
)

// Response is the uniform envelope every endpoint returns. Exactly one of
// Data or Error is set; the correlation ID always rides along so clients
// can quote it when reporting problems.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a machine-readable code plus a human-readable message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo describes the page window of a list response. Totals are not
// reported; callers page forward until a short page comes back.
type MetaInfo struct {
	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`
	Count   int `json:"count"`
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(code, message string) *Response {
	return &Response{Error: &ErrorInfo{Code: code, Message: message}}
}

// NewPaginatedResponse builds a list envelope with page metadata
func NewPaginatedResponse(data interface{}, page, perPage, count int) *Response {
	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:    page,
			PerPage: perPage,
			Count:   count,
		},
	}
}

// RespondWithData writes a success envelope with the given status
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	resp := &Response{Data: data}
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

// RespondWithError writes an error envelope with the given status
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	resp := NewErrorResponse(code, message)
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

// RespondWithPaginatedData writes a list envelope with page metadata
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, count int) {
	resp := NewPaginatedResponse(data, page, perPage, count)
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

// RespondOK writes a 200 envelope
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated writes a 201 envelope
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest writes a 400 envelope
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound writes a 404 envelope
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondConflict writes a 409 envelope
func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError writes a 500 envelope without leaking details
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
