// Package shared holds the error taxonomy and message payloads that cross
// component boundaries in the fund-movement core.
package shared

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions carrying no payload
var (
	// ErrLockContention means the account lock is held elsewhere. Always
	// retryable after a short backoff; never a balance error.
	ErrLockContention = errors.New("operation in progress for this account, retry later")

	// ErrStoreUnavailable wraps infrastructure failures on the money path.
	// Critical paths treat it as a denial, never as permission to proceed.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	ErrInvalidAmount = errors.New("amount must be positive")
)

// ErrInsufficientFunds carries the balance observed at validation time so
// callers can report it without a second aggregation.
type ErrInsufficientFunds struct {
	Available int64
	Requested int64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds: requested %d, available %d", e.Requested, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	_, ok := target.(ErrInsufficientFunds)
	return ok
}

// ErrInvalidTransition is returned when the state machine table forbids the
// requested status change.
type ErrInvalidTransition struct {
	From string
	To   string
}

func (e ErrInvalidTransition) Error() string {
	return "invalid status transition from " + e.From + " to " + e.To
}

// Is implements the errors.Is interface for ErrInvalidTransition
func (e ErrInvalidTransition) Is(target error) bool {
	_, ok := target.(ErrInvalidTransition)
	return ok
}

// ErrRateLimited tells the caller when to come back.
type ErrRateLimited struct {
	RetryAfter time.Duration
	Reason     string
}

func (e ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Is implements the errors.Is interface for ErrRateLimited
func (e ErrRateLimited) Is(target error) bool {
	_, ok := target.(ErrRateLimited)
	return ok
}
