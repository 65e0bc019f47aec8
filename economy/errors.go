/*
errors.go - Centralized error types for the coin economy

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the HTTP layer maps these
  to status codes.

ERROR CATEGORIES:
  1. Balance errors - spend exceeds available coins (recoverable)
  2. Validation errors - malformed input, unknown actions
  3. Lookup errors - missing users

POLICY:
  Nothing in this package is fatal to the process. Every error is a
  local, recoverable condition returned to the immediate caller. A
  missing user fails closed (ErrUserNotFound) rather than implicitly
  creating a ledger entry.

SEE ALSO:
  - manager.go: Raises these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package economy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a spend exceeds the user's
	// current balance. Wrapped by InsufficientBalanceError with amounts.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound is returned when an operation references a user
	// with no ledger entry. The ledger never creates entries implicitly.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user that already has a
	// ledger entry.
	ErrUserExists = errors.New("user already exists")

	// ErrUnknownAction is returned when an earn references an action id
	// absent from the catalog.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidInput is returned for malformed input (empty user id,
	// negative bounty, out-of-range rating).
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports how far short a spend fell.
type InsufficientBalanceError struct {
	UserID    string
	Available int64
	Requested int64
	Shortfall int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUserExists) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
