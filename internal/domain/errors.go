// Package domain defines the error taxonomy shared by the chore, reward and
// ledger engines. Callers classify failures with errors.Is against these
// sentinels; stores and services add context with fmt.Errorf("…: %w", err).
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the target entity id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is a pure policy denial, raised before any mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition means a state machine precondition was unmet,
	// including losing a concurrent transition race.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotAssignee means the actor is not in the chore's assignee set.
	ErrNotAssignee = errors.New("not an assignee of this chore")

	// ErrInsufficientBalance means the ledger balance does not cover a cost.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrLimitExceeded means the weekly redemption cap was reached.
	ErrLimitExceeded = errors.New("weekly redemption limit exceeded")

	// ErrValidation means the input was malformed.
	ErrValidation = errors.New("invalid input")
)

// Validationf wraps ErrValidation with a specific message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
