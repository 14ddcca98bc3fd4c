package graph

import (
	"errors"
	"fmt"
)

// ContextError is a recoverable failure of a context operation.
type ContextError struct {
	// Code identifies the error category.
	Code ContextErrorCode

	// Message is a human-readable description.
	Message string

	// Slot is the slot of the context the operation ran in.
	Slot int
}

// ContextErrorCode categorizes context errors.
type ContextErrorCode string

const (
	// ErrCodePendingChanges indicates Map was called before Commit.
	ErrCodePendingChanges ContextErrorCode = "PENDING_CHANGES"

	// ErrCodeContextClosed indicates the target context is already closed.
	ErrCodeContextClosed ContextErrorCode = "CONTEXT_CLOSED"

	// ErrCodeSameContext indicates a context was asked to map into itself.
	ErrCodeSameContext ContextErrorCode = "SAME_CONTEXT"
)

// Error implements the error interface.
func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %s (slot=%d)", e.Code, e.Message, e.Slot)
}

// IsPendingChanges reports whether err is a pending-changes precondition
// failure. Uses errors.As to handle wrapped errors.
func IsPendingChanges(err error) bool {
	var ce *ContextError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodePendingChanges
	}
	return false
}

func newPendingChangesError(slot, pending int) *ContextError {
	return &ContextError{
		Code:    ErrCodePendingChanges,
		Message: fmt.Sprintf("%d uncommitted changes, commit before mapping", pending),
		Slot:    slot,
	}
}

// InvariantError is the panic value raised when a graph invariant is broken.
// These are programming errors and are never returned.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return "graph invariant violated: " + e.Message
}

func invariantf(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}
