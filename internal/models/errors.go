package models

import "errors"

// Error taxonomy shared by services and repositories. Callers wrap these with
// fmt.Errorf("%w: ...") and the HTTP layer maps them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")

	// ErrInconsistentState marks a multi-step write that failed after an
	// earlier step had already been committed.
	ErrInconsistentState = errors.New("inconsistent state")
)
