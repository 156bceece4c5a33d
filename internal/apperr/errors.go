package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrPersist marks a mutation whose in-memory effect stands but whose
	// write-through to the persisted image failed.
	ErrPersist = errors.New("persist failed")

	// ErrConfirmationRequired guards destructive whole-database operations.
	ErrConfirmationRequired = errors.New("confirmation required")
)
