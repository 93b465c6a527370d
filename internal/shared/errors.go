package shared

import "errors"

var (
	// ErrNotFound indicates the record is absent or outside the actor's ownership scope.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller-correctable invalid input.
	ErrValidation = errors.New("validation failed")
)
