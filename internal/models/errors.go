package models

import "errors"

// Classified failures shared across the repository, service and HTTP layers.
// Wrapped with pkg/errors at the point of detection; classified with
// errors.Is at the API boundary.
var (
	// ErrInvalidRequest marks caller input missing a required field.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound marks a workflow or step id that resolves to nothing.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed marks a document that violates schema constraints
	// after the automatic repair attempt.
	ErrValidationFailed = errors.New("validation failed")
)
