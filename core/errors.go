package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the Content field is empty after trimming.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidMetadata indicates a metadata key or value is not supported.
	ErrInvalidMetadata = errors.New("invalid metadata")
)
