package identity

import "errors"

var (
	// ErrMissingStableField is returned when a document lacks a declared stable field.
	ErrMissingStableField = errors.New("missing stable field")

	// ErrUnsupportedValue is returned when a stable field holds a non-scalar value.
	ErrUnsupportedValue = errors.New("unsupported stable field value")

	// ErrDuplicateField is returned when a stable field is declared twice.
	ErrDuplicateField = errors.New("duplicate stable field")
)
