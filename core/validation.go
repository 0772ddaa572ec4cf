package core

import (
	"fmt"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must not be empty after trimming whitespace
//   - Metadata keys must not be empty
//   - Metadata values must be scalars (see IsScalar)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if err := ValidateMetadata(doc.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateMetadata checks that every key is non-empty and every value is a scalar.
func ValidateMetadata(m Metadata) error {
	for k, v := range m {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidMetadata)
		}
		if !IsScalar(v) {
			return fmt.Errorf("%w: key %q has unsupported type %T", ErrInvalidMetadata, k, v)
		}
	}
	return nil
}

// IsScalar reports whether v is a supported metadata value.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int64, float64:
		return true
	default:
		return false
	}
}
