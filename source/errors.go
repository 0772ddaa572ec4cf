package source

import "errors"

var (
	// ErrUnsupportedFormat is returned by Open for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrMalformedSource is returned when a file cannot be parsed.
	ErrMalformedSource = errors.New("malformed source")
)
