package ingest

import "errors"

var (
	// ErrSourceUnreadable is returned when the document source cannot be read.
	ErrSourceUnreadable = errors.New("document source unreadable")

	// ErrCollectionNotFound is returned when the target collection does not exist.
	ErrCollectionNotFound = errors.New("target collection not found")

	// ErrConnectFailed is returned when no index session could be opened.
	ErrConnectFailed = errors.New("failed to connect to vector index")

	// ErrConnectorRequired is returned when a connector is not provided.
	ErrConnectorRequired = errors.New("connector required")

	// ErrAssignerRequired is returned when an identity assigner is not provided.
	ErrAssignerRequired = errors.New("identity assigner required")

	// ErrInvalidConfig is returned when the configuration is inconsistent.
	ErrInvalidConfig = errors.New("invalid ingest config")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
