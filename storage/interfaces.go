package storage

import (
	"context"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Index is a session with a vector index backend.
// Implementations must be safe for concurrent use by multiple goroutines.
type Index interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection described by schema.
	// Returns ErrCollectionExists if it already exists.
	CreateCollection(ctx context.Context, schema *CollectionSchema) error

	// DeleteCollection removes a collection and everything in it.
	// Deleting a missing collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert inserts or replaces objects keyed by their ID.
	// The returned outcomes correspond positionally to objects, one each.
	// A non-nil error means the call as a whole did not reach the backend
	// (transport failure); outcomes are then undefined.
	Upsert(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error)

	// Count returns the number of objects stored in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases the session and any resources held by it.
	Close() error
}

// Exporter is implemented by backends that can enumerate stored objects.
type Exporter interface {
	// Export calls fn for every object in the collection.
	// Iteration stops on the first error returned by fn.
	Export(ctx context.Context, collection string, fn func(*StoredObject) error) error
}

// Connector opens index sessions. A pipeline run opens exactly one.
type Connector interface {
	Connect(ctx context.Context) (Index, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Index, error)

// Connect calls f(ctx).
func (f ConnectorFunc) Connect(ctx context.Context) (Index, error) {
	return f(ctx)
}

// StoredObject is an object as persisted by a backend.
type StoredObject struct {
	ID        core.ID
	Content   string
	Metadata  core.Metadata
	Vector    []float32
	Checksum  uint64
	UpdatedAt time.Time
}

// NewStoredObject converts an uploaded object into its persisted form.
func NewStoredObject(obj *core.Object, now time.Time) *StoredObject {
	return &StoredObject{
		ID:        obj.ID,
		Content:   obj.Document.Content,
		Metadata:  obj.Document.Metadata.Clone(),
		Vector:    obj.Vector,
		Checksum:  obj.Checksum,
		UpdatedAt: now,
	}
}
