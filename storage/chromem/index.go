package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/jeffallen007/what-would-she-say/ai"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
	"github.com/philippgille/chromem-go"
)

// ErrNoEmbedder is the rejection reason for a document that has no vector
// when the index was opened without an embedder.
var ErrNoEmbedder = errors.New("document has no vector and no embedder is configured")

// Index implements storage.Index on a chromem database.
type Index struct {
	db      *chromem.DB
	embed   chromem.EmbeddingFunc
	logger  *slog.Logger
	mu      sync.RWMutex
	schemas map[string]*storage.CollectionSchema
	closed  bool
}

var _ storage.Index = (*Index)(nil)

// NewIndex wraps db. The embedder may be nil.
func NewIndex(db *chromem.DB, embedder ai.Embedder) *Index {
	return &Index{
		db:      db,
		embed:   embeddingFunc(embedder),
		logger:  slog.Default().With("component", "chromem-index"),
		schemas: make(map[string]*storage.CollectionSchema),
	}
}

// NewConnector returns a connector over a chromem database. An empty path
// gives a fresh in-memory database per session; otherwise documents persist
// under path.
func NewConnector(path string, embedder ai.Embedder) storage.Connector {
	return storage.ConnectorFunc(func(ctx context.Context) (storage.Index, error) {
		if path == "" {
			return NewIndex(chromem.NewDB(), embedder), nil
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for chromem: %w", err)
		}
		db, err := chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem database: %w", err)
		}
		return NewIndex(db, embedder), nil
	})
}

// embeddingFunc adapts an ai.Embedder to chromem. The result is normalized
// because chromem assumes unit vectors for cosine similarity.
func embeddingFunc(embedder ai.Embedder) chromem.EmbeddingFunc {
	if embedder == nil {
		return func(ctx context.Context, text string) ([]float32, error) {
			return nil, ErrNoEmbedder
		}
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		v, err := embedder.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		return ai.NormalizeVector(v), nil
	}
}

// Close marks the session closed. chromem writes documents synchronously,
// so there is nothing to flush.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
	return nil
}

func (ix *Index) isClosed() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.closed
}

// HasCollection reports whether the collection exists.
func (ix *Index) HasCollection(ctx context.Context, name string) (bool, error) {
	if ix.isClosed() {
		return false, storage.ErrStorageClosed
	}
	return ix.db.GetCollection(name, ix.embed) != nil, nil
}

// CreateCollection creates the collection. The schema is kept for the
// lifetime of the session and used to reject malformed objects.
func (ix *Index) CreateCollection(ctx context.Context, schema *storage.CollectionSchema) error {
	if ix.isClosed() {
		return storage.ErrStorageClosed
	}
	if err := schema.Validate(); err != nil {
		return err
	}
	if ix.db.GetCollection(schema.Name, ix.embed) != nil {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, schema.Name)
	}

	meta := map[string]string{}
	if schema.Description != "" {
		meta["description"] = schema.Description
	}
	if _, err := ix.db.CreateCollection(schema.Name, meta, ix.embed); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", schema.Name, err)
	}

	ix.mu.Lock()
	ix.schemas[schema.Name] = schema
	ix.mu.Unlock()
	return nil
}

// DeleteCollection removes the collection and its documents.
func (ix *Index) DeleteCollection(ctx context.Context, name string) error {
	if ix.isClosed() {
		return storage.ErrStorageClosed
	}
	ix.mu.Lock()
	delete(ix.schemas, name)
	ix.mu.Unlock()
	return ix.db.DeleteCollection(name)
}

// Upsert adds each object as a chromem document. chromem replaces documents
// with the same ID, so re-uploading is idempotent. Each object succeeds or
// fails on its own.
func (ix *Index) Upsert(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error) {
	if ix.isClosed() {
		return nil, storage.ErrStorageClosed
	}
	col := ix.db.GetCollection(collection, ix.embed)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}

	ix.mu.RLock()
	schema := ix.schemas[collection]
	ix.mu.RUnlock()

	outcomes := make([]core.Outcome, len(objects))
	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if schema != nil {
			if reason := schema.CheckObject(obj); reason != "" {
				outcomes[i] = core.Failed(reason)
				continue
			}
		}

		doc := chromem.Document{
			ID:        obj.ID.String(),
			Metadata:  stringifyMetadata(obj.Document.Metadata),
			Embedding: obj.Vector,
			Content:   obj.Document.Content,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			ix.logger.Debug("document rejected", "id", doc.ID, "err", err)
			outcomes[i] = core.Failed(err.Error())
			continue
		}
		outcomes[i] = core.Succeeded()
	}
	return outcomes, nil
}

// Count returns the number of documents in the collection.
func (ix *Index) Count(ctx context.Context, collection string) (int, error) {
	if ix.isClosed() {
		return 0, storage.ErrStorageClosed
	}
	col := ix.db.GetCollection(collection, ix.embed)
	if col == nil {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	return col.Count(), nil
}

func stringifyMetadata(meta core.Metadata) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'g', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
