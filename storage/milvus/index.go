package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Field names of every collection.
const (
	FieldID       = "id"
	FieldContent  = "content"
	FieldMetadata = "metadata"
	FieldVector   = "vector"
)

const (
	idMaxLength      = 64
	contentMaxLength = 65535

	// DefaultDimension is used for collections whose schema declares none.
	DefaultDimension = 1536
)

// Config holds connection settings.
type Config struct {
	Address   string
	Dimension int
}

// Index implements storage.Index on a Milvus server.
type Index struct {
	svc       service
	dimension int
	logger    *slog.Logger

	mu      sync.Mutex
	schemas map[string]*storage.CollectionSchema
	touched map[string]struct{}
}

var _ storage.Index = (*Index)(nil)

func newIndex(svc service, dimension int) *Index {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Index{
		svc:       svc,
		dimension: dimension,
		logger:    slog.Default().With("component", "milvus-index"),
		schemas:   make(map[string]*storage.CollectionSchema),
		touched:   make(map[string]struct{}),
	}
}

// NewConnector returns a connector that dials the Milvus server for each session.
func NewConnector(cfg Config) storage.Connector {
	return storage.ConnectorFunc(func(ctx context.Context) (storage.Index, error) {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", cfg.Address, err)
		}
		return newIndex(sdkService{c: c}, cfg.Dimension), nil
	})
}

// Close flushes every collection written in this session and disconnects.
func (ix *Index) Close() error {
	ix.mu.Lock()
	touched := make([]string, 0, len(ix.touched))
	for name := range ix.touched {
		touched = append(touched, name)
	}
	ix.touched = make(map[string]struct{})
	ix.mu.Unlock()

	var flushErr error
	for _, name := range touched {
		if err := ix.svc.flush(context.Background(), name); err != nil {
			ix.logger.Error("failed to flush collection", "collection", name, "err", err)
			if flushErr == nil {
				flushErr = fmt.Errorf("flush %s: %w", name, err)
			}
		}
	}
	if err := ix.svc.close(); err != nil {
		return err
	}
	return flushErr
}

// HasCollection reports whether the collection exists on the server.
func (ix *Index) HasCollection(ctx context.Context, name string) (bool, error) {
	return ix.svc.hasCollection(ctx, name)
}

// CreateCollection creates a collection with the fixed field layout.
func (ix *Index) CreateCollection(ctx context.Context, schema *storage.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	exists, err := ix.svc.hasCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, schema.Name)
	}

	if err := ix.svc.createCollection(ctx, ix.milvusSchema(schema)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", schema.Name, err)
	}

	ix.mu.Lock()
	ix.schemas[schema.Name] = schema
	ix.mu.Unlock()
	return nil
}

func (ix *Index) milvusSchema(schema *storage.CollectionSchema) *entity.Schema {
	dim := schema.VectorDimension
	if dim == 0 {
		dim = ix.dimension
	}
	return entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).WithMaxLength(idMaxLength)).
		WithField(entity.NewField().WithName(FieldContent).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(contentMaxLength)).
		WithField(entity.NewField().WithName(FieldMetadata).WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().WithName(FieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)))
}

// DeleteCollection drops the collection if it exists.
func (ix *Index) DeleteCollection(ctx context.Context, name string) error {
	exists, err := ix.svc.hasCollection(ctx, name)
	if err != nil || !exists {
		return err
	}

	ix.mu.Lock()
	delete(ix.schemas, name)
	delete(ix.touched, name)
	ix.mu.Unlock()

	return ix.svc.dropCollection(ctx, name)
}

// Upsert sends every acceptable object in one request. An error from the
// server fails the whole call.
func (ix *Index) Upsert(ctx context.Context, collection string, objects []*core.Object) ([]core.Outcome, error) {
	exists, err := ix.svc.hasCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}

	ix.mu.Lock()
	schema := ix.schemas[collection]
	ix.mu.Unlock()

	dim := ix.dimension
	if schema != nil && schema.VectorDimension > 0 {
		dim = schema.VectorDimension
	}

	outcomes := make([]core.Outcome, len(objects))
	b := newColumnBuilder(len(objects))
	for i, obj := range objects {
		if reason := checkObject(obj, schema, dim); reason != "" {
			outcomes[i] = core.Failed(reason)
			continue
		}
		meta, err := json.Marshal(obj.Document.Metadata)
		if err != nil {
			outcomes[i] = core.Failed(fmt.Sprintf("encoding metadata: %v", err))
			continue
		}
		b.add(obj, meta)
		outcomes[i] = core.Succeeded()
	}

	if b.len() == 0 {
		return outcomes, nil
	}
	if err := ix.svc.upsert(ctx, collection, b.columns(dim)...); err != nil {
		return nil, fmt.Errorf("upsert into %s: %w", collection, err)
	}

	ix.mu.Lock()
	ix.touched[collection] = struct{}{}
	ix.mu.Unlock()

	ix.logger.Debug("upserted objects", "collection", collection, "count", b.len())
	return outcomes, nil
}

// Count flushes pending writes and returns the server's row count.
func (ix *Index) Count(ctx context.Context, collection string) (int, error) {
	exists, err := ix.svc.hasCollection(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}
	if err := ix.svc.flush(ctx, collection); err != nil {
		return 0, err
	}
	raw, err := ix.svc.rowCount(ctx, collection)
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected row count %q: %w", raw, err)
	}
	return count, nil
}

func checkObject(obj *core.Object, schema *storage.CollectionSchema, dim int) string {
	if len(obj.Vector) == 0 {
		return "document has no vector"
	}
	if len(obj.Vector) != dim {
		return fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(obj.Vector), dim)
	}
	if len(obj.Document.Content) > contentMaxLength {
		return fmt.Sprintf("content length %d exceeds %d bytes", len(obj.Document.Content), contentMaxLength)
	}
	if schema != nil {
		return schema.CheckObject(obj)
	}
	return ""
}

type columnBuilder struct {
	ids      []string
	contents []string
	metadata [][]byte
	vectors  [][]float32
}

func newColumnBuilder(n int) *columnBuilder {
	return &columnBuilder{
		ids:      make([]string, 0, n),
		contents: make([]string, 0, n),
		metadata: make([][]byte, 0, n),
		vectors:  make([][]float32, 0, n),
	}
}

func (b *columnBuilder) add(obj *core.Object, meta []byte) {
	b.ids = append(b.ids, obj.ID.String())
	b.contents = append(b.contents, obj.Document.Content)
	b.metadata = append(b.metadata, meta)
	b.vectors = append(b.vectors, obj.Vector)
}

func (b *columnBuilder) len() int {
	return len(b.ids)
}

func (b *columnBuilder) columns(dim int) []entity.Column {
	return []entity.Column{
		entity.NewColumnVarChar(FieldID, b.ids),
		entity.NewColumnVarChar(FieldContent, b.contents),
		entity.NewColumnJSONBytes(FieldMetadata, b.metadata),
		entity.NewColumnFloatVector(FieldVector, dim, b.vectors),
	}
}
