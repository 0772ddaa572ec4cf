package wwss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/jeffallen007/what-would-she-say/ai"
	"github.com/jeffallen007/what-would-she-say/ai/openai"
	"github.com/jeffallen007/what-would-she-say/config"
	"github.com/jeffallen007/what-would-she-say/deadletter"
	"github.com/jeffallen007/what-would-she-say/identity"
	"github.com/jeffallen007/what-would-she-say/ingest"
	"github.com/jeffallen007/what-would-she-say/metrics"
	"github.com/jeffallen007/what-would-she-say/source"
	"github.com/jeffallen007/what-would-she-say/storage"
	"github.com/jeffallen007/what-would-she-say/storage/badger"
	"github.com/jeffallen007/what-would-she-say/storage/chromem"
	"github.com/jeffallen007/what-would-she-say/storage/milvus"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrExportUnsupported is returned by Export for backends that cannot list
// their contents.
var ErrExportUnsupported = errors.New("backend does not support export")

// Database bundles the vector index and the services an ingestion run uses,
// all built from one configuration.
type Database struct {
	config    *config.Config
	connector storage.Connector
	embedder  ai.Embedder
	sink      deadletter.Sink
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	connector storage.Connector
	embedder  ai.Embedder
}

// WithConnector replaces the connector the configuration would build.
func WithConnector(c storage.Connector) DatabaseOption {
	return func(o *databaseOptions) {
		o.connector = c
	}
}

// WithEmbedder replaces the embedder the configuration would build.
func WithEmbedder(e ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = e
	}
}

// NewDatabase validates cfg and builds the embedder, the index connector and
// the dead letter sink it names. Nothing is connected until a run starts.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{
		config:   cfg,
		embedder: options.embedder,
		registry: prometheus.NewRegistry(),
		logger:   slog.Default().With("component", "wwss"),
	}
	db.metrics = metrics.New(db.registry)
	db.metrics.BatchSize.Set(float64(cfg.Ingest.BatchSize))

	if db.embedder == nil && cfg.Embedding.Enabled {
		embedder, err := openai.NewEmbedder(&cfg.Embedding.Config)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		db.embedder = embedder
	}

	db.connector = options.connector
	if db.connector == nil {
		db.connector = newConnector(cfg.Backend, db.embedder)
	}

	if cfg.DeadLetter != "" {
		sink, err := deadletter.Open(cfg.DeadLetter)
		if err != nil {
			return nil, err
		}
		db.sink = sink
	}
	return db, nil
}

func newConnector(cfg config.BackendConfig, embedder ai.Embedder) storage.Connector {
	switch cfg.Type {
	case config.BackendChromem:
		return chromem.NewConnector(cfg.Path, embedder)
	case config.BackendMilvus:
		return milvus.NewConnector(milvus.Config{Address: cfg.MilvusAddress, Dimension: cfg.Dimension})
	default:
		return badger.NewConnector(cfg.Path, false)
	}
}

// Close releases the dead letter sink.
func (db *Database) Close() error {
	if db.sink == nil {
		return nil
	}
	if err := db.sink.Close(); err != nil {
		db.logger.Error("error closing dead letter sink", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the database was built from.
func (db *Database) Config() *config.Config {
	return db.config
}

// Connector returns the index connector.
func (db *Database) Connector() storage.Connector {
	return db.connector
}

// Embedder returns the embedder, or nil when embedding is disabled.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

// Metrics returns the run collectors.
func (db *Database) Metrics() *metrics.Metrics {
	return db.metrics
}

// StartMetrics serves the collectors on the configured address. It returns a
// no-op shutdown when no address is configured.
func (db *Database) StartMetrics() (func(context.Context) error, error) {
	if db.config.Metrics.Addr == "" {
		return func(context.Context) error { return nil }, nil
	}
	return metrics.StartServer(db.config.Metrics.Addr, db.registry)
}

// Connect opens an index session. The caller closes it.
func (db *Database) Connect(ctx context.Context) (storage.Index, error) {
	return db.connector.Connect(ctx)
}

// OpenSource opens the document file at path, chunking it when a token
// window is configured.
func (db *Database) OpenSource(path string) (source.Source, error) {
	src, err := source.Open(path, source.WithMetadataColumns(db.config.Source.MetadataColumns...))
	if err != nil {
		return nil, err
	}
	if db.config.Source.ChunkTokens == 0 {
		return src, nil
	}

	tokenizer, err := source.NewTiktoken(source.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}
	chunker := source.NewChunker(tokenizer, db.config.Source.ChunkTokens, db.config.Source.ChunkOverlap)
	return source.Chunked(src, chunker), nil
}

// NewAssigner returns the identity assigner for src. Configured identity
// fields take precedence over the fields the source declares, except that a
// chunked source always keeps the chunk index so chunks of one record stay
// distinct.
func (db *Database) NewAssigner(src source.Source) (*identity.Assigner, error) {
	fields := db.config.Identity.Fields
	if len(fields) == 0 {
		fields = src.StableFields()
	} else if slices.Contains(src.StableFields(), source.KeyChunk) && !slices.Contains(fields, source.KeyChunk) {
		fields = append(slices.Clone(fields), source.KeyChunk)
	}
	return identity.NewAssigner(db.config.Identity.Namespace, fields...)
}

// NewIngestionPipeline creates a pipeline for src wired to the configured
// index, embedder, dead letter sink and metrics. opts are applied last.
func (db *Database) NewIngestionPipeline(src source.Source, progress io.Writer, opts ...ingest.Option) (*ingest.Pipeline, error) {
	assigner, err := db.NewAssigner(src)
	if err != nil {
		return nil, err
	}

	base := []ingest.Option{
		ingest.WithConfig(&db.config.Ingest),
		ingest.WithEmbedder(db.embedder),
		ingest.WithObserver(db.metrics),
		ingest.WithProgress(progress),
	}
	if db.sink != nil {
		base = append(base, ingest.WithDeadLetter(db.sink))
	}
	return ingest.NewPipeline(db.connector, assigner, append(base, opts...)...)
}

// CreateCollection creates a collection, dropping an existing one first when
// recreate is set.
func (db *Database) CreateCollection(ctx context.Context, schema *storage.CollectionSchema, recreate bool) error {
	index, err := db.Connect(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	if recreate {
		exists, err := index.HasCollection(ctx, schema.Name)
		if err != nil {
			return err
		}
		if exists {
			db.logger.Info("dropping existing collection", "collection", schema.Name)
			if err := index.DeleteCollection(ctx, schema.Name); err != nil {
				return err
			}
		}
	}
	return index.CreateCollection(ctx, schema)
}

// DeleteCollection removes a collection and everything in it.
func (db *Database) DeleteCollection(ctx context.Context, name string) error {
	index, err := db.Connect(ctx)
	if err != nil {
		return err
	}
	defer index.Close()
	return index.DeleteCollection(ctx, name)
}

// Count returns the number of objects stored in a collection.
func (db *Database) Count(ctx context.Context, name string) (int, error) {
	index, err := db.Connect(ctx)
	if err != nil {
		return 0, err
	}
	defer index.Close()
	return index.Count(ctx, name)
}

// Export streams every stored object of a collection to fn.
func (db *Database) Export(ctx context.Context, name string, fn func(*storage.StoredObject) error) error {
	index, err := db.Connect(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	exporter, ok := index.(storage.Exporter)
	if !ok {
		return fmt.Errorf("%w: %s", ErrExportUnsupported, db.config.Backend.Type)
	}
	return exporter.Export(ctx, name, fn)
}
