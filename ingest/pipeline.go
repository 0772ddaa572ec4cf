package ingest

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/jeffallen007/what-would-she-say/ai"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
	"github.com/panjf2000/ants/v2"
)

// Source produces the documents of a run. It is iterated twice: once to
// count the documents and once to upload them.
type Source interface {
	Name() string
	Documents() iter.Seq2[core.Document, error]
}

// Assigner derives the identity of a document.
type Assigner interface {
	Assign(doc core.Document) (core.ID, error)
}

// DeadLetter receives the permanently failed documents of a run.
type DeadLetter interface {
	Publish(ctx context.Context, docs []core.FailedDocument) error
}

// Pipeline runs ingestion of document sources into collections.
type Pipeline struct {
	connector  storage.Connector
	assigner   Assigner
	config     *Config
	embedder   ai.Embedder
	observers  observers
	deadLetter DeadLetter
	progress   io.Writer
	sleep      Sleeper
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig sets the tuning parameters.
// Default is DefaultConfig().
func WithConfig(cfg *Config) Option {
	return func(p *Pipeline) error {
		if cfg == nil {
			cfg = DefaultConfig()
		}
		p.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithEmbedder computes vectors for documents that arrive without one.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(p *Pipeline) error {
		p.embedder = embedder
		return nil
	}
}

// WithObserver adds an observer of run events.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) error {
		if observer != nil {
			p.observers = append(p.observers, observer)
		}
		return nil
	}
}

// WithDeadLetter publishes permanently failed documents at the end of a run.
func WithDeadLetter(dl DeadLetter) Option {
	return func(p *Pipeline) error {
		p.deadLetter = dl
		return nil
	}
}

// WithProgress sets where the progress line is written (typically os.Stderr).
// Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithSleeper replaces the backoff sleep between retries.
func WithSleeper(sleep Sleeper) Option {
	return func(p *Pipeline) error {
		if sleep == nil {
			sleep = Sleep
		}
		p.sleep = sleep
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(connector storage.Connector, assigner Assigner, opts ...Option) (*Pipeline, error) {
	if connector == nil {
		return nil, ErrConnectorRequired
	}
	if assigner == nil {
		return nil, ErrAssignerRequired
	}

	p := &Pipeline{
		connector: connector,
		assigner:  assigner,
		config:    DefaultConfig(),
		sleep:     Sleep,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Run uploads every document of src into collection and returns the final state.
//
// It fails before uploading anything when src cannot be read, the index
// cannot be reached or the collection does not exist; the state is nil then.
// Every other problem is recorded per document in the returned state.
// Cancelling ctx stops the run between batches with the unsent documents
// left pending.
func (p *Pipeline) Run(ctx context.Context, src Source, collection string) (*core.PipelineState, error) {
	total, err := p.count(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, src.Name(), err)
	}

	index, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := index.Close(); err != nil {
			p.logger.Error("failed to close index", "err", err)
		}
	}()

	exists, err := index.HasCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: checking collection %s: %w", ErrConnectFailed, collection, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	var pool *ants.Pool
	if p.config.Workers > 1 {
		pool, err = ants.NewPool(p.config.Workers)
		if err != nil {
			return nil, err
		}
		defer pool.Release()
	}

	reporter := NewReporter(p.progress, p.config.ReportInterval)
	reporter.Start(total)
	events := append(observers{reporter}, p.observers...)

	executor := NewExecutor(index, collection, p.embedder, p.config.UploadTimeout, p.logger)
	coordinator := NewCoordinator(executor, p.config, p.sleep, events, p.logger)

	var readErr error
	builder := NewBuilder(p.objects(src, events, &readErr), p.config.BatchSize)
	defer builder.Close()

	p.logger.Info("starting ingestion",
		"source", src.Name(),
		"collection", collection,
		"documents", total,
		"batchSize", p.config.BatchSize,
		"workers", p.config.Workers)

	submit := func(batch []*core.Object) {
		res := coordinator.Submit(ctx, batch, builder.Size())
		builder.Shrink(res.Size)
	}

	var wg sync.WaitGroup
	for {
		if err := ctx.Err(); err != nil {
			reporter.Interrupt("cancelled: " + context.Cause(ctx).Error())
			break
		}
		if p.budgetExceeded(reporter) {
			reporter.Interrupt(fmt.Sprintf("more than %d documents permanently failed", p.config.MaxFailures))
			break
		}

		batch, ok := builder.Next()
		if !ok {
			break
		}
		if pool == nil {
			submit(batch)
			continue
		}

		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			submit(batch)
		}); err != nil {
			wg.Done()
			submit(batch)
		}
	}
	wg.Wait()
	builder.Close()

	if readErr != nil {
		reporter.Interrupt("source read error: " + readErr.Error())
	}

	reporter.Finish()
	state := reporter.Snapshot()
	p.publish(ctx, state.Failures)

	p.logger.Info("ingestion finished",
		"collection", collection,
		"total", state.Total,
		"sent", state.Sent,
		"pending", state.Pending,
		"failed", state.PermanentlyFailed,
		"elapsed", reporter.Elapsed().Round(time.Millisecond))

	if readErr != nil {
		return &state, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, src.Name(), readErr)
	}
	return &state, nil
}

// count iterates src once, failing on the first read error.
func (p *Pipeline) count(src Source) (int, error) {
	n := 0
	for _, err := range src.Documents() {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// connect opens the index session, retrying with backoff.
func (p *Pipeline) connect(ctx context.Context) (storage.Index, error) {
	var index storage.Index
	err := RetryWithBackoff(ctx, func() error {
		var err error
		index, err = p.connector.Connect(ctx)
		return err
	}, p.config.ConnectAttempts, p.config.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return index, nil
}

// objects turns the documents of src into objects. Documents that fail
// validation or have no identity are reported as permanently failed with
// zero attempts. A read error ends the sequence and is stored in readErr.
func (p *Pipeline) objects(src Source, events Observer, readErr *error) iter.Seq[*core.Object] {
	return func(yield func(*core.Object) bool) {
		for doc, err := range src.Documents() {
			if err != nil {
				*readErr = err
				return
			}

			obj, err := p.prepare(doc)
			if err != nil {
				p.logger.Debug("document rejected before upload", "err", err)
				events.DocumentsFailed([]core.FailedDocument{{
					Document: doc,
					Reason:   err.Error(),
				}})
				continue
			}
			if !yield(obj) {
				return
			}
		}
	}
}

func (p *Pipeline) prepare(doc core.Document) (*core.Object, error) {
	if err := core.ValidateDocument(&doc); err != nil {
		return nil, err
	}
	id, err := p.assigner.Assign(doc)
	if err != nil {
		return nil, err
	}
	return core.NewObject(id, doc), nil
}

func (p *Pipeline) budgetExceeded(r *Reporter) bool {
	if p.config.MaxFailures == 0 {
		return false
	}
	return r.failedCount() > p.config.MaxFailures
}

func (p *Pipeline) publish(ctx context.Context, failures []core.FailedDocument) {
	if p.deadLetter == nil || len(failures) == 0 {
		return
	}
	if err := p.deadLetter.Publish(context.WithoutCancel(ctx), failures); err != nil {
		p.logger.Error("failed to publish failed documents", "count", len(failures), "err", err)
	}
}
