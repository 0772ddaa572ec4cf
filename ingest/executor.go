package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeffallen007/what-would-she-say/ai"
	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/storage"
)

// Uploader submits one batch and reports one outcome per document.
type Uploader interface {
	Upload(ctx context.Context, batch []*core.Object) []core.Outcome
}

// Executor uploads batches into one collection of an index.
type Executor struct {
	index      storage.Index
	collection string
	embedder   ai.Embedder
	timeout    time.Duration
	logger     *slog.Logger
}

// NewExecutor creates an executor. The embedder may be nil, in which case
// documents are sent without vectors unless they already carry one.
func NewExecutor(index storage.Index, collection string, embedder ai.Embedder, timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		index:      index,
		collection: collection,
		embedder:   embedder,
		timeout:    timeout,
		logger:     logger,
	}
}

// Upload sends batch to the index. It never returns an error: a failed call
// is reported as every document failing with the call's error as reason.
//
// The call is not interrupted by cancellation of ctx; cancellation is honored
// between batches. Only the configured timeout bounds it.
func (e *Executor) Upload(ctx context.Context, batch []*core.Object) []core.Outcome {
	ctx = context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	outcomes := make([]core.Outcome, len(batch))
	send := make([]*core.Object, 0, len(batch))
	positions := make([]int, 0, len(batch))

	embedErr := e.embed(ctx, batch)
	for i, obj := range batch {
		if embedErr != nil && len(obj.Vector) == 0 {
			outcomes[i] = core.Failed(fmt.Sprintf("embedding failed: %v", embedErr))
			continue
		}
		send = append(send, obj)
		positions = append(positions, i)
	}
	if len(send) == 0 {
		return outcomes
	}

	results, err := e.index.Upsert(ctx, e.collection, send)
	if err == nil && len(results) != len(send) {
		err = fmt.Errorf("backend returned %d outcomes for %d documents", len(results), len(send))
	}
	if err != nil {
		e.logger.Warn("upload failed", "collection", e.collection, "size", len(send), "err", err)
		reason := fmt.Sprintf("transport error: %v", err)
		for _, pos := range positions {
			outcomes[pos] = core.Failed(reason)
		}
		return outcomes
	}

	for i, pos := range positions {
		outcomes[pos] = results[i]
	}
	return outcomes
}

// embed attaches normalized vectors to objects that have none. Vectors stay
// on the objects, so a retried document is not embedded again.
func (e *Executor) embed(ctx context.Context, batch []*core.Object) error {
	if e.embedder == nil {
		return nil
	}

	var missing []*core.Object
	var texts []string
	for _, obj := range batch {
		if len(obj.Vector) == 0 {
			missing = append(missing, obj)
			texts = append(texts, obj.Document.Content)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(missing) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(missing), len(vectors))
	}
	for i, obj := range missing {
		obj.Vector = ai.NormalizeVector(vectors[i])
	}
	return nil
}
