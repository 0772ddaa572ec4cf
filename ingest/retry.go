package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
)

// MaxBackoff caps a single backoff sleep.
const MaxBackoff = time.Hour

// Sleeper waits for d or until ctx is done, returning ctx.Err() in that case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result is what happened to one batch handed to the Coordinator.
type Result struct {
	// Sent is the number of documents acknowledged by the backend
	Sent int

	// Failed holds the documents that exhausted their retries
	Failed []core.FailedDocument

	// Pending holds documents left unresolved because ctx was cancelled
	Pending []*core.Object

	// Size is the batch size in effect when the coordinator finished
	Size int

	// Attempts is the number of rounds submitted
	Attempts int
}

// Coordinator resubmits failing documents with exponential backoff,
// halving the batch size from the second retry on, down to a floor.
type Coordinator struct {
	uploader   Uploader
	maxRetries int
	floor      int
	unit       time.Duration
	sleep      Sleeper
	observer   Observer
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator. A nil sleeper means Sleep; a nil
// observer ignores events.
func NewCoordinator(uploader Uploader, cfg *Config, sleep Sleeper, observer Observer, logger *slog.Logger) *Coordinator {
	if sleep == nil {
		sleep = Sleep
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		uploader:   uploader,
		maxRetries: cfg.MaxRetries,
		floor:      cfg.MinBatchSize,
		unit:       cfg.RetryDelay,
		sleep:      sleep,
		observer:   observer,
		logger:     logger,
	}
}

// Submit drives batch to a terminal state, submitting it in chunks of size.
//
// Each round uploads every pending document and collects the failures. When
// none fail, Submit returns. When the retry ceiling is reached, the failures
// become permanent with the reason from their last attempt. Otherwise it
// sleeps unit * 2^attempt, halves size (not below the floor) if this was not
// the first attempt, and goes again.
//
// Cancellation is checked between chunks and during the backoff sleep;
// whatever is unresolved at that point is returned as Pending.
func (c *Coordinator) Submit(ctx context.Context, batch []*core.Object, size int) Result {
	res := Result{Size: max(size, 1)}
	pending := batch
	reasons := make(map[core.ID]string, len(batch))

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1

		var failed []*core.Object
		for start := 0; start < len(pending); start += res.Size {
			if ctx.Err() != nil {
				res.Pending = append(failed, pending[start:]...)
				return res
			}
			chunk := pending[start:min(start+res.Size, len(pending))]

			began := time.Now()
			outcomes := c.uploader.Upload(ctx, chunk)
			if len(outcomes) != len(chunk) {
				outcomes = failAll(chunk, fmt.Sprintf("uploader returned %d outcomes for %d documents", len(outcomes), len(chunk)))
			}
			sent := 0
			for i, obj := range chunk {
				if outcomes[i].OK() {
					sent++
					continue
				}
				reasons[obj.ID] = outcomes[i].Reason
				failed = append(failed, obj)
			}
			c.observer.BatchUploaded(len(chunk), len(chunk)-sent, time.Since(began))
			if sent > 0 {
				res.Sent += sent
				c.observer.DocumentsSent(sent)
			}
		}

		pending = failed
		if len(pending) == 0 {
			return res
		}

		if attempt >= c.maxRetries {
			res.Failed = make([]core.FailedDocument, len(pending))
			for i, obj := range pending {
				res.Failed[i] = core.FailedDocument{
					ID:       obj.ID,
					Document: obj.Document,
					Reason:   reasons[obj.ID],
					Attempts: attempt + 1,
				}
			}
			c.logger.Warn("documents permanently failed",
				"count", len(pending),
				"attempts", attempt+1,
				"reason", res.Failed[0].Reason)
			c.observer.DocumentsFailed(res.Failed)
			return res
		}

		delay := backoff(c.unit, attempt)
		next := res.Size
		if attempt > 0 && next > c.floor {
			next = max(next/2, c.floor)
		}

		c.logger.Debug("retrying failed documents",
			"attempt", attempt+1,
			"pending", len(pending),
			"delay", delay,
			"batchSize", next)
		c.observer.RetryScheduled(attempt+1, len(pending), delay, next)

		if err := c.sleep(ctx, delay); err != nil {
			res.Pending = pending
			return res
		}

		if next != res.Size {
			c.observer.BatchSizeChanged(res.Size, next)
			res.Size = next
		}
	}
}

// backoff returns unit * 2^n, capped at MaxBackoff.
func backoff(unit time.Duration, n int) time.Duration {
	d := unit
	for range n {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}

func failAll(batch []*core.Object, reason string) []core.Outcome {
	outcomes := make([]core.Outcome, len(batch))
	for i := range outcomes {
		outcomes[i] = core.Failed(reason)
	}
	return outcomes
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		delay := backoff(baseDelay, attempt-1)
		if err := Sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}
