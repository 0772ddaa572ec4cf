package ingest

import (
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Observer receives events as a run progresses. Methods may be called from
// several goroutines when more than one worker is configured.
type Observer interface {
	// BatchUploaded is called after every upload call.
	BatchUploaded(size, failed int, elapsed time.Duration)

	// DocumentsSent is called when documents are acknowledged by the backend.
	DocumentsSent(n int)

	// DocumentsFailed is called when documents reach the permanently failed state.
	DocumentsFailed(docs []core.FailedDocument)

	// RetryScheduled is called before sleeping ahead of a retry attempt.
	// size is the batch size the attempt will use.
	RetryScheduled(attempt, pending int, delay time.Duration, size int)

	// BatchSizeChanged is called when a retry round shrinks the batch size.
	BatchSizeChanged(from, to int)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) BatchUploaded(size, failed int, elapsed time.Duration)              {}
func (NopObserver) DocumentsSent(n int)                                                {}
func (NopObserver) DocumentsFailed(docs []core.FailedDocument)                         {}
func (NopObserver) RetryScheduled(attempt, pending int, delay time.Duration, size int) {}
func (NopObserver) BatchSizeChanged(from, to int)                                      {}

// observers fans events out to several observers.
type observers []Observer

func (o observers) BatchUploaded(size, failed int, elapsed time.Duration) {
	for _, obs := range o {
		obs.BatchUploaded(size, failed, elapsed)
	}
}

func (o observers) DocumentsSent(n int) {
	for _, obs := range o {
		obs.DocumentsSent(n)
	}
}

func (o observers) DocumentsFailed(docs []core.FailedDocument) {
	for _, obs := range o {
		obs.DocumentsFailed(docs)
	}
}

func (o observers) RetryScheduled(attempt, pending int, delay time.Duration, size int) {
	for _, obs := range o {
		obs.RetryScheduled(attempt, pending, delay, size)
	}
}

func (o observers) BatchSizeChanged(from, to int) {
	for _, obs := range o {
		obs.BatchSizeChanged(from, to)
	}
}
