package ingest

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Reporter tracks the PipelineState of a run and prints a progress line.
// Every update moves documents between counters under one lock, so a
// Snapshot taken at any time satisfies the sum invariant.
type Reporter struct {
	NopObserver

	writer         io.Writer
	reportInterval int
	lastReported   int
	state          core.PipelineState
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewReporter creates a reporter.
// writer: where to write progress output (typically os.Stderr); nil disables output
// reportInterval: report progress every N resolved documents
func NewReporter(writer io.Writer, reportInterval int) *Reporter {
	return &Reporter{
		writer:         writer,
		reportInterval: max(reportInterval, 1),
	}
}

// Start begins tracking a run of total documents, all pending.
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = time.Now()
	r.started = true
	r.lastReported = 0
	r.state = core.PipelineState{Total: total, Pending: total}
}

// RecordSent moves n documents from pending to sent.
func (r *Reporter) RecordSent(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || n <= 0 {
		return
	}
	n = min(n, r.state.Pending)
	r.state.Pending -= n
	r.state.Sent += n
	r.maybeReport()
}

// RecordFailed moves docs from pending to permanently failed.
func (r *Reporter) RecordFailed(docs []core.FailedDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || len(docs) == 0 {
		return
	}
	n := min(len(docs), r.state.Pending)
	r.state.Pending -= n
	r.state.PermanentlyFailed += n
	r.state.Failures = append(r.state.Failures, docs[:n]...)
	r.maybeReport()
}

// Interrupt records why the run stopped early. The first reason wins.
func (r *Reporter) Interrupt(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Interrupted == "" {
		r.state.Interrupted = reason
	}
}

// DocumentsSent implements Observer.
func (r *Reporter) DocumentsSent(n int) {
	r.RecordSent(n)
}

// DocumentsFailed implements Observer.
func (r *Reporter) DocumentsFailed(docs []core.FailedDocument) {
	r.RecordFailed(docs)
}

// Snapshot returns a copy of the current state.
func (r *Reporter) Snapshot() core.PipelineState {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.state
	s.Failures = append([]core.FailedDocument(nil), r.state.Failures...)
	return s
}

func (r *Reporter) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.PermanentlyFailed
}

// Finish prints the final progress line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || r.writer == nil {
		return
	}
	r.report()
	fmt.Fprintln(r.writer) // Print newline after final progress
}

// Elapsed returns the time elapsed since Start was called.
func (r *Reporter) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return 0
	}
	return time.Since(r.startTime)
}

// maybeReport prints when another interval of documents has resolved.
// Must be called with lock held.
func (r *Reporter) maybeReport() {
	resolved := r.state.Sent + r.state.PermanentlyFailed
	if resolved-r.lastReported >= r.reportInterval {
		r.report()
		r.lastReported = resolved
	}
}

// report prints the current progress. Must be called with lock held.
func (r *Reporter) report() {
	if r.writer == nil {
		return
	}
	resolved := r.state.Sent + r.state.PermanentlyFailed
	rate := float64(resolved) / time.Since(r.startTime).Seconds()

	percentage := 0.0
	if r.state.Total > 0 {
		percentage = float64(resolved) / float64(r.state.Total) * 100.0
	}

	fmt.Fprintf(r.writer, "\rProgress: %d/%d sent, %d pending, %d failed (%.1f%%) - %.1f docs/s",
		r.state.Sent, r.state.Total, r.state.Pending, r.state.PermanentlyFailed, percentage, rate)
}
