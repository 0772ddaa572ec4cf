// Package metrics defines the Prometheus collectors of an ingestion run and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/jeffallen007/what-would-she-say/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wwss"

// Metrics holds the collectors and records pipeline events into them.
type Metrics struct {
	ingest.NopObserver

	BatchesUploaded  *prometheus.CounterVec
	UploadDuration   prometheus.Histogram
	SentTotal        prometheus.Counter
	FailedTotal      prometheus.Counter
	RetriesScheduled prometheus.Counter
	BatchSize        prometheus.Gauge
}

var _ ingest.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesUploaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_uploaded_total",
				Help:      "Upload calls by result (ok, partial, failed).",
			},
			[]string{"result"},
		),
		UploadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Latency of a single upload call in seconds.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		SentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_sent_total",
				Help:      "Documents acknowledged by the vector index.",
			},
		),
		FailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_failed_total",
				Help:      "Documents that permanently failed.",
			},
		),
		RetriesScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_scheduled_total",
				Help:      "Retry rounds scheduled after a failed upload.",
			},
		),
		BatchSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "batch_size",
				Help:      "Batch size currently in effect.",
			},
		),
	}

	reg.MustRegister(
		m.BatchesUploaded,
		m.UploadDuration,
		m.SentTotal,
		m.FailedTotal,
		m.RetriesScheduled,
		m.BatchSize,
	)

	return m
}

// BatchUploaded implements ingest.Observer.
func (m *Metrics) BatchUploaded(size, failed int, elapsed time.Duration) {
	result := "ok"
	switch {
	case failed == size:
		result = "failed"
	case failed > 0:
		result = "partial"
	}
	m.BatchesUploaded.WithLabelValues(result).Inc()
	m.UploadDuration.Observe(elapsed.Seconds())
}

// DocumentsSent implements ingest.Observer.
func (m *Metrics) DocumentsSent(n int) {
	m.SentTotal.Add(float64(n))
}

// DocumentsFailed implements ingest.Observer.
func (m *Metrics) DocumentsFailed(docs []core.FailedDocument) {
	m.FailedTotal.Add(float64(len(docs)))
}

// RetryScheduled implements ingest.Observer.
func (m *Metrics) RetryScheduled(attempt, pending int, delay time.Duration, size int) {
	m.RetriesScheduled.Inc()
}

// BatchSizeChanged implements ingest.Observer.
func (m *Metrics) BatchSizeChanged(from, to int) {
	m.BatchSize.Set(float64(to))
}

// Handler returns the scrape handler for the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
