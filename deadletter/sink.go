package deadletter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeffallen007/what-would-she-say/core"
)

// ErrInvalidTarget is returned by Open for a target it cannot parse.
var ErrInvalidTarget = errors.New("invalid dead letter target")

// Sink receives permanently failed documents.
type Sink interface {
	Publish(ctx context.Context, docs []core.FailedDocument) error
	Close() error
}

// Record is the serialized form of a failed document.
type Record struct {
	ID       string        `json:"id,omitempty"`
	Reason   string        `json:"reason"`
	Attempts int           `json:"attempts"`
	Content  string        `json:"content"`
	Metadata core.Metadata `json:"metadata,omitempty"`
}

// NewRecord converts a failed document. Documents rejected before an identity
// was assigned have no ID.
func NewRecord(doc core.FailedDocument) Record {
	r := Record{
		Reason:   doc.Reason,
		Attempts: doc.Attempts,
		Content:  doc.Document.Content,
		Metadata: doc.Document.Metadata,
	}
	if !doc.ID.IsZero() {
		r.ID = doc.ID.String()
	}
	return r
}

// Open returns the sink for target. A target of the form
// kafka://broker1:9092,broker2:9092/topic publishes to Kafka; anything else
// is a file path that records are appended to.
func Open(target string) (Sink, error) {
	rest, ok := strings.CutPrefix(target, "kafka://")
	if !ok {
		if target == "" {
			return nil, fmt.Errorf("%w: empty path", ErrInvalidTarget)
		}
		return NewFileSink(target)
	}

	brokers, topic, ok := strings.Cut(rest, "/")
	if !ok || brokers == "" || topic == "" {
		return nil, fmt.Errorf("%w: %s (want kafka://brokers/topic)", ErrInvalidTarget, target)
	}
	return NewKafkaSink(strings.Split(brokers, ","), topic), nil
}
