package deadletter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one JSON message per failed document, keyed by the
// document identity so retries of the same document land on one partition.
type KafkaSink struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaSink creates a sink writing to topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return newKafkaSink(w, topic)
}

func newKafkaSink(w messageWriter, topic string) *KafkaSink {
	return &KafkaSink{
		writer: w,
		logger: slog.Default().With("component", "deadletter-kafka", "topic", topic),
	}
}

// Publish writes docs in a single synchronous call.
func (s *KafkaSink) Publish(ctx context.Context, docs []core.FailedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(docs))
	for _, doc := range docs {
		record := NewRecord(doc)
		value, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(record.ID),
			Value: value,
		})
	}

	if err := s.writer.WriteMessages(ctx, messages...); err != nil {
		s.logger.Error("failed to publish failed documents",
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	s.logger.Debug("failed documents published", "count", len(messages))
	return nil
}

// Close flushes pending writes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
