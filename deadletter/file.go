package deadletter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeffallen007/what-would-she-say/core"
)

// FileSink appends one JSON record per line to a file.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// NewFileSink opens path for appending, creating it and its directory.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter file: %w", err)
	}
	return &FileSink{
		file:   f,
		logger: slog.Default().With("component", "deadletter-file", "path", path),
	}, nil
}

// Publish writes docs and syncs the file.
func (s *FileSink) Publish(ctx context.Context, docs []core.FailedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := bufio.NewWriter(s.file)
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(NewRecord(doc)); err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing dead letter file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing dead letter file: %w", err)
	}
	s.logger.Info("failed documents written", "count", len(docs))
	return nil
}

// Close closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
