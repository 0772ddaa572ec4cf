package source

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Metadata keys shared by the sources.
const (
	KeySource = "source"
	KeyRow    = "row"
	KeyLine   = "line"
	KeyChunk  = "chunk"
)

// Source produces a finite sequence of documents.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string

	// StableFields lists the metadata keys that identify a document across runs.
	StableFields() []string

	// Documents yields every document in order. A non-nil error ends the
	// sequence and means the source could not be read.
	Documents() iter.Seq2[core.Document, error]
}

type options struct {
	metadataColumns []string
}

// Option configures Open.
type Option func(*options)

// WithMetadataColumns sets the CSV columns copied into metadata instead of content.
func WithMetadataColumns(columns ...string) Option {
	return func(o *options) {
		o.metadataColumns = columns
	}
}

// Open returns the source for path, chosen by its extension.
// The file must exist; it is read lazily when documents are iterated.
func Open(path string, opts ...Option) (Source, error) {
	o := options{metadataColumns: []string{"character"}}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return NewTextSource(path), nil
	case ".csv":
		return NewCSVSource(path, o.metadataColumns...), nil
	case ".pdf":
		return NewPDFSource(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Slice is an in-memory source, mostly useful for tests.
type Slice struct {
	Label  string
	Fields []string
	Docs   []core.Document
}

// Name returns the label.
func (s *Slice) Name() string { return s.Label }

// StableFields returns the declared fields.
func (s *Slice) StableFields() []string { return s.Fields }

// Documents yields the documents in order.
func (s *Slice) Documents() iter.Seq2[core.Document, error] {
	return func(yield func(core.Document, error) bool) {
		for _, doc := range s.Docs {
			if !yield(doc, nil) {
				return
			}
		}
	}
}
