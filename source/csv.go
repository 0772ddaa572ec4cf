package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jeffallen007/what-would-she-say/core"
)

// CSVSource reads a table with a header row. Metadata columns are copied
// into metadata; the remaining columns form the content.
type CSVSource struct {
	path            string
	metadataColumns []string
}

// NewCSVSource creates a source over the CSV file at path.
func NewCSVSource(path string, metadataColumns ...string) *CSVSource {
	return &CSVSource{path: path, metadataColumns: metadataColumns}
}

// Name returns the file path.
func (s *CSVSource) Name() string { return s.path }

// StableFields returns source and row.
func (s *CSVSource) StableFields() []string { return []string{KeySource, KeyRow} }

// Documents yields one document per data row. Rows are numbered from zero.
func (s *CSVSource) Documents() iter.Seq2[core.Document, error] {
	return func(yield func(core.Document, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(core.Document{}, err)
			return
		}
		defer f.Close()

		r := csv.NewReader(f)
		r.FieldsPerRecord = -1

		header, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			yield(core.Document{}, fmt.Errorf("%w: reading header of %s: %w", ErrMalformedSource, s.path, err))
			return
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		for _, col := range s.metadataColumns {
			if !slices.Contains(header, col) {
				yield(core.Document{}, fmt.Errorf("%w: %s has no %q column", ErrMalformedSource, s.path, col))
				return
			}
		}

		name := filepath.Base(s.path)
		for row := 0; ; row++ {
			record, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(core.Document{}, fmt.Errorf("%w: %s: %w", ErrMalformedSource, s.path, err))
				return
			}
			if !yield(s.document(name, row, header, record), nil) {
				return
			}
		}
	}
}

func (s *CSVSource) document(name string, row int, header, record []string) core.Document {
	meta := core.Metadata{KeySource: name, KeyRow: row}
	var parts []string
	var single string
	for i, col := range header {
		value := ""
		if i < len(record) {
			value = strings.TrimSpace(record[i])
		}
		if slices.Contains(s.metadataColumns, col) {
			meta[col] = value
			continue
		}
		single = value
		parts = append(parts, col+": "+value)
	}

	content := single
	if len(parts) > 1 {
		content = strings.Join(parts, "\n")
	}
	return core.Document{Content: content, Metadata: meta}
}
