package source

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/ledongthuc/pdf"
)

// PDFSource reads a screenplay PDF page by page.
type PDFSource struct {
	path string
}

// NewPDFSource creates a screenplay source over the PDF at path.
func NewPDFSource(path string) *PDFSource {
	return &PDFSource{path: path}
}

// Name returns the file path.
func (s *PDFSource) Name() string { return s.path }

// StableFields returns source and id_num.
func (s *PDFSource) StableFields() []string { return []string{KeySource, KeyIDNum} }

// Documents yields scene headings, action blocks and dialogue in reading order.
func (s *PDFSource) Documents() iter.Seq2[core.Document, error] {
	return func(yield func(core.Document, error) bool) {
		f, r, err := pdf.Open(s.path)
		if err != nil {
			yield(core.Document{}, fmt.Errorf("%w: opening %s: %w", ErrMalformedSource, s.path, err))
			return
		}
		defer f.Close()

		parser := newScreenplayParser(filepath.Base(s.path), func(doc core.Document) bool {
			return yield(doc, nil)
		})

		for i := 1; i <= r.NumPage(); i++ {
			page := r.Page(i)
			if page.V.IsNull() {
				continue
			}
			lines, err := pageLines(page)
			if err != nil {
				yield(core.Document{}, fmt.Errorf("%w: page %d of %s: %w", ErrMalformedSource, i, s.path, err))
				return
			}

			parser.startPage(i)
			for _, line := range lines {
				parser.line(line)
			}
			parser.endPage()
			if parser.stopped {
				return
			}
		}
	}
}

// pageLines returns the page text as one string per visual row.
// The pdf package reports some malformed content by panicking.
func pageLines(page pdf.Page) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	lines = make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for _, text := range row.Content {
			b.WriteString(text.S)
		}
		lines = append(lines, strings.Join(strings.Fields(b.String()), " "))
	}
	return lines, nil
}
