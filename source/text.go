package source

import (
	"bufio"
	"iter"
	"os"
	"strings"

	"github.com/jeffallen007/what-would-she-say/core"
)

// KeyVerse holds the verse reference of a text line.
const KeyVerse = "verse"

// TextSource reads a verse text. The first non-blank line is the source
// label; every later non-blank line is one document.
type TextSource struct {
	path string
}

// NewTextSource creates a source over the text file at path.
func NewTextSource(path string) *TextSource {
	return &TextSource{path: path}
}

// Name returns the file path.
func (s *TextSource) Name() string { return s.path }

// StableFields returns source and line.
func (s *TextSource) StableFields() []string { return []string{KeySource, KeyLine} }

// Documents yields one document per content line.
func (s *TextSource) Documents() iter.Seq2[core.Document, error] {
	return func(yield func(core.Document, error) bool) {
		f, err := os.Open(s.path)
		if err != nil {
			yield(core.Document{}, err)
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		label := ""
		line := 0
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if label == "" {
				label = text
				continue
			}
			line++

			verse := "Unknown"
			if ref, _, ok := strings.Cut(text, "\t"); ok {
				verse = ref
			}
			doc := core.Document{
				Content: text,
				Metadata: core.Metadata{
					KeySource: label,
					KeyVerse:  verse,
					KeyLine:   line,
				},
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(core.Document{}, err)
		}
	}
}
