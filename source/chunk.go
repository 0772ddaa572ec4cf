package source

import (
	"fmt"
	"iter"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used by OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// Tokenizer converts between text and tokens.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	tke *tiktoken.Tiktoken
}

// NewTiktoken returns a tokenizer for the named tiktoken encoding, such as
// "cl100k_base". The encoding tables are downloaded on first use.
func NewTiktoken(encoding string) (Tokenizer, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &tiktokenTokenizer{tke: tke}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.tke.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.tke.Decode(tokens)
}

// Chunker splits long texts into overlapping token windows.
type Chunker struct {
	Tokenizer Tokenizer
	Size      int
	Overlap   int
}

// NewChunker returns a chunker with windows of size tokens overlapping by
// overlap tokens. Overlap is clamped below size.
func NewChunker(tokenizer Tokenizer, size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{Tokenizer: tokenizer, Size: size, Overlap: overlap}
}

// Split returns the windows of text. Text that fits one window is returned as is.
func (c *Chunker) Split(text string) []string {
	tokens := c.Tokenizer.Encode(text)
	if len(tokens) <= c.Size {
		return []string{text}
	}

	step := c.Size - c.Overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.Size, len(tokens))
		chunks = append(chunks, c.Tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

type chunked struct {
	src     Source
	chunker *Chunker
}

// Chunked wraps src so that documents longer than one window are split.
// Every yielded document carries a "chunk" index, which joins the stable
// fields so each window has its own identity.
func Chunked(src Source, chunker *Chunker) Source {
	return &chunked{src: src, chunker: chunker}
}

func (c *chunked) Name() string { return c.src.Name() }

func (c *chunked) StableFields() []string {
	fields := c.src.StableFields()
	if len(fields) == 0 {
		return nil
	}
	return append(append([]string(nil), fields...), KeyChunk)
}

func (c *chunked) Documents() iter.Seq2[core.Document, error] {
	return func(yield func(core.Document, error) bool) {
		for doc, err := range c.src.Documents() {
			if err != nil {
				yield(core.Document{}, err)
				return
			}
			for i, text := range c.chunker.Split(doc.Content) {
				meta := doc.Metadata.Clone()
				if meta == nil {
					meta = core.Metadata{}
				}
				meta[KeyChunk] = i
				if !yield(core.Document{Content: text, Metadata: meta}, nil) {
					return
				}
			}
		}
	}
}
