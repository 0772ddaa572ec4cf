package source

import (
	"testing"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSource_Dialogue(t *testing.T) {
	path := writeFile(t, "simpsons.csv", "character,dialogue\n"+
		"Homer Simpson,D'oh!\n"+
		"Marge Simpson,\"Homer, no.\"\n"+
		"Bart Simpson,\n")

	src := NewCSVSource(path, "character")
	docs := collect(t, src)
	require.Len(t, docs, 3)

	assert.Equal(t, "D'oh!", docs[0].Content)
	assert.Equal(t, core.Metadata{"source": "simpsons.csv", "row": 0, "character": "Homer Simpson"}, docs[0].Metadata)
	assert.Equal(t, "Homer, no.", docs[1].Content)
	assert.Equal(t, 1, docs[1].Metadata["row"])

	// Empty content is still yielded so it can be reported
	assert.Equal(t, "", docs[2].Content)
	assert.Equal(t, []string{"source", "row"}, src.StableFields())
}

func TestCSVSource_SeveralContentColumns(t *testing.T) {
	path := writeFile(t, "lines.csv", "character,location,dialogue\nHomer,Moe's,Beer me\n")
	docs := collect(t, NewCSVSource(path, "character"))
	require.Len(t, docs, 1)
	assert.Equal(t, "location: Moe's\ndialogue: Beer me", docs[0].Content)
}

func TestCSVSource_MissingMetadataColumn(t *testing.T) {
	path := writeFile(t, "lines.csv", "speaker,dialogue\nHomer,D'oh!\n")
	var err error
	for _, e := range NewCSVSource(path, "character").Documents() {
		err = e
	}
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestCSVSource_Malformed(t *testing.T) {
	path := writeFile(t, "bad.csv", "character,dialogue\nHomer,\"unterminated\n")
	var err error
	for _, e := range NewCSVSource(path, "character").Documents() {
		if e != nil {
			err = e
		}
	}
	assert.ErrorIs(t, err, ErrMalformedSource)
}

func TestCSVSource_Empty(t *testing.T) {
	assert.Empty(t, collect(t, NewCSVSource(writeFile(t, "empty.csv", ""), "character")))
}
