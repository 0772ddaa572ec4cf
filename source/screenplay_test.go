package source

import (
	"testing"

	"github.com/jeffallen007/what-would-she-say/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePages(pages ...[]string) []core.Document {
	var docs []core.Document
	p := newScreenplayParser("movie.pdf", func(doc core.Document) bool {
		docs = append(docs, doc)
		return true
	})
	for i, lines := range pages {
		p.startPage(i + 1)
		for _, l := range lines {
			p.line(l)
		}
		p.endPage()
	}
	return docs
}

func TestScreenplayParser(t *testing.T) {
	docs := parsePages(
		[]string{
			"INT. SIMPSON HOUSE - NIGHT",
			"The family sits on the couch.",
			"The TV flickers.",
			"HOMER",
			"Woo hoo!",
			"Let's go.",
			"MR. BURNS (V.O.)",
			"Excellent.",
		},
		[]string{
			"ext. springfield - day",
			"",
			"MARGE",
			"Homer...",
		},
	)
	require.Len(t, docs, 6)

	assert.Equal(t, "int. simpson house - night", docs[0].Content)
	assert.Equal(t, TypeSceneHeading, docs[0].Metadata[KeyType])
	assert.Equal(t, 1, docs[0].Metadata[KeyIDNum])

	assert.Equal(t, "The family sits on the couch. The TV flickers.", docs[1].Content)
	assert.Equal(t, TypeAction, docs[1].Metadata[KeyType])
	assert.Equal(t, "none", docs[1].Metadata[KeyCharacter])

	assert.Equal(t, "Woo hoo! Let's go.", docs[2].Content)
	assert.Equal(t, core.Metadata{
		KeySource:     "movie.pdf",
		KeyIDNum:      3,
		KeyPageNumber: 1,
		KeyType:       TypeDialogue,
		KeyCharacter:  "Homer",
		KeyVoiceOver:  false,
	}, docs[2].Metadata)

	assert.Equal(t, "Excellent.", docs[3].Content)
	assert.Equal(t, "Mr. Burns", docs[3].Metadata[KeyCharacter])
	assert.Equal(t, true, docs[3].Metadata[KeyVoiceOver])

	assert.Equal(t, "ext. springfield - day", docs[4].Content)
	assert.Equal(t, 2, docs[4].Metadata[KeyPageNumber])

	assert.Equal(t, "Homer...", docs[5].Content)
	assert.Equal(t, "Marge", docs[5].Metadata[KeyCharacter])
	assert.Equal(t, 6, docs[5].Metadata[KeyIDNum])
}

func TestScreenplayParser_CueWithoutDialogue(t *testing.T) {
	docs := parsePages([]string{"HOMER", "BART", "Eat my shorts."})
	require.Len(t, docs, 1)
	assert.Equal(t, "Bart", docs[0].Metadata[KeyCharacter])
}

func TestScreenplayParser_PageEndFlushesDialogue(t *testing.T) {
	docs := parsePages([]string{"HOMER", "Mmm..."}, []string{"donuts."})
	require.Len(t, docs, 2)
	assert.Equal(t, TypeDialogue, docs[0].Metadata[KeyType])
	assert.Equal(t, TypeAction, docs[1].Metadata[KeyType])
	assert.Equal(t, "donuts.", docs[1].Content)
}

func TestScreenplayParser_StopsWhenConsumerStops(t *testing.T) {
	var docs []core.Document
	p := newScreenplayParser("movie.pdf", func(doc core.Document) bool {
		docs = append(docs, doc)
		return false
	})
	p.startPage(1)
	p.line("INT. KITCHEN")
	p.line("EXT. YARD")
	p.endPage()
	assert.Len(t, docs, 1)
	assert.True(t, p.stopped)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Mr. Burns", titleCase("MR. BURNS"))
	assert.Equal(t, "Bumblebee-Man", titleCase("BUMBLEBEE-MAN"))
	assert.Equal(t, "Itchy 2", titleCase("ITCHY 2"))
}

func TestPDFSource_NotAPDF(t *testing.T) {
	src := NewPDFSource(writeFile(t, "script.pdf", "not a pdf"))
	var err error
	for _, e := range src.Documents() {
		err = e
	}
	assert.ErrorIs(t, err, ErrMalformedSource)
	assert.Equal(t, []string{"source", "id_num"}, src.StableFields())
}
