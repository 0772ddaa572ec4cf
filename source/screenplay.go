package source

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jeffallen007/what-would-she-say/core"
)

// Screenplay metadata keys and block types.
const (
	KeyIDNum      = "id_num"
	KeyPageNumber = "page_number"
	KeyType       = "type"
	KeyCharacter  = "character"
	KeyVoiceOver  = "voice_over"

	TypeDialogue     = "dialogue"
	TypeAction       = "action"
	TypeSceneHeading = "scene_heading"

	noCharacter = "none"
)

var (
	sceneHeadingPattern = regexp.MustCompile(`(?i)^(INT\.|EXT\.|EST\.)(.*)`)
	characterPattern    = regexp.MustCompile(`^([A-Z][A-Z0-9 \-\.]+?)(?:\s*\((V\.O\.|O\.S\.)\))?$`)
)

// screenplayParser turns screenplay lines into documents. Dialogue and action
// lines are buffered and emitted as one block when a heading, a character cue
// or the end of a page interrupts them.
type screenplayParser struct {
	name  string
	page  int
	idNum int
	emit  func(core.Document) bool

	character string
	voiceOver bool
	dialogue  []string
	action    []string
	stopped   bool
}

func newScreenplayParser(name string, emit func(core.Document) bool) *screenplayParser {
	return &screenplayParser{name: name, idNum: 1, emit: emit}
}

// line feeds one raw line from the current page.
func (p *screenplayParser) line(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || p.stopped {
		return
	}

	switch {
	case sceneHeadingPattern.MatchString(line):
		p.flushDialogue()
		p.flushAction()
		p.add(TypeSceneHeading, strings.ToLower(line), noCharacter, false)
	case characterPattern.MatchString(line):
		p.flushDialogue()
		p.flushAction()
		m := characterPattern.FindStringSubmatch(line)
		p.character = titleCase(m[1])
		p.voiceOver = m[2] != ""
	case p.character != "":
		p.dialogue = append(p.dialogue, line)
	default:
		p.flushDialogue()
		p.action = append(p.action, line)
	}
}

// startPage begins a new page, flushing whatever the previous one left open.
func (p *screenplayParser) startPage(page int) {
	p.endPage()
	p.page = page
}

// endPage flushes both buffers.
func (p *screenplayParser) endPage() {
	p.flushDialogue()
	p.flushAction()
}

func (p *screenplayParser) flushDialogue() {
	if p.character != "" && len(p.dialogue) > 0 {
		if content := strings.TrimSpace(strings.Join(p.dialogue, " ")); content != "" {
			p.add(TypeDialogue, content, p.character, p.voiceOver)
		}
	}
	p.dialogue = p.dialogue[:0]
	p.character = ""
	p.voiceOver = false
}

func (p *screenplayParser) flushAction() {
	if len(p.action) > 0 {
		if content := strings.TrimSpace(strings.Join(p.action, " ")); content != "" {
			p.add(TypeAction, content, noCharacter, false)
		}
	}
	p.action = p.action[:0]
}

func (p *screenplayParser) add(kind, content, character string, voiceOver bool) {
	if p.stopped {
		return
	}
	doc := core.Document{
		Content: content,
		Metadata: core.Metadata{
			KeySource:     p.name,
			KeyIDNum:      p.idNum,
			KeyPageNumber: p.page,
			KeyType:       kind,
			KeyCharacter:  character,
			KeyVoiceOver:  voiceOver,
		},
	}
	p.idNum++
	if !p.emit(doc) {
		p.stopped = true
	}
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
// "MR. BURNS" becomes "Mr. Burns".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
