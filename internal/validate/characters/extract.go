package characters

import (
	"regexp"
	"strings"

	"github.com/starford/saga/internal/metadata"
)

// Mention contexts.
const (
	ContextCurrent       = "current"
	ContextRetrospective = "retrospective"
	ContextDialogue      = "dialogue"
)

// Mention is one occurrence of a character name in a file body.
type Mention struct {
	Name    string `json:"name"`
	Line    int    `json:"line"`
	Context string `json:"context"`
}

// FileMentions is the value the extractor contributes to a file's metadata
// under ExtractorName.
type FileMentions struct {
	Introductions []Mention `json:"introductions"`
	Mentions      []Mention `json:"mentions"`
}

var (
	// A capitalized name (optionally two words) followed by an entrance
	// verb at line start marks an introduction.
	introRe = regexp.MustCompile(`^\s*([A-Z][a-z]+(?: [A-Z][a-z]+)?) (?:walked|entered|appeared|stood)\b`)
	// Names following recollection phrases are retrospective mentions.
	retroRe = regexp.MustCompile(`(?i:remember(?:ed)?(?: when)? |thinking about |recalled )([A-Z][a-z]+(?: [A-Z][a-z]+)?)`)
	// Any other capitalized name or name pair is a general mention.
	nameRe  = regexp.MustCompile(`[A-Z][a-z]+(?: [A-Z][a-z]+)?`)
	quoteRe = regexp.MustCompile(`"[^"]*"`)
)

// stoplist holds common capitalized words that are not character names:
// weekdays, months, and structural/sentence-initial words.
var stoplist = map[string]struct{}{
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {},
	"Friday": {}, "Saturday": {}, "Sunday": {},
	"January": {}, "February": {}, "March": {}, "April": {}, "May": {},
	"June": {}, "July": {}, "August": {}, "September": {}, "October": {},
	"November": {}, "December": {},
	"The": {}, "A": {}, "An": {}, "This": {}, "That": {}, "These": {},
	"Those": {}, "It": {}, "He": {}, "She": {}, "They": {}, "We": {},
	"You": {}, "His": {}, "Her": {}, "Their": {}, "Its": {}, "Our": {},
	"But": {}, "And": {}, "Or": {}, "If": {}, "When": {}, "Then": {},
	"There": {}, "Here": {}, "Now": {}, "After": {}, "Before": {},
	"On": {}, "In": {}, "At": {}, "As": {}, "By": {}, "To": {}, "Of": {},
	"For": {}, "From": {}, "With": {}, "Into": {}, "Over": {}, "Under": {},
	"While": {}, "Though": {}, "Although": {}, "However": {}, "Perhaps": {},
	"Yes": {}, "No": {}, "Not": {}, "So": {}, "Once": {}, "Every": {},
	"Some": {}, "Any": {}, "All": {}, "Each": {}, "Both": {},
	"Chapter": {}, "Part": {}, "Prologue": {}, "Epilogue": {},
}

// Extract scans body line by line for character introductions and mentions.
// It is registered as a metadata extractor so the scan runs once per file in
// the shared extraction pass.
func Extract(body string, _ metadata.Context) (interface{}, error) {
	out := &FileMentions{}
	for i, line := range strings.Split(body, "\n") {
		lineNo := i + 1
		matched := newSpanSet()

		if m := introRe.FindStringSubmatchIndex(line); m != nil {
			name := line[m[2]:m[3]]
			if !stoplisted(name) {
				matched.add(m[0], m[1])
				out.Introductions = append(out.Introductions, Mention{
					Name: name, Line: lineNo, Context: ContextCurrent,
				})
				out.Mentions = append(out.Mentions, Mention{
					Name: name, Line: lineNo, Context: ContextCurrent,
				})
			}
		}

		for _, m := range retroRe.FindAllStringSubmatchIndex(line, -1) {
			name := line[m[2]:m[3]]
			if stoplisted(name) || matched.overlaps(m[2], m[3]) {
				continue
			}
			// Claim the whole phrase so the leading "Remember"/"Recalled"
			// is not picked up again as a general mention.
			matched.add(m[0], m[1])
			out.Mentions = append(out.Mentions, Mention{
				Name: name, Line: lineNo, Context: ContextRetrospective,
			})
		}

		quoted := quoteRe.FindAllStringIndex(line, -1)
		for _, m := range nameRe.FindAllStringIndex(line, -1) {
			start, end := m[0], m[1]
			name := line[start:end]
			if i := strings.Index(name, " "); i >= 0 && stoplisted(name) {
				// "On Monday" style pair: the second word may still be
				// a name on its own.
				start += i + 1
				name = line[start:end]
			}
			if stoplisted(name) || matched.overlaps(start, end) {
				continue
			}
			matched.add(start, end)
			ctx := ContextCurrent
			if inSpans(quoted, start) {
				ctx = ContextDialogue
			}
			out.Mentions = append(out.Mentions, Mention{
				Name: name, Line: lineNo, Context: ctx,
			})
		}
	}
	return out, nil
}

// stoplisted rejects names whose first word is a common capitalized word.
func stoplisted(name string) bool {
	first := name
	if i := strings.Index(name, " "); i >= 0 {
		first = name[:i]
	}
	_, ok := stoplist[first]
	return ok
}

// spanSet tracks matched [start,end) ranges within one line so a name is
// claimed by at most one pattern.
type spanSet struct{ spans [][2]int }

func newSpanSet() *spanSet { return &spanSet{} }

func (s *spanSet) add(start, end int) {
	s.spans = append(s.spans, [2]int{start, end})
}

func (s *spanSet) overlaps(start, end int) bool {
	for _, sp := range s.spans {
		if start < sp[1] && end > sp[0] {
			return true
		}
	}
	return false
}

func inSpans(spans [][]int, pos int) bool {
	for _, sp := range spans {
		if pos >= sp[0] && pos < sp[1] {
			return true
		}
	}
	return false
}
