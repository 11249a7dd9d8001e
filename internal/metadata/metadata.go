// Package metadata defines the per-file metadata model and the extractor
// contract plugins use to contribute their own fields.
package metadata

import "github.com/starford/saga/internal/parser"

// Context carries per-file information into an extractor.
type Context struct {
	FilePath string
}

// Extractor derives a value from a file's body content. Extractors are
// contributed by plugins under a unique name; the returned value is stored
// in the file's metadata under that name. An error aborts the whole
// extraction pass.
type Extractor func(content string, ctx Context) (interface{}, error)

// Metadata holds the base fields extracted from one file plus any
// plugin-contributed values keyed by extractor name.
type Metadata struct {
	Title     string           `json:"title,omitempty"`
	Author    string           `json:"author,omitempty"`
	Date      string           `json:"date,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	WordCount int              `json:"word_count"`
	Headings  []parser.Heading `json:"headings,omitempty"`
	Links     []parser.Link    `json:"links,omitempty"`

	// BodyAvailable is false for files read under the header-only streaming
	// strategy; body-derived fields above are zero and no extractors ran.
	BodyAvailable bool `json:"body_available"`

	// Extra holds plugin-contributed values keyed by extractor name.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Set stores a plugin-contributed value under the given extractor name,
// overwriting any previous value for that name.
func (m *Metadata) Set(name string, value interface{}) {
	if m.Extra == nil {
		m.Extra = make(map[string]interface{})
	}
	m.Extra[name] = value
}

// Get returns the plugin-contributed value for name, if any.
func (m *Metadata) Get(name string) (interface{}, bool) {
	v, ok := m.Extra[name]
	return v, ok
}
