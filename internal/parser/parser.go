// Package parser extracts frontmatter, headings, and inline links from
// Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	inlineLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	wordRe       = regexp.MustCompile(`\S+`)
)

// Location is a position within a document body.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// Heading is one #-prefixed heading with its level (1-6) and position.
type Heading struct {
	Level    int      `json:"level"`
	Text     string   `json:"text"`
	Location Location `json:"location"`
}

// Link is one inline [text](target) link with its position.
type Link struct {
	Text     string   `json:"text"`
	Target   string   `json:"target"`
	Location Location `json:"location"`
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Author      string
	Date        string
	Tags        []string
	WordCount   int
	Headings    []Heading
	Links       []Link
}

// Parse extracts frontmatter and body-derived fields from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := SplitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	r := &Result{
		Frontmatter: fm,
		Body:        body,
		Author:      fmString(fm, "author"),
		Date:        fmString(fm, "date"),
		Tags:        fmTags(fm),
		WordCount:   WordCount(body),
		Headings:    ExtractHeadings(body),
		Links:       ExtractLinks(body),
	}
	r.Title = deriveTitle(fm, r.Headings)
	return r, nil
}

// SplitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func SplitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	fm, err := ParseHeader(yamlBlock)
	if err != nil {
		// Invalid YAML: fall back to body-only.
		return nil, string(data), nil
	}
	return fm, body, nil
}

// ParseHeader unmarshals a raw YAML frontmatter block.
func ParseHeader(block []byte) (map[string]interface{}, error) {
	var fm map[string]interface{}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, err
	}
	return fm, nil
}

// WordCount counts whitespace-separated tokens in body.
func WordCount(body string) int {
	return len(wordRe.FindAllStringIndex(body, -1))
}

// ExtractHeadings returns every #-prefixed heading with line/column/offset.
// Column is 1-based and points at the first # of the marker.
func ExtractHeadings(body string) []Heading {
	var out []Heading
	offset := 0
	for i, line := range strings.Split(body, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			out = append(out, Heading{
				Level: len(m[1]),
				Text:  m[2],
				Location: Location{
					Line:   i + 1,
					Column: 1,
					Offset: offset,
				},
			})
		}
		offset += len(line) + 1
	}
	return out
}

// ExtractLinks returns every inline [text](target) link with its position.
// Column is 1-based and points at the opening bracket.
func ExtractLinks(body string) []Link {
	var out []Link
	offset := 0
	for i, line := range strings.Split(body, "\n") {
		for _, m := range inlineLinkRe.FindAllStringSubmatchIndex(line, -1) {
			out = append(out, Link{
				Text:   line[m[2]:m[3]],
				Target: line[m[4]:m[5]],
				Location: Location{
					Line:   i + 1,
					Column: m[0] + 1,
					Offset: offset + m[0],
				},
			})
		}
		offset += len(line) + 1
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, headings []Heading) string {
	if t := fmString(fm, "title"); t != "" {
		return t
	}
	if len(headings) > 0 {
		return headings[0].Text
	}
	return ""
}

func fmString(fm map[string]interface{}, key string) string {
	if fm == nil {
		return ""
	}
	if v, ok := fm[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// fmTags collects string entries from the frontmatter "tags" field.
func fmTags(fm map[string]interface{}) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
