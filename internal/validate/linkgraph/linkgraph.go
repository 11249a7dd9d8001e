// Package linkgraph implements the link-graph validator: broken-link
// detection, orphan detection via reachability from configured entry
// points, and bidirectional-link detection.
package linkgraph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/saga/internal/validate"
)

// PluginName is the registry key and issue-code namespace.
const PluginName = "links"

// Rule codes, namespaced by the runner as links:<code>.
const (
	RuleBrokenLink    = "BROKEN_LINK"
	RuleOrphaned      = "ORPHANED"
	RuleBidirectional = "BIDIRECTIONAL"
)

// Config configures the link-graph validator.
type Config struct {
	// EntryPoints are file base names used as traversal roots for orphan
	// detection. Empty means the default set.
	EntryPoints []string
	// CheckOrphans toggles orphan detection.
	CheckOrphans bool
	// ExternalPrefixes are protocol prefixes marking a link as external.
	// Empty means the default set.
	ExternalPrefixes []string
}

// DefaultEntryPoints are the traversal roots used when none are configured.
var DefaultEntryPoints = []string{"README.md", "index.md"}

// defaultExternalPrefixes mark links that never resolve inside the vault.
var defaultExternalPrefixes = []string{"http://", "https://", "mailto:", "ftp://"}

// linkEdge records one processed link between documents.
type linkEdge struct {
	source   string
	target   string
	linkText string
	line     int
	column   int
	valid    bool
	err      string
}

// node is one document in the graph.
type node struct {
	path     string // absolute
	rel      string
	title    string
	outgoing []*linkEdge
	incoming []*linkEdge
}

// Validator checks the document link graph. The graph is rebuilt fresh on
// every Validate call and never persisted across runs.
type Validator struct {
	cfg   Config
	nodes map[string]*node
}

// New creates a link-graph validator.
func New(cfg Config) *Validator {
	if len(cfg.EntryPoints) == 0 {
		cfg.EntryPoints = DefaultEntryPoints
	}
	if len(cfg.ExternalPrefixes) == 0 {
		cfg.ExternalPrefixes = defaultExternalPrefixes
	}
	return &Validator{cfg: cfg}
}

// Name implements validate.Plugin.
func (v *Validator) Name() string { return PluginName }

// Initialize implements validate.Plugin.
func (v *Validator) Initialize(context.Context) error { return nil }

// Destroy implements validate.Plugin.
func (v *Validator) Destroy(context.Context) error {
	v.nodes = nil
	return nil
}

// Validate builds the link graph over the full file set and reports broken
// links, orphaned documents, and bidirectional links.
func (v *Validator) Validate(ctx context.Context, files []*validate.File) (*validate.Result, error) {
	res := validate.NewResult(PluginName)
	v.nodes = make(map[string]*node, len(files))

	v.buildNodes(files)
	v.processLinks(files, res)
	if v.cfg.CheckOrphans {
		v.detectOrphans(res)
	}
	v.detectBidirectional(res)
	return res, nil
}

// buildNodes creates one graph node per file. Title falls back from header
// title through first heading to the file name.
func (v *Validator) buildNodes(files []*validate.File) {
	for _, f := range files {
		title := ""
		if f.Meta != nil {
			title = f.Meta.Title
		}
		if title == "" {
			title = filepath.Base(f.Path)
		}
		v.nodes[f.Path] = &node{path: f.Path, rel: f.Rel, title: title}
	}
}

// processLinks resolves every extracted link and records valid edges on both
// endpoints; a miss records an invalid edge and a broken-link error.
func (v *Validator) processLinks(files []*validate.File, res *validate.Result) {
	for _, f := range files {
		if f.Meta == nil {
			continue
		}
		src := v.nodes[f.Path]
		for _, link := range f.Meta.Links {
			if v.isExternal(link.Target) || isAnchorOnly(link.Target) {
				continue
			}
			resolved := resolveTarget(f.Path, link.Target)
			edge := &linkEdge{
				source:   f.Path,
				target:   resolved,
				linkText: link.Text,
				line:     link.Location.Line,
				column:   link.Location.Column,
			}
			if dst, ok := v.nodes[resolved]; ok {
				edge.valid = true
				src.outgoing = append(src.outgoing, edge)
				dst.incoming = append(dst.incoming, edge)
				continue
			}
			edge.err = fmt.Sprintf("target not found: %s", link.Target)
			src.outgoing = append(src.outgoing, edge)
			res.AddError(validate.Issue{
				Code:    res.Code(RuleBrokenLink),
				Message: fmt.Sprintf("broken link %q: %s", link.Text, link.Target),
				File:    f.Rel,
				Line:    link.Location.Line,
				Column:  link.Location.Column,
			})
		}
	}
}

// detectOrphans walks the graph breadth-first from every entry point over
// valid outgoing edges. Unreached non-entry nodes are flagged.
func (v *Validator) detectOrphans(res *validate.Result) {
	entry := make(map[string]bool, len(v.cfg.EntryPoints))
	for _, name := range v.cfg.EntryPoints {
		entry[name] = true
	}

	reached := make(map[string]bool, len(v.nodes))
	var queue []string
	for path, n := range v.nodes {
		if entry[filepath.Base(n.path)] {
			reached[path] = true
			queue = append(queue, path)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range v.nodes[cur].outgoing {
			if !e.valid || reached[e.target] {
				continue
			}
			reached[e.target] = true
			queue = append(queue, e.target)
		}
	}

	for _, path := range v.sortedPaths() {
		n := v.nodes[path]
		if reached[path] || entry[filepath.Base(n.path)] {
			continue
		}
		res.AddWarning(validate.Issue{
			Code:    res.Code(RuleOrphaned),
			Message: fmt.Sprintf("document %q is not reachable from any entry point", n.rel),
			File:    n.rel,
		})
	}
}

// detectBidirectional reports each mutually-linked pair exactly once,
// independent of iteration order.
func (v *Validator) detectBidirectional(res *validate.Result) {
	seen := make(map[string]bool)
	for _, path := range v.sortedPaths() {
		n := v.nodes[path]
		for _, e := range n.outgoing {
			if !e.valid || e.target == path {
				continue
			}
			back := false
			if dst, ok := v.nodes[e.target]; ok {
				for _, de := range dst.outgoing {
					if de.valid && de.target == path {
						back = true
						break
					}
				}
			}
			if !back {
				continue
			}
			key := pairKey(path, e.target)
			if seen[key] {
				continue
			}
			seen[key] = true
			res.AddInfo(validate.Issue{
				Code: res.Code(RuleBidirectional),
				Message: fmt.Sprintf("documents %q and %q link to each other",
					n.rel, v.nodes[e.target].rel),
				File: n.rel,
			})
		}
	}
}

func (v *Validator) sortedPaths() []string {
	paths := make([]string, 0, len(v.nodes))
	for p := range v.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (v *Validator) isExternal(target string) bool {
	for _, prefix := range v.cfg.ExternalPrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

func isAnchorOnly(target string) bool {
	return strings.HasPrefix(target, "#")
}

// resolveTarget resolves a link target against the source file's directory.
// Absolute targets pass through unchanged; an anchor suffix is stripped.
func resolveTarget(sourcePath, target string) string {
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(sourcePath), target))
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
