// Package characters implements the character-consistency validator:
// alias-aware canonical name resolution, introduction-order checks, and
// fuzzy detection of likely misspelled names.
package characters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/saga/internal/metadata"
	"github.com/starford/saga/internal/validate"
)

// PluginName is the registry key and issue-code namespace.
const PluginName = "characters"

// ExtractorName keys this plugin's contribution in file metadata.
const ExtractorName = "characters"

// Rule codes, namespaced by the result as characters:<code>.
const (
	RuleInconsistentName   = "INCONSISTENT_NAME"
	RuleBeforeIntroduction = "BEFORE_INTRODUCTION"
)

// Config configures the character validator.
type Config struct {
	// Aliases maps a canonical character name to its known aliases.
	// Lookup is case-insensitive.
	Aliases map[string][]string
}

// character is the per-run record for one canonical name.
type character struct {
	name    string
	aliases map[string]struct{}
	// first* record the introduction; seq is the file's position in the
	// run's file list, which defines narrative order.
	firstFile string
	firstLine int
	firstSeq  int
	hasFirst  bool
	mentions  []fileMention
}

type fileMention struct {
	Mention
	file string
	seq  int
}

// Validator checks character usage across the file set. All state is
// rebuilt at the start of every Validate call; concurrent overlapping calls
// on one instance are unsupported.
type Validator struct {
	cfg Config
	// alias (lowercased) -> canonical name, built once from config.
	aliasOf map[string]string
	// canonical (lowercased) -> record, rebuilt per run.
	chars map[string]*character
}

// New creates a character-consistency validator.
func New(cfg Config) *Validator {
	aliasOf := make(map[string]string)
	for canonical, aliases := range cfg.Aliases {
		aliasOf[strings.ToLower(canonical)] = canonical
		for _, a := range aliases {
			aliasOf[strings.ToLower(a)] = canonical
		}
	}
	return &Validator{cfg: cfg, aliasOf: aliasOf}
}

// Name implements validate.Plugin.
func (v *Validator) Name() string { return PluginName }

// Initialize implements validate.Plugin.
func (v *Validator) Initialize(context.Context) error { return nil }

// Destroy implements validate.Plugin.
func (v *Validator) Destroy(context.Context) error {
	v.chars = nil
	return nil
}

// MetadataExtractors implements validate.ExtractorProvider.
func (v *Validator) MetadataExtractors() map[string]metadata.Extractor {
	return map[string]metadata.Extractor{ExtractorName: Extract}
}

// Validate runs two passes over the file set: a build pass registering
// introductions and mentions, then a per-file validation pass.
func (v *Validator) Validate(ctx context.Context, files []*validate.File) (*validate.Result, error) {
	res := validate.NewResult(PluginName)
	v.chars = make(map[string]*character)

	v.build(files)

	for seq, f := range files {
		fm := v.fileMentions(f)
		if fm == nil {
			continue
		}
		for _, m := range fm.Mentions {
			// Retrospective mentions refer to events outside the current
			// narrative moment and are exempt from every check.
			if m.Context == ContextRetrospective {
				continue
			}
			v.check(res, f, seq, m)
		}
	}
	return res, nil
}

// fileMentions returns the extraction result for f, or nil when the file
// carries none (header-only files never run the extractor).
func (v *Validator) fileMentions(f *validate.File) *FileMentions {
	if f.Meta == nil {
		return nil
	}
	raw, ok := f.Meta.Get(ExtractorName)
	if !ok {
		return nil
	}
	fm, ok := raw.(*FileMentions)
	if !ok {
		return nil
	}
	return fm
}

// build registers every introduction and mention in file-list order.
func (v *Validator) build(files []*validate.File) {
	for seq, f := range files {
		fm := v.fileMentions(f)
		if fm == nil {
			continue
		}
		for _, in := range fm.Introductions {
			c := v.ensure(v.canonical(in.Name))
			c.aliases[strings.ToLower(in.Name)] = struct{}{}
			if !c.hasFirst {
				c.firstFile = f.Rel
				c.firstLine = in.Line
				c.firstSeq = seq
				c.hasFirst = true
			}
		}
		for _, m := range fm.Mentions {
			canonical := v.canonical(m.Name)
			c, ok := v.chars[strings.ToLower(canonical)]
			if !ok {
				continue
			}
			c.mentions = append(c.mentions, fileMention{Mention: m, file: f.Rel, seq: seq})
			c.aliases[strings.ToLower(m.Name)] = struct{}{}
		}
	}
}

// check validates one non-retrospective mention.
func (v *Validator) check(res *validate.Result, f *validate.File, seq int, m Mention) {
	canonical := v.canonical(m.Name)
	c, ok := v.chars[strings.ToLower(canonical)]
	if !ok {
		// Unknown name: flag only when it closely resembles a known
		// character, otherwise it is simply not a tracked character.
		if suggestion := v.similar(m.Name); suggestion != "" {
			res.AddError(validate.Issue{
				Code: res.Code(RuleInconsistentName),
				Message: fmt.Sprintf("inconsistent character name %q, did you mean %q?",
					m.Name, suggestion),
				File: f.Rel,
				Line: m.Line,
			})
		}
		return
	}
	if !c.hasFirst || seq < c.firstSeq {
		res.AddError(validate.Issue{
			Code: res.Code(RuleBeforeIntroduction),
			Message: fmt.Sprintf("character %q mentioned before introduction (introduced in %s)",
				m.Name, introducedIn(c)),
			File: f.Rel,
			Line: m.Line,
		})
	}
}

// canonical resolves a literal spelling through the configured alias map.
func (v *Validator) canonical(name string) string {
	if c, ok := v.aliasOf[strings.ToLower(name)]; ok {
		return c
	}
	return name
}

func (v *Validator) ensure(canonical string) *character {
	key := strings.ToLower(canonical)
	c, ok := v.chars[key]
	if !ok {
		c = &character{name: canonical, aliases: make(map[string]struct{})}
		v.chars[key] = c
	}
	return c
}

// similar returns the canonical name of a known character whose name or any
// alias closely matches the given spelling: substring containment, or
// near-equal length within one edit. Empty when nothing matches.
func (v *Validator) similar(name string) string {
	lower := strings.ToLower(name)
	for _, key := range v.sortedCharKeys() {
		c := v.chars[key]
		candidates := append([]string{strings.ToLower(c.name)}, sortedKeys(c.aliases)...)
		for _, cand := range candidates {
			if cand == lower {
				continue
			}
			if strings.Contains(cand, lower) || strings.Contains(lower, cand) {
				return c.name
			}
			if withinOneEdit(lower, cand) {
				return c.name
			}
		}
	}
	return ""
}

func (v *Validator) sortedCharKeys() []string {
	keys := make([]string, 0, len(v.chars))
	for k := range v.chars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// withinOneEdit reports whether a and b differ by at most one substitution,
// insertion, or deletion.
func withinOneEdit(a, b string) bool {
	la, lb := len(a), len(b)
	switch {
	case la == lb:
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return true
	case la+1 == lb:
		a, b = b, a
		fallthrough
	case la == lb+1:
		// a is the longer string; check deletion alignment.
		i, j, skipped := 0, 0, false
		for i < len(a) && j < len(b) {
			if a[i] == b[j] {
				i++
				j++
				continue
			}
			if skipped {
				return false
			}
			skipped = true
			i++
		}
		return true
	default:
		return false
	}
}

func introducedIn(c *character) string {
	return fmt.Sprintf("%s:%d", c.firstFile, c.firstLine)
}
