// Package discovery resolves include/exclude glob patterns into a
// deduplicated, modification-time-ordered list of document paths.
package discovery

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/saga/internal/vault"
)

// Options configure one discovery pass.
type Options struct {
	// Include patterns, slash-separated globs relative to the vault root.
	// Empty means nothing is discovered.
	Include []string
	// Exclude patterns remove matches from the include set.
	Exclude []string
}

// File is one discovered document.
type File struct {
	// Path is the absolute file path.
	Path string
	// Rel is the path relative to the vault root, slash-separated.
	Rel     string
	Size    int64
	ModTime time.Time
}

// Discover lists vault files matching the include patterns, applies the
// exclude patterns, deduplicates, and sorts newest-first by modification
// time. An empty include list yields an empty result, not an error.
func Discover(fs *vault.FS, opts Options) ([]File, error) {
	if len(opts.Include) == 0 {
		return nil, nil
	}

	metas, err := fs.List()
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	seen := make(map[string]struct{})
	var out []File
	for _, m := range metas {
		matched, err := matchesAny(opts.Include, m.Path)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		excluded, err := matchesAny(opts.Exclude, m.Path)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		// Overlapping include patterns must not duplicate a file.
		if _, dup := seen[m.AbsPath]; dup {
			continue
		}
		seen[m.AbsPath] = struct{}{}
		out = append(out, File{
			Path:    m.AbsPath,
			Rel:     m.Path,
			Size:    m.Size,
			ModTime: m.ModTime,
		})
	}

	// Newest first; ties broken by path for a stable order.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.After(out[j].ModTime)
		}
		return out[i].Rel < out[j].Rel
	})
	return out, nil
}

// matchesAny reports whether rel matches at least one pattern.
func matchesAny(patterns []string, rel string) (bool, error) {
	for _, p := range patterns {
		ok, err := match(p, rel)
		if err != nil {
			return false, fmt.Errorf("discovery: bad pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// match applies path.Match, with two conveniences over the stdlib rules:
// a leading "**/" prefix matches any number of directories (including none),
// and a bare file pattern such as "*.md" also matches files in subdirectories.
func match(pattern, rel string) (bool, error) {
	if strings.HasPrefix(pattern, "**/") {
		suffix := strings.TrimPrefix(pattern, "**/")
		for r := rel; ; {
			ok, err := path.Match(suffix, r)
			if err != nil || ok {
				return ok, err
			}
			i := strings.Index(r, "/")
			if i < 0 {
				return false, nil
			}
			r = r[i+1:]
		}
	}
	if !strings.Contains(pattern, "/") {
		return path.Match(pattern, path.Base(rel))
	}
	return path.Match(pattern, rel)
}
