// Package reader reads vault documents, separating frontmatter from body.
// Files over a size threshold are scanned with a streaming pass that stops
// at the closing frontmatter delimiter and yields header data only.
package reader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/metadata"
	"github.com/starford/saga/internal/parser"
	"github.com/starford/saga/internal/vault"
)

// DefaultSizeThreshold is the largest file size read whole into memory.
const DefaultSizeThreshold = 100 * 1024

// maxHeaderLine caps the streaming scanner's line buffer. Lines beyond it
// cannot be YAML frontmatter and end the header scan.
const maxHeaderLine = 1024 * 1024

// FileData is the result of reading one file.
type FileData struct {
	// Path is the vault-relative path, slash-separated.
	Path    string
	Size    int64
	ModTime time.Time
	// Header holds the parsed frontmatter fields, nil when absent.
	Header map[string]interface{}
	// HasBody is true only under the whole-file strategy.
	HasBody bool

	parsed *parser.Result
}

// Body returns the file body, or apperr.ErrBodyUnavailable when the file was
// read under the header-only streaming strategy.
func (f *FileData) Body() (string, error) {
	if !f.HasBody {
		return "", fmt.Errorf("reader: %s: %w", f.Path, apperr.ErrBodyUnavailable)
	}
	return f.parsed.Body, nil
}

// Config configures a Reader.
type Config struct {
	// SizeThreshold is the largest file size read whole; zero means
	// DefaultSizeThreshold.
	SizeThreshold int64
	// DisableCache turns off per-path result caching.
	DisableCache bool
}

// Reader reads vault files and extracts metadata, caching results per path.
// Safe for use from a single goroutine per run; the caches are guarded for
// callers that share one Reader across runs.
type Reader struct {
	fs  *vault.FS
	cfg Config

	mu    sync.Mutex
	files map[string]*FileData
	meta  map[string]*metadata.Metadata
}

// New creates a Reader over the given vault.
func New(fs *vault.FS, cfg Config) *Reader {
	if cfg.SizeThreshold <= 0 {
		cfg.SizeThreshold = DefaultSizeThreshold
	}
	return &Reader{
		fs:    fs,
		cfg:   cfg,
		files: make(map[string]*FileData),
		meta:  make(map[string]*metadata.Metadata),
	}
}

// ReadFile reads the vault file at rel, choosing the whole-file or streaming
// strategy by comparing its size to the configured threshold.
func (r *Reader) ReadFile(rel string) (*FileData, error) {
	if !r.cfg.DisableCache {
		r.mu.Lock()
		cached, ok := r.files[rel]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	info, err := r.fs.Stat(rel)
	if err != nil {
		return nil, err
	}

	fd := &FileData{
		Path:    info.Path,
		Size:    info.Size,
		ModTime: info.ModTime,
	}

	if info.Size <= r.cfg.SizeThreshold {
		data, err := r.fs.Read(rel)
		if err != nil {
			return nil, err
		}
		res, err := parser.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("reader: parse %s: %w", rel, err)
		}
		fd.Header = res.Frontmatter
		fd.parsed = res
		fd.HasBody = true
	} else {
		header, err := streamHeader(info.AbsPath)
		if err != nil {
			return nil, err
		}
		fd.Header = header
	}

	if !r.cfg.DisableCache {
		r.mu.Lock()
		r.files[rel] = fd
		r.mu.Unlock()
	}
	return fd, nil
}

// ExtractMetadata reads the file and returns its base metadata merged with
// the output of every supplied extractor. For header-only files the
// body-derived base fields are zero, BodyAvailable is false, and extractors
// are not run. An extractor error aborts the pass and propagates.
func (r *Reader) ExtractMetadata(rel string, extractors map[string]metadata.Extractor) (*metadata.Metadata, error) {
	if !r.cfg.DisableCache {
		r.mu.Lock()
		cached, ok := r.meta[rel]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	fd, err := r.ReadFile(rel)
	if err != nil {
		return nil, err
	}

	var m *metadata.Metadata
	if fd.HasBody {
		p := fd.parsed
		m = &metadata.Metadata{
			Title:         p.Title,
			Author:        p.Author,
			Date:          p.Date,
			Tags:          p.Tags,
			WordCount:     p.WordCount,
			Headings:      p.Headings,
			Links:         p.Links,
			BodyAvailable: true,
		}
		for _, name := range sortedNames(extractors) {
			v, err := extractors[name](p.Body, metadata.Context{FilePath: rel})
			if err != nil {
				return nil, fmt.Errorf("reader: extractor %q on %s: %w", name, rel, err)
			}
			m.Set(name, v)
		}
	} else {
		// Header-derived fields only; body extraction on a large file is a
		// reportable failure via FileData.Body, never silently wrong data.
		m = &metadata.Metadata{
			Title:  headerString(fd.Header, "title"),
			Author: headerString(fd.Header, "author"),
			Date:   headerString(fd.Header, "date"),
			Tags:   headerTags(fd.Header),
		}
	}

	if !r.cfg.DisableCache {
		r.mu.Lock()
		r.meta[rel] = m
		r.mu.Unlock()
	}
	return m, nil
}

// ClearCache drops all cached file and metadata entries.
func (r *Reader) ClearCache() {
	r.mu.Lock()
	r.files = make(map[string]*FileData)
	r.meta = make(map[string]*metadata.Metadata)
	r.mu.Unlock()
}

// streamHeader scans path line by line and stops as soon as the closing
// frontmatter delimiter is found. Files without frontmatter yield nil.
func streamHeader(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxHeaderLine)
	if !sc.Scan() {
		return nil, scanErr(path, sc)
	}
	if sc.Text() != "---" {
		return nil, nil
	}

	var block bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		if line == "---" {
			header, err := parser.ParseHeader(block.Bytes())
			if err != nil {
				// Invalid YAML header: same fallback as the whole-file path.
				return nil, nil
			}
			return header, nil
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	if err := scanErr(path, sc); err != nil {
		return nil, err
	}
	// No closing delimiter found.
	return nil, nil
}

// scanErr wraps a scanner failure. A line past the buffer cap is not
// frontmatter, so ErrTooLong ends the scan instead of failing the read.
func scanErr(path string, sc *bufio.Scanner) error {
	err := sc.Err()
	if err == nil || errors.Is(err, bufio.ErrTooLong) {
		return nil
	}
	return fmt.Errorf("reader: scan %s: %w", path, err)
}

func sortedNames(extractors map[string]metadata.Extractor) []string {
	names := make([]string, 0, len(extractors))
	for n := range extractors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func headerString(h map[string]interface{}, key string) string {
	if h == nil {
		return ""
	}
	if v, ok := h[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func headerTags(h map[string]interface{}) []string {
	if h == nil {
		return nil
	}
	raw, ok := h["tags"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
