// Package vault provides root-locked access to a directory of Markdown
// documents.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/saga/internal/apperr"
)

// FileMeta describes one document found under the vault root.
type FileMeta struct {
	// Path is relative to the vault root, slash-separated.
	Path    string
	AbsPath string
	Size    int64
	ModTime time.Time
}

// FS is a vault rooted at a directory on the local file system.
type FS struct {
	root string // absolute path to the vault directory
}

// NewFS creates a vault rooted at the given directory, which must exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault root.
func (f *FS) Root() string { return f.root }

// Abs resolves a relative path against the vault root and rejects any result
// that escapes it (directory traversal).
func (f *FS) Abs(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Stat returns metadata for a vault file.
func (f *FS) Stat(rel string) (FileMeta, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return FileMeta{}, err
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return FileMeta{}, fmt.Errorf("vault: stat %s: %w", rel, apperr.ErrNotFound)
	}
	if err != nil {
		return FileMeta{}, fmt.Errorf("vault: stat %s: %w", rel, err)
	}
	return FileMeta{
		Path:    filepath.ToSlash(rel),
		AbsPath: abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.Abs(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("vault: read %s: %w", rel, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", rel, err)
	}
	return data, nil
}

// List walks the vault and returns metadata for every .md file.
func (f *FS) List() ([]FileMeta, error) {
	var out []FileMeta
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, FileMeta{
			Path:    filepath.ToSlash(rel),
			AbsPath: p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	return out, nil
}
