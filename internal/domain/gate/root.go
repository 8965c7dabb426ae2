package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IndexFile is served for the root path "/".
const IndexFile = "index.html"

// Root is the canonical static root directory. Every file the server reads
// must resolve strictly inside it.
type Root struct {
	dir    string
	prefix string // dir with a trailing separator
}

// NewRoot canonicalizes dir (absolute, cleaned, symlinks evaluated) and
// verifies that it is an existing directory.
func NewRoot(dir string) (Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("static root %s: %w", dir, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("static root %s: %w", dir, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return Root{}, fmt.Errorf("static root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Root{}, fmt.Errorf("static root %s: not a directory", dir)
	}

	prefix := canonical
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return Root{dir: canonical, prefix: prefix}, nil
}

// Dir returns the canonical root path.
func (r Root) Dir() string {
	return r.dir
}

// Contains reports whether the normalized path p is the root itself or lies below it.
// p must already be absolute and cleaned.
func (r Root) Contains(p string) bool {
	return p == r.dir || strings.HasPrefix(p, r.prefix)
}

// Resolve maps a decoded URL path to an absolute file path under the root.
// The empty path and "/" map to IndexFile. Everything else is joined directly;
// filepath.Join cleans the result, so ".." segments are collapsed before the
// prefix check runs. Paths that leave the root return ErrForbidden.
func (r Root) Resolve(urlPath string) (string, error) {
	rel := urlPath
	if rel == "" || rel == "/" {
		rel = IndexFile
	}
	p := filepath.Join(r.dir, filepath.FromSlash(rel))
	if !r.Contains(p) {
		return "", fmt.Errorf("%w: %q", ErrForbidden, urlPath)
	}
	return p, nil
}

// Read returns the full content of a resolved path.
// A symlink whose target lies outside the root returns ErrForbidden.
// Every other failure (missing, permission, directory, I/O) wraps ErrNotFound.
func (r Root) Read(path string) ([]byte, error) {
	// Read the verified target, not path, so a link swapped after the check is not followed.
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if !r.Contains(target) {
		return nil, fmt.Errorf("%w: %s links to %s", ErrForbidden, path, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return data, nil
}

// Rel returns path relative to the root, slash-separated, for display.
// Paths outside the root are returned unchanged.
func (r Root) Rel(path string) string {
	rel, err := filepath.Rel(r.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
