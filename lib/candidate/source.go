package candidate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/strutil"
)

// Source resolves wordlist and rule references to readable streams.
type Source interface {
	Open(ref string) (io.ReadCloser, error)
}

// DirSource resolves relative references against a root directory (the configured files
// path). Absolute references are used as-is.
type DirSource struct {
	Root string
}

// Open opens the referenced file.
func (d DirSource) Open(ref string) (io.ReadCloser, error) {
	if strutil.IsBlank(ref) {
		return nil, unsupported("empty file reference")
	}

	path := ref
	if !filepath.IsAbs(ref) {
		path = filepath.Join(d.Root, filepath.Clean(ref))
	}

	if !fileutil.IsExist(path) {
		return nil, unsupported("file %q couldn't be opened on filesystem", path)
	}

	f, err := os.Open(path) //nolint:gosec // References come from the operator's plan
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}

	return f, nil
}

// MemorySource serves references from an in-memory map; used by tests and previews.
type MemorySource map[string]string

// Open returns a reader over the named entry.
func (m MemorySource) Open(ref string) (io.ReadCloser, error) {
	content, ok := m[ref]
	if !ok {
		return nil, unsupported("unknown reference %q", ref)
	}

	return io.NopCloser(strings.NewReader(content)), nil
}
