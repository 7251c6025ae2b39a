package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
)

// FS loads templates from a file system.
type FS struct {
	fsys fs.FS
	name string
	dir  string
}

// FSOption configures an FS backend.
type FSOption func(*FS)

// WithDir sets the directory templates are read from. Default: the root.
func WithDir(dir string) FSOption {
	return func(f *FS) { f.dir = path.Clean(dir) }
}

// WithName sets the backend name. Default: "fs".
func WithName(name string) FSOption {
	return func(f *FS) { f.name = name }
}

// NewFS creates a backend over fsys. Template identifiers are slash separated
// paths relative to the configured directory.
func NewFS(fsys fs.FS, opts ...FSOption) *FS {
	f := &FS{fsys: fsys, name: "fs", dir: "."}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Backend.
func (f *FS) Name() string { return f.name }

// Load implements Backend.
func (f *FS) Load(_ context.Context, id string) (string, error) {
	if !fs.ValidPath(id) || id == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, id)
	}

	b, err := fs.ReadFile(f.fsys, path.Join(f.dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound(id)
		}
		return "", fmt.Errorf("read %s: %w", id, err)
	}

	return string(b), nil
}

var _ Backend = (*FS)(nil)
