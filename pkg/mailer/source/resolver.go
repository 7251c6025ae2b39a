package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

var (
	// ErrUnknownBackend is returned when a backend is requested by a name no backend has.
	ErrUnknownBackend = errors.New("source: unknown backend")

	// ErrInvalidName is returned for template identifiers that are not clean relative paths.
	ErrInvalidName = errors.New("source: invalid template name")
)

// Backend loads raw template sources from one place.
// A missing template is reported with an error wrapping mailer.ErrTemplateNotFound.
type Backend interface {
	Name() string
	Load(ctx context.Context, id string) (string, error)
}

// Resolver looks templates up across an ordered list of backends.
// It is immutable and safe for concurrent use.
type Resolver struct {
	byName   map[string]Backend
	backends []Backend
}

// NewResolver creates a resolver over backends in lookup order.
// When two backends share a name, selecting by name picks the first one.
func NewResolver(backends ...Backend) *Resolver {
	r := &Resolver{
		backends: make([]Backend, 0, len(backends)),
		byName:   make(map[string]Backend, len(backends)),
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		r.backends = append(r.backends, b)
		if _, ok := r.byName[b.Name()]; !ok {
			r.byName[b.Name()] = b
		}
	}
	return r
}

// Resolve implements mailer.SourceResolver.
func (r *Resolver) Resolve(ctx context.Context, id, backend string) (string, error) {
	if backend != "" {
		b, ok := r.byName[backend]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
		}
		return b.Load(ctx, id)
	}

	for _, b := range r.backends {
		src, err := b.Load(ctx, id)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, mailer.ErrTemplateNotFound) {
			return "", fmt.Errorf("source %s: %w", b.Name(), err)
		}
	}

	return "", notFound(id)
}

// Backends returns the registered backend names in lookup order.
func (r *Resolver) Backends() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", mailer.ErrTemplateNotFound, id)
}

var _ mailer.SourceResolver = (*Resolver)(nil)
