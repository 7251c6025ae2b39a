package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/missive/pkg/cache"
	"github.com/dmitrymomot/missive/pkg/logger"
)

// Cached serves a backend's templates from a cache.
// Concurrent loads of the same template share one backend call, and that
// call is not cut short when the first caller gives up.
// Failed loads, including "not found", are never stored.
type Cached struct {
	next   Backend
	store  cache.Cache[string]
	logger *slog.Logger
	ttl    time.Duration
}

// CachedOption configures a Cached backend.
type CachedOption func(*Cached)

// WithCacheLogger sets the logger used to report cache failures.
func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(c *Cached) { c.logger = l }
}

// WithCacheTTL sets how long loaded sources stay cached.
// Zero keeps the cache's own default, negative never expires.
func WithCacheTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) { c.ttl = ttl }
}

// NewCached wraps next with store. Keys are "{backend}:{id}".
func NewCached(next Backend, store cache.Cache[string], opts ...CachedOption) *Cached {
	c := &Cached{next: next, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(c)
	}
	c.store = &tolerant{Cache: store, logger: c.logger}
	return c
}

// Name implements Backend. The wrapped backend's name is kept.
func (c *Cached) Name() string { return c.next.Name() }

// Load implements Backend.
func (c *Cached) Load(ctx context.Context, id string) (string, error) {
	return cache.GetOrSet(ctx, c.store, c.key(id), func(ctx context.Context) (string, time.Duration, error) {
		src, err := c.next.Load(ctx, id)
		return src, c.ttl, err
	})
}

// Invalidate drops the cached source of id.
func (c *Cached) Invalidate(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.key(id))
}

func (c *Cached) key(id string) string {
	return c.next.Name() + ":" + id
}

var _ Backend = (*Cached)(nil)

// tolerant logs cache failures and turns failed reads into misses,
// so a broken cache falls back to the backend.
type tolerant struct {
	cache.Cache[string]
	logger *slog.Logger
}

func (t tolerant) Get(ctx context.Context, key string) (string, error) {
	v, err := t.Cache.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		t.logger.WarnContext(ctx, "template cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", cache.ErrNotFound
	}
	return v, err
}

func (t tolerant) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := t.Cache.Set(ctx, key, value, ttl)
	if err != nil {
		t.logger.WarnContext(ctx, "template cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return err
}
