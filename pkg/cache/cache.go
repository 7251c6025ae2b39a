package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a key-value cache with TTL support. See the package doc for TTL semantics.
type Cache[V any] interface {
	// Get returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Close releases background resources. The cache must not be used afterwards.
	Close() error
}

// Marshaler converts values for backends that store bytes.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

type jsonMarshaler[V any] struct{}

func (jsonMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (jsonMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// StringMarshaler stores strings as their raw bytes.
type StringMarshaler struct{}

func (StringMarshaler) Marshal(v string) ([]byte, error)      { return []byte(v), nil }
func (StringMarshaler) Unmarshal(data []byte) (string, error) { return string(data), nil }

var flights singleflight.Group

type loaded[V any] struct {
	val V
	ttl time.Duration
}

// GetOrSet returns the cached value for key or computes it with fn.
// Concurrent misses for the same key on the same cache share one fn call.
// fn runs detached from the first caller's cancellation; every caller
// still stops waiting when its own ctx is done.
// Errors from fn are returned and nothing is cached. Storing the result is
// best effort.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, fn func(ctx context.Context) (V, time.Duration, error)) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	var zero V
	flight := fmt.Sprintf("%p:%s", c, key)
	detached := context.WithoutCancel(ctx)

	ch := flights.DoChan(flight, func() (any, error) {
		val, ttl, err := fn(detached)
		if err != nil {
			return nil, err
		}
		_ = c.Set(detached, key, val, ttl)
		return loaded[V]{val: val, ttl: ttl}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(loaded[V]).val, nil
	}
}
