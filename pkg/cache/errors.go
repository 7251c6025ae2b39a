package cache

import "errors"

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed is returned when a closed cache is written to.
	ErrClosed = errors.New("cache: closed")

	// ErrMarshal is returned when a value cannot be serialised.
	ErrMarshal = errors.New("cache: failed to marshal value")

	// ErrUnmarshal is returned when stored bytes cannot be decoded.
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")
)
