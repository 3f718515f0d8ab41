// Package cache persists per-file latent vectors between jobs, so
// re-processing a directory only pays for files that changed.
//
// The Store interface is a flat key-value store with a BadgerDB-backed
// implementation for the service and an in-memory one for testing. On
// top of it, Latents adds the domain schema: msgpack records keyed by
// model and audio file fingerprints, with lookups that degrade to a
// cache miss on any failure.
package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = errors.New("cache: not found")

// Store is a flat key-value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
