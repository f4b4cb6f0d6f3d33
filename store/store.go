// Package store defines the durable key-value abstraction used by cellarcache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Important: the keyspace "<namespace>:" is owned by the cache. External code
// MUST NOT write values under this prefix. Foreign writes are treated as
// corruption and deleted on read.
package store

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by Set when the store refuses a write because it
// is out of space. The cache reacts by evicting old entries and retrying once.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is a minimal synchronous key-value store.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
