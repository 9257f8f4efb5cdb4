// Package cache stores converted mesh buffers keyed by content.
//
// The HTTP service and the CLI look up a conversion result before running
// the dispatcher and store it afterwards. Three implementations exist:
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: entries as files below a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for multi-instance servers
//
// Keys come from [ContentKey], which hashes the input bytes together with
// the conversion parameters.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases connections held by the cache.
	Close() error
}

// DefaultTTL is the lifetime of conversion results.
const DefaultTTL = 24 * time.Hour
