// Package cache stores transform service responses between runs.
//
// Every backend implements [Cache]. The CLI defaults to [FileCache] under the
// XDG cache directory; [MemoryCache] keeps a bounded LRU in process,
// [RedisCache] shares entries between machines, and [NullCache] disables
// caching. Keys come from a [Keyer] so that callers never build them by hand.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// TransformKey keys a transform response by everything that shapes it.
	TransformKey(model, instruction, payload string) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// TransformKey returns "transform:<sha256>".
func (DefaultKeyer) TransformKey(model, instruction, payload string) string {
	return hashKey("transform", model, instruction, payload)
}

// entry wraps cached data with its expiry. It is shared by the file and
// memory backends.
type entry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newEntry(data []byte, ttl time.Duration) entry {
	e := entry{Data: data}
	if ttl > 0 {
		e.ExpiresAt = time.Now().Add(ttl)
	}
	return e
}

func (e entry) expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}
