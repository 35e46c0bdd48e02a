package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize is the entry bound used when NewMemoryCache gets size <= 0.
const DefaultMemorySize = 512

// MemoryCache is an in-process LRU cache. Expired entries are dropped lazily
// on Get. It is safe for concurrent use.
type MemoryCache struct {
	lru *lru.Cache[string, entry]
}

// NewMemoryCache creates a cache holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: l}, nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired() {
		c.lru.Remove(key)
		return nil, false, nil
	}
	return e.Data, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.lru.Add(key, newEntry(append([]byte(nil), data...), ttl))
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *MemoryCache) Len() int { return c.lru.Len() }

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

var _ Cache = (*MemoryCache)(nil)
