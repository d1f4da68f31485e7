package index

import (
	"context"
	"errors"
	"sync"
)

// ErrCacheMiss is returned by Cache.Load when no index is stored for a version.
var ErrCacheMiss = errors.New("index cache miss")

// Cache persists indexes keyed by taxonomy version. Store must publish atomically:
// a concurrent Load sees either the previous index or the complete new one.
type Cache interface {
	Load(ctx context.Context, version string) (*Index, error)
	Store(ctx context.Context, ix *Index) error
	Delete(ctx context.Context, version string) error
}

// MemoryCache keeps indexes in process memory. Used in tests and when persistence is off.
type MemoryCache struct {
	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{indexes: make(map[string]*Index)}
}

// Load returns the stored index for version or ErrCacheMiss.
func (c *MemoryCache) Load(_ context.Context, version string) (*Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ix, ok := c.indexes[version]
	if !ok {
		return nil, ErrCacheMiss
	}
	return ix, nil
}

// Store replaces the index for ix.Version().
func (c *MemoryCache) Store(_ context.Context, ix *Index) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[ix.Version()] = ix
	return nil
}

// Delete removes the index for version.
func (c *MemoryCache) Delete(_ context.Context, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indexes, version)
	return nil
}
