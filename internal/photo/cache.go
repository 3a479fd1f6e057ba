package photo

import (
	"context"
	"image"
	"sync"
)

// Source loads a photo. Loader and Cache both implement it.
type Source interface {
	Load(ctx context.Context, src string) (*image.NRGBA, error)
}

// Cache is a concurrency-safe photo cache keyed by source string. Failed
// loads are cached too, so a broken photo shared by many jobs is only
// fetched once.
type Cache struct {
	mu     sync.RWMutex
	items  map[string]*cacheEntry
	loader Source
}

type cacheEntry struct {
	img *image.NRGBA
	err error
}

// NewCache wraps loader with a cache.
func NewCache(loader Source) *Cache {
	return &Cache{
		items:  make(map[string]*cacheEntry),
		loader: loader,
	}
}

// Load returns the cached photo or loads it.
func (c *Cache) Load(ctx context.Context, src string) (*image.NRGBA, error) {
	c.mu.RLock()
	if entry, exists := c.items[src]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	img, err := c.loader.Load(ctx, src)
	if ctx.Err() != nil {
		// a cancelled load says nothing about the source: pass it through uncached
		return img, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[src]; exists {
		return entry.img, entry.err
	}
	c.items[src] = &cacheEntry{img: img, err: err}
	return img, err
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
