package cache

import (
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MediaCache tracks locally materialized media files (downloads from
// external platforms, worker-produced transcode artifacts) with a
// bounded LRU policy. Eviction removes the file from disk; the cache
// owns the files it tracks.
type MediaCache struct {
	mu  sync.Mutex
	lru *lru.Cache[uuid.UUID, string]
}

func NewMediaCache(size int) (*MediaCache, error) {
	c := &MediaCache{}
	inner, err := lru.NewWithEvict[uuid.UUID, string](size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = inner
	return c, nil
}

func (c *MediaCache) onEvict(assetID uuid.UUID, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove evicted media file %s: %v", path, err)
	}
}

// Put records a local file for the asset. If the asset already has a
// cached file at a different path, the old file is removed first.
func (c *MediaCache) Put(assetID uuid.UUID, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(assetID); ok && old != path {
		c.onEvict(assetID, old)
	}
	c.lru.Add(assetID, path)
}

// Get returns the cached file path for the asset, refreshing its
// recency. A stale entry whose file vanished is dropped.
func (c *MediaCache) Get(assetID uuid.UUID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, ok := c.lru.Get(assetID)
	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		c.lru.Remove(assetID)
		return "", false
	}
	return path, true
}

// Drop removes the asset's cached file, if any. Used when the asset
// itself is deleted.
func (c *MediaCache) Drop(assetID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(assetID)
}

// Len reports the number of tracked files.
func (c *MediaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
