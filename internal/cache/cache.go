// Package cache provides the API response cache: an in-memory TTL store and
// a Redis store shared between API replicas, both with ETag support.
package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"
)

// TTLs per response family. Ingestion invalidates everything through the
// listener, so these bound staleness only when notifications are missed.
const (
	TTLCombined      = 1 * time.Hour
	TTLPlayerSeason  = 1 * time.Hour
	TTLRuns          = 1 * time.Minute
	evictionInterval = 5 * time.Minute
)

// Cache stores serialized responses keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, etag string, ok bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) string
	Flush(ctx context.Context) error
	Stats(ctx context.Context) map[string]any
}

type entry struct {
	data      []byte
	etag      string
	expiresAt time.Time
}

// Memory is a thread-safe in-memory TTL cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	now     func() time.Time
}

// NewMemory creates a memory cache. Pass enabled=false for a no-op cache.
// Expired entries are evicted in the background until ctx is done.
func NewMemory(ctx context.Context, enabled bool) *Memory {
	c := &Memory{
		entries: make(map[string]entry),
		enabled: enabled,
		now:     time.Now,
	}
	if enabled {
		go c.evictLoop(ctx)
	}
	return c
}

// Get retrieves a live entry.
func (c *Memory) Get(_ context.Context, key string) ([]byte, string, bool) {
	if !c.enabled {
		return nil, "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || c.now().After(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.etag, true
}

// Set stores data for ttl and returns its ETag.
func (c *Memory) Set(_ context.Context, key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if !c.enabled {
		return etag
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: data, etag: etag, expiresAt: c.now().Add(ttl)}
	return etag
}

// Flush drops every entry.
func (c *Memory) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	return nil
}

// Stats reports key counts.
func (c *Memory) Stats(context.Context) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := c.now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]any{
		"backend":      "memory",
		"enabled":      c.enabled,
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
	}
}

func (c *Memory) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evict()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Memory) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// ComputeETag returns a weak ETag for data.
func ComputeETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, hash[:8])
}

// CheckETagMatch reports whether an If-None-Match header matches etag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return ifNoneMatch == etag
}
