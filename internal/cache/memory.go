// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	data       sync.Map
	defaultTTL time.Duration
	maxSize    int
	stopCh     chan struct{}
	closed     atomic.Bool
	evictMu    sync.Mutex

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // 0 = unlimited
	CleanupInterval time.Duration // 0 = no background cleanup
}

// NewMemoryCache creates a memory cache with the given options.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	c := &MemoryCache{
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		stopCh:     make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}

	return c
}

// Get retrieves a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	val, ok := c.data.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.CompareAndDelete(key, entry)
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	result := make([]byte, len(entry.value))
	copy(result, entry.value)
	return result, nil
}

// Set stores a copy of value under key.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	entry := &memoryEntry{
		value:     valueCopy,
		expiresAt: time.Now().Add(ttl),
	}

	if c.maxSize > 0 {
		c.evictMu.Lock()
		if _, exists := c.data.Load(key); !exists {
			c.makeRoom()
		}
		c.data.Store(key, entry)
		c.evictMu.Unlock()
	} else {
		c.data.Store(key, entry)
	}

	c.sets.Add(1)
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.data.Delete(key)
	return nil
}

// Has reports whether key holds an unexpired value.
func (c *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	val, ok := c.data.Load(key)
	if !ok {
		return false, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.CompareAndDelete(key, entry)
		return false, nil
	}
	return true, nil
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns current cache statistics.
func (c *MemoryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Items:   c.count(),
		HitRate: hitRate(hits, misses),
	}
}

func (c *MemoryCache) count() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// makeRoom drops expired entries and, if the cache is still full, the entry
// closest to expiry. Callers hold evictMu.
func (c *MemoryCache) makeRoom() {
	if c.count() < c.maxSize {
		return
	}
	c.removeExpired()

	for c.count() >= c.maxSize {
		var (
			oldestKey any
			oldestAt  time.Time
		)
		c.data.Range(func(key, value any) bool {
			e := value.(*memoryEntry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.data.Delete(oldestKey)
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()
	c.data.Range(func(key, value any) bool {
		if now.After(value.(*memoryEntry).expiresAt) {
			c.data.CompareAndDelete(key, value)
		}
		return true
	})
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
