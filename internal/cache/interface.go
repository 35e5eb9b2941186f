// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache stores short-lived per-browser view state, either in process
// memory or in Redis when several instances share the load.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value. A zero ttl uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// Stats holds cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Items   int
	HitRate float64
}

// StatsProvider is implemented by caches that keep counters.
type StatsProvider interface {
	Stats() Stats
}

// Pinger is implemented by caches backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
