// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and tunes the cache backend.
type Config struct {
	RedisURL   string // empty selects the memory cache
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int // memory cache only
}

// Backend names reported by NewCache.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewCache returns a Redis cache when RedisURL is set and reachable,
// otherwise a memory cache. The backend actually used is returned.
func NewCache(cfg Config) (Cache, string) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}

		rc, err := NewRedisCache(opts)
		if err == nil {
			return rc, BackendRedis
		}
		slog.Warn("redis unavailable, falling back to memory cache", "category", "cache", "error", err)
	}

	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = 10000
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         maxSize,
		CleanupInterval: time.Minute,
	}), BackendMemory
}
