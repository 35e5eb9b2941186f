// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"testing"
	"time"
)

func TestNewCache_Memory(t *testing.T) {
	c, backend := NewCache(Config{DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("cache type = %T, want *MemoryCache", c)
	}
}

func TestNewCache_UnreachableRedisFallsBack(t *testing.T) {
	c, backend := NewCache(Config{RedisURL: "redis://127.0.0.1:1/0", DefaultTTL: time.Minute})
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want fallback to %q", backend, BackendMemory)
	}
}

func TestNewCache_InvalidRedisURLFallsBack(t *testing.T) {
	c, backend := NewCache(Config{RedisURL: "not-a-url"})
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
}
