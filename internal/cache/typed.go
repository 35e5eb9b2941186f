// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TypedCache stores values of T as JSON in an underlying Cache.
type TypedCache[T any] struct {
	cache      Cache
	defaultTTL time.Duration
}

// NewTypedCache wraps cache for values of T.
func NewTypedCache[T any](cache Cache, defaultTTL time.Duration) *TypedCache[T] {
	return &TypedCache[T]{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get returns the value under key. A miss or an undecodable entry reports
// false; only backend failures are returned as errors.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (*T, bool, error) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		_ = c.cache.Delete(ctx, key)
		return nil, false, nil
	}
	return &value, true, nil
}

// Set stores value with the default TTL.
func (c *TypedCache[T]) Set(ctx context.Context, key string, value *T) error {
	return c.SetWithTTL(ctx, key, value, c.defaultTTL)
}

// SetWithTTL stores value with a custom TTL.
func (c *TypedCache[T]) SetWithTTL(ctx context.Context, key string, value *T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value: %w", err)
	}
	return c.cache.Set(ctx, key, data, ttl)
}

// Delete removes key.
func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}
