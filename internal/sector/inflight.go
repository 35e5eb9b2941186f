// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sector

import "sync"

// InFlight rejects a second save from the same browser while one is still
// outstanding. It is safe for concurrent use.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlight returns an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

// Begin marks key busy. It returns false if key is already busy.
func (g *InFlight) Begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return false
	}
	g.keys[key] = struct{}{}
	return true
}

// End releases key.
func (g *InFlight) End(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
}
