// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import "context"

// State is the auth context seen by handlers and templates.
// Loading is true until the persisted session has been restored.
type State struct {
	Session Session
	Loading bool
}

// IsAdmin reports whether the restored session belongs to an administrator.
func (s State) IsAdmin() bool {
	return !s.Loading && s.Session.IsAdmin()
}

// User returns the restored user or nil.
func (s State) User() *User {
	if s.Loading {
		return nil
	}
	return s.Session.User
}

type stateKey struct{}

// WithState attaches st to ctx.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// FromContext returns the state attached to ctx. Without one the state is
// still loading.
func FromContext(ctx context.Context) State {
	st, ok := ctx.Value(stateKey{}).(State)
	if !ok {
		return State{Loading: true}
	}
	return st
}
