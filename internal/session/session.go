// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the server-side session manager that holds the
// backend bearer token and the cached user snapshot.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Cookie names. The __Host- prefix requires Secure, Path=/ and no Domain,
// so it is only used outside development.
const (
	CookieName     = "setores_session"
	HostCookieName = "__Host-setores"
)

// Lifetime is the absolute session lifetime.
const Lifetime = 24 * time.Hour

// IdleTimeout ends sessions that have not been used for this long.
const IdleTimeout = 8 * time.Hour

// New creates a session manager backed by the sessions table in db.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)
	configure(sm, isDev)
	return sm
}

// NewWithStore creates a session manager on top of an arbitrary store.
func NewWithStore(store scs.Store, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store
	configure(sm, isDev)
	return sm
}

func configure(sm *scs.SessionManager, isDev bool) {
	sm.Lifetime = Lifetime
	sm.IdleTimeout = IdleTimeout
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev

	if !isDev {
		sm.Cookie.Name = HostCookieName
	}
}
