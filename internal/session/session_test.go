// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/alexedwards/scs/v2/memstore"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_DevMode(t *testing.T) {
	sm := New(setupTestDB(t), true)

	if sm.Store == nil {
		t.Fatal("expected Store to be initialized")
	}
	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name != CookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, CookieName)
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(setupTestDB(t), false)

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != HostCookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, HostCookieName)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("Cookie.Path = %q, want %q", sm.Cookie.Path, "/")
	}
}

func TestNewWithStore_Settings(t *testing.T) {
	sm := NewWithStore(memstore.New(), true)

	if sm.Lifetime != Lifetime {
		t.Errorf("Lifetime = %v, want %v", sm.Lifetime, Lifetime)
	}
	if sm.IdleTimeout != IdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", sm.IdleTimeout, IdleTimeout)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", sm.Cookie.SameSite)
	}
}
