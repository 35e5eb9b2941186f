// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pmce/setores-web/internal/cache"
	"github.com/pmce/setores-web/internal/testutil"
)

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestHealthHandler_Health_Public(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), newFakeAPI(nil), "1.2.3")

	req := withState(httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	assertStatus(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q; want no-store", cc)
	}

	resp := decodeJSON(t, w)
	if resp["status"] != StatusHealthy {
		t.Errorf("status = %v; want healthy", resp["status"])
	}
	for _, field := range []string{"checks", "version", "uptime"} {
		if _, ok := resp[field]; ok {
			t.Errorf("public response should not contain %q", field)
		}
	}
}

func TestHealthHandler_Health_Admin(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), newFakeAPI(nil), "1.2.3")

	req := withState(httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil), adminUser)
	w := httptest.NewRecorder()
	h.Health(w, req)

	assertStatus(t, w.Code, http.StatusOK)
	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q; want 1.2.3", resp.Version)
	}
	if resp.Checks["database"].Status != StatusHealthy || resp.Checks["backend"].Status != StatusHealthy {
		t.Errorf("checks = %+v", resp.Checks)
	}
	if resp.System == nil || resp.System.GoVersion == "" {
		t.Error("verbose response should include system info")
	}
}

func TestHealthHandler_Health_BackendDown(t *testing.T) {
	api := newFakeAPI(nil)
	api.pingErr = errors.New("connection refused")
	h := NewHealthHandler(testutil.TestDB(t), api, "dev")

	req := withState(httptest.NewRequest(http.MethodGet, "/health", nil), adminUser)
	w := httptest.NewRecorder()
	h.Health(w, req)

	assertStatus(t, w.Code, http.StatusOK)
	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("status = %q; want degraded", resp.Status)
	}
	if resp.Checks["backend"].Message != "connection refused" {
		t.Errorf("backend check = %+v", resp.Checks["backend"])
	}
	if resp.System != nil {
		t.Error("system info only with verbose=true")
	}
}

func TestHealthHandler_Health_DatabaseDown(t *testing.T) {
	db := testutil.TestDB(t)
	h := NewHealthHandler(db, nil, "dev")
	_ = db.Close()

	w := httptest.NewRecorder()
	h.Health(w, withState(httptest.NewRequest(http.MethodGet, "/health", nil), nil))

	assertStatus(t, w.Code, http.StatusServiceUnavailable)
	if resp := decodeJSON(t, w); resp["status"] != StatusUnhealthy {
		t.Errorf("status = %v; want unhealthy", resp["status"])
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(testutil.TestDB(t), nil, "dev")

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeJSON(t, w); resp["status"] != "alive" {
		t.Errorf("status = %v; want alive", resp["status"])
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	api := newFakeAPI(nil)
	api.pingErr = errors.New("down")
	db := testutil.TestDB(t)
	h := NewHealthHandler(db, api, "dev")

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeJSON(t, w); resp["status"] != "ready" {
		t.Errorf("status = %v; want ready (backend is not required)", resp["status"])
	}

	_ = db.Close()
	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assertStatus(t, w.Code, http.StatusServiceUnavailable)
	if resp := decodeJSON(t, w); resp["status"] != "not_ready" {
		t.Errorf("status = %v; want not_ready", resp["status"])
	}
}

// pingingCache is a memory cache that reports a remote connection state.
type pingingCache struct {
	*cache.MemoryCache
	pingErr error
}

func (c pingingCache) Ping(context.Context) error { return c.pingErr }

func TestHealthHandler_Health_CacheStats(t *testing.T) {
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	ctx := context.Background()
	_ = mem.Set(ctx, "sectors:list:v1", []byte("{}"), 0)
	_, _ = mem.Get(ctx, "sectors:list:v1")

	h := NewHealthHandler(testutil.TestDB(t), nil, "dev").WithCache(mem, cache.BackendMemory)

	w := httptest.NewRecorder()
	h.Health(w, withState(httptest.NewRequest(http.MethodGet, "/health", nil), adminUser))

	assertStatus(t, w.Code, http.StatusOK)
	var resp HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != StatusHealthy || resp.Checks["cache"].Status != StatusHealthy {
		t.Errorf("status = %q, cache check = %+v", resp.Status, resp.Checks["cache"])
	}
	if resp.Cache == nil || resp.Cache.Backend != cache.BackendMemory {
		t.Fatalf("cache info = %+v", resp.Cache)
	}
	if resp.Cache.Stats == nil || resp.Cache.Stats.Hits != 1 || resp.Cache.Stats.Items != 1 {
		t.Errorf("cache stats = %+v; the probe key must not be left behind", resp.Cache.Stats)
	}

	// Stats are admin-only.
	w = httptest.NewRecorder()
	h.Health(w, withState(httptest.NewRequest(http.MethodGet, "/health", nil), viewerUser))
	if _, ok := decodeJSON(t, w)["cache"]; ok {
		t.Error("public response exposes cache details")
	}
}

func TestHealthHandler_Health_CacheDown(t *testing.T) {
	tests := []struct {
		name    string
		cache   cache.Cache
		wantMsg string
	}{
		{
			name:    "remote cache unreachable",
			cache:   pingingCache{MemoryCache: cache.NewMemoryCache(cache.MemoryCacheOptions{}), pingErr: errors.New("dial tcp: connection refused")},
			wantMsg: "dial tcp: connection refused",
		},
		{
			name: "cache closed",
			cache: func() cache.Cache {
				c := cache.NewMemoryCache(cache.MemoryCacheOptions{})
				_ = c.Close()
				return c
			}(),
			wantMsg: string(cache.ErrCacheClosed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { _ = tt.cache.Close() })
			h := NewHealthHandler(testutil.TestDB(t), nil, "dev").WithCache(tt.cache, cache.BackendRedis)

			w := httptest.NewRecorder()
			h.Health(w, withState(httptest.NewRequest(http.MethodGet, "/health", nil), adminUser))

			assertStatus(t, w.Code, http.StatusOK)
			var resp HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Status != StatusDegraded {
				t.Errorf("status = %q; want degraded", resp.Status)
			}
			if got := resp.Checks["cache"]; got.Status != StatusUnhealthy || got.Message != tt.wantMsg {
				t.Errorf("cache check = %+v", got)
			}
		})
	}
}
