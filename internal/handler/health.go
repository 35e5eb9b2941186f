// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/cache"
)

// Health check states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// backendCheckTimeout bounds the backend probe so a slow backend cannot
// stall the health endpoint.
const backendCheckTimeout = 3 * time.Second

const (
	cacheCheckTimeout = 2 * time.Second
	cacheProbePrefix  = "health:probe:"
)

// BackendPinger probes the REST backend.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	backend   BackendPinger
	cache     cache.Cache
	cacheName string
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. backend may be nil.
func NewHealthHandler(db *sql.DB, backend BackendPinger, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		backend:   backend,
		version:   version,
		startTime: time.Now(),
	}
}

// WithCache adds the view-state cache to the checks. name is the backend
// reported by cache.NewCache.
func (h *HealthHandler) WithCache(c cache.Cache, name string) *HealthHandler {
	h.cache = c
	h.cacheName = name
	return h
}

// HealthStatusPublic is the minimal health response for non-admin callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed response shown to administrators.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *CacheInfo       `json:"cache,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// CacheInfo reports the view-state cache backend and its counters.
type CacheInfo struct {
	Backend string       `json:"backend"`
	Stats   *cache.Stats `json:"stats,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
}

// Health handles GET /health. The local database decides whether the process
// is healthy; an unreachable backend or cache only degrades it, since pages
// still render with an error banner or a fresh fetch.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	backendCheck := h.checkBackend(r.Context())
	cacheCheck := h.checkCache(r.Context())

	status := StatusHealthy
	code := http.StatusOK
	switch {
	case dbCheck.Status != StatusHealthy:
		status = StatusUnhealthy
		code = http.StatusServiceUnavailable
	case backendCheck.Status != StatusHealthy, cacheCheck.Status != StatusHealthy:
		status = StatusDegraded
	}

	if !auth.FromContext(r.Context()).IsAdmin() {
		writeJSON(w, code, HealthStatusPublic{Status: status})
		return
	}

	resp := HealthStatus{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks: map[string]Check{
			"database": dbCheck,
			"backend":  backendCheck,
			"cache":    cacheCheck,
		},
	}
	if h.cache != nil {
		resp.Cache = &CacheInfo{Backend: h.cacheName}
		if sp, ok := h.cache.(cache.StatsProvider); ok {
			stats := sp.Stats()
			resp.Cache.Stats = &stats
		}
	}
	if r.URL.Query().Get("verbose") == "true" {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		resp.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemAlloc:     m.Alloc,
		}
	}
	writeJSON(w, code, resp)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. Only the local database is required.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.checkDatabase(r.Context()).Status != StatusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkBackend(ctx context.Context) Check {
	if h.backend == nil {
		return Check{Status: StatusHealthy, Message: "Not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.backend.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: "Reachable", Latency: latency.String()}
}

// checkCache pings remote caches and round-trips a probe key.
func (h *HealthHandler) checkCache(ctx context.Context) Check {
	if h.cache == nil {
		return Check{Status: StatusHealthy, Message: "Not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, cacheCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.probeCache(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: StatusHealthy, Message: "Available", Latency: latency.String()}
}

func (h *HealthHandler) probeCache(ctx context.Context) error {
	if p, ok := h.cache.(cache.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	key := cacheProbePrefix + uuid.NewString()
	if err := h.cache.Set(ctx, key, []byte("ok"), cacheCheckTimeout); err != nil {
		return err
	}
	defer func() { _ = h.cache.Delete(context.WithoutCancel(ctx), key) }()

	found, err := h.cache.Has(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return errors.New("probe key not readable")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
