// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "SETORES_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/setores.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/setores.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.APITimeoutDuration() != 10*time.Second {
		t.Errorf("APITimeoutDuration() = %v, want 10s", cfg.APITimeoutDuration())
	}
	if cfg.DefaultLang != "pt" {
		t.Errorf("DefaultLang = %q, want %q", cfg.DefaultLang, "pt")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true, want false")
	}
	if cfg.VerifyTokens() {
		t.Error("VerifyTokens() = true, want false")
	}
	if cfg.EventRetention() != 90*24*time.Hour {
		t.Errorf("EventRetention() = %v, want 90 days", cfg.EventRetention())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "SETORES_SESSION_SECRET", testSecret)
	setEnv(t, "SETORES_DB_PATH", "/custom/path.db")
	setEnv(t, "SETORES_SERVER_HOST", "0.0.0.0")
	setEnv(t, "SETORES_SERVER_PORT", "3000")
	setEnv(t, "SETORES_ENV", "production")
	setEnv(t, "SETORES_API_URL", "https://api.pmce.example/api/")
	setEnv(t, "SETORES_API_TIMEOUT", "3")
	setEnv(t, "SETORES_JWT_SECRET", "jwt-secret")
	setEnv(t, "SETORES_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
	// trailing slash is trimmed so paths can be appended
	if cfg.APIURL != "https://api.pmce.example/api" {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, "https://api.pmce.example/api")
	}
	if cfg.APITimeoutDuration() != 3*time.Second {
		t.Errorf("APITimeoutDuration() = %v, want 3s", cfg.APITimeoutDuration())
	}
	if !cfg.VerifyTokens() {
		t.Error("VerifyTokens() = false, want true")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false, want true")
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when SETORES_SESSION_SECRET is not set")
	}
}

func TestLoad_SessionSecretTooShort(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"short", "short"},
		{"31_bytes", "1234567890123456789012345678901"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "SETORES_SESSION_SECRET", tt.secret)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should fail with %d-byte secret", len(tt.secret))
			}
		})
	}
}

func TestLoad_WeakSecretRejected(t *testing.T) {
	for _, weak := range knownWeakSecrets {
		os.Clearenv()
		setEnv(t, "SETORES_SESSION_SECRET", weak)
		if _, err := Load(); err == nil {
			t.Errorf("Load() accepted known weak secret %q", weak)
		}
	}
}

func TestLoad_InvalidAPIURL(t *testing.T) {
	tests := []string{"ftp://example.com", "not a url", "/relative/api"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "SETORES_SESSION_SECRET", testSecret)
			setEnv(t, "SETORES_API_URL", raw)

			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted API URL %q", raw)
			}
		})
	}
}

func TestLoad_InvalidAPITimeout(t *testing.T) {
	os.Clearenv()
	setEnv(t, "SETORES_SESSION_SECRET", testSecret)
	setEnv(t, "SETORES_API_TIMEOUT", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail with zero API timeout")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefABCDEF1234567890abcdefABCD", true},
		{"abcdef-ghijkl-1234567890-abcdefg", true},
		{"12345678901234567890123456789012", false},
	}

	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
