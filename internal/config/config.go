// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAPIURL is used when SETORES_API_URL is not set.
const DefaultAPIURL = "http://localhost:5000/api"

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"SETORES_DB_PATH" envDefault:"./data/setores.db"`
	SessionSecret string `env:"SETORES_SESSION_SECRET,required"`
	ServerHost    string `env:"SETORES_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"SETORES_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"SETORES_ENV" envDefault:"development"`
	LogLevel      string `env:"SETORES_LOG_LEVEL" envDefault:"info"`
	DefaultLang   string `env:"SETORES_DEFAULT_LANG" envDefault:"pt"`

	// Backend REST API
	APIURL     string `env:"SETORES_API_URL" envDefault:"http://localhost:5000/api"`
	APITimeout int    `env:"SETORES_API_TIMEOUT" envDefault:"10"` // seconds

	// JWTSecret enables HS256 signature verification of backend tokens.
	// When empty, claims are decoded without verification.
	JWTSecret string `env:"SETORES_JWT_SECRET"`

	// Cache configuration
	RedisURL    string `env:"SETORES_REDIS_URL"`                          // Optional Redis URL for shared view state
	CachePrefix string `env:"SETORES_CACHE_PREFIX" envDefault:"setores:"` // Redis key prefix
	CacheTTL    int    `env:"SETORES_CACHE_TTL" envDefault:"1800"`        // View state TTL in seconds

	EventRetentionDays int `env:"SETORES_EVENT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// VerifyTokens returns true if backend tokens must carry a valid signature.
func (c Config) VerifyTokens() bool {
	return c.JWTSecret != ""
}

// APITimeoutDuration returns the backend request timeout.
func (c Config) APITimeoutDuration() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// CacheTTLDuration returns the view state TTL.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetention returns how long event log entries are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SETORES_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("SETORES_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("SETORES_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("SETORES_API_URL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}

	if cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("SETORES_API_TIMEOUT must be positive, got %d", cfg.APITimeout)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 1800
	}
	if cfg.EventRetentionDays <= 0 {
		cfg.EventRetentionDays = 90
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
