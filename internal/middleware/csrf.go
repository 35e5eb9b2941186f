// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"

	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/model"
)

// CSRFConfig holds configuration for CSRF protection.
// filippo.io/csrf/gorilla checks Fetch metadata headers, so no token cookie
// or hidden form field is involved.
type CSRFConfig struct {
	// AuthKey is a 32-byte key. The session secret is used.
	AuthKey []byte

	// ErrorHandler is called when CSRF validation fails.
	ErrorHandler http.Handler

	// TrustedOrigins are host:port values allowed to post cross-origin.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns the CSRF configuration. In development the
// server address and its loopback aliases are trusted.
func DefaultCSRFConfig(authKey []byte, isDev bool, serverAddr string) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}
	if isDev {
		cfg.TrustedOrigins = []string{"localhost:8080", "127.0.0.1:8080"}
		if serverAddr != "" && serverAddr != "localhost:8080" && serverAddr != "127.0.0.1:8080" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, serverAddr)
		}
	}
	return cfg
}

// CSRF returns a middleware that provides CSRF protection.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)))
	}
	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("CSRF validation failed",
		logging.AttrCategory, model.EventCategoryAuth,
		logging.AttrIP, ClientIP(r),
		logging.AttrRequestURL, r.URL.RequestURI(),
		"reason", reason,
		"method", r.Method,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	http.Error(w, i18n.T(GetLang(r), "error.csrf"), http.StatusForbidden)
}
