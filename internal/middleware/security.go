// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// IsDevelopment disables HSTS.
	IsDevelopment bool

	ContentSecurityPolicy string

	// HSTSMaxAge in seconds; 0 disables HSTS.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool

	// FrameOptions is "DENY", "SAMEORIGIN" or empty to omit the header.
	FrameOptions string

	ReferrerPolicy    string
	PermissionsPolicy string

	// ExcludePaths are path prefixes that skip the headers.
	ExcludePaths []string
}

// cspDirectives is the policy for server-rendered pages: everything is
// served from this origin and only the stylesheet may be inline.
var cspDirectives = [][2]string{
	{"default-src", "'self'"},
	{"script-src", "'self'"},
	{"style-src", "'self' 'unsafe-inline'"},
	{"img-src", "'self' data:"},
	{"font-src", "'self'"},
	{"connect-src", "'self'"},
	{"object-src", "'none'"},
	{"base-uri", "'self'"},
	{"form-action", "'self'"},
	{"frame-ancestors", "'none'"},
}

var permissionsDirectives = [][2]string{
	{"accelerometer", "()"},
	{"camera", "()"},
	{"geolocation", "()"},
	{"gyroscope", "()"},
	{"microphone", "()"},
	{"payment", "()"},
	{"usb", "()"},
	{"browsing-topics", "()"},
}

// DefaultSecurityHeadersConfig returns the headers used in production;
// development differs only in HSTS.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	return SecurityHeadersConfig{
		IsDevelopment:         isDev,
		ContentSecurityPolicy: joinDirectives(cspDirectives, " ", "; "),
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubDomains: !isDev,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     joinDirectives(permissionsDirectives, "=", ", "),
	}
}

func joinDirectives(directives [][2]string, kv, sep string) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d[0]+kv+d[1])
	}
	return strings.Join(parts, sep)
}

// SecurityHeaders returns a middleware that adds security headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	var hsts string
	if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			h := w.Header()
			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
