// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session restore, route
// guards, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/service"
)

// ContextKey is a type for context keys used in this package.
type ContextKey string

// ContextKeyRequestPath is the context key for the current request path.
const ContextKeyRequestPath ContextKey = "request_path"

// Paths the guards redirect to.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// AuthEventLogger records guard denials.
type AuthEventLogger interface {
	LogAuthEvent(ctx context.Context, level, message string, user *auth.User, origin service.Origin, metadata map[string]any) error
}

// LoadSession restores the persisted session and attaches the auth state to
// the request context. It must run inside the session manager's LoadAndSave.
func LoadSession(store *auth.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Restore(r.Context())
			if err != nil {
				slog.Debug("persisted session discarded", "error", err, "path", r.URL.Path)
			}
			ctx := auth.WithState(r.Context(), auth.State{Session: session})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth sends anonymous visitors to the login page.
//
// Routes that only need a signed-in user, such as logout, use it.
func RequireAuth() func(http.Handler) http.Handler {
	return Guard(auth.Guard{RequireAuth: true}, nil)
}

// RequireAdmin allows only administrators. Authenticated non-admins are sent
// to the unauthorized page and the denial is recorded through events.
func RequireAdmin(events AuthEventLogger) func(http.Handler) http.Handler {
	return Guard(auth.Guard{RequireAuth: true, AdminOnly: true}, events)
}

// Guard applies g to every request. events may be nil.
func Guard(g auth.Guard, events AuthEventLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := auth.FromContext(r.Context())

			switch decision := g.Decide(st); decision {
			case auth.Allow:
				next.ServeHTTP(w, r)
			case auth.Loading:
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`<p class="loading">` + i18n.T(GetLang(r), "guard.loading") + `</p>`))
			case auth.RedirectLogin:
				slog.Debug("login required", "path", r.URL.Path)
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			case auth.RedirectUnauthorized:
				logDenial(r, st.User(), decision, events)
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
			}
		})
	}
}

func logDenial(r *http.Request, user *auth.User, decision auth.Decision, events AuthEventLogger) {
	origin := Origin(r)
	attrs := []any{
		logging.AttrCategory, model.EventCategoryAuth,
		logging.AttrUserID, user.ID,
		logging.AttrUserEmail, user.Email,
		logging.AttrIP, origin.IP,
		logging.AttrRequestURL, origin.RequestURL,
		"decision", decision.String(),
	}

	if events != nil {
		err := events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Access denied", user, origin,
			map[string]any{"decision": decision.String(), "method": r.Method})
		attrs = append(attrs, logging.AttrRecorded, err == nil)
	}
	slog.Warn("access denied", attrs...)
}

// Origin describes the request for the event log.
func Origin(r *http.Request) service.Origin {
	return service.Origin{
		IP:         ClientIP(r),
		RequestURL: r.URL.RequestURI(),
		UserAgent:  r.UserAgent(),
	}
}

// ClientIP returns the remote address without its port. chi's RealIP
// middleware has already applied proxy headers when it is in the stack.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestPath stores the current request path in context so templates can
// highlight the active navbar entry.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the request context.
func GetRequestPath(r *http.Request) string {
	if path, ok := r.Context().Value(ContextKeyRequestPath).(string); ok {
		return path
	}
	return ""
}
