// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/pmce/setores-web/internal/i18n"
)

// ContextKeyLanguage is the context key for the UI language code.
const ContextKeyLanguage ContextKey = "language"

// SessionKeyLang is the session key holding the chosen UI language.
const SessionKeyLang = "lang"

// Language resolves the UI language for each request:
//  1. the preference stored in the session by POST /language
//  2. the Accept-Language header
//  3. the configured default
func Language(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := ""
			if sm != nil {
				lang = sm.GetString(r.Context(), SessionKeyLang)
			}
			if !i18n.IsSupported(lang) {
				lang = i18n.MatchLanguage(r.Header.Get("Accept-Language"))
			}
			w.Header().Add("Vary", "Accept-Language")
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

// WithLang attaches a language code to ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextKeyLanguage, lang)
}

// GetLang returns the UI language of the request, or the default.
func GetLang(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLanguage).(string); ok && lang != "" {
		return lang
	}
	return i18n.Default()
}

// SetLang stores a supported language preference in the session.
// It returns false for unsupported codes.
func SetLang(ctx context.Context, sm *scs.SessionManager, lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !i18n.IsSupported(lang) {
		return false
	}
	sm.Put(ctx, SessionKeyLang, lang)
	return true
}
