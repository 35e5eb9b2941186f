// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/pmce/setores-web/internal/middleware"
)

// LanguageHandler stores the UI language preference.
type LanguageHandler struct {
	sessionManager *scs.SessionManager
}

// NewLanguageHandler creates a new LanguageHandler.
func NewLanguageHandler(sm *scs.SessionManager) *LanguageHandler {
	return &LanguageHandler{sessionManager: sm}
}

// SetLanguage handles POST /language and returns to the page the form was
// posted from.
func (h *LanguageHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !middleware.SetLang(r.Context(), h.sessionManager, r.PostForm.Get("lang")) {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, safeRedirectPath(r.PostForm.Get("redirect")), http.StatusSeeOther)
}

// safeRedirectPath keeps redirects on this site: only absolute paths without
// a scheme or host are accepted.
func safeRedirectPath(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return RouteRoot
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return RouteRoot
	}
	return u.RequestURI()
}
