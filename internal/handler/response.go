// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pmce/setores-web/internal/apiclient"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/middleware"
	"github.com/pmce/setores-web/internal/render"
	"github.com/pmce/setores-web/internal/sector"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, render.FlashSuccess)
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, renderer, redirectURL, i18n.T(middleware.GetLang(r), "error.invalid_form"))
		return false
	}
	return true
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// renderPage renders a page and falls back to a plain 500 when the template fails.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, name string, data render.TemplateData) {
	if err := renderer.RenderStatus(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render page", "template", name, "error", err)
	}
}

// errorPageData is shown by the generic error page.
type errorPageData struct {
	Message string
	BackURL string
}

// renderError shows the generic error page with a translated message.
func renderError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, message string) {
	renderPage(w, r, renderer, status, TemplateError, render.TemplateData{
		Title: "error.title",
		Data:  errorPageData{Message: message, BackURL: RouteRoot},
	})
}

// apiErrorMessage builds the banner text for a failed backend call: the
// action-specific lead followed by the reason in the user's language.
func apiErrorMessage(lang, leadKey string, err error) string {
	lead := i18n.T(lang, leadKey)
	reason := apiErrorReason(lang, err)
	if reason == "" {
		return lead
	}
	return lead + " " + reason
}

func apiErrorReason(lang string, err error) string {
	switch {
	case errors.Is(err, sector.ErrNotAdmin):
		return i18n.T(lang, "error.not_admin")
	case apiclient.IsAuth(err):
		return i18n.T(lang, "error.api_auth")
	case apiclient.IsNotFound(err):
		return i18n.T(lang, "error.api_not_found")
	case apiclient.IsNetwork(err):
		return i18n.T(lang, "error.api_network")
	case apiclient.IsServer(err):
		return i18n.T(lang, "error.api_server")
	}
	if msg := apiclient.Message(err); msg != "" {
		return msg
	}
	return i18n.T(lang, "error.api_unexpected")
}

// apiErrorStatus maps a backend failure to the status of the page that
// reports it.
func apiErrorStatus(err error) int {
	switch {
	case errors.Is(err, sector.ErrNotAdmin), apiclient.IsAuth(err):
		return http.StatusForbidden
	case apiclient.IsNotFound(err):
		return http.StatusNotFound
	case apiclient.IsNetwork(err), apiclient.IsServer(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
