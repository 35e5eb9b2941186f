// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/pmce/setores-web/internal/apiclient"
	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/middleware"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/render"
	"github.com/pmce/setores-web/internal/service"
)

// LoginAPI exchanges credentials for a backend token.
type LoginAPI interface {
	Login(ctx context.Context, creds apiclient.Credentials) (apiclient.LoginResult, error)
}

// AuthHandler handles authentication routes.
type AuthHandler struct {
	api             LoginAPI
	store           *auth.Store
	renderer        *render.Renderer
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
	onLogout        []func(ctx context.Context)
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(api LoginAPI, store *auth.Store, renderer *render.Renderer, events *service.EventService, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		api:             api,
		store:           store,
		renderer:        renderer,
		eventService:    events,
		loginProtection: lp,
	}
}

// OnLogout registers fn to run after the credentials are cleared, with the
// request context of the logout.
func (h *AuthHandler) OnLogout(fn func(ctx context.Context)) {
	h.onLogout = append(h.onLogout, fn)
}

// LoginData holds data for the login template.
type LoginData struct {
	Email  string
	Errors map[string]string
	Error  string
}

// LoginForm renders the login page. Already-authenticated users go to the list.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).User() != nil {
		http.Redirect(w, r, RouteSectors, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, LoginData{})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginData) {
	renderPage(w, r, h.renderer, status, TemplateLogin, render.TemplateData{
		Title: "auth.login",
		Data:  data,
	})
}

// validateLogin checks the login form and returns translated messages per field.
func validateLogin(lang, email, password string) map[string]string {
	errs := map[string]string{}
	if email == "" {
		errs["email"] = i18n.T(lang, "validation.email_required")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs["email"] = i18n.T(lang, "validation.email_invalid")
	}
	if password == "" {
		errs["password"] = i18n.T(lang, "validation.password_required")
	}
	return errs
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)

	if !parseFormOrRedirect(w, r, h.renderer, RouteLogin) {
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	data := LoginData{Email: email}

	if errs := validateLogin(lang, email, password); len(errs) > 0 {
		data.Errors = errs
		h.renderLogin(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	origin := middleware.Origin(r)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", nil, origin, map[string]any{"email": email})
			data.Error = i18n.T(lang, "auth.account_locked", formatDuration(lang, remaining))
			h.renderLogin(w, r, http.StatusTooManyRequests, data)
			return
		}
	}

	result, err := h.api.Login(r.Context(), apiclient.Credentials{Email: email, Password: password})
	if err != nil {
		h.loginFailed(w, r, data, err)
		return
	}

	session, err := h.store.Login(r.Context(), result.Token, result.User)
	if err != nil {
		slog.Warn("backend token rejected", "error", err, "email", email,
			logging.AttrCategory, model.EventCategoryAuth, logging.AttrRecorded, true)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid token from backend", nil, origin, map[string]any{"email": email, "error": err.Error()})
		data.Error = i18n.T(lang, "auth.invalid_token")
		h.renderLogin(w, r, http.StatusBadGateway, data)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	slog.Info("user logged in", "user_id", session.UserID(), "email", email, "admin", session.IsAdmin())
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", session.User, origin, nil)

	flashSuccess(w, r, h.renderer, RouteSectors, i18n.T(lang, "auth.welcome", session.User.DisplayName()))
}

// loginFailed reports a rejected or failed login attempt. Only credential
// rejections count towards the account lockout.
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, data LoginData, err error) {
	lang := middleware.GetLang(r)
	origin := middleware.Origin(r)
	meta := map[string]any{"email": data.Email}

	rejected := apiclient.IsAuth(err) || apiclient.Status(err) == http.StatusBadRequest || apiclient.IsNotFound(err)
	if !rejected {
		slog.Error("login request failed", "error", err, "email", data.Email,
			logging.AttrCategory, model.EventCategoryAPI, logging.AttrRecorded, true)
		meta["error"] = err.Error()
		_ = h.eventService.LogAPIEvent(r.Context(), model.EventLevelError, "Login request failed", nil, origin, meta)
		data.Error = apiErrorMessage(lang, "auth.login_failed", err)
		h.renderLogin(w, r, apiErrorStatus(err), data)
		return
	}

	slog.Debug("login rejected by backend", "email", data.Email, "status", apiclient.Status(err))
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid credentials", nil, origin, meta)

	data.Error = i18n.T(lang, "auth.invalid_credentials")
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(data.Email); locked {
			meta["duration"] = lockDuration.String()
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", nil, origin, meta)
			data.Error = i18n.T(lang, "auth.too_many_attempts", formatDuration(lang, lockDuration))
		} else if remaining := h.loginProtection.GetRemainingAttempts(data.Email); remaining > 0 && remaining <= 3 {
			data.Error = i18n.T(lang, "auth.attempts_remaining", remaining)
		}
	}
	h.renderLogin(w, r, http.StatusUnauthorized, data)
}

// Logout clears the persisted session. POST only, so it is covered by CSRF.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	state := auth.FromContext(r.Context())
	user := state.User()

	if user != nil {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", user, middleware.Origin(r), nil)
	}

	if err := h.store.Logout(r.Context()); err != nil {
		slog.Error("session renewal on logout failed", "error", err)
	}
	for _, fn := range h.onLogout {
		fn(r.Context())
	}

	slog.Info("user logged out", "user_id", state.Session.UserID())
	flashAndRedirect(w, r, h.renderer, RouteLogin, i18n.T(lang, "auth.logged_out"), render.FlashInfo)
}

// Unauthorized renders the access denied page.
func (h *AuthHandler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusForbidden, TemplateUnauthorized, render.TemplateData{
		Title: "unauthorized.title",
	})
}

// formatDuration formats a lockout duration in the user's language.
func formatDuration(lang string, d time.Duration) string {
	switch {
	case d < time.Minute:
		return i18n.T(lang, "duration.seconds", int(d.Seconds()))
	case d < time.Hour:
		if mins := int(d.Minutes()); mins != 1 {
			return i18n.T(lang, "duration.minutes", mins)
		}
		return i18n.T(lang, "duration.minute")
	default:
		if hours := int(d.Hours()); hours != 1 {
			return i18n.T(lang, "duration.hours", hours)
		}
		return i18n.T(lang, "duration.hour")
	}
}
