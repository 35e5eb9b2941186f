// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import "net/url"

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteUnauthorized is where admin-only pages send non-admins.
	RouteUnauthorized = "/unauthorized"
	// RouteLanguage stores the UI language preference.
	RouteLanguage = "/language"
	// RouteEvents is the event log page.
	RouteEvents = "/events"

	// RouteSectors is the sector list.
	RouteSectors = "/sectors"
	// RouteSectorNew is the create form.
	RouteSectorNew = "/sectors/novo"
	// RouteSectorEdit is the edit form.
	RouteSectorEdit = "/sectors/editar/{id}"
	// RouteSectorToggle expands or collapses a row.
	RouteSectorToggle = "/sectors/{id}/toggle"
	// RouteSectorDelete confirms and performs a deletion.
	RouteSectorDelete = "/sectors/{id}/excluir"

	// RouteHealth is the aggregated health check.
	RouteHealth = "/health"
	// RouteHealthLive is the liveness probe.
	RouteHealthLive = "/health/live"
	// RouteHealthReady is the readiness probe.
	RouteHealthReady = "/health/ready"

	// RouteParamID is the ID URL parameter name.
	RouteParamID = "id"
)

// Page template names.
const (
	TemplateHome         = "pages/home"
	TemplateLogin        = "pages/login"
	TemplateUnauthorized = "pages/unauthorized"
	TemplateSectorsList  = "pages/sectors_list"
	TemplateSectorDelete = "pages/sector_delete"
	TemplateSectorForm   = "pages/sector_form"
	TemplateEvents       = "pages/events"
	TemplateError        = "pages/error"
)

func sectorEditURL(id string) string {
	return "/sectors/editar/" + url.PathEscape(id)
}

func sectorToggleURL(id string) string {
	return "/sectors/" + url.PathEscape(id) + "/toggle"
}

func sectorDeleteURL(id string) string {
	return "/sectors/" + url.PathEscape(id) + "/excluir"
}
