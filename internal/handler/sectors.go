// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pmce/setores-web/internal/apiclient"
	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/cache"
	"github.com/pmce/setores-web/internal/i18n"
	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/middleware"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/render"
	"github.com/pmce/setores-web/internal/sector"
	"github.com/pmce/setores-web/internal/service"
)

// SessionKeyViewID identifies the browser's list snapshot in the view cache.
const SessionKeyViewID = "view_id"

const listViewKeyPrefix = "sectors:list:"

// SectorAPI is the backend surface used by the sector pages.
type SectorAPI interface {
	ListSectors(ctx context.Context) ([]sector.Sector, error)
	GetSector(ctx context.Context, id string) (sector.Sector, error)
	CreateSector(ctx context.Context, s sector.Sector) (sector.Sector, error)
	UpdateSector(ctx context.Context, id string, s sector.Sector) (sector.Sector, error)
	DeleteSector(ctx context.Context, id string) error
}

// SectorsHandler handles the sector list and form pages.
type SectorsHandler struct {
	api            SectorAPI
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	views          *cache.TypedCache[sector.ListView]
	inFlight       *sector.InFlight
	eventService   *service.EventService
}

// NewSectorsHandler creates a new SectorsHandler. List snapshots are kept in
// c for ttl.
func NewSectorsHandler(api SectorAPI, renderer *render.Renderer, sm *scs.SessionManager, c cache.Cache, ttl time.Duration, events *service.EventService) *SectorsHandler {
	return &SectorsHandler{
		api:            api,
		renderer:       renderer,
		sessionManager: sm,
		views:          cache.NewTypedCache[sector.ListView](c, ttl),
		inFlight:       sector.NewInFlight(),
		eventService:   events,
	}
}

// SectorRow is one line of the sector table.
type SectorRow struct {
	sector.Sector
	Expanded  bool
	ToggleURL string
	EditURL   string
	DeleteURL string
}

// SectorsListData holds data for the list template.
type SectorsListData struct {
	Rows   []SectorRow
	Term   string
	Field  sector.Field
	Fields []sector.Field
	Total  int
	Error  string
}

// NoResults reports that a filter is active and nothing matched.
func (d SectorsListData) NoResults() bool {
	return len(d.Rows) == 0 && d.Term != ""
}

// viewID returns the browser's view id, creating one on first use.
func (h *SectorsHandler) viewID(ctx context.Context) string {
	id := h.sessionManager.GetString(ctx, SessionKeyViewID)
	if id == "" {
		id = uuid.NewString()
		h.sessionManager.Put(ctx, SessionKeyViewID, id)
	}
	return id
}

func (h *SectorsHandler) loadView(ctx context.Context) (*sector.ListView, bool) {
	view, found, err := h.views.Get(ctx, listViewKeyPrefix+h.viewID(ctx))
	if err != nil {
		slog.Warn("failed to read list snapshot", "error", err, logging.AttrCategory, model.EventCategoryCache)
		return nil, false
	}
	if !found || view == nil {
		return nil, false
	}
	if view.Expanded == nil {
		view.Expanded = map[string]bool{}
	}
	return view, true
}

// DropView forgets the browser's list snapshot and view id. Called on logout
// so the next visitor on the same browser starts from a fresh fetch.
func (h *SectorsHandler) DropView(ctx context.Context) {
	id := h.sessionManager.GetString(ctx, SessionKeyViewID)
	if id == "" {
		return
	}
	if err := h.views.Delete(ctx, listViewKeyPrefix+id); err != nil {
		slog.Warn("failed to drop list snapshot", "error", err, logging.AttrCategory, model.EventCategoryCache)
	}
	h.sessionManager.Remove(ctx, SessionKeyViewID)
}

func (h *SectorsHandler) saveView(ctx context.Context, view *sector.ListView) {
	if err := h.views.Set(ctx, listViewKeyPrefix+h.viewID(ctx), view); err != nil {
		slog.Warn("failed to store list snapshot", "error", err, logging.AttrCategory, model.EventCategoryCache)
	}
}

// snapshot returns the stored list state, mounting a fresh one when the
// snapshot expired.
func (h *SectorsHandler) snapshot(w http.ResponseWriter, r *http.Request) (*sector.ListView, bool) {
	if view, ok := h.loadView(r.Context()); ok {
		return view, true
	}
	view := sector.NewListView()
	if err := view.Mount(r.Context(), h.api); err != nil {
		h.logAPIFailure(r, "Failed to load sectors", err, nil)
		h.renderList(w, r, apiErrorStatus(err), view, apiErrorMessage(middleware.GetLang(r), "sectors.load_error", err))
		return nil, false
	}
	return view, true
}

// List handles GET /sectors. The list is fetched on every visit; the filter
// comes from the query string and row expansion from the previous snapshot.
func (h *SectorsHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)

	view := sector.NewListView()
	if prev, ok := h.loadView(r.Context()); ok {
		view.Expanded = prev.Expanded
	}
	q := r.URL.Query()
	view.SetFilter(q.Get("q"), sector.Field(q.Get("field")))

	if err := view.Mount(r.Context(), h.api); err != nil {
		h.logAPIFailure(r, "Failed to load sectors", err, nil)
		h.renderList(w, r, apiErrorStatus(err), view, apiErrorMessage(lang, "sectors.load_error", err))
		return
	}

	h.saveView(r.Context(), view)
	h.renderList(w, r, http.StatusOK, view, "")
}

// Toggle handles POST /sectors/{id}/toggle.
func (h *SectorsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	view, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	view.Toggle(chi.URLParam(r, RouteParamID))
	h.saveView(r.Context(), view)
	h.renderList(w, r, http.StatusOK, view, "")
}

// SectorDeleteData holds data for the delete confirmation template.
type SectorDeleteData struct {
	Sector    sector.Sector
	DeleteURL string
}

// ConfirmDelete handles GET /sectors/{id}/excluir.
func (h *SectorsHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	id := chi.URLParam(r, RouteParamID)

	var (
		s     sector.Sector
		found bool
	)
	if view, ok := h.loadView(r.Context()); ok {
		s, found = view.Find(id)
	}
	if !found {
		var err error
		s, err = h.api.GetSector(r.Context(), id)
		if err != nil {
			h.logAPIFailure(r, "Failed to load sector", err, map[string]any{"sector_id": id})
			renderError(w, r, h.renderer, apiErrorStatus(err), apiErrorMessage(lang, "sector.load_error", err))
			return
		}
	}

	renderPage(w, r, h.renderer, http.StatusOK, TemplateSectorDelete, render.TemplateData{
		Title: "sectors.delete_title",
		Data:  SectorDeleteData{Sector: s, DeleteURL: sectorDeleteURL(id)},
	})
}

// Delete handles POST /sectors/{id}/excluir. Without confirm=yes nothing is
// sent to the backend.
func (h *SectorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetLang(r)
	id := chi.URLParam(r, RouteParamID)

	if !parseFormOrRedirect(w, r, h.renderer, RouteSectors) {
		return
	}

	view, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	state := auth.FromContext(r.Context())
	confirmed := r.PostForm.Get("confirm") == "yes"
	target, _ := view.Find(id)

	err := view.Delete(r.Context(), h.api, state.Session, id, confirmed)
	switch {
	case errors.Is(err, sector.ErrNotConfirmed):
		h.renderList(w, r, http.StatusOK, view, "")
		return
	case err != nil:
		h.logAPIFailure(r, "Failed to delete sector", err, map[string]any{"sector_id": id})
		h.renderList(w, r, apiErrorStatus(err), view, apiErrorMessage(lang, "sectors.delete_error", err))
		return
	}

	slog.Info("sector deleted", "sector_id", id, "user_id", state.Session.UserID())
	_ = h.eventService.LogSectorEvent(r.Context(), model.EventLevelInfo, "Sector deleted", state.User(), middleware.Origin(r),
		map[string]any{"sector_id": id, "battalion": target.Battalion})

	h.saveView(r.Context(), view)
	h.renderer.SetFlash(r, i18n.T(lang, "sectors.deleted"), render.FlashSuccess)
	h.renderList(w, r, http.StatusOK, view, "")
}

func (h *SectorsHandler) renderList(w http.ResponseWriter, r *http.Request, status int, view *sector.ListView, errMsg string) {
	visible := view.Visible()
	rows := make([]SectorRow, len(visible))
	for i, s := range visible {
		rows[i] = SectorRow{
			Sector:    s,
			Expanded:  view.IsExpanded(s.ID),
			ToggleURL: sectorToggleURL(s.ID),
			EditURL:   sectorEditURL(s.ID),
			DeleteURL: sectorDeleteURL(s.ID),
		}
	}

	renderPage(w, r, h.renderer, status, TemplateSectorsList, render.TemplateData{
		Title: "sectors.title",
		Data: SectorsListData{
			Rows:   rows,
			Term:   view.Term,
			Field:  view.Field,
			Fields: sector.Fields,
			Total:  len(view.Sectors),
			Error:  errMsg,
		},
	})
}

// SectorFormData holds data for the form template.
type SectorFormData struct {
	Form         *sector.Form
	ActionURL    string
	FieldErrors  map[string]string
	Pending      sector.NewSubUnitInput
	SubUnitError string
	Error        string
	LoadFailed   bool
}

// New handles GET /sectors/novo.
func (h *SectorsHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, SectorFormData{Form: sector.NewForm()})
}

// Edit handles GET /sectors/editar/{id}.
func (h *SectorsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, RouteParamID)

	form, err := sector.LoadForm(r.Context(), h.api, id)
	if err != nil {
		h.logAPIFailure(r, "Failed to load sector", err, map[string]any{"sector_id": id})
		h.renderForm(w, r, apiErrorStatus(err), SectorFormData{
			Form:       &sector.Form{ID: id},
			Error:      apiErrorMessage(middleware.GetLang(r), "sector.load_error", err),
			LoadFailed: true,
		})
		return
	}
	h.renderForm(w, r, http.StatusOK, SectorFormData{Form: form})
}

// Create handles POST /sectors/novo.
func (h *SectorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, "")
}

// Update handles POST /sectors/editar/{id}.
func (h *SectorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, chi.URLParam(r, RouteParamID))
}

// submit applies one form action. Sub-unit edits only change the draft that
// is sent back to the browser; save is the only action that calls the backend.
func (h *SectorsHandler) submit(w http.ResponseWriter, r *http.Request, id string) {
	lang := middleware.GetLang(r)

	back := RouteSectorNew
	if id != "" {
		back = sectorEditURL(id)
	}
	if !parseFormOrRedirect(w, r, h.renderer, back) {
		return
	}

	form, pending := sector.ParseValues(id, r.PostForm)
	action, arg := sector.ParseAction(r.PostForm.Get(sector.FieldNameAction))

	switch action {
	case sector.ActionAddSubUnit:
		data := SectorFormData{Form: form}
		if _, err := form.AddSubUnit(pending.Name, pending.Address, pending.Phone); err != nil {
			data.Pending = pending
			data.SubUnitError = i18n.T(lang, "sector.sub_name_required")
		}
		h.renderForm(w, r, http.StatusOK, data)
		return
	case sector.ActionRemoveSubUnit:
		form.RemoveSubUnit(arg)
		h.renderForm(w, r, http.StatusOK, SectorFormData{Form: form, Pending: pending})
		return
	}

	key := h.viewID(r.Context())
	if !h.inFlight.Begin(key) {
		h.renderForm(w, r, http.StatusConflict, SectorFormData{
			Form:    form,
			Pending: pending,
			Error:   i18n.T(lang, "sector.save_in_progress"),
		})
		return
	}
	defer h.inFlight.End(key)

	saved, err := form.Submit(r.Context(), h.api)
	if err != nil {
		data := SectorFormData{Form: form, Pending: pending}
		var verr *sector.ValidationError
		if errors.As(err, &verr) {
			data.FieldErrors = make(map[string]string, len(verr.Fields))
			for field, msgKey := range verr.Fields {
				data.FieldErrors[field] = i18n.T(lang, msgKey)
			}
			data.Error = i18n.T(lang, "sector.fix_errors")
			h.renderForm(w, r, http.StatusUnprocessableEntity, data)
			return
		}

		h.logAPIFailure(r, "Failed to save sector", err, map[string]any{"sector_id": id, "battalion": form.Sector.Battalion})
		data.Error = apiErrorMessage(lang, "sector.save_error", err)
		if apiclient.IsAuth(err) {
			data.Error += " " + i18n.T(lang, "error.login_again")
		}
		h.renderForm(w, r, apiErrorStatus(err), data)
		return
	}

	message := "Sector created"
	flash := "sector.created"
	if form.IsEdit() {
		message = "Sector updated"
		flash = "sector.updated"
	}
	state := auth.FromContext(r.Context())
	slog.Info("sector saved", "sector_id", saved.ID, "edit", form.IsEdit(), "user_id", state.Session.UserID())
	_ = h.eventService.LogSectorEvent(r.Context(), model.EventLevelInfo, message, state.User(), middleware.Origin(r),
		map[string]any{"sector_id": saved.ID, "battalion": form.Sector.Battalion, "subitems": len(form.Sector.SubItems)})

	flashSuccess(w, r, h.renderer, RouteSectors, i18n.T(lang, flash))
}

func (h *SectorsHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, data SectorFormData) {
	title := "sector.new_title"
	data.ActionURL = RouteSectorNew
	if data.Form.IsEdit() {
		title = "sector.edit_title"
		data.ActionURL = sectorEditURL(data.Form.ID)
	}
	renderPage(w, r, h.renderer, status, TemplateSectorForm, render.TemplateData{
		Title: title,
		Data:  data,
	})
}

// logAPIFailure logs a backend failure and records it in the event log.
func (h *SectorsHandler) logAPIFailure(r *http.Request, message string, err error, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["error"] = err.Error()
	if status := apiclient.Status(err); status != 0 {
		meta["status"] = status
	}

	level := model.EventLevelError
	if apiclient.IsAuth(err) || apiclient.IsNotFound(err) || errors.Is(err, sector.ErrNotAdmin) {
		level = model.EventLevelWarning
	}

	slog.Log(r.Context(), logLevel(level), message, "error", err, "path", r.URL.Path,
		logging.AttrCategory, model.EventCategoryAPI, logging.AttrRecorded, true)
	_ = h.eventService.LogAPIEvent(r.Context(), level, message, auth.FromContext(r.Context()).User(), middleware.Origin(r), meta)
}

func logLevel(eventLevel string) slog.Level {
	switch eventLevel {
	case model.EventLevelError:
		return slog.LevelError
	case model.EventLevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
