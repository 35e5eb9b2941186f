// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/render"
	"github.com/pmce/setores-web/internal/store"
)

// EventsPerPage is the number of events to display per page.
const EventsPerPage = 25

// EventsHandler handles event log viewing routes.
type EventsHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(db *sql.DB, renderer *render.Renderer) *EventsHandler {
	return &EventsHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// EventRow is an event prepared for display.
type EventRow struct {
	ID          int64
	Level       string
	Category    string
	Message     string
	Details     string // Formatted metadata as readable text
	DetailsLong bool   // True if details exceed display threshold
	CreatedAt   time.Time
	UserEmail   string
	IP          string
	RequestURL  string
}

// detailsLengthThreshold is the max chars before details are collapsible
const detailsLengthThreshold = 80

// formatMetadata converts JSON metadata to readable text format.
// Example: {"sector_id":"42","error":"not found"} -> "error: not found, sector_id: 42"
func formatMetadata(metadata string) string {
	if metadata == "" || metadata == "{}" {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(metadata), &data); err != nil {
		return metadata
	}
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		var value string
		switch v := data[key].(type) {
		case string:
			value = v
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			value = strconv.FormatBool(v)
		default:
			if b, err := json.Marshal(v); err == nil {
				value = string(b)
			}
		}
		parts = append(parts, key+": "+value)
	}

	return strings.Join(parts, ", ")
}

// EventsListData holds data for the events list template.
type EventsListData struct {
	Events      []EventRow
	TotalEvents int64
	Level       string
	Category    string
	Levels      []string
	Categories  []string
	Pagination  Pagination
}

// List handles GET /events - displays a paginated, filterable list of events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	if !model.IsValidEventLevel(level) {
		level = ""
	}
	category := r.URL.Query().Get("category")
	if !model.IsValidEventCategory(category) {
		category = ""
	}

	totalEvents, err := h.queries.CountEvents(r.Context(), store.CountEventsParams{
		Level:    level,
		Category: category,
	})
	if err != nil {
		logAndInternalError(w, "failed to count events", "error", err)
		return
	}

	page, _ := NormalizePagination(ParsePageParam(r), int(totalEvents), EventsPerPage)

	rows, err := h.queries.ListEvents(r.Context(), store.ListEventsParams{
		Level:    level,
		Category: category,
		Limit:    EventsPerPage,
		Offset:   int64((page - 1) * EventsPerPage),
	})
	if err != nil {
		logAndInternalError(w, "failed to list events", "error", err)
		return
	}

	events := make([]EventRow, len(rows))
	for i, row := range rows {
		details := formatMetadata(row.Metadata)
		events[i] = EventRow{
			ID:          row.ID,
			Level:       row.Level,
			Category:    row.Category,
			Message:     row.Message,
			Details:     details,
			DetailsLong: len(details) > detailsLengthThreshold,
			CreatedAt:   row.CreatedAt,
			UserEmail:   row.UserEmail.String,
			IP:          row.IpAddress,
			RequestURL:  row.RequestUrl,
		}
	}

	renderPage(w, r, h.renderer, http.StatusOK, TemplateEvents, render.TemplateData{
		Title: "events.title",
		Data: EventsListData{
			Events:      events,
			TotalEvents: totalEvents,
			Level:       level,
			Category:    category,
			Levels:      model.EventLevels,
			Categories:  model.EventCategories,
			Pagination:  BuildPagination(page, int(totalEvents), EventsPerPage, RouteEvents, r.URL.Query()),
		},
	})
}
