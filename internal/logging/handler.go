// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors warnings and errors
// into the local event log.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/store"
)

// Attribute keys that are stored in dedicated event columns instead of metadata.
const (
	AttrCategory   = "category"
	AttrUserID     = "user_id"
	AttrUserEmail  = "user_email"
	AttrIP         = "ip"
	AttrRequestURL = "request_url"

	// AttrRecorded marks a record whose event was already written by the
	// caller; the handler then only forwards it to the inner handler.
	AttrRecorded = "event_recorded"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
	group   string
}

// NewEventLogHandler creates a handler that records WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, h.qualify(a))
	}
	return c
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.inner = h.inner.WithGroup(name)
	if name != "" {
		c.group = h.qualifiedKey(name)
	}
	return c
}

func (h *EventLogHandler) clone() *EventLogHandler {
	return &EventLogHandler{
		inner:   h.inner,
		queries: h.queries,
		level:   h.level,
		attrs:   append([]slog.Attr(nil), h.attrs...),
		group:   h.group,
	}
}

func (h *EventLogHandler) qualifiedKey(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func (h *EventLogHandler) qualify(a slog.Attr) slog.Attr {
	return slog.Attr{Key: h.qualifiedKey(a.Key), Value: a.Value}
}

// eventFields is the record flattened into event columns.
type eventFields struct {
	category   string
	userID     string
	userEmail  string
	ip         string
	requestURL string
	recorded   bool
	metadata   map[string]any
}

func (f *eventFields) add(a slog.Attr) {
	a.Value = a.Value.Resolve()
	switch a.Key {
	case AttrCategory:
		f.category = a.Value.String()
	case AttrUserID:
		f.userID = a.Value.String()
	case AttrUserEmail:
		f.userEmail = a.Value.String()
	case AttrIP:
		f.ip = a.Value.String()
	case AttrRequestURL:
		f.requestURL = a.Value.String()
	case AttrRecorded:
		f.recorded = a.Value.Kind() == slog.KindBool && a.Value.Bool()
	default:
		if a.Key == "" {
			return
		}
		if a.Value.Kind() == slog.KindGroup {
			for _, ga := range a.Value.Group() {
				f.add(slog.Attr{Key: a.Key + "." + ga.Key, Value: ga.Value})
			}
			return
		}
		f.metadata[a.Key] = a.Value.String()
	}
}

// writeToEventLog writes a log record to the event log. It uses a background
// context so records survive a cancelled request.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	f := eventFields{metadata: map[string]any{}}
	for _, a := range h.attrs {
		f.add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.qualify(a))
		return true
	})
	if f.recorded {
		return
	}
	if f.category == "" || !model.IsValidEventCategory(f.category) {
		f.category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(f.metadata) > 0 {
		if b, err := json.Marshal(f.metadata); err == nil {
			metadata = string(b)
		}
	}

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:      slogLevelToEventLevel(r.Level),
		Category:   f.category,
		Message:    r.Message,
		UserID:     nullString(f.userID),
		UserEmail:  nullString(f.userEmail),
		IpAddress:  f.ip,
		RequestUrl: f.requestURL,
		Metadata:   metadata,
		CreatedAt:  r.Time.UTC(),
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from keywords in the message.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "auth", "login", "logout", "session", "token", "access denied"):
		return model.EventCategoryAuth
	case containsAny(msg, "sector", "setor", "sub-unit"):
		return model.EventCategorySector
	case containsAny(msg, "backend", "api"):
		return model.EventCategoryAPI
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
