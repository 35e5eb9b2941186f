// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the local audit trail: authentication outcomes,
// sector mutations and guard denials are recorded as events.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
		now:     time.Now,
	}
}

// Origin describes where an event came from.
type Origin struct {
	IP         string
	RequestURL string
	UserAgent  string
}

// LogEvent creates a new event log entry. A nil user records an anonymous event.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, user *auth.User, origin Origin, metadata map[string]any) error {
	var userID, userEmail sql.NullString
	if user != nil {
		userID = sql.NullString{String: user.ID, Valid: user.ID != ""}
		userEmail = sql.NullString{String: user.Email, Valid: user.Email != ""}
	}

	if origin.UserAgent != "" {
		if metadata == nil {
			metadata = make(map[string]any, 3)
		}
		for k, v := range UserAgentMetadata(origin.UserAgent) {
			if _, exists := metadata[k]; !exists {
				metadata[k] = v
			}
		}
	}

	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		UserID:     userID,
		UserEmail:  userEmail,
		IpAddress:  origin.IP,
		RequestUrl: origin.RequestURL,
		Metadata:   metadataJSON,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		// Not slog.Error: the event log handler would try to record this too.
		slog.Debug("failed to log event", "error", err, "message", message)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, user *auth.User, origin Origin, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, user, origin, metadata)
}

// LogSectorEvent logs a sector mutation.
func (s *EventService) LogSectorEvent(ctx context.Context, level, message string, user *auth.User, origin Origin, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySector, message, user, origin, metadata)
}

// LogAPIEvent logs a backend failure.
func (s *EventService) LogAPIEvent(ctx context.Context, level, message string, user *auth.User, origin Origin, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAPI, message, user, origin, metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, nil, Origin{}, metadata)
}

// DeleteOldEvents removes events older than the specified duration and
// returns how many were removed.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UTC()
	return s.queries.DeleteOldEvents(ctx, cutoff)
}

// UserAgentMetadata summarizes a User-Agent header for the event metadata.
func UserAgentMetadata(header string) map[string]any {
	ua := useragent.Parse(header)
	meta := map[string]any{}
	if ua.Name != "" {
		meta["browser"] = ua.Name
	}
	if ua.OS != "" {
		meta["os"] = ua.OS
	}
	switch {
	case ua.Bot:
		meta["device"] = "bot"
	case ua.Mobile:
		meta["device"] = "mobile"
	case ua.Tablet:
		meta["device"] = "tablet"
	case ua.Desktop:
		meta["device"] = "desktop"
	}
	return meta
}
