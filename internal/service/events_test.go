// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/pmce/setores-web/internal/auth"
	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/store"
	"github.com/pmce/setores-web/internal/testutil"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

func listAll(t *testing.T, db *sql.DB) []store.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), store.ListEventsParams{Limit: 100})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestLogEvent(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)

	user := &auth.User{ID: "u-1", Email: "admin@pmce.gov.br", IsAdmin: true}
	origin := Origin{IP: "192.168.1.100", RequestURL: "/sectors/novo"}
	err := svc.LogEvent(context.Background(), model.EventLevelInfo, model.EventCategorySector,
		"Sector created", user, origin, map[string]any{"battalion": "5º BPM"})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events := listAll(t, db)
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	e := events[0]
	if e.Category != model.EventCategorySector || e.Level != model.EventLevelInfo {
		t.Errorf("level/category = %s/%s", e.Level, e.Category)
	}
	if !e.UserID.Valid || e.UserID.String != "u-1" {
		t.Errorf("UserID = %+v, want u-1", e.UserID)
	}
	if !e.UserEmail.Valid || e.UserEmail.String != "admin@pmce.gov.br" {
		t.Errorf("UserEmail = %+v", e.UserEmail)
	}
	if e.IpAddress != "192.168.1.100" || e.RequestUrl != "/sectors/novo" {
		t.Errorf("origin = %q %q", e.IpAddress, e.RequestUrl)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["battalion"] != "5º BPM" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestLogEvent_Anonymous(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)

	if err := svc.LogAuthEvent(context.Background(), model.EventLevelWarning, "Login failed", nil, Origin{IP: "10.0.0.1"}, nil); err != nil {
		t.Fatalf("LogAuthEvent: %v", err)
	}

	e := listAll(t, db)[0]
	if e.UserID.Valid || e.UserEmail.Valid {
		t.Errorf("anonymous event should have null user, got %+v %+v", e.UserID, e.UserEmail)
	}
	if e.Metadata != "{}" {
		t.Errorf("Metadata = %q, want {}", e.Metadata)
	}
	if e.Category != model.EventCategoryAuth {
		t.Errorf("Category = %q", e.Category)
	}
}

func TestLogEvent_UserAgent(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)

	origin := Origin{IP: "10.0.0.1", UserAgent: firefoxUA}
	if err := svc.LogAPIEvent(context.Background(), model.EventLevelError, "Backend unreachable", nil, origin, nil); err != nil {
		t.Fatalf("LogAPIEvent: %v", err)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(listAll(t, db)[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta["browser"] != "Firefox" {
		t.Errorf("browser = %v, want Firefox", meta["browser"])
	}
	if meta["device"] != "desktop" {
		t.Errorf("device = %v, want desktop", meta["device"])
	}
}

func TestUserAgentMetadata_Empty(t *testing.T) {
	if meta := UserAgentMetadata(""); len(meta) != 0 {
		t.Errorf("UserAgentMetadata(\"\") = %v, want empty", meta)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewEventService(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now.AddDate(0, 0, -100) }
	if err := svc.LogSystemEvent(ctx, model.EventLevelInfo, "old", nil); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return now }
	if err := svc.LogSystemEvent(ctx, model.EventLevelInfo, "fresh", nil); err != nil {
		t.Fatal(err)
	}

	deleted, err := svc.DeleteOldEvents(ctx, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	events := listAll(t, db)
	if len(events) != 1 || events[0].Message != "fresh" {
		t.Errorf("remaining = %+v, want only fresh", events)
	}
}
