// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmce/setores-web/internal/model"
	"github.com/pmce/setores-web/internal/service"
	"github.com/pmce/setores-web/internal/store"
	"github.com/pmce/setores-web/internal/testutil"
)

type fakeEvents struct {
	deleted    int64
	err        error
	olderThan  time.Duration
	systemLogs []string
}

func (f *fakeEvents) DeleteOldEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.deleted, f.err
}

func (f *fakeEvents) LogSystemEvent(_ context.Context, _, message string, _ map[string]any) error {
	f.systemLogs = append(f.systemLogs, message)
	return nil
}

func TestNew(t *testing.T) {
	logger := testutil.TestLoggerSilent()

	s := New(&fakeEvents{}, 24*time.Hour, logger)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger != logger {
		t.Error("New() scheduler has wrong logger")
	}

	if s := New(nil, 0, nil); s.logger == nil {
		t.Error("New() should default the logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(&fakeEvents{}, 24*time.Hour, testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("jobs = %d, want 1", n)
	}
	s.Stop()
}

func TestScheduler_StartWithoutRetention(t *testing.T) {
	s := New(&fakeEvents{}, 0, testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if n := len(s.cron.Entries()); n != 0 {
		t.Errorf("jobs = %d, want 0 when retention is disabled", n)
	}
	s.Stop()
}

func TestPurgeOldEvents(t *testing.T) {
	events := &fakeEvents{deleted: 3}
	s := New(events, 90*24*time.Hour, testutil.TestLoggerSilent())

	deleted, err := s.PurgeOldEvents(context.Background())
	if err != nil {
		t.Fatalf("PurgeOldEvents() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if events.olderThan != 90*24*time.Hour {
		t.Errorf("olderThan = %v", events.olderThan)
	}
	if len(events.systemLogs) != 1 || events.systemLogs[0] != "Old events purged" {
		t.Errorf("system logs = %v", events.systemLogs)
	}
}

func TestPurgeOldEvents_NothingToDelete(t *testing.T) {
	events := &fakeEvents{}
	s := New(events, time.Hour, testutil.TestLoggerSilent())

	if _, err := s.PurgeOldEvents(context.Background()); err != nil {
		t.Fatalf("PurgeOldEvents() error = %v", err)
	}
	if len(events.systemLogs) != 0 {
		t.Errorf("no purge event expected, got %v", events.systemLogs)
	}
}

func TestPurgeOldEvents_Error(t *testing.T) {
	s := New(&fakeEvents{err: errors.New("database is locked")}, time.Hour, testutil.TestLoggerSilent())

	if _, err := s.PurgeOldEvents(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestPurgeOldEvents_EventService(t *testing.T) {
	db := testutil.TestDB(t)

	queries := store.New(db)
	ctx := context.Background()
	for _, at := range []time.Time{time.Now().Add(-200 * 24 * time.Hour), time.Now()} {
		if _, err := queries.CreateEvent(ctx, store.CreateEventParams{
			Level:     model.EventLevelInfo,
			Category:  model.EventCategoryAuth,
			Message:   "User logged in",
			Metadata:  "{}",
			CreatedAt: at.UTC(),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	s := New(service.NewEventService(db), 90*24*time.Hour, testutil.TestLoggerSilent())
	deleted, err := s.PurgeOldEvents(ctx)
	if err != nil {
		t.Fatalf("PurgeOldEvents() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	total, err := queries.CountEvents(ctx, store.CountEventsParams{})
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	// The recent event plus the purge record.
	if total != 2 {
		t.Errorf("remaining events = %d, want 2", total)
	}
}
