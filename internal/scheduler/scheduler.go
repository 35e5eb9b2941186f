// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs of the local database.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pmce/setores-web/internal/logging"
	"github.com/pmce/setores-web/internal/model"
)

// PurgeSchedule runs the event purge once a day, outside working hours.
const PurgeSchedule = "15 3 * * *"

// purgeTimeout bounds a single purge run.
const purgeTimeout = 2 * time.Minute

// EventStore is the part of the event log the scheduler maintains.
type EventStore interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
	LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error
}

// Scheduler handles scheduled tasks like purging old events.
type Scheduler struct {
	events    EventStore
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a new scheduler instance. Events older than retention are
// removed on every purge; a retention of zero disables the purge job.
func New(events EventStore, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		events:    events,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if s.retention > 0 && s.events != nil {
		_, err := s.cron.AddFunc(PurgeSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
			defer cancel()
			if _, err := s.PurgeOldEvents(ctx); err != nil {
				s.logger.Error("failed to purge old events", "error", err,
					logging.AttrCategory, model.EventCategorySystem)
			}
		})
		if err != nil {
			return fmt.Errorf("adding purge job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "event_retention", s.retention.String())
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PurgeOldEvents deletes events older than the retention period and records
// the purge when anything was removed.
func (s *Scheduler) PurgeOldEvents(ctx context.Context) (int64, error) {
	deleted, err := s.events.DeleteOldEvents(ctx, s.retention)
	if err != nil {
		return 0, fmt.Errorf("deleting old events: %w", err)
	}
	if deleted == 0 {
		return 0, nil
	}

	s.logger.Info("old events purged", "deleted", deleted, "retention", s.retention.String(),
		logging.AttrCategory, model.EventCategorySystem, logging.AttrRecorded, true)
	if err := s.events.LogSystemEvent(ctx, model.EventLevelInfo, "Old events purged", map[string]any{
		"deleted":        deleted,
		"retention_days": int(s.retention.Hours() / 24),
	}); err != nil {
		s.logger.Warn("failed to record purge event", "error", err)
	}
	return deleted, nil
}
