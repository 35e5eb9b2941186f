// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const countEvents = `-- name: CountEvents :one
SELECT COUNT(*) FROM events
WHERE (?1 = '' OR level = ?1)
  AND (?2 = '' OR category = ?2)
`

type CountEventsParams struct {
	Level    string `json:"level"`
	Category string `json:"category"`
}

// CountEvents counts events, optionally filtered by level and category.
// An empty filter value matches every row.
func (q *Queries) CountEvents(ctx context.Context, arg CountEventsParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countEvents, arg.Level, arg.Category)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createEvent = `-- name: CreateEvent :one
INSERT INTO events (level, category, message, user_id, user_email, ip_address, request_url, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, user_email, ip_address, request_url, metadata, created_at
`

type CreateEventParams struct {
	Level      string         `json:"level"`
	Category   string         `json:"category"`
	Message    string         `json:"message"`
	UserID     sql.NullString `json:"user_id"`
	UserEmail  sql.NullString `json:"user_email"`
	IpAddress  string         `json:"ip_address"`
	RequestUrl string         `json:"request_url"`
	Metadata   string         `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.UserID,
		arg.UserEmail,
		arg.IpAddress,
		arg.RequestUrl,
		arg.Metadata,
		arg.CreatedAt,
	)
	var i Event
	err := row.Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.UserID,
		&i.UserEmail,
		&i.IpAddress,
		&i.RequestUrl,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const deleteOldEvents = `-- name: DeleteOldEvents :execrows
DELETE FROM events WHERE created_at < ?
`

// DeleteOldEvents removes events created before cutoff and reports how many were removed.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOldEvents, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, user_id, user_email, ip_address, request_url, metadata, created_at
FROM events
WHERE (?1 = '' OR level = ?1)
  AND (?2 = '' OR category = ?2)
ORDER BY created_at DESC, id DESC
LIMIT ?3 OFFSET ?4
`

type ListEventsParams struct {
	Level    string `json:"level"`
	Category string `json:"category"`
	Limit    int64  `json:"limit"`
	Offset   int64  `json:"offset"`
}

// ListEvents returns the newest events first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents,
		arg.Level,
		arg.Category,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []Event{}
	for rows.Next() {
		var i Event
		if err := rows.Scan(
			&i.ID,
			&i.Level,
			&i.Category,
			&i.Message,
			&i.UserID,
			&i.UserEmail,
			&i.IpAddress,
			&i.RequestUrl,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
