// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Event struct {
	ID         int64          `json:"id"`
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
