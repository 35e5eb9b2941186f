// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds the shared constants of the local event log.
package model

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth   = "auth"
	EventCategorySector = "sector"
	EventCategoryAPI    = "api"
	EventCategorySystem = "system"
	EventCategoryCache  = "cache"
)

// EventLevels lists all levels in display order.
var EventLevels = []string{EventLevelInfo, EventLevelWarning, EventLevelError}

// EventCategories lists all categories in display order.
var EventCategories = []string{
	EventCategoryAuth,
	EventCategorySector,
	EventCategoryAPI,
	EventCategorySystem,
	EventCategoryCache,
}

// IsValidEventLevel reports whether level is a known event level.
func IsValidEventLevel(level string) bool {
	for _, l := range EventLevels {
		if l == level {
			return true
		}
	}
	return false
}

// IsValidEventCategory reports whether category is a known event category.
func IsValidEventCategory(category string) bool {
	for _, c := range EventCategories {
		if c == category {
			return true
		}
	}
	return false
}
