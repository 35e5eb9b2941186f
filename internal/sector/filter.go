// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sector

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Field selects which sector attribute a search term is matched against.
type Field string

// Searchable fields.
const (
	FieldAll       Field = "all"
	FieldBattalion Field = "battalion"
	FieldCommander Field = "commander"
	FieldPhone     Field = "phone"
	FieldAIS       Field = "ais"
)

// Fields lists the filter options in display order.
var Fields = []Field{FieldAll, FieldBattalion, FieldCommander, FieldPhone, FieldAIS}

// ParseField maps a query value to a Field. Unknown values mean FieldAll.
func ParseField(s string) Field {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldBattalion, FieldCommander, FieldPhone, FieldAIS:
		return f
	default:
		return FieldAll
	}
}

// Filter returns the sectors whose field contains term. Matching ignores
// case, accents and surrounding whitespace of the term. An empty term
// returns every sector. The input slice is never modified.
func Filter(sectors []Sector, term string, field Field) []Sector {
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		out := make([]Sector, len(sectors))
		copy(out, sectors)
		return out
	}

	field = ParseField(string(field))
	out := make([]Sector, 0, len(sectors))
	for _, s := range sectors {
		if matches(s, needle, field) {
			out = append(out, s)
		}
	}
	return out
}

func matches(s Sector, needle string, field Field) bool {
	switch field {
	case FieldBattalion:
		return contains(s.Battalion, needle)
	case FieldCommander:
		return contains(s.Commander, needle)
	case FieldPhone:
		return contains(s.Phone, needle)
	case FieldAIS:
		return contains(s.AIS, needle)
	default:
		return contains(s.Battalion, needle) ||
			contains(s.Commander, needle) ||
			contains(s.Phone, needle) ||
			contains(s.AIS, needle)
	}
}

func contains(value, needle string) bool {
	return strings.Contains(fold(value), needle)
}

// fold lowercases s and strips diacritics so "Batalhão" matches "batalhao".
func fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
