// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sector holds the sector records managed through the backend API and
// the per-browser state of the list and form views.
package sector

import "encoding/json"

// Sector is a police sector (battalion or company) with its subordinate units.
// ID is empty until the backend has created the record.
type Sector struct {
	ID        string    `json:"_id,omitempty"`
	Battalion string    `json:"battalion"`
	Commander string    `json:"commander"`
	Phone     string    `json:"phone"`
	AIS       string    `json:"ais"`
	SubItems  []SubUnit `json:"subitems"`
}

// SubUnit is a subordinate unit embedded in its sector. Name is mandatory.
type SubUnit struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// UnmarshalJSON accepts "id" as a fallback for "_id" and a null subitems list.
func (s *Sector) UnmarshalJSON(data []byte) error {
	type plain Sector
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Sector(aux.plain)
	if s.ID == "" {
		s.ID = aux.AltID
	}
	if s.SubItems == nil {
		s.SubItems = []SubUnit{}
	}
	return nil
}

// IsNew reports whether the sector has not been persisted yet.
func (s Sector) IsNew() bool {
	return s.ID == ""
}

// FindIndex returns the position of the sector with id, or -1.
func FindIndex(sectors []Sector, id string) int {
	for i := range sectors {
		if sectors[i].ID == id {
			return i
		}
	}
	return -1
}
