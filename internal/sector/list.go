// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sector

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmce/setores-web/internal/auth"
)

// List view errors.
var (
	ErrNotConfirmed = errors.New("deletion not confirmed")
	ErrNotAdmin     = errors.New("administrator permission required")
)

// Lister fetches every sector.
type Lister interface {
	ListSectors(ctx context.Context) ([]Sector, error)
}

// Deleter removes a sector by id.
type Deleter interface {
	DeleteSector(ctx context.Context, id string) error
}

// ListView is the state of the sector list for one browser. It is stored
// between requests so row toggles and deletes do not refetch.
type ListView struct {
	Sectors  []Sector        `json:"sectors"`
	Term     string          `json:"term"`
	Field    Field           `json:"field"`
	Expanded map[string]bool `json:"expanded"`

	Loading bool  `json:"-"`
	Err     error `json:"-"`
}

// NewListView returns an empty list view filtering on all fields.
func NewListView() *ListView {
	return &ListView{
		Sectors:  []Sector{},
		Field:    FieldAll,
		Expanded: map[string]bool{},
	}
}

// Mount fetches all sectors. On failure Err is set and the current rows
// are kept.
func (v *ListView) Mount(ctx context.Context, api Lister) error {
	v.Loading = true
	defer func() { v.Loading = false }()

	sectors, err := api.ListSectors(ctx)
	if err != nil {
		v.Err = err
		return fmt.Errorf("loading sectors: %w", err)
	}

	v.Err = nil
	v.Sectors = sectors
	v.pruneExpanded()
	return nil
}

// SetFilter updates the search term and field.
func (v *ListView) SetFilter(term string, field Field) {
	v.Term = term
	v.Field = ParseField(string(field))
}

// Visible returns the sectors matching the current filter.
func (v *ListView) Visible() []Sector {
	return Filter(v.Sectors, v.Term, v.Field)
}

// Toggle flips the sub-unit expansion of the row with id.
func (v *ListView) Toggle(id string) {
	if v.Expanded == nil {
		v.Expanded = map[string]bool{}
	}
	if v.Expanded[id] {
		delete(v.Expanded, id)
		return
	}
	v.Expanded[id] = true
}

// IsExpanded reports whether the row with id shows its sub-units.
func (v *ListView) IsExpanded(id string) bool {
	return v.Expanded[id]
}

// Find returns the sector with id from the loaded rows.
func (v *ListView) Find(id string) (Sector, bool) {
	if i := FindIndex(v.Sectors, id); i >= 0 {
		return v.Sectors[i], true
	}
	return Sector{}, false
}

// Delete removes the sector with id through api. It requires an explicit
// confirmation and an administrator session. On success exactly that row is
// dropped from the local rows; on failure Err is set and rows are unchanged.
func (v *ListView) Delete(ctx context.Context, api Deleter, sess auth.Session, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if !sess.IsAdmin() {
		v.Err = ErrNotAdmin
		return ErrNotAdmin
	}

	if err := api.DeleteSector(ctx, id); err != nil {
		v.Err = err
		return fmt.Errorf("deleting sector %s: %w", id, err)
	}

	v.Err = nil
	if i := FindIndex(v.Sectors, id); i >= 0 {
		v.Sectors = append(v.Sectors[:i:i], v.Sectors[i+1:]...)
	}
	delete(v.Expanded, id)
	return nil
}

func (v *ListView) pruneExpanded() {
	for id := range v.Expanded {
		if FindIndex(v.Sectors, id) < 0 {
			delete(v.Expanded, id)
		}
	}
}
