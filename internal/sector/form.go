// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package sector

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// ErrSubUnitNameRequired is returned when a sub-unit is added without a name.
var ErrSubUnitNameRequired = errors.New("sub-unit name is required")

// Validation message keys, resolved through i18n by the views.
const (
	MsgBattalionRequired = "validation.battalion_required"
	MsgCommanderRequired = "validation.commander_required"
	MsgPhoneRequired     = "validation.phone_required"
	MsgAISRequired       = "validation.ais_required"
)

// ValidationError carries per-field message keys.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid sector: " + strings.Join(names, ", ") + " required"
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// Getter fetches one sector by id.
type Getter interface {
	GetSector(ctx context.Context, id string) (Sector, error)
}

// Saver persists a sector.
type Saver interface {
	CreateSector(ctx context.Context, s Sector) (Sector, error)
	UpdateSector(ctx context.Context, id string, s Sector) (Sector, error)
}

// Form is the draft of a sector being created or edited. ID is the record
// being edited and is empty in create mode.
type Form struct {
	ID     string
	Sector Sector
	Err    error
}

// NewForm returns an empty create-mode draft.
func NewForm() *Form {
	return &Form{Sector: Sector{SubItems: []SubUnit{}}}
}

// LoadForm fetches the sector with id and returns an edit-mode draft.
func LoadForm(ctx context.Context, api Getter, id string) (*Form, error) {
	s, err := api.GetSector(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading sector %s: %w", id, err)
	}
	s.SubItems = slices.Clone(s.SubItems)
	if s.SubItems == nil {
		s.SubItems = []SubUnit{}
	}
	// Sub-units the backend sent without an id get their temporary id here,
	// before the first render, so remove actions refer to a stable id.
	for i := range s.SubItems {
		if s.SubItems[i].ID == "" {
			s.SubItems[i].ID = uuid.NewString()
		}
	}
	return &Form{ID: id, Sector: s}, nil
}

// IsEdit reports whether the form edits an existing record.
func (f *Form) IsEdit() bool {
	return f.ID != ""
}

// Validate requires battalion, commander, phone and AIS.
func (f *Form) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(f.Sector.Battalion) == "" {
		fields["battalion"] = MsgBattalionRequired
	}
	if strings.TrimSpace(f.Sector.Commander) == "" {
		fields["commander"] = MsgCommanderRequired
	}
	if strings.TrimSpace(f.Sector.Phone) == "" {
		fields["phone"] = MsgPhoneRequired
	}
	if strings.TrimSpace(f.Sector.AIS) == "" {
		fields["ais"] = MsgAISRequired
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// AddSubUnit appends a sub-unit with a temporary id. It only edits the draft.
func (f *Form) AddSubUnit(name, address, phone string) (SubUnit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SubUnit{}, ErrSubUnitNameRequired
	}
	su := SubUnit{
		ID:      uuid.NewString(),
		Name:    name,
		Address: strings.TrimSpace(address),
		Phone:   strings.TrimSpace(phone),
	}
	f.Sector.SubItems = append(f.Sector.SubItems, su)
	return su, nil
}

// RemoveSubUnit drops the sub-unit with id from the draft.
func (f *Form) RemoveSubUnit(id string) bool {
	for i, su := range f.Sector.SubItems {
		if su.ID == id {
			f.Sector.SubItems = append(f.Sector.SubItems[:i:i], f.Sector.SubItems[i+1:]...)
			return true
		}
	}
	return false
}

// Submit validates the draft and creates or updates it through api.
// Nothing is sent when validation fails. On failure Err is set and the
// draft is left intact.
func (f *Form) Submit(ctx context.Context, api Saver) (Sector, error) {
	if err := f.Validate(); err != nil {
		f.Err = err
		return Sector{}, err
	}

	var (
		saved Sector
		err   error
	)
	if f.IsEdit() {
		saved, err = api.UpdateSector(ctx, f.ID, f.Sector)
	} else {
		saved, err = api.CreateSector(ctx, f.Sector)
	}
	if err != nil {
		f.Err = err
		return Sector{}, fmt.Errorf("saving sector: %w", err)
	}

	f.Err = nil
	return saved, nil
}

// Form field names shared with the templates.
const (
	FieldNameSubID         = "sub_id"
	FieldNameSubName       = "sub_name"
	FieldNameSubAddress    = "sub_address"
	FieldNameSubPhone      = "sub_phone"
	FieldNameNewSubName    = "new_sub_name"
	FieldNameNewSubAddress = "new_sub_address"
	FieldNameNewSubPhone   = "new_sub_phone"
	FieldNameAction        = "action"
)

// Form actions. Remove carries the sub-unit id after a colon.
const (
	ActionSave          = "save"
	ActionAddSubUnit    = "add_sub"
	ActionRemoveSubUnit = "remove_sub"
)

// ParseAction splits a posted action value into its name and argument.
// Unknown or empty actions mean save.
func ParseAction(v string) (action, arg string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(v), ":")
	switch name {
	case ActionAddSubUnit, ActionRemoveSubUnit:
		return name, arg
	default:
		return ActionSave, ""
	}
}

// NewSubUnitInput is the not-yet-added sub-unit typed into the form.
type NewSubUnitInput struct {
	Name    string
	Address string
	Phone   string
}

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize trims s and strips any markup from it.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// ParseValues rebuilds a draft from a posted form. Sub-units travel as
// parallel sub_* lists. Every value is sanitized.
func ParseValues(id string, values url.Values) (*Form, NewSubUnitInput) {
	f := &Form{
		ID: strings.TrimSpace(id),
		Sector: Sector{
			Battalion: Sanitize(values.Get("battalion")),
			Commander: Sanitize(values.Get("commander")),
			Phone:     Sanitize(values.Get("phone")),
			AIS:       Sanitize(values.Get("ais")),
			SubItems:  []SubUnit{},
		},
	}
	f.Sector.ID = f.ID

	ids := values[FieldNameSubID]
	names := values[FieldNameSubName]
	addresses := values[FieldNameSubAddress]
	phones := values[FieldNameSubPhone]
	for i := range ids {
		su := SubUnit{
			ID:      Sanitize(ids[i]),
			Name:    Sanitize(at(names, i)),
			Address: Sanitize(at(addresses, i)),
			Phone:   Sanitize(at(phones, i)),
		}
		if su.Name == "" {
			continue
		}
		if su.ID == "" {
			su.ID = uuid.NewString()
		}
		f.Sector.SubItems = append(f.Sector.SubItems, su)
	}

	pending := NewSubUnitInput{
		Name:    Sanitize(values.Get(FieldNameNewSubName)),
		Address: Sanitize(values.Get(FieldNameNewSubAddress)),
		Phone:   Sanitize(values.Get(FieldNameNewSubPhone)),
	}
	return f, pending
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
