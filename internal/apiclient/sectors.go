// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/pmce/setores-web/internal/sector"
)

// ErrEmptyID is returned when an operation needs a sector id and got none.
var ErrEmptyID = errors.New("sector id is required")

func sectorPath(id string) string {
	return "/sectors/" + url.PathEscape(id)
}

// ListSectors fetches every sector.
func (c *Client) ListSectors(ctx context.Context) ([]sector.Sector, error) {
	var sectors []sector.Sector
	if err := c.do(ctx, "list sectors", http.MethodGet, "/sectors", nil, &sectors); err != nil {
		return nil, err
	}
	if sectors == nil {
		sectors = []sector.Sector{}
	}
	return sectors, nil
}

// GetSector fetches one sector by id.
func (c *Client) GetSector(ctx context.Context, id string) (sector.Sector, error) {
	if id == "" {
		return sector.Sector{}, ErrEmptyID
	}
	var s sector.Sector
	if err := c.do(ctx, "get sector", http.MethodGet, sectorPath(id), nil, &s); err != nil {
		return sector.Sector{}, err
	}
	return s, nil
}

// CreateSector creates a sector and returns the stored record.
func (c *Client) CreateSector(ctx context.Context, s sector.Sector) (sector.Sector, error) {
	s.ID = ""
	var created sector.Sector
	if err := c.do(ctx, "create sector", http.MethodPost, "/sectors", s, &created); err != nil {
		return sector.Sector{}, err
	}
	return created, nil
}

// UpdateSector replaces the sector with id and returns the stored record.
func (c *Client) UpdateSector(ctx context.Context, id string, s sector.Sector) (sector.Sector, error) {
	if id == "" {
		return sector.Sector{}, ErrEmptyID
	}
	s.ID = ""
	var updated sector.Sector
	if err := c.do(ctx, "update sector", http.MethodPut, sectorPath(id), s, &updated); err != nil {
		return sector.Sector{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	return updated, nil
}

// DeleteSector removes the sector with id. Any 2xx counts as success,
// with or without a body.
func (c *Client) DeleteSector(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.do(ctx, "delete sector", http.MethodDelete, sectorPath(id), nil, nil)
}
