// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Pagination holds pagination data for list templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	PerPage     int
	HasPrev     bool
	HasNext     bool
	Pages       []PaginationPage
	BaseURL     string
	QueryString string
}

// PaginationPage represents a single page link.
type PaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination creates pagination data for templates.
// baseURL is the path without query string (e.g., "/events");
// queryParams are the current query parameters to preserve (e.g., filters).
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, queryParams url.Values) Pagination {
	totalPages := CalculateTotalPages(totalItems, perPage)

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  int64(totalItems),
		PerPage:     perPage,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		BaseURL:     baseURL,
	}

	params := make(url.Values)
	for k, v := range queryParams {
		if k != "page" && len(v) > 0 && v[0] != "" {
			params[k] = v
		}
	}
	if len(params) > 0 {
		p.QueryString = params.Encode()
	}

	// At most five numbered links around the current page.
	start := max(currentPage-2, 1)
	end := min(start+4, totalPages)
	start = max(end-4, 1)

	if start > 1 {
		p.Pages = append(p.Pages, PaginationPage{Number: 1, URL: p.PageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PaginationPage{Number: i, URL: p.PageURL(i), IsCurrent: i == currentPage})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PaginationPage{Number: totalPages, URL: p.PageURL(totalPages)})
	}

	return p
}

// PageURL returns the URL for a specific page number.
func (p Pagination) PageURL(page int) string {
	if p.QueryString != "" {
		return fmt.Sprintf("%s?%s&page=%d", p.BaseURL, p.QueryString, page)
	}
	return fmt.Sprintf("%s?page=%d", p.BaseURL, page)
}

// PrevURL returns the URL for the previous page.
func (p Pagination) PrevURL() string {
	return p.PageURL(p.CurrentPage - 1)
}

// NextURL returns the URL for the next page.
func (p Pagination) NextURL() string {
	return p.PageURL(p.CurrentPage + 1)
}

// ShouldShow returns true if there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// CalculateTotalPages returns the number of pages, never less than 1.
func CalculateTotalPages(totalItems, perPage int) int {
	if perPage <= 0 || totalItems <= 0 {
		return 1
	}
	return (totalItems + perPage - 1) / perPage
}

// NormalizePagination clamps page into [1, totalPages].
func NormalizePagination(page, totalItems, perPage int) (normalizedPage, totalPages int) {
	totalPages = CalculateTotalPages(totalItems, perPage)
	return min(max(page, 1), totalPages), totalPages
}

// ParsePageParam parses the "page" query parameter.
// Returns 1 if the parameter is missing, empty, or invalid.
func ParsePageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
