// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripTrailingSlash(t *testing.T) {
	tests := []struct {
		method       string
		target       string
		wantStatus   int
		wantLocation string
	}{
		{http.MethodGet, "/", http.StatusOK, ""},
		{http.MethodGet, "/sectors", http.StatusOK, ""},
		{http.MethodGet, "/sectors/", http.StatusMovedPermanently, "/sectors"},
		{http.MethodGet, "/sectors/?q=norte&field=ais", http.StatusMovedPermanently, "/sectors?q=norte&field=ais"},
		{http.MethodGet, "/sectors//", http.StatusMovedPermanently, "/sectors"},
		{http.MethodPost, "/sectors/novo/", http.StatusPermanentRedirect, "/sectors/novo"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			StripTrailingSlash(okHandler()).ServeHTTP(rr, httptest.NewRequest(tt.method, tt.target, nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
		})
	}
}
