// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_NormalRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	Timeout(5*time.Second)(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "protected content" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestTimeout_SlowHandler(t *testing.T) {
	writeErr := make(chan error, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(50 * time.Millisecond)
		_, err := w.Write([]byte("too late"))
		writeErr <- err
	})

	rr := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/sectors", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
	if err := <-writeErr; !errors.Is(err, http.ErrHandlerTimeout) {
		t.Errorf("late write error = %v, want ErrHandlerTimeout", err)
	}
	if rr.Body.String() != "Request timeout" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestTimeout_PanicPropagates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	defer func() {
		if p := recover(); p != "boom" {
			t.Errorf("recovered %v, want boom", p)
		}
	}()
	Timeout(time.Second)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("panic was swallowed")
}

func TestTimeoutWriter_SingleHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	tw := &timeoutWriter{ResponseWriter: rr}

	tw.WriteHeader(http.StatusCreated)
	tw.WriteHeader(http.StatusInternalServerError)
	_, _ = tw.Write([]byte("ok"))

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
}
