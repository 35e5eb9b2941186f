// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError means no response was received: dial failure, timeout or a
// cancelled request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError means the backend answered with a non-2xx status.
type APIError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Message returns the backend's "message" or "error" field when the body is
// a JSON object carrying one.
func (e *APIError) Message() string {
	if len(e.Body) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "msg"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// DecodeError means a 2xx response carried a payload that could not be read.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decoding response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Status returns the HTTP status of an *APIError in err's chain, or 0.
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuth reports a 401 or 403 from the backend.
func IsAuth(err error) bool {
	s := Status(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	return Status(err) == http.StatusNotFound
}

// IsServer reports a 5xx status or a malformed payload.
func IsServer(err error) bool {
	if Status(err) >= 500 {
		return true
	}
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// IsNetwork reports that no response was received.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Message returns the backend-provided message for err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return ""
}
