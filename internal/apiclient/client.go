// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apiclient talks to the sectors REST backend on behalf of the
// browser session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Defaults
const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 10 * time.Second
	UserAgent      = "setores-web/1.0"
	MaxResponseLen = 4 << 20 // 4MB
)

// TokenSource yields the bearer token for the request in ctx.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client is a thin typed wrapper over the backend REST API.
// It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	tokens    TokenSource
}

// New creates a Client. A nil TokenSource sends every request unauthenticated.
func New(cfg Config, tokens TokenSource) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = UserAgent
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	if tokens == nil {
		tokens = TokenFunc(func(context.Context) string { return "" })
	}

	return &Client{
		baseURL:   baseURL,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout, Transport: transport},
		tokens:    tokens,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks that the backend answers at all. Any HTTP response counts as
// reachable; only a NetworkError is reported.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/sectors", nil)
	if err != nil {
		return fmt.Errorf("ping: creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	_ = resp.Body.Close()
	return nil
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, Status: resp.StatusCode, Body: data}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		if out != nil {
			return &DecodeError{Op: op, Err: io.ErrUnexpectedEOF}
		}
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
