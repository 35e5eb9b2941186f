// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pmce/setores-web/internal/auth"
)

// Credentials are posted to /users/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the issued token and, when the backend sends one,
// the user record. User is nil when the payload had no usable user.
type LoginResult struct {
	Token string
	User  *auth.User
}

type loginResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// Login exchanges credentials for a bearer token. The request is sent
// without an Authorization header.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	anon := &Client{baseURL: c.baseURL, userAgent: c.userAgent, http: c.http, tokens: TokenFunc(noToken)}

	var resp loginResponse
	if err := anon.do(ctx, "login", http.MethodPost, "/users/login", creds, &resp); err != nil {
		return LoginResult{}, err
	}

	result := LoginResult{Token: strings.TrimSpace(resp.Token)}
	if result.Token == "" {
		return LoginResult{}, &DecodeError{Op: "login", Err: auth.ErrEmptyToken}
	}
	result.User = parseLoginUser(resp.User)
	return result, nil
}

func noToken(context.Context) string { return "" }

// parseLoginUser accepts id or _id, name, email, and isAdmin, admin or role.
// The id may be missing. A payload that is not an object, has mistyped fields
// or names nobody yields nil so the user is decoded from the token instead.
func parseLoginUser(raw json.RawMessage) *auth.User {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	user, err := auth.UserFromMap(m)
	if err != nil {
		return nil
	}
	return user
}
