// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth restores, establishes and clears the authenticated session of
// a browser, and decides which routes that session may reach.
//
// The backend bearer token never leaves the server: it is kept in the
// server-side session and the browser only holds the opaque session cookie.
package auth

// User is the authenticated principal as reported by the backend.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// DisplayName returns the name to show in the navbar.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session pairs the backend token with the user it belongs to.
// The zero value is the anonymous session.
type Session struct {
	Token string
	User  *User
}

// IsAdmin reports whether the session belongs to an administrator.
// It is false whenever there is no user.
func (s Session) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin
}

// IsAuthenticated reports whether the session carries both a token and a user.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// UserID returns the user id or an empty string for anonymous sessions.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
