// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/scs/v2"
)

// Session keys holding the persisted credentials.
const (
	SessionKeyToken = "auth_token"
	SessionKeyUser  = "auth_user"
)

// ErrEmptyToken is returned by Login when the backend returned no token.
var ErrEmptyToken = errors.New("empty token")

// ErrSessionCleared wraps the reason a persisted session was discarded.
var ErrSessionCleared = errors.New("persisted session cleared")

// Store persists the token and user snapshot in the server-side session.
// Only Login and Logout write the token; everything else reads it.
type Store struct {
	sessions *scs.SessionManager
	decoder  *Decoder
}

// NewStore creates a Store over the given session manager.
func NewStore(sm *scs.SessionManager, decoder *Decoder) *Store {
	if decoder == nil {
		decoder = NewDecoder("")
	}
	return &Store{sessions: sm, decoder: decoder}
}

// Restore rebuilds the session from persisted state.
//
// A missing token yields the anonymous session with a nil error. When the
// persisted state cannot be trusted it is cleared, the anonymous session is
// returned and the error wraps ErrSessionCleared with the cause.
func (s *Store) Restore(ctx context.Context) (Session, error) {
	token := s.sessions.GetString(ctx, SessionKeyToken)
	if token == "" {
		if s.sessions.Exists(ctx, SessionKeyUser) {
			s.sessions.Remove(ctx, SessionKeyUser)
		}
		return Session{}, nil
	}

	if snapshot := s.sessions.GetString(ctx, SessionKeyUser); snapshot != "" {
		user, err := decodeSnapshot(snapshot)
		if err == nil {
			if err := s.decoder.Validate(token); err != nil {
				s.clear(ctx)
				return Session{}, fmt.Errorf("%w: %w", ErrSessionCleared, err)
			}
			return Session{Token: token, User: user}, nil
		}
		// A broken snapshot falls back to the token claims.
	}

	user, err := s.decoder.Decode(token)
	if err != nil {
		s.clear(ctx)
		return Session{}, fmt.Errorf("%w: %w", ErrSessionCleared, err)
	}

	return Session{Token: token, User: user}, nil
}

// Login persists a freshly issued token. A user returned by the backend
// alongside the token is trusted as is; otherwise the user is decoded from
// the token claims and a decode failure rejects the login.
func (s *Store) Login(ctx context.Context, token string, user *User) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrEmptyToken
	}

	if user == nil {
		decoded, err := s.decoder.Decode(token)
		if err != nil {
			return Session{}, fmt.Errorf("decoding token: %w", err)
		}
		user = decoded
	}

	snapshot, err := json.Marshal(user)
	if err != nil {
		return Session{}, fmt.Errorf("encoding user: %w", err)
	}

	if err := s.sessions.RenewToken(ctx); err != nil {
		return Session{}, fmt.Errorf("renewing session: %w", err)
	}

	s.sessions.Put(ctx, SessionKeyToken, token)
	s.sessions.Put(ctx, SessionKeyUser, string(snapshot))

	return Session{Token: token, User: user}, nil
}

// Logout clears the persisted credentials. The session cookie is rotated so
// the old id cannot be replayed.
func (s *Store) Logout(ctx context.Context) error {
	s.clear(ctx)
	if err := s.sessions.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session: %w", err)
	}
	return nil
}

// Token returns the persisted bearer token, or "" when anonymous.
func (s *Store) Token(ctx context.Context) string {
	return s.sessions.GetString(ctx, SessionKeyToken)
}

func (s *Store) clear(ctx context.Context) {
	s.sessions.Remove(ctx, SessionKeyToken)
	s.sessions.Remove(ctx, SessionKeyUser)
}

func decodeSnapshot(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	if u.ID == "" && u.Email == "" && u.Name == "" {
		return nil, errors.New("empty user snapshot")
	}
	return &u, nil
}
