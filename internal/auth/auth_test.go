// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "backend-signing-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func newTestStore(t *testing.T, secret string) (*Store, *scs.SessionManager, context.Context) {
	t.Helper()
	sm := scs.New()
	sm.Store = memstore.New()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return NewStore(sm, NewDecoder(secret)), sm, ctx
}

// reload commits the session and loads it into a fresh context, as the next
// request would see it.
func reload(t *testing.T, sm *scs.SessionManager, ctx context.Context) context.Context {
	t.Helper()
	token, _, err := sm.Commit(ctx)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	next, err := sm.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return next
}

func TestSession_IsAdminWithoutUser(t *testing.T) {
	tests := []struct {
		name string
		s    Session
		want bool
	}{
		{"anonymous", Session{}, false},
		{"token without user", Session{Token: "abc"}, false},
		{"non-admin", Session{Token: "abc", User: &User{ID: "1"}}, false},
		{"admin", Session{Token: "abc", User: &User{ID: "1", IsAdmin: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecoder_Decode(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name      string
		claims    jwt.MapClaims
		wantErr   error
		wantID    string
		wantAdmin bool
	}{
		{"id claim", jwt.MapClaims{"id": "7", "email": "a@b.c", "exp": future}, nil, "7", false},
		{"mongo id claim", jwt.MapClaims{"_id": "abc123"}, nil, "abc123", false},
		{"sub claim", jwt.MapClaims{"sub": "42"}, nil, "42", false},
		{"numeric id", jwt.MapClaims{"id": 15}, nil, "15", false},
		{"isAdmin flag", jwt.MapClaims{"id": "1", "isAdmin": true}, nil, "1", true},
		{"admin flag", jwt.MapClaims{"id": "1", "admin": true}, nil, "1", true},
		{"admin role", jwt.MapClaims{"id": "1", "role": "Admin"}, nil, "1", true},
		{"user role", jwt.MapClaims{"id": "1", "role": "user"}, nil, "1", false},
		{"missing id", jwt.MapClaims{"email": "a@b.c"}, ErrMissingSubject, "", false},
		{"wrong id type", jwt.MapClaims{"id": true}, ErrInvalidClaim, "", false},
		{"wrong isAdmin type", jwt.MapClaims{"id": "1", "isAdmin": "yes"}, ErrInvalidClaim, "", false},
		{"wrong email type", jwt.MapClaims{"id": "1", "email": 5}, ErrInvalidClaim, "", false},
		{"expired", jwt.MapClaims{"id": "1", "exp": past}, ErrTokenExpired, "", false},
	}

	for _, secret := range []string{"", testSecret} {
		for _, tt := range tests {
			t.Run(tt.name+"/verify="+boolString(secret != ""), func(t *testing.T) {
				d := NewDecoder(secret)
				user, err := d.Decode(signToken(t, testSecret, tt.claims))
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
					}
					return
				}
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if user.ID != tt.wantID {
					t.Errorf("ID = %q, want %q", user.ID, tt.wantID)
				}
				if user.IsAdmin != tt.wantAdmin {
					t.Errorf("IsAdmin = %v, want %v", user.IsAdmin, tt.wantAdmin)
				}
			})
		}
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestDecoder_Malformed(t *testing.T) {
	d := NewDecoder("")
	for _, token := range []string{"", "abc", "a.b", "not.a.jwt", "a..c"} {
		if _, err := d.Decode(token); !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Decode(%q) error = %v, want ErrMalformedToken", token, err)
		}
	}
}

func TestDecoder_BadSignature(t *testing.T) {
	token := signToken(t, "some-other-secret", jwt.MapClaims{"id": "1", "isAdmin": true})

	_, err := NewDecoder(testSecret).Decode(token)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Decode() error = %v, want ErrBadSignature", err)
	}
}

func TestDecoder_ValidateOpaqueToken(t *testing.T) {
	if err := NewDecoder(testSecret).Validate("abc"); err != nil {
		t.Errorf("Validate(opaque) = %v, want nil", err)
	}
}

func TestStore_RestoreAnonymous(t *testing.T) {
	store, _, ctx := newTestStore(t, "")

	sess, err := store.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if sess.Token != "" || sess.User != nil {
		t.Errorf("Restore() = %+v, want anonymous", sess)
	}
}

func TestStore_LoginWithUserThenRestore(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")

	user := &User{ID: "1", Email: "cmd@pmce.gov", IsAdmin: true}
	sess, err := store.Login(ctx, "abc", user)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !sess.IsAdmin() {
		t.Error("IsAdmin() = false after admin login")
	}

	next := reload(t, sm, ctx)
	restored, err := store.Restore(next)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Token != "abc" {
		t.Errorf("Token = %q, want %q", restored.Token, "abc")
	}
	if !restored.IsAdmin() {
		t.Error("restored IsAdmin() = false, want true")
	}
	if store.Token(next) != "abc" {
		t.Errorf("Token(ctx) = %q, want %q", store.Token(next), "abc")
	}
}

func TestStore_LoginWithUserWithoutIDThenRestore(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")

	user := &User{Name: "Cmd", Email: "cmd@pmce.gov", IsAdmin: true}
	if _, err := store.Login(ctx, "opaque-token", user); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	restored, err := store.Restore(reload(t, sm, ctx))
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.User == nil || restored.User.Email != "cmd@pmce.gov" || !restored.IsAdmin() {
		t.Errorf("restored user = %+v", restored.User)
	}
}

func TestUserFromMap(t *testing.T) {
	tests := []struct {
		name    string
		m       map[string]any
		wantErr error
		wantID  string
	}{
		{"with id", map[string]any{"id": "1", "email": "a@b.c"}, nil, "1"},
		{"without id", map[string]any{"name": "Cmd", "isAdmin": true}, nil, ""},
		{"nobody", map[string]any{"isAdmin": true}, ErrMissingSubject, ""},
		{"mistyped id", map[string]any{"id": true, "email": "a@b.c"}, ErrInvalidClaim, ""},
		{"mistyped flag", map[string]any{"email": "a@b.c", "admin": "yes"}, ErrInvalidClaim, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := UserFromMap(tt.m)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UserFromMap() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UserFromMap() error = %v", err)
			}
			if u.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", u.ID, tt.wantID)
			}
		})
	}
}

func TestStore_LoginDecodesClaims(t *testing.T) {
	store, _, ctx := newTestStore(t, testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"_id": "9", "role": "admin", "name": "Cel. X"})

	sess, err := store.Login(ctx, token, nil)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.User.ID != "9" || !sess.IsAdmin() || sess.User.Name != "Cel. X" {
		t.Errorf("Login() user = %+v", sess.User)
	}
}

func TestStore_LoginRejectsUndecodableToken(t *testing.T) {
	store, _, ctx := newTestStore(t, "")

	if _, err := store.Login(ctx, "abc", nil); err == nil {
		t.Fatal("Login() with opaque token and no user should fail")
	}
	if store.Token(ctx) != "" {
		t.Error("token persisted after failed login")
	}

	if _, err := store.Login(ctx, "  ", &User{ID: "1"}); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("Login(empty) error = %v, want ErrEmptyToken", err)
	}
}

func TestStore_LogoutThenRestoreIsAnonymous(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")

	if _, err := store.Login(ctx, "abc", &User{ID: "1", IsAdmin: true}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	next := reload(t, sm, ctx)
	sess, err := store.Restore(next)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if sess.User != nil || sess.Token != "" {
		t.Errorf("Restore() after logout = %+v, want anonymous", sess)
	}
}

func TestStore_RestoreClearsInvalidToken(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")
	sm.Put(ctx, SessionKeyToken, "garbage-token")

	sess, err := store.Restore(ctx)
	if !errors.Is(err, ErrSessionCleared) {
		t.Fatalf("Restore() error = %v, want ErrSessionCleared", err)
	}
	if sess.User != nil {
		t.Errorf("Restore() user = %+v, want nil", sess.User)
	}
	if sm.Exists(ctx, SessionKeyToken) {
		t.Error("invalid token was not cleared")
	}
}

func TestStore_RestoreRejectsExpiredSnapshot(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")
	expired := signToken(t, testSecret, jwt.MapClaims{"id": "1", "exp": time.Now().Add(-time.Minute).Unix()})

	sm.Put(ctx, SessionKeyToken, expired)
	sm.Put(ctx, SessionKeyUser, `{"id":"1","isAdmin":true}`)

	sess, err := store.Restore(ctx)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Restore() error = %v, want ErrTokenExpired", err)
	}
	if sess.IsAdmin() {
		t.Error("expired session restored as admin")
	}
}

func TestStore_RestoreBrokenSnapshotFallsBackToClaims(t *testing.T) {
	store, sm, ctx := newTestStore(t, "")
	token := signToken(t, testSecret, jwt.MapClaims{"id": "5"})

	sm.Put(ctx, SessionKeyToken, token)
	sm.Put(ctx, SessionKeyUser, "{not json")

	sess, err := store.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if sess.UserID() != "5" {
		t.Errorf("UserID() = %q, want %q", sess.UserID(), "5")
	}
}

func TestFromContext_LoadingByDefault(t *testing.T) {
	st := FromContext(context.Background())
	if !st.Loading {
		t.Error("FromContext() without state should be loading")
	}
	if st.IsAdmin() {
		t.Error("loading state must not be admin")
	}

	ctx := WithState(context.Background(), State{Session: Session{Token: "t", User: &User{ID: "1", IsAdmin: true}}})
	if !FromContext(ctx).IsAdmin() {
		t.Error("FromContext() lost the attached state")
	}
}

func TestGuard_Decide(t *testing.T) {
	anon := State{}
	user := State{Session: Session{Token: "t", User: &User{ID: "1"}}}
	admin := State{Session: Session{Token: "t", User: &User{ID: "2", IsAdmin: true}}}
	loading := State{Loading: true}

	tests := []struct {
		name  string
		guard Guard
		state State
		want  Decision
	}{
		{"loading", Guard{RequireAuth: true}, loading, Loading},
		{"loading admin route", Guard{AdminOnly: true}, loading, Loading},
		{"anonymous auth route", Guard{RequireAuth: true}, anon, RedirectLogin},
		{"anonymous admin route", Guard{AdminOnly: true}, anon, RedirectLogin},
		{"user auth route", Guard{RequireAuth: true}, user, Allow},
		{"user admin route", Guard{RequireAuth: true, AdminOnly: true}, user, RedirectUnauthorized},
		{"admin admin route", Guard{AdminOnly: true}, admin, Allow},
		{"public route", Guard{}, anon, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.guard.Decide(tt.state); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}
