// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode errors. Every failure leaves the caller anonymous.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingSubject = errors.New("token has no subject id")
	ErrInvalidClaim   = errors.New("token claim has an unexpected type")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature is invalid")
)

// signingMethods are the HMAC algorithms accepted when a secret is configured.
var signingMethods = []string{"HS256", "HS384", "HS512"}

// Decoder derives a User from backend token claims.
//
// With a secret the token signature is verified; without one the claims are
// read unverified, which is safe only because the token is stored server-side
// and was obtained from the backend by this process.
type Decoder struct {
	secret []byte
	now    func() time.Time
}

// NewDecoder returns a Decoder. An empty secret disables signature checks.
func NewDecoder(secret string) *Decoder {
	d := &Decoder{now: time.Now}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

// Verifies reports whether the decoder checks signatures.
func (d *Decoder) Verifies() bool {
	return len(d.secret) > 0
}

// LooksLikeJWT reports whether token has the three-segment JWT shape.
func LooksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	return len(parts) == 3 && parts[0] != "" && parts[1] != ""
}

// Decode parses token and maps its claims onto a User.
func (d *Decoder) Decode(token string) (*User, error) {
	claims, err := d.parse(token)
	if err != nil {
		return nil, err
	}
	return userFromClaims(claims, true)
}

// Validate checks expiry and signature without requiring user claims.
// Opaque (non-JWT) tokens are accepted as is.
func (d *Decoder) Validate(token string) error {
	if !LooksLikeJWT(token) {
		return nil
	}
	_, err := d.parse(token)
	return err
}

func (d *Decoder) parse(token string) (jwt.MapClaims, error) {
	if !LooksLikeJWT(token) {
		return nil, ErrMalformedToken
	}

	claims := jwt.MapClaims{}

	if d.Verifies() {
		parser := jwt.NewParser(
			jwt.WithValidMethods(signingMethods),
			jwt.WithTimeFunc(d.now),
		)
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return d.secret, nil
		})
		if err != nil {
			return nil, classifyJWTError(err)
		}
		return claims, nil
	}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp", ErrInvalidClaim)
	}
	if exp != nil && !d.now().Before(exp.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// UserFromMap maps the user record of the backend login response onto a
// User. Field types are checked as for token claims but the id is optional:
// the backend vouches for the record. An object without id, email or name
// yields ErrMissingSubject.
func UserFromMap(m map[string]any) (*User, error) {
	u, err := userFromClaims(jwt.MapClaims(m), false)
	if err != nil {
		return nil, err
	}
	if u.ID == "" && u.Email == "" && u.Name == "" {
		return nil, ErrMissingSubject
	}
	return u, nil
}

// userFromClaims applies the fixed claims schema: id, _id or sub, email,
// name, isAdmin, admin, role. Token claims pass requireID.
func userFromClaims(claims jwt.MapClaims, requireID bool) (*User, error) {
	id, err := subjectID(claims)
	if err != nil && (requireID || !errors.Is(err, ErrMissingSubject)) {
		return nil, err
	}

	u := &User{ID: id}

	if u.Email, err = optionalString(claims, "email"); err != nil {
		return nil, err
	}
	if u.Name, err = optionalString(claims, "name"); err != nil {
		return nil, err
	}

	isAdmin, err := optionalBool(claims, "isAdmin")
	if err != nil {
		return nil, err
	}
	admin, err := optionalBool(claims, "admin")
	if err != nil {
		return nil, err
	}
	role, err := optionalString(claims, "role")
	if err != nil {
		return nil, err
	}

	u.IsAdmin = isAdmin || admin || strings.EqualFold(role, "admin")
	return u, nil
}

func subjectID(claims jwt.MapClaims) (string, error) {
	for _, key := range []string{"id", "_id", "sub"} {
		v, ok := claims[key]
		if !ok || v == nil {
			continue
		}
		switch id := v.(type) {
		case string:
			if id = strings.TrimSpace(id); id != "" {
				return id, nil
			}
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64), nil
		default:
			return "", fmt.Errorf("%w: %s", ErrInvalidClaim, key)
		}
	}
	return "", ErrMissingSubject
}

func optionalString(claims jwt.MapClaims, key string) (string, error) {
	v, ok := claims[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidClaim, key)
	}
	return s, nil
}

func optionalBool(claims jwt.MapClaims, key string) (bool, error) {
	v, ok := claims[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrInvalidClaim, key)
	}
	return b, nil
}
