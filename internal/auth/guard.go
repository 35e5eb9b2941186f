// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

// Decision is the outcome of a route guard.
type Decision int

const (
	// Allow renders the protected content.
	Allow Decision = iota
	// Loading renders only a placeholder until the session is restored.
	Loading
	// RedirectLogin sends anonymous visitors to the login page.
	RedirectLogin
	// RedirectUnauthorized sends authenticated non-admins to the unauthorized page.
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Guard describes what a route requires. AdminOnly implies RequireAuth.
type Guard struct {
	RequireAuth bool
	AdminOnly   bool
}

// Decide maps the current auth state to a decision. It is recomputed on
// every request and has no side effects.
func (g Guard) Decide(st State) Decision {
	if st.Loading {
		return Loading
	}
	if (g.RequireAuth || g.AdminOnly) && st.Session.User == nil {
		return RedirectLogin
	}
	if g.AdminOnly && !st.Session.IsAdmin() {
		return RedirectUnauthorized
	}
	return Allow
}
