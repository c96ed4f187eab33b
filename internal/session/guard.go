// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// guard.go - View-level access decisions.
package session

import "github.com/jeranaias/fleetwatch/internal/api"

// =============================================================================
// DECISIONS
// =============================================================================

// Decision is the outcome of an access check for a protected view.
type Decision int

const (
	// Allow renders the view.
	Allow Decision = iota

	// RedirectToLogin sends the operator to the login form: no live
	// credential is held.
	RedirectToLogin

	// Deny shows "not authorized": authenticated, but the principal's
	// role does not meet the view's requirement.
	Deny
)

// String returns the display string for the decision.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect-to-login"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// =============================================================================
// GUARD
// =============================================================================

// Authorize decides whether the view behind the guard renders.
// Authentication is checked before authorization: an expired session
// redirects to login even for views the principal's role could never
// see. With no required roles the view only needs a live credential.
//
// Decisions are pure functions of the snapshot. Callers re-evaluate on
// every lifecycle transition; nothing here caches.
func Authorize(snap Snapshot, requiredRoles ...api.Role) Decision {
	if !snap.State.Authenticated() {
		return RedirectToLogin
	}
	if len(requiredRoles) == 0 {
		return Allow
	}
	for _, role := range requiredRoles {
		if snap.Principal.Role == role {
			return Allow
		}
	}
	return Deny
}
