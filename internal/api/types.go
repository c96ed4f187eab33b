// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// types.go - Wire types for the issuing authority's session API.
package api

import "time"

// =============================================================================
// PRINCIPAL
// =============================================================================

// Role is a principal's role, one of a small closed set.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleOperator   Role = "operator"
	RoleAuditor    Role = "auditor"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleOperator, RoleAuditor:
		return true
	}
	return false
}

// Principal is the authenticated identity as reported by the issuing
// authority. It is read-only from the client's perspective; lockout and
// last-login bookkeeping happen server-side.
type Principal struct {
	ID                  string     `json:"id"`
	Username            string     `json:"username"`
	Role                Role       `json:"role"`
	Active              bool       `json:"active"`
	FailedAttempts      int        `json:"failed_attempts,omitempty"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CredentialChangedAt *time.Time `json:"credential_changed_at,omitempty"`
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one authenticated binding between a principal and a client
// device. The token is an unguessable secret; this subsystem treats it as
// an opaque string and only ever compares it for equality.
type Session struct {
	Token          string    `json:"token"`
	PrincipalID    string    `json:"principal_id"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Remember       bool      `json:"remember"`
	Device         string    `json:"device"`
	Address        string    `json:"address"`
}

// =============================================================================
// REQUEST / RESPONSE BODIES
// =============================================================================

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginResponse is the body returned by POST /login on success.
// ExpiresIn is in seconds. RefreshToken is optional and may be empty.
type LoginResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	Principal    Principal `json:"principal"`
}

// RefreshResponse is the body returned by POST /refresh-session.
//
// TimeUntilMidnightSeconds, DiliTime and ShouldWarn describe the server's
// own clock in the business timezone (UTC+9). They are advisory display
// data; the client's local clock computations remain authoritative for
// warning and forced-logout decisions.
type RefreshResponse struct {
	ExpiresIn                int    `json:"expires_in"`
	TimeUntilMidnightSeconds int    `json:"time_until_midnight_seconds"`
	DiliTime                 string `json:"dili_time"`
	ShouldWarn               bool   `json:"should_warn"`
}

// sessionsResponse is the body returned by GET /principals/{id}/sessions.
type sessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

// apiErrorResponse is the error envelope the authority returns on failure.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
