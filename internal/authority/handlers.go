// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// handlers.go - HTTP handlers for the dev authority's session API.
package authority

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/session"
)

// =============================================================================
// LOGIN
// =============================================================================

// handleLogin handles POST /login.
//
// Responses: 200 with token on success, 400 malformed, 401 rejected
// credentials, 423 locked out, 413 oversized body. Lockout is checked
// before authentication so a locked account cannot probe passwords, and
// the failure that reaches the attempt limit itself answers 423.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "bad_request", "invalid request format")
		return
	}

	username := norm.NFC.String(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "bad_request", "username and password are required")
		return
	}

	if s.lockout.IsLocked(username) {
		s.writeLocked(w, username)
		return
	}

	principal, err := s.registry.Authenticate(username, req.Password)
	if err != nil {
		atomic.AddInt64(&s.stats.FailedLogins, 1)
		if recordErr := s.lockout.RecordAttempt(username, false); errors.Is(recordErr, ErrLocked) {
			s.writeLocked(w, username)
			return
		}
		s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}
	if err := s.lockout.RecordAttempt(username, true); err != nil {
		// Raced into a lockout between the check and the success.
		s.writeLocked(w, username)
		return
	}

	now := s.clock()
	expiresAt := s.registry.ExpiryFrom(now)
	token, err := s.signer.Mint(principal, expiresAt)
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		s.writeError(w, http.StatusInternalServerError, "internal", "could not issue session")
		return
	}

	sess, refreshToken := s.registry.IssueSession(
		principal, token, expiresAt, req.Remember,
		r.Header.Get("User-Agent"), clientIP(r),
	)

	atomic.AddInt64(&s.stats.Logins, 1)
	s.log.Info().
		Str("username", principal.Username).
		Str("role", string(principal.Role)).
		Bool("remember", req.Remember).
		Time("expires_at", sess.ExpiresAt).
		Msg("login")

	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresIn:    session.SecondsUntilExpiry(sess.ExpiresAt, now),
		Principal:    principal,
	})
}

// writeLocked answers 423 with the remaining lockout time.
func (s *Server) writeLocked(w http.ResponseWriter, username string) {
	remaining := s.lockout.Remaining(username).Round(time.Second)
	s.writeError(w, http.StatusLocked, "account_locked",
		"account locked, retry in "+remaining.String())
}

// =============================================================================
// LOGOUT
// =============================================================================

// handleLogout handles POST /logout. The bearer session is deactivated;
// a token that is already gone still answers 204 because the caller's
// goal state is reached either way.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if err := s.registry.Logout(sess.Token); err != nil && !errors.Is(err, ErrUnknownSession) {
		s.writeError(w, http.StatusInternalServerError, "internal", "logout failed")
		return
	}
	s.log.Info().Str("principal_id", sess.PrincipalID).Msg("logout")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REFRESH
// =============================================================================

// handleRefresh handles POST /refresh-session.
//
// Extends the bearer session's expiry (TTL capped at UTC+9 midnight) and
// reports the authority's own view of the clock: seconds to expiry,
// seconds to midnight, the current UTC+9 wall time, and whether a client
// should be warning. 401 when the session is expired or unknown.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	refreshed, err := s.registry.Refresh(sess.Token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session_expired", "session expired")
		return
	}

	now := s.clock()
	expiresIn := session.SecondsUntilExpiry(refreshed.ExpiresAt, now)

	atomic.AddInt64(&s.stats.Refreshes, 1)
	s.writeJSON(w, http.StatusOK, api.RefreshResponse{
		ExpiresIn:                expiresIn,
		TimeUntilMidnightSeconds: session.SecondsUntilNextMidnight(now),
		DiliTime:                 session.NowInReferenceZone(now).Format(time.RFC3339),
		ShouldWarn:               session.ShouldWarn(expiresIn),
	})
}

// =============================================================================
// SESSION DIRECTORY
// =============================================================================

// handleListSessions handles GET /principals/{id}/sessions. A principal
// sees only its own directory; admins may inspect anyone's.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	principalID := r.PathValue("id")
	if principalID != sess.PrincipalID && !s.callerIsAdmin(sess) {
		s.writeError(w, http.StatusForbidden, "forbidden", "cannot list another principal's sessions")
		return
	}

	sessions := s.registry.SessionsFor(principalID)
	if sessions == nil {
		sessions = []api.Session{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]api.Session{"sessions": sessions})
}

// handleRevokeSession handles DELETE /sessions/{token}.
//
// Self-revocation is refused with 403 no matter who asks: the client
// enforces the same rule in its directory view, but the authority does
// not rely on client behavior.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	target := r.PathValue("token")
	err := s.registry.Revoke(sess, s.callerRole(sess), target)
	switch {
	case errors.Is(err, ErrSelfRevoke):
		s.writeError(w, http.StatusForbidden, "self_revoke", "a session cannot revoke itself")
		return
	case errors.Is(err, ErrNotOwner):
		s.writeError(w, http.StatusForbidden, "forbidden", "session belongs to another principal")
		return
	case errors.Is(err, ErrUnknownSession):
		s.writeError(w, http.StatusNotFound, "not_found", "no such session")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "internal", "revoke failed")
		return
	}

	atomic.AddInt64(&s.stats.Revocations, 1)
	s.log.Info().
		Str("principal_id", sess.PrincipalID).
		Str("target_suffix", tokenSuffix(target)).
		Msg("session revoked")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	UptimeSeconds  int    `json:"uptime_seconds"`
	ActiveSessions int    `json:"active_sessions"`
	DiliTime       string `json:"dili_time"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        api.Version,
		UptimeSeconds:  int(s.stats.Uptime().Seconds()),
		ActiveSessions: s.registry.ActiveSessionCount(),
		DiliTime:       session.NowInReferenceZone(s.clock()).Format(time.RFC3339),
	})
}

// =============================================================================
// BEARER AUTHENTICATION
// =============================================================================

// authenticate resolves the request's bearer token to a live session.
// Writes a 401 and returns ok=false when the token is missing, fails
// signature verification, or matches no live session.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (api.Session, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return api.Session{}, false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	if _, err := s.signer.Verify(token); err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session token")
		return api.Session{}, false
	}

	sess, err := s.registry.Lookup(token)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "session_expired", "session expired")
		return api.Session{}, false
	}
	return sess, true
}

// callerRole returns the caller's current role from the registry. Roles
// can change server-side after a token is minted, so the claim inside
// the JWT is not consulted.
func (s *Server) callerRole(sess api.Session) api.Role {
	if p, ok := s.registry.Principal(sess.PrincipalID); ok {
		return p.Role
	}
	return ""
}

// callerIsAdmin reports whether the session's principal is an admin.
func (s *Server) callerIsAdmin(sess api.Session) bool {
	return s.callerRole(sess) == api.RoleAdmin
}

// tokenSuffix returns the last 8 characters of a token for logging.
// Full tokens never appear in log output.
func tokenSuffix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[len(token)-8:]
}
