// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// registry.go - In-memory principals and sessions for the dev authority.
package authority

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBadCredentials means the username/password pair was rejected.
	// Unknown usernames, wrong passwords, and deactivated principals all
	// collapse into this one error so responses never reveal which it was.
	ErrBadCredentials = errors.New("invalid credentials")

	// ErrUnknownSession means the bearer token matches no live session.
	ErrUnknownSession = errors.New("unknown session")

	// ErrSelfRevoke means a session tried to revoke itself.
	ErrSelfRevoke = errors.New("a session cannot revoke itself")

	// ErrNotOwner means the caller does not own the target session and is
	// not an admin.
	ErrNotOwner = errors.New("session belongs to another principal")
)

// =============================================================================
// SEED ROSTER
// =============================================================================

// SeedCredential is one demo login the registry is seeded with.
type SeedCredential struct {
	Username string
	Password string
	Role     api.Role
	Active   bool
}

// SeedRoster returns the demo principals the dev authority starts with.
// One principal per role, plus a deactivated account for exercising the
// inactive-login path. Printed at startup by `fleetwatch authd`.
func SeedRoster() []SeedCredential {
	return []SeedCredential{
		{Username: "rivera", Password: "argus-horizon-9", Role: api.RoleAdmin, Active: true},
		{Username: "chen", Password: "copper-meridian-4", Role: api.RoleSupervisor, Active: true},
		{Username: "amorim", Password: "harbor-lantern-7", Role: api.RoleOperator, Active: true},
		{Username: "okabe", Password: "quiet-signal-2", Role: api.RoleAuditor, Active: true},
		{Username: "duarte", Password: "retired-account-0", Role: api.RoleOperator, Active: false},
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// principalRecord pairs a principal with its demo password.
// Passwords live in memory only; this is a development stub.
type principalRecord struct {
	principal api.Principal
	password  string
}

// sessionRecord is one live session plus the server-only refresh token.
type sessionRecord struct {
	session      api.Session
	refreshToken string
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the authority's mutable state: principals keyed by
// username and sessions keyed by token. All methods are safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	byUsername map[string]*principalRecord
	byID       map[string]*principalRecord
	sessions   map[string]*sessionRecord

	sessionTTL time.Duration
	clock      func() time.Time
}

// NewRegistry creates a Registry seeded with the demo roster.
// clock may be nil, in which case time.Now is used.
func NewRegistry(clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	r := &Registry{
		byUsername: make(map[string]*principalRecord),
		byID:       make(map[string]*principalRecord),
		sessions:   make(map[string]*sessionRecord),
		sessionTTL: DefaultSessionTTL,
		clock:      clock,
	}
	for i, seed := range SeedRoster() {
		rec := &principalRecord{
			principal: api.Principal{
				ID:       stableID(i),
				Username: seed.Username,
				Role:     seed.Role,
				Active:   seed.Active,
			},
			password: seed.Password,
		}
		r.byUsername[seed.Username] = rec
		r.byID[rec.principal.ID] = rec
	}
	return r
}

// stableID returns a fixed principal ID for seed index i, so demo
// tooling can rely on the roster's IDs.
func stableID(i int) string {
	return "p-10" + string(rune('0'+i))
}

// SetSessionTTL overrides the default session lifetime. Used by tests.
func (r *Registry) SetSessionTTL(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl > 0 {
		r.sessionTTL = ttl
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate validates a username/password pair.
//
// The username is NFC-normalized and trimmed before lookup so the same
// visual input matches regardless of how the operator's terminal composed
// it. Passwords are compared in constant time. Unknown users burn a
// comparison against a dummy secret so timing does not reveal whether the
// username exists.
func (r *Registry) Authenticate(username, password string) (api.Principal, error) {
	username = norm.NFC.String(strings.TrimSpace(username))

	r.mu.RLock()
	rec, ok := r.byUsername[username]
	r.mu.RUnlock()

	if !ok {
		subtle.ConstantTimeCompare([]byte(password), []byte("fleetwatch-no-such-user"))
		return api.Principal{}, ErrBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(rec.password)) != 1 {
		return api.Principal{}, ErrBadCredentials
	}
	if !rec.principal.Active {
		return api.Principal{}, ErrBadCredentials
	}
	return rec.principal, nil
}

// Principal returns the principal with the given ID.
func (r *Registry) Principal(id string) (api.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return api.Principal{}, false
	}
	return rec.principal, true
}

// =============================================================================
// SESSION ISSUANCE
// =============================================================================

// ExpiryFrom returns the expiry a session issued or refreshed at now
// would get: the configured TTL capped at the next UTC+9 midnight. No
// token this authority hands out is ever valid past the daily cutoff.
func (r *Registry) ExpiryFrom(now time.Time) time.Time {
	r.mu.RLock()
	ttl := r.sessionTTL
	r.mu.RUnlock()
	return capAtMidnight(now.Add(ttl), now)
}

// IssueSession registers a new session for the principal under the given
// token, expiring at expiresAt. Remember sessions additionally get an
// opaque refresh token.
func (r *Registry) IssueSession(p api.Principal, token string, expiresAt time.Time, remember bool, device, address string) (api.Session, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	sess := api.Session{
		Token:          token,
		PrincipalID:    p.ID,
		Active:         true,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      expiresAt,
		Remember:       remember,
		Device:         device,
		Address:        address,
	}

	refreshToken := ""
	if remember {
		refreshToken = "rft-" + uuid.NewString()
	}

	r.sessions[token] = &sessionRecord{session: sess, refreshToken: refreshToken}

	// Last-login bookkeeping on the principal.
	if rec, ok := r.byID[p.ID]; ok {
		loginAt := now
		rec.principal.LastLoginAt = &loginAt
		rec.principal.FailedAttempts = 0
		rec.principal.LockedUntil = nil
	}

	return sess, refreshToken
}

// capAtMidnight clamps t to the next UTC+9 midnight after now.
func capAtMidnight(t, now time.Time) time.Time {
	midnight := session.NextMidnight(now)
	if t.After(midnight) {
		return midnight
	}
	return t
}

// Lookup returns the live session for token. Sessions that have expired
// or been deactivated report ErrUnknownSession; expired ones are pruned
// on the way out.
func (r *Registry) Lookup(token string) (api.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	if !ok || !rec.session.Active {
		return api.Session{}, ErrUnknownSession
	}
	if !r.clock().Before(rec.session.ExpiresAt) {
		delete(r.sessions, token)
		return api.Session{}, ErrUnknownSession
	}
	return rec.session, nil
}

// =============================================================================
// LIFECYCLE OPERATIONS
// =============================================================================

// Refresh extends the session's expiry by the configured TTL, again capped
// at the next UTC+9 midnight, and returns the updated session.
func (r *Registry) Refresh(token string) (api.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	if !ok || !rec.session.Active {
		return api.Session{}, ErrUnknownSession
	}
	now := r.clock()
	if !now.Before(rec.session.ExpiresAt) {
		delete(r.sessions, token)
		return api.Session{}, ErrUnknownSession
	}

	rec.session.ExpiresAt = capAtMidnight(now.Add(r.sessionTTL), now)
	rec.session.LastAccessedAt = now
	return rec.session, nil
}

// Logout deactivates the session. Idempotent: a second logout of the same
// token reports ErrUnknownSession, which callers treat as already done.
func (r *Registry) Logout(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[token]
	if !ok || !rec.session.Active {
		return ErrUnknownSession
	}
	rec.session.Active = false
	delete(r.sessions, token)
	return nil
}

// Revoke terminates the target session on behalf of caller.
//
// Two rules, checked in order: a session may never revoke itself, and a
// non-admin caller may only revoke sessions belonging to its own
// principal. The self-revoke rule is absolute; admins do not bypass it.
func (r *Registry) Revoke(caller api.Session, callerRole api.Role, target string) error {
	if target == caller.Token {
		return ErrSelfRevoke
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[target]
	if !ok || !rec.session.Active {
		return ErrUnknownSession
	}
	if rec.session.PrincipalID != caller.PrincipalID && callerRole != api.RoleAdmin {
		return ErrNotOwner
	}
	rec.session.Active = false
	delete(r.sessions, target)
	return nil
}

// SessionsFor lists the live sessions belonging to principalID, newest
// first. Expired sessions are pruned as a side effect.
func (r *Registry) SessionsFor(principalID string) []api.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	var out []api.Session
	for token, rec := range r.sessions {
		if !now.Before(rec.session.ExpiresAt) {
			delete(r.sessions, token)
			continue
		}
		if rec.session.Active && rec.session.PrincipalID == principalID {
			out = append(out, rec.session)
		}
	}
	sortSessionsNewestFirst(out)
	return out
}

// ActiveSessionCount returns the number of live sessions across all
// principals. Used by the health endpoint.
func (r *Registry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.clock()
	n := 0
	for _, rec := range r.sessions {
		if rec.session.Active && now.Before(rec.session.ExpiresAt) {
			n++
		}
	}
	return n
}

// sortSessionsNewestFirst orders sessions by creation time, descending.
// Insertion sort: the directory is small by construction.
func sortSessionsNewestFirst(sessions []api.Session) {
	for i := 1; i < len(sessions); i++ {
		for j := i; j > 0 && sessions[j].CreatedAt.After(sessions[j-1].CreatedAt); j-- {
			sessions[j], sessions[j-1] = sessions[j-1], sessions[j]
		}
	}
}
