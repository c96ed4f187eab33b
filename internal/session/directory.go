// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// directory.go - Fleet-wide view of a principal's active sessions.
package session

import (
	"context"
	"crypto/subtle"
	"sort"
	"time"

	"github.com/jeranaias/fleetwatch/internal/api"
)

// =============================================================================
// ANNOTATION
// =============================================================================

// ExpiringSoonWindow is how far out a directory row earns the
// "expiring soon" badge. This is a directory-presentation threshold,
// deliberately much wider than the five-minute pre-expiry warning: the
// badge flags sessions that will not survive the day, the warning fires
// when this terminal is about to lose its own token.
const ExpiringSoonWindow = 24 * time.Hour

// Annotated is a directory row decorated with client-side facts the
// authority does not know: whether the row is this terminal's own
// session and whether it expires within ExpiringSoonWindow.
type Annotated struct {
	api.Session

	Current      bool
	ExpiringSoon bool
}

// Label returns the row badge. Current wins over ExpiringSoon when both
// hold; the operator cares more about "this is me" than the countdown.
func (a Annotated) Label() string {
	switch {
	case a.Current:
		return "current"
	case a.ExpiringSoon:
		return "expiring soon"
	default:
		return ""
	}
}

// IsCurrentToken compares a directory row's token against the held one.
// Tokens are opaque byte strings; equality is the only defined
// operation.
//
// SECURITY: constant-time comparison. The directory lists live bearer
// tokens for every device, so even a comparison against our own must not
// leak match-prefix timing.
func IsCurrentToken(rowToken, heldToken string) bool {
	if heldToken == "" || len(rowToken) != len(heldToken) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(rowToken), []byte(heldToken)) == 1
}

// Annotate decorates and orders directory rows for display: most
// recently accessed first, ties broken by creation time then token so
// the ordering is stable across refreshes.
func Annotate(sessions []api.Session, heldToken string, now time.Time) []Annotated {
	rows := make([]Annotated, 0, len(sessions))
	for _, s := range sessions {
		secs := SecondsUntilExpiry(s.ExpiresAt, now)
		rows = append(rows, Annotated{
			Session:      s,
			Current:      IsCurrentToken(s.Token, heldToken),
			ExpiringSoon: secs > 0 && secs <= int(ExpiringSoonWindow/time.Second),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].LastAccessedAt.Equal(rows[j].LastAccessedAt) {
			return rows[i].LastAccessedAt.After(rows[j].LastAccessedAt)
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].Token < rows[j].Token
	})
	return rows
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory reads and prunes the authority's session list for the
// logged-in principal. It holds no session state of its own; the token
// and principal come from the lifecycle manager on every call.
type Directory struct {
	authority Authority
	manager   *Manager
	nowFn     func() time.Time
}

// NewDirectory binds a directory view to the lifecycle manager.
func NewDirectory(authority Authority, manager *Manager) *Directory {
	return &Directory{
		authority: authority,
		manager:   manager,
		nowFn:     time.Now,
	}
}

// List fetches the principal's sessions and annotates them against the
// currently held token. Unauthenticated calls fail with
// api.ErrSessionExpired before any network I/O.
func (d *Directory) List(ctx context.Context) ([]Annotated, error) {
	snap := d.manager.Snapshot()
	if !snap.State.Authenticated() {
		return nil, api.ErrSessionExpired
	}
	token := d.manager.CurrentToken()

	sessions, err := d.authority.ListSessions(ctx, token, snap.Principal.ID)
	if err != nil {
		return nil, err
	}
	return Annotate(sessions, token, d.nowFn()), nil
}

// Revoke invalidates another device's session and returns the re-fetched
// directory, so the view always shows post-revocation truth rather than
// a local splice.
//
// Revoking the session this terminal is using is rejected locally with
// api.ErrForbidden and no request is sent; the authority enforces the
// same rule, the short-circuit just keeps the failure offline-safe. The
// logout flow is the only way out of your own session.
func (d *Directory) Revoke(ctx context.Context, target string) ([]Annotated, error) {
	snap := d.manager.Snapshot()
	if !snap.State.Authenticated() {
		return nil, api.ErrSessionExpired
	}
	token := d.manager.CurrentToken()

	if IsCurrentToken(target, token) {
		return nil, api.ErrForbidden
	}

	if err := d.authority.RevokeSession(ctx, token, target); err != nil {
		return nil, err
	}

	sessions, err := d.authority.ListSessions(ctx, token, snap.Principal.ID)
	if err != nil {
		return nil, err
	}
	return Annotate(sessions, token, d.nowFn()), nil
}
