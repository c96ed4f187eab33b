// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/fleetwatch/internal/api"
)

// =============================================================================
// TOKEN EQUALITY TESTS
// =============================================================================

func TestIsCurrentToken(t *testing.T) {
	tests := []struct {
		name      string
		rowToken  string
		heldToken string
		want      bool
	}{
		{"exact match", "tok-abc123", "tok-abc123", true},
		{"different token", "tok-abc123", "tok-xyz789", false},
		{"different length", "tok-abc", "tok-abc123", false},
		{"empty held token", "tok-abc123", "", false},
		{"both empty", "", "", false},
		{"case sensitive", "TOK-ABC123", "tok-abc123", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCurrentToken(tc.rowToken, tc.heldToken); got != tc.want {
				t.Errorf("IsCurrentToken(%q, %q) = %v, want %v", tc.rowToken, tc.heldToken, got, tc.want)
			}
		})
	}
}

// =============================================================================
// ANNOTATION TESTS
// =============================================================================

func TestAnnotate(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	sessions := []api.Session{
		{
			Token:          "tok-other",
			ExpiresAt:      now.Add(48 * time.Hour),
			LastAccessedAt: now.Add(-time.Hour),
		},
		{
			Token:          "tok-mine",
			ExpiresAt:      now.Add(90 * time.Second),
			LastAccessedAt: now.Add(-time.Minute),
		},
		{
			Token:          "tok-dying",
			ExpiresAt:      now.Add(2 * time.Hour),
			LastAccessedAt: now.Add(-30 * time.Minute),
		},
	}

	rows := Annotate(sessions, "tok-mine", now)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	// Most recently accessed first.
	if rows[0].Token != "tok-mine" || rows[1].Token != "tok-other" || rows[2].Token != "tok-dying" {
		t.Errorf("order = %q, %q, %q; want tok-mine, tok-other, tok-dying",
			rows[0].Token, rows[1].Token, rows[2].Token)
	}

	// The held session is current even though it also expires within
	// the window; current wins the label.
	if !rows[0].Current {
		t.Error("tok-mine should be marked current")
	}
	if !rows[0].ExpiringSoon {
		t.Error("tok-mine at 90s should also be expiring soon")
	}
	if rows[0].Label() != "current" {
		t.Errorf("Label = %q, want current", rows[0].Label())
	}

	if rows[1].Current || rows[1].ExpiringSoon {
		t.Errorf("tok-other at 48h should carry no badge, got %+v", rows[1])
	}
	if rows[1].Label() != "" {
		t.Errorf("Label = %q, want empty", rows[1].Label())
	}

	if rows[2].Current {
		t.Error("tok-dying should not be current")
	}
	if !rows[2].ExpiringSoon || rows[2].Label() != "expiring soon" {
		t.Errorf("tok-dying at 2h should be expiring soon, got label %q", rows[2].Label())
	}
}

func TestAnnotate_ExpiringSoonWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"2h out", now.Add(2 * time.Hour), true},
		{"exactly 24h", now.Add(24 * time.Hour), true},
		{"one second past 24h", now.Add(24*time.Hour + time.Second), false},
		{"one second left", now.Add(time.Second), true},
		{"exactly expired", now, false},
		{"already expired", now.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Annotate([]api.Session{{Token: "tok", ExpiresAt: tt.expiresAt}}, "", now)
			if rows[0].ExpiringSoon != tt.want {
				t.Errorf("ExpiringSoon = %v, want %v", rows[0].ExpiringSoon, tt.want)
			}
		})
	}
}

func TestAnnotate_StableOrderOnTies(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	accessed := now.Add(-time.Minute)
	sessions := []api.Session{
		{Token: "tok-b", LastAccessedAt: accessed, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
		{Token: "tok-a", LastAccessedAt: accessed, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)},
	}

	rows := Annotate(sessions, "", now)
	if rows[0].Token != "tok-a" || rows[1].Token != "tok-b" {
		t.Errorf("tie-break order = %q, %q; want tok-a, tok-b", rows[0].Token, rows[1].Token)
	}
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func newTestDirectory(t *testing.T) (*Directory, *Manager, *fakeAuthority, *fakeClock) {
	t.Helper()
	m, auth, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)
	d := NewDirectory(auth, m)
	d.nowFn = clk.Now
	return d, m, auth, clk
}

func TestDirectory_List(t *testing.T) {
	d, _, auth, clk := newTestDirectory(t)
	auth.mu.Lock()
	auth.sessions = []api.Session{
		{Token: "tok-alpha", PrincipalID: "p-1", ExpiresAt: clk.Now().Add(time.Hour), LastAccessedAt: clk.Now()},
		{Token: "tok-tablet", PrincipalID: "p-1", ExpiresAt: clk.Now().Add(time.Hour), LastAccessedAt: clk.Now().Add(-time.Hour)},
	}
	auth.mu.Unlock()

	rows, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].Current {
		t.Error("our own session should be annotated current")
	}
	if rows[1].Current {
		t.Error("the tablet session is not ours")
	}
}

func TestDirectory_List_Unauthenticated(t *testing.T) {
	d, m, auth, _ := newTestDirectory(t)
	m.Logout(context.Background())
	before := auth.listCalls

	_, err := d.List(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("List error = %v, want ErrSessionExpired", err)
	}
	if auth.listCalls != before {
		t.Error("unauthenticated list must not reach the network")
	}
}

func TestDirectory_Revoke_OtherSession(t *testing.T) {
	d, _, auth, clk := newTestDirectory(t)
	auth.mu.Lock()
	auth.sessions = []api.Session{
		{Token: "tok-alpha", ExpiresAt: clk.Now().Add(time.Hour), LastAccessedAt: clk.Now()},
	}
	auth.mu.Unlock()

	rows, err := d.Revoke(context.Background(), "tok-tablet")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if auth.revokeCalls != 1 || auth.revokedTargets[0] != "tok-tablet" {
		t.Errorf("revoke calls = %d targets = %v, want one call for tok-tablet",
			auth.revokeCalls, auth.revokedTargets)
	}
	// The result is the re-fetched directory, not a local splice.
	if auth.listCalls != 1 {
		t.Errorf("list calls = %d, want 1 re-fetch after revoke", auth.listCalls)
	}
	if len(rows) != 1 || rows[0].Token != "tok-alpha" {
		t.Errorf("rows = %+v, want the surviving session only", rows)
	}
}

func TestDirectory_Revoke_CurrentSessionShortCircuits(t *testing.T) {
	d, m, auth, _ := newTestDirectory(t)

	_, err := d.Revoke(context.Background(), m.CurrentToken())
	if !errors.Is(err, api.ErrForbidden) {
		t.Fatalf("Revoke error = %v, want ErrForbidden", err)
	}
	if auth.revokeCalls != 0 || auth.listCalls != 0 {
		t.Errorf("revoke=%d list=%d network calls, want zero: the rejection is local",
			auth.revokeCalls, auth.listCalls)
	}
	// The session itself is untouched.
	if snap := m.Snapshot(); snap.State != StateActive {
		t.Errorf("State = %v, want StateActive", snap.State)
	}
}

func TestDirectory_Revoke_PropagatesAuthorityErrors(t *testing.T) {
	d, _, auth, _ := newTestDirectory(t)

	tests := []struct {
		name string
		err  error
	}{
		{"already revoked", api.ErrNotFound},
		{"policy refusal", api.ErrForbidden},
		{"authority unreachable", api.ErrNetwork},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth.mu.Lock()
			auth.revokeErr = tc.err
			auth.mu.Unlock()

			if _, err := d.Revoke(context.Background(), "tok-elsewhere"); !errors.Is(err, tc.err) {
				t.Errorf("Revoke error = %v, want %v", err, tc.err)
			}
		})
	}
}
