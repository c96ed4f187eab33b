// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local auth-event journal for fleetwatch.
package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// JOURNAL TESTS
// =============================================================================

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), JournalFileName))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_AppendAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	ev := Event{
		Type:          EventLogin,
		PrincipalID:   "p-100",
		Username:      "amorim",
		Role:          "operator",
		SessionSuffix: TokenSuffix("tok-9f8e7d6c5b4a"),
		Detail:        "remember=true",
	}
	if err := j.Append(ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Recent returned %d events, want 1", len(events))
	}

	got := events[0]
	if got.Type != EventLogin {
		t.Errorf("Type = %q, want %q", got.Type, EventLogin)
	}
	if got.Username != "amorim" {
		t.Errorf("Username = %q, want %q", got.Username, "amorim")
	}
	if got.RequestID == "" {
		t.Error("Expected a generated request ID")
	}
	if got.OccurredAt.IsZero() {
		t.Error("Expected a stamped OccurredAt")
	}
	if got.OccurredAtRef == "" {
		t.Error("Expected a reference-zone timestamp")
	}
	if !strings.Contains(got.OccurredAtRef, "+09:00") {
		t.Errorf("OccurredAtRef = %q, want UTC+9 offset", got.OccurredAtRef)
	}
}

func TestJournal_SessionSuffixNotFullToken(t *testing.T) {
	token := "tok-9f8e7d6c5b4a"
	suffix := TokenSuffix(token)

	if suffix == token {
		t.Error("Suffix should not equal the full token")
	}
	if len(suffix) != 8 {
		t.Errorf("Suffix length = %d, want 8", len(suffix))
	}
	if !strings.HasSuffix(token, suffix) {
		t.Errorf("Token should end with suffix %q", suffix)
	}

	// Short tokens pass through unchanged.
	if got := TokenSuffix("short"); got != "short" {
		t.Errorf("TokenSuffix(short) = %q, want %q", got, "short")
	}
}

func TestJournal_RejectsUnknownEventType(t *testing.T) {
	j := openTestJournal(t)

	err := j.Append(Event{Type: EventType("promotion")})
	if err == nil {
		t.Fatal("Expected error for unknown event type")
	}
}

func TestJournal_OrderingNewestFirst(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	for i, typ := range []EventType{EventLogin, EventRefresh, EventWarning, EventForcedLogout} {
		ev := Event{
			Type:       typ,
			Username:   "amorim",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append %s failed: %v", typ, err)
		}
	}

	events, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("Recent returned %d events, want 4", len(events))
	}
	if events[0].Type != EventForcedLogout {
		t.Errorf("First event = %q, want %q (newest first)", events[0].Type, EventForcedLogout)
	}
	if events[3].Type != EventLogin {
		t.Errorf("Last event = %q, want %q", events[3].Type, EventLogin)
	}
}

func TestJournal_ListFilters(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)
	seed := []Event{
		{Type: EventLogin, Username: "amorim", OccurredAt: base},
		{Type: EventLogin, Username: "okabe", OccurredAt: base.Add(time.Minute)},
		{Type: EventLogout, Username: "amorim", OccurredAt: base.Add(2 * time.Minute)},
		{Type: EventRevoke, Username: "okabe", OccurredAt: base.Add(3 * time.Minute)},
	}
	for _, ev := range seed {
		if err := j.Append(ev); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by type", Filter{Type: EventLogin}, 2},
		{"by username", Filter{Username: "amorim"}, 2},
		{"type and username", Filter{Type: EventLogin, Username: "okabe"}, 1},
		{"since cuts older", Filter{Since: base.Add(90 * time.Second)}, 2},
		{"limit", Filter{Limit: 3}, 3},
		{"no match", Filter{Username: "nobody"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := j.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("List returned %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestJournal_Prune(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	now := time.Now()
	old := now.AddDate(0, 0, -45)
	recent := now.AddDate(0, 0, -5)

	if err := j.Append(Event{Type: EventLogin, Username: "amorim", OccurredAt: old}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Append(Event{Type: EventLogout, Username: "amorim", OccurredAt: recent}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	pruned, err := j.Prune(ctx, 30)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Pruned %d events, want 1", pruned)
	}

	count, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}

	// Invalid retention is rejected.
	if _, err := j.Prune(ctx, 0); err == nil {
		t.Error("Expected error for zero retention")
	}
}

func TestJournal_Closed(t *testing.T) {
	j := openTestJournal(t)
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := j.Append(Event{Type: EventLogin}); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("Append after close = %v, want ErrJournalClosed", err)
	}
	if _, err := j.Recent(context.Background(), 1); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("Recent after close = %v, want ErrJournalClosed", err)
	}

	// Closing twice is a no-op.
	if err := j.Close(); err != nil {
		t.Errorf("Second close = %v, want nil", err)
	}
}

func TestJournal_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, JournalFileName)

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := j.Append(Event{Type: EventLogin, Username: "amorim"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer j2.Close()

	count, err := j2.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count after reopen = %d, want 1", count)
	}
}
