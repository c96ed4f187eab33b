// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the fleetwatch TUI.
package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/fleetwatch/internal/storage"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// FIXTURES
// =============================================================================

func makeJournalEvents() []storage.Event {
	return []storage.Event{
		{
			Type:          storage.EventForcedLogout,
			OccurredAtRef: "2025-03-14 23:59:59",
			Username:      "amorim",
			SessionSuffix: "abcdef12",
			Detail:        "midnight cutoff",
		},
		{
			Type:          storage.EventWarning,
			OccurredAtRef: "2025-03-14 23:55:00",
			Username:      "amorim",
			SessionSuffix: "abcdef12",
		},
		{
			Type:          storage.EventRefresh,
			OccurredAtRef: "2025-03-14 22:10:31",
			Username:      "amorim",
			SessionSuffix: "abcdef12",
			Detail:        "expiry clamped to cutoff",
		},
		{
			Type:          storage.EventLogin,
			OccurredAtRef: "2025-03-14 08:00:12",
			Username:      "amorim",
			SessionSuffix: "abcdef12",
		},
	}
}

func makeJournalView() *JournalView {
	v := NewJournalView(styles.NewTheme())
	v.SetSize(100, 24)
	v.SetEvents(makeJournalEvents())
	return v
}

// =============================================================================
// STATE TESTS
// =============================================================================

func TestNewJournalView(t *testing.T) {
	v := NewJournalView(styles.NewTheme())

	if len(v.Events()) != 0 {
		t.Error("new journal view should have no events")
	}
}

func TestJournalSetEvents(t *testing.T) {
	v := makeJournalView()

	if len(v.Events()) != 4 {
		t.Errorf("Events() = %d entries, want 4", len(v.Events()))
	}
}

func TestJournalScrollClamp(t *testing.T) {
	v := NewJournalView(styles.NewTheme())
	v.SetSize(100, 7) // 3 visible rows
	v.SetEvents(makeJournalEvents())

	// Scroll well past the end; offset must clamp.
	for i := 0; i < 10; i++ {
		v, _ = v.Update(keyRunes("j"))
	}
	if v.offset > len(v.Events()) {
		t.Errorf("offset = %d, should be clamped", v.offset)
	}

	// Scroll well past the top.
	for i := 0; i < 10; i++ {
		v, _ = v.Update(keyRunes("k"))
	}
	if v.offset != 0 {
		t.Errorf("offset = %d, want 0 after scrolling to top", v.offset)
	}
}

func TestJournalReloadKey(t *testing.T) {
	v := makeJournalView()

	_, cmd := v.Update(keyRunes("l"))
	if cmd == nil {
		t.Fatal("'l' should emit a reload request")
	}
	if _, ok := cmd().(JournalReloadMsg); !ok {
		t.Fatalf("expected JournalReloadMsg, got %T", cmd())
	}
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestJournalViewEmpty(t *testing.T) {
	v := NewJournalView(styles.NewTheme())
	v.SetSize(100, 24)

	view := v.View()
	if !strings.Contains(view, "no recorded events") {
		t.Error("empty journal should say so")
	}
}

func TestJournalViewRendersEvents(t *testing.T) {
	v := makeJournalView()

	view := v.View()
	if !strings.Contains(view, "auth journal (4 events)") {
		t.Error("View() should show the event count")
	}
	if !strings.Contains(view, "forced_logout") {
		t.Error("View() should show event types")
	}
	if !strings.Contains(view, "amorim") {
		t.Error("View() should show the username")
	}
	if !strings.Contains(view, "2025-03-14 23:59:59") {
		t.Error("View() should show the reference-zone timestamp")
	}
	if !strings.Contains(view, "midnight cutoff") {
		t.Error("View() should show the detail text")
	}
}

func TestJournalViewShowsTokenSuffixOnly(t *testing.T) {
	v := makeJournalView()

	view := v.View()
	if !strings.Contains(view, "...abcdef12") {
		t.Error("View() should show the session suffix")
	}
}

func TestJournalViewOverflowFootnote(t *testing.T) {
	v := NewJournalView(styles.NewTheme())
	v.SetSize(100, 7) // 3 visible rows, 4 events
	v.SetEvents(makeJournalEvents())

	view := v.View()
	if !strings.Contains(view, "older") {
		t.Error("View() should note hidden older events")
	}
}
