// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the fleetwatch TUI.
package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwatch/internal/session"
)

// =============================================================================
// VISIBILITY TESTS
// =============================================================================

func TestNewExpiryBanner(t *testing.T) {
	b := NewExpiryBanner()

	if b.IsVisible() {
		t.Error("NewExpiryBanner() should start hidden")
	}
	if b.IsExpired() {
		t.Error("NewExpiryBanner() should not start in expired mode")
	}
}

func TestExpiryBannerShowWarning(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(300)

	if !b.IsVisible() {
		t.Error("ShowWarning() should make the banner visible")
	}
	if b.IsExpired() {
		t.Error("ShowWarning() should not set expired mode")
	}
	if b.secondsRemaining != 300 {
		t.Errorf("secondsRemaining = %d, want 300", b.secondsRemaining)
	}
}

func TestExpiryBannerShowExpired(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowExpired(session.ReasonMidnightCutoff)

	if !b.IsVisible() {
		t.Error("ShowExpired() should make the banner visible")
	}
	if !b.IsExpired() {
		t.Error("ShowExpired() should set expired mode")
	}
}

func TestExpiryBannerHide(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(120)
	b.Hide()

	if b.IsVisible() {
		t.Error("Hide() should hide the banner")
	}
}

func TestExpiryBannerUpdateCountdown(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(300)

	b.UpdateCountdown(299)
	if b.secondsRemaining != 299 {
		t.Errorf("UpdateCountdown(299) secondsRemaining = %d, want 299", b.secondsRemaining)
	}

	// Never shows a negative countdown
	b.UpdateCountdown(-5)
	if b.secondsRemaining != 0 {
		t.Errorf("UpdateCountdown(-5) secondsRemaining = %d, want 0", b.secondsRemaining)
	}
}

// =============================================================================
// KEY HANDLING TESTS
// =============================================================================

func TestExpiryBannerExtendKey(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(240)

	b, cmd := b.Update(keyRunes("r"))
	if cmd == nil {
		t.Fatal("'r' on a warning banner should emit a message")
	}
	if _, ok := cmd().(ExtendRequestedMsg); !ok {
		t.Fatalf("expected ExtendRequestedMsg, got %T", cmd())
	}
	if b.IsVisible() {
		t.Error("'r' should hide the banner")
	}
}

func TestExpiryBannerDismissKey(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(240)

	b, cmd := b.Update(keyType(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("esc on a warning banner should emit a message")
	}
	if _, ok := cmd().(BannerDismissedMsg); !ok {
		t.Fatalf("expected BannerDismissedMsg, got %T", cmd())
	}
	if b.IsVisible() {
		t.Error("esc should hide the banner")
	}
}

func TestExpiryBannerDismissDoesNotExtend(t *testing.T) {
	b := NewExpiryBanner()
	b.ShowWarning(240)

	// Dismissal is acknowledgement only. The root model must not
	// treat it as an extension request.
	_, cmd := b.Update(keyRunes("d"))
	if cmd == nil {
		t.Fatal("'d' should emit a dismissal")
	}
	if _, ok := cmd().(ExtendRequestedMsg); ok {
		t.Fatal("dismissal must not request an extension")
	}
	if _, ok := cmd().(BannerDismissedMsg); !ok {
		t.Fatalf("expected BannerDismissedMsg, got %T", cmd())
	}
}

func TestExpiryBannerExpiredAnyKey(t *testing.T) {
	keys := []tea.KeyMsg{
		keyType(tea.KeyEnter),
		keyType(tea.KeyEsc),
		keyRunes("x"),
		keyRunes(" "),
	}

	for _, key := range keys {
		b := NewExpiryBanner()
		b.ShowExpired(session.ReasonTokenExpired)

		b, cmd := b.Update(key)
		if cmd == nil {
			t.Fatalf("key %q on expired banner should emit an ack", key.String())
		}
		if _, ok := cmd().(ExpiredAckMsg); !ok {
			t.Fatalf("expected ExpiredAckMsg, got %T", cmd())
		}
		if b.IsVisible() {
			t.Error("acknowledging should hide the banner")
		}
	}
}

func TestExpiryBannerIgnoresKeysWhenHidden(t *testing.T) {
	b := NewExpiryBanner()

	_, cmd := b.Update(keyRunes("r"))
	if cmd != nil {
		t.Error("hidden banner should ignore keys")
	}
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestExpiryBannerViewHidden(t *testing.T) {
	b := NewExpiryBanner()

	if view := b.View(); view != "" {
		t.Error("hidden banner should render nothing")
	}
}

func TestExpiryBannerViewWarning(t *testing.T) {
	b := NewExpiryBanner()
	b.SetSize(80, 24)
	b.ShowWarning(240)

	view := b.View()
	if view == "" {
		t.Fatal("warning banner should render")
	}
	if !strings.Contains(view, "Session Expiry Warning") {
		t.Error("warning banner should carry its title")
	}
	if !strings.Contains(view, "4:00") {
		t.Error("warning banner should show the formatted countdown")
	}
	if !strings.Contains(view, "Dismissing does not extend the session") {
		t.Error("warning banner should explain that dismissal changes nothing")
	}
}

func TestExpiryBannerViewExpired(t *testing.T) {
	b := NewExpiryBanner()
	b.SetSize(80, 24)
	b.ShowExpired(session.ReasonUserLogout)

	view := b.View()
	if !strings.Contains(view, "Signed Out") {
		t.Error("expired banner should carry its title")
	}
	if !strings.Contains(view, "Press any key") {
		t.Error("expired banner should prompt for acknowledgement")
	}
}

func TestExpiryBannerReasonText(t *testing.T) {
	tests := []struct {
		name   string
		reason session.LogoutReason
		want   string
	}{
		{"midnight cutoff", session.ReasonMidnightCutoff, "midnight UTC+9"},
		{"token expired", session.ReasonTokenExpired, "token expired"},
		{"rejected", session.ReasonSessionRejected, "no longer recognizes"},
		{"user logout", session.ReasonUserLogout, "session has ended"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewExpiryBanner()
			b.SetSize(80, 24)
			b.ShowExpired(tc.reason)

			view := b.View()
			if !strings.Contains(view, tc.want) {
				t.Errorf("expired view for %v should mention %q", tc.reason, tc.want)
			}
		})
	}
}
