// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// TICK CHAIN TESTS
// =============================================================================

func TestHandleTick_ReArmsWhileAuthenticated(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	cmd := m.HandleTick(TickMsg{Time: clk.Advance(time.Second)})
	if cmd == nil {
		t.Fatal("an authenticated tick must schedule the next one")
	}
}

func TestHandleTick_StopsAfterLogout(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)
	m.Logout(context.Background())

	cmd := m.HandleTick(TickMsg{Time: clk.Advance(time.Second)})
	if cmd != nil {
		t.Fatal("the tick chain must end once the session is gone")
	}
}

func TestHandleTick_ForcedLogoutEmitsMessageAndStops(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	cmd := m.HandleTick(TickMsg{Time: clk.Advance(31 * time.Minute)})
	if cmd == nil {
		t.Fatal("the forced-logout tick must emit a message")
	}

	// A forced logout is the only follow-up: no next tick is scheduled,
	// so the command resolves directly to the message.
	msg := cmd()
	fl, ok := msg.(ForcedLogoutMsg)
	if !ok {
		t.Fatalf("msg = %T, want ForcedLogoutMsg", msg)
	}
	if fl.Reason != ReasonTokenExpired {
		t.Errorf("Reason = %v, want ReasonTokenExpired", fl.Reason)
	}

	// And the chain is dead: the next tick schedules nothing.
	if next := m.HandleTick(TickMsg{Time: clk.Advance(time.Second)}); next != nil {
		t.Error("no tick should follow a forced logout")
	}
}

func TestHandleTick_WarningBatchesMessageWithNextTick(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	cmd := m.HandleTick(TickMsg{Time: clk.Advance(1500 * time.Second)})
	if cmd == nil {
		t.Fatal("the warning tick must produce commands")
	}

	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		t.Fatalf("msg = %T, want tea.BatchMsg carrying warning plus next tick", msg)
	}
	if len(batch) != 2 {
		t.Fatalf("batch = %d commands, want 2", len(batch))
	}
	first := batch[0]()
	warn, ok := first.(WarningMsg)
	if !ok {
		t.Fatalf("first command = %T, want WarningMsg", first)
	}
	if warn.SecondsLeft != WarnThresholdSeconds {
		t.Errorf("SecondsLeft = %d, want %d", warn.SecondsLeft, WarnThresholdSeconds)
	}
}
