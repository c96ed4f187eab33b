// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tick.go - Event-loop integration for the lifecycle manager.
//
// The presentation tick fires once per second and carries the wall-clock
// instant with it, so a delayed delivery still evaluates against the
// time the countdown should show. Ticks re-arm only while a credential
// is held; transitions to Unauthenticated tear the chain down
// deterministically with no timer left behind.
package session

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// MESSAGES
// =============================================================================

// TickMsg is the once-per-second countdown heartbeat.
type TickMsg struct {
	Time time.Time
}

// WarningMsg is emitted exactly once per approach to expiry, when the
// remaining lifetime first crosses the warning threshold.
type WarningMsg struct {
	SecondsLeft int
}

// ForcedLogoutMsg is emitted when a hard stop fired: the daily cutoff
// passed or the token expired. Local state is already cleared by the
// time this message is delivered.
type ForcedLogoutMsg struct {
	Reason LogoutReason
}

// PollMsg asks the program to run the slow background refresh of the
// session directory.
type PollMsg struct {
	Time time.Time
}

// =============================================================================
// COMMANDS
// =============================================================================

// DefaultPollInterval is the cadence of the background directory poll.
// PERFORMANCE: deliberately much slower than the display tick; listing
// sessions is a network round-trip.
const DefaultPollInterval = 45 * time.Second

// TickCmd schedules the next countdown tick.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// PollCmd schedules the next background directory poll.
func PollCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return PollMsg{Time: t}
	})
}

// HandleTick applies one countdown tick. It returns the follow-up
// commands: the transition message for the program (if any) and the next
// tick when the session is still live. Callers stop receiving ticks the
// moment the epoch ends; a later login starts a fresh chain.
func (m *Manager) HandleTick(msg TickMsg) tea.Cmd {
	res := m.Check(msg.Time)

	var cmds []tea.Cmd
	if res.ForcedLogout {
		reason := res.Reason
		cmds = append(cmds, func() tea.Msg { return ForcedLogoutMsg{Reason: reason} })
		return tea.Batch(cmds...)
	}
	if res.WarningRaised {
		left := res.SecondsUntilExpiry
		cmds = append(cmds, func() tea.Msg { return WarningMsg{SecondsLeft: left} })
	}
	if res.State.Authenticated() {
		cmds = append(cmds, TickCmd())
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}
