// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT - Bottom bar with identity, countdowns and shortcuts
// =============================================================================

// secondsPerDay mirrors the reference zone's fixed 24h day for the
// day-progress gauge.
const secondsPerDay = 24 * 60 * 60

// StatusBar renders the bottom status bar. It holds no lifecycle state of
// its own: every render reads the snapshot the root model last pushed in,
// so the bar can never disagree with the manager.
type StatusBar struct {
	Width         int
	ShowShortcuts bool
	NetworkUp     bool
	Busy          bool // a request is in flight

	snap  session.Snapshot
	theme *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Width:         80,
		ShowShortcuts: true,
		NetworkUp:     true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetSnapshot updates the session snapshot the bar renders from.
func (s *StatusBar) SetSnapshot(snap session.Snapshot) {
	s.snap = snap
}

// SetNetwork updates the authority reachability indicator.
func (s *StatusBar) SetNetwork(up bool) {
	s.NetworkUp = up
}

// SetBusy marks whether a network request is in flight.
func (s *StatusBar) SetBusy(busy bool) {
	s.Busy = busy
}

// View renders the status bar.
func (s *StatusBar) View() string {
	// Choose layout based on width
	if s.Width < 60 {
		return s.viewNarrow()
	}
	if s.Width < 100 {
		return s.viewMedium()
	}
	return s.viewWide()
}

// viewNarrow renders a compact status bar for narrow terminals.
// Format: user 4:58 2:14:09 [OK]
func (s *StatusBar) viewNarrow() string {
	parts := []string{}

	if !s.snap.State.Authenticated() {
		parts = append(parts, s.theme.StatusSignedOut.Render("signed out"))
	} else {
		parts = append(parts, s.theme.StatusIdentity.Render(s.snap.Principal.Username))
		parts = append(parts, s.countdownStyle().Render(session.FormatCountdown(s.snap.SecondsUntilExpiry)))
		parts = append(parts, s.theme.MidnightClock.Render(session.FormatCountdown(s.snap.SecondsUntilMidnight)))
	}

	parts = append(parts, s.networkIndicator())

	result := strings.Join(parts, " ")

	return s.theme.StatusBar.
		Width(s.Width).
		Render(result)
}

// viewMedium renders a medium-width status bar.
// Format: user@role | exp 4:58 | cutoff 2:14:09 | [OK] | shortcuts
func (s *StatusBar) viewMedium() string {
	separator := s.theme.StatusSeparator.Render(" | ")

	parts := []string{}

	if !s.snap.State.Authenticated() {
		parts = append(parts, s.theme.StatusSignedOut.Render("signed out"))
	} else {
		parts = append(parts, s.renderIdentity())

		expLabel := s.theme.ShortcutDesc.Render("exp ")
		parts = append(parts, expLabel+s.countdownStyle().Render(session.FormatCountdown(s.snap.SecondsUntilExpiry)))

		cutLabel := s.theme.ShortcutDesc.Render("cutoff ")
		parts = append(parts, cutLabel+s.theme.MidnightClock.Render(session.FormatCountdown(s.snap.SecondsUntilMidnight)))
	}

	parts = append(parts, s.networkIndicator())

	if s.ShowShortcuts {
		parts = append(parts, s.renderShortcuts())
	}

	result := strings.Join(parts, separator)

	return s.theme.StatusBar.
		Width(s.Width).
		Render(result)
}

// viewWide renders a full-featured status bar for wide terminals.
// Format: user@role badge | 3 sessions ... exp 4:58 | cutoff 2:14:09 [gauge] ... [OK] shortcuts
func (s *StatusBar) viewWide() string {
	sep := s.theme.StatusSeparator.Render(" | ")

	// Left section: identity and directory summary
	leftParts := []string{}
	if !s.snap.State.Authenticated() {
		leftParts = append(leftParts, s.theme.StatusSignedOut.Render("signed out"))
	} else {
		leftParts = append(leftParts, s.renderIdentity())

		if s.snap.ActiveSessionCount > 0 {
			label := "sessions"
			if s.snap.ActiveSessionCount == 1 {
				label = "session"
			}
			leftParts = append(leftParts, s.theme.ShortcutDesc.Render(
				fmtNumber(s.snap.ActiveSessionCount)+" "+label))
		}
	}
	leftSection := strings.Join(leftParts, sep)

	// Center section: countdowns and day-progress gauge
	centerSection := ""
	if s.snap.State.Authenticated() {
		expLabel := s.theme.ShortcutDesc.Render("exp ")
		exp := expLabel + s.countdownStyle().Render(session.FormatCountdown(s.snap.SecondsUntilExpiry))

		cutLabel := s.theme.ShortcutDesc.Render("cutoff ")
		cut := cutLabel + s.theme.MidnightClock.Render(session.FormatCountdown(s.snap.SecondsUntilMidnight))

		centerSection = exp + sep + cut + " " + s.renderDayGauge()
	}

	// Right section: network, busy spinner hint, shortcuts
	rightParts := []string{s.networkIndicator()}
	if s.Busy {
		rightParts = append(rightParts, s.theme.Spinner.Render("~"))
	}
	if s.ShowShortcuts {
		rightParts = append(rightParts, s.renderShortcuts())
	}
	rightSection := strings.Join(rightParts, " ")

	// Calculate spacing
	leftWidth := lipgloss.Width(leftSection)
	centerWidth := lipgloss.Width(centerSection)
	rightWidth := lipgloss.Width(rightSection)
	totalContent := leftWidth + centerWidth + rightWidth

	spacing := s.Width - totalContent - 4 // Account for padding
	if spacing < 4 {
		spacing = 4
	}

	leftSpace := strings.Repeat(" ", spacing/2)
	rightSpace := strings.Repeat(" ", spacing-spacing/2)

	result := leftSection + leftSpace + centerSection + rightSpace + rightSection

	return s.theme.StatusBar.
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(styles.Overlay).
		Width(s.Width).
		Render(result)
}

// ==========================================================================
// HELPER RENDER METHODS
// ==========================================================================

// renderIdentity renders "username@" followed by the colored role badge.
func (s *StatusBar) renderIdentity() string {
	user := s.theme.StatusIdentity.Render(s.snap.Principal.Username)
	badge := s.theme.RoleBadge(string(s.snap.Principal.Role), styles.RoleColor(s.snap.Principal.Role))
	return user + badge
}

// countdownStyle picks the countdown color from the session state. The
// state already encodes the warning threshold, so the bar never
// recomputes it.
func (s *StatusBar) countdownStyle() lipgloss.Style {
	switch s.snap.State {
	case session.StateWarning, session.StateWarningDismissed:
		return s.theme.SessionWarn
	case session.StateActive:
		return s.theme.SessionOK
	default:
		return s.theme.SessionDead
	}
}

// networkIndicator renders the authority reachability marker.
// ACCESSIBILITY: Uses distinct shapes alongside colors for colorblind users.
func (s *StatusBar) networkIndicator() string {
	if s.NetworkUp {
		return s.theme.NetworkUp.Render(styles.StatusIndicators.Active + " net")
	}
	return s.theme.NetworkDown.Render(styles.StatusIndicators.Error + " net")
}

// renderDayGauge renders progress through the reference-zone day as a
// small bar: full at the cutoff.
func (s *StatusBar) renderDayGauge() string {
	elapsed := secondsPerDay - s.snap.SecondsUntilMidnight
	if elapsed < 0 {
		elapsed = 0
	}
	percent := float64(elapsed) / float64(secondsPerDay) * 100

	bar := styles.RenderProgressBar(8, percent)

	gaugeColor := styles.TextMuted
	if percent >= 97 { // final ~43 minutes of the day
		gaugeColor = styles.Rose
	} else if percent >= 90 {
		gaugeColor = styles.Amber
	}

	return lipgloss.NewStyle().Foreground(gaugeColor).Render("[" + bar + "]")
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	shortcuts := []string{}

	if s.snap.State.Authenticated() {
		shortcuts = append(shortcuts,
			s.theme.ShortcutKey.Render("^R")+s.theme.ShortcutDesc.Render("refresh"),
			s.theme.ShortcutKey.Render("^L")+s.theme.ShortcutDesc.Render("logout"),
		)
	}
	shortcuts = append(shortcuts,
		s.theme.ShortcutKey.Render("?")+s.theme.ShortcutDesc.Render("help"),
	)

	return strings.Join(shortcuts, " ")
}
