// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// EXPIRY BANNER - Pre-expiry warning and forced-logout overlays
// =============================================================================

// ExpiryBanner displays a warning when the session is inside the expiry
// threshold, and a terminal notice once a forced logout has happened. The
// banner never mutates session state: keys are translated into messages
// the root model applies to the lifecycle manager.
type ExpiryBanner struct {
	// State
	visible          bool
	secondsRemaining int
	expired          bool
	reason           session.LogoutReason

	// Dimensions
	width  int
	height int
}

// NewExpiryBanner creates a hidden expiry banner.
func NewExpiryBanner() ExpiryBanner {
	return ExpiryBanner{}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize sets the overlay dimensions.
func (b *ExpiryBanner) SetSize(width, height int) {
	b.width = width
	b.height = height
}

// ShowWarning displays the pre-expiry warning with the given countdown.
func (b *ExpiryBanner) ShowWarning(secondsRemaining int) {
	b.visible = true
	b.expired = false
	b.secondsRemaining = secondsRemaining
}

// ShowExpired displays the terminal forced-logout notice.
func (b *ExpiryBanner) ShowExpired(reason session.LogoutReason) {
	b.visible = true
	b.expired = true
	b.secondsRemaining = 0
	b.reason = reason
}

// Hide hides the overlay.
func (b *ExpiryBanner) Hide() {
	b.visible = false
	b.expired = false
}

// UpdateCountdown updates the displayed remaining seconds on each tick.
func (b *ExpiryBanner) UpdateCountdown(secondsRemaining int) {
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	b.secondsRemaining = secondsRemaining
}

// IsVisible returns whether the overlay is currently visible.
func (b *ExpiryBanner) IsVisible() bool {
	return b.visible
}

// IsExpired returns whether the terminal variant is showing.
func (b *ExpiryBanner) IsExpired() bool {
	return b.expired
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// ExtendRequestedMsg signals the operator chose to extend (refresh) from
// the warning banner.
type ExtendRequestedMsg struct{}

// BannerDismissedMsg signals the operator dismissed the warning without
// extending. The expiry is unchanged and the forced logout still fires.
type BannerDismissedMsg struct{}

// ExpiredAckMsg signals the operator acknowledged the forced-logout
// notice and should be returned to the login form.
type ExpiredAckMsg struct{}

// Update handles key input while the banner is visible.
func (b ExpiryBanner) Update(msg tea.Msg) (ExpiryBanner, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height

	case tea.KeyMsg:
		if !b.visible {
			return b, nil
		}
		if b.expired {
			// Any key acknowledges the forced logout.
			b.Hide()
			return b, func() tea.Msg { return ExpiredAckMsg{} }
		}
		switch msg.String() {
		case "r", "R":
			b.Hide()
			return b, func() tea.Msg { return ExtendRequestedMsg{} }
		case "esc", "d":
			b.Hide()
			return b, func() tea.Msg { return BannerDismissedMsg{} }
		}
	}

	return b, nil
}

// View renders the banner overlay.
func (b ExpiryBanner) View() string {
	if !b.visible {
		return ""
	}

	if b.expired {
		return b.viewExpired()
	}
	return b.viewWarning()
}

// =============================================================================
// RENDER METHODS
// =============================================================================

// viewWarning renders the pre-expiry warning box.
func (b ExpiryBanner) viewWarning() string {
	width, height, maxWidth := b.dimensions()

	timeStr := session.FormatCountdown(b.secondsRemaining)

	var parts []string

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)
	parts = append(parts, titleStyle.Render(styles.StatusIndicators.Warning+" Session Expiry Warning"))

	parts = append(parts, "")

	timeStyle := lipgloss.NewStyle().
		Foreground(styles.Amber).
		Bold(true)

	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 4).
		Align(lipgloss.Center)

	parts = append(parts, msgStyle.Render(
		"Session will expire in "+timeStyle.Render(timeStr)))

	parts = append(parts, "")

	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)
	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Align(lipgloss.Center)
	parts = append(parts, hintStyle.Render(
		keyStyle.Render("r")+" extend session   "+keyStyle.Render("esc")+" dismiss"))

	parts = append(parts, "")

	noteStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Align(lipgloss.Center)
	parts = append(parts, noteStyle.Render("Dismissing does not extend the session"))

	content := lipgloss.JoinVertical(lipgloss.Center, parts...)

	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Amber).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center)

	box := boxStyle.Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// viewExpired renders the forced-logout notice.
func (b ExpiryBanner) viewExpired() string {
	width, height, maxWidth := b.dimensions()

	var parts []string

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Rose).
		Bold(true)
	parts = append(parts, titleStyle.Render(styles.StatusIndicators.Error+" Signed Out"))

	parts = append(parts, "")

	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 4).
		Align(lipgloss.Center)
	parts = append(parts, msgStyle.Render(b.reasonText()))

	parts = append(parts, "")

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Align(lipgloss.Center)
	parts = append(parts, hintStyle.Render("Press any key to return to sign-in"))

	content := lipgloss.JoinVertical(lipgloss.Center, parts...)

	boxStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Rose).
		Padding(1, 3).
		Width(maxWidth).
		Align(lipgloss.Center)

	box := boxStyle.Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// reasonText explains why the session ended, in operator terms.
func (b ExpiryBanner) reasonText() string {
	switch b.reason {
	case session.ReasonMidnightCutoff:
		return "The daily cutoff (midnight UTC+9) was reached. All fleet sessions end at the boundary regardless of token expiry."
	case session.ReasonTokenExpired:
		return "Your session token expired."
	case session.ReasonSessionRejected:
		return "The authority no longer recognizes this session. It may have been revoked from another device."
	default:
		return "Your session has ended."
	}
}

// dimensions resolves render dimensions, falling back to sane defaults
// when no window size has arrived yet.
func (b ExpiryBanner) dimensions() (width, height, maxWidth int) {
	width = b.width
	if width == 0 {
		width = 60
	}
	height = b.height
	if height == 0 {
		height = 24
	}

	maxWidth = width - 8
	if maxWidth < 40 {
		maxWidth = 40
	}
	if maxWidth > 60 {
		maxWidth = 60
	}
	return width, height, maxWidth
}
