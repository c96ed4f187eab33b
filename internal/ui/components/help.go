// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// HELP OVERLAY - Keyboard reference
// =============================================================================

// helpMarkdown is the keyboard reference shown by the help overlay.
// Rendered with glamour so the terminal picks a light or dark style.
const helpMarkdown = `# fleetwatch keys

## Anywhere

| Key | Action |
|-----|--------|
| ` + "`ctrl+c`" + ` | quit |

## Sign-in

| Key | Action |
|-----|--------|
| ` + "`tab`" + ` / ` + "`shift+tab`" + ` | next / previous field |
| ` + "`space`" + ` | toggle remember-device |
| ` + "`enter`" + ` | sign in |

## Signed in

| Key | Action |
|-----|--------|
| ` + "`?`" + ` | toggle this help |
| ` + "`ctrl+r`" + ` | refresh session (extends expiry, never past midnight) |
| ` + "`ctrl+l`" + ` | sign out |
| ` + "`s`" + ` | session directory |
| ` + "`j`" + ` | auth journal (admin / auditor) |
| ` + "`esc`" + ` | back to overview |

## Session directory

| Key | Action |
|-----|--------|
| ` + "`up`" + ` / ` + "`down`" + ` / ` + "`k`" + ` / ` + "`j`" + ` | move selection |
| ` + "`x`" + ` | revoke selected session |
| ` + "`i`" + ` | inspect selected session |
| ` + "`l`" + ` | reload list |

Your current session shows no revoke control. Signing out is the
only way to end it.

## Expiry warning

| Key | Action |
|-----|--------|
| ` + "`r`" + ` | extend session |
| ` + "`esc`" + ` | dismiss (expiry unchanged) |

All sessions end at midnight UTC+9 no matter how recently they
were refreshed.
`

// HelpClosedMsg signals the help overlay was dismissed.
type HelpClosedMsg struct{}

// HelpOverlay renders the keyboard reference as a centered overlay.
type HelpOverlay struct {
	visible bool

	width  int
	height int
	theme  *styles.Theme

	// rendered caches the glamour output for the current wrap width.
	rendered  string
	wrapWidth int
}

// NewHelpOverlay creates a hidden help overlay.
func NewHelpOverlay(theme *styles.Theme) *HelpOverlay {
	return &HelpOverlay{
		width:  80,
		height: 24,
		theme:  theme,
	}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize sets the overlay dimensions.
func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// Show opens the overlay.
func (h *HelpOverlay) Show() {
	h.visible = true
}

// Hide closes the overlay.
func (h *HelpOverlay) Hide() {
	h.visible = false
}

// Toggle flips visibility.
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// IsVisible returns whether the overlay is showing.
func (h *HelpOverlay) IsVisible() bool {
	return h.visible
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles close keys while visible.
func (h *HelpOverlay) Update(msg tea.Msg) (*HelpOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height

	case tea.KeyMsg:
		if !h.visible {
			return h, nil
		}
		switch msg.String() {
		case "esc", "q", "?":
			h.Hide()
			return h, func() tea.Msg { return HelpClosedMsg{} }
		}
	}

	return h, nil
}

// View renders the centered help overlay.
func (h *HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	wrap := h.width - 12
	if wrap < 48 {
		wrap = 48
	}
	if wrap > 76 {
		wrap = 76
	}

	body := h.renderMarkdown(wrap)
	hint := h.theme.Muted.Render("esc close")
	content := lipgloss.JoinVertical(lipgloss.Left, body, hint)

	box := h.theme.HelpBox.MaxWidth(wrap + 4).Render(content)

	return lipgloss.Place(
		h.width, h.height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// renderMarkdown renders the help text through glamour, caching per width.
// Returns the raw markdown when rendering fails.
func (h *HelpOverlay) renderMarkdown(wrap int) string {
	if h.rendered != "" && h.wrapWidth == wrap {
		return h.rendered
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return helpMarkdown
	}

	out, err := renderer.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}

	h.rendered = out
	h.wrapWidth = wrap
	return out
}
