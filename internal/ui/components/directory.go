// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// SESSION DIRECTORY TABLE
// =============================================================================

// Fixed column widths; the device column absorbs whatever remains.
const (
	colAddressWidth = 15
	colSeenWidth    = 12
	colExpiresWidth = 9
	colBadgeWidth   = 13
	minDeviceWidth  = 12
)

// RevokeRequestedMsg asks the root model to revoke the given session
// token. Never emitted for the current session; that row offers no
// revoke control at all.
type RevokeRequestedMsg struct {
	Token string
}

// InspectRequestedMsg asks the root model to open the raw-JSON inspector
// for the given row.
type InspectRequestedMsg struct {
	Row session.Annotated
}

// DirectoryTable renders the principal's active sessions across all
// devices. Rows come pre-annotated and pre-ordered from the session
// directory; the table only draws and navigates them.
type DirectoryTable struct {
	rows   []session.Annotated
	cursor int

	// asOf anchors the per-row expiry countdowns. The root model advances
	// it on every tick so countdowns stay live between polls.
	asOf time.Time

	width int
	theme *styles.Theme
}

// NewDirectoryTable creates an empty directory table.
func NewDirectoryTable(theme *styles.Theme) *DirectoryTable {
	return &DirectoryTable{
		width: 80,
		theme: theme,
	}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetWidth updates the table width.
func (d *DirectoryTable) SetWidth(width int) {
	d.width = width
}

// SetRows replaces the table contents after a fetch, clamping the cursor.
func (d *DirectoryTable) SetRows(rows []session.Annotated, asOf time.Time) {
	d.rows = rows
	d.asOf = asOf
	if d.cursor >= len(rows) {
		d.cursor = len(rows) - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
}

// UpdateClock advances the countdown anchor without refetching.
func (d *DirectoryTable) UpdateClock(asOf time.Time) {
	d.asOf = asOf
}

// Rows returns the current row set.
func (d *DirectoryTable) Rows() []session.Annotated {
	return d.rows
}

// Selected returns the row under the cursor, if any.
func (d *DirectoryTable) Selected() (session.Annotated, bool) {
	if len(d.rows) == 0 || d.cursor < 0 || d.cursor >= len(d.rows) {
		return session.Annotated{}, false
	}
	return d.rows[d.cursor], true
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles navigation and row actions.
func (d *DirectoryTable) Update(msg tea.Msg) (*DirectoryTable, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)
	if !isKey {
		return d, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}
	case "down", "j":
		if d.cursor < len(d.rows)-1 {
			d.cursor++
		}
	case "home", "g":
		d.cursor = 0
	case "end", "G":
		if len(d.rows) > 0 {
			d.cursor = len(d.rows) - 1
		}
	case "x", "delete":
		row, ok := d.Selected()
		if !ok || row.Current {
			// The current session has no revoke control; logout is the
			// only way out of it.
			return d, nil
		}
		token := row.Token
		return d, func() tea.Msg { return RevokeRequestedMsg{Token: token} }
	case "i", "enter":
		row, ok := d.Selected()
		if !ok {
			return d, nil
		}
		return d, func() tea.Msg { return InspectRequestedMsg{Row: row} }
	}

	return d, nil
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the directory table.
func (d *DirectoryTable) View() string {
	var parts []string

	count := len(d.rows)
	title := "active sessions"
	if count > 0 {
		title += " (" + strconv.Itoa(count) + ")"
	}
	parts = append(parts, d.theme.DirTitle.Render(title))

	if count == 0 {
		parts = append(parts, d.theme.DirEmpty.Render("no active sessions"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	deviceWidth := d.deviceColumnWidth()

	header := padCell("DEVICE", deviceWidth) + " " +
		padCell("ADDRESS", colAddressWidth) + " " +
		padCell("LAST SEEN", colSeenWidth) + " " +
		padCell("EXPIRES", colExpiresWidth) + " " +
		padCell("", colBadgeWidth)
	parts = append(parts, d.theme.DirHeader.Render(header))

	for i, row := range d.rows {
		parts = append(parts, d.renderRow(i, row, deviceWidth))
	}

	parts = append(parts, d.theme.DirFootnote.Render(
		"x revoke   i inspect   l refresh list   (your current session has no revoke control)"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderRow renders one table row with cursor and current-session styling.
func (d *DirectoryTable) renderRow(i int, row session.Annotated, deviceWidth int) string {
	line := padCell(row.Device, deviceWidth) + " " +
		padCell(row.Address, colAddressWidth) + " " +
		padCell(relAge(row.LastAccessedAt, d.asOf), colSeenWidth) + " " +
		padCell(session.FormatCountdown(session.SecondsUntilExpiry(row.ExpiresAt, d.asOf)), colExpiresWidth) + " "

	badge := d.renderBadge(row)

	switch {
	case i == d.cursor:
		return d.theme.DirRowSelected.Render(line) + badge
	case row.Current:
		return d.theme.DirRowCurrent.Render(line) + badge
	default:
		return d.theme.DirRow.Render(line) + badge
	}
}

// renderBadge renders the row annotation. Current wins over expiring.
func (d *DirectoryTable) renderBadge(row session.Annotated) string {
	label := row.Label()
	switch label {
	case "current":
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true).
			Render(styles.StatusIndicators.Active + " " + label)
	case "expiring soon":
		return lipgloss.NewStyle().Foreground(styles.Amber).
			Render(styles.StatusIndicators.Warning + " " + label)
	default:
		return ""
	}
}

// deviceColumnWidth gives the device column the leftover width.
func (d *DirectoryTable) deviceColumnWidth() int {
	fixed := colAddressWidth + colSeenWidth + colExpiresWidth + colBadgeWidth + 4
	w := d.width - fixed
	if w < minDeviceWidth {
		return minDeviceWidth
	}
	return w
}

// relAge formats how long ago an instant was, coarsely: "now", "5m ago",
// "3h ago", "2d ago".
func relAge(t, asOf time.Time) string {
	age := asOf.Sub(t)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return strconv.Itoa(int(age.Minutes())) + "m ago"
	case age < 24*time.Hour:
		return strconv.Itoa(int(age.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(age.Hours()/24)) + "d ago"
	}
}
