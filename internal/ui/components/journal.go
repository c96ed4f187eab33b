// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/storage"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// JOURNAL VIEW - Auth-event history
// =============================================================================

const (
	colJournalTimeWidth = 20
	colJournalTypeWidth = 15
	colJournalUserWidth = 12
)

// JournalReloadMsg asks the root model to reload journal events.
type JournalReloadMsg struct{}

// JournalView renders the local auth-event journal. The view itself holds
// no access policy; the guard decides whether it renders at all.
type JournalView struct {
	events []storage.Event
	offset int

	width  int
	height int
	theme  *styles.Theme
}

// NewJournalView creates an empty journal view.
func NewJournalView(theme *styles.Theme) *JournalView {
	return &JournalView{
		width:  80,
		height: 24,
		theme:  theme,
	}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize sets the view dimensions.
func (v *JournalView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampOffset()
}

// SetEvents replaces the displayed events, newest first.
func (v *JournalView) SetEvents(events []storage.Event) {
	v.events = events
	v.clampOffset()
}

// Events returns the displayed events.
func (v *JournalView) Events() []storage.Event {
	return v.events
}

func (v *JournalView) clampOffset() {
	max := len(v.events) - v.visibleRows()
	if max < 0 {
		max = 0
	}
	if v.offset > max {
		v.offset = max
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// visibleRows returns how many event rows fit under the title and header.
func (v *JournalView) visibleRows() int {
	rows := v.height - 4
	if rows < 3 {
		rows = 3
	}
	return rows
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles scroll keys.
func (v *JournalView) Update(msg tea.Msg) (*JournalView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			v.offset--
			v.clampOffset()
		case "down", "j":
			v.offset++
			v.clampOffset()
		case "g", "home":
			v.offset = 0
		case "G", "end":
			v.offset = len(v.events)
			v.clampOffset()
		case "l":
			return v, func() tea.Msg { return JournalReloadMsg{} }
		}
	}

	return v, nil
}

// View renders the journal.
func (v *JournalView) View() string {
	var b strings.Builder

	title := v.theme.JournalTitle.Render(
		"auth journal (" + fmtNumber(len(v.events)) + " events)")
	b.WriteString(title)
	b.WriteString("\n")

	if len(v.events) == 0 {
		b.WriteString(v.theme.DirEmpty.Render("no recorded events"))
		return b.String()
	}

	header := v.theme.DirHeader.Render(
		padCell("TIME", colJournalTimeWidth) + " " +
			padCell("EVENT", colJournalTypeWidth) + " " +
			padCell("WHO", colJournalUserWidth) + " " +
			"DETAIL")
	b.WriteString(header)
	b.WriteString("\n")

	rows := v.visibleRows()
	end := v.offset + rows
	if end > len(v.events) {
		end = len(v.events)
	}

	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(v.events[i]))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	if end < len(v.events) {
		b.WriteString("\n")
		b.WriteString(v.theme.DirFootnote.Render(
			"... " + fmtNumber(len(v.events)-end) + " older"))
	}

	return b.String()
}

// renderRow renders one event line.
func (v *JournalView) renderRow(ev storage.Event) string {
	timeCell := v.theme.JournalTime.Render(
		padCell(ev.OccurredAtRef, colJournalTimeWidth))

	typeCell := v.eventStyle(ev.Type).Render(
		padCell(string(ev.Type), colJournalTypeWidth))

	who := ev.Username
	if who == "" {
		who = "-"
	}
	whoCell := v.theme.DirRow.Render(padCell(who, colJournalUserWidth))

	detail := ev.Detail
	if ev.SessionSuffix != "" {
		if detail != "" {
			detail += " "
		}
		detail += "(..." + ev.SessionSuffix + ")"
	}
	detailWidth := v.width - colJournalTimeWidth - colJournalTypeWidth - colJournalUserWidth - 3
	if detailWidth < 8 {
		detailWidth = 8
	}
	detailCell := v.theme.Muted.Render(truncateCell(detail, detailWidth))

	return timeCell + " " + typeCell + " " + whoCell + " " + detailCell
}

// eventStyle maps an event type to its severity style.
func (v *JournalView) eventStyle(t storage.EventType) lipgloss.Style {
	switch t {
	case storage.EventWarning:
		return v.theme.JournalWarn
	case storage.EventForcedLogout, storage.EventRevoke:
		return v.theme.JournalError
	default:
		return v.theme.JournalInfo
	}
}
