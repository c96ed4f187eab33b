// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// ConnState is the authority link state shown in the header badge.
// The poll loop downgrades it on failures; any successful call
// restores ConnOnline.
type ConnState int

const (
	ConnOnline ConnState = iota
	ConnDegraded
	ConnOffline
)

func (c ConnState) String() string {
	switch c {
	case ConnOnline:
		return "ONLINE"
	case ConnDegraded:
		return "DEGRADED"
	case ConnOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Header is the title bar: brand, authority host, and link state.
type Header struct {
	Title string
	Host  string
	Conn  ConnState
	Width int
	theme *styles.Theme
}

func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "fleetwatch",
		Conn:  ConnOnline,
		Width: 80,
		theme: theme,
	}
}

func (h *Header) SetWidth(width int) { h.Width = width }

// SetHost records the authority URL rendered under the brand.
func (h *Header) SetHost(host string) { h.Host = host }

// SetConn updates the link state badge.
func (h *Header) SetConn(conn ConnState) { h.Conn = conn }

// View renders the full bordered header: brand line over a
// host + link-state subtitle.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}
	innerWidth := width - 6

	accent := lipgloss.NewStyle().Foreground(styles.Purple)
	brand := accent.Render("< ") + h.renderBrand() + accent.Render(" >")

	var subtitleParts []string
	if h.Host != "" {
		subtitleParts = append(subtitleParts, h.theme.HeaderHost.Render(h.Host))
	}
	subtitleParts = append(subtitleParts, h.connStyle().Render("["+h.Conn.String()+"]"))

	brandLine := lipgloss.NewStyle().
		Width(innerWidth).
		Align(lipgloss.Center).
		Render(brand)
	subtitleLine := lipgloss.NewStyle().
		Width(innerWidth).
		Align(lipgloss.Center).
		Foreground(styles.TextMuted).
		Render(strings.Join(subtitleParts, " "))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Background(styles.SurfaceDim).
		Padding(0, 2).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Center, brandLine, subtitleLine))
}

// ViewCompact renders a single-line header for narrow terminals:
// <fleetwatch> | host | [ONLINE]
func (h *Header) ViewCompact() string {
	accent := lipgloss.NewStyle().Foreground(styles.Purple)
	parts := []string{accent.Render("<") + h.renderBrand() + accent.Render(">")}

	if h.Host != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.TextMuted).Render(h.Host))
	}
	parts = append(parts, h.connStyle().Render("["+h.Conn.String()+"]"))

	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")
	return strings.Join(parts, sep)
}

func (h *Header) renderBrand() string {
	if h.theme != nil && h.theme.HasTrueColor {
		return GradientTitle(h.Title,
			lipgloss.Color(styles.Purple.Dark),
			lipgloss.Color(styles.Cyan.Dark))
	}
	return h.theme.HeaderBrand.Render(h.Title)
}

func (h *Header) connStyle() lipgloss.Style {
	switch h.Conn {
	case ConnOnline:
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	case ConnDegraded:
		return lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	case ConnOffline:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
}

// GradientTitle renders text with a per-rune color blend between two
// hex colors. Only used when the terminal reports true color.
func GradientTitle(text string, startColor, endColor lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}

	start, errS := colorful.Hex(string(startColor))
	end, errE := colorful.Hex(string(endColor))
	if errS != nil || errE != nil || len(runes) < 3 {
		return lipgloss.NewStyle().Foreground(startColor).Bold(true).Render(text)
	}

	var b strings.Builder
	n := len(runes)
	for i, r := range runes {
		t := float64(i) / float64(n-1)
		c := start.BlendRgb(end, t)
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(c.Hex())).
			Bold(true).
			Render(string(r)))
	}
	return b.String()
}
