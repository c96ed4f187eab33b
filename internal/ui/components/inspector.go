// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// SESSION INSPECTOR - Raw JSON view of a directory entry
// =============================================================================

// InspectorClosedMsg signals the inspector overlay was closed.
type InspectorClosedMsg struct{}

// Inspector shows the raw JSON of a selected directory row,
// syntax-highlighted. Tokens are redacted to their suffix before
// rendering; the full secret never reaches the screen.
type Inspector struct {
	visible bool
	row     session.Annotated

	width  int
	height int
	theme  *styles.Theme
}

// NewInspector creates a hidden inspector overlay.
func NewInspector(theme *styles.Theme) *Inspector {
	return &Inspector{
		width:  80,
		height: 24,
		theme:  theme,
	}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize sets the overlay dimensions.
func (n *Inspector) SetSize(width, height int) {
	n.width = width
	n.height = height
}

// Show opens the inspector on the given row.
func (n *Inspector) Show(row session.Annotated) {
	n.visible = true
	n.row = row
}

// Hide closes the overlay.
func (n *Inspector) Hide() {
	n.visible = false
}

// IsVisible returns whether the overlay is showing.
func (n *Inspector) IsVisible() bool {
	return n.visible
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles close keys while visible.
func (n *Inspector) Update(msg tea.Msg) (*Inspector, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		n.width = msg.Width
		n.height = msg.Height

	case tea.KeyMsg:
		if !n.visible {
			return n, nil
		}
		switch msg.String() {
		case "esc", "q", "i":
			n.Hide()
			return n, func() tea.Msg { return InspectorClosedMsg{} }
		}
	}

	return n, nil
}

// View renders the centered inspector overlay.
func (n *Inspector) View() string {
	if !n.visible {
		return ""
	}

	payload := n.renderPayload()

	title := n.theme.InspectorTitle.Render("session detail")
	hint := n.theme.Muted.Render("esc close")

	content := lipgloss.JoinVertical(lipgloss.Left, title, payload, "", hint)

	maxWidth := n.width - 8
	if maxWidth < 44 {
		maxWidth = 44
	}
	if maxWidth > 72 {
		maxWidth = 72
	}

	box := n.theme.InspectorBox.MaxWidth(maxWidth).Render(content)

	return lipgloss.Place(
		n.width, n.height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}

// renderPayload marshals the row with a redacted token and highlights it.
func (n *Inspector) renderPayload() string {
	view := inspectorPayload{
		Token:          RedactToken(n.row.Token),
		PrincipalID:    n.row.PrincipalID,
		Active:         n.row.Active,
		CreatedAt:      n.row.CreatedAt,
		LastAccessedAt: n.row.LastAccessedAt,
		ExpiresAt:      n.row.ExpiresAt,
		Remember:       n.row.Remember,
		Device:         n.row.Device,
		Address:        n.row.Address,
		Annotation:     n.row.Label(),
	}

	raw, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return n.theme.Muted.Render("(unrenderable session payload)")
	}

	return highlightJSON(string(raw))
}

// inspectorPayload mirrors api.Session plus the client-side annotation,
// with the token field pre-redacted.
type inspectorPayload struct {
	Token          string    `json:"token"`
	PrincipalID    string    `json:"principal_id"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Remember       bool      `json:"remember"`
	Device         string    `json:"device"`
	Address        string    `json:"address"`
	Annotation     string    `json:"annotation,omitempty"`
}

// RedactToken keeps only the last 8 characters of a token for display.
// SECURITY: full bearer tokens never appear on screen or in logs.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "..." + token
	}
	return "..." + token[len(token)-8:]
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightJSON applies JSON syntax highlighting using the chroma library.
// Returns the input unchanged when highlighting fails.
func highlightJSON(raw string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, raw)
	if err != nil {
		return raw
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return raw
	}

	return buf.String()
}
