// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderHost  lipgloss.Style

	// ==========================================================================
	// LOGIN FORM STYLES
	// ==========================================================================

	LoginBox         lipgloss.Style
	LoginTitle       lipgloss.Style
	LoginLabel       lipgloss.Style
	LoginLabelFocus  lipgloss.Style
	LoginHint        lipgloss.Style
	LoginError       lipgloss.Style
	LoginLockout     lipgloss.Style
	RememberChecked  lipgloss.Style
	RememberUnticked lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusIdentity  lipgloss.Style
	StatusRoleBadge lipgloss.Style
	SessionOK       lipgloss.Style
	SessionWarn     lipgloss.Style
	SessionDead     lipgloss.Style
	MidnightClock   lipgloss.Style
	NetworkUp       lipgloss.Style
	NetworkDown     lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style
	StatusSeparator lipgloss.Style
	StatusSignedOut lipgloss.Style

	// ==========================================================================
	// SESSION DIRECTORY STYLES
	// ==========================================================================

	DirTitle       lipgloss.Style
	DirHeader      lipgloss.Style
	DirRow         lipgloss.Style
	DirRowSelected lipgloss.Style
	DirRowCurrent  lipgloss.Style
	DirEmpty       lipgloss.Style
	DirFootnote    lipgloss.Style

	// ==========================================================================
	// JOURNAL STYLES
	// ==========================================================================

	JournalTitle lipgloss.Style
	JournalTime  lipgloss.Style
	JournalInfo  lipgloss.Style
	JournalWarn  lipgloss.Style
	JournalError lipgloss.Style

	// ==========================================================================
	// EXPIRY BANNER STYLES
	// ==========================================================================

	BannerWarning lipgloss.Style
	BannerExpired lipgloss.Style
	BannerTitle   lipgloss.Style
	BannerBody    lipgloss.Style
	BannerKeys    lipgloss.Style

	// ==========================================================================
	// OVERLAY STYLES
	// ==========================================================================

	InspectorBox   lipgloss.Style
	InspectorTitle lipgloss.Style
	HelpBox        lipgloss.Style
	HelpTitle      lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	ErrorToast   lipgloss.Style
	SuccessToast lipgloss.Style
	Spinner      lipgloss.Style
	Muted        lipgloss.Style
	Bold         lipgloss.Style
}

// NewTheme creates a theme configured for the current terminal.
// It detects color capabilities and dark/light background automatically.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
		Width:        80,
		Height:       24,
	}
	t.HasTrueColor = t.ColorProfile == termenv.TrueColor
	t.initStyles()
	return t
}

// SetSize updates the theme's layout dimensions after a terminal resize.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// initStyles initializes all the lipgloss styles.
func (t *Theme) initStyles() {
	// ==========================================================================
	// APPLICATION CONTAINER
	// ==========================================================================

	t.App = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.Container = lipgloss.NewStyle().
		Padding(0, 1)

	// ==========================================================================
	// HEADER
	// ==========================================================================

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.HeaderHost = lipgloss.NewStyle().
		Foreground(TextMuted)

	// ==========================================================================
	// LOGIN FORM
	// ==========================================================================

	t.LoginBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 3)

	t.LoginTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		MarginBottom(1)

	t.LoginLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.LoginLabelFocus = lipgloss.NewStyle().
		Foreground(FocusRing).
		Bold(true)

	t.LoginHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		MarginTop(1)

	t.LoginError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.LoginLockout = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Padding(0, 1).
		Bold(true)

	t.RememberChecked = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.RememberUnticked = lipgloss.NewStyle().
		Foreground(TextMuted)

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusIdentity = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.StatusRoleBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Padding(0, 1).
		Bold(true)

	t.SessionOK = lipgloss.NewStyle().
		Foreground(SessionActive)

	t.SessionWarn = lipgloss.NewStyle().
		Foreground(SessionWarning).
		Bold(true)

	t.SessionDead = lipgloss.NewStyle().
		Foreground(SessionExpired).
		Bold(true)

	t.MidnightClock = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.NetworkUp = lipgloss.NewStyle().
		Foreground(Emerald)

	t.NetworkDown = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusSeparator = lipgloss.NewStyle().
		Foreground(OverlayDim)

	t.StatusSignedOut = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// ==========================================================================
	// SESSION DIRECTORY
	// ==========================================================================

	t.DirTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		MarginBottom(1)

	t.DirHeader = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)

	t.DirRow = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.DirRowSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.DirRowCurrent = lipgloss.NewStyle().
		Foreground(Cyan)

	t.DirEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(1, 0)

	t.DirFootnote = lipgloss.NewStyle().
		Foreground(TextMuted).
		MarginTop(1)

	// ==========================================================================
	// JOURNAL
	// ==========================================================================

	t.JournalTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		MarginBottom(1)

	t.JournalTime = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.JournalInfo = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.JournalWarn = lipgloss.NewStyle().
		Foreground(Amber)

	t.JournalError = lipgloss.NewStyle().
		Foreground(Rose)

	// ==========================================================================
	// EXPIRY BANNERS
	// ==========================================================================

	t.BannerWarning = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Amber).
		Padding(1, 3)

	t.BannerExpired = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Rose).
		Padding(1, 3)

	t.BannerTitle = lipgloss.NewStyle().
		Bold(true).
		MarginBottom(1)

	t.BannerBody = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.BannerKeys = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true).
		MarginTop(1)

	// ==========================================================================
	// OVERLAYS
	// ==========================================================================

	t.InspectorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.InspectorTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		MarginBottom(1)

	t.HelpBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)

	t.HelpTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	// ==========================================================================
	// FEEDBACK
	// ==========================================================================

	t.ErrorToast = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Padding(0, 1).
		Bold(true)

	t.SuccessToast = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Cyan)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Bold = lipgloss.NewStyle().
		Bold(true)
}

// =============================================================================
// RESPONSIVE LAYOUT
// =============================================================================

// LayoutMode determines how the UI adapts to terminal width.
type LayoutMode int

const (
	// LayoutNarrow - Compact layout for narrow terminals (<60 cols)
	LayoutNarrow LayoutMode = iota
	// LayoutMedium - Standard layout (60-100 cols)
	LayoutMedium
	// LayoutWide - Full layout with all details (>100 cols)
	LayoutWide
)

// GetLayoutMode returns the appropriate layout mode for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	switch {
	case t.Width < 60:
		return LayoutNarrow
	case t.Width < 100:
		return LayoutMedium
	default:
		return LayoutWide
	}
}

// RoleBadge renders a role badge using the role's accent color as background.
func (t *Theme) RoleBadge(role string, color lipgloss.AdaptiveColor) string {
	return t.StatusRoleBadge.Background(color).Render(role)
}
