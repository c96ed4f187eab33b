// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the fleetwatch TUI.

This package defines the complete color palette, theme, and animation
system used throughout the application. All colors use Lip Gloss
AdaptiveColor for automatic light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Admin highlights and the raw-session inspector
  - Cyan - Brand color for headings, key hints, and supervisor badges
  - Emerald - Healthy sessions, network up, operator badges
  - Amber - Expiry warnings, degraded network, auditor badges
  - Rose - Errors, expired sessions, and forced logout

## Session State Colors

The status bar and expiry banner key off three session states:

	SessionActive  - Plenty of runway on both countdowns
	SessionWarning - Inside the pre-expiry warning threshold
	SessionExpired - Token expired or the daily cutoff was reached

## Role Colors

RoleColor maps a principal's role to its badge accent:

	admin      - Purple
	supervisor - Cyan
	operator   - Emerald
	auditor    - Amber

## Surface Colors

Layered surface system for depth:

	Surface       - Main background
	SurfaceDim    - Subtle backgrounds (headers, status bars)
	SurfaceBright - Highlights
	Overlay       - Borders, separators, popups

## Text Colors

Hierarchical text color system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}
	if theme.HasTrueColor {
		// Terminal supports 16M colors
	}

Themes carry every style the views render with, grouped by screen:
login form, status bar, session directory, journal, expiry banners,
and overlays. GetLayoutMode picks narrow/medium/wide rendering from
the current terminal width.

# Animation System (animations.go)

LineSpinner animates while an authority request is in flight;
RenderProgressBar draws the fixed-width day-progress gauge in the
status bar.

## Status Indicators

ASCII indicators for various states:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	StatusIndicators.Warning - [!]
	StatusIndicators.Info    - [i]

# Usage Example

	import "github.com/jeranaias/fleetwatch/internal/ui/styles"

	// Use adaptive colors
	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)

	// Use theme for runtime detection
	theme := styles.NewTheme()
	bar := theme.SessionWarn.Render("4:58")

	// Use spinner configuration
	spinner := styles.LineSpinner
	interval := spinner.Duration()
*/
package styles
