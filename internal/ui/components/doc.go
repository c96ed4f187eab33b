// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the fleetwatch TUI.

This package contains a collection of styled, interactive components built on
top of the Bubble Tea and Lip Gloss libraries. Each component is designed to
be visually consistent with the fleetwatch design language and to carry no
lifecycle policy of its own: views render session state, the lifecycle
manager owns it.

# Core Components

## Input Components

LoginForm (login.go) - Username/password/remember-me form built on bubbles textinput.

## Display Components

Header (header.go) - Application header with authority host and connection state.
StatusBar (statusbar.go) - Bottom status bar with identity, countdowns, and shortcuts.
DirectoryTable (directory.go) - Active session table with current/expiring annotations.
JournalView (journal.go) - Scrollable auth-event journal (admin/auditor gated).
Inspector (inspector.go) - Chroma-highlighted raw JSON of a directory entry.

## Progress and Feedback

Spinner (spinner.go) - Animated spinner shown while a request is in flight.
ErrorToast (error_toast.go) - Transient error/confirmation toasts.

## Session Components

ExpiryBanner (banner.go) - Pre-expiry warning and forced-logout overlays with
extend (refresh) and dismiss key handling.
HelpOverlay (help.go) - Glamour-rendered keyboard reference.

# Key Types

## Theme Integration

All components accept a *styles.Theme for consistent styling:

	theme := styles.NewTheme()
	bar := components.NewStatusBar(theme)
	bar.SetWidth(80)
	bar.SetSnapshot(manager.Snapshot())
	view := bar.View()

## Bubble Tea Integration

Interactive components implement the Bubble Tea update pattern:

	form, cmd := form.Update(msg)

Overlay components emit typed messages (ExtendRequestedMsg,
BannerDismissedMsg, ExpiredAckMsg) instead of mutating session state;
the root model translates them into lifecycle calls.

# Helper Functions

The package includes shared helper functions in helpers.go:
  - fmtNumber() - Thousand-separated integer formatting
  - truncateCell() - Width-aware truncation for table cells (go-runewidth)
*/
package components
