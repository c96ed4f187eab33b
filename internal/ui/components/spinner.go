// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the fleetwatch TUI.
package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// Spinner marks an in-flight authority call (sign-in, refresh,
// session validation). It renders nothing while inactive, so views
// can embed it unconditionally.
type Spinner struct {
	spinner spinner.Model
	message string
	active  bool
}

// NewSignInSpinner returns the spinner shown during the sign-in
// exchange.
func NewSignInSpinner() Spinner {
	return newSpinner("Signing in")
}

// NewRefreshSpinner returns the spinner shown while a session refresh
// or validation call is pending.
func NewRefreshSpinner() Spinner {
	return newSpinner("Refreshing session")
}

func newSpinner(message string) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.LineSpinner.Frames,
		FPS:    styles.LineSpinner.Duration(),
	}
	return Spinner{spinner: s, message: message}
}

// SetMessage changes the label for the next activation.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// Start activates the spinner and returns its first tick.
func (s *Spinner) Start() tea.Cmd {
	s.active = true
	return s.spinner.Tick
}

// Stop hides the spinner. Safe to call when already stopped.
func (s *Spinner) Stop() {
	s.active = false
}

// IsActive reports whether a call is still pending.
func (s *Spinner) IsActive() bool {
	return s.active
}

// Update advances the animation. Ticks arriving after Stop are
// dropped, which ends the tick chain.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner glyph and label, or "" when inactive.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	glyph := lipgloss.NewStyle().Foreground(styles.Purple).Render(s.spinner.View())
	label := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.message)
	dots := lipgloss.NewStyle().Foreground(styles.Purple).Render("...")
	return glyph + " " + label + dots
}
