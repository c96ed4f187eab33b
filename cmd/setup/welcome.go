// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	typeSpeed  = 50 * time.Millisecond
	blinkSpeed = 530 * time.Millisecond
)

// WelcomeScreen walks a new operator through the handful of things worth
// knowing before the first sign-in. Each card types its example command
// into a fake prompt.
type WelcomeScreen struct {
	width  int
	height int

	tips    []Tip
	current int

	// typewriter state; seq invalidates ticks from a previous card
	typed      int
	seq        int
	showCursor bool
}

// Tip is one card of the quick tour.
type Tip struct {
	Title       string
	Description string
	Example     string
	Icon        string
}

// NewWelcomeScreen creates the quick tour.
func NewWelcomeScreen() *WelcomeScreen {
	return &WelcomeScreen{
		tips: []Tip{
			{
				Title:       "Sign In",
				Description: "Authenticate against the issuing authority. Remember-me keeps the session across restarts.",
				Example:     "fleetwatch login -u amorim --remember",
				Icon:        "[Auth]",
			},
			{
				Title:       "Watch the Clock",
				Description: "Every session ends at midnight UTC+9, refreshed or not. The status bar counts down.",
				Example:     "4h 12m left | cutoff 00:00 +09",
				Icon:        "[Time]",
			},
			{
				Title:       "Extend a Session",
				Description: "Press Ctrl+R before the five-minute warning runs out to push token expiry back.",
				Example:     "Ctrl+R -> session extended",
				Icon:        "[Keys]",
			},
			{
				Title:       "The Directory",
				Description: "Press S to list your active sessions. Admins can revoke any session but their own.",
				Example:     "s -> 3 active sessions",
				Icon:        "[Dir]",
			},
			{
				Title:       "You're Ready!",
				Description: "Sign in and take the watch. The terminal is yours.",
				Example:     "fleetwatch",
				Icon:        "[Go!]",
			},
		},
	}
}

type blinkMsg struct{}

type typeMsg struct{ seq int }

// Init starts the cursor blink and the first card's typewriter.
func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Batch(blink(), w.restartTyping())
}

func blink() tea.Cmd {
	return tea.Tick(blinkSpeed, func(time.Time) tea.Msg { return blinkMsg{} })
}

// restartTyping resets the typewriter for the current card. Bumping seq
// orphans any tick still in flight from the previous card.
func (w *WelcomeScreen) restartTyping() tea.Cmd {
	w.typed = 0
	w.seq++
	seq := w.seq
	return tea.Tick(typeSpeed, func(time.Time) tea.Msg { return typeMsg{seq: seq} })
}

// Update handles messages.
func (w *WelcomeScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return w, tea.Quit
		case "enter", " ", "n":
			if w.current == len(w.tips)-1 {
				return w, tea.Quit
			}
			w.current++
			return w, w.restartTyping()
		case "p", "b":
			if w.current > 0 {
				w.current--
				return w, w.restartTyping()
			}
		}

	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height

	case blinkMsg:
		w.showCursor = !w.showCursor
		return w, blink()

	case typeMsg:
		if msg.seq != w.seq {
			return w, nil
		}
		if w.typed < len(w.tips[w.current].Example) {
			w.typed++
			seq := w.seq
			return w, tea.Tick(typeSpeed, func(time.Time) tea.Msg { return typeMsg{seq: seq} })
		}
	}

	return w, nil
}

// View renders the current card.
func (w *WelcomeScreen) View() string {
	tip := w.tips[w.current]

	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Foreground(brandPrimary).
		Bold(true).
		MarginBottom(1).
		Render("  Welcome to fleetwatch!"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s  %s", tip.Icon, highlightStyle.Render(tip.Title)))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("     " + tip.Description))
	b.WriteString("\n\n")
	b.WriteString(w.promptBox(tip.Example))
	b.WriteString("\n\n")
	b.WriteString(w.progressDots())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  ENTER: Next  |  P: Previous  |  Q: Start using fleetwatch"))

	return w.centerVertically(b.String())
}

// promptBox draws the fake terminal with the partially typed example.
func (w *WelcomeScreen) promptBox(example string) string {
	cursor := ""
	if w.showCursor {
		if w.typed >= len(example) {
			cursor = "_"
		} else {
			cursor = "|"
		}
	}

	content := dimStyle.Render("  > ") +
		highlightStyle.Render(example[:w.typed]) +
		dimStyle.Render(cursor)

	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(brandPrimary).
		Padding(1, 2).
		Width(50).
		Render(content)

	return "     " + box
}

// progressDots marks visited, current, and remaining cards.
func (w *WelcomeScreen) progressDots() string {
	var b strings.Builder
	b.WriteString("  ")
	for i := range w.tips {
		switch {
		case i == w.current:
			b.WriteString(highlightStyle.Render("*"))
		case i < w.current:
			b.WriteString(successStyle.Render("*"))
		default:
			b.WriteString(dimStyle.Render("o"))
		}
		b.WriteString(" ")
	}
	return b.String()
}

// centerVertically pads the card toward the upper third of the screen,
// which reads better than true centering for short content.
func (w *WelcomeScreen) centerVertically(content string) string {
	if w.height == 0 {
		return content
	}

	pad := (w.height - strings.Count(content, "\n") - 1) / 3
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", pad) + content
}
