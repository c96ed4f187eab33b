// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the fleetwatch TUI.
package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// typeInto sends text to the focused field.
func typeInto(f *LoginForm, text string) *LoginForm {
	f, _ = f.Update(keyRunes(text))
	return f
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNewLoginForm(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	if f == nil {
		t.Fatal("NewLoginForm() returned nil")
	}
	if f.focus != fieldUsername {
		t.Errorf("NewLoginForm() focus = %d, want username field", f.focus)
	}
	if f.busy {
		t.Error("NewLoginForm() should not start busy")
	}
	if f.errText != "" {
		t.Errorf("NewLoginForm() errText = %q, want empty", f.errText)
	}
	if f.Remember() {
		t.Error("NewLoginForm() remember should default to false")
	}
}

// =============================================================================
// FOCUS TESTS
// =============================================================================

func TestLoginFormFocusCycle(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	// username -> password -> remember -> username
	wants := []int{fieldPassword, fieldRemember, fieldUsername}
	for _, want := range wants {
		f, _ = f.Update(keyType(tea.KeyTab))
		if f.focus != want {
			t.Fatalf("tab: focus = %d, want %d", f.focus, want)
		}
	}
}

func TestLoginFormFocusReverse(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	// shift+tab wraps backwards from username to remember
	f, _ = f.Update(keyType(tea.KeyShiftTab))
	if f.focus != fieldRemember {
		t.Errorf("shift+tab: focus = %d, want remember field", f.focus)
	}
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestLoginFormSubmitEmptyUsername(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd != nil {
		t.Error("submit with empty username should not emit a message")
	}
	if f.errText != "username is required" {
		t.Errorf("errText = %q, want %q", f.errText, "username is required")
	}
	if f.focus != fieldUsername {
		t.Error("focus should stay on the empty username field")
	}
}

func TestLoginFormSubmitEmptyPassword(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)
	f = typeInto(f, "amorim")

	f, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd != nil {
		t.Error("submit with empty password should not emit a message")
	}
	if f.errText != "password is required" {
		t.Errorf("errText = %q, want %q", f.errText, "password is required")
	}
	if f.focus != fieldPassword {
		t.Error("focus should move to the empty password field")
	}
}

func TestLoginFormSubmit(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "amorim")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "hunter2!")

	f, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("submit with both fields filled should emit a message")
	}

	msg, ok := cmd().(LoginSubmitMsg)
	if !ok {
		t.Fatalf("expected LoginSubmitMsg, got %T", cmd())
	}
	if msg.Username != "amorim" {
		t.Errorf("Username = %q, want %q", msg.Username, "amorim")
	}
	if msg.Password != "hunter2!" {
		t.Errorf("Password = %q, want %q", msg.Password, "hunter2!")
	}
	if msg.Remember {
		t.Error("Remember should be false by default")
	}
	if f.errText != "" {
		t.Errorf("errText = %q, want empty after valid submit", f.errText)
	}
}

func TestLoginFormSubmitTrimsUsername(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "  amorim  ")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "pw")

	_, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a submit message")
	}
	msg := cmd().(LoginSubmitMsg)
	if msg.Username != "amorim" {
		t.Errorf("Username = %q, want trimmed %q", msg.Username, "amorim")
	}
}

func TestLoginFormSubmitCarriesRemember(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "amorim")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "pw")
	f, _ = f.Update(keyType(tea.KeyTab)) // focus remember
	f, _ = f.Update(keyRunes(" "))       // toggle on

	if !f.Remember() {
		t.Fatal("space on remember field should toggle it on")
	}

	_, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a submit message")
	}
	msg := cmd().(LoginSubmitMsg)
	if !msg.Remember {
		t.Error("Remember should carry through to the submit message")
	}
}

func TestLoginFormBusyBlocksSubmit(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "amorim")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "pw")
	f.SetBusy(true)

	_, cmd := f.Update(keyType(tea.KeyEnter))
	if cmd != nil {
		t.Error("submit while busy should be a no-op")
	}
}

// =============================================================================
// REMEMBER TOGGLE TESTS
// =============================================================================

func TestLoginFormSpaceOnlyTogglesWhenFocused(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	// Space while the username field is focused types a space.
	f, _ = f.Update(keyRunes(" "))
	if f.Remember() {
		t.Error("space in a text field should not toggle remember")
	}

	f, _ = f.Update(keyType(tea.KeyTab)) // password
	f, _ = f.Update(keyType(tea.KeyTab)) // remember
	f, _ = f.Update(keyRunes(" "))
	if !f.Remember() {
		t.Error("space on the remember field should toggle it")
	}
	f, _ = f.Update(keyRunes(" "))
	if f.Remember() {
		t.Error("space should toggle remember back off")
	}
}

// =============================================================================
// RESET TESTS
// =============================================================================

func TestLoginFormReset(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "amorim")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "pw")
	f.SetError("bad credentials")
	f.SetBusy(true)

	f.Reset()

	if f.username.Value() != "" {
		t.Error("Reset() should clear the username")
	}
	if f.password.Value() != "" {
		t.Error("Reset() should clear the password")
	}
	if f.errText != "" {
		t.Error("Reset() should clear the error text")
	}
	if f.busy {
		t.Error("Reset() should clear the busy flag")
	}
	if f.focus != fieldUsername {
		t.Error("Reset() should refocus the username field")
	}
}

func TestLoginFormClearPassword(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f = typeInto(f, "amorim")
	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "pw")

	f.ClearPassword()

	if f.password.Value() != "" {
		t.Error("ClearPassword() should drop the password")
	}
	if f.username.Value() != "amorim" {
		t.Error("ClearPassword() should keep the username for retry")
	}
}

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestLoginFormView(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)
	f.SetSize(80, 24)

	view := f.View()
	if view == "" {
		t.Fatal("View() should return non-empty string")
	}
	if !strings.Contains(view, "fleetwatch sign-in") {
		t.Error("View() should contain the form title")
	}
	if !strings.Contains(view, "remember this device") {
		t.Error("View() should contain the remember checkbox")
	}
}

func TestLoginFormViewShowsError(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)
	f.SetError("account locked, retry in 42s")

	view := f.View()
	if !strings.Contains(view, "account locked, retry in 42s") {
		t.Error("View() should contain the error text")
	}
}

func TestLoginFormViewShowsBusy(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)
	if cmd := f.SetBusy(true); cmd == nil {
		t.Error("SetBusy(true) should return the spinner tick command")
	}

	view := f.View()
	if !strings.Contains(view, "Signing in") {
		t.Error("View() should show the sign-in spinner while busy")
	}

	if cmd := f.SetBusy(false); cmd != nil {
		t.Error("SetBusy(false) should not return a command")
	}
	if strings.Contains(f.View(), "Signing in") {
		t.Error("View() should drop the spinner once the attempt resolves")
	}
}

func TestLoginFormPasswordMasked(t *testing.T) {
	theme := styles.NewTheme()
	f := NewLoginForm(theme)

	f, _ = f.Update(keyType(tea.KeyTab))
	f = typeInto(f, "topsecret")

	view := f.View()
	if strings.Contains(view, "topsecret") {
		t.Error("View() must never render the raw password")
	}
}
