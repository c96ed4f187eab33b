// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// LOGIN FORM COMPONENT
// =============================================================================

// Form field indexes, in tab order.
const (
	fieldUsername = iota
	fieldPassword
	fieldRemember
	fieldCount
)

// LoginSubmitMsg carries the entered credentials to the root model, which
// owns the actual login call.
type LoginSubmitMsg struct {
	Username string
	Password string
	Remember bool
}

// LoginForm is the username/password/remember-me form shown whenever the
// client is unauthenticated.
type LoginForm struct {
	username textinput.Model
	password textinput.Model
	remember bool

	focus   int
	errText string
	busy    bool
	spinner Spinner

	width  int
	height int
	theme  *styles.Theme
}

// NewLoginForm creates a login form with the username field focused.
func NewLoginForm(theme *styles.Theme) *LoginForm {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64
	user.Width = 28
	user.Prompt = "> "
	user.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	user.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	user.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
	user.Cursor.Style = lipgloss.NewStyle().Foreground(styles.Cyan)
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.Width = 28
	pass.Prompt = "> "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '*'
	pass.PromptStyle = user.PromptStyle
	pass.TextStyle = user.TextStyle
	pass.PlaceholderStyle = user.PlaceholderStyle
	pass.Cursor.Style = user.Cursor.Style

	return &LoginForm{
		username: user,
		password: pass,
		spinner:  NewSignInSpinner(),
		width:    80,
		height:   24,
		theme:    theme,
	}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize updates the form's render dimensions.
func (f *LoginForm) SetSize(width, height int) {
	f.width = width
	f.height = height
}

// SetError displays a rejection message under the form. Empty clears it.
func (f *LoginForm) SetError(text string) {
	f.errText = text
}

// SetBusy disables submission while a login request is in flight. The
// returned command drives the in-flight spinner; it is nil when busy
// is cleared.
func (f *LoginForm) SetBusy(busy bool) tea.Cmd {
	f.busy = busy
	if busy {
		return f.spinner.Start()
	}
	f.spinner.Stop()
	return nil
}

// Reset clears both fields and any error, refocusing the username field.
// The password is always dropped, whatever the outcome.
func (f *LoginForm) Reset() {
	f.username.Reset()
	f.password.Reset()
	f.remember = false
	f.errText = ""
	f.busy = false
	f.spinner.Stop()
	f.focus = fieldUsername
	f.username.Focus()
	f.password.Blur()
}

// ClearPassword drops only the password text, keeping the username for a
// retry after a rejection.
func (f *LoginForm) ClearPassword() {
	f.password.Reset()
}

// Remember returns the current remember-me choice.
func (f *LoginForm) Remember() bool {
	return f.remember
}

// SetRemember preselects the remember-me checkbox. Used to apply the
// configured default; the principal can still toggle it off.
func (f *LoginForm) SetRemember(remember bool) {
	f.remember = remember
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles key input and delegates to the focused field.
func (f *LoginForm) Update(msg tea.Msg) (*LoginForm, tea.Cmd) {
	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey {
		switch keyMsg.String() {
		case "tab", "down":
			f.setFocus((f.focus + 1) % fieldCount)
			return f, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + fieldCount - 1) % fieldCount)
			return f, nil
		case "enter":
			return f, f.submit()
		case " ":
			if f.focus == fieldRemember {
				f.remember = !f.remember
				return f, nil
			}
		}
	}

	// Spinner ticks arrive here while a sign-in is in flight; keys fall
	// through to the fields as usual.
	if f.busy {
		var cmd tea.Cmd
		f.spinner, cmd = f.spinner.Update(msg)
		if cmd != nil {
			return f, cmd
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case fieldUsername:
		f.username, cmd = f.username.Update(msg)
	case fieldPassword:
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

// setFocus moves focus between fields.
func (f *LoginForm) setFocus(target int) {
	f.focus = target
	f.username.Blur()
	f.password.Blur()
	switch target {
	case fieldUsername:
		f.username.Focus()
	case fieldPassword:
		f.password.Focus()
	}
}

// submit validates locally and emits LoginSubmitMsg. Submission from any
// field works; empty fields keep focus where the gap is.
func (f *LoginForm) submit() tea.Cmd {
	if f.busy {
		return nil
	}

	username := strings.TrimSpace(f.username.Value())
	password := f.password.Value()

	if username == "" {
		f.errText = "username is required"
		f.setFocus(fieldUsername)
		return nil
	}
	if password == "" {
		f.errText = "password is required"
		f.setFocus(fieldPassword)
		return nil
	}

	f.errText = ""
	remember := f.remember
	return func() tea.Msg {
		return LoginSubmitMsg{Username: username, Password: password, Remember: remember}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the centered login box.
func (f *LoginForm) View() string {
	var parts []string

	parts = append(parts, f.theme.LoginTitle.Render("fleetwatch sign-in"))

	parts = append(parts, f.label("username", fieldUsername))
	parts = append(parts, f.username.View())
	parts = append(parts, "")
	parts = append(parts, f.label("password", fieldPassword))
	parts = append(parts, f.password.View())
	parts = append(parts, "")
	parts = append(parts, f.renderRemember())

	if f.errText != "" {
		parts = append(parts, "")
		parts = append(parts, f.theme.LoginError.Render(styles.StatusIndicators.Error+" "+f.errText))
	}

	if f.busy {
		parts = append(parts, "")
		parts = append(parts, f.spinner.View())
	}

	parts = append(parts, "")
	parts = append(parts, f.theme.LoginHint.Render("tab next field  enter sign in  ctrl+c quit"))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	box := f.theme.LoginBox.Render(content)

	return lipgloss.Place(
		f.width, f.height,
		lipgloss.Center, lipgloss.Center,
		box,
	)
}

// label renders a field label, highlighted when the field is focused.
func (f *LoginForm) label(text string, field int) string {
	if f.focus == field {
		return f.theme.LoginLabelFocus.Render(text)
	}
	return f.theme.LoginLabel.Render(text)
}

// renderRemember renders the remember-me checkbox line.
func (f *LoginForm) renderRemember() string {
	box := "[ ]"
	style := f.theme.RememberUnticked
	if f.remember {
		box = "[x]"
		style = f.theme.RememberChecked
	}

	line := box + " remember this device"
	if f.focus == fieldRemember {
		return f.theme.LoginLabelFocus.Render(line)
	}
	return style.Render(line)
}
