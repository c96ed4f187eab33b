// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

// Non-blocking corner notices. Refresh failures, revoke results, and
// poll errors surface here so an "authority unreachable" message never
// blocks the countdown or the session table. Expected policy logouts
// (midnight cutoff, token expiry) deliberately do not produce a toast;
// the redirect to the login view is the only signal.

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// ToastKind selects color, icon, and how long the notice stays up.
type ToastKind int

const (
	ToastKindStatus ToastKind = iota
	ToastKindError
	ToastKindWarning
	ToastKindSuccess
)

type toastProfile struct {
	color    lipgloss.AdaptiveColor
	icon     string
	duration time.Duration
}

// Errors linger the longest; the operator is usually mid-action on a
// different pane when one arrives.
func (k ToastKind) profile() toastProfile {
	switch k {
	case ToastKindError:
		return toastProfile{styles.Rose, styles.StatusIndicators.Error, 8 * time.Second}
	case ToastKindWarning:
		return toastProfile{styles.Amber, styles.StatusIndicators.Warning, 6 * time.Second}
	case ToastKindSuccess:
		return toastProfile{styles.Emerald, styles.StatusIndicators.Success, 4 * time.Second}
	default:
		return toastProfile{styles.Cyan, styles.StatusIndicators.Info, 4 * time.Second}
	}
}

// Toast is one queued notice.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

func (t Toast) expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

func (t Toast) remaining(now time.Time) time.Duration {
	r := t.Duration - now.Sub(t.CreatedAt)
	if r < 0 {
		return 0
	}
	return r
}

// ToastManager holds the visible queue, newest first. Authority calls
// complete on goroutines, so the queue is mutex-guarded.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
}

// maxVisibleToasts caps the stack so a burst of poll errors cannot
// cover the session table.
const maxVisibleToasts = 5

func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1}
}

func (m *ToastManager) add(kind ToastKind, message string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := kind.profile()
	t := Toast{
		ID:        m.nextID,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
		Duration:  p.duration,
	}
	m.nextID++
	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > maxVisibleToasts {
		m.toasts = m.toasts[:maxVisibleToasts]
	}
	return t.ID
}

// AddError queues an error notice.
func (m *ToastManager) AddError(message string) int {
	return m.add(ToastKindError, message)
}

// AddWarning queues a warning notice.
func (m *ToastManager) AddWarning(message string) int {
	return m.add(ToastKindWarning, message)
}

// AddStatus queues an informational notice.
func (m *ToastManager) AddStatus(message string) int {
	return m.add(ToastKindStatus, message)
}

// AddSuccess queues a success notice.
func (m *ToastManager) AddSuccess(message string) int {
	return m.add(ToastKindSuccess, message)
}

// TickToasts drops expired notices. Called on each ToastTickMsg.
func (m *ToastManager) TickToasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.expired(now) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return m.toasts
}

// GetToasts returns a snapshot of the queue for rendering.
func (m *ToastManager) GetToasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// HasToasts reports whether anything is still on screen; the tick chain
// stops re-arming once this is false.
func (m *ToastManager) HasToasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts) > 0
}

// ToastTickMsg drives toast expiry; it is separate from the 1-second
// session tick so a busy toast stack cannot perturb the countdown.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd re-arms the toast expiry tick.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// renderToast draws one notice box.
func renderToast(t Toast, width int) string {
	maxWidth := 60
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	p := t.Kind.profile()

	icon := lipgloss.NewStyle().Foreground(p.color).Bold(true).Render(p.icon + " ")
	body := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 8).
		Render(wrapToastText(t.Message, maxWidth-10))

	content := icon + body
	if secs := int(t.remaining(time.Now()).Seconds()); secs > 0 {
		hint := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
		content += "\n" + hint.Render("[x] Dismiss  "+strconv.Itoa(secs)+"s")
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack draws the queue in the bottom-right corner, newest
// at the top of the stack.
func RenderToastStack(toasts []Toast, width, height int) string {
	if len(toasts) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(toasts))
	for _, t := range toasts {
		boxes = append(boxes, renderToast(t, width))
	}
	stack := lipgloss.NewStyle().
		MarginRight(2).
		MarginBottom(1).
		Render(lipgloss.JoinVertical(lipgloss.Right, boxes...))

	if width > 0 && height > 0 {
		return lipgloss.Place(width, height, lipgloss.Right, lipgloss.Bottom, stack)
	}
	return stack
}

// wrapToastText word-wraps a message to maxWidth columns. lipgloss
// Width() clips rather than wraps, so wrapping happens first.
func wrapToastText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		switch {
		case line.Len() == 0:
			line.WriteString(word)
		case line.Len()+1+len(word) <= maxWidth:
			line.WriteString(" ")
			line.WriteString(word)
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
