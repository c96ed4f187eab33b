// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for fleetwatch CLI output.
//
// Every subcommand renders through these styles so `status`,
// `sessions` and `journal` output reads the same. Colors degrade to
// plain text for pipes and NO_COLOR via GetColorProfile.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	// TitleStyle heads a command's output block.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	// SectionStyle marks a sub-heading inside a command.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1)

	// ValueStyle renders ordinary field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle marks confirmations, e.g. a completed revoke.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle marks expiring-soon rows and cutoff warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle renders hints and secondary detail.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// HighlightStyle marks the current session in the table.
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)
)

// RenderStatus renders a bracketed status tag colored by severity.
// Session states map onto the same three tags the rest of the CLI
// uses: signed-in is OK, expiring warns, expired and locked fail.
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "active", "signed-in":
		return SuccessStyle.Render("[OK]")
	case "error", "fail", "failed", "expired", "locked":
		return ErrorStyle.Render("[FAIL]")
	case "warning", "warn", "pending", "expiring":
		return WarningStyle.Render("[WARN]")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}

// RenderLabel renders a field label padded to a fixed column, 20
// characters unless overridden.
func RenderLabel(label string, width ...int) string {
	if len(width) > 0 && width[0] > 0 {
		return labelStyle.Width(width[0]).Render(label)
	}
	return labelStyle.Render(label)
}
