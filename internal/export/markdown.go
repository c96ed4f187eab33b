// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/fleetwatch/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports journal events to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders the events as a Markdown report with an event table.
func (e *MarkdownExporter) Export(events []storage.Event, meta Meta) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to export")
	}

	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString("title: fleetwatch auth journal\n")
		sb.WriteString(fmt.Sprintf("source: %s\n", escapeYAML(meta.Source)))
		sb.WriteString(fmt.Sprintf("events: %d\n", len(events)))
		if len(meta.Filters) > 0 {
			sb.WriteString(fmt.Sprintf("filters: %s\n", escapeYAML(strings.Join(meta.Filters, ", "))))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", generatedAt.Format(time.RFC3339)))
		sb.WriteString("generator: fleetwatch\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString("# Auth Journal\n\n")

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Journal Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Source**: `%s`\n", meta.Source))
		sb.WriteString(fmt.Sprintf("- **Events**: %d\n", len(events)))
		if len(meta.Filters) > 0 {
			sb.WriteString(fmt.Sprintf("- **Filters**: %s\n", strings.Join(meta.Filters, ", ")))
		}
		sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", formatTimestamp(generatedAt)))
		sb.WriteString("\nTimes are local; the reference column shows the UTC+9 wall\n")
		sb.WriteString("clock that drives the daily cutoff. Session columns carry token\n")
		sb.WriteString("suffixes only.\n")
		sb.WriteString("\n---\n\n")
	}

	// Event table, newest first as the journal returns them
	sb.WriteString("## Events\n\n")
	sb.WriteString("| Time | Reference (UTC+9) | Event | Principal | Role | Session | Detail |\n")
	sb.WriteString("|------|-------------------|-------|-----------|------|---------|--------|\n")

	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			formatTimestamp(ev.OccurredAt.Local()),
			escapeTableCell(ev.OccurredAtRef),
			escapeTableCell(string(ev.Type)),
			escapeTableCell(ev.Username),
			escapeTableCell(ev.Role),
			suffixCell(ev.SessionSuffix),
			escapeTableCell(ev.Detail),
		))
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from fleetwatch on %s*\n",
		generatedAt.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// suffixCell renders a token suffix cell, or a dash when the event has none.
func suffixCell(suffix string) string {
	if suffix == "" {
		return "-"
	}
	return "`..." + escapeTableCell(suffix) + "`"
}

// escapeTableCell escapes characters that would break a Markdown table row.
// Detail text is free-form and may quote device descriptors or reasons.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	// Quote if contains special characters (including backslash)
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		// Escape special characters including newlines and backslashes
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
