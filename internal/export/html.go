// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/fleetwatch/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports journal events to HTML format with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export renders the events as a standalone HTML page.
func (e *HTMLExporter) Export(events []storage.Event, meta Meta) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to export")
	}

	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	var sb strings.Builder

	// HTML header
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString("    <title>fleetwatch auth journal</title>\n")
	sb.WriteString("    <meta name=\"generator\" content=\"fleetwatch\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", generatedAt.Format(time.RFC3339)))

	// Embedded CSS
	sb.WriteString(e.getCSS())

	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.themeClass()))

	// Container
	sb.WriteString("    <div class=\"container\">\n")

	// Header with metadata
	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(events, meta, generatedAt))
	}

	// Event table
	sb.WriteString("        <main class=\"journal\">\n")
	sb.WriteString("            <table>\n")
	sb.WriteString("                <thead><tr>")
	sb.WriteString("<th>Time</th><th>Reference (UTC+9)</th><th>Event</th>")
	sb.WriteString("<th>Principal</th><th>Role</th><th>Session</th><th>Detail</th>")
	sb.WriteString("</tr></thead>\n")
	sb.WriteString("                <tbody>\n")
	for _, ev := range events {
		sb.WriteString(e.renderEvent(ev))
	}
	sb.WriteString("                </tbody>\n")
	sb.WriteString("            </table>\n")
	sb.WriteString("        </main>\n")

	// Footer
	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>fleetwatch</strong> on %s</p>\n",
		generatedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("            <p>Session columns carry token suffixes only; the journal never stores full tokens.</p>\n")
	sb.WriteString("        </footer>\n")

	sb.WriteString("    </div>\n")

	// Theme toggle script
	sb.WriteString(e.getScript())

	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(events []storage.Event, meta Meta, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString("            <h1>Auth Journal</h1>\n")
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Source:</strong> %s</span>\n",
		html.EscapeString(meta.Source)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Events:</strong> %d</span>\n",
		len(events)))
	if len(meta.Filters) > 0 {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Filters:</strong> %s</span>\n",
			html.EscapeString(strings.Join(meta.Filters, ", "))))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Exported:</strong> %s</span>\n",
		formatTimestamp(generatedAt)))
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderEvent renders a single event row. The row class carries the event
// type so forced logouts and revocations stand out when scanning.
func (e *HTMLExporter) renderEvent(ev storage.Event) string {
	suffix := "-"
	if ev.SessionSuffix != "" {
		suffix = "<code>..." + html.EscapeString(ev.SessionSuffix) + "</code>"
	}

	return fmt.Sprintf("                    <tr class=\"ev-%s\">"+
		"<td>%s</td><td>%s</td><td><span class=\"badge\">%s</span></td>"+
		"<td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
		cssClass(string(ev.Type)),
		formatTimestamp(ev.OccurredAt.Local()),
		html.EscapeString(ev.OccurredAtRef),
		html.EscapeString(string(ev.Type)),
		html.EscapeString(ev.Username),
		html.EscapeString(ev.Role),
		suffix,
		html.EscapeString(ev.Detail),
	)
}

// themeClass returns the validated body theme class.
func (e *HTMLExporter) themeClass() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// cssClass lowercases an event type into a safe CSS class fragment.
func cssClass(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// EMBEDDED ASSETS
// =============================================================================

// getCSS returns the embedded CSS for the HTML export.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root {
            --bg: #0f1117;
            --surface: #181b23;
            --border: #2a2f3a;
            --text: #e6e6e6;
            --muted: #8b93a3;
            --accent: #4fc1e9;
            --ok: #5cd65c;
            --warn: #e6b800;
            --bad: #e05252;
        }
        body.light-theme {
            --bg: #f7f7f5;
            --surface: #ffffff;
            --border: #d8d8d4;
            --text: #1d1f24;
            --muted: #5a6170;
            --accent: #0b7285;
            --ok: #2b8a3e;
            --warn: #9a6700;
            --bad: #c92a2a;
        }
        * { box-sizing: border-box; }
        body {
            margin: 0;
            background: var(--bg);
            color: var(--text);
            font-family: "SF Mono", "Cascadia Code", Consolas, monospace;
            font-size: 14px;
            line-height: 1.5;
        }
        .container { max-width: 1100px; margin: 0 auto; padding: 24px 16px; }
        .header h1 { margin: 0 0 8px; font-size: 22px; color: var(--accent); }
        .metadata {
            display: flex;
            flex-wrap: wrap;
            gap: 8px 20px;
            align-items: center;
            padding: 10px 12px;
            background: var(--surface);
            border: 1px solid var(--border);
            border-radius: 6px;
            color: var(--muted);
        }
        .meta-item strong { color: var(--text); font-weight: 600; }
        .theme-toggle {
            margin-left: auto;
            background: none;
            border: 1px solid var(--border);
            border-radius: 4px;
            color: var(--muted);
            cursor: pointer;
            padding: 2px 8px;
            font: inherit;
        }
        .theme-toggle:hover { color: var(--accent); border-color: var(--accent); }
        .journal { margin-top: 20px; overflow-x: auto; }
        table { border-collapse: collapse; width: 100%; }
        th, td {
            text-align: left;
            padding: 6px 10px;
            border-bottom: 1px solid var(--border);
            white-space: nowrap;
        }
        td:last-child { white-space: normal; }
        th {
            color: var(--muted);
            font-weight: 600;
            text-transform: uppercase;
            font-size: 12px;
            letter-spacing: 0.05em;
        }
        tr:hover td { background: var(--surface); }
        code { color: var(--muted); }
        .badge { color: var(--accent); }
        tr.ev-login .badge, tr.ev-restore .badge { color: var(--ok); }
        tr.ev-warning .badge, tr.ev-revoke .badge { color: var(--warn); }
        tr.ev-forced_logout .badge { color: var(--bad); font-weight: 700; }
        tr.ev-logout .badge { color: var(--muted); }
        .footer {
            margin-top: 24px;
            padding-top: 12px;
            border-top: 1px solid var(--border);
            color: var(--muted);
            font-size: 12px;
        }
    </style>
`
}

// getScript returns the theme toggle script.
func (e *HTMLExporter) getScript() string {
	return `    <script>
        function toggleTheme() {
            document.body.classList.toggle("light-theme");
            document.body.classList.toggle("dark-theme");
        }
    </script>
`
}
