// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes auth-journal events to shareable files.
// Supports Markdown, HTML and JSON output with metadata headers.
package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jeranaias/fleetwatch/internal/storage"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for journal exporters.
type Exporter interface {
	// Export renders the events in the target format and returns the content.
	Export(events []storage.Event, meta Meta) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Meta describes where the events came from and how they were selected.
// It is rendered into the header of every format; the report has to stand
// on its own once it leaves the machine it was generated on.
type Meta struct {
	// Source is the journal file path the events were read from.
	Source string

	// GeneratedAt is when the export was produced.
	GeneratedAt time.Time

	// Filters holds human-readable descriptions of any filters applied
	// (e.g. "type=forced_logout", "since=2026-08-01"). Empty means the
	// export covers the newest events without restriction.
	Filters []string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where generated files are saved.
	// Default: current working directory
	OutputDir string

	// OutputPath, when set, is the exact file to write. It overrides
	// OutputDir and the generated filename.
	OutputPath string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the metadata header (source, filters, count).
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		OpenAfterExport: false,
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes the events to a file using the specified exporter.
// Returns the output file path or an error.
//
// The journal never stores full tokens, so the export carries session
// suffixes only; the file is still an auth trail and should be handled
// like one.
func ExportToFile(events []storage.Event, meta Meta, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(events) == 0 {
		return "", fmt.Errorf("no events to export")
	}

	content, err := exporter.Export(events, meta)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(opts.OutputDir, generateFilename(meta, exporter.FileExtension()))
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	// 0600: the export is an auth trail even without full tokens.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			fmt.Printf("Warning: Could not open file: %v\n", err)
		}
	}

	return outputPath, nil
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// generateFilename builds "journal[_filterhint]_<timestamp><ext>". Filter
// hints come from user input, so they pass through sanitizeFilename.
func generateFilename(meta Meta, ext string) string {
	name := "journal"
	for _, f := range meta.Filters {
		if strings.HasPrefix(f, "type=") {
			name += "_" + sanitizeFilename(strings.TrimPrefix(f, "type="))
			break
		}
	}
	at := meta.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	return fmt.Sprintf("%s_%s%s", name, at.Format("20060102_150405"), ext)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	// Limit length
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			// Replace control characters
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "journal"
	}

	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Properly quote path for Windows cmd - use quoted empty string for
		// window title and the path should be the last argument
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
