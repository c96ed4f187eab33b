// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes auth-journal events to shareable report files.
//
// This package renders the local journal into formats that can leave the
// machine: Markdown for tickets and wikis, HTML for standalone viewing,
// and JSON for downstream tooling. Every format carries a provenance
// header (source path, filters, export time) so a report stands on its
// own after it is detached from the journal that produced it.
//
// # Key Types
//
//   - Exporter: per-format rendering interface
//   - Options: output location, metadata and theme configuration
//   - Meta: provenance rendered into every report
//
// # Supported Formats
//
//   - JSON: machine-readable with the full stored fields of every event
//   - Markdown: human-readable event table with YAML frontmatter
//   - HTML: styled standalone page with a light/dark toggle
//
// # Usage
//
// Export events read from the journal:
//
//	exporter, err := export.ForFormat("html", opts)
//	if err != nil { ... }
//	path, err := export.ExportToFile(events, meta, exporter, opts)
//
// The journal stores token suffixes only, and so do its exports; the
// files are still an auth trail and are written 0600.
package export
