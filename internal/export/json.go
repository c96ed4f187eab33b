// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/fleetwatch/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports journal events to JSON format.
// NOTE: JSON exports always include every stored field of every event and
// do not respect display options. The output is a faithful representation
// of the journal rows and can be processed by other tools.
type JSONExporter struct {
	// Options are accepted for consistency with other exporters, but JSON
	// exports always include complete data.
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// jsonEnvelope is the top-level shape of a JSON export.
type jsonEnvelope struct {
	Generator   string          `json:"generator"`
	Source      string          `json:"source"`
	GeneratedAt time.Time       `json:"generated_at"`
	Filters     []string        `json:"filters,omitempty"`
	Count       int             `json:"count"`
	Events      []storage.Event `json:"events"`
}

// Export marshals the events with their provenance envelope.
func (e *JSONExporter) Export(events []storage.Event, meta Meta) ([]byte, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to export")
	}

	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	env := jsonEnvelope{
		Generator:   "fleetwatch",
		Source:      meta.Source,
		GeneratedAt: generatedAt,
		Filters:     meta.Filters,
		Count:       len(events),
		Events:      events,
	}

	return json.MarshalIndent(env, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
