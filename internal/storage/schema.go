// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local auth-event journal for fleetwatch.
package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for the auth-event journal
const Schema = `
-- Metadata table for schema version and journal state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Events table: append-only session lifecycle record.
-- session_suffix holds only the last characters of the token; the full
-- token is never written to disk.
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    event_type TEXT NOT NULL,        -- login, logout, refresh, warning, forced_logout, revoke, restore
    occurred_at INTEGER NOT NULL,    -- Unix timestamp (UTC)
    occurred_at_ref TEXT NOT NULL,   -- Wall-clock time in the UTC+9 reference zone
    principal_id TEXT NOT NULL DEFAULT '',
    username TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    session_suffix TEXT NOT NULL DEFAULT '',
    detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_event_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_username ON events(username);
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES
    ('schema_version', '1'),
    ('created_at', strftime('%s', 'now'));
`
