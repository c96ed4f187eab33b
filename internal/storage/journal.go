// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local auth-event journal for fleetwatch.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/fleetwatch/internal/logging"
	"github.com/jeranaias/fleetwatch/internal/session"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrDatabaseError = errors.New("database error")
)

// JournalFileName is the name of the journal database file.
const JournalFileName = "journal.db"

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType identifies the kind of session lifecycle event.
type EventType string

const (
	EventLogin        EventType = "login"
	EventLogout       EventType = "logout"
	EventRefresh      EventType = "refresh"
	EventWarning      EventType = "warning"
	EventForcedLogout EventType = "forced_logout"
	EventRevoke       EventType = "revoke"
	EventRestore      EventType = "restore"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case EventLogin, EventLogout, EventRefresh, EventWarning,
		EventForcedLogout, EventRevoke, EventRestore:
		return true
	}
	return false
}

// Event is a single journal entry. SessionSuffix carries only the tail of
// the session token; the full token never reaches disk.
type Event struct {
	ID            int64     `json:"id"`
	RequestID     string    `json:"request_id"`
	Type          EventType `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	OccurredAtRef string    `json:"occurred_at_ref"`
	PrincipalID   string    `json:"principal_id,omitempty"`
	Username      string    `json:"username,omitempty"`
	Role          string    `json:"role,omitempty"`
	SessionSuffix string    `json:"session_suffix,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// TokenSuffix returns the last 8 characters of a token for journal entries.
// SECURITY: The suffix is enough to correlate events with the session list
// without making the journal a credential store.
func TokenSuffix(token string) string {
	const keep = 8
	runes := []rune(token)
	if len(runes) <= keep {
		return token
	}
	return string(runes[len(runes)-keep:])
}

// =============================================================================
// JOURNAL
// =============================================================================

// Journal is the append-only event log. Safe for concurrent use; SQLite
// serializes writers through a single connection.
type Journal struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultJournalPath returns ~/.fleetwatch/journal.db.
func DefaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".fleetwatch", JournalFileName), nil
}

// Open opens (creating if needed) the journal database at the given path.
func Open(path string) (*Journal, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Configure connection pool for SQLite
	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // No lifetime limit

	// Configure SQLite for better performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-8000", // 8MB cache; the journal stays small
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA wal_autocheckpoint=1000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	j := &Journal{db: db, path: path}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// initSchema creates the database schema.
func (j *Journal) initSchema() error {
	if _, err := j.db.Exec(Schema); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := j.db.Exec(InitMetadata); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

// Path returns the journal's on-disk location.
func (j *Journal) Path() string {
	return j.path
}

// =============================================================================
// WRITE PATH
// =============================================================================

// Append records an event. A zero OccurredAt is stamped with the current
// time; a missing request ID gets a fresh UUID. The reference-zone
// wall-clock string is derived from OccurredAt so each row is
// self-describing even if zone rules later change.
func (j *Journal) Append(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return ErrJournalClosed
	}
	if !ValidEventType(ev.Type) {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if ev.RequestID == "" {
		ev.RequestID = uuid.New().String()
	}
	if ev.OccurredAtRef == "" {
		ev.OccurredAtRef = ev.OccurredAt.In(session.ReferenceZone).Format(time.RFC3339)
	}

	_, err := j.db.Exec(`
		INSERT INTO events (request_id, event_type, occurred_at, occurred_at_ref,
		                    principal_id, username, role, session_suffix, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID, string(ev.Type), ev.OccurredAt.UTC().Unix(), ev.OccurredAtRef,
		ev.PrincipalID, ev.Username, ev.Role, ev.SessionSuffix, ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	logger := logging.Component("journal")
	logger.Debug().
		Str("type", string(ev.Type)).
		Str("username", ev.Username).
		Str("request_id", ev.RequestID).
		Msg("event recorded")

	return nil
}

// =============================================================================
// READ PATH
// =============================================================================

// Filter narrows a journal query. Zero values mean "no constraint".
type Filter struct {
	Type     EventType
	Username string
	Since    time.Time
	Limit    int
}

// DefaultListLimit bounds unfiltered queries.
const DefaultListLimit = 100

// Recent returns the newest events, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	return j.List(ctx, Filter{Limit: limit})
}

// List returns events matching the filter, most recent first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil, ErrJournalClosed
	}

	query := `
		SELECT id, request_id, event_type, occurred_at, occurred_at_ref,
		       principal_id, username, role, session_suffix, detail
		FROM events WHERE 1=1`
	args := []any{}

	if f.Type != "" {
		query += " AND event_type = ?"
		args = append(args, string(f.Type))
	}
	if f.Username != "" {
		query += " AND username = ?"
		args = append(args, f.Username)
	}
	if !f.Since.IsZero() {
		query += " AND occurred_at >= ?"
		args = append(args, f.Since.UTC().Unix())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var typ string
		var occurredAt int64
		if err := rows.Scan(&ev.ID, &ev.RequestID, &typ, &occurredAt, &ev.OccurredAtRef,
			&ev.PrincipalID, &ev.Username, &ev.Role, &ev.SessionSuffix, &ev.Detail); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		ev.Type = EventType(typ)
		ev.OccurredAt = time.Unix(occurredAt, 0).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return events, nil
}

// Count returns the total number of events.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return 0, ErrJournalClosed
	}

	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// =============================================================================
// RETENTION
// =============================================================================

// Prune deletes events older than retentionDays and returns the number
// removed. Retention is measured against the event timestamp, not the
// insertion order.
func (j *Journal) Prune(ctx context.Context, retentionDays int) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return 0, ErrJournalClosed
	}
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays).UTC().Unix()
	res, err := j.db.ExecContext(ctx, `DELETE FROM events WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if pruned > 0 {
		logger := logging.Component("journal")
		logger.Info().
			Int64("pruned", pruned).
			Int("retention_days", retentionDays).
			Msg("journal pruned")
	}

	return pruned, nil
}
