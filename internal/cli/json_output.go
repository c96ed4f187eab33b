// json_output.go - JSON output support for scripting fleetwatch.
//
// Provides a standardized JSON output format for all CLI commands so
// shell pipelines and fleet tooling get a stable envelope regardless of
// which command produced the data.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONResponse is the envelope every command emits under --json. The
// shape never varies: success flag, command-specific payload, error
// string (null on success), and the UTC generation time.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Error     *string     `json:"error"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

func newResponse(command string) *JSONResponse {
	return &JSONResponse{
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONResponse wraps a command payload in a success envelope.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	r := newResponse(command)
	r.Success = true
	r.Data = data
	return r
}

// NewJSONErrorResponse wraps a command failure in an error envelope.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	r := newResponse(command)
	msg := err.Error()
	r.Error = &msg
	return r
}

// Print writes the envelope to stdout. Anything meant for a human goes
// to stderr instead so pipelines stay parseable.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// StderrPrintln prints a human-readable line to stderr in JSON mode.
func StderrPrintln(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// StatusData represents the data returned by the status command.
type StatusData struct {
	Authority StatusAuthorityInfo `json:"authority"`
	Session   StatusSessionInfo   `json:"session"`
	Journal   StatusJournalInfo   `json:"journal"`
}

// StatusAuthorityInfo describes the configured issuing authority and, when
// a stored session allowed a read-only probe, whether it answered.
type StatusAuthorityInfo struct {
	URL       string `json:"url"`
	Checked   bool   `json:"checked"`
	Reachable bool   `json:"reachable"`
}

// StatusSessionInfo describes the stored credential, if any. Countdowns
// are computed against the local clock at the moment of the call.
type StatusSessionInfo struct {
	SignedIn             bool      `json:"signed_in"`
	Username             string    `json:"username,omitempty"`
	Role                 string    `json:"role,omitempty"`
	Remember             bool      `json:"remember,omitempty"`
	ExpiresAt            time.Time `json:"expires_at,omitempty"`
	CutoffAt             time.Time `json:"cutoff_at,omitempty"`
	SecondsUntilExpiry   int       `json:"seconds_until_expiry,omitempty"`
	SecondsUntilMidnight int       `json:"seconds_until_midnight,omitempty"`
	ActiveSessions       int       `json:"active_sessions,omitempty"`
}

// StatusJournalInfo describes the local auth-event journal.
type StatusJournalInfo struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
	Events  int64  `json:"events"`
}

// SessionListData is the JSON output format for the sessions command.
type SessionListData struct {
	Sessions []SessionRow `json:"sessions"`
	Count    int          `json:"count"`
}

// SessionRow is one directory entry as printed by `sessions list`.
// Index is the 1-based row number accepted by `sessions revoke <n>`.
// TokenSuffix carries only the tail of the token; the full value never
// appears in command output.
type SessionRow struct {
	Index          int       `json:"index"`
	TokenSuffix    string    `json:"token_suffix"`
	Device         string    `json:"device"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Remember       bool      `json:"remember"`
	Current        bool      `json:"current"`
	ExpiringSoon   bool      `json:"expiring_soon"`
}

// LoginData is the JSON output format for a successful login.
type LoginData struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CutoffAt  time.Time `json:"cutoff_at"`
	Remember  bool      `json:"remember"`
	Persisted bool      `json:"persisted"`
}

// JournalListData is the JSON output format for the journal command.
type JournalListData struct {
	Events []JournalRow `json:"events"`
	Count  int          `json:"count"`
}

// JournalRow is one journal entry as printed by `journal show`.
type JournalRow struct {
	OccurredAt    time.Time `json:"occurred_at"`
	OccurredAtRef string    `json:"occurred_at_ref"`
	Type          string    `json:"event_type"`
	Username      string    `json:"username,omitempty"`
	SessionSuffix string    `json:"session_suffix,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}
