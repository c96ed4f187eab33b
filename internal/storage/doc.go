// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local auth-event journal for fleetwatch.
//
// The journal is an append-only record of session lifecycle events
// (logins, refreshes, warnings, forced logouts, revocations) kept in a
// SQLite database under ~/.fleetwatch/journal.db. It exists so an
// operator can answer "when did my session end, and why" after the
// fact, without access to the issuing authority's server logs.
//
// # Key Types
//
//   - Journal: append-only event log backed by SQLite
//   - Event: a single recorded lifecycle event
//   - EventType: login, logout, refresh, warning, forced_logout, revoke
//
// # Usage
//
// Open the journal and record an event:
//
//	j, err := storage.Open(path)
//	err = j.Append(storage.Event{Type: storage.EventLogin, Username: "amorim"})
//
// Query recent events:
//
//	events, err := j.Recent(ctx, 50)
//
// Apply the retention policy:
//
//	pruned, err := j.Prune(ctx, 30)
//
// # Storage Location
//
// The journal lives at ~/.fleetwatch/journal.db.
package storage
