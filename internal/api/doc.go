// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the fleet issuing authority.
//
// The issuing authority owns credential verification, token signing and
// revocation storage. This package only speaks its session endpoints:
//
//   - POST   /login                      authenticate, obtain a token
//   - POST   /logout                     best-effort remote invalidation
//   - POST   /refresh-session            extend the current session
//   - GET    /principals/{id}/sessions   enumerate a principal's sessions
//   - DELETE /sessions/{token}           revoke one session
//
// Tokens are opaque secrets: the client never parses, decodes or inspects
// them. All calls take a context and use a bounded timeout; transient
// failures surface as ErrNetwork so callers can offer a retry.
package api
