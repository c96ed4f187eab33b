// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authority provides a development issuing authority for fleetwatch.
//
// This is the server side of the session lifecycle: it authenticates
// operators, mints bearer tokens, enforces the UTC+9 midnight cutoff on
// every expiry it hands out, and keeps the per-principal session directory.
// It exists so the client can be developed and demonstrated without a real
// fleet authority; state is in-memory and seeded with a demo roster.
// Run it with `fleetwatch authd`. Do not deploy it.
//
// # Endpoints
//
//   - POST   /login                       - Authenticate, mint a session token
//   - POST   /logout                      - Invalidate the bearer session
//   - POST   /refresh-session            - Extend the bearer session's expiry
//   - GET    /principals/{id}/sessions   - List a principal's sessions
//   - DELETE /sessions/{token}           - Revoke a session (never the caller's own)
//   - GET    /health                     - Health and uptime
//
// # Security Features
//
//   - HS256-signed session tokens with per-process signing keys
//   - Account lockout after repeated failed logins (3 failures / 15 minutes)
//   - Constant-time password comparison
//   - Per-IP request rate limiting
//   - Request body size caps
//   - Self-revocation refused server-side regardless of client behavior
//
// # Key Types
//
//   - Server: HTTP server with router, middleware, and stats
//   - Registry: in-memory principals and sessions
//   - LockoutManager: failed-attempt tracking and lockout windows
//   - TokenSigner: HS256 mint/verify for session tokens
//
// # Usage
//
//	srv := authority.NewServer(0) // 0 = default port 8790
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package authority
