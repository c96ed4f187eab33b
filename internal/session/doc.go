// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the client-side session lifecycle:
// how long a signed-in principal stays authenticated, when to warn
// before expiry, and the hard daily cutoff at midnight in the fleet's
// business timezone (UTC+9) that ends every session regardless of its
// token's own expiry.
//
// # Key Types
//
//   - Manager: owns the current token, principal and expiry; exposes
//     Login, Logout, Refresh and the per-tick Check
//   - Directory: enumerates and revokes the principal's sessions on
//     other devices, never the one in use
//   - Decision: the access guard verdict for role-gated views
//
// # Clock model
//
// Correctness derives from comparing absolute timestamps captured at
// login/refresh time, never from counting ticks: a suspended client
// that misses ticks self-corrects on the next one. The 1-second tick
// (TickCmd) is presentation-only and performs no network I/O.
//
// # Ordering
//
// The Unauthenticated transition is monotonic. Every authenticated
// epoch carries a generation number; async results (refresh, polls)
// started under an older generation are discarded on arrival, so a
// stale refresh can never resurrect a session ended by the midnight
// cutoff.
package session
