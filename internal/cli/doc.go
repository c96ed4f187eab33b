// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// fleetwatch.
//
// This package implements the non-TUI commands of the fleetwatch client.
// Every command works against the same state the TUI uses: the config file
// under ~/.fleetwatch/, the encrypted credential store, the local auth
// journal, and the issuing authority over HTTP.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - JSONResponse: Machine-parseable output envelope for the --json flag
//
// # Usage
//
// Parse and execute commands:
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdLogin:
//	    return cli.HandleLogin(args)
//	case cli.CmdSessions:
//	    return cli.HandleSessions(args)
//	// ... other commands
//	}
//
// # Commands Overview
//
// Session lifecycle:
//   - login: Sign in and optionally persist the credential
//   - logout: Invalidate the stored session (best-effort) and clear it
//   - sessions: List or revoke the principal's active sessions
//   - status: Show stored-session and authority status
//
// Local state:
//   - config: Show or edit configuration
//   - journal: Inspect or prune the local auth-event journal
//
// Development:
//   - console: Interactive line-mode alternative to the TUI
//   - authd: Run the in-memory development issuing authority
//
// All read commands support --json for scripting.
package cli
