// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// fleetwatch.
//
// The native format is TOML; JSON is accepted as a fallback for sites
// that generate the file from provisioning tooling. Both decode into the
// same Config structure, with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AuthorityConfig: Issuing-authority connection settings
//   - SessionConfig: Lifecycle tuning (poll cadence, restore behavior)
//   - JournalConfig: Local event journal settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FLEETWATCH_*)
//   - $FLEETWATCH_CONFIG, an explicit file path
//   - ~/.fleetwatch/config.toml
//   - ~/.fleetwatch/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	authority := cfg.Authority.URL
//	poll := cfg.Session.PollIntervalSecs
//
// The session warning threshold and the daily cutoff are site policy and
// deliberately absent from this package.
package config
