// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package setup provides the fleetwatch guided setup - a first-run experience
that checks the environment and writes the initial configuration.

# Overview

The setup is a terminal-based TUI application built with Bubble Tea that
walks a new operator through the fleetwatch first run. It provides both an
interactive TUI mode and a text-based mode for copy/paste friendly setup
over restricted shells.

# Features

  - Environment checking (OS, terminal colors, existing config, authority, disk)
  - Issuing authority endpoint entry with URL validation
  - Session and journal option toggles (remember-me, journal, reference clock)
  - Configuration file generation (~/.fleetwatch/config.toml, mode 0600)
  - Binary download from GitHub releases when fleetwatch is not installed
  - A five-tip quick tour of the session lifecycle

# Building

Build the setup binary:

	go build -o fleetwatch-setup ./cmd/setup

Or build with version information:

	go build -ldflags "-X main.version=1.0.0" -o fleetwatch-setup ./cmd/setup

# Command Line Options

The setup supports the following command line options:

	--text, -t     Run in text mode (copy/paste friendly, no TUI)
	--help, -h     Show help information
	--version, -v  Show version number

# Usage Examples

Run the interactive TUI setup (default):

	fleetwatch-setup

Run in text mode for non-interactive environments:

	fleetwatch-setup --text

# Files Created

The setup creates the following directory structure:

	~/.fleetwatch/
	    config.toml      # Main configuration file (0600)
	    journal.db       # Local auth-event journal (created lazily)
	    credentials.enc  # Encrypted remember-me store (created lazily)
	    fleetwatch.log   # Application log (created lazily)

	~/.local/bin/
	    fleetwatch       # Main fleetwatch binary (or fleetwatch.exe on Windows)

# Architecture

The setup consists of three main components:

  - main.go: Entry point, CLI argument parsing, text mode implementation
  - setup.go: TUI setup model with phases (welcome, checks, authority, options, complete)
  - welcome.go: Post-setup quick tour with interactive tips

The TUI uses a phase-based state machine:

  - PhaseWelcome: Introduction and overview
  - PhaseSystemCheck: Verifies the environment
  - PhaseAuthority: Issuing authority URL entry
  - PhaseOptions: Remember-me, journal and reference clock toggles
  - PhaseWriteConfig: Writes the configuration and fetches the binary
  - PhaseComplete: Success screen with launch and tour options

# Dependencies

  - github.com/charmbracelet/bubbletea - TUI framework
  - github.com/charmbracelet/bubbles - TUI components (spinner, textinput)
  - github.com/charmbracelet/lipgloss - Terminal styling
  - github.com/muesli/termenv - Color profile detection
*/
package main
