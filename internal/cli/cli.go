// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdSessions
	CmdStatus
	CmdConsole
	CmdConfig
	CmdJournal
	CmdAuthd
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet     bool
	Verbose   bool
	JSON      bool   // Output in JSON format
	Authority string // Override the configured authority URL

	// Command-specific
	Subcommand string
	Username   string // login: pre-filled username
	Remember   bool   // login: persist the credential
	NoRemember bool   // login: override a remember_default=true config
	Target     string // sessions revoke: row number or token suffix
	ConfigKey  string
	ConfigVal  string
	Limit      int    // journal: number of events to show
	EventType  string // journal: filter by event type
	Days       int    // journal prune: retention override
	Format     string // journal export: md, html or json
	OutPath    string // journal export: exact output file
	Open       bool   // journal export: open the file afterwards
	Confirm    bool   // destructive operations
	Port       int    // authd: listen port
	TTLSecs    int    // authd: issued-session lifetime in seconds

	// Unknown holds an unrecognized command name so the dispatcher can
	// report it before printing usage.
	Unknown string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `fleetwatch - session-aware terminal client for fleet operations

Fleetwatch is the operator console for a kiosk fleet. It signs in against
the issuing authority, keeps the session alive, warns before expiry, and
enforces the daily UTC+9 midnight cutoff no matter what the token says.

Usage:
  fleetwatch                      Start the TUI (default)
  fleetwatch login                Sign in and store the credential
  fleetwatch logout               Invalidate and clear the stored session
  fleetwatch sessions [list]      List this principal's active sessions
  fleetwatch sessions revoke <n>  Revoke session n from the list
  fleetwatch status, s            Show session and authority status
  fleetwatch console              Interactive line-mode console
  fleetwatch config [show|set]    Configuration
  fleetwatch journal              Local auth-event journal (show/export/prune)
  fleetwatch authd                Run the development issuing authority
  fleetwatch version              Show version information
  fleetwatch help                 Show this help

Login:
  fleetwatch login                      Prompt for username and password
  fleetwatch login --username amorim    Prompt for password only
    -u, --username NAME                 Username to sign in as
    --remember                          Persist the credential (30-day nominal
                                        expiry; the midnight cutoff still applies)
    --no-remember                       Do not persist even if configured to

Sessions:
  fleetwatch sessions                   List active sessions (default: list)
  fleetwatch sessions revoke 2          Revoke the second listed session
  fleetwatch sessions revoke ab12cd34   Revoke by token suffix
    --json                              Machine-parseable output

  The session this client holds is marked "current" and cannot be revoked
  here; use logout.

Journal:
  fleetwatch journal                    Show recent auth events (default: 20)
    --limit N                           Show last N events
    --type TYPE                         Filter: login, logout, refresh, warning,
                                        forced_logout, revoke, restore
  fleetwatch journal export             Write events to a report file
    --format FMT                        md (default), html or json
    --out PATH                          Exact output file
  fleetwatch journal prune --confirm    Delete events past the retention window
    --days N                            Override configured retention days

Config:
  fleetwatch config show                Show current configuration
  fleetwatch config get <key>           Show one value
  fleetwatch config set <key> <value>   Set a value and save
  fleetwatch config path                Show the config file path

Development authority:
  fleetwatch authd                      Serve on 127.0.0.1:8790
    --port N                            Listen port
    --ttl SECONDS                       Issued-session lifetime

  The stub is in-memory with a public demo roster. Not for production.

Global Flags:
  --authority URL   Override the configured authority URL
  --json            Output in JSON format
  -q, --quiet       Minimal output
  -v, --verbose     Debug output

Examples:
  # First contact with a fresh checkout
  fleetwatch authd                        (terminal 1: dev authority)
  fleetwatch login -u amorim --remember   (terminal 2: sign in)
  fleetwatch                              (terminal 2: open the TUI)

  # Scripted session hygiene
  fleetwatch sessions --json | jq '.data.sessions[] | .device'
  fleetwatch sessions revoke 3
  fleetwatch journal --type forced_logout --limit 5

  # Point at a different authority for one invocation
  fleetwatch --authority http://10.20.0.9:8790 status

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("fleetwatch version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split from Parse so tests can
// drive it without touching os.Args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	// No remaining args: default to the TUI
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "login", "signin":
		parseLoginArgs(&parsed, remaining)
		return CmdLogin, parsed

	case "logout", "signout":
		return CmdLogout, parsed

	case "sessions", "session":
		parseSessionsArgs(&parsed, remaining)
		return CmdSessions, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "console", "repl":
		return CmdConsole, parsed

	case "config":
		parseConfigArgs(&parsed, remaining)
		return CmdConfig, parsed

	case "journal", "events":
		parseJournalArgs(&parsed, remaining)
		return CmdJournal, parsed

	case "authd", "authority":
		parseAuthdArgs(&parsed, remaining)
		return CmdAuthd, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Unknown command: report it rather than guessing. The TUI is
		// only the default for a bare invocation.
		parsed.Unknown = cmd
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--authority":
			if i+1 < len(args) {
				i++
				parsed.Authority = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--authority=") {
				parsed.Authority = strings.TrimPrefix(arg, "--authority=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// parseLoginArgs parses login command specific arguments.
func parseLoginArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "-u", "--username", "--user":
			if i+1 < len(remaining) {
				i++
				args.Username = remaining[i]
			}
		case "--remember":
			args.Remember = true
		case "--no-remember":
			args.NoRemember = true
		default:
			if strings.HasPrefix(arg, "--username=") {
				args.Username = strings.TrimPrefix(arg, "--username=")
			} else if !strings.HasPrefix(arg, "-") && args.Username == "" {
				// Bare positional doubles as the username
				args.Username = arg
			}
		}
	}
}

// parseSessionsArgs parses sessions command specific arguments.
func parseSessionsArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch {
		case arg == "--json":
			args.JSON = true
		case strings.HasPrefix(arg, "-"):
			// Unknown flag; the handler reports usage
		case args.Subcommand == "":
			args.Subcommand = strings.ToLower(arg)
		case args.Target == "":
			args.Target = arg
		}
	}
	if args.Subcommand == "" {
		args.Subcommand = "list"
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
	}
	if len(remaining) > 1 {
		args.ConfigKey = remaining[1]
	}
	if len(remaining) > 2 {
		args.ConfigVal = strings.Join(remaining[2:], " ")
	}
}

// parseJournalArgs parses journal command specific arguments.
func parseJournalArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--limit", "-n":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Limit = n
				}
			}
		case "--type", "-t":
			if i+1 < len(remaining) {
				i++
				args.EventType = strings.ToLower(remaining[i])
			}
		case "--days":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Days = n
				}
			}
		case "--format", "-f":
			if i+1 < len(remaining) {
				i++
				args.Format = strings.ToLower(remaining[i])
			}
		case "--out", "-o":
			if i+1 < len(remaining) {
				i++
				args.OutPath = remaining[i]
			}
		case "--open":
			args.Open = true
		case "--confirm":
			args.Confirm = true
		case "--json":
			args.JSON = true
		default:
			switch {
			case strings.HasPrefix(arg, "--limit="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--limit=")); err == nil && n > 0 {
					args.Limit = n
				}
			case strings.HasPrefix(arg, "--type="):
				args.EventType = strings.ToLower(strings.TrimPrefix(arg, "--type="))
			case strings.HasPrefix(arg, "--days="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--days=")); err == nil && n > 0 {
					args.Days = n
				}
			case strings.HasPrefix(arg, "--format="):
				args.Format = strings.ToLower(strings.TrimPrefix(arg, "--format="))
			case strings.HasPrefix(arg, "--out="):
				args.OutPath = strings.TrimPrefix(arg, "--out=")
			case !strings.HasPrefix(arg, "-") && args.Subcommand == "":
				args.Subcommand = strings.ToLower(arg)
			}
		}
	}
	if args.Subcommand == "" {
		args.Subcommand = "show"
	}
	// Exports default to a much wider window than the terminal listing.
	if args.Limit == 0 {
		if args.Subcommand == "export" {
			args.Limit = 1000
		} else {
			args.Limit = 20
		}
	}
}

// parseAuthdArgs parses authd command specific arguments.
func parseAuthdArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]

		switch arg {
		case "--port", "-p":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.Port = n
				}
			}
		case "--ttl":
			if i+1 < len(remaining) {
				i++
				if n, err := strconv.Atoi(remaining[i]); err == nil && n > 0 {
					args.TTLSecs = n
				}
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--port="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--port=")); err == nil && n > 0 {
					args.Port = n
				}
			case strings.HasPrefix(arg, "--ttl="):
				if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--ttl=")); err == nil && n > 0 {
					args.TTLSecs = n
				}
			}
		}
	}
}

// =============================================================================
// VERSION / HELP HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp handles the "help" command. When Parse saw an unknown
// command it is reported here before the usage text.
func HandleHelp(args Args) error {
	if args.Unknown != "" {
		fmt.Fprintf(os.Stderr, "unknown command: %q\n\n", args.Unknown)
		PrintUsage()
		return NewValidationError("command", args.Unknown, "not a fleetwatch command")
	}
	PrintUsage()
	return nil
}
