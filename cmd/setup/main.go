// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides the fleetwatch guided setup - a first-run experience
// that checks the environment and writes the initial configuration.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const version = "1.0.0"

func main() {
	// Check for --text flag for copy/paste friendly output
	for _, arg := range os.Args[1:] {
		if arg == "--text" || arg == "-t" || arg == "--simple" {
			runTextSetup()
			return
		}
		if arg == "--help" || arg == "-h" {
			printHelp()
			return
		}
		if arg == "--version" || arg == "-v" {
			fmt.Printf("fleetwatch setup v%s\n", version)
			return
		}
	}

	// Check if running in a terminal
	if !isTerminal() {
		fmt.Println("The fleetwatch setup requires an interactive terminal.")
		fmt.Println("Run with --text for a simple text-based setup.")
		os.Exit(1)
	}

	// Create and run the TUI setup
	// Mouse capture disabled to allow terminal text selection/copy
	p := tea.NewProgram(
		NewSetup(),
		tea.WithAltScreen(),
	)

	m, err := p.Run()
	if err != nil {
		fmt.Printf("Error running setup: %v\n", err)
		os.Exit(1)
	}

	// The quick tour runs as its own program so the completion screen can
	// hand the whole terminal over to it.
	if s, ok := m.(*Setup); ok && s.wantTour {
		tour := tea.NewProgram(NewWelcomeScreen(), tea.WithAltScreen())
		if _, err := tour.Run(); err != nil {
			fmt.Printf("Error running tour: %v\n", err)
			os.Exit(1)
		}
	}
}

// printHelp shows usage information
func printHelp() {
	fmt.Println(`fleetwatch setup v` + version + `

Usage: fleetwatch-setup [OPTIONS]

Options:
  --text, -t     Run in text mode (copy/paste friendly)
  --help, -h     Show this help
  --version, -v  Show version

The default mode is an interactive TUI setup with animations.
Use --text for a simple text-based setup that's easy to copy/paste.`)
}

// isTerminal checks if we're running in an interactive terminal
func isTerminal() bool {
	if runtime.GOOS == "windows" {
		return true // Windows terminal detection is complex, assume yes
	}

	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// =============================================================================
// TEXT MODE SETUP (Copy/Paste Friendly)
// =============================================================================

func runTextSetup() {
	reader := bufio.NewReader(os.Stdin)

	// Header
	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                              FLEETWATCH SETUP")
	fmt.Println("            Session-aware terminal client for fleet operations")
	fmt.Println("================================================================================")
	fmt.Println()

	// Welcome
	fmt.Println("This setup will:")
	fmt.Println("  [1] Check your terminal and environment")
	fmt.Println("  [2] Point fleetwatch at your issuing authority")
	fmt.Println("  [3] Pick session and journal options")
	fmt.Println("  [4] Write your configuration")
	fmt.Println()
	fmt.Print("Press Enter to continue (or 'q' to quit): ")
	input, _ := reader.ReadString('\n')
	if strings.TrimSpace(input) == "q" {
		fmt.Println("Setup cancelled.")
		return
	}

	fmt.Println()
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                              ENVIRONMENT CHECK")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()

	// OS check
	fmt.Printf("  [OK] Operating System: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// Existing config check
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".fleetwatch")
	configFile := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("  [!!] Configuration: already present (%s is kept as-is)\n", configFile)
	} else {
		fmt.Printf("  [OK] Configuration: none yet (will create %s)\n", configFile)
	}

	// Authority check
	authorityUp := false
	client := &http.Client{Timeout: 2 * time.Second}
	if resp, err := client.Get(defaultAuthorityURL + "/health"); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			fmt.Printf("  [OK] Issuing Authority: dev authority answering at %s\n", defaultAuthorityURL)
			authorityUp = true
		} else {
			fmt.Printf("  [!!] Issuing Authority: %s answered HTTP %d\n", defaultAuthorityURL, resp.StatusCode)
		}
	} else {
		fmt.Printf("  [!!] Issuing Authority: nothing at %s\n", defaultAuthorityURL)
		fmt.Println("       -> Run: fleetwatch authd (in another terminal) to try it locally")
	}

	// Disk check
	if free, err := freeDiskBytes(homeDir); err == nil {
		fmt.Printf("  [OK] Disk Space: %.1f GB free\n", float64(free)/(1024*1024*1024))
	} else {
		fmt.Println("  [!!] Disk Space: could not determine free space")
	}

	fmt.Println()

	// Authority URL
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                             ISSUING AUTHORITY")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()
	fmt.Println("Every session fleetwatch opens is issued, refreshed and revoked by this")
	fmt.Println("endpoint. All sessions it issues end at midnight UTC+9, refreshed or not.")
	if !authorityUp {
		fmt.Println()
		fmt.Println("The local dev authority is not running; you can still point at it now")
		fmt.Println("and start it later with: fleetwatch authd")
	}
	fmt.Println()
	fmt.Printf("Authority URL [%s]: ", defaultAuthorityURL)
	input, _ = reader.ReadString('\n')
	authorityURL := strings.TrimSpace(input)
	if authorityURL == "" {
		authorityURL = defaultAuthorityURL
	}
	if u, err := url.Parse(authorityURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fmt.Printf("  [!!] %q is not an http(s) URL, keeping %s\n", authorityURL, defaultAuthorityURL)
		authorityURL = defaultAuthorityURL
	}
	authorityURL = strings.TrimRight(authorityURL, "/")

	// Options
	fmt.Println()
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                                  OPTIONS")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()
	fmt.Print("Remember sessions across restarts (encrypted store)? [y/N]: ")
	input, _ = reader.ReadString('\n')
	remember := strings.EqualFold(strings.TrimSpace(input), "y")

	fmt.Print("Keep a local journal of auth events (SQLite)? [Y/n]: ")
	input, _ = reader.ReadString('\n')
	journal := !strings.EqualFold(strings.TrimSpace(input), "n")

	fmt.Println()
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println("                           WRITING CONFIGURATION")
	fmt.Println("--------------------------------------------------------------------------------")
	fmt.Println()

	// SECURITY: 0700 - the directory will hold the credential store and journal.
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("  [FAIL] Could not create %s: %v\n", configDir, err)
		os.Exit(1)
	}
	fmt.Printf("  [OK] Created directory: %s\n", configDir)

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		cfg := renderConfig(authorityURL, remember, journal, true)
		// SECURITY: fleetwatch refuses config files that are not 0600.
		if err := os.WriteFile(configFile, []byte(cfg), 0600); err != nil {
			fmt.Printf("  [FAIL] Could not write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  [OK] Created config: %s\n", configFile)
	} else {
		fmt.Printf("  [!!] Config already exists: %s (left untouched)\n", configFile)
	}

	// Done!
	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("                              SETUP COMPLETE!")
	fmt.Println("================================================================================")
	fmt.Println()
	fmt.Println("What you got:")
	fmt.Println("  * Midnight cutoff clock - Every session ends at 00:00 UTC+9")
	fmt.Println("  * One expiry warning    - A single banner, five minutes before the end")
	fmt.Println("  * Session directory     - See and revoke your other sessions")
	fmt.Println("  * Local auth journal    - SQLite record of sign-ins and revocations")
	fmt.Println("  * Encrypted remember-me - Tokens never touch disk in the clear")
	fmt.Println()
	fmt.Println("To start fleetwatch, run:")
	fmt.Println()
	fmt.Println("    fleetwatch")
	fmt.Println()
	fmt.Println("Quick tips:")
	fmt.Println("    Ctrl+R     - Extend the current session")
	fmt.Println("    s          - Session directory")
	fmt.Println("    j          - Auth journal (admin/auditor)")
	fmt.Println("    ?          - Help overlay")
	fmt.Println()
	fmt.Print("Press Enter to exit (or 'l' to launch fleetwatch now): ")
	input, _ = reader.ReadString('\n')
	if strings.TrimSpace(input) == "l" {
		fmt.Println("\nLaunching fleetwatch...")
		launchFleetwatchText()
	}
	fmt.Println()
	fmt.Println("Good watch!")
}

// launchFleetwatchText launches fleetwatch in text mode
func launchFleetwatchText() {
	homeDir, _ := os.UserHomeDir()
	binPath := filepath.Join(homeDir, ".local", "bin", "fleetwatch")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		if _, err := exec.LookPath("wt"); err == nil {
			cmd = exec.Command("wt", "new-tab", "--title", "fleetwatch", binPath)
		} else {
			cmd = exec.Command("cmd", "/C", "start", "fleetwatch", "cmd", "/K", binPath)
		}
	case "darwin":
		script := fmt.Sprintf(`tell application "Terminal"
			activate
			do script "%s"
		end tell`, binPath)
		cmd = exec.Command("osascript", "-e", script)
	default:
		terminals := []string{"gnome-terminal", "konsole", "xfce4-terminal", "xterm"}
		for _, term := range terminals {
			if _, err := exec.LookPath(term); err == nil {
				cmd = exec.Command(term, "-e", binPath)
				break
			}
		}
	}

	if cmd != nil {
		_ = cmd.Start()
	}
}
