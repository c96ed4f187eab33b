// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared runtime plumbing for fleetwatch CLI commands.
//
// Every command assembles the same small kit: the config file, the
// authority client, the credential store, and (optionally) the local
// journal. The constructors live here so the commands stay focused on
// their own output.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/config"
	"github.com/jeranaias/fleetwatch/internal/credstore"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/storage"
)

// ErrNoStoredSession is returned by commands that need a signed-in
// principal when the credential store is empty or stale.
var ErrNoStoredSession = errors.New("not signed in: no stored session (run `fleetwatch login --remember`)")

// =============================================================================
// RUNTIME KIT
// =============================================================================

// loadRuntimeConfig loads the configuration and applies per-invocation
// overrides from the global flags.
func loadRuntimeConfig(args Args) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapError(err, "failed to load configuration")
	}
	if args.Authority != "" {
		cfg.Authority.URL = strings.TrimRight(args.Authority, "/")
	}
	return cfg, nil
}

// buildClient constructs the authority client from config.
func buildClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.Authority.URL).
		WithTimeout(time.Duration(cfg.Authority.TimeoutSecs) * time.Second).
		WithMaxRetries(cfg.Authority.MaxRetries)
}

// requestTimeout returns the per-request timeout from config.
func requestTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Authority.TimeoutSecs) * time.Second
}

// restoreSession loads the stored credential and resumes a lifecycle
// manager from it. The manager applies the same staleness rules the TUI
// does: a credential past its expiry or its midnight cutoff is rejected.
func restoreSession(client *api.Client) (*session.Manager, error) {
	store, err := credstore.NewStore()
	if err != nil {
		return nil, WrapError(err, "credential store unavailable")
	}
	if !store.Exists() {
		return nil, ErrNoStoredSession
	}

	cred, err := store.Load()
	if err != nil {
		return nil, WrapError(err, "failed to read stored credential")
	}

	mgr := session.NewManager(client)
	if err := mgr.Restore(cred); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			// Stale credential: clean it up rather than failing on it again
			store.Delete()
			return nil, fmt.Errorf("%w (the stored session has expired)", ErrNoStoredSession)
		}
		return nil, err
	}
	return mgr, nil
}

// openJournal opens the configured journal. Returns nil without error
// when journaling is disabled; commands treat a nil journal as "skip".
func openJournal(cfg *config.Config) (*storage.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	path := cfg.Journal.Path
	if path == "" {
		p, err := storage.DefaultJournalPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return storage.Open(path)
}

// appendJournal records an event, tolerating a nil (disabled) journal.
// Journal failures never fail the command that triggered them.
func appendJournal(j *storage.Journal, ev storage.Event) {
	if j == nil {
		return
	}
	if err := j.Append(ev); err != nil {
		fmt.Fprintf(os.Stderr, "warning: journal write failed: %v\n", err)
	}
}

// =============================================================================
// INTERACTIVE INPUT
// =============================================================================

// promptInput prompts the user for a line of input.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads a password from stdin without echoing.
// Uses golang.org/x/term for secure cross-platform password input.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println() // Add newline after hidden input

	return strings.TrimSpace(string(passBytes)), nil
}

// promptYesNo prompts for a yes/no answer.
func promptYesNo(prompt string, defaultYes bool) bool {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	answer := strings.ToLower(promptInput(prompt + " " + suffix + " "))
	if answer == "" {
		return defaultYes
	}
	return answer == "y" || answer == "yes"
}

// =============================================================================
// DISPLAY FORMATTING
// =============================================================================

// formatTimeAgo formats a past timestamp as a relative age.
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
