// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// console.go - Interactive line-mode console for fleetwatch.
//
// USABILITY: Input history and line editing for terminals where the
// full-screen TUI is unwanted (serial consoles, narrow panes, scripted
// demos). The console drives the same session manager as the TUI, so
// refresh, revocation and the daily cutoff behave identically.
//
// Command: console
// Short:   Interactive session console (line mode)
// Aliases: repl
//
// Console commands:
//   help, ?             Show available commands
//   status, s           Show session state and countdowns
//   login [user]        Sign in (prompts for password)
//   logout              Sign out and discard the stored credential
//   refresh, r          Extend the session (never past the daily cutoff)
//   sessions, ls        List active sessions for this account
//   revoke <n|suffix>   Revoke a session by row number or token suffix
//   journal [n]         Show recent auth events (default: 10)
//   quit, exit, q       Leave the console
//
// Examples:
//   fleetwatch console
//   fleetwatch console --authority http://10.20.0.9:8790

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/config"
	"github.com/jeranaias/fleetwatch/internal/credstore"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/storage"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	consolePromptStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)

	consoleWelcomeStyle = lipgloss.NewStyle().
				Foreground(styles.Purple).
				Bold(true)

	consoleInfoStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary)

	consoleCommandStyle = lipgloss.NewStyle().
				Foreground(styles.Emerald)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ConsoleCLI provides input history and line editing for the console.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ConsoleCLI struct {
	line        *liner.State
	historyFile string
}

// NewConsoleCLI creates a ConsoleCLI with input history support.
func NewConsoleCLI() *ConsoleCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "console_history")

	cli := &ConsoleCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ConsoleCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ConsoleCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// ReadPassword reads a password without echo and without touching the
// history file.
func (c *ConsoleCLI) ReadPassword(prompt string) (string, error) {
	return c.line.PasswordPrompt(prompt)
}

// SaveHistory persists command history to file with secure permissions.
func (c *ConsoleCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ConsoleCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CONSOLE SESSION
// =============================================================================

// ConsoleSession holds the live state for one console run.
type ConsoleSession struct {
	Config    *config.Config
	Manager   *session.Manager
	Directory *session.Directory
	Journal   *storage.Journal // nil when journaling is disabled
	Input     *ConsoleCLI
	Quiet     bool
}

// HandleConsole handles the "console" command: a line-mode REPL around
// the session lifecycle. Blocks until the operator quits.
func HandleConsole(args Args) error {
	if err := RequiresTTY("console"); err != nil {
		return err
	}

	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}
	client := buildClient(cfg)

	// Pick up a stored credential when one exists; the console also
	// works signed out, so a missing credential is not an error.
	mgr, err := restoreSession(client)
	if err != nil {
		if !errors.Is(err, ErrNoStoredSession) {
			fmt.Fprintf(os.Stderr, "%s %v\n", WarningStyle.Render("[WARN]"), err)
		}
		mgr = session.NewManager(client)
	}

	sess := &ConsoleSession{
		Config:    cfg,
		Manager:   mgr,
		Directory: session.NewDirectory(client, mgr),
		Input:     NewConsoleCLI(),
		Quiet:     args.Quiet,
	}

	if journal, jerr := openJournal(cfg); jerr == nil {
		sess.Journal = journal
	}
	defer func() {
		if sess.Journal != nil {
			sess.Journal.Close()
		}
	}()

	// USABILITY: Save history for future sessions
	defer sess.Input.Close()

	if !sess.Quiet {
		printConsoleWelcome(sess)
	}

	for {
		input, err := sess.Input.ReadInput(consolePrompt(sess))
		if err != nil {
			// Ctrl+C (ErrPromptAborted) or Ctrl+D both leave the console.
			fmt.Println()
			printConsoleExit(sess)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		shouldContinue, err := handleConsoleCommand(input, sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
		}
		if !shouldContinue {
			printConsoleExit(sess)
			return nil
		}
	}
}

// consolePrompt reflects the signed-in principal in the prompt.
func consolePrompt(sess *ConsoleSession) string {
	snap := sess.Manager.Snapshot()
	if snap.State.Authenticated() {
		return consolePromptStyle.Render(snap.Principal.Username + "@fleetwatch> ")
	}
	return consolePromptStyle.Render("fleetwatch> ")
}

// =============================================================================
// COMMAND DISPATCH
// =============================================================================

// handleConsoleCommand processes one console command line.
// Returns (shouldContinue, error).
func handleConsoleCommand(input string, sess *ConsoleSession) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	parser := NewArgParser(fields[1:])

	switch cmd {
	case "help", "h", "?":
		printConsoleHelp()
		return true, nil

	case "status", "s":
		return true, consoleStatus(sess)

	case "login", "signin":
		return true, consoleLogin(sess, parser)

	case "logout", "signout":
		return true, consoleLogout(sess)

	case "refresh", "r":
		return true, consoleRefresh(sess)

	case "sessions", "ls":
		return true, consoleSessions(sess)

	case "revoke", "rm":
		return true, consoleRevoke(sess, parser)

	case "journal", "events":
		return true, consoleJournal(sess, parser)

	case "quit", "exit", "q":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %q (try: help)", cmd)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func consoleStatus(sess *ConsoleSession) error {
	snap := sess.Manager.Snapshot()

	fmt.Println()
	if !snap.State.Authenticated() {
		fmt.Printf("%s signed out\n", DimStyle.Render("state:"))
		fmt.Println(DimStyle.Render("run `login <username>` to sign in"))
		fmt.Println()
		return nil
	}

	fmt.Printf("%s %s\n", RenderLabel("State"), snap.State.String())
	fmt.Printf("%s %s (%s)\n", RenderLabel("Principal"),
		snap.Principal.Username, snap.Principal.Role)
	fmt.Printf("%s %s\n", RenderLabel("Expires in"),
		session.FormatCountdown(snap.SecondsUntilExpiry))
	fmt.Printf("%s %s %s\n", RenderLabel("Daily cutoff in"),
		session.FormatCountdown(snap.SecondsUntilMidnight),
		DimStyle.Render("(UTC+9 midnight)"))
	fmt.Printf("%s %v\n", RenderLabel("Remembered"), snap.Remember)
	if snap.WarningVisible {
		fmt.Println(WarningStyle.Render("expiry warning active - refresh or save your work"))
	}
	fmt.Println()
	return nil
}

func consoleLogin(sess *ConsoleSession, parser *ArgParser) error {
	username := parser.Positional(0)
	if username == "" {
		input, err := sess.Input.ReadInput("username: ")
		if err != nil {
			return nil // aborted prompt, stay in the console
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username required (usage: login <username> [--remember])")
	}

	password, err := sess.Input.ReadPassword("password: ")
	if err != nil {
		return nil // aborted prompt
	}
	if password == "" {
		return fmt.Errorf("password required")
	}

	remember := sess.Config.Session.RememberDefault
	if parser.BoolFlag("remember") {
		remember = true
	}
	if parser.BoolFlag("no-remember") {
		remember = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()

	if err := sess.Manager.Login(ctx, username, password, remember); err != nil {
		switch {
		case errors.Is(err, api.ErrInvalidCredentials):
			return fmt.Errorf("login failed: invalid username or password")
		case errors.Is(err, api.ErrAccountLocked):
			return fmt.Errorf("login failed: account temporarily locked")
		case errors.Is(err, api.ErrNetwork):
			return fmt.Errorf("authority unreachable: %w", err)
		default:
			return err
		}
	}

	snap := sess.Manager.Snapshot()
	if cred, ok := sess.Manager.ExportCredentials(); ok {
		if store, serr := credstore.NewStore(); serr == nil {
			if serr = store.Save(cred); serr != nil {
				fmt.Printf("%s credential not persisted: %v\n", WarningStyle.Render("[WARN]"), serr)
			}
		}
	}
	appendJournal(sess.Journal, storage.Event{
		Type:          storage.EventLogin,
		PrincipalID:   snap.Principal.ID,
		Username:      snap.Principal.Username,
		Role:          string(snap.Principal.Role),
		SessionSuffix: storage.TokenSuffix(sess.Manager.CurrentToken()),
		Detail:        "console login",
	})

	fmt.Printf("%s signed in as %s (%s), expires in %s\n",
		SuccessStyle.Render("[OK]"),
		snap.Principal.Username, snap.Principal.Role,
		session.FormatCountdown(snap.SecondsUntilExpiry))
	return nil
}

func consoleLogout(sess *ConsoleSession) error {
	snap := sess.Manager.Snapshot()
	if !snap.State.Authenticated() {
		fmt.Println(DimStyle.Render("not signed in; nothing to do"))
		return nil
	}
	suffix := storage.TokenSuffix(sess.Manager.CurrentToken())

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()
	sess.Manager.Logout(ctx)

	if store, serr := credstore.NewStore(); serr == nil {
		if derr := store.Delete(); derr != nil {
			fmt.Printf("%s stored credential not removed: %v\n", WarningStyle.Render("[WARN]"), derr)
		}
	}
	appendJournal(sess.Journal, storage.Event{
		Type:          storage.EventLogout,
		PrincipalID:   snap.Principal.ID,
		Username:      snap.Principal.Username,
		Role:          string(snap.Principal.Role),
		SessionSuffix: suffix,
		Detail:        "console logout",
	})

	fmt.Printf("%s signed out %s\n", SuccessStyle.Render("[OK]"), snap.Principal.Username)
	return nil
}

func consoleRefresh(sess *ConsoleSession) error {
	snap := sess.Manager.Snapshot()
	if !snap.State.Authenticated() {
		return fmt.Errorf("not signed in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()

	resp, err := sess.Manager.Refresh(ctx)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrSessionExpired):
			appendJournal(sess.Journal, storage.Event{
				Type:        storage.EventForcedLogout,
				PrincipalID: snap.Principal.ID,
				Username:    snap.Principal.Username,
				Role:        string(snap.Principal.Role),
				Detail:      "refresh rejected: session expired",
			})
			return fmt.Errorf("session expired; sign in again")
		case errors.Is(err, api.ErrNetwork):
			return fmt.Errorf("authority unreachable; session unchanged: %w", err)
		default:
			return err
		}
	}

	snap = sess.Manager.Snapshot()
	appendJournal(sess.Journal, storage.Event{
		Type:          storage.EventRefresh,
		PrincipalID:   snap.Principal.ID,
		Username:      snap.Principal.Username,
		Role:          string(snap.Principal.Role),
		SessionSuffix: storage.TokenSuffix(sess.Manager.CurrentToken()),
		Detail:        "console refresh",
	})

	fmt.Printf("%s session extended, expires in %s\n",
		SuccessStyle.Render("[OK]"),
		session.FormatCountdown(snap.SecondsUntilExpiry))
	if resp.DiliTime != "" {
		fmt.Printf("%s %s\n", DimStyle.Render("authority reference clock:"), resp.DiliTime)
	}
	if resp.ShouldWarn {
		fmt.Println(WarningStyle.Render("daily cutoff is close; the session cannot extend past UTC+9 midnight"))
	}
	return nil
}

func consoleSessions(sess *ConsoleSession) error {
	snap := sess.Manager.Snapshot()
	if !snap.State.Authenticated() {
		return fmt.Errorf("not signed in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()

	rows, err := sess.Directory.List(ctx)
	if err != nil {
		return err
	}
	printSessionTable(snap.Principal.Username, rows)
	return nil
}

func consoleRevoke(sess *ConsoleSession, parser *ArgParser) error {
	target := parser.Positional(0)
	if target == "" {
		return fmt.Errorf("target required (usage: revoke <row-number|token-suffix>)")
	}

	snap := sess.Manager.Snapshot()
	if !snap.State.Authenticated() {
		return fmt.Errorf("not signed in")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()

	rows, err := sess.Directory.List(ctx)
	if err != nil {
		return err
	}
	match, err := resolveSessionTarget(rows, target)
	if err != nil {
		return err
	}

	remaining, err := sess.Directory.Revoke(ctx, match.Token)
	if err != nil {
		if errors.Is(err, api.ErrForbidden) && match.Current {
			return fmt.Errorf("refusing to revoke the session you are signed in with; use `logout`")
		}
		return err
	}

	appendJournal(sess.Journal, storage.Event{
		Type:          storage.EventRevoke,
		PrincipalID:   snap.Principal.ID,
		Username:      snap.Principal.Username,
		Role:          string(snap.Principal.Role),
		SessionSuffix: storage.TokenSuffix(match.Token),
		Detail:        "console revoke: " + match.Device,
	})

	fmt.Printf("%s revoked session on %s (%d remaining)\n",
		SuccessStyle.Render("[OK]"), match.Device, len(remaining))
	return nil
}

func consoleJournal(sess *ConsoleSession, parser *ArgParser) error {
	if sess.Journal == nil {
		fmt.Println(DimStyle.Render("journaling is disabled"))
		return nil
	}

	limit := 10
	if n, err := strconv.Atoi(parser.Positional(0)); err == nil && n > 0 {
		limit = n
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(sess.Config))
	defer cancel()

	events, err := sess.Journal.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println(DimStyle.Render("no events recorded"))
		return nil
	}
	fmt.Println()
	for _, ev := range events {
		printJournalEvent(ev)
	}
	fmt.Println()
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// printConsoleWelcome prints the welcome banner.
func printConsoleWelcome(sess *ConsoleSession) {
	fmt.Println()
	fmt.Println(consoleWelcomeStyle.Render("fleetwatch console"))
	fmt.Println(consoleInfoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		consoleInfoStyle.Render("Authority:"),
		consoleCommandStyle.Render(sess.Config.Authority.URL))

	snap := sess.Manager.Snapshot()
	if snap.State.Authenticated() {
		fmt.Printf("%s %s (%s), expires in %s\n",
			consoleInfoStyle.Render("Signed in:"),
			consoleCommandStyle.Render(snap.Principal.Username),
			snap.Principal.Role,
			session.FormatCountdown(snap.SecondsUntilExpiry))
	} else {
		fmt.Printf("%s %s\n",
			consoleInfoStyle.Render("Signed in:"),
			DimStyle.Render("no (use `login <username>`)"))
	}
	fmt.Println()
	fmt.Println(consoleInfoStyle.Render("Type 'help' for commands, 'quit' to leave."))
	fmt.Println()
}

// printConsoleHelp lists the console commands.
func printConsoleHelp() {
	fmt.Println()
	fmt.Println(consoleWelcomeStyle.Render("Console commands"))
	fmt.Println()
	help := [][2]string{
		{"help, ?", "Show this help"},
		{"status, s", "Show session state and countdowns"},
		{"login [user] [--remember]", "Sign in (prompts for password)"},
		{"logout", "Sign out and discard the stored credential"},
		{"refresh, r", "Extend the session (never past the daily cutoff)"},
		{"sessions, ls", "List active sessions for this account"},
		{"revoke <n|suffix>", "Revoke a session by row number or token suffix"},
		{"journal [n]", "Show recent auth events (default: 10)"},
		{"quit, exit, q", "Leave the console"},
	}
	for _, h := range help {
		fmt.Printf("  %s %s\n",
			consoleCommandStyle.Render(fmt.Sprintf("%-28s", h[0])),
			consoleInfoStyle.Render(h[1]))
	}
	fmt.Println()
}

// printConsoleExit reminds the operator that leaving the console does
// not end the session.
func printConsoleExit(sess *ConsoleSession) {
	snap := sess.Manager.Snapshot()
	if snap.State.Authenticated() {
		fmt.Printf("%s still signed in as %s; the session continues until expiry or the daily cutoff\n",
			DimStyle.Render("note:"), snap.Principal.Username)
		fmt.Println(DimStyle.Render("use `fleetwatch logout` to end it"))
	}
}
