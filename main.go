// fleetwatch - session-aware terminal client for fleet operations.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/cli"
	"github.com/jeranaias/fleetwatch/internal/config"
	"github.com/jeranaias/fleetwatch/internal/credstore"
	"github.com/jeranaias/fleetwatch/internal/logging"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/storage"
	"github.com/jeranaias/fleetwatch/internal/ui/components"
	"github.com/jeranaias/fleetwatch/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Parse CLI arguments
	cmd, args := cli.Parse()

	// Route to appropriate handler
	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdLogin:
		if err := cli.HandleLogin(args); err != nil {
			cli.DisplayError("login", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdLogout:
		if err := cli.HandleLogout(args); err != nil {
			cli.DisplayError("logout", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdSessions:
		if err := cli.HandleSessions(args); err != nil {
			cli.DisplayError("sessions", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdStatus:
		if err := cli.HandleStatus(args); err != nil {
			cli.DisplayError("status", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdConsole:
		if err := cli.HandleConsole(args); err != nil {
			cli.DisplayError("console", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdConfig:
		if err := cli.HandleConfig(args); err != nil {
			cli.DisplayError("config", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdJournal:
		if err := cli.HandleJournal(args); err != nil {
			cli.DisplayError("journal", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdAuthd:
		if err := cli.HandleAuthd(args); err != nil {
			cli.DisplayError("authd", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdVersion:
		if err := cli.HandleVersion(args); err != nil {
			cli.DisplayError("version", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	case cli.CmdHelp:
		if err := cli.HandleHelp(args); err != nil {
			cli.DisplayError("help", err, args.JSON)
			os.Exit(cli.GetExitCode(err))
		}
	default:
		runTUI(args) // Default to TUI
	}
}

// =============================================================================
// TUI BOOTSTRAP
// =============================================================================

// runTUI starts the dashboard interface.
func runTUI(args cli.Args) {
	// Load configuration at startup
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Per-invocation authority override (--authority) beats the file
	if args.Authority != "" {
		cfg.Authority.URL = strings.TrimRight(args.Authority, "/")
	}

	// Route logs to a file before bubbletea takes the terminal; writing
	// to stderr from under a raw-mode TUI scrambles the screen.
	if stateDir, derr := config.ConfigDir(); derr == nil {
		if closer, lerr := logging.SetupFile(stateDir, cfg.Logging.Level); lerr == nil {
			defer closer.Close()
		} else {
			logging.Disable()
		}
	} else {
		logging.Disable()
	}

	// Live-reload the log level when the config file changes on disk.
	// The watcher degrades silently: without it, level changes apply on
	// the next start.
	if watcher, werr := config.NewWatcher(config.DefaultDebounce, func() {
		fresh, ferr := config.Load()
		if ferr != nil {
			return
		}
		logging.SetLevel(fresh.Logging.Level)
	}); werr == nil {
		if werr = watcher.Watch(); werr == nil {
			defer watcher.Close()
		} else {
			watcher.Close()
		}
	}

	// Initialize the theme
	theme := styles.NewTheme()

	// Authority client, shared by the lifecycle manager and the directory
	client := api.NewClient(cfg.Authority.URL).
		WithTimeout(time.Duration(cfg.Authority.TimeoutSecs) * time.Second).
		WithMaxRetries(cfg.Authority.MaxRetries).
		WithLogger(logging.Component("api"))

	// Create the application model with config
	m := NewModelWithConfig(theme, client, cfg)
	defer m.closeJournal()

	// Create the Bubble Tea program
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	// Run the program
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running fleetwatch: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// State represents the current application state.
type State int

const (
	StateLogin     State = iota // Login form (no live credential)
	StateDashboard              // Authenticated views
)

// Tab selects which dashboard view has focus.
type Tab int

const (
	TabOverview  Tab = iota // Session overview panel
	TabDirectory            // Multi-device session directory
	TabJournal              // Local auth journal (admin/auditor)
)

// journalViewLimit caps how many events the journal tab loads at once.
const journalViewLimit = 200

// Model is the main Bubble Tea model for the application.
//
// It owns the lifecycle manager and translates component messages into
// lifecycle calls; components never mutate session state themselves.
// Every network operation runs as a tea.Cmd goroutine and reports back
// with a completion message carrying the manager generation it started
// under, so completions from an ended epoch are discarded on arrival.
type Model struct {
	// State
	state State
	tab   Tab

	// Theme and styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Lifecycle core, constructed here and injected into views
	manager   *session.Manager
	directory *session.Directory
	client    *api.Client
	creds     *credstore.Store
	journal   *storage.Journal

	// Application configuration
	config *config.Config

	// Components
	header      *components.Header
	statusBar   *components.StatusBar
	loginForm   *components.LoginForm
	dirTable    *components.DirectoryTable
	journalView *components.JournalView
	inspector   *components.Inspector
	help        *components.HelpOverlay
	banner      components.ExpiryBanner
	spinner     components.Spinner
	toasts      *components.ToastManager

	// lastAuthSnap is the most recent authenticated snapshot. Forced
	// logouts clear the manager before the transition message arrives,
	// so journal entries for epoch ends read identity from here.
	lastAuthSnap session.Snapshot

	// Chain liveness. At most one countdown tick chain and one poll
	// chain run at a time; a chain is declared dead only by its own
	// final arrival, so a re-login before that arrival reuses the
	// surviving chain instead of starting a second one.
	tickAlive bool
	pollAlive bool

	// Request timeout and poll cadence from config
	timeout      time.Duration
	pollInterval time.Duration

	zlog zerolog.Logger
}

// NewModelWithConfig creates the application model with explicit
// configuration.
func NewModelWithConfig(theme *styles.Theme, client *api.Client, cfg *config.Config) *Model {
	manager := session.NewManager(client)
	directory := session.NewDirectory(client, manager)

	zlog := logging.Component("ui")

	// Credential store: warn and continue without persistence when the
	// keystore is unavailable. remember-me silently degrades to
	// session-only.
	creds, err := credstore.NewStore()
	if err != nil {
		zlog.Warn().Err(err).Msg("credential store unavailable; remember-me disabled")
		creds = nil
	}

	journal, err := journalFromConfig(cfg)
	if err != nil {
		zlog.Warn().Err(err).Msg("journal unavailable; continuing without it")
		journal = nil
	}

	m := &Model{
		state:        StateLogin,
		tab:          TabOverview,
		theme:        theme,
		manager:      manager,
		directory:    directory,
		client:       client,
		creds:        creds,
		journal:      journal,
		config:       cfg,
		header:       components.NewHeader(theme),
		statusBar:    components.NewStatusBar(theme),
		loginForm:    components.NewLoginForm(theme),
		dirTable:     components.NewDirectoryTable(theme),
		journalView:  components.NewJournalView(theme),
		inspector:    components.NewInspector(theme),
		help:         components.NewHelpOverlay(theme),
		banner:       components.NewExpiryBanner(),
		spinner:      components.NewRefreshSpinner(),
		toasts:       components.NewToastManager(),
		timeout:      time.Duration(cfg.Authority.TimeoutSecs) * time.Second,
		pollInterval: time.Duration(cfg.Session.PollIntervalSecs) * time.Second,
		zlog:         zlog,
	}

	m.header.SetHost(cfg.Authority.URL)
	m.loginForm.SetRemember(cfg.Session.RememberDefault)

	// Resume a remembered session from disk. Validation against the
	// authority happens asynchronously in Init; the local staleness
	// rules (expiry, midnight cutoff) are already enforced by Restore.
	if cfg.Session.RestoreOnStartup && creds != nil && creds.Exists() {
		cred, err := creds.Load()
		if err != nil {
			zlog.Warn().Err(err).Msg("stored credential unreadable; starting signed out")
		} else if err := manager.Restore(cred); err != nil {
			if errors.Is(err, api.ErrSessionExpired) {
				// Stale credential: remove it rather than failing on it
				// again next start.
				creds.Delete()
			}
			zlog.Info().Err(err).Msg("stored session not resumable")
		} else {
			m.state = StateDashboard
			m.syncSnapshot()
		}
	}

	return m
}

// journalFromConfig opens the configured auth journal. A disabled
// journal yields nil without error; all writers tolerate that.
func journalFromConfig(cfg *config.Config) (*storage.Journal, error) {
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

// closeJournal releases the journal handle when the program exits.
func (m *Model) closeJournal() {
	if m.journal != nil {
		m.journal.Close()
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}

	if m.state == StateDashboard {
		// Restored session: start the countdown and poll chains and
		// validate the resumed token against the authority right away.
		m.tickAlive = true
		m.pollAlive = true
		m.spinner.SetMessage("validating restored session")
		cmds = append(cmds,
			session.TickCmd(),
			session.PollCmd(m.pollInterval),
			m.spinner.Start(),
			m.validateRestoreCmd(),
			m.listCmd(true),
		)
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.header.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.loginForm.SetSize(msg.Width, msg.Height)
		m.dirTable.SetWidth(msg.Width)
		m.journalView.SetSize(msg.Width, m.contentHeight())
		m.inspector.SetSize(msg.Width, msg.Height)
		m.help.SetSize(msg.Width, msg.Height)
		m.banner.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	// ==========================================================================
	// SESSION MACHINERY
	// ==========================================================================

	case session.TickMsg:
		cmd := m.manager.HandleTick(msg)
		if cmd == nil {
			m.tickAlive = false
		}
		m.syncSnapshot()
		m.dirTable.UpdateClock(msg.Time)
		if m.banner.IsVisible() && !m.banner.IsExpired() {
			m.banner.UpdateCountdown(m.manager.Snapshot().SecondsUntilExpiry)
		}
		return m, cmd

	case session.WarningMsg:
		return m.handleWarning(msg)

	case session.ForcedLogoutMsg:
		return m.handleForcedLogout(msg)

	case session.PollMsg:
		snap := m.manager.Snapshot()
		if m.state != StateDashboard || !snap.State.Authenticated() {
			m.pollAlive = false
			return m, nil
		}
		return m, tea.Batch(m.listCmd(true), session.PollCmd(m.pollInterval))

	// ==========================================================================
	// ASYNC COMPLETIONS
	// ==========================================================================

	case loginDoneMsg:
		return m.handleLoginDone(msg)

	case logoutDoneMsg:
		m.statusBar.SetBusy(false)
		return m, nil

	case refreshDoneMsg:
		return m.handleRefreshDone(msg)

	case restoreDoneMsg:
		return m.handleRestoreDone(msg)

	case directoryMsg:
		return m.handleDirectory(msg)

	case revokeDoneMsg:
		return m.handleRevokeDone(msg)

	case journalLoadedMsg:
		if msg.err != nil {
			return m, m.toastError("journal unavailable: " + msg.err.Error())
		}
		m.journalView.SetEvents(msg.events)
		return m, nil

	// ==========================================================================
	// COMPONENT MESSAGES
	// ==========================================================================

	case components.LoginSubmitMsg:
		return m.startLogin(msg)

	case components.ExtendRequestedMsg:
		return m.startRefresh()

	case components.BannerDismissedMsg:
		// Dismiss never extends: expiry unchanged, no re-show for this
		// approach, forced logout still fires on schedule.
		m.manager.ClearWarning()
		m.syncSnapshot()
		return m, nil

	case components.ExpiredAckMsg:
		// Banner hid itself; the login form is already behind it.
		return m, textinput.Blink

	case components.RevokeRequestedMsg:
		return m.startRevoke(msg.Token)

	case components.InspectRequestedMsg:
		m.inspector.Show(msg.Row)
		return m, nil

	case components.InspectorClosedMsg:
		return m, nil

	case components.JournalReloadMsg:
		return m, m.loadJournalCmd()

	case components.HelpClosedMsg:
		return m, nil

	case components.ToastTickMsg:
		m.toasts.TickToasts()
		if m.toasts.HasToasts() {
			return m, components.ToastTickCmd()
		}
		return m, nil
	}

	// Keep the login form's cursor blinking
	if m.state == StateLogin {
		var cmd tea.Cmd
		m.loginForm, cmd = m.loginForm.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Keep the spinner animating while a request is in flight
	if m.spinner.IsActive() {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKeyPress processes keyboard input. Overlays own the keyboard
// while visible: banner first (a forced-logout notice must be
// acknowledged), then help, then the inspector.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.banner.IsVisible() {
		var cmd tea.Cmd
		m.banner, cmd = m.banner.Update(msg)
		return m, cmd
	}

	if m.help.IsVisible() {
		var cmd tea.Cmd
		m.help, cmd = m.help.Update(msg)
		return m, cmd
	}

	if m.inspector.IsVisible() {
		var cmd tea.Cmd
		m.inspector, cmd = m.inspector.Update(msg)
		return m, cmd
	}

	// The sign-in form owns every printable key; "?" and "q" may well be
	// part of a password.
	if m.state == StateLogin {
		var cmd tea.Cmd
		m.loginForm, cmd = m.loginForm.Update(msg)
		return m, cmd
	}

	// Dashboard keys
	switch msg.String() {
	case "?":
		m.help.Toggle()
		return m, nil

	case "ctrl+r":
		return m.startRefresh()

	case "ctrl+l":
		return m.startLogout()

	case "esc":
		m.tab = TabOverview
		return m, nil

	case "q":
		if m.tab == TabOverview {
			return m, tea.Quit
		}
		m.tab = TabOverview
		return m, nil

	case "s":
		if m.tab != TabDirectory {
			return m.openDirectoryTab()
		}

	case "j":
		// Only a tab switch from the overview; the directory and the
		// journal both use j/k for movement.
		if m.tab == TabOverview {
			return m.openJournalTab()
		}
	}

	// Forward remaining keys to the focused view
	switch m.tab {
	case TabDirectory:
		var cmd tea.Cmd
		m.dirTable, cmd = m.dirTable.Update(msg)
		return m, cmd
	case TabJournal:
		var cmd tea.Cmd
		m.journalView, cmd = m.journalView.Update(msg)
		return m, cmd
	}

	return m, nil
}

// openDirectoryTab switches to the session directory and fetches a
// fresh listing. The guard runs again here, not just at sign-in.
func (m *Model) openDirectoryTab() (tea.Model, tea.Cmd) {
	switch session.Authorize(m.manager.Snapshot()) {
	case session.RedirectToLogin:
		m.enterLoginState()
		return m, textinput.Blink
	default:
		m.tab = TabDirectory
		m.statusBar.SetBusy(true)
		return m, m.listCmd(false)
	}
}

// openJournalTab switches to the auth journal, which only admins and
// auditors may read.
func (m *Model) openJournalTab() (tea.Model, tea.Cmd) {
	switch session.Authorize(m.manager.Snapshot(), api.RoleAdmin, api.RoleAuditor) {
	case session.Allow:
		m.tab = TabJournal
		return m, m.loadJournalCmd()
	case session.RedirectToLogin:
		m.enterLoginState()
		return m, textinput.Blink
	default:
		return m, m.toastWarning("the journal requires the admin or auditor role")
	}
}

// =============================================================================
// LIFECYCLE TRANSITIONS
// =============================================================================

// startLogin launches the asynchronous sign-in attempt.
func (m *Model) startLogin(msg components.LoginSubmitMsg) (tea.Model, tea.Cmd) {
	spin := m.loginForm.SetBusy(true)
	m.loginForm.SetError("")
	return m, tea.Batch(spin, m.loginCmd(msg.Username, msg.Password, msg.Remember))
}

// handleLoginDone applies a completed sign-in attempt.
func (m *Model) handleLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	m.loginForm.SetBusy(false)

	if msg.err != nil {
		m.loginForm.ClearPassword()
		m.loginForm.SetError(loginErrorText(msg.err))
		m.zlog.Warn().Err(msg.err).Str("username", msg.username).Msg("login failed")
		return m, nil
	}

	m.loginForm.Reset()
	m.state = StateDashboard
	m.tab = TabOverview
	m.statusBar.SetNetwork(true)
	m.header.SetConn(components.ConnOnline)
	m.persistCredential()
	m.syncSnapshot()

	snap := m.manager.Snapshot()
	m.journalRecord(eventFor(snap, storage.EventLogin,
		storage.TokenSuffix(m.manager.CurrentToken()), "dashboard sign-in"))
	m.zlog.Info().Str("username", snap.Principal.Username).Msg("signed in")

	cmds := []tea.Cmd{m.listCmd(true)}
	if !m.tickAlive {
		m.tickAlive = true
		cmds = append(cmds, session.TickCmd())
	}
	if !m.pollAlive {
		m.pollAlive = true
		cmds = append(cmds, session.PollCmd(m.pollInterval))
	}
	return m, tea.Batch(cmds...)
}

// startLogout ends the epoch. The view flips immediately; the remote
// invalidation is best-effort and finishes in the background.
func (m *Model) startLogout() (tea.Model, tea.Cmd) {
	snap := m.manager.Snapshot()
	if !snap.State.Authenticated() {
		return m, nil
	}
	suffix := storage.TokenSuffix(m.manager.CurrentToken())

	m.journalRecord(eventFor(snap, storage.EventLogout, suffix, "dashboard sign-out"))
	m.zlog.Info().Str("username", snap.Principal.Username).Msg("signed out")
	m.scrubCredential()
	m.banner.Hide()
	m.enterLoginState()

	mgr := m.manager
	timeout := m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		reason := mgr.Logout(ctx)
		return logoutDoneMsg{reason: reason}
	}
}

// startRefresh launches an asynchronous session extension.
func (m *Model) startRefresh() (tea.Model, tea.Cmd) {
	if !m.manager.Snapshot().State.Authenticated() {
		return m, nil
	}
	m.statusBar.SetBusy(true)
	m.spinner.SetMessage("extending session")
	return m, tea.Batch(m.spinner.Start(), m.refreshCmd())
}

// handleRefreshDone applies a refresh completion.
func (m *Model) handleRefreshDone(msg refreshDoneMsg) (tea.Model, tea.Cmd) {
	m.statusBar.SetBusy(false)
	m.spinner.Stop()

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, session.ErrStaleRefresh):
			// The epoch ended while the call was in flight.
			return m, nil

		case errors.Is(msg.err, api.ErrSessionExpired):
			// The authority rejected the token; the manager already
			// cleared local state.
			snap := m.lastAuthSnap
			m.scrubCredential()
			m.journalRecord(eventFor(snap, storage.EventForcedLogout, "",
				"refresh rejected: "+session.ReasonSessionRejected.String()))
			m.banner.ShowExpired(session.ReasonSessionRejected)
			m.enterLoginState()
			return m, nil

		case errors.Is(msg.err, api.ErrNetwork):
			m.statusBar.SetNetwork(false)
			m.header.SetConn(components.ConnOffline)
			return m, m.toastWarning("authority unreachable; session unchanged")

		default:
			return m, m.toastError("refresh failed: " + msg.err.Error())
		}
	}

	m.statusBar.SetNetwork(true)
	m.header.SetConn(components.ConnOnline)
	m.persistCredential()
	m.syncSnapshot()

	snap := m.manager.Snapshot()
	m.journalRecord(eventFor(snap, storage.EventRefresh,
		storage.TokenSuffix(m.manager.CurrentToken()), "session extended"))

	cmds := []tea.Cmd{
		m.toastSuccess("session extended, expires in " +
			session.FormatCountdown(snap.SecondsUntilExpiry)),
	}
	if msg.resp != nil && msg.resp.ShouldWarn {
		// Advisory only; the local clock drives the actual warning.
		cmds = append(cmds, m.toastWarning("authority reports the daily cutoff is near"))
	}
	return m, tea.Batch(cmds...)
}

// handleRestoreDone applies the startup validation of a restored
// session.
func (m *Model) handleRestoreDone(msg restoreDoneMsg) (tea.Model, tea.Cmd) {
	m.spinner.Stop()

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, session.ErrStaleRefresh):
			return m, nil

		case errors.Is(msg.err, api.ErrSessionExpired):
			snap := m.lastAuthSnap
			m.scrubCredential()
			m.journalRecord(eventFor(snap, storage.EventForcedLogout, "",
				"restored session rejected by authority"))
			m.enterLoginState()
			m.loginForm.SetError("stored session expired; sign in again")
			return m, textinput.Blink

		case errors.Is(msg.err, api.ErrNetwork):
			// Keep running on local validity; the next refresh or poll
			// will re-check.
			m.statusBar.SetNetwork(false)
			m.header.SetConn(components.ConnOffline)
			return m, m.toastWarning("authority unreachable; running on stored session")

		default:
			return m, m.toastError("session validation failed: " + msg.err.Error())
		}
	}

	m.statusBar.SetNetwork(true)
	m.header.SetConn(components.ConnOnline)
	m.persistCredential()
	m.syncSnapshot()

	snap := m.manager.Snapshot()
	m.journalRecord(eventFor(snap, storage.EventRestore,
		storage.TokenSuffix(m.manager.CurrentToken()), "session restored from credential store"))
	m.zlog.Info().Str("username", snap.Principal.Username).Msg("session restored")

	return m, m.toastStatus("welcome back, " + snap.Principal.Username)
}

// handleWarning shows the pre-expiry banner. One warning per approach:
// the manager's latch guarantees this fires once until a refresh or a
// new login re-arms it.
func (m *Model) handleWarning(msg session.WarningMsg) (tea.Model, tea.Cmd) {
	m.banner.ShowWarning(msg.SecondsLeft)
	m.syncSnapshot()

	snap := m.manager.Snapshot()
	m.journalRecord(eventFor(snap, storage.EventWarning, "",
		fmt.Sprintf("expiry warning raised at %ds remaining", msg.SecondsLeft)))
	return m, nil
}

// handleForcedLogout applies an epoch end decided by the clock: token
// expiry or the midnight cutoff. The manager has already cleared its
// state; this scrubs the disk and swaps the views.
func (m *Model) handleForcedLogout(msg session.ForcedLogoutMsg) (tea.Model, tea.Cmd) {
	m.tickAlive = false

	snap := m.lastAuthSnap
	m.scrubCredential()
	m.journalRecord(eventFor(snap, storage.EventForcedLogout, "", msg.Reason.String()))
	m.zlog.Info().Str("reason", msg.Reason.String()).Msg("forced logout")

	m.banner.ShowExpired(msg.Reason)
	m.enterLoginState()
	return m, nil
}

// startRevoke launches an asynchronous revocation of another device's
// session. The directory component never emits a revoke for the current
// row, and the directory layer short-circuits a self-revoke before any
// network call; this path only sees foreign tokens.
func (m *Model) startRevoke(token string) (tea.Model, tea.Cmd) {
	m.statusBar.SetBusy(true)

	// Capture before returning the closure: completions are checked
	// against the generation they started under.
	dir := m.directory
	gen := m.manager.Generation()
	suffix := storage.TokenSuffix(token)
	timeout := m.timeout

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rows, err := dir.Revoke(ctx, token)
		return revokeDoneMsg{
			rows:       rows,
			suffix:     suffix,
			generation: gen,
			fetchedAt:  time.Now(),
			err:        err,
		}
	}
}

// handleRevokeDone applies a revoke completion.
func (m *Model) handleRevokeDone(msg revokeDoneMsg) (tea.Model, tea.Cmd) {
	m.statusBar.SetBusy(false)

	if msg.generation != m.manager.Generation() {
		return m, nil
	}

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, api.ErrForbidden):
			return m, m.toastError("refusing to revoke the current session; sign out instead")
		case errors.Is(msg.err, api.ErrNotFound):
			// Already gone elsewhere; refetch so the table catches up.
			return m, tea.Batch(
				m.toastStatus("session was already gone"),
				m.listCmd(false),
			)
		case errors.Is(msg.err, api.ErrSessionExpired):
			// Our own token was rejected; funnel through refresh so the
			// rejection lands in one place.
			return m, m.refreshCmd()
		case errors.Is(msg.err, api.ErrNetwork):
			m.statusBar.SetNetwork(false)
			m.header.SetConn(components.ConnOffline)
			return m, m.toastError("authority unreachable; nothing revoked")
		default:
			return m, m.toastError("revoke failed: " + msg.err.Error())
		}
	}

	m.dirTable.SetRows(msg.rows, msg.fetchedAt)
	m.manager.SetActiveSessionCount(msg.generation, len(msg.rows))
	m.syncSnapshot()

	snap := m.manager.Snapshot()
	m.journalRecord(eventFor(snap, storage.EventRevoke, msg.suffix,
		"revoked from session directory"))

	return m, m.toastSuccess("session ..." + msg.suffix + " revoked")
}

// handleDirectory applies a session listing.
func (m *Model) handleDirectory(msg directoryMsg) (tea.Model, tea.Cmd) {
	m.statusBar.SetBusy(false)

	if msg.generation != m.manager.Generation() {
		return m, nil
	}

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, api.ErrSessionExpired):
			return m, m.refreshCmd()
		case errors.Is(msg.err, api.ErrNetwork):
			m.statusBar.SetNetwork(false)
			m.header.SetConn(components.ConnOffline)
			if msg.quiet {
				return m, nil
			}
			return m, m.toastError("authority unreachable; session list not updated")
		default:
			m.header.SetConn(components.ConnDegraded)
			if msg.quiet {
				return m, nil
			}
			return m, m.toastError("session list failed: " + msg.err.Error())
		}
	}

	m.statusBar.SetNetwork(true)
	m.header.SetConn(components.ConnOnline)
	m.dirTable.SetRows(msg.rows, msg.fetchedAt)
	m.manager.SetActiveSessionCount(msg.generation, len(msg.rows))
	m.syncSnapshot()
	return m, nil
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// syncSnapshot pushes the manager's current state into the passive
// views and re-runs the view guards. Guards are re-evaluated on every
// transition, not once at tab entry: a principal whose session ends
// while the journal tab is open falls back with everyone else.
func (m *Model) syncSnapshot() {
	snap := m.manager.Snapshot()
	m.statusBar.SetSnapshot(snap)

	if snap.State.Authenticated() {
		m.lastAuthSnap = snap
	}

	if m.state == StateDashboard && m.tab == TabJournal {
		if session.Authorize(snap, api.RoleAdmin, api.RoleAuditor) != session.Allow {
			m.tab = TabOverview
		}
	}
}

// enterLoginState swaps to the login form and empties every view that
// held session-scoped data.
func (m *Model) enterLoginState() {
	m.state = StateLogin
	m.tab = TabOverview
	m.loginForm.Reset()
	m.loginForm.SetRemember(m.config.Session.RememberDefault)
	m.loginForm.SetSize(m.width, m.height)
	m.dirTable.SetRows(nil, time.Now())
	m.journalView.SetEvents(nil)
	m.inspector.Hide()
	m.help.Hide()
	m.spinner.Stop()
	m.statusBar.SetBusy(false)
	m.syncSnapshot()
}

// persistCredential writes the current credential to the encrypted
// store when the principal asked to be remembered. Called after every
// expiry movement so a restored session never resumes with a stale
// anchor.
func (m *Model) persistCredential() {
	if m.creds == nil {
		return
	}
	cred, ok := m.manager.ExportCredentials()
	if !ok {
		return
	}
	if err := m.creds.Save(cred); err != nil {
		m.zlog.Warn().Err(err).Msg("credential save failed")
	}
}

// scrubCredential removes the persisted credential. Called on every
// epoch end; a signed-out client must not leave a resumable token on
// disk.
func (m *Model) scrubCredential() {
	if m.creds == nil {
		return
	}
	if err := m.creds.Delete(); err != nil {
		m.zlog.Warn().Err(err).Msg("credential delete failed")
	}
}

// journalRecord appends a lifecycle event, tolerating a disabled
// journal. Journal failures never disturb the session flow.
func (m *Model) journalRecord(ev storage.Event) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Append(ev); err != nil {
		m.zlog.Warn().Err(err).Str("event", string(ev.Type)).Msg("journal write failed")
	}
}

// eventFor builds a journal event carrying the principal from snap.
func eventFor(snap session.Snapshot, t storage.EventType, suffix, detail string) storage.Event {
	return storage.Event{
		Type:          t,
		PrincipalID:   snap.Principal.ID,
		Username:      snap.Principal.Username,
		Role:          string(snap.Principal.Role),
		SessionSuffix: suffix,
		Detail:        detail,
	}
}

// toastError queues an error toast and arms the expiry tick.
func (m *Model) toastError(text string) tea.Cmd {
	m.toasts.AddError(text)
	return components.ToastTickCmd()
}

// toastWarning queues a warning toast and arms the expiry tick.
func (m *Model) toastWarning(text string) tea.Cmd {
	m.toasts.AddWarning(text)
	return components.ToastTickCmd()
}

// toastStatus queues a neutral toast and arms the expiry tick.
func (m *Model) toastStatus(text string) tea.Cmd {
	m.toasts.AddStatus(text)
	return components.ToastTickCmd()
}

// toastSuccess queues a confirmation toast and arms the expiry tick.
func (m *Model) toastSuccess(text string) tea.Cmd {
	m.toasts.AddSuccess(text)
	return components.ToastTickCmd()
}

// loginErrorText maps sign-in failures onto the short messages the
// form shows inline.
func loginErrorText(err error) string {
	switch {
	case errors.Is(err, api.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, api.ErrAccountLocked):
		return "account locked after repeated failures; try again later"
	case errors.Is(err, api.ErrNetwork):
		return "authority unreachable; check the endpoint and try again"
	case errors.Is(err, api.ErrNotConfigured):
		return "no authority endpoint configured"
	default:
		return err.Error()
	}
}

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// loginDoneMsg is sent when the asynchronous sign-in attempt completes.
type loginDoneMsg struct {
	username string
	err      error
}

// logoutDoneMsg is sent when the best-effort remote invalidation
// finishes. Local state was already cleared when sign-out started.
type logoutDoneMsg struct {
	reason session.LogoutReason
}

// refreshDoneMsg carries a refresh response or its error.
type refreshDoneMsg struct {
	resp *api.RefreshResponse
	err  error
}

// restoreDoneMsg reports the startup validation of a restored session.
type restoreDoneMsg struct {
	resp *api.RefreshResponse
	err  error
}

// directoryMsg carries a fresh session listing.
type directoryMsg struct {
	rows       []session.Annotated
	generation uint64
	fetchedAt  time.Time
	quiet      bool
	err        error
}

// revokeDoneMsg reports a revoke outcome; rows hold the re-fetched
// listing after a success.
type revokeDoneMsg struct {
	rows       []session.Annotated
	suffix     string
	generation uint64
	fetchedAt  time.Time
	err        error
}

// journalLoadedMsg carries journal rows for the journal tab.
type journalLoadedMsg struct {
	events []storage.Event
	err    error
}

// loginCmd returns a command that signs in against the authority.
func (m *Model) loginCmd(username, password string, remember bool) tea.Cmd {
	// Capture before returning the closure to avoid racing the model
	mgr := m.manager
	timeout := m.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := mgr.Login(ctx, username, password, remember)
		return loginDoneMsg{username: username, err: err}
	}
}

// refreshCmd returns a command that extends the current session.
func (m *Model) refreshCmd() tea.Cmd {
	mgr := m.manager
	timeout := m.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := mgr.Refresh(ctx)
		return refreshDoneMsg{resp: resp, err: err}
	}
}

// validateRestoreCmd returns a command that validates a restored
// session with an immediate refresh.
func (m *Model) validateRestoreCmd() tea.Cmd {
	mgr := m.manager
	timeout := m.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := mgr.Refresh(ctx)
		return restoreDoneMsg{resp: resp, err: err}
	}
}

// listCmd returns a command that fetches the session directory. quiet
// marks background polls, which flip the connection indicator but never
// toast.
func (m *Model) listCmd(quiet bool) tea.Cmd {
	dir := m.directory
	gen := m.manager.Generation()
	timeout := m.timeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		rows, err := dir.List(ctx)
		return directoryMsg{
			rows:       rows,
			generation: gen,
			fetchedAt:  time.Now(),
			quiet:      quiet,
			err:        err,
		}
	}
}

// loadJournalCmd returns a command that reads recent journal events.
func (m *Model) loadJournalCmd() tea.Cmd {
	j := m.journal

	return func() tea.Msg {
		if j == nil {
			return journalLoadedMsg{err: errors.New("journaling is disabled (journal.enabled)")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		events, err := j.Recent(ctx, journalViewLimit)
		return journalLoadedMsg{events: events, err: err}
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// View renders the current state. Overlays are full-screen and render
// alone: the banner outranks help, help outranks the inspector.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	if m.banner.IsVisible() {
		return m.banner.View()
	}
	if m.help.IsVisible() {
		return m.help.View()
	}
	if m.inspector.IsVisible() {
		return m.inspector.View()
	}

	if m.state == StateLogin {
		return m.loginForm.View()
	}
	return m.viewDashboard()
}

// headerView drops to the single-line header when the terminal is too
// narrow for the full banner.
func (m *Model) headerView() string {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return m.header.ViewCompact()
	}
	return m.header.View()
}

// contentHeight returns the rows left for the focused view after the
// header, tab bar and status bar take theirs.
func (m *Model) contentHeight() int {
	chrome := lipgloss.Height(m.headerView()) +
		lipgloss.Height(m.renderTabs()) +
		lipgloss.Height(m.statusBar.View())
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	return h
}

// viewDashboard composes header, tab bar, focused view, toasts and
// status bar into the full-screen layout.
func (m *Model) viewDashboard() string {
	head := m.headerView()
	tabs := m.renderTabs()
	status := m.statusBar.View()

	bodyHeight := m.height - lipgloss.Height(head) - lipgloss.Height(tabs) - lipgloss.Height(status)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	var body string
	switch m.tab {
	case TabDirectory:
		body = m.dirTable.View()
	case TabJournal:
		body = m.journalView.View()
	default:
		body = m.viewOverview()
	}

	var stack string
	if m.toasts.HasToasts() {
		stack = lipgloss.PlaceHorizontal(m.width, lipgloss.Right,
			components.RenderToastStack(m.toasts.GetToasts(), m.width, 0))
		bodyHeight -= lipgloss.Height(stack)
		if bodyHeight < 1 {
			bodyHeight = 1
		}
	}

	body = lipgloss.NewStyle().Width(m.width).Height(bodyHeight).Render(body)

	parts := []string{head, tabs, body}
	if stack != "" {
		parts = append(parts, stack)
	}
	parts = append(parts, status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderTabs draws the dashboard tab bar. The journal tab is dimmed
// for roles the guard would deny.
func (m *Model) renderTabs() string {
	snap := m.manager.Snapshot()

	labels := []string{"overview", "sessions [s]", "journal [j]"}
	active := int(m.tab)

	var parts []string
	for i, label := range labels {
		style := m.theme.Muted
		switch {
		case i == active:
			style = m.theme.Bold
		case i == int(TabJournal) &&
			session.Authorize(snap, api.RoleAdmin, api.RoleAuditor) != session.Allow:
			style = m.theme.Muted.Strikethrough(true)
		}
		parts = append(parts, style.Render(label))
	}

	line := " " + strings.Join(parts, m.theme.StatusSeparator.Render("  |  "))
	return lipgloss.NewStyle().Width(m.width).Render(line)
}

// viewOverview renders the session overview panel: identity, both
// countdowns and the fleet session count, with the key hints below.
func (m *Model) viewOverview() string {
	snap := m.manager.Snapshot()

	title := m.theme.DirTitle.Render("session overview")

	expiryStyle := m.theme.SessionOK
	if snap.SecondsUntilExpiry <= 300 {
		expiryStyle = m.theme.SessionWarn
	}
	if snap.SecondsUntilExpiry <= 0 {
		expiryStyle = m.theme.SessionDead
	}

	stateText := snap.State.String()
	if snap.WarningVisible {
		stateText = stateText + "  (expiry warning active)"
	}

	remembered := "no"
	if snap.Remember {
		remembered = "yes (restored on startup)"
	}

	rows := [][2]string{
		{"signed in as", snap.Principal.Username + " (" + string(snap.Principal.Role) + ")"},
		{"state", stateText},
		{"session expires in", expiryStyle.Render(session.FormatCountdown(snap.SecondsUntilExpiry))},
		{"daily cutoff in", m.theme.MidnightClock.Render(session.FormatCountdown(snap.SecondsUntilMidnight))},
		{"active sessions", fmt.Sprintf("%d", snap.ActiveSessionCount)},
		{"remembered", remembered},
		{"authority", m.config.Authority.URL},
	}

	var lines []string
	lines = append(lines, title, "")
	for _, row := range rows {
		label := m.theme.Muted.Render(fmt.Sprintf("  %-20s", row[0]))
		lines = append(lines, label+row[1])
	}

	if m.spinner.IsActive() {
		lines = append(lines, "", "  "+m.spinner.View())
	}

	lines = append(lines, "",
		m.theme.Muted.Render("  all sessions end at midnight UTC+9, refreshed or not"),
		"",
		m.renderOverviewHints())

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderOverviewHints draws the shortcut strip under the overview.
func (m *Model) renderOverviewHints() string {
	hints := [][2]string{
		{"s", "sessions"},
		{"j", "journal"},
		{"ctrl+r", "extend"},
		{"ctrl+l", "sign out"},
		{"?", "help"},
		{"q", "quit"},
	}

	var parts []string
	for _, h := range hints {
		parts = append(parts,
			m.theme.ShortcutKey.Render(h[0])+" "+m.theme.ShortcutDesc.Render(h[1]))
	}
	return "  " + strings.Join(parts, "   ")
}
