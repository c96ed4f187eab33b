// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	// Colors (dark variants of the fleetwatch palette)
	brandPrimary   = lipgloss.Color("#22D3EE") // Cyan
	brandSecondary = lipgloss.Color("#A78BFA") // Purple
	brandAccent    = lipgloss.Color("#34D399") // Emerald
	brandWarning   = lipgloss.Color("#FBBF24") // Amber
	brandError     = lipgloss.Color("#FB7185") // Rose
	textDim        = lipgloss.Color("#6C7086") // Gray

	// Styles
	titleStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textDim).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(brandAccent).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(brandError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(brandWarning)

	highlightStyle = lipgloss.NewStyle().
			Foreground(brandSecondary).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(textDim)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brandPrimary).
			Padding(1, 2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(brandPrimary).
			Bold(true)

	unselectedStyle = lipgloss.NewStyle().
			Foreground(textDim)
)

// =============================================================================
// ASCII ART
// =============================================================================

const logo = `
    ███████╗██╗     ███████╗███████╗████████╗
    ██╔════╝██║     ██╔════╝██╔════╝╚══██╔══╝
    █████╗  ██║     █████╗  █████╗     ██║
    ██╔══╝  ██║     ██╔══╝  ██╔══╝     ██║
    ██║     ███████╗███████╗███████╗   ██║
    ╚═╝     ╚══════╝╚══════╝╚══════╝   ╚═╝
    ██╗    ██╗ █████╗ ████████╗ ██████╗██╗  ██╗
    ██║    ██║██╔══██╗╚══██╔══╝██╔════╝██║  ██║
    ██║ █╗ ██║███████║   ██║   ██║     ███████║
    ██║███╗██║██╔══██║   ██║   ██║     ██╔══██║
    ╚███╔███╔╝██║  ██║   ██║   ╚██████╗██║  ██║
     ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝
`

const tagline = "Session-aware terminal client for fleet operations"

// defaultAuthorityURL is where the local dev authority listens
// (started with: fleetwatch authd).
const defaultAuthorityURL = "http://127.0.0.1:8790"

// =============================================================================
// SETUP MODEL
// =============================================================================

// Phase represents the current setup phase
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseSystemCheck
	PhaseAuthority
	PhaseOptions
	PhaseWriteConfig
	PhaseComplete
)

// CheckResult represents an environment check result
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warn", "checking"
	Message string
	Fix     string
}

// optionRow is a toggleable setup choice.
type optionRow struct {
	Label   string
	Hint    string
	Enabled bool
}

// Setup is the main setup model
type Setup struct {
	phase        Phase
	width        int
	height       int
	spinner      spinner.Model
	authorityIn  textinput.Model
	checks       []CheckResult
	currentCheck int
	authorityUp  bool
	authorityErr string
	options      []optionRow
	optionCursor int
	configDir    string
	installPath  string
	error        string

	// Animation state
	typingText   string
	typingTarget string
	typingIndex  int

	// Completion screen
	completeCursor int  // 0 = launch, 1 = quick tour, 2 = close
	wantTour       bool // set when the quick tour is picked
}

// NewSetup creates a new setup instance
func NewSetup() *Setup {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(brandPrimary)

	in := textinput.New()
	in.Placeholder = defaultAuthorityURL
	in.SetValue(defaultAuthorityURL)
	in.CharLimit = 256
	in.Width = 48
	in.Prompt = "> "

	homeDir, _ := os.UserHomeDir()

	return &Setup{
		phase:       PhaseWelcome,
		spinner:     sp,
		authorityIn: in,
		checks: []CheckResult{
			{Name: "Operating System", Status: "checking"},
			{Name: "Terminal Colors", Status: "checking"},
			{Name: "Configuration", Status: "checking"},
			{Name: "Issuing Authority", Status: "checking"},
			{Name: "Disk Space", Status: "checking"},
		},
		options: []optionRow{
			{
				Label:   "Remember sessions across restarts",
				Hint:    "encrypted credential store in ~/.fleetwatch",
				Enabled: false,
			},
			{
				Label:   "Local auth journal",
				Hint:    "SQLite record of sign-ins, refreshes and revocations",
				Enabled: true,
			},
			{
				Label:   "UTC+9 reference clock in the status bar",
				Hint:    "the wall clock every midnight cutoff is measured against",
				Enabled: true,
			},
		},
		configDir:   filepath.Join(homeDir, ".fleetwatch"),
		installPath: filepath.Join(homeDir, ".local", "bin"),
	}
}

// Init initializes the setup
func (s *Setup) Init() tea.Cmd {
	return tea.Batch(
		s.spinner.Tick,
		s.typeWriter(logo, 5*time.Millisecond),
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// typeWriterMsg updates the typing animation
type typeWriterMsg struct {
	target string
	index  int
}

// checkCompleteMsg signals a check is complete
type checkCompleteMsg struct {
	index  int
	result CheckResult
}

// setupCompleteMsg signals the configuration has been written
type setupCompleteMsg struct {
	success bool
	error   string
}

// Update handles messages
func (s *Setup) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

		// Update boxStyle width dynamically based on terminal width
		boxWidth := msg.Width - 16
		if boxWidth < 40 {
			boxWidth = 40
		}
		if boxWidth > 70 {
			boxWidth = 70
		}
		boxStyle = boxStyle.Width(boxWidth)

		// Return spinner tick to force a redraw
		return s, s.spinner.Tick

	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case typeWriterMsg:
		if msg.target == s.typingTarget && msg.index <= len(msg.target) {
			s.typingText = msg.target[:msg.index]
			s.typingIndex = msg.index
			if msg.index < len(msg.target) {
				return s, s.typeWriterTick(msg.target, msg.index+1, 5*time.Millisecond)
			}
		}
		return s, nil

	case checkCompleteMsg:
		s.checks[msg.index] = msg.result
		s.currentCheck++
		if s.currentCheck < len(s.checks) {
			return s, s.runCheck(s.currentCheck)
		}
		// All checks complete
		s.authorityUp = s.checks[3].Status == "pass"
		return s, nil

	case setupCompleteMsg:
		if msg.success {
			s.phase = PhaseComplete
		} else {
			s.error = msg.error
		}
		return s, nil
	}

	// Cursor blink and other component messages belong to the URL input.
	if s.phase == PhaseAuthority {
		var cmd tea.Cmd
		s.authorityIn, cmd = s.authorityIn.Update(msg)
		return s, cmd
	}

	return s, nil
}

// handleKey processes key presses
func (s *Setup) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The URL input owns printable keys; only a few controls bypass it.
	if s.phase == PhaseAuthority {
		switch msg.String() {
		case "ctrl+c":
			return s, tea.Quit
		case "enter":
			return s.handleSelect()
		case "esc":
			s.authorityIn.SetValue(defaultAuthorityURL)
			s.authorityErr = ""
			return s, nil
		}
		var cmd tea.Cmd
		s.authorityIn, cmd = s.authorityIn.Update(msg)
		return s, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return s, tea.Quit

	case "enter":
		return s.handleSelect()

	case " ":
		if s.phase == PhaseOptions {
			s.options[s.optionCursor].Enabled = !s.options[s.optionCursor].Enabled
			return s, nil
		}
		return s.handleSelect()

	case "up", "k":
		if s.phase == PhaseOptions && s.optionCursor > 0 {
			s.optionCursor--
		}
		if s.phase == PhaseComplete && s.completeCursor > 0 {
			s.completeCursor--
		}
		return s, nil

	case "down", "j":
		if s.phase == PhaseOptions && s.optionCursor < len(s.options)-1 {
			s.optionCursor++
		}
		if s.phase == PhaseComplete && s.completeCursor < 2 {
			s.completeCursor++
		}
		return s, nil

	case "tab":
		if s.phase == PhaseComplete {
			s.completeCursor = (s.completeCursor + 1) % 3
		}
		return s, nil
	}

	return s, nil
}

// handleSelect processes selection/enter
func (s *Setup) handleSelect() (tea.Model, tea.Cmd) {
	switch s.phase {
	case PhaseWelcome:
		s.phase = PhaseSystemCheck
		return s, s.runCheck(0)

	case PhaseSystemCheck:
		if s.currentCheck >= len(s.checks) {
			s.phase = PhaseAuthority
			return s, textinput.Blink
		}
		return s, nil

	case PhaseAuthority:
		raw := strings.TrimSpace(s.authorityIn.Value())
		if raw == "" {
			raw = defaultAuthorityURL
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			s.authorityErr = "enter an http(s) URL, e.g. " + defaultAuthorityURL
			return s, nil
		}
		s.authorityIn.SetValue(strings.TrimRight(raw, "/"))
		s.authorityErr = ""
		s.phase = PhaseOptions
		return s, nil

	case PhaseOptions:
		s.phase = PhaseWriteConfig
		return s, s.runSetup()

	case PhaseWriteConfig:
		// Wait for the write to complete
		return s, nil

	case PhaseComplete:
		switch s.completeCursor {
		case 0:
			return s, s.launchFleetwatch()
		case 1:
			s.wantTour = true
			return s, tea.Quit
		default:
			return s, tea.Quit
		}
	}

	return s, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

// typeWriter starts a typing animation
func (s *Setup) typeWriter(text string, delay time.Duration) tea.Cmd {
	s.typingTarget = text
	s.typingIndex = 0
	s.typingText = ""
	return s.typeWriterTick(text, 1, delay)
}

// typeWriterTick sends the next typewriter tick
func (s *Setup) typeWriterTick(target string, index int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return typeWriterMsg{target: target, index: index}
	})
}

// runCheck runs an environment check
func (s *Setup) runCheck(index int) tea.Cmd {
	return func() tea.Msg {
		result := s.checks[index]
		result.Status = "checking"

		switch index {
		case 0: // OS check
			result = s.checkOS()
		case 1: // Color support
			result = s.checkColors()
		case 2: // Existing config
			result = s.checkConfig()
		case 3: // Authority reachability
			result = s.checkAuthority()
		case 4: // Disk check
			result = s.checkDisk()
		}

		time.Sleep(300 * time.Millisecond) // Pace the reveal for visual effect
		return checkCompleteMsg{index: index, result: result}
	}
}

// Environment checks
func (s *Setup) checkOS() CheckResult {
	return CheckResult{
		Name:    "Operating System",
		Status:  "pass",
		Message: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (s *Setup) checkColors() CheckResult {
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		return CheckResult{Name: "Terminal Colors", Status: "pass", Message: "24-bit color"}
	case termenv.ANSI256:
		return CheckResult{Name: "Terminal Colors", Status: "pass", Message: "256 colors"}
	case termenv.ANSI:
		return CheckResult{Name: "Terminal Colors", Status: "pass", Message: "16 colors"}
	default:
		return CheckResult{
			Name:    "Terminal Colors",
			Status:  "warn",
			Message: "monochrome terminal (styles degrade gracefully)",
		}
	}
}

func (s *Setup) checkConfig() CheckResult {
	configFile := filepath.Join(s.configDir, "config.toml")
	if _, err := os.Stat(configFile); err == nil {
		return CheckResult{
			Name:    "Configuration",
			Status:  "warn",
			Message: "config.toml already present",
			Fix:     "existing settings are kept; delete the file to start over",
		}
	}
	return CheckResult{
		Name:    "Configuration",
		Status:  "pass",
		Message: fmt.Sprintf("will create %s", configFile),
	}
}

func (s *Setup) checkAuthority() CheckResult {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(defaultAuthorityURL + "/health")
	if err != nil {
		return CheckResult{
			Name:    "Issuing Authority",
			Status:  "warn",
			Message: fmt.Sprintf("nothing answering at %s", defaultAuthorityURL),
			Fix:     "Run: fleetwatch authd (to try fleetwatch locally)",
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CheckResult{
			Name:    "Issuing Authority",
			Status:  "warn",
			Message: fmt.Sprintf("%s answered HTTP %d", defaultAuthorityURL, resp.StatusCode),
		}
	}
	return CheckResult{
		Name:    "Issuing Authority",
		Status:  "pass",
		Message: fmt.Sprintf("dev authority answering at %s", defaultAuthorityURL),
	}
}

func (s *Setup) checkDisk() CheckResult {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return CheckResult{Name: "Disk Space", Status: "warn", Message: "could not resolve home directory"}
	}
	free, err := freeDiskBytes(homeDir)
	if err != nil {
		return CheckResult{Name: "Disk Space", Status: "warn", Message: "could not determine free space"}
	}

	// The journal, log and credential store together stay well under this.
	const minimum = 64 * 1024 * 1024
	if free < minimum {
		return CheckResult{
			Name:    "Disk Space",
			Status:  "warn",
			Message: fmt.Sprintf("only %d MB free in %s", free/(1024*1024), homeDir),
		}
	}
	return CheckResult{
		Name:    "Disk Space",
		Status:  "pass",
		Message: fmt.Sprintf("%.1f GB free", float64(free)/(1024*1024*1024)),
	}
}

// =============================================================================
// FLEETWATCH BINARY DOWNLOAD
// =============================================================================

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []GitHubAsset `json:"assets"`
}

// GitHubAsset represents a release asset
type GitHubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// binaryInstalled checks if the fleetwatch binary exists
func (s *Setup) binaryInstalled() bool {
	binPath := filepath.Join(s.installPath, "fleetwatch")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}
	_, err := os.Stat(binPath)
	return err == nil
}

// downloadBinary downloads the fleetwatch binary from GitHub releases
func (s *Setup) downloadBinary() error {
	const repoOwner = "jeranaias"
	const repoName = "fleetwatch"

	// Determine the asset name based on OS and architecture
	goos := runtime.GOOS
	goarch := runtime.GOARCH

	// Map Go architecture names to common release names
	archName := goarch
	switch goarch {
	case "amd64":
		archName = "x86_64"
	case "arm64":
		archName = "arm64"
	case "386":
		archName = "i386"
	}

	// Map Go OS names to common release names
	osName := goos
	switch goos {
	case "darwin":
		osName = "Darwin"
	case "linux":
		osName = "Linux"
	case "windows":
		osName = "Windows"
	}

	// Get the latest release info
	releaseURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", repoOwner, repoName)
	resp, err := http.Get(releaseURL)
	if err != nil {
		return fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch release info: HTTP %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return fmt.Errorf("failed to parse release info: %w", err)
	}

	// Find the appropriate asset
	var assetURL string
	var assetName string

	// Look for a matching asset (e.g. fleetwatch_Linux_x86_64.tar.gz)
	for _, asset := range release.Assets {
		if strings.Contains(asset.Name, osName) && strings.Contains(asset.Name, archName) {
			assetURL = asset.BrowserDownloadURL
			assetName = asset.Name
			break
		}
	}

	if assetURL == "" {
		return fmt.Errorf("no release found for %s/%s", osName, archName)
	}

	// Download the asset
	assetResp, err := http.Get(assetURL)
	if err != nil {
		return fmt.Errorf("failed to download binary: %w", err)
	}
	defer assetResp.Body.Close()

	if assetResp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download binary: HTTP %d", assetResp.StatusCode)
	}

	// Create temp file
	tmpFile, err := os.CreateTemp("", "fleetwatch-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	// Write to temp file
	if _, err := io.Copy(tmpFile, assetResp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to save download: %w", err)
	}
	tmpFile.Close()

	// Create install directory
	if err := os.MkdirAll(s.installPath, 0755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	// Extract the binary
	if strings.HasSuffix(assetName, ".zip") {
		if err := extractZip(tmpPath, s.installPath); err != nil {
			return fmt.Errorf("failed to extract zip: %w", err)
		}
	} else if strings.HasSuffix(assetName, ".tar.gz") || strings.HasSuffix(assetName, ".tgz") {
		if err := extractTarGz(tmpPath, s.installPath); err != nil {
			return fmt.Errorf("failed to extract tar.gz: %w", err)
		}
	} else {
		// Direct binary - just copy it
		binPath := filepath.Join(s.installPath, "fleetwatch")
		if runtime.GOOS == "windows" {
			binPath += ".exe"
		}
		if err := copyFile(tmpPath, binPath); err != nil {
			return fmt.Errorf("failed to copy binary: %w", err)
		}
		os.Chmod(binPath, 0755)
	}

	return nil
}

// extractZip extracts a zip file to the destination directory
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		// Only extract the fleetwatch binary
		name := filepath.Base(f.Name)
		if name != "fleetwatch" && name != "fleetwatch.exe" {
			continue
		}

		destPath := filepath.Join(dest, name)

		rc, err := f.Open()
		if err != nil {
			return err
		}

		outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// extractTarGz extracts a tar.gz file to the destination directory
func extractTarGz(src, dest string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// Only extract the fleetwatch binary
		name := filepath.Base(header.Name)
		if name != "fleetwatch" && name != "fleetwatch.exe" {
			continue
		}

		destPath := filepath.Join(dest, name)

		outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
		if err != nil {
			return err
		}

		if _, err := io.Copy(outFile, tr); err != nil {
			outFile.Close()
			return err
		}
		outFile.Close()
	}

	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	return err
}

// runSetup writes the configuration and fetches the binary if needed
func (s *Setup) runSetup() tea.Cmd {
	return func() tea.Msg {
		// Fetch the fleetwatch binary when it is not on disk yet
		if !s.binaryInstalled() {
			if err := s.downloadBinary(); err != nil {
				// Non-fatal: the setup may be running next to a source build
				_ = err
			}
		}

		// Create the state directory
		// SECURITY: 0700 - it will hold the credential store and journal.
		if err := os.MkdirAll(s.configDir, 0700); err != nil {
			return setupCompleteMsg{success: false, error: err.Error()}
		}

		// Write the config unless one is already there
		configFile := filepath.Join(s.configDir, "config.toml")
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			cfg := renderConfig(
				s.authorityIn.Value(),
				s.options[0].Enabled,
				s.options[1].Enabled,
				s.options[2].Enabled,
			)
			// SECURITY: fleetwatch refuses config files that are not 0600.
			if err := os.WriteFile(configFile, []byte(cfg), 0600); err != nil {
				return setupCompleteMsg{success: false, error: err.Error()}
			}
		}

		time.Sleep(500 * time.Millisecond) // Visual feedback
		return setupCompleteMsg{success: true}
	}
}

// renderConfig creates the initial configuration file
func renderConfig(authorityURL string, remember, journal, refClock bool) string {
	return fmt.Sprintf(`# fleetwatch configuration
# Generated by fleetwatch-setup

version = "1.0.0"

[authority]
# Issuing authority endpoint; every login, refresh and revoke goes here
url = "%s"

# Per-request timeout and retry budget (login and revoke are never retried)
timeout_secs = 15
max_retries = 3

[session]
# Cadence of the background session directory poll
poll_interval_secs = 45

# Pre-select remember-me on the sign-in form
remember_default = %t

# Resume a remembered session from the credential store on startup
restore_on_startup = true

[journal]
# Local SQLite record of sign-ins, refreshes and revocations
enabled = %t

# Empty means ~/.fleetwatch/journal.db
path = ""

# Journal rows older than this are pruned
retention_days = 30

[logging]
# trace, debug, info, warn, error or off
level = "info"

[ui]
# Theme: dark, light or auto
theme = "dark"

# Compact mode for small terminals
compact_mode = false

# Show the UTC+9 wall clock the midnight cutoff is measured against
show_reference_clock = %t
`, authorityURL, remember, journal, refClock)
}

// launchFleetwatch opens a terminal and runs fleetwatch
func (s *Setup) launchFleetwatch() tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd

		binPath := filepath.Join(s.installPath, "fleetwatch")
		if runtime.GOOS == "windows" {
			binPath += ".exe"
		}

		switch runtime.GOOS {
		case "windows":
			// Windows: open Windows Terminal or cmd.exe with fleetwatch
			// Try Windows Terminal first (wt), fall back to cmd
			if _, err := exec.LookPath("wt"); err == nil {
				cmd = exec.Command("wt", "new-tab", "--title", "fleetwatch", binPath)
			} else {
				// Use cmd.exe with /K to keep the window open
				cmd = exec.Command("cmd", "/C", "start", "fleetwatch", "cmd", "/K", binPath)
			}

		case "darwin":
			// macOS: open Terminal.app with fleetwatch
			script := fmt.Sprintf(`
				tell application "Terminal"
					activate
					do script "%s"
				end tell
			`, binPath)
			cmd = exec.Command("osascript", "-e", script)

		default:
			// Linux: try common terminal emulators
			terminals := []struct {
				name string
				args []string
			}{
				{"gnome-terminal", []string{"--", binPath}},
				{"konsole", []string{"-e", binPath}},
				{"xfce4-terminal", []string{"-e", binPath}},
				{"xterm", []string{"-e", binPath}},
				{"alacritty", []string{"-e", binPath}},
				{"kitty", []string{binPath}},
			}

			for _, term := range terminals {
				if _, err := exec.LookPath(term.name); err == nil {
					cmd = exec.Command(term.name, term.args...)
					break
				}
			}

			// Fallback: just run in current terminal (won't work but better than nothing)
			if cmd == nil {
				cmd = exec.Command(binPath)
			}
		}

		// Start the command (don't wait for it)
		_ = cmd.Start()

		return tea.Quit()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the setup
func (s *Setup) View() string {
	switch s.phase {
	case PhaseWelcome:
		return s.viewWelcome()
	case PhaseSystemCheck:
		return s.viewSystemCheck()
	case PhaseAuthority:
		return s.viewAuthority()
	case PhaseOptions:
		return s.viewOptions()
	case PhaseWriteConfig:
		return s.viewWriteConfig()
	case PhaseComplete:
		return s.viewComplete()
	}
	return ""
}

func (s *Setup) viewWelcome() string {
	var b strings.Builder

	// Logo with typing effect
	logoStyle := lipgloss.NewStyle().Foreground(brandPrimary).Bold(true)
	if s.typingTarget == logo {
		b.WriteString(logoStyle.Render(s.typingText))
	} else {
		b.WriteString(logoStyle.Render(logo))
	}

	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("    " + tagline))
	b.WriteString("\n\n")

	// Version
	b.WriteString(dimStyle.Render(fmt.Sprintf("    Version %s", version)))
	b.WriteString("\n\n")

	// Welcome box
	welcomeText := `
Welcome to the fleetwatch setup!

This setup will:

  * Check your terminal and environment
  * Point fleetwatch at your issuing authority
  * Pick session and journal options
  * Write your configuration
  * Have you on watch in 60 seconds

`
	b.WriteString(boxStyle.Render(welcomeText))
	b.WriteString("\n\n")

	// Continue prompt
	b.WriteString(highlightStyle.Render("  Press ENTER to begin"))
	b.WriteString(dimStyle.Render("  |  Press Q to quit"))

	return s.center(b.String())
}

func (s *Setup) viewSystemCheck() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Environment Check"))
	b.WriteString("\n\n")

	for idx, check := range s.checks {
		var icon, status string
		var style lipgloss.Style

		switch check.Status {
		case "checking":
			if idx == s.currentCheck {
				icon = s.spinner.View()
			} else {
				icon = "[ ]"
			}
			status = "Checking..."
			style = dimStyle
		case "pass":
			icon = "[OK]"
			status = check.Message
			style = successStyle
		case "fail":
			icon = "[FAIL]"
			status = check.Message
			style = errorStyle
		case "warn":
			icon = "[!!]"
			status = check.Message
			style = warningStyle
		}

		b.WriteString(fmt.Sprintf("  %s %s", style.Render(icon), check.Name))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" - %s", status)))
		b.WriteString("\n")

		if check.Fix != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("      -> %s", check.Fix)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")

	if s.currentCheck >= len(s.checks) {
		// All checks complete
		allPass := true
		for _, check := range s.checks {
			if check.Status == "fail" {
				allPass = false
				break
			}
		}

		if allPass {
			b.WriteString(successStyle.Render("  All checks passed!"))
			b.WriteString("\n\n")
			b.WriteString(highlightStyle.Render("  Press ENTER to continue"))
		} else {
			b.WriteString(warningStyle.Render("  Some checks need attention"))
			b.WriteString("\n\n")
			b.WriteString(highlightStyle.Render("  Press ENTER to continue anyway"))
		}
	}

	return s.center(b.String())
}

func (s *Setup) viewAuthority() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Issuing Authority"))
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("  Every session fleetwatch opens is issued, refreshed and revoked"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  by this endpoint. All sessions it issues end at midnight UTC+9."))
	b.WriteString("\n\n")

	b.WriteString("  " + s.authorityIn.View())
	b.WriteString("\n\n")

	if s.authorityErr != "" {
		b.WriteString(errorStyle.Render("  " + s.authorityErr))
		b.WriteString("\n\n")
	}

	if !s.authorityUp {
		b.WriteString(warningStyle.Render("  The local dev authority is not running."))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  Start one anytime with: fleetwatch authd"))
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render("  ENTER to accept  |  ESC to reset to the default"))

	return s.center(b.String())
}

func (s *Setup) viewOptions() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Options"))
	b.WriteString("\n\n")

	for idx, opt := range s.options {
		cursor := "  " // No cursor (2 spaces for alignment)
		style := unselectedStyle
		if idx == s.optionCursor {
			cursor = "> " // Cursor takes same space
			style = selectedStyle
		}
		mark := "[ ]"
		if opt.Enabled {
			mark = successStyle.Render("[x]")
		}
		b.WriteString(fmt.Sprintf("  %s%s %s", style.Render(cursor), mark, style.Render(opt.Label)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("        " + opt.Hint))
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render("  Use ↑/↓ to move, SPACE to toggle, ENTER to continue"))

	return s.center(b.String())
}

func (s *Setup) viewWriteConfig() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Setting Up fleetwatch"))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s Writing configuration...\n", s.spinner.View()))
	b.WriteString(dimStyle.Render(fmt.Sprintf("     %s/config.toml\n\n", s.configDir)))

	b.WriteString(fmt.Sprintf("  %s Checking for the fleetwatch binary...\n", s.spinner.View()))
	b.WriteString(dimStyle.Render(fmt.Sprintf("     %s (fetched from GitHub releases when missing)\n", s.installPath)))

	if s.error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("  [FAIL] " + s.error))
		b.WriteString("\n")
	}

	return s.center(b.String())
}

func (s *Setup) viewComplete() string {
	var b strings.Builder

	// Success art
	successArt := `
    +------------------------------------------+
    |                                          |
    |          *** Setup Complete! ***         |
    |                                          |
    +------------------------------------------+
`
	b.WriteString(successStyle.Render(successArt))
	b.WriteString("\n")

	// Quick highlights
	highlights := `
  +-----------------------------------------------------+
  |  What you just got:                                 |
  |                                                     |
  |  * Midnight cutoff     Sessions end at 00:00 +09    |
  |  * One warning         A banner 5 minutes before    |
  |  * Session directory   See and revoke the others    |
  |  * Auth journal        Local SQLite audit trail     |
  |  * Remember-me         Encrypted store, no plain    |
  |  * Role guard          Admin and auditor views      |
  +-----------------------------------------------------+
`
	b.WriteString(dimStyle.Render(highlights))
	b.WriteString("\n")

	// Ship art
	ship := `
           |\
           | \
       ____|__\____
       \  o  o  o /
        \________/
`
	b.WriteString(lipgloss.NewStyle().Foreground(brandSecondary).Render(ship))
	b.WriteString("\n")

	// Three options with selection indicator
	b.WriteString("  Choose your next step:\n\n")

	rows := []struct {
		label string
		note  string
	}{
		{"Launch fleetwatch now", "<- Opens a new terminal at the sign-in form"},
		{"Show the quick tour", "<- Five tips, thirty seconds"},
		{"Close setup", "<- You can run 'fleetwatch' anytime"},
	}
	for idx, row := range rows {
		if idx == s.completeCursor {
			b.WriteString(selectedStyle.Render("  > " + row.label))
			b.WriteString(highlightStyle.Render("  " + row.note))
		} else {
			b.WriteString(unselectedStyle.Render("    " + row.label))
		}
		b.WriteString("\n\n")
	}

	// Navigation help
	b.WriteString(dimStyle.Render("  Up/Down or Tab to select  |  Enter to confirm"))
	b.WriteString("\n\n")

	// Config path
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Config: %s", filepath.Join(s.configDir, "config.toml"))))

	return s.center(b.String())
}

// center centers content on screen
func (s *Setup) center(content string) string {
	if s.width == 0 || s.height == 0 {
		return content
	}

	lines := strings.Split(content, "\n")
	height := len(lines)

	// Vertical centering
	topPadding := (s.height - height) / 3
	if topPadding < 0 {
		topPadding = 0
	}

	var b strings.Builder
	for j := 0; j < topPadding; j++ {
		b.WriteString("\n")
	}
	b.WriteString(content)

	return b.String()
}
