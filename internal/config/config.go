// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

// SECURITY: no credential material is ever written to the config file.
// Tokens live in the encrypted credential store; this file only carries
// connection and presentation settings.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/fleetwatch/internal/util"
)

// Config represents the complete fleetwatch configuration.
type Config struct {
	// Version of the configuration schema
	Version string `toml:"version" json:"version"`

	// Authority holds issuing-authority connection settings
	Authority AuthorityConfig `toml:"authority" json:"authority"`

	// Session holds lifecycle tuning
	Session SessionConfig `toml:"session" json:"session"`

	// Journal holds local event journal settings
	Journal JournalConfig `toml:"journal" json:"journal"`

	// Logging holds log output settings
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// UI holds presentation settings
	UI UIConfig `toml:"ui" json:"ui"`
}

// AuthorityConfig contains issuing-authority connection settings.
type AuthorityConfig struct {
	// URL is the base URL of the issuing authority
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the per-request timeout in seconds
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the retry budget for idempotent requests.
	// Login and revocation are never retried internally.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// SessionConfig contains session lifecycle tuning.
//
// The warning threshold (five minutes) and the daily cutoff are site
// policy, not preferences, so neither appears here.
type SessionConfig struct {
	// PollIntervalSecs is the cadence of the background session
	// directory poll in seconds
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
	// RememberDefault pre-selects the remember-me box on the login form
	RememberDefault bool `toml:"remember_default" json:"remember_default"`
	// RestoreOnStartup resumes a remembered session from the credential
	// store when the client starts
	RestoreOnStartup bool `toml:"restore_on_startup" json:"restore_on_startup"`
}

// JournalConfig contains local event journal settings.
type JournalConfig struct {
	// Enabled controls whether lifecycle events are journaled
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the journal database path (empty = ~/.fleetwatch/journal.db)
	Path string `toml:"path" json:"path"`
	// RetentionDays is how long journal entries are kept
	RetentionDays int `toml:"retention_days" json:"retention_days"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error, off
	Level string `toml:"level" json:"level"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowReferenceClock displays the reference-zone wall clock in the
	// status bar next to the countdowns
	ShowReferenceClock bool `toml:"show_reference_clock" json:"show_reference_clock"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Authority: AuthorityConfig{
			URL:         "http://127.0.0.1:8790",
			TimeoutSecs: 15,
			MaxRetries:  3,
		},

		Session: SessionConfig{
			PollIntervalSecs: 45,
			RememberDefault:  false,
			RestoreOnStartup: true,
		},

		Journal: JournalConfig{
			Enabled:       true,
			Path:          "",
			RetentionDays: 30,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		UI: UIConfig{
			Theme:              "dark",
			CompactMode:        false,
			ShowReferenceClock: true,
		},
	}
}

// ConfigDir returns the fleetwatch state directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fleetwatch"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the state directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// tightenPermissions narrows a config file to owner read/write. The file
// holds the authority address for this kiosk, which operators treat as
// deployment-internal even though it carries no secrets.
func tightenPermissions(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm() == 0600 {
		return
	}
	if err := os.Chmod(path, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not tighten permissions on %s: %v\n", path, err)
	}
}

// Load resolves the configuration from the standard locations: the
// FLEETWATCH_CONFIG override if set, otherwise the TOML then JSON file
// under the state directory, otherwise built-in defaults. Environment
// overrides and validation apply in every case.
func Load() (*Config, error) {
	if override := os.Getenv("FLEETWATCH_CONFIG"); override != "" {
		return LoadFromPath(override)
	}

	dir, err := ConfigDir()
	if err != nil {
		// No home directory: run on defaults.
		return finalize(Default())
	}

	for _, name := range []string{"config.toml", "config.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFromPath(path)
	}

	return finalize(Default())
}

// LoadFromPath loads configuration from a specific file, picking the
// decoder by extension (anything not named *.json is treated as TOML).
func LoadFromPath(path string) (*Config, error) {
	tightenPermissions(path)

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return finalize(cfg)
}

// finalize applies env overrides, normalization, defaults and validation.
func finalize(cfg *Config) (*Config, error) {
	cfg.applyEnvOverrides()
	cfg.normalize()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// normalize cleans up values accepted for compatibility with earlier
// builds and sloppy hand-edits.
func (c *Config) normalize() {
	// Path joins in the client assume no trailing slash.
	c.Authority.URL = strings.TrimRight(c.Authority.URL, "/")

	// Early builds shipped "default" as a theme name.
	if strings.EqualFold(c.UI.Theme, "default") {
		c.UI.Theme = "dark"
	}
}

// fillDefaults replaces zero values with defaults so a partial config
// file only has to name the settings it changes.
func (c *Config) fillDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Authority.URL == "" {
		c.Authority.URL = d.Authority.URL
	}
	if c.Authority.TimeoutSecs == 0 {
		c.Authority.TimeoutSecs = d.Authority.TimeoutSecs
	}
	if c.Authority.MaxRetries == 0 {
		c.Authority.MaxRetries = d.Authority.MaxRetries
	}
	if c.Session.PollIntervalSecs == 0 {
		c.Session.PollIntervalSecs = d.Session.PollIntervalSecs
	}
	if c.Journal.RetentionDays == 0 {
		c.Journal.RetentionDays = d.Journal.RetentionDays
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// applyEnvOverrides layers environment variables over the file:
//
//	FLEETWATCH_AUTHORITY_URL  authority.url
//	FLEETWATCH_TIMEOUT_SECS   authority.timeout_secs
//	FLEETWATCH_POLL_SECS      session.poll_interval_secs
//	FLEETWATCH_NO_RESTORE     "1"/"true" disables startup restore
//	FLEETWATCH_LOG_LEVEL      logging.level
//	FLEETWATCH_THEME          ui.theme
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("FLEETWATCH_AUTHORITY_URL"); u != "" {
		c.Authority.URL = u
	}
	if s := os.Getenv("FLEETWATCH_TIMEOUT_SECS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			c.Authority.TimeoutSecs = n
		}
	}
	if s := os.Getenv("FLEETWATCH_POLL_SECS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			c.Session.PollIntervalSecs = n
		}
	}
	if s := os.Getenv("FLEETWATCH_NO_RESTORE"); s == "1" || strings.EqualFold(s, "true") {
		c.Session.RestoreOnStartup = false
	}
	if level := os.Getenv("FLEETWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if theme := os.Getenv("FLEETWATCH_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// Save writes the configuration to the default TOML file.
// RELIABILITY: atomic write with fsync, so a crash mid-save leaves the
// previous file intact rather than a truncated one.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# fleetwatch configuration file\n")
	buf.WriteString("# edit with care, or use: fleetwatch config set <key> <value>\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ValidationError reports one rejected configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every rejected value so an operator fixing a
// hand-edited file sees all problems in one pass.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidateErrors) add(field, format string, args ...interface{}) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks every configuration value against its allowed range.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Authority.URL == "" {
		errs.add("authority.url", "authority URL is required")
	} else if u, err := url.Parse(c.Authority.URL); err != nil {
		errs.add("authority.url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.add("authority.url", "scheme must be http or https, got %q", u.Scheme)
	}

	if c.Authority.TimeoutSecs < 1 || c.Authority.TimeoutSecs > 120 {
		errs.add("authority.timeout_secs", "must be 1-120 seconds, got %d", c.Authority.TimeoutSecs)
	}
	if c.Authority.MaxRetries < 0 || c.Authority.MaxRetries > 10 {
		errs.add("authority.max_retries", "must be 0-10, got %d", c.Authority.MaxRetries)
	}

	// The floor keeps a fleet of dashboards from hammering the authority;
	// the directory poll is a convenience, not a liveness check.
	if c.Session.PollIntervalSecs < 15 || c.Session.PollIntervalSecs > 600 {
		errs.add("session.poll_interval_secs", "must be 15-600 seconds, got %d", c.Session.PollIntervalSecs)
	}

	if c.Journal.RetentionDays < 1 || c.Journal.RetentionDays > 365 {
		errs.add("journal.retention_days", "must be 1-365 days, got %d", c.Journal.RetentionDays)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled", "off":
	default:
		errs.add("logging.level", "invalid level %q, must be one of: trace, debug, info, warn, error, off", c.Logging.Level)
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs.add("ui.theme", "invalid theme %q, must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// setting binds a dot-notation key to its field, for `config get/set`.
// The registry is the single source of truth for which keys exist; a
// field without an entry here is not operator-settable.
type setting struct {
	key string
	get func(*Config) interface{}
	set func(*Config, string) error
}

var settings = []setting{
	{"version",
		func(c *Config) interface{} { return c.Version },
		strSetter(func(c *Config) *string { return &c.Version })},
	{"authority.url",
		func(c *Config) interface{} { return c.Authority.URL },
		strSetter(func(c *Config) *string { return &c.Authority.URL })},
	{"authority.timeout_secs",
		func(c *Config) interface{} { return c.Authority.TimeoutSecs },
		intSetter(func(c *Config) *int { return &c.Authority.TimeoutSecs })},
	{"authority.max_retries",
		func(c *Config) interface{} { return c.Authority.MaxRetries },
		intSetter(func(c *Config) *int { return &c.Authority.MaxRetries })},
	{"session.poll_interval_secs",
		func(c *Config) interface{} { return c.Session.PollIntervalSecs },
		intSetter(func(c *Config) *int { return &c.Session.PollIntervalSecs })},
	{"session.remember_default",
		func(c *Config) interface{} { return c.Session.RememberDefault },
		boolSetter(func(c *Config) *bool { return &c.Session.RememberDefault })},
	{"session.restore_on_startup",
		func(c *Config) interface{} { return c.Session.RestoreOnStartup },
		boolSetter(func(c *Config) *bool { return &c.Session.RestoreOnStartup })},
	{"journal.enabled",
		func(c *Config) interface{} { return c.Journal.Enabled },
		boolSetter(func(c *Config) *bool { return &c.Journal.Enabled })},
	{"journal.path",
		func(c *Config) interface{} { return c.Journal.Path },
		strSetter(func(c *Config) *string { return &c.Journal.Path })},
	{"journal.retention_days",
		func(c *Config) interface{} { return c.Journal.RetentionDays },
		intSetter(func(c *Config) *int { return &c.Journal.RetentionDays })},
	{"logging.level",
		func(c *Config) interface{} { return c.Logging.Level },
		strSetter(func(c *Config) *string { return &c.Logging.Level })},
	{"ui.theme",
		func(c *Config) interface{} { return c.UI.Theme },
		strSetter(func(c *Config) *string { return &c.UI.Theme })},
	{"ui.compact_mode",
		func(c *Config) interface{} { return c.UI.CompactMode },
		boolSetter(func(c *Config) *bool { return &c.UI.CompactMode })},
	{"ui.show_reference_clock",
		func(c *Config) interface{} { return c.UI.ShowReferenceClock },
		boolSetter(func(c *Config) *bool { return &c.UI.ShowReferenceClock })},
}

func strSetter(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", v)
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*field(c) = true
		case "0", "false", "no", "off":
			*field(c) = false
		default:
			return fmt.Errorf("expected a boolean, got %q", v)
		}
		return nil
	}
}

// Get retrieves a configuration value by dot-notation key.
func (c *Config) Get(key string) (interface{}, error) {
	for _, s := range settings {
		if s.key == key {
			return s.get(c), nil
		}
	}
	return nil, fmt.Errorf("unknown config key %q", key)
}

// Set assigns a configuration value by dot-notation key, converting the
// string form to the field's type. The caller is expected to Validate
// before saving.
func (c *Config) Set(key, value string) error {
	for _, s := range settings {
		if s.key == key {
			return s.set(c, value)
		}
	}
	return fmt.Errorf("unknown config key %q", key)
}

// GetAllKeys returns every operator-settable key in display order.
func GetAllKeys() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	return keys
}
