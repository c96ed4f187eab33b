// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the global structured logger.
//
// Two sinks, never both: the terminal UI owns stdout and stderr, so in
// TUI mode events go to a log file under the state directory; the plain
// CLI commands and the dev authority write human-readable console output
// to stderr. Token values never reach either sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// LogFileName is the rolling client log inside the state directory.
	LogFileName = "fleetwatch.log"

	// logFileMode keeps the log private to the operator. Entries carry
	// usernames and session metadata.
	logFileMode = 0600

	logDirMode = 0700
)

// =============================================================================
// SETUP
// =============================================================================

// Setup routes the global logger to stderr with console formatting.
// Used by one-shot CLI commands and the dev authority, where the
// terminal is ours to write to.
func Setup(level string) {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	l := zerolog.New(w).With().Timestamp().Logger()
	apply(l, level)
}

// SetupFile routes the global logger to a file inside stateDir. The
// interactive UI calls this before taking over the terminal; writing to
// stderr from under a raw-mode TUI scrambles the screen. The returned
// closer flushes the sink on exit.
func SetupFile(stateDir, level string) (io.Closer, error) {
	if err := os.MkdirAll(stateDir, logDirMode); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(stateDir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := zerolog.New(f).With().Timestamp().Logger()
	apply(l, level)
	return f, nil
}

// SetLevel adjusts the global threshold without re-routing the sink.
// The config watcher calls this when the file changes under a running
// client.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// Disable silences the global logger entirely. Tests use this.
func Disable() {
	apply(zerolog.Nop(), "")
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func apply(l zerolog.Logger, level string) {
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel maps a config string to a zerolog level. Unknown values
// fall back to info rather than failing startup.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with the subsystem name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// Debug starts a debug-level event on the global logger.
//
// You must call Msg on the returned event in order to send the event.
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info starts an info-level event on the global logger.
//
// You must call Msg on the returned event in order to send the event.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn starts a warn-level event on the global logger.
//
// You must call Msg on the returned event in order to send the event.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error starts an error-level event on the global logger.
//
// You must call Msg on the returned event in order to send the event.
func Error() *zerolog.Event {
	return log.Error()
}
