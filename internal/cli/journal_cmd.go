// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// journal_cmd.go - Local auth-event journal commands for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// The journal is a local SQLite log of session lifecycle events: logins,
// logouts, refreshes, expiry warnings, forced logouts, revocations and
// restores. It records token suffixes only, never full tokens. Text
// output shows local time; the JSON rows additionally carry the
// reference-zone (UTC+9) timestamp each event was stamped with.
//
// Command: journal [subcommand]
// Short:   Inspect, export or prune the local auth-event journal
// Aliases: events
//
// Subcommands:
//   show (default)   List recent events, newest first
//   export           Write events to a Markdown, HTML or JSON report
//   prune            Delete events past the retention window
//   path             Show the journal file path
//
// Examples:
//   fleetwatch journal
//   fleetwatch journal show --limit 50
//   fleetwatch journal show --type forced_logout
//   fleetwatch journal show --days 7 --json
//   fleetwatch journal export --format html
//   fleetwatch journal export --format md --out /tmp/audit.md
//   fleetwatch journal prune --confirm
//   fleetwatch journal prune --days 30 --confirm
//
// Flags:
//   --limit, -n <n>   Maximum events to show (default: 20; export: 1000)
//   --type, -t <t>    Filter by event type
//   --days <n>        show/export: only events from the last n days
//                     prune: override the configured retention window
//   --format, -f <f>  export: md, html or json (default: md)
//   --out, -o <path>  export: exact output file (default: generated name)
//   --open            export: open the report when written
//   --confirm         Required for prune
//   --json            Output in JSON format

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/fleetwatch/internal/export"
	"github.com/jeranaias/fleetwatch/internal/storage"
)

// eventTypeStyles maps journal event types to display styles.
var eventTypeStyles = map[storage.EventType]lipgloss.Style{
	storage.EventLogin:        SuccessStyle,
	storage.EventLogout:       DimStyle,
	storage.EventRefresh:      ValueStyle,
	storage.EventWarning:      WarningStyle,
	storage.EventForcedLogout: ErrorStyle,
	storage.EventRevoke:       WarningStyle,
	storage.EventRestore:      ValueStyle,
}

// HandleJournal handles the "journal" command with its subcommands.
func HandleJournal(args Args) error {
	switch args.Subcommand {
	case "", "show", "list", "ls":
		return handleJournalShow(args)
	case "export":
		return handleJournalExport(args)
	case "prune":
		return handleJournalPrune(args)
	case "path":
		return handleJournalPath(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"unknown journal subcommand", "fleetwatch journal [show|export|prune|path]")
	}
}

func handleJournalShow(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return WrapError(err, "failed to open journal")
	}
	if journal == nil {
		return journalDisabled(args)
	}
	defer journal.Close()

	filter := storage.Filter{Limit: args.Limit}
	if args.EventType != "" {
		et := storage.EventType(strings.ToLower(args.EventType))
		if !storage.ValidEventType(et) {
			return NewValidationErrorWithExample("type", args.EventType,
				"unknown event type",
				"login, logout, refresh, warning, forced_logout, revoke, restore")
		}
		filter.Type = et
	}
	if args.Days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -args.Days)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := journal.List(ctx, filter)
	if err != nil {
		return WrapError(err, "failed to read journal")
	}

	if args.JSON {
		return NewJSONResponse("journal", journalListData(events)).Print()
	}

	printJournalEvents(events, filter, journal.Path())
	return nil
}

// journalListData converts journal events to the JSON output shape.
func journalListData(events []storage.Event) JournalListData {
	rows := make([]JournalRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, JournalRow{
			OccurredAt:    ev.OccurredAt,
			OccurredAtRef: ev.OccurredAtRef,
			Type:          string(ev.Type),
			Username:      ev.Username,
			SessionSuffix: ev.SessionSuffix,
			Detail:        ev.Detail,
		})
	}
	return JournalListData{Events: rows, Count: len(rows)}
}

func printJournalEvents(events []storage.Event, filter storage.Filter, path string) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Auth Journal"))
	fmt.Println()

	if len(events) == 0 {
		fmt.Println(DimStyle.Render("No events recorded."))
		fmt.Println()
		return
	}

	var filterInfo []string
	if filter.Type != "" {
		filterInfo = append(filterInfo, fmt.Sprintf("type=%s", filter.Type))
	}
	if !filter.Since.IsZero() {
		filterInfo = append(filterInfo, fmt.Sprintf("since=%s", filter.Since.Format("2006-01-02")))
	}
	if len(filterInfo) > 0 {
		fmt.Printf("Filters: %s\n", DimStyle.Render(strings.Join(filterInfo, ", ")))
		fmt.Println()
	}

	for _, ev := range events {
		printJournalEvent(ev)
	}

	fmt.Println()
	fmt.Printf("Showing %d events from: %s\n", len(events), DimStyle.Render(path))
	fmt.Println()
}

// printJournalEvent prints one event line: local time, type, user, the
// session token suffix, and any detail text.
func printJournalEvent(ev storage.Event) {
	typeStyle, ok := eventTypeStyles[ev.Type]
	if !ok {
		typeStyle = ValueStyle
	}

	timestamp := ev.OccurredAt.Local().Format("2006-01-02 15:04:05")

	fmt.Printf("%s  %s  %s",
		DimStyle.Render(timestamp),
		typeStyle.Render(fmt.Sprintf("%-14s", ev.Type)),
		fmt.Sprintf("%-12s", ev.Username))

	if ev.SessionSuffix != "" {
		fmt.Printf("  %s", DimStyle.Render("…"+ev.SessionSuffix))
	}
	if ev.Detail != "" {
		fmt.Printf("  %s", DimStyle.Render(ev.Detail))
	}
	fmt.Println()
}

// handleJournalExport writes the selected events to a report file. The
// same filters as show apply; the default window is wider because a
// report usually wants history, not a screenful.
func handleJournalExport(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return WrapError(err, "failed to open journal")
	}
	if journal == nil {
		return journalDisabled(args)
	}
	defer journal.Close()

	filter := storage.Filter{Limit: args.Limit}
	if args.EventType != "" {
		et := storage.EventType(strings.ToLower(args.EventType))
		if !storage.ValidEventType(et) {
			return NewValidationErrorWithExample("type", args.EventType,
				"unknown event type",
				"login, logout, refresh, warning, forced_logout, revoke, restore")
		}
		filter.Type = et
	}
	if args.Days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -args.Days)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := journal.List(ctx, filter)
	if err != nil {
		return WrapError(err, "failed to read journal")
	}
	if len(events) == 0 {
		return NewValidationErrorWithExample("events", "0",
			"nothing matched the filters; nothing to export",
			"fleetwatch journal export --days 30")
	}

	format := args.Format
	if format == "" {
		format = "md"
	}

	opts := export.DefaultOptions()
	opts.OutputPath = args.OutPath
	opts.OpenAfterExport = args.Open

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return NewValidationErrorWithExample("format", format,
			"unsupported export format", "md, html or json")
	}

	meta := export.Meta{
		Source:      journal.Path(),
		GeneratedAt: time.Now(),
		Filters:     filterDescriptions(filter),
	}

	path, err := export.ExportToFile(events, meta, exporter, opts)
	if err != nil {
		return WrapError(err, "failed to export journal")
	}

	if args.JSON {
		return NewJSONResponse("journal", map[string]interface{}{
			"path":   path,
			"format": format,
			"events": len(events),
		}).Print()
	}

	fmt.Printf("%s exported %d events to %s\n",
		SuccessStyle.Render("[OK]"), len(events), path)
	return nil
}

// filterDescriptions renders a filter as the strings shown in report
// headers.
func filterDescriptions(filter storage.Filter) []string {
	var out []string
	if filter.Type != "" {
		out = append(out, fmt.Sprintf("type=%s", filter.Type))
	}
	if !filter.Since.IsZero() {
		out = append(out, fmt.Sprintf("since=%s", filter.Since.Format("2006-01-02")))
	}
	if filter.Limit > 0 {
		out = append(out, fmt.Sprintf("limit=%d", filter.Limit))
	}
	return out
}

func handleJournalPrune(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	journal, err := openJournal(cfg)
	if err != nil {
		return WrapError(err, "failed to open journal")
	}
	if journal == nil {
		return journalDisabled(args)
	}
	defer journal.Close()

	days := cfg.Journal.RetentionDays
	if args.Days > 0 {
		days = args.Days
	}
	if days <= 0 {
		return NewValidationErrorWithExample("days", fmt.Sprintf("%d", days),
			"retention window must be positive", "fleetwatch journal prune --days 30 --confirm")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !args.Confirm {
		total, _ := journal.Count(ctx)
		fmt.Println()
		fmt.Println(WarningStyle.Render("WARNING: Journal Pruning"))
		fmt.Println(strings.Repeat("-", 40))
		fmt.Println()
		fmt.Printf("  Path:      %s\n", journal.Path())
		fmt.Printf("  Events:    %d\n", total)
		fmt.Printf("  Retention: %d days\n", days)
		fmt.Println()
		fmt.Println(ErrorStyle.Render("Events older than the retention window will be deleted."))
		fmt.Println()
		fmt.Println("To proceed, run:")
		fmt.Printf("  fleetwatch journal prune --days %d --confirm\n", days)
		fmt.Println()
		return nil
	}

	removed, err := journal.Prune(ctx, days)
	if err != nil {
		return WrapError(err, "failed to prune journal")
	}

	if args.JSON {
		return NewJSONResponse("journal", map[string]interface{}{
			"pruned":         removed,
			"retention_days": days,
		}).Print()
	}

	fmt.Printf("%s pruned %d events older than %d days\n",
		SuccessStyle.Render("[OK]"), removed, days)
	return nil
}

func handleJournalPath(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	path := cfg.Journal.Path
	if path == "" {
		if p, perr := storage.DefaultJournalPath(); perr == nil {
			path = p
		}
	}

	if args.JSON {
		return NewJSONResponse("journal", map[string]string{"path": path}).Print()
	}

	fmt.Println(path)
	return nil
}

// journalDisabled reports the disabled state without failing the command.
func journalDisabled(args Args) error {
	if args.JSON {
		return NewJSONResponse("journal", map[string]interface{}{"enabled": false}).Print()
	}
	fmt.Println(DimStyle.Render("Journaling is disabled."))
	fmt.Println("Enable with:")
	fmt.Println("  fleetwatch config set journal.enabled true")
	return nil
}
