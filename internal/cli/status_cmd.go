// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status_cmd.go - Status display command for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Shows the stored session (with both countdowns), whether the
// authority answers, and the state of the local journal. The authority
// probe is a read-only directory fetch and only happens when a stored
// session exists; status never refreshes or otherwise extends the
// session as a side effect.
//
// Command: status
// Short:   Show session and authority status
// Aliases: s
//
// Examples:
//   fleetwatch status           Human-readable status
//   fleetwatch status --json    For scripting and fleet dashboards

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/fleetwatch/internal/config"
	"github.com/jeranaias/fleetwatch/internal/session"
)

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	data := collectStatus(cfg, args)

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	printStatus(data)
	return nil
}

// collectStatus gathers the status snapshot. Network touches are limited
// to one read-only session-directory fetch, and only when signed in.
func collectStatus(cfg *config.Config, args Args) StatusData {
	data := StatusData{
		Authority: StatusAuthorityInfo{URL: cfg.Authority.URL},
		Journal:   StatusJournalInfo{Enabled: cfg.Journal.Enabled},
	}

	client := buildClient(cfg)
	mgr, err := restoreSession(client)
	if err == nil {
		snap := mgr.Snapshot()
		data.Session = StatusSessionInfo{
			SignedIn:             true,
			Username:             snap.Principal.Username,
			Role:                 string(snap.Principal.Role),
			Remember:             snap.Remember,
			ExpiresAt:            snap.ExpiresAt,
			CutoffAt:             snap.CutoffAt,
			SecondsUntilExpiry:   snap.SecondsUntilExpiry,
			SecondsUntilMidnight: snap.SecondsUntilMidnight,
		}

		dir := session.NewDirectory(client, mgr)
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
		defer cancel()

		rows, lerr := dir.List(ctx)
		data.Authority.Checked = true
		data.Authority.Reachable = lerr == nil
		if lerr == nil {
			data.Session.ActiveSessions = len(rows)
		}
	} else if !errors.Is(err, ErrNoStoredSession) && args.Verbose {
		StderrPrintln("credential store: " + err.Error())
	}

	if journal, jerr := openJournal(cfg); jerr == nil && journal != nil {
		defer journal.Close()
		data.Journal.Path = journal.Path()
		if n, cerr := journal.Count(context.Background()); cerr == nil {
			data.Journal.Events = n
		}
	}

	return data
}

// printStatus prints the human-readable status report.
func printStatus(data StatusData) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Fleetwatch Status"))

	fmt.Println(SectionStyle.Render("Session"))
	if data.Session.SignedIn {
		fmt.Printf("%s %s signed in\n", RenderLabel("  Status"), RenderStatus("ok"))
		fmt.Printf("%s %s (%s)\n", RenderLabel("  Principal"),
			data.Session.Username, data.Session.Role)
		fmt.Printf("%s %s\n", RenderLabel("  Expires in"),
			session.FormatCountdown(data.Session.SecondsUntilExpiry))
		fmt.Printf("%s %s %s\n", RenderLabel("  Daily cutoff in"),
			session.FormatCountdown(data.Session.SecondsUntilMidnight),
			DimStyle.Render("(UTC+9 midnight)"))
		remembered := "no"
		if data.Session.Remember {
			remembered = "yes"
		}
		fmt.Printf("%s %s\n", RenderLabel("  Remembered"), remembered)
		if data.Session.ActiveSessions > 0 {
			fmt.Printf("%s %d\n", RenderLabel("  Active sessions"), data.Session.ActiveSessions)
		}
	} else {
		fmt.Printf("%s signed out\n", RenderLabel("  Status"))
	}

	fmt.Println(SectionStyle.Render("Authority"))
	fmt.Printf("%s %s\n", RenderLabel("  URL"), data.Authority.URL)
	switch {
	case !data.Authority.Checked:
		fmt.Printf("%s %s\n", RenderLabel("  Reachable"),
			DimStyle.Render("not checked (no stored session)"))
	case data.Authority.Reachable:
		fmt.Printf("%s %s\n", RenderLabel("  Reachable"), RenderStatus("ok"))
	default:
		fmt.Printf("%s %s\n", RenderLabel("  Reachable"), RenderStatus("fail"))
	}

	fmt.Println(SectionStyle.Render("Journal"))
	if data.Journal.Enabled {
		fmt.Printf("%s %s\n", RenderLabel("  Path"), data.Journal.Path)
		fmt.Printf("%s %d\n", RenderLabel("  Events"), data.Journal.Events)
	} else {
		fmt.Printf("%s disabled\n", RenderLabel("  State"))
	}
	fmt.Println()
}
