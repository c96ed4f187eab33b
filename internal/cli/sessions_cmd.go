// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Session directory CLI commands for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Lists the signed-in principal's active sessions across devices and
// revokes the ones that shouldn't be there. The session this client
// holds is marked "current" and revoking it is refused locally before
// any network call; ending the current session is what logout is for.
//
// Command: sessions [subcommand]
// Short:   List or revoke the principal's active sessions
// Aliases: session
//
// Subcommands:
//   list (default)      List active sessions, newest activity first
//   revoke <n|suffix>   Revoke by row number or token suffix
//
// Examples:
//   fleetwatch sessions                     List active sessions
//   fleetwatch sessions list --json         List for scripting
//   fleetwatch sessions revoke 2            Revoke the second listed session
//   fleetwatch sessions revoke ab12cd34     Revoke by token suffix
//
// Flags:
//   --json              Output in JSON format
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/storage"
	"github.com/jeranaias/fleetwatch/internal/util"
)

// HandleSessions handles the "sessions" command with its subcommands.
func HandleSessions(args Args) error {
	switch args.Subcommand {
	case "", "list", "ls", "l":
		return handleSessionsList(args)
	case "revoke", "rm":
		return handleSessionsRevoke(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"unknown sessions subcommand", "fleetwatch sessions [list|revoke <n>]")
	}
}

// =============================================================================
// LIST
// =============================================================================

func handleSessionsList(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	client := buildClient(cfg)
	mgr, err := restoreSession(client)
	if err != nil {
		return err
	}

	dir := session.NewDirectory(client, mgr)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
	defer cancel()

	rows, err := dir.List(ctx)
	if err != nil {
		return NewCommandError("sessions", "list", "directory fetch failed", err)
	}

	if args.JSON {
		return NewJSONResponse("sessions", sessionListData(rows)).Print()
	}

	printSessionTable(mgr.Snapshot().Principal.Username, rows)
	return nil
}

// sessionListData converts annotated directory rows to the JSON shape.
func sessionListData(rows []session.Annotated) SessionListData {
	out := SessionListData{
		Sessions: make([]SessionRow, 0, len(rows)),
		Count:    len(rows),
	}
	for i, row := range rows {
		out.Sessions = append(out.Sessions, SessionRow{
			Index:          i + 1,
			TokenSuffix:    storage.TokenSuffix(row.Token),
			Device:         row.Device,
			Address:        row.Address,
			CreatedAt:      row.CreatedAt,
			LastAccessedAt: row.LastAccessedAt,
			ExpiresAt:      row.ExpiresAt,
			Remember:       row.Remember,
			Current:        row.Current,
			ExpiringSoon:   row.ExpiringSoon,
		})
	}
	return out
}

// printSessionTable prints the human-readable session table.
func printSessionTable(username string, rows []session.Annotated) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Active Sessions") + DimStyle.Render("  "+username))

	if len(rows) == 0 {
		fmt.Println("No active sessions.")
		fmt.Println()
		return
	}

	fmt.Printf("%-4s %-22s %-16s %-12s %-10s %s\n",
		"#", "DEVICE", "ADDRESS", "LAST SEEN", "EXPIRES", "")
	fmt.Println(strings.Repeat("-", 78))

	for i, row := range rows {
		// Device strings are free text and may carry double-width
		// characters; pad by display width so columns stay aligned.
		device := util.PadWidth(util.TruncateWidth(row.Device, 20), 22)
		address := util.PadWidth(util.TruncateWidth(row.Address, 14), 16)

		label := row.Label()
		switch {
		case row.Current:
			label = HighlightStyle.Render(label)
		case row.ExpiringSoon:
			label = WarningStyle.Render(label)
		}

		fmt.Printf("%-4d %s %s %-12s %-10s %s\n",
			i+1,
			device,
			address,
			formatTimeAgo(row.LastAccessedAt),
			formatDuration(time.Until(row.ExpiresAt)),
			label,
		)
	}

	fmt.Println()
	fmt.Printf("%s revoke with `fleetwatch sessions revoke <n>`; the current session only ends via logout\n",
		DimStyle.Render("note:"))
	fmt.Println()
}

// =============================================================================
// REVOKE
// =============================================================================

func handleSessionsRevoke(args Args) error {
	if args.Target == "" {
		return ErrMissingArgument("session", "fleetwatch sessions revoke 2")
	}

	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	client := buildClient(cfg)
	mgr, err := restoreSession(client)
	if err != nil {
		return err
	}

	dir := session.NewDirectory(client, mgr)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
	defer cancel()

	rows, err := dir.List(ctx)
	if err != nil {
		return NewCommandError("sessions", "revoke", "directory fetch failed", err)
	}

	target, err := resolveSessionTarget(rows, args.Target)
	if err != nil {
		return err
	}

	remaining, err := dir.Revoke(ctx, target.Token)
	if err != nil {
		if errors.Is(err, api.ErrForbidden) && target.Current {
			return errors.New("refusing to revoke the session you are signed in with; use `fleetwatch logout`")
		}
		return NewCommandError("sessions", "revoke", "revocation failed", err)
	}

	snap := mgr.Snapshot()
	if journal, jerr := openJournal(cfg); jerr == nil && journal != nil {
		defer journal.Close()
		appendJournal(journal, storage.Event{
			Type:          storage.EventRevoke,
			PrincipalID:   snap.Principal.ID,
			Username:      snap.Principal.Username,
			Role:          string(snap.Principal.Role),
			SessionSuffix: storage.TokenSuffix(target.Token),
			Detail:        "cli revoke: " + target.Device,
		})
	}

	if args.JSON {
		return NewJSONResponse("sessions", sessionListData(remaining)).Print()
	}

	fmt.Printf("%s revoked session on %s (%d remaining)\n",
		SuccessStyle.Render("[OK]"), target.Device, len(remaining))
	return nil
}

// resolveSessionTarget resolves a user-supplied target to a directory row.
// Numeric targets are 1-based row numbers from the list output; anything
// else matches against the token suffix shown in the listing. A suffix
// matching more than one session is rejected rather than guessed at.
func resolveSessionTarget(rows []session.Annotated, target string) (session.Annotated, error) {
	if n, err := strconv.Atoi(target); err == nil {
		if n < 1 || n > len(rows) {
			return session.Annotated{}, NewNotFoundError("session",
				fmt.Sprintf("row %d (have %d)", n, len(rows)))
		}
		return rows[n-1], nil
	}

	var matches []session.Annotated
	for _, row := range rows {
		if strings.HasSuffix(row.Token, target) {
			matches = append(matches, row)
		}
	}
	switch len(matches) {
	case 0:
		return session.Annotated{}, NewNotFoundError("session", target)
	case 1:
		return matches[0], nil
	default:
		return session.Annotated{}, NewValidationError("session", target,
			"suffix matches more than one session; use the row number")
	}
}
