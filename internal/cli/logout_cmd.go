// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// logout_cmd.go - Sign-out command for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Invalidates the stored session against the authority (best-effort:
// an unreachable authority never blocks sign-out) and always deletes
// the local credential. Running it while signed out is a no-op, not an
// error.
//
// Command: logout
// Short:   Invalidate and clear the stored session
// Aliases: signout

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/fleetwatch/internal/credstore"
	"github.com/jeranaias/fleetwatch/internal/storage"
)

// HandleLogout handles the "logout" command.
func HandleLogout(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	client := buildClient(cfg)
	mgr, err := restoreSession(client)
	if err != nil {
		if errors.Is(err, ErrNoStoredSession) {
			if !args.Quiet {
				fmt.Println("not signed in; nothing to do")
			}
			return nil
		}
		return err
	}

	snap := mgr.Snapshot()
	suffix := storage.TokenSuffix(mgr.CurrentToken())

	// Remote invalidation is bounded and best-effort; local state clears
	// regardless of the outcome.
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
	defer cancel()
	mgr.Logout(ctx)

	store, serr := credstore.NewStore()
	if serr == nil {
		if derr := store.Delete(); derr != nil {
			fmt.Printf("%s stored credential not removed: %v\n", WarningStyle.Render("[WARN]"), derr)
		}
	}

	if journal, jerr := openJournal(cfg); jerr == nil && journal != nil {
		defer journal.Close()
		appendJournal(journal, storage.Event{
			Type:          storage.EventLogout,
			PrincipalID:   snap.Principal.ID,
			Username:      snap.Principal.Username,
			Role:          string(snap.Principal.Role),
			SessionSuffix: suffix,
			Detail:        "cli logout",
		})
	}

	if args.JSON {
		return NewJSONResponse("logout", map[string]string{
			"username": snap.Principal.Username,
		}).Print()
	}

	if !args.Quiet {
		fmt.Printf("%s signed out %s\n", SuccessStyle.Render("[OK]"), snap.Principal.Username)
	}
	return nil
}
