// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login_cmd.go - Sign-in command for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Signs in against the issuing authority and, with --remember, persists
// the credential in the encrypted store so later invocations (and the
// TUI) resume the session. The expiry the authority grants is nominal:
// the session additionally ends at the first UTC+9 midnight after the
// login instant, and that cutoff is anchored here at login time.
//
// Command: login
// Short:   Sign in and optionally store the credential
// Aliases: signin
//
// Examples:
//   fleetwatch login                        Prompt for username and password
//   fleetwatch login -u amorim              Prompt for password only
//   fleetwatch login -u amorim --remember   Persist for later invocations
//   fleetwatch login --no-remember          Ignore remember_default from config
//
// Flags:
//   -u, --username NAME   Username to sign in as
//   --remember            Persist the credential (30-day nominal expiry)
//   --no-remember         Do not persist even if configured to
//   --json                Output the session summary as JSON

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/credstore"
	"github.com/jeranaias/fleetwatch/internal/session"
	"github.com/jeranaias/fleetwatch/internal/storage"
)

// HandleLogin handles the "login" command.
func HandleLogin(args Args) error {
	cfg, err := loadRuntimeConfig(args)
	if err != nil {
		return err
	}

	username := args.Username
	if username == "" {
		if err := RequiresTTY("prompt for a username"); err != nil {
			return err
		}
		username = promptInput("Username: ")
	}
	if username == "" {
		return ErrMissingArgument("username", "fleetwatch login -u amorim")
	}

	if err := RequiresTTY("prompt for a password"); err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return NewValidationError("password", "", "must not be empty")
	}

	remember := cfg.Session.RememberDefault
	if args.Remember {
		remember = true
	}
	if args.NoRemember {
		remember = false
	}

	client := buildClient(cfg)
	mgr := session.NewManager(client)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(cfg))
	defer cancel()

	if err := mgr.Login(ctx, username, password, remember); err != nil {
		switch {
		case errors.Is(err, api.ErrInvalidCredentials):
			return errors.New("login failed: invalid username or password")
		case errors.Is(err, api.ErrAccountLocked):
			return errors.New("login failed: account is locked; wait for the lockout window to pass")
		case errors.Is(err, api.ErrNetwork):
			return WrapError(err, "login failed: authority unreachable")
		default:
			return WrapError(err, "login failed")
		}
	}

	snap := mgr.Snapshot()

	// Persist only a remembered credential; a transient login leaves no
	// local trace beyond this process.
	persisted := false
	if cred, ok := mgr.ExportCredentials(); ok {
		store, serr := credstore.NewStore()
		if serr == nil {
			serr = store.Save(cred)
		}
		if serr != nil {
			fmt.Printf("%s credential not persisted: %v\n", WarningStyle.Render("[WARN]"), serr)
		} else {
			persisted = true
		}
	}

	if journal, jerr := openJournal(cfg); jerr == nil && journal != nil {
		defer journal.Close()
		appendJournal(journal, storage.Event{
			Type:          storage.EventLogin,
			PrincipalID:   snap.Principal.ID,
			Username:      snap.Principal.Username,
			Role:          string(snap.Principal.Role),
			SessionSuffix: storage.TokenSuffix(mgr.CurrentToken()),
			Detail:        "cli login",
		})
	}

	if args.JSON {
		return NewJSONResponse("login", LoginData{
			Username:  snap.Principal.Username,
			Role:      string(snap.Principal.Role),
			ExpiresAt: snap.ExpiresAt,
			CutoffAt:  snap.CutoffAt,
			Remember:  snap.Remember,
			Persisted: persisted,
		}).Print()
	}

	fmt.Println()
	fmt.Printf("%s signed in as %s (%s)\n",
		SuccessStyle.Render("[OK]"), snap.Principal.Username, snap.Principal.Role)
	fmt.Printf("%s %s\n", RenderLabel("Session expires"),
		session.FormatCountdown(snap.SecondsUntilExpiry))
	fmt.Printf("%s %s (all sessions end at UTC+9 midnight)\n", RenderLabel("Daily cutoff in"),
		session.FormatCountdown(snap.SecondsUntilMidnight))

	switch {
	case persisted:
		fmt.Printf("%s credential stored; `fleetwatch` and `fleetwatch sessions` will reuse it\n",
			DimStyle.Render("note:"))
	case remember:
		// remember requested but the store failed; warned above
	default:
		fmt.Printf("%s credential not persisted (use --remember to keep it)\n",
			DimStyle.Render("note:"))
	}
	fmt.Println()

	return nil
}
