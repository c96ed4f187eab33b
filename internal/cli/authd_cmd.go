// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// authd_cmd.go - Development issuing-authority command for fleetwatch.
//
// CLI: Comprehensive help and examples for all commands
//
// Runs the in-memory dev authority so the client can be exercised
// without fleet infrastructure. State lives in memory and the demo
// roster is printed at startup; this is a development stub, not a
// deployable service.
//
// Command: authd
// Short:   Run the local development authority
// Aliases: authority
//
// Examples:
//   fleetwatch authd
//   fleetwatch authd --port 9000
//   fleetwatch authd --ttl 120        # 2-minute sessions, good for expiry demos
//
// Flags:
//   --port, -p <n>   Listen port (default: 8790)
//   --ttl <secs>     Issued-session lifetime in seconds

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/fleetwatch/internal/authority"
)

// HandleAuthd handles the "authd" command. Blocks until interrupted.
func HandleAuthd(args Args) error {
	port := authority.DefaultPort
	if args.Port > 0 {
		port = args.Port
	}
	if port < 1 || port > 65535 {
		return NewValidationErrorWithExample("port", fmt.Sprintf("%d", args.Port),
			"port must be between 1 and 65535", "fleetwatch authd --port 8790")
	}

	srv := authority.NewServer(port)
	if args.TTLSecs > 0 {
		srv = srv.WithSessionTTL(time.Duration(args.TTLSecs) * time.Second)
	}

	// Graceful shutdown on Ctrl+C / SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nshutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		}
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapError(err, "authority failed")
	}
	return nil
}
