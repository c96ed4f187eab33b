// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// authority.go - HTTP server for the dev issuing authority.
package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultPort is the port the authority listens on when none is given.
	DefaultPort = 8790

	// MaxRequestBodySize caps request bodies. Login payloads are tiny;
	// anything near this limit is malformed or hostile.
	MaxRequestBodySize = 64 * 1024

	// DefaultSessionTTL is the nominal session lifetime. Actual expiries
	// are always capped at the next UTC+9 midnight.
	DefaultSessionTTL = 8 * time.Hour
)

// =============================================================================
// STATS
// =============================================================================

// Stats tracks authority usage counters. Counter fields use atomic
// operations; StartTime is set once at construction.
type Stats struct {
	TotalRequests int64
	Logins        int64
	FailedLogins  int64
	Refreshes     int64
	Revocations   int64
	StartTime     time.Time
}

// NewStats creates a Stats with the start time set to now.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		TotalRequests: atomic.LoadInt64(&s.TotalRequests),
		Logins:        atomic.LoadInt64(&s.Logins),
		FailedLogins:  atomic.LoadInt64(&s.FailedLogins),
		Refreshes:     atomic.LoadInt64(&s.Refreshes),
		Revocations:   atomic.LoadInt64(&s.Revocations),
		StartTime:     s.StartTime,
	}
}

// Uptime returns how long the authority has been running.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// =============================================================================
// SERVER
// =============================================================================

// Server is the dev authority's HTTP server.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	registry *Registry
	lockout  *LockoutManager
	signer   *TokenSigner
	limiter  *IPRateLimiter
	stats    *Stats
	clock    func() time.Time
	log      zerolog.Logger
}

// NewServer creates a Server on the given port. Port 0 selects the
// default (8790). The signing key is generated fresh, so every start
// invalidates previously issued tokens.
func NewServer(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}
	clock := time.Now
	signer, err := NewTokenSigner(nil, clock)
	if err != nil {
		// Random key generation only fails when the system entropy
		// source is broken; nothing sensible can run in that state.
		panic(fmt.Sprintf("authority: %v", err))
	}

	s := &Server{
		port:     port,
		router:   http.NewServeMux(),
		registry: NewRegistry(clock),
		lockout:  NewLockoutManager(),
		signer:   signer,
		limiter:  DefaultRateLimiter(),
		stats:    NewStats(),
		clock:    clock,
		log:      logging.Component("authd"),
	}
	s.setupRoutes()
	return s
}

// WithClock sets the time source for the server, registry, lockout, and
// signer. Used by tests to pin the clock.
func (s *Server) WithClock(clock func() time.Time) *Server {
	if clock == nil {
		return s
	}
	s.clock = clock
	s.registry.clock = clock
	s.lockout.clock = clock
	s.signer.clock = clock
	return s
}

// WithRateLimiter replaces the per-IP rate limiter.
func (s *Server) WithRateLimiter(limiter *IPRateLimiter) *Server {
	if limiter != nil {
		s.limiter = limiter
	}
	return s
}

// WithSessionTTL overrides the nominal session lifetime.
func (s *Server) WithSessionTTL(ttl time.Duration) *Server {
	s.registry.SetSessionTTL(ttl)
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Registry exposes the session registry. Used by tests.
func (s *Server) Registry() *Registry {
	return s.registry
}

// =============================================================================
// ROUTES
// =============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /login", s.handleLogin)
	s.router.HandleFunc("POST /logout", s.handleLogout)
	s.router.HandleFunc("POST /refresh-session", s.handleRefresh)
	s.router.HandleFunc("GET /principals/{id}/sessions", s.handleListSessions)
	s.router.HandleFunc("DELETE /sessions/{token}", s.handleRevokeSession)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain. Exposed so
// tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&s.stats.TotalRequests, 1)
		s.router.ServeHTTP(w, r)
	})
	return Chain(
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
		RateLimitMiddleware(s.limiter, s.log),
	)(counted)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start runs the server until it fails or is shut down. Blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	printBanner(addr)
	s.log.Info().Str("addr", addr).Str("version", api.Version).Msg("authority started")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("authority shutting down")
	return s.server.Shutdown(ctx)
}

// printBanner prints the startup banner and the demo roster. The roster
// goes to stdout on purpose: this is a dev stub and the whole point is
// that you can log in to it.
func printBanner(addr string) {
	banner := figure.NewFigure("fleetwatch", "cybermedium", true)
	banner.Print()
	fmt.Println()
	fmt.Printf("  dev issuing authority v%s on http://%s\n", api.Version, addr)
	fmt.Println("  NOT FOR PRODUCTION - state is in-memory and credentials are public")
	fmt.Println()
	fmt.Println("  demo roster:")
	for _, seed := range SeedRoster() {
		state := ""
		if !seed.Active {
			state = "  (deactivated)"
		}
		fmt.Printf("    %-10s %-20s %s%s\n", seed.Username, seed.Password, seed.Role, state)
	}
	fmt.Println()
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError writes the error envelope the client's API layer expects:
// {"error": {"code": ..., "message": ...}}.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
