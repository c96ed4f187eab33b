// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Client-Id") == "" {
			t.Error("expected X-Client-Id header")
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected X-Request-Id header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"token": "tok-alpha",
			"refresh_token": "ref-alpha",
			"expires_in": 3600,
			"principal": {"id": "p-1", "username": "amaral", "role": "operator", "active": true}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), "amaral", "hunter2", false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token != "tok-alpha" {
		t.Errorf("Token = %q, want tok-alpha", resp.Token)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", resp.ExpiresIn)
	}
	if resp.Principal.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", resp.Principal.Role)
	}
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "invalid credentials",
			status: http.StatusUnauthorized,
			body:   `{"error": {"code": "invalid_credentials", "message": "bad password"}}`,
			want:   ErrInvalidCredentials,
		},
		{
			name:   "account locked",
			status: http.StatusLocked,
			body:   `{"error": {"code": "account_locked", "message": "locked for 15 minutes"}}`,
			want:   ErrAccountLocked,
		},
		{
			name:   "server error is transient",
			status: http.StatusInternalServerError,
			body:   `boom`,
			want:   ErrNetwork,
		},
		{
			name:   "throttled is transient",
			status: http.StatusTooManyRequests,
			body:   `{"error": {"code": "throttled", "message": "slow down"}}`,
			want:   ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL).WithMaxRetries(0)
			_, err := client.Login(context.Background(), "amaral", "wrong", false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Login error = %v, want %v", err, tt.want)
			}
		})
	}
}

// Login must never retry internally: a caller-visible failure after one
// attempt is the contract, the retry affordance belongs to the caller.
func TestLogin_NoInternalRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "amaral", "hunter2", false)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Login error = %v, want ErrNetwork", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("login attempts = %d, want 1", got)
	}
}

func TestLogin_NormalizesUsername(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"token": "t", "expires_in": 60, "principal": {"id": "p", "username": "u", "role": "operator", "active": true}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	// "é" typed as 'e' + combining acute accent; NFC composes it to one rune.
	if _, err := client.Login(context.Background(), "  josé  ", "pw", false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !strings.Contains(gotBody, `"username":"josé"`) && !strings.Contains(gotBody, "\"username\":\"josé\"") {
		t.Errorf("username not NFC-normalized/trimmed, body = %s", gotBody)
	}
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestRefreshSession_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"expires_in": 1800, "time_until_midnight_seconds": 7200, "dili_time": "2026-08-25T22:00:00+09:00", "should_warn": false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL).WithMaxRetries(3)
	resp, err := client.RefreshSession(context.Background(), "tok-alpha")
	if err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if resp.ExpiresIn != 1800 {
		t.Errorf("ExpiresIn = %d, want 1800", resp.ExpiresIn)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("refresh attempts = %d, want 3", got)
	}
}

func TestRefreshSession_ExpiredSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "session_expired", "message": "token no longer valid"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.RefreshSession(context.Background(), "tok-stale")
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("RefreshSession error = %v, want ErrSessionExpired", err)
	}
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestListSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/principals/p-1/sessions" {
			t.Errorf("path = %s, want /principals/p-1/sessions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-alpha" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"sessions": [
			{"token": "tok-alpha", "principal_id": "p-1", "active": true,
			 "created_at": "2026-08-25T09:00:00+09:00", "last_accessed_at": "2026-08-25T10:00:00+09:00",
			 "expires_at": "2026-08-25T18:00:00+09:00", "remember": false,
			 "device": "fleetwatch/0.3.0 (ops-laptop; linux/amd64)", "address": "10.0.3.17"},
			{"token": "tok-beta", "principal_id": "p-1", "active": true,
			 "created_at": "2026-08-24T08:00:00+09:00", "last_accessed_at": "2026-08-25T09:30:00+09:00",
			 "expires_at": "2026-09-20T08:00:00+09:00", "remember": true,
			 "device": "Mozilla/5.0 (Windows NT 10.0)", "address": "10.0.3.20"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sessions, err := client.ListSessions(context.Background(), "tok-alpha", "p-1")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len(sessions) = %d, want 2", len(sessions))
	}
	if sessions[1].Remember != true {
		t.Errorf("sessions[1].Remember = false, want true")
	}
}

func TestRevokeSession_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"expired bearer", http.StatusUnauthorized, ErrSessionExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete {
					t.Errorf("method = %s, want DELETE", r.Method)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"code": "x", "message": "m"}}`))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.RevokeSession(context.Background(), "tok-alpha", "tok-gone")
			if !errors.Is(err, tt.want) {
				t.Errorf("RevokeSession error = %v, want %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// TRANSPORT BEHAVIOR TESTS
// =============================================================================

func TestLogout_UnreachableAuthority(t *testing.T) {
	// Point at a closed port: the call must come back with ErrNetwork within
	// the timeout instead of hanging.
	client := NewClient("http://127.0.0.1:1").WithTimeout(2 * time.Second)

	start := time.Now()
	err := client.Logout(context.Background(), "tok-alpha")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Logout error = %v, want ErrNetwork", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Logout took %v, expected bounded return", elapsed)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(server.URL)

	done := make(chan error, 1)
	go func() {
		_, err := client.RefreshSession(ctx, "tok")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrNetwork) {
			t.Errorf("error = %v, want ErrNetwork wrapping cancellation", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("request did not return after cancellation")
	}
}

func TestDeviceDescriptor(t *testing.T) {
	d := DeviceDescriptor()
	if d == "" {
		t.Fatal("DeviceDescriptor returned empty string")
	}
	if !strings.Contains(d, "fleetwatch/") {
		t.Errorf("DeviceDescriptor = %q, want fleetwatch/ prefix", d)
	}
}
