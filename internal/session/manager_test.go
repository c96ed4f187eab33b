// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/fleetwatch/internal/api"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeClock is a hand-advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakeAuthority is an in-memory Authority with scriptable responses and
// call counters.
type fakeAuthority struct {
	mu sync.Mutex

	loginResp *api.LoginResponse
	loginErr  error

	logoutErr    error
	logoutCalls  int
	logoutTokens []string

	refreshResp  *api.RefreshResponse
	refreshErr   error
	refreshCalls int
	refreshHook  func() // runs inside RefreshSession, before returning

	sessions  []api.Session
	listErr   error
	listCalls int

	revokeErr      error
	revokeCalls    int
	revokedTargets []string
}

func (f *fakeAuthority) Login(ctx context.Context, username, password string, remember bool) (*api.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	resp := *f.loginResp
	return &resp, nil
}

func (f *fakeAuthority) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.logoutTokens = append(f.logoutTokens, token)
	return f.logoutErr
}

func (f *fakeAuthority) RefreshSession(ctx context.Context, token string) (*api.RefreshResponse, error) {
	f.mu.Lock()
	hook := f.refreshHook
	f.refreshCalls++
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	resp := *f.refreshResp
	return &resp, nil
}

func (f *fakeAuthority) ListSessions(ctx context.Context, token, principalID string) ([]api.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]api.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeAuthority) RevokeSession(ctx context.Context, token, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	f.revokedTargets = append(f.revokedTargets, target)
	return f.revokeErr
}

// loginStart is 14:00 in the reference zone: ten hours before the daily
// cutoff, so short-lived tokens expire well clear of midnight.
var loginStart = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, expiresIn int) (*Manager, *fakeAuthority, *fakeClock) {
	t.Helper()
	clk := newFakeClock(loginStart)
	auth := &fakeAuthority{
		loginResp: &api.LoginResponse{
			Token:        "tok-alpha",
			RefreshToken: "ref-alpha",
			ExpiresIn:    expiresIn,
			Principal:    api.Principal{ID: "p-1", Username: "amorim", Role: api.RoleOperator, Active: true},
		},
		refreshResp: &api.RefreshResponse{ExpiresIn: expiresIn},
	}
	m := NewManager(auth, WithNow(clk.Now))
	return m, auth, clk
}

func mustLogin(t *testing.T, m *Manager, remember bool) {
	t.Helper()
	if err := m.Login(context.Background(), "amorim", "correct-horse", remember); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestManager_Login_EstablishesSession(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	snap := m.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("State = %v, want StateActive", snap.State)
	}
	if m.CurrentToken() != "tok-alpha" {
		t.Errorf("CurrentToken = %q, want tok-alpha", m.CurrentToken())
	}
	if snap.Principal.Username != "amorim" || snap.Principal.Role != api.RoleOperator {
		t.Errorf("Principal = %+v, want amorim/operator", snap.Principal)
	}

	wantExpiry := clk.Now().Add(1800 * time.Second)
	if !snap.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", snap.ExpiresAt, wantExpiry)
	}

	// 14:00 reference time: the cutoff lands ten hours ahead.
	wantCutoff := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	if !snap.CutoffAt.Equal(wantCutoff) {
		t.Errorf("CutoffAt = %v, want %v", snap.CutoffAt, wantCutoff)
	}
	if snap.SecondsUntilMidnight != 10*3600 {
		t.Errorf("SecondsUntilMidnight = %d, want %d", snap.SecondsUntilMidnight, 10*3600)
	}
}

func TestManager_Login_FailureLeavesStateUntouched(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	auth.loginErr = api.ErrInvalidCredentials

	err := m.Login(context.Background(), "amorim", "wrong", false)
	if !errors.Is(err, api.ErrInvalidCredentials) {
		t.Fatalf("Login error = %v, want ErrInvalidCredentials", err)
	}
	if snap := m.Snapshot(); snap.State != StateUnauthenticated {
		t.Errorf("State = %v, want StateUnauthenticated", snap.State)
	}
	if m.CurrentToken() != "" {
		t.Error("CurrentToken should be empty after failed login")
	}
}

func TestManager_Login_ReplacesExistingSession(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	mustLogin(t, m, false)
	gen1 := m.Generation()

	auth.mu.Lock()
	auth.loginResp.Token = "tok-beta"
	auth.mu.Unlock()
	mustLogin(t, m, true)

	if m.CurrentToken() != "tok-beta" {
		t.Errorf("CurrentToken = %q, want tok-beta", m.CurrentToken())
	}
	if gen2 := m.Generation(); gen2 <= gen1 {
		t.Errorf("Generation = %d, want > %d", gen2, gen1)
	}
}

// =============================================================================
// LOGOUT TESTS
// =============================================================================

func TestManager_Logout_ClearsStateWhenNetworkFails(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	auth.logoutErr = api.ErrNetwork
	mustLogin(t, m, true)

	m.Logout(context.Background())

	snap := m.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("State = %v, want StateUnauthenticated despite network failure", snap.State)
	}
	if m.CurrentToken() != "" {
		t.Error("CurrentToken should be empty after logout")
	}
	if snap.Principal.ID != "" {
		t.Error("Principal should be cleared after logout")
	}
	if !snap.ExpiresAt.IsZero() || !snap.CutoffAt.IsZero() {
		t.Error("expiry anchors should be cleared after logout")
	}
}

func TestManager_Logout_SendsBestEffortInvalidation(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	mustLogin(t, m, false)

	m.Logout(context.Background())

	if auth.logoutCalls != 1 {
		t.Fatalf("logout calls = %d, want 1", auth.logoutCalls)
	}
	if auth.logoutTokens[0] != "tok-alpha" {
		t.Errorf("logout used token %q, want tok-alpha", auth.logoutTokens[0])
	}
}

func TestManager_Logout_WhenUnauthenticatedIsNoop(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	m.Logout(context.Background())
	if auth.logoutCalls != 0 {
		t.Errorf("logout calls = %d, want 0", auth.logoutCalls)
	}
}

// =============================================================================
// WARNING TESTS
// =============================================================================

func TestManager_Check_WarningFiresExactlyOnce(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	// 301 seconds left: outside the threshold.
	res := m.Check(clk.Advance(1499 * time.Second))
	if res.WarningRaised {
		t.Fatalf("warning at %d seconds left, threshold is %d", res.SecondsUntilExpiry, WarnThresholdSeconds)
	}

	// 300 seconds left: the first second inside raises it.
	res = m.Check(clk.Advance(time.Second))
	if !res.WarningRaised {
		t.Fatal("warning should fire at the threshold")
	}
	if res.SecondsUntilExpiry != WarnThresholdSeconds {
		t.Errorf("SecondsUntilExpiry = %d, want %d", res.SecondsUntilExpiry, WarnThresholdSeconds)
	}
	if res.State != StateWarning {
		t.Errorf("State = %v, want StateWarning", res.State)
	}

	// Every subsequent tick stays quiet.
	for i := 0; i < 10; i++ {
		if res = m.Check(clk.Advance(time.Second)); res.WarningRaised {
			t.Fatalf("warning re-fired at %d seconds left", res.SecondsUntilExpiry)
		}
	}
}

func TestManager_Check_RefreshReArmsWarning(t *testing.T) {
	m, auth, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	if res := m.Check(clk.Advance(1500 * time.Second)); !res.WarningRaised {
		t.Fatal("expected first warning")
	}

	auth.mu.Lock()
	auth.refreshResp = &api.RefreshResponse{ExpiresIn: 1800}
	auth.mu.Unlock()
	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap := m.Snapshot(); snap.State != StateActive {
		t.Fatalf("State after refresh = %v, want StateActive", snap.State)
	}

	// Next approach to expiry warns again.
	if res := m.Check(clk.Advance(1500 * time.Second)); !res.WarningRaised {
		t.Error("warning should re-fire after a refresh re-armed it")
	}
}

func TestManager_ClearWarning_DismissalDoesNotExtend(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)
	before := m.Snapshot().ExpiresAt

	if res := m.Check(clk.Advance(1500 * time.Second)); !res.WarningRaised {
		t.Fatal("expected warning")
	}
	m.ClearWarning()

	snap := m.Snapshot()
	if snap.State != StateWarningDismissed {
		t.Fatalf("State = %v, want StateWarningDismissed", snap.State)
	}
	if !snap.ExpiresAt.Equal(before) {
		t.Error("dismissal must not move the expiry")
	}

	// No re-show, and the hard stop still lands on schedule.
	if res := m.Check(clk.Advance(100 * time.Second)); res.WarningRaised {
		t.Error("dismissed warning must not re-fire")
	}
	res := m.Check(clk.Advance(200 * time.Second))
	if !res.ForcedLogout || res.Reason != ReasonTokenExpired {
		t.Errorf("ForcedLogout = %v (%v), want token expiry logout", res.ForcedLogout, res.Reason)
	}
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestManager_Refresh_ExpiryNeverMovesBackwards(t *testing.T) {
	m, auth, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)
	first := m.Snapshot().ExpiresAt

	// A shorter grant than what we already hold is ignored.
	auth.mu.Lock()
	auth.refreshResp = &api.RefreshResponse{ExpiresIn: 900}
	auth.mu.Unlock()
	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := m.Snapshot().ExpiresAt; !got.Equal(first) {
		t.Errorf("ExpiresAt = %v, want unchanged %v", got, first)
	}

	// A longer grant extends.
	auth.mu.Lock()
	auth.refreshResp = &api.RefreshResponse{ExpiresIn: 3600}
	auth.mu.Unlock()
	if _, err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	want := clk.Now().Add(3600 * time.Second)
	if got := m.Snapshot().ExpiresAt; !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}
}

func TestManager_Refresh_NetworkErrorKeepsSession(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	mustLogin(t, m, false)
	before := m.Snapshot()

	auth.mu.Lock()
	auth.refreshErr = api.ErrNetwork
	auth.mu.Unlock()

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("Refresh error = %v, want ErrNetwork", err)
	}

	after := m.Snapshot()
	if after.State != StateActive {
		t.Errorf("State = %v, want StateActive after transient refresh failure", after.State)
	}
	if !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Error("transient refresh failure must not move the expiry")
	}
}

func TestManager_Refresh_RejectedTokenForcesLogout(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	mustLogin(t, m, false)

	auth.mu.Lock()
	auth.refreshErr = api.ErrSessionExpired
	auth.mu.Unlock()

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("Refresh error = %v, want ErrSessionExpired", err)
	}
	if snap := m.Snapshot(); snap.State != StateUnauthenticated {
		t.Errorf("State = %v, want StateUnauthenticated", snap.State)
	}
	if m.LastLogoutReason() != ReasonSessionRejected {
		t.Errorf("reason = %v, want ReasonSessionRejected", m.LastLogoutReason())
	}
}

func TestManager_Refresh_StaleCompletionDiscarded(t *testing.T) {
	m, auth, clk := newTestManager(t, 1800)
	mustLogin(t, m, true)

	// The epoch ends while the refresh round-trip is in flight: the
	// daily cutoff passes and a tick clears local state.
	auth.mu.Lock()
	auth.refreshHook = func() {
		m.Check(clk.Advance(11 * time.Hour))
	}
	auth.refreshResp = &api.RefreshResponse{ExpiresIn: 7200}
	auth.mu.Unlock()

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, ErrStaleRefresh) {
		t.Fatalf("Refresh error = %v, want ErrStaleRefresh", err)
	}

	snap := m.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("State = %v, stale refresh must not resurrect the session", snap.State)
	}
	if m.CurrentToken() != "" {
		t.Error("CurrentToken should stay empty after a discarded refresh")
	}
	if !snap.ExpiresAt.IsZero() {
		t.Error("stale refresh must not write an expiry")
	}
}

func TestManager_Refresh_WhenUnauthenticated(t *testing.T) {
	m, auth, _ := newTestManager(t, 1800)
	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrStaleRefresh) {
		t.Fatalf("Refresh error = %v, want ErrStaleRefresh", err)
	}
	if auth.refreshCalls != 0 {
		t.Errorf("refresh calls = %d, want 0 network calls when unauthenticated", auth.refreshCalls)
	}
}

// =============================================================================
// FORCED LOGOUT TESTS
// =============================================================================

func TestManager_Check_MidnightCutoffOverridesRememberMe(t *testing.T) {
	// Thirty-day remember-me grant; the daily cutoff still wins.
	m, _, clk := newTestManager(t, 30*24*3600)
	mustLogin(t, m, true)

	// One second before the cutoff: still live.
	res := m.Check(clk.Advance(10*time.Hour - time.Second))
	if res.ForcedLogout {
		t.Fatalf("forced logout %d seconds early", res.SecondsUntilMidnight)
	}
	if res.SecondsUntilMidnight != 1 {
		t.Errorf("SecondsUntilMidnight = %d, want 1", res.SecondsUntilMidnight)
	}

	// The boundary itself.
	res = m.Check(clk.Advance(time.Second))
	if !res.ForcedLogout {
		t.Fatal("cutoff boundary must force logout")
	}
	if res.Reason != ReasonMidnightCutoff {
		t.Errorf("Reason = %v, want ReasonMidnightCutoff", res.Reason)
	}
	if snap := m.Snapshot(); snap.State != StateUnauthenticated {
		t.Errorf("State = %v, want StateUnauthenticated", snap.State)
	}
}

func TestManager_Check_TokenExpiryForcesLogout(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	res := m.Check(clk.Advance(1800 * time.Second))
	if !res.ForcedLogout || res.Reason != ReasonTokenExpired {
		t.Fatalf("got %+v, want token-expiry forced logout", res)
	}
}

func TestManager_Check_MissedTicksSelfCorrect(t *testing.T) {
	// The process was suspended across both the warning window and the
	// expiry. The first tick afterwards lands directly on forced logout;
	// no late warning sneaks in first.
	m, _, clk := newTestManager(t, 1800)
	mustLogin(t, m, false)

	res := m.Check(clk.Advance(2 * time.Hour))
	if res.WarningRaised {
		t.Error("no warning should fire once expiry already passed")
	}
	if !res.ForcedLogout || res.Reason != ReasonTokenExpired {
		t.Fatalf("got %+v, want token-expiry forced logout", res)
	}
}

func TestManager_Check_UnauthenticatedIsInert(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	res := m.Check(clk.Now())
	if res.ForcedLogout || res.WarningRaised {
		t.Errorf("got %+v, want inert result when unauthenticated", res)
	}
}

// =============================================================================
// POLL / RESTORE TESTS
// =============================================================================

func TestManager_SetActiveSessionCount_IgnoresStaleGeneration(t *testing.T) {
	m, _, _ := newTestManager(t, 1800)
	mustLogin(t, m, false)
	staleGen := m.Generation()

	m.Logout(context.Background())
	mustLogin(t, m, false)

	m.SetActiveSessionCount(staleGen, 7)
	if n := m.Snapshot().ActiveSessionCount; n != 0 {
		t.Errorf("ActiveSessionCount = %d, stale poll result must be ignored", n)
	}

	m.SetActiveSessionCount(m.Generation(), 3)
	if n := m.Snapshot().ActiveSessionCount; n != 3 {
		t.Errorf("ActiveSessionCount = %d, want 3", n)
	}
}

func TestManager_Restore_ResumesRememberedSession(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)
	cred := Credentials{
		Token:     "tok-restored",
		Principal: api.Principal{ID: "p-1", Username: "amorim", Role: api.RoleSupervisor},
		ExpiresAt: clk.Now().Add(2 * time.Hour),
		CutoffAt:  clk.Now().Add(10 * time.Hour),
		Remember:  true,
	}
	if err := m.Restore(cred); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	snap := m.Snapshot()
	if snap.State != StateActive {
		t.Fatalf("State = %v, want StateActive", snap.State)
	}
	if m.CurrentToken() != "tok-restored" {
		t.Errorf("CurrentToken = %q, want tok-restored", m.CurrentToken())
	}
	if !snap.CutoffAt.Equal(cred.CutoffAt) {
		t.Error("Restore must honor the stored cutoff, not recompute it")
	}
}

func TestManager_Restore_RejectsStaleCredentials(t *testing.T) {
	m, _, clk := newTestManager(t, 1800)

	tests := []struct {
		name string
		cred Credentials
	}{
		{"past cutoff", Credentials{
			Token:     "tok-x",
			ExpiresAt: clk.Now().Add(24 * time.Hour),
			CutoffAt:  clk.Now().Add(-time.Minute),
		}},
		{"past expiry", Credentials{
			Token:     "tok-x",
			ExpiresAt: clk.Now().Add(-time.Minute),
			CutoffAt:  clk.Now().Add(10 * time.Hour),
		}},
		{"empty token", Credentials{
			ExpiresAt: clk.Now().Add(time.Hour),
			CutoffAt:  clk.Now().Add(10 * time.Hour),
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.Restore(tc.cred); !errors.Is(err, api.ErrSessionExpired) {
				t.Errorf("Restore error = %v, want ErrSessionExpired", err)
			}
			if snap := m.Snapshot(); snap.State != StateUnauthenticated {
				t.Errorf("State = %v, want StateUnauthenticated", snap.State)
			}
		})
	}
}

func TestManager_ExportCredentials(t *testing.T) {
	m, _, _ := newTestManager(t, 1800)

	if _, ok := m.ExportCredentials(); ok {
		t.Error("unauthenticated manager must not export credentials")
	}

	mustLogin(t, m, false)
	if _, ok := m.ExportCredentials(); ok {
		t.Error("non-remembered session must not export credentials")
	}

	m.Logout(context.Background())
	mustLogin(t, m, true)
	cred, ok := m.ExportCredentials()
	if !ok {
		t.Fatal("remembered session should export credentials")
	}
	if cred.Token != "tok-alpha" || !cred.Remember {
		t.Errorf("exported %+v, want tok-alpha with remember", cred)
	}
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestManager_ConcurrentAccess(t *testing.T) {
	m, _, clk := newTestManager(t, 3600)
	mustLogin(t, m, true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = m.Snapshot()
				_ = m.CurrentToken()
				_ = m.Check(clk.Now())
				m.SetActiveSessionCount(m.Generation(), j%5)
				_, _ = m.ExportCredentials()
			}
		}()
	}
	wg.Wait()

	if snap := m.Snapshot(); snap.State != StateActive {
		t.Errorf("State = %v, want StateActive after concurrent reads", snap.State)
	}
}
