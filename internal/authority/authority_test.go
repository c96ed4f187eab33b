// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package authority

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/fleetwatch/internal/api"
	"github.com/jeranaias/fleetwatch/internal/session"
)

// fixedNoon is 12:00 in UTC+9: far from the midnight cutoff, so TTL-based
// expiries are not clipped and warnings stay quiet.
var fixedNoon = time.Date(2025, 3, 10, 12, 0, 0, 0, session.ReferenceZone)

// newTestServer returns a server with a pinned clock.
func newTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()
	return NewServer(0).WithClock(func() time.Time { return now })
}

// do routes a request through the full middleware chain and returns the
// recorder. The chain matters: PathValue is only populated by the mux.
func do(t *testing.T, s *Server, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// loginAs logs in a seeded principal and returns the login response.
func loginAs(t *testing.T, s *Server, username, password string, remember bool) api.LoginResponse {
	t.Helper()

	w := do(t, s, "POST", "/login", "", api.LoginRequest{
		Username: username,
		Password: password,
		Remember: remember,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, want %d (body %s)", username, w.Code, http.StatusOK, w.Body.String())
	}
	var resp api.LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

// errorCode extracts the error envelope code from a response body.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestHandleLogin_Success(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	resp := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	if resp.Token == "" {
		t.Error("Token is empty")
	}
	if resp.RefreshToken != "" {
		t.Errorf("RefreshToken = %q, want empty for remember=false", resp.RefreshToken)
	}
	if resp.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want > 0", resp.ExpiresIn)
	}
	if resp.Principal.Role != api.RoleOperator {
		t.Errorf("Principal.Role = %q, want %q", resp.Principal.Role, api.RoleOperator)
	}
	if resp.Principal.Username != "amorim" {
		t.Errorf("Principal.Username = %q, want amorim", resp.Principal.Username)
	}
}

func TestHandleLogin_RememberIssuesRefreshToken(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	resp := loginAs(t, s, "amorim", "harbor-lantern-7", true)

	if resp.RefreshToken == "" {
		t.Error("RefreshToken is empty for remember=true")
	}
}

func TestHandleLogin_WrongPassword(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "amorim", Password: "wrong"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if code := errorCode(t, w); code != "invalid_credentials" {
		t.Errorf("error code = %q, want invalid_credentials", code)
	}
}

func TestHandleLogin_UnknownUser(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "nobody", Password: "whatever"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleLogin_InactiveAccount(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	// Correct password, deactivated principal: indistinguishable from a
	// bad password on the wire.
	w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "duarte", Password: "retired-account-0"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleLogin_MalformedJSON(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	req := httptest.NewRequest("POST", "/login", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleLogin_MissingFields(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "amorim"})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleLogin_Lockout(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	bad := api.LoginRequest{Username: "chen", Password: "wrong"}

	// First two failures answer 401.
	for i := 0; i < 2; i++ {
		w := do(t, s, "POST", "/login", "", bad)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("failure %d: status = %d, want %d", i+1, w.Code, http.StatusUnauthorized)
		}
	}

	// Third failure reaches the limit and locks: 423.
	w := do(t, s, "POST", "/login", "", bad)
	if w.Code != http.StatusLocked {
		t.Fatalf("locking failure: status = %d, want %d", w.Code, http.StatusLocked)
	}
	if code := errorCode(t, w); code != "account_locked" {
		t.Errorf("error code = %q, want account_locked", code)
	}

	// Even the correct password is refused while locked.
	w = do(t, s, "POST", "/login", "", api.LoginRequest{Username: "chen", Password: "copper-meridian-4"})
	if w.Code != http.StatusLocked {
		t.Errorf("correct password while locked: status = %d, want %d", w.Code, http.StatusLocked)
	}
}

func TestHandleLogin_LockoutExpires(t *testing.T) {
	now := fixedNoon
	s := NewServer(0).WithClock(func() time.Time { return now })

	bad := api.LoginRequest{Username: "okabe", Password: "wrong"}
	for i := 0; i < 3; i++ {
		do(t, s, "POST", "/login", "", bad)
	}
	if w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "okabe", Password: "quiet-signal-2"}); w.Code != http.StatusLocked {
		t.Fatalf("while locked: status = %d, want %d", w.Code, http.StatusLocked)
	}

	// Past the lockout window the account unlocks on its own.
	now = now.Add(DefaultLockoutDuration + time.Minute)
	if w := do(t, s, "POST", "/login", "", api.LoginRequest{Username: "okabe", Password: "quiet-signal-2"}); w.Code != http.StatusOK {
		t.Errorf("after lockout window: status = %d, want %d", w.Code, http.StatusOK)
	}
}

// =============================================================================
// EXPIRY CAP TESTS
// =============================================================================

func TestLogin_ExpiryCappedAtMidnight(t *testing.T) {
	// 23:30 in UTC+9: only 30 minutes to the cutoff, far less than the
	// 8 hour TTL.
	lateNight := time.Date(2025, 3, 10, 23, 30, 0, 0, session.ReferenceZone)
	s := newTestServer(t, lateNight)

	resp := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	if resp.ExpiresIn > 30*60 {
		t.Errorf("ExpiresIn = %d, want <= %d (capped at midnight)", resp.ExpiresIn, 30*60)
	}
	if resp.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want > 0", resp.ExpiresIn)
	}
}

func TestRegistry_ExpiryFrom(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{
			name: "midday gets the full TTL",
			now:  time.Date(2025, 3, 10, 12, 0, 0, 0, session.ReferenceZone),
			want: DefaultSessionTTL,
		},
		{
			name: "late evening clips to midnight",
			now:  time.Date(2025, 3, 10, 22, 0, 0, 0, session.ReferenceZone),
			want: 2 * time.Hour,
		},
		{
			name: "one second before midnight",
			now:  time.Date(2025, 3, 10, 23, 59, 59, 0, session.ReferenceZone),
			want: time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(func() time.Time { return tt.now })
			got := r.ExpiryFrom(tt.now).Sub(tt.now)
			if got != tt.want {
				t.Errorf("ExpiryFrom horizon = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// REFRESH TESTS
// =============================================================================

func TestHandleRefresh(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	login := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "POST", "/refresh-session", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}

	var resp api.RefreshResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}

	if resp.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want > 0", resp.ExpiresIn)
	}
	if resp.TimeUntilMidnightSeconds != 12*60*60 {
		t.Errorf("TimeUntilMidnightSeconds = %d, want %d", resp.TimeUntilMidnightSeconds, 12*60*60)
	}
	if !strings.HasSuffix(resp.DiliTime, "+09:00") {
		t.Errorf("DiliTime = %q, want +09:00 offset", resp.DiliTime)
	}
	if resp.ShouldWarn {
		t.Error("ShouldWarn = true, want false with hours of runway")
	}
}

func TestHandleRefresh_WarnsNearExpiry(t *testing.T) {
	// 23:57 in UTC+9: the midnight cap leaves 3 minutes, inside the
	// 5 minute warning threshold.
	nearMidnight := time.Date(2025, 3, 10, 23, 57, 0, 0, session.ReferenceZone)
	s := newTestServer(t, nearMidnight)
	login := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "POST", "/refresh-session", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp api.RefreshResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if !resp.ShouldWarn {
		t.Error("ShouldWarn = false, want true inside the warning threshold")
	}
	if resp.ExpiresIn > session.WarnThresholdSeconds {
		t.Errorf("ExpiresIn = %d, want <= %d", resp.ExpiresIn, session.WarnThresholdSeconds)
	}
}

func TestHandleRefresh_BadToken(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	w := do(t, s, "POST", "/refresh-session", "not-a-real-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleRefresh_MissingBearer(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	w := do(t, s, "POST", "/refresh-session", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleRefresh_AfterLogout(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	login := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	if w := do(t, s, "POST", "/logout", login.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w := do(t, s, "POST", "/refresh-session", login.Token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestHandleListSessions_Own(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	first := loginAs(t, s, "amorim", "harbor-lantern-7", false)
	loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "GET", "/principals/"+first.Principal.ID+"/sessions", first.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Sessions []api.Session `json:"sessions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode sessions response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Errorf("len(Sessions) = %d, want 2", len(resp.Sessions))
	}
	for _, sess := range resp.Sessions {
		if sess.PrincipalID != first.Principal.ID {
			t.Errorf("session %s belongs to %s, want %s", tokenSuffix(sess.Token), sess.PrincipalID, first.Principal.ID)
		}
	}
}

func TestHandleListSessions_OtherPrincipalForbidden(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	operator := loginAs(t, s, "amorim", "harbor-lantern-7", false)
	supervisor := loginAs(t, s, "chen", "copper-meridian-4", false)

	w := do(t, s, "GET", "/principals/"+supervisor.Principal.ID+"/sessions", operator.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandleListSessions_AdminSeesAnyone(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	admin := loginAs(t, s, "rivera", "argus-horizon-9", false)
	operator := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "GET", "/principals/"+operator.Principal.ID+"/sessions", admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
}

// =============================================================================
// REVOCATION TESTS
// =============================================================================

func TestHandleRevokeSession_SelfForbidden(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	login := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "DELETE", "/sessions/"+login.Token, login.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if code := errorCode(t, w); code != "self_revoke" {
		t.Errorf("error code = %q, want self_revoke", code)
	}

	// The session survives: still good for a refresh.
	if w := do(t, s, "POST", "/refresh-session", login.Token, nil); w.Code != http.StatusOK {
		t.Errorf("refresh after refused self-revoke: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleRevokeSession_OwnOtherSession(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	first := loginAs(t, s, "amorim", "harbor-lantern-7", false)
	second := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "DELETE", "/sessions/"+second.Token, first.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// The revoked session is dead and out of the directory.
	if w := do(t, s, "POST", "/refresh-session", second.Token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("refresh of revoked session: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	remaining := s.Registry().SessionsFor(first.Principal.ID)
	if len(remaining) != 1 {
		t.Errorf("sessions remaining = %d, want 1", len(remaining))
	}
}

func TestHandleRevokeSession_OtherPrincipalForbidden(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	operator := loginAs(t, s, "amorim", "harbor-lantern-7", false)
	supervisor := loginAs(t, s, "chen", "copper-meridian-4", false)

	w := do(t, s, "DELETE", "/sessions/"+supervisor.Token, operator.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandleRevokeSession_AdminRevokesOther(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	admin := loginAs(t, s, "rivera", "argus-horizon-9", false)
	operator := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "DELETE", "/sessions/"+operator.Token, admin.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestHandleRevokeSession_AdminCannotSelfRevoke(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	admin := loginAs(t, s, "rivera", "argus-horizon-9", false)

	w := do(t, s, "DELETE", "/sessions/"+admin.Token, admin.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d (self-revoke has no admin bypass)", w.Code, http.StatusForbidden)
	}
}

func TestHandleRevokeSession_Unknown(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	login := loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "DELETE", "/sessions/tok-does-not-exist", login.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// =============================================================================
// HEALTH AND MIDDLEWARE TESTS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, fixedNoon)
	loginAs(t, s, "amorim", "harbor-lantern-7", false)

	w := do(t, s, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if resp.Version != api.Version {
		t.Errorf("Version = %q, want %q", resp.Version, api.Version)
	}
	if resp.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", resp.ActiveSessions)
	}
	if _, err := time.Parse(time.RFC3339, resp.DiliTime); err != nil {
		t.Errorf("DiliTime %q is not RFC3339: %v", resp.DiliTime, err)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, fixedNoon).
		WithRateLimiter(NewIPRateLimiter(rate.Every(time.Hour), 2))

	// Burst of 2 allowed, third refused.
	for i := 0; i < 2; i++ {
		if w := do(t, s, "GET", "/health", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
	w := do(t, s, "GET", "/health", "", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestStatsCounters(t *testing.T) {
	s := newTestServer(t, fixedNoon)

	loginAs(t, s, "amorim", "harbor-lantern-7", false)
	do(t, s, "POST", "/login", "", api.LoginRequest{Username: "amorim", Password: "wrong"})

	snap := s.stats.Snapshot()
	if snap.Logins != 1 {
		t.Errorf("Logins = %d, want 1", snap.Logins)
	}
	if snap.FailedLogins != 1 {
		t.Errorf("FailedLogins = %d, want 1", snap.FailedLogins)
	}
	if snap.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", snap.TotalRequests)
	}
}

// =============================================================================
// TOKEN SIGNER TESTS
// =============================================================================

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer, err := NewTokenSigner(nil, nil)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	p := api.Principal{ID: "p-100", Username: "rivera", Role: api.RoleAdmin}
	token, err := signer.Mint(p, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "p-100" {
		t.Errorf("Subject = %q, want p-100", claims.Subject)
	}
	if claims.Username != "rivera" {
		t.Errorf("Username = %q, want rivera", claims.Username)
	}
	if claims.Role != api.RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, api.RoleAdmin)
	}
}

func TestTokenSigner_RejectsForeignKey(t *testing.T) {
	signerA, err := NewTokenSigner(nil, nil)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	signerB, err := NewTokenSigner(nil, nil)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	token, err := signerA.Mint(api.Principal{ID: "p-100", Username: "rivera", Role: api.RoleAdmin}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := signerB.Verify(token); err == nil {
		t.Error("Verify accepted a token signed with a different key")
	}
}

func TestTokenSigner_RejectsTampering(t *testing.T) {
	signer, err := NewTokenSigner(nil, nil)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	token, err := signer.Mint(api.Principal{ID: "p-100", Username: "rivera", Role: api.RoleAdmin}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Flip a character in the payload segment.
	parts := strings.SplitN(token, ".", 3)
	if len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := signer.Verify(tampered); err == nil {
		t.Error("Verify accepted a tampered token")
	}
}

func TestTokenSigner_BadKeySize(t *testing.T) {
	if _, err := NewTokenSigner([]byte("short"), nil); err == nil {
		t.Error("NewTokenSigner accepted a short key")
	}
}

// =============================================================================
// LOCKOUT MANAGER TESTS
// =============================================================================

func TestLockoutManager_LocksAtLimit(t *testing.T) {
	lm := NewLockoutManager()

	if err := lm.RecordAttempt("user", false); err != nil {
		t.Errorf("attempt 1: err = %v, want nil", err)
	}
	if err := lm.RecordAttempt("user", false); err != nil {
		t.Errorf("attempt 2: err = %v, want nil", err)
	}
	if err := lm.RecordAttempt("user", false); err != ErrLocked {
		t.Errorf("attempt 3: err = %v, want ErrLocked", err)
	}
	if !lm.IsLocked("user") {
		t.Error("IsLocked = false after limit reached")
	}
	if lm.Remaining("user") <= 0 {
		t.Error("Remaining <= 0 on a locked account")
	}
}

func TestLockoutManager_SuccessResetsCounter(t *testing.T) {
	lm := NewLockoutManager()

	lm.RecordAttempt("user", false)
	lm.RecordAttempt("user", false)
	if err := lm.RecordAttempt("user", true); err != nil {
		t.Fatalf("successful attempt: err = %v", err)
	}

	// Counter is back at zero: two more failures do not lock.
	lm.RecordAttempt("user", false)
	if err := lm.RecordAttempt("user", false); err != nil {
		t.Errorf("post-reset failure 2: err = %v, want nil", err)
	}
	if lm.IsLocked("user") {
		t.Error("IsLocked = true, want false after counter reset")
	}
}

func TestLockoutManager_ExpiryUnlocks(t *testing.T) {
	now := fixedNoon
	lm := NewLockoutManager(WithLockoutClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		lm.RecordAttempt("user", false)
	}
	if !lm.IsLocked("user") {
		t.Fatal("IsLocked = false after three failures")
	}

	now = now.Add(DefaultLockoutDuration + time.Second)
	if lm.IsLocked("user") {
		t.Error("IsLocked = true after the lockout window passed")
	}
	if err := lm.RecordAttempt("user", true); err != nil {
		t.Errorf("attempt after expiry: err = %v, want nil", err)
	}
}

func TestLockoutManager_Options(t *testing.T) {
	lm := NewLockoutManager(WithMaxAttempts(1), WithLockoutDuration(time.Minute))

	if err := lm.RecordAttempt("user", false); err != ErrLocked {
		t.Errorf("first failure with limit 1: err = %v, want ErrLocked", err)
	}
	remaining := lm.Remaining("user")
	if remaining <= 0 || remaining > time.Minute {
		t.Errorf("Remaining = %v, want (0, 1m]", remaining)
	}
}

func TestLockoutManager_IndependentIdentifiers(t *testing.T) {
	lm := NewLockoutManager()

	for i := 0; i < 3; i++ {
		lm.RecordAttempt("first", false)
	}
	if lm.IsLocked("second") {
		t.Error("lockout of one identifier leaked to another")
	}
}
