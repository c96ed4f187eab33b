// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// manager.go - Credential lifecycle: the single source of truth for
// "am I logged in, as whom, until when".
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/fleetwatch/internal/api"
)

// =============================================================================
// AUTHORITY INTERFACE
// =============================================================================

// Authority is the subset of the issuing authority client the lifecycle
// needs. *api.Client satisfies it; tests substitute fakes.
type Authority interface {
	Login(ctx context.Context, username, password string, remember bool) (*api.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	RefreshSession(ctx context.Context, token string) (*api.RefreshResponse, error)
	ListSessions(ctx context.Context, token, principalID string) ([]api.Session, error)
	RevokeSession(ctx context.Context, token, target string) error
}

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle state of the running client instance.
type State int

const (
	// StateUnauthenticated means no credential is held. Terminal for an
	// epoch: only a fresh login leaves it.
	StateUnauthenticated State = iota

	// StateActive means authenticated with more than the warning
	// threshold remaining.
	StateActive

	// StateWarning means authenticated inside the warning threshold with
	// the banner showing.
	StateWarning

	// StateWarningDismissed means the operator dismissed the banner. The
	// underlying expiry is unchanged and the forced logout still fires.
	StateWarningDismissed
)

// String returns the display string for the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateWarningDismissed:
		return "warning-dismissed"
	default:
		return "unknown"
	}
}

// Authenticated reports whether the state holds a live credential.
func (s State) Authenticated() bool {
	return s != StateUnauthenticated
}

// LogoutReason says why an authenticated epoch ended.
type LogoutReason int

const (
	ReasonUserLogout LogoutReason = iota
	ReasonMidnightCutoff
	ReasonTokenExpired
	ReasonSessionRejected // authority refused the token during refresh
)

// String returns the journal/display string for the reason.
func (r LogoutReason) String() string {
	switch r {
	case ReasonUserLogout:
		return "user logout"
	case ReasonMidnightCutoff:
		return "daily cutoff"
	case ReasonTokenExpired:
		return "token expired"
	case ReasonSessionRejected:
		return "session rejected"
	default:
		return "unknown"
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the current token, principal and expiry. All other
// components read that state through Snapshot/CurrentToken; none mutate
// it. Transitions to Unauthenticated are monotonic within an epoch:
// each login starts a new generation and every async completion is
// checked against the generation it started under.
type Manager struct {
	mu sync.Mutex

	authority Authority
	nowFn     func() time.Time

	state        State
	generation   uint64
	token        string
	refreshToken string
	principal    api.Principal
	remember     bool

	// Absolute anchors. cutoffAt is the first reference-zone midnight
	// after login; a session never survives past it, whatever expiresAt
	// says.
	expiresAt time.Time
	cutoffAt  time.Time

	// warnLatch records that the warning for the current approach to
	// expiry has been raised. Re-armed only by login or refresh.
	warnLatch bool

	lastReason LogoutReason

	// activeSessionCount is fed by the background directory poll.
	activeSessionCount int
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow injects the clock source. Tests use synthetic clocks; the
// default is time.Now.
func WithNow(nowFn func() time.Time) Option {
	return func(m *Manager) {
		if nowFn != nil {
			m.nowFn = nowFn
		}
	}
}

// NewManager creates an unauthenticated lifecycle manager bound to the
// given authority client.
func NewManager(authority Authority, opts ...Option) *Manager {
	m := &Manager{
		authority: authority,
		nowFn:     time.Now,
		state:     StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a consistent read of the lifecycle state for views and the
// access guard. Countdown fields are computed against the snapshot
// instant.
type Snapshot struct {
	State                State
	Generation           uint64
	Principal            api.Principal
	Remember             bool
	ExpiresAt            time.Time
	CutoffAt             time.Time
	SecondsUntilExpiry   int
	SecondsUntilMidnight int
	WarningVisible       bool
	ActiveSessionCount   int
}

// Snapshot returns the current state with countdowns computed at now.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()

	snap := Snapshot{
		State:              m.state,
		Generation:         m.generation,
		Principal:          m.principal,
		Remember:           m.remember,
		ExpiresAt:          m.expiresAt,
		CutoffAt:           m.cutoffAt,
		WarningVisible:     m.state == StateWarning,
		ActiveSessionCount: m.activeSessionCount,
	}
	if m.state.Authenticated() {
		snap.SecondsUntilExpiry = SecondsUntilExpiry(m.expiresAt, now)
		snap.SecondsUntilMidnight = SecondsUntilExpiry(m.cutoffAt, now)
		if snap.SecondsUntilMidnight < 0 {
			snap.SecondsUntilMidnight = 0
		}
	}
	return snap
}

// CurrentToken returns the held token for equality comparison by the
// directory. Empty when unauthenticated. Callers never transmit or store
// it; the lifecycle manager remains the only writer.
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Generation returns the current epoch counter.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// LastLogoutReason returns why the previous epoch ended.
func (m *Manager) LastLogoutReason() LogoutReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReason
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login authenticates and, on success, replaces any prior local
// credential silently. The midnight cutoff is anchored here: the first
// reference-zone midnight after the login instant.
//
// Terminal failures (api.ErrInvalidCredentials, api.ErrAccountLocked)
// surface verbatim; api.ErrNetwork is retryable by the caller. Local
// state is untouched on failure.
func (m *Manager) Login(ctx context.Context, username, password string, remember bool) error {
	resp, err := m.authority.Login(ctx, username, password, remember)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()

	m.generation++
	m.state = StateActive
	m.token = resp.Token
	m.refreshToken = resp.RefreshToken
	m.principal = resp.Principal
	m.remember = remember
	m.expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	m.cutoffAt = NextMidnight(NowInReferenceZone(now))
	m.warnLatch = false
	m.activeSessionCount = 0
	return nil
}

// Logout ends the epoch. Local state clears first and unconditionally;
// the remote invalidation that follows is advisory and its error is
// swallowed (a client must never stay stuck "authenticated" toward an
// unreachable backend). Returns the reason recorded for the epoch end.
func (m *Manager) Logout(ctx context.Context) LogoutReason {
	m.mu.Lock()
	token := m.token
	wasAuthenticated := m.state.Authenticated()
	m.clearLocked(ReasonUserLogout)
	m.mu.Unlock()

	if wasAuthenticated && token != "" {
		// Best effort; bounded by the client's timeout.
		_ = m.authority.Logout(ctx, token)
	}
	return ReasonUserLogout
}

// clearLocked wipes all locally held credential state. Caller holds mu.
func (m *Manager) clearLocked(reason LogoutReason) {
	m.generation++
	m.state = StateUnauthenticated
	m.token = ""
	m.refreshToken = ""
	m.principal = api.Principal{}
	m.remember = false
	m.expiresAt = time.Time{}
	m.cutoffAt = time.Time{}
	m.warnLatch = false
	m.activeSessionCount = 0
	m.lastReason = reason
}

// =============================================================================
// REFRESH
// =============================================================================

// ErrStaleRefresh marks a refresh completion that arrived after its epoch
// already ended; callers treat it as a no-op.
var ErrStaleRefresh = errors.New("stale refresh discarded")

// Refresh extends the current session via the authority and re-arms the
// warning latch. The network call runs outside the lock; its result is
// applied only if the epoch is unchanged, so a completion racing a forced
// logout is discarded (the Unauthenticated transition is monotonic).
//
// A refresh failure never forces a logout by itself: api.ErrNetwork
// leaves state untouched for the caller to retry, and only
// api.ErrSessionExpired (the authority rejecting the token) converts
// into an immediate forced logout.
func (m *Manager) Refresh(ctx context.Context) (*api.RefreshResponse, error) {
	m.mu.Lock()
	if !m.state.Authenticated() {
		m.mu.Unlock()
		return nil, ErrStaleRefresh
	}
	gen := m.generation
	token := m.token
	m.mu.Unlock()

	resp, err := m.authority.RefreshSession(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen || !m.state.Authenticated() {
		// Epoch ended while the call was in flight.
		return nil, ErrStaleRefresh
	}

	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			m.clearLocked(ReasonSessionRejected)
			return nil, err
		}
		return nil, err
	}

	now := m.nowFn()
	newExpiry := now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	// Refresh is idempotent: back-to-back calls must never move expiry
	// backwards, so an earlier-completing second response cannot undercut
	// the first.
	if newExpiry.After(m.expiresAt) {
		m.expiresAt = newExpiry
	}
	m.warnLatch = false
	if m.state == StateWarning || m.state == StateWarningDismissed {
		m.state = StateActive
	}
	return resp, nil
}

// ClearWarning dismisses the banner without extending anything. The
// expiry is unchanged, the warning does not re-show for this approach,
// and the forced logout still fires on schedule.
func (m *Manager) ClearWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateWarning {
		m.state = StateWarningDismissed
	}
}

// =============================================================================
// TICK CHECK
// =============================================================================

// CheckResult reports the transitions a tick produced.
type CheckResult struct {
	State                State
	WarningRaised        bool
	ForcedLogout         bool
	Reason               LogoutReason
	SecondsUntilExpiry   int
	SecondsUntilMidnight int
}

// Check recomputes time facts at now and applies due transitions. It
// only compares locally cached timestamps; it never performs network
// I/O, so it is safe on the 1-second presentation tick. Missed ticks
// self-correct because both cutoffs are absolute instants.
func (m *Manager) Check(now time.Time) CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := CheckResult{State: m.state}
	if !m.state.Authenticated() {
		return res
	}

	res.SecondsUntilExpiry = SecondsUntilExpiry(m.expiresAt, now)
	res.SecondsUntilMidnight = SecondsUntilExpiry(m.cutoffAt, now)

	// Hard stops first: the daily cutoff outranks the token's own expiry
	// and both outrank any warning.
	if ForcedLogoutDue(res.SecondsUntilMidnight) {
		m.clearLocked(ReasonMidnightCutoff)
		res.ForcedLogout = true
		res.Reason = ReasonMidnightCutoff
		res.State = m.state
		return res
	}
	if ForcedLogoutDue(res.SecondsUntilExpiry) {
		m.clearLocked(ReasonTokenExpired)
		res.ForcedLogout = true
		res.Reason = ReasonTokenExpired
		res.State = m.state
		return res
	}

	if ShouldWarn(res.SecondsUntilExpiry) && !m.warnLatch && m.state == StateActive {
		m.state = StateWarning
		m.warnLatch = true
		res.WarningRaised = true
		res.State = m.state
	}
	return res
}

// =============================================================================
// BACKGROUND POLL / RESTORE
// =============================================================================

// SetActiveSessionCount records the directory poll result, ignoring
// results from a previous epoch.
func (m *Manager) SetActiveSessionCount(generation uint64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != generation || !m.state.Authenticated() || n < 0 {
		return
	}
	m.activeSessionCount = n
}

// Credentials is the persisted shape of a remembered session: exactly
// the token, its expiry anchors and the principal snapshot, nothing
// else.
type Credentials struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	Principal    api.Principal `json:"principal"`
	ExpiresAt    time.Time     `json:"expires_at"`
	CutoffAt     time.Time     `json:"cutoff_at"`
	Remember     bool          `json:"remember"`
}

// Restore resumes a remembered session. The stored cutoff is honored,
// not recomputed: a credential from a previous calendar day is already
// past its midnight boundary and is rejected with api.ErrSessionExpired.
func (m *Manager) Restore(cred Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn()

	if cred.Token == "" {
		return api.ErrSessionExpired
	}
	if ForcedLogoutDue(SecondsUntilExpiry(cred.CutoffAt, now)) ||
		ForcedLogoutDue(SecondsUntilExpiry(cred.ExpiresAt, now)) {
		return api.ErrSessionExpired
	}

	m.generation++
	m.state = StateActive
	m.token = cred.Token
	m.refreshToken = cred.RefreshToken
	m.principal = cred.Principal
	m.remember = cred.Remember
	m.expiresAt = cred.ExpiresAt
	m.cutoffAt = cred.CutoffAt
	m.warnLatch = false
	m.activeSessionCount = 0
	return nil
}

// ExportCredentials returns the persistable credential snapshot for the
// secure store, or false when unauthenticated or not remembered.
func (m *Manager) ExportCredentials() (Credentials, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Authenticated() || !m.remember {
		return Credentials{}, false
	}
	return Credentials{
		Token:        m.token,
		RefreshToken: m.refreshToken,
		Principal:    m.principal,
		ExpiresAt:    m.expiresAt,
		CutoffAt:     m.cutoffAt,
		Remember:     m.remember,
	}, true
}
