// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// lockout.go - Failed-login tracking and account lockout.
//
// Enforces a limit of consecutive failed logons per username within a
// window, then locks the account for a fixed duration. State is in-memory
// like the rest of the dev authority; a restart clears all lockouts.
package authority

import (
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/fleetwatch/internal/logging"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxAttempts is the number of consecutive failed logins
	// before lockout.
	DefaultMaxAttempts = 3

	// DefaultLockoutDuration is how long a locked account stays locked.
	DefaultLockoutDuration = 15 * time.Minute
)

// ErrLocked is returned when a login is blocked because the account is
// locked out.
var ErrLocked = errors.New("account locked: too many failed attempts")

// =============================================================================
// ATTEMPT RECORD
// =============================================================================

// AttemptRecord tracks failed login attempts for one identifier.
type AttemptRecord struct {
	// Count is the number of consecutive failed attempts.
	Count int

	// LastAttempt is the timestamp of the most recent attempt.
	LastAttempt time.Time

	// LockedUntil is when the lockout expires. Zero means not locked.
	LockedUntil time.Time

	// Locked reports whether the identifier is currently locked out.
	Locked bool
}

// expired reports whether the lockout window has passed as of now.
func (a *AttemptRecord) expired(now time.Time) bool {
	return a.Locked && now.After(a.LockedUntil)
}

// =============================================================================
// LOCKOUT MANAGER
// =============================================================================

// LockoutManager tracks failed logins per identifier and locks accounts
// that exceed the attempt limit. Thread-safe.
type LockoutManager struct {
	attempts        map[string]*AttemptRecord
	maxAttempts     int
	lockoutDuration time.Duration
	clock           func() time.Time
	mu              sync.Mutex
}

// LockoutOption configures a LockoutManager.
type LockoutOption func(*LockoutManager)

// WithMaxAttempts sets the failed-attempt limit before lockout.
func WithMaxAttempts(max int) LockoutOption {
	return func(l *LockoutManager) {
		if max > 0 {
			l.maxAttempts = max
		}
	}
}

// WithLockoutDuration sets how long lockouts last.
func WithLockoutDuration(d time.Duration) LockoutOption {
	return func(l *LockoutManager) {
		if d > 0 {
			l.lockoutDuration = d
		}
	}
}

// WithLockoutClock sets the time source. Used by tests.
func WithLockoutClock(clock func() time.Time) LockoutOption {
	return func(l *LockoutManager) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLockoutManager creates a LockoutManager with the given options.
func NewLockoutManager(opts ...LockoutOption) *LockoutManager {
	lm := &LockoutManager{
		attempts:        make(map[string]*AttemptRecord),
		maxAttempts:     DefaultMaxAttempts,
		lockoutDuration: DefaultLockoutDuration,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// =============================================================================
// CORE OPERATIONS
// =============================================================================

// RecordAttempt records a login attempt for the identifier.
//
// A successful attempt resets the counter. A failed attempt increments it
// and triggers lockout at the limit. Returns ErrLocked if the identifier
// is locked at the time of the attempt, including the attempt that causes
// the lockout.
func (l *LockoutManager) RecordAttempt(identifier string, success bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	record, ok := l.attempts[identifier]
	if !ok {
		record = &AttemptRecord{}
		l.attempts[identifier] = record
	}

	if record.Locked && !record.expired(now) {
		logger := logging.Component("lockout")
		logger.Warn().
			Str("remaining", record.LockedUntil.Sub(now).Round(time.Second).String()).
			Msg("login attempt on locked account")
		return ErrLocked
	}

	// Lockout expired: clear it before counting this attempt.
	if record.expired(now) {
		record.Locked = false
		record.LockedUntil = time.Time{}
		record.Count = 0
	}

	record.LastAttempt = now

	if success {
		record.Count = 0
		return nil
	}

	record.Count++
	if record.Count >= l.maxAttempts {
		record.Locked = true
		record.LockedUntil = now.Add(l.lockoutDuration)
		logger := logging.Component("lockout")
		logger.Warn().
			Int("attempts", record.Count).
			Time("until", record.LockedUntil).
			Msg("account locked")
		return ErrLocked
	}

	logger := logging.Component("lockout")
	logger.Debug().
		Int("attempts", record.Count).
		Int("limit", l.maxAttempts).
		Msg("failed login recorded")
	return nil
}

// IsLocked reports whether the identifier is currently locked out.
func (l *LockoutManager) IsLocked(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.attempts[identifier]
	if !ok {
		return false
	}
	return record.Locked && !record.expired(l.clock())
}

// Remaining returns the time left on the identifier's lockout, or zero if
// it is not locked.
func (l *LockoutManager) Remaining(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.attempts[identifier]
	if !ok || !record.Locked {
		return 0
	}
	remaining := record.LockedUntil.Sub(l.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears all attempt state for the identifier.
func (l *LockoutManager) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identifier)
}
