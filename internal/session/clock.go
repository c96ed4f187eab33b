// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// clock.go - Pure time computations for the expiry policy.
//
// Everything here is side-effect free and takes the instant as an
// argument, so policy behavior is fully testable with synthetic clocks.
package session

import (
	"strconv"
	"time"
)

// =============================================================================
// REFERENCE TIMEZONE
// =============================================================================

// ReferenceZone is the fleet's business timezone: a fixed UTC+9 offset
// (Asia/Dili wall clock, which observes no DST). The daily cutoff is
// computed here regardless of where an operator is physically logged in
// from, so the whole fleet shares one predictable midnight.
var ReferenceZone = time.FixedZone("UTC+9", 9*60*60)

// WarnThresholdSeconds is how close to token expiry the warning raises.
const WarnThresholdSeconds = 300

// secondsPerDay is the length of a reference-zone calendar day. The zone
// is a fixed offset, so days are always exactly 24h (no DST transitions).
const secondsPerDay = 24 * 60 * 60

// =============================================================================
// CLOCK FUNCTIONS
// =============================================================================

// NowInReferenceZone expresses now in the reference timezone.
func NowInReferenceZone(now time.Time) time.Time {
	return now.In(ReferenceZone)
}

// NextMidnight returns the start of the next calendar day in the
// reference zone: the absolute instant a session anchored at refNow must
// not outlive. At exactly midnight it returns the following midnight.
func NextMidnight(refNow time.Time) time.Time {
	refNow = refNow.In(ReferenceZone)
	y, m, d := refNow.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ReferenceZone).AddDate(0, 0, 1)
}

// SecondsUntilNextMidnight returns the whole seconds remaining until the
// next midnight in the reference zone. Zero exactly at a midnight
// instant, never negative.
func SecondsUntilNextMidnight(refNow time.Time) int {
	refNow = refNow.In(ReferenceZone)
	intoDay := refNow.Hour()*3600 + refNow.Minute()*60 + refNow.Second()
	return (secondsPerDay - intoDay) % secondsPerDay
}

// SecondsUntilExpiry returns the whole seconds from now until expiresAt.
// Negative once the expiry has passed.
func SecondsUntilExpiry(expiresAt, now time.Time) int {
	return int(expiresAt.Sub(now) / time.Second)
}

// ShouldWarn reports whether the pre-expiry warning applies: strictly
// positive remaining time within the five-minute threshold. False at
// exactly zero (that is a forced logout, not a warning) and false at
// threshold+1.
func ShouldWarn(secondsUntilExpiry int) bool {
	return secondsUntilExpiry > 0 && secondsUntilExpiry <= WarnThresholdSeconds
}

// ForcedLogoutDue reports whether a countdown has reached zero.
func ForcedLogoutDue(secondsRemaining int) bool {
	return secondsRemaining <= 0
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// FormatCountdown renders seconds as "M:SS" under an hour and "H:MM:SS"
// above it, clamping negatives to zero for display.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return strconv.Itoa(h) + ":" + pad2(m) + ":" + pad2(s)
	}
	return strconv.Itoa(m) + ":" + pad2(s)
}

// FormatDuration returns a human-readable duration string ("45s",
// "12m 30s") for status output.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
