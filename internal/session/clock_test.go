// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"
)

// =============================================================================
// MIDNIGHT COUNTDOWN TESTS
// =============================================================================

func TestSecondsUntilNextMidnight(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{
			"mid afternoon",
			time.Date(2025, 3, 10, 14, 0, 0, 0, ReferenceZone),
			10 * 3600,
		},
		{
			"one second before midnight",
			time.Date(2025, 3, 10, 23, 59, 59, 0, ReferenceZone),
			1,
		},
		{
			"exact midnight is the boundary",
			time.Date(2025, 3, 11, 0, 0, 0, 0, ReferenceZone),
			0,
		},
		{
			"one second after midnight",
			time.Date(2025, 3, 11, 0, 0, 1, 0, ReferenceZone),
			secondsPerDay - 1,
		},
		{
			"month boundary",
			time.Date(2025, 3, 31, 23, 59, 30, 0, ReferenceZone),
			30,
		},
		{
			"year boundary",
			time.Date(2025, 12, 31, 23, 0, 0, 0, ReferenceZone),
			3600,
		},
		{
			// 15:00 UTC is midnight in the reference zone. The caller's
			// zone must not matter.
			"UTC instant converts to reference zone",
			time.Date(2025, 3, 10, 14, 59, 59, 0, time.UTC),
			1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SecondsUntilNextMidnight(tc.now); got != tc.want {
				t.Errorf("SecondsUntilNextMidnight(%v) = %d, want %d", tc.now, got, tc.want)
			}
		})
	}
}

func TestNextMidnight(t *testing.T) {
	afternoon := time.Date(2025, 3, 10, 14, 0, 0, 0, ReferenceZone)
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, ReferenceZone)
	if got := NextMidnight(afternoon); !got.Equal(want) {
		t.Errorf("NextMidnight(%v) = %v, want %v", afternoon, got, want)
	}

	// Logging in at the stroke of midnight grants the full next day.
	midnight := time.Date(2025, 3, 11, 0, 0, 0, 0, ReferenceZone)
	want = time.Date(2025, 3, 12, 0, 0, 0, 0, ReferenceZone)
	if got := NextMidnight(midnight); !got.Equal(want) {
		t.Errorf("NextMidnight(%v) = %v, want %v", midnight, got, want)
	}

	// December 31 rolls into the new year.
	newYearsEve := time.Date(2025, 12, 31, 18, 30, 0, 0, ReferenceZone)
	want = time.Date(2026, 1, 1, 0, 0, 0, 0, ReferenceZone)
	if got := NextMidnight(newYearsEve); !got.Equal(want) {
		t.Errorf("NextMidnight(%v) = %v, want %v", newYearsEve, got, want)
	}
}

func TestNextMidnight_AgreesWithCountdown(t *testing.T) {
	// The absolute anchor and the displayed countdown must tell the same
	// story for any instant strictly before the boundary.
	instants := []time.Time{
		time.Date(2025, 3, 10, 0, 0, 1, 0, ReferenceZone),
		time.Date(2025, 3, 10, 12, 34, 56, 0, ReferenceZone),
		time.Date(2025, 3, 10, 23, 59, 59, 0, ReferenceZone),
	}
	for _, now := range instants {
		anchor := NextMidnight(now)
		viaAnchor := int(anchor.Sub(now) / time.Second)
		viaCountdown := SecondsUntilNextMidnight(now)
		if viaAnchor != viaCountdown {
			t.Errorf("at %v: anchor says %d, countdown says %d", now, viaAnchor, viaCountdown)
		}
	}
}

// =============================================================================
// EXPIRY AND WARNING TESTS
// =============================================================================

func TestSecondsUntilExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	if got := SecondsUntilExpiry(now.Add(90*time.Second), now); got != 90 {
		t.Errorf("90s ahead = %d, want 90", got)
	}
	if got := SecondsUntilExpiry(now, now); got != 0 {
		t.Errorf("same instant = %d, want 0", got)
	}
	if got := SecondsUntilExpiry(now.Add(-30*time.Second), now); got != -30 {
		t.Errorf("30s past = %d, want -30", got)
	}
}

func TestShouldWarn(t *testing.T) {
	tests := []struct {
		seconds int
		want    bool
	}{
		{301, false},
		{300, true},
		{150, true},
		{1, true},
		{0, false}, // already expired: forced logout territory, not a warning
		{-10, false},
	}
	for _, tc := range tests {
		if got := ShouldWarn(tc.seconds); got != tc.want {
			t.Errorf("ShouldWarn(%d) = %v, want %v", tc.seconds, got, tc.want)
		}
	}
}

func TestForcedLogoutDue(t *testing.T) {
	tests := []struct {
		seconds int
		want    bool
	}{
		{1, false},
		{0, true},
		{-1, true},
	}
	for _, tc := range tests {
		if got := ForcedLogoutDue(tc.seconds); got != tc.want {
			t.Errorf("ForcedLogoutDue(%d) = %v, want %v", tc.seconds, got, tc.want)
		}
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{60, "1:00"},
		{299, "4:59"},
		{300, "5:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{36000, "10:00:00"},
		{-5, "0:00"},
	}
	for _, tc := range tests {
		if got := FormatCountdown(tc.seconds); got != tc.want {
			t.Errorf("FormatCountdown(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m 30s"},
		{5 * time.Minute, "5m"},
		{5*time.Minute + 30*time.Second, "5m 30s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.input); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
