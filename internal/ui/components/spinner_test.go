// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
)

func TestSpinnerConstructors(t *testing.T) {
	tests := []struct {
		name    string
		spinner Spinner
		message string
	}{
		{"sign-in", NewSignInSpinner(), "Signing in"},
		{"refresh", NewRefreshSpinner(), "Refreshing session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.spinner.message != tt.message {
				t.Errorf("message = %q, want %q", tt.spinner.message, tt.message)
			}
			if tt.spinner.IsActive() {
				t.Error("spinner active before Start")
			}
			if len(tt.spinner.spinner.Spinner.Frames) == 0 {
				t.Error("spinner has no animation frames")
			}
		})
	}
}

func TestSpinnerStartStop(t *testing.T) {
	s := NewRefreshSpinner()

	cmd := s.Start()
	if cmd == nil {
		t.Error("Start returned no tick command")
	}
	if !s.IsActive() {
		t.Error("spinner inactive after Start")
	}

	s.Stop()
	if s.IsActive() {
		t.Error("spinner still active after Stop")
	}
}

func TestSpinnerView(t *testing.T) {
	s := NewSignInSpinner()
	if view := s.View(); view != "" {
		t.Errorf("inactive View = %q, want empty", view)
	}

	s.Start()
	view := s.View()
	if view == "" {
		t.Fatal("active View is empty")
	}
	if !strings.Contains(view, "Signing in") {
		t.Errorf("View %q missing label", view)
	}

	// main.go swaps the label between refresh and restore validation.
	s.SetMessage("validating restored session")
	if view := s.View(); !strings.Contains(view, "validating restored session") {
		t.Errorf("View %q missing updated label", view)
	}
}

func TestSpinnerUpdateWhileInactive(t *testing.T) {
	s := NewRefreshSpinner()

	// Stale ticks after Stop must not re-arm the tick chain.
	updated, cmd := s.Update(struct{}{})
	if cmd != nil {
		t.Error("inactive Update returned a command")
	}
	if updated.IsActive() {
		t.Error("Update activated a stopped spinner")
	}
}
