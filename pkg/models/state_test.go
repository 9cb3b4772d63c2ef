package models

import (
	"testing"
	"time"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    InitState
		to      InitState
		wantErr bool
	}{
		// Valid transitions
		{"NotStarted to Running", InitStateNotStarted, InitStateRunning, false},
		{"Running to Completed", InitStateRunning, InitStateCompleted, false},

		// Invalid transitions
		{"NotStarted to Completed", InitStateNotStarted, InitStateCompleted, true},
		{"Running to NotStarted", InitStateRunning, InitStateNotStarted, true},
		{"Completed to Running", InitStateCompleted, InitStateRunning, true},
		{"Completed to NotStarted", InitStateCompleted, InitStateNotStarted, true},
		{"Running to Running", InitStateRunning, InitStateRunning, true},
		{"Unknown source state", InitState("paused"), InitStateRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransition(%v, %v) error = %v, wantErr %v",
					tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestIsTerminalState(t *testing.T) {
	tests := []struct {
		name     string
		state    InitState
		expected bool
	}{
		{"Completed is terminal", InitStateCompleted, true},
		{"NotStarted is not terminal", InitStateNotStarted, false},
		{"Running is not terminal", InitStateRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsTerminalState(tt.state)
			if result != tt.expected {
				t.Errorf("IsTerminalState(%v) = %v, want %v", tt.state, result, tt.expected)
			}
		})
	}
}

func TestSourceAttemptResolve(t *testing.T) {
	attempt := &SourceAttempt{
		PageViewID: "view-1",
		Tier:       TierPrimary,
		URL:        "https://cdn.example.com/nav.js",
		Status:     AttemptPending,
		StartedAt:  time.Now().Add(-50 * time.Millisecond),
	}

	if attempt.IsResolved() {
		t.Error("Pending attempt should not be resolved")
	}

	attempt.Resolve(AttemptFailed, "connection refused")

	if !attempt.IsResolved() {
		t.Error("Attempt should be resolved after Resolve")
	}
	if attempt.Status != AttemptFailed {
		t.Errorf("Expected status %s, got %s", AttemptFailed, attempt.Status)
	}
	if attempt.Error != "connection refused" {
		t.Errorf("Expected error message to be recorded, got %q", attempt.Error)
	}
	if attempt.Duration <= 0 {
		t.Errorf("Expected positive duration, got %v", attempt.Duration)
	}
}
