package models

import (
	"fmt"
)

// InitState tracks the lifecycle of the navigation initialization
// routine within one page view.
type InitState string

// Strict initialization states for the loader FSM
const (
	InitStateNotStarted InitState = "not_started" // Routine has not run; a load may or may not be in flight
	InitStateRunning    InitState = "running"     // Routine is executing right now
	InitStateCompleted  InitState = "completed"   // Routine finished (success or clean degraded exit)
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[InitState]map[InitState]bool{
	InitStateNotStarted: {
		InitStateRunning: true, // NotStarted → Running (readiness reached, payload resolved)
	},
	InitStateRunning: {
		InitStateCompleted: true, // Running → Completed (routine returned)
	},
	// Terminal state (no transitions allowed)
	InitStateCompleted: {},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to InitState) error {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	if !allowedStates[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}

	return nil
}

// IsTerminalState returns true if the state is terminal (no further transitions)
func IsTerminalState(state InitState) bool {
	return state == InitStateCompleted
}

// IsActiveState returns true if the routine is currently executing
func IsActiveState(state InitState) bool {
	return state == InitStateRunning
}
