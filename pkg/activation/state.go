// Package activation owns the platform activation state machine and the
// rate-limited transitions between parked and operating lengths.
package activation

import (
	"errors"
	"fmt"
)

// State is the operator-facing platform state.
type State string

const (
	StateInitialized State = "initialized"
	StateDeactivated State = "deactivated"
	StateEnabled     State = "enabled"
	StateRunning     State = "running"
	StatePaused      State = "paused"
)

// States lists every platform state in lifecycle order.
var States = []State{StateInitialized, StateDeactivated, StateEnabled, StateRunning, StatePaused}

// ErrInvalidTransition is returned for requests missing from the transition table.
var ErrInvalidTransition = errors.New("invalid platform state transition")

var transitions = map[State][]State{
	StateInitialized: {StateDeactivated},
	StateDeactivated: {StateEnabled},
	StateEnabled:     {StateDeactivated, StateRunning, StatePaused},
	StateRunning:     {StateEnabled, StatePaused, StateDeactivated},
	StatePaused:      {StateEnabled, StateRunning, StateDeactivated},
}

// Allowed reports whether the table permits from -> to.
func Allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Targets returns the states reachable from s.
func Targets(s State) []State {
	return append([]State(nil), transitions[s]...)
}

// ParseState maps a name to a State.
func ParseState(name string) (State, error) {
	for _, s := range States {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown platform state %q", name)
}

// Index returns the ordinal of s in States, or -1.
func (s State) Index() int {
	for i, v := range States {
		if v == s {
			return i
		}
	}
	return -1
}
