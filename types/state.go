package types

import "fmt"

// TestState tracks a single test through the scheduler.
//
//	Pending -> Skipped  -> Reported
//	Pending -> Running  -> Completed -> Reported
//	                    -> TimedOut  -> Reported
type TestState int

const (
	StatePending TestState = iota
	StateSkipped
	StateRunning
	StateCompleted
	StateTimedOut
	StateReported
)

var stateNames = [...]string{"pending", "skipped", "running", "completed", "timed_out", "reported"}

func (s TestState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

var stateTransitions = map[TestState][]TestState{
	StatePending:   {StateSkipped, StateRunning},
	StateSkipped:   {StateReported},
	StateRunning:   {StateCompleted, StateTimedOut},
	StateCompleted: {StateReported},
	StateTimedOut:  {StateReported},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to TestState) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TestState) IsTerminal() bool {
	return s == StateReported
}
