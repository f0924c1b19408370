package bookings

import (
	"fmt"
)

// WorkflowState is the phase a single Book call is in.
type WorkflowState string

const (
	StateValidating WorkflowState = "VALIDATING"
	StateReserving  WorkflowState = "RESERVING"
	StatePersisting WorkflowState = "PERSISTING"
	StateReleasing  WorkflowState = "RELEASING"
	StateConfirmed  WorkflowState = "CONFIRMED"
	StateFailed     WorkflowState = "FAILED"
)

// validTransitions defines allowed state transitions
// Key is current state, value is list of allowed next states
var validTransitions = map[WorkflowState][]WorkflowState{
	StateValidating: {StateReserving, StateFailed},
	StateReserving:  {StatePersisting, StateFailed},
	StatePersisting: {StateConfirmed, StateReleasing},
	StateReleasing:  {StateFailed},
	StateConfirmed:  {}, // Terminal state
	StateFailed:     {}, // Terminal state
}

// IsTerminal returns true if the state is a terminal state
func (s WorkflowState) IsTerminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// CanTransitionTo returns true if transition to the target state is allowed
func (s WorkflowState) CanTransitionTo(target WorkflowState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// workflow records the path one booking attempt takes.
type workflow struct {
	state WorkflowState
	path  []WorkflowState
}

func newWorkflow() *workflow {
	return &workflow{
		state: StateValidating,
		path:  []WorkflowState{StateValidating},
	}
}

// to moves the workflow forward. An illegal move is a programming error in
// this package, so it panics rather than returning.
func (w *workflow) to(next WorkflowState) {
	if !w.state.CanTransitionTo(next) {
		panic(fmt.Sprintf("bookings: illegal workflow transition %s -> %s", w.state, next))
	}
	w.state = next
	w.path = append(w.path, next)
}

func (w *workflow) trace() []string {
	out := make([]string, len(w.path))
	for i, s := range w.path {
		out[i] = string(s)
	}
	return out
}
