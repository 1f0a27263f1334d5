package desim

import (
	"sync/atomic"
)

// RunState represents the current state of a Scheduler's run loop.
//
// State Machine:
//
//	RunStateIdle (0) → RunStateRunning (1)         [RunToEnd/StepOne/RealTimePaced entry]
//	RunStateRunning (1) → RunStateIdle (0)          [run loop returns, queue empty or StepOne completes a step]
//	RunStateRunning (1) → RunStateTerminating (2)   [EndSimulation]
//	RunStateRunning (1) → RunStateTerminated (3)    [a dispatch fails]
//	RunStateTerminating (2) → RunStateTerminated (3) [run loop observes termination and returns]
//	RunStateTerminated (3) → (terminal)
//
// Use TryTransition (CAS) to enter/leave RunStateRunning; a failed CAS
// into RunStateRunning from a call already holding it is how
// ErrSchedulerReentered is detected without a mutex on the hot path.
type RunState uint64

const (
	// RunStateIdle indicates no run-loop call is currently executing.
	RunStateIdle RunState = 0
	// RunStateRunning indicates a run-loop call owns the scheduler.
	RunStateRunning RunState = 1
	// RunStateTerminating indicates EndSimulation was called and the
	// run loop is unwinding.
	RunStateTerminating RunState = 2
	// RunStateTerminated is the terminal state: no further run-loop
	// call will succeed.
	RunStateTerminated RunState = 3
)

// String returns a human-readable representation of the state.
func (s RunState) String() string {
	switch s {
	case RunStateIdle:
		return "Idle"
	case RunStateRunning:
		return "Running"
	case RunStateTerminating:
		return "Terminating"
	case RunStateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// runStateMachine is a lock-free state machine with cache-line padding,
// used to guard a Scheduler's run loop against reentrant invocation
// without taking a mutex on every dispatch.
type runStateMachine struct { // betteralign:ignore
	_ [64]byte      // cache line padding (before value) //nolint:unused
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line (64 - 8 = 56) //nolint:unused
}

// newRunStateMachine creates a new state machine in RunStateIdle.
func newRunStateMachine() *runStateMachine {
	s := &runStateMachine{}
	s.v.Store(uint64(RunStateIdle))
	return s
}

// Load returns the current state atomically.
func (s *runStateMachine) Load() RunState {
	return RunState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
// Only used for the irreversible RunStateTerminated transition.
func (s *runStateMachine) Store(state RunState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another, returning whether it succeeded.
func (s *runStateMachine) TryTransition(from, to RunState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsTerminal returns true if the scheduler has terminated.
func (s *runStateMachine) IsTerminal() bool {
	return s.Load() == RunStateTerminated
}
