// controller.go implements the three interchangeable run-loop shapes:
// run to completion, single-step, and wall-clock-paced. All three
// drive the same dispatchOne (scheduler.go) one event at a time; they
// differ only in how they decide when to stop and how long to wait
// between events.
package desim

import (
	"context"
	"time"
)

// Controller is satisfied by Scheduler itself; it exists so user code
// can depend on "some way to drive a simulation" without committing to
// a particular loop shape.
type Controller interface {
	RunToEnd(ctx context.Context) error
	StepOne() (bool, error)
	RealTimePaced(ctx context.Context, rate time.Duration) error
}

var _ Controller = (*Scheduler)(nil)

// registryScavengeBatch bounds the per-dispatch cost of dropping registry
// entries whose continuation was collected or is no longer parked
// (registry.go).
const registryScavengeBatch = 20

// enterRunning transitions the scheduler from Idle to Running, failing
// ErrSchedulerReentered if a run-loop call (including a recursive one
// from inside an event body) already owns it.
func (s *Scheduler) enterRunning() error {
	if !s.running.TryTransition(RunStateIdle, RunStateRunning) {
		return ErrSchedulerReentered
	}
	return nil
}

// nextDispatchable returns the earliest queued event eligible to run,
// or nil if the queue is empty or its head falls after the configured
// end time.
func (s *Scheduler) nextDispatchable() *Event {
	e := s.queue.peek()
	if e == nil {
		return nil
	}
	if s.opts.hasEndTime && e.Time > s.opts.endTime {
		return nil
	}
	return e
}

// RunToEnd drives the scheduler until the event queue is exhausted (or
// its head passes the configured end time), EndSimulation is called, or
// ctx is cancelled. It returns nil on normal exhaustion,
// ErrEndedByRequest if EndSimulation stopped it, or any error dispatchOne
// surfaced (ErrClockReversal, *UserEventError, ...). A second call while
// the scheduler is already running, including a recursive call from
// inside an event body, fails with ErrSchedulerReentered.
func (s *Scheduler) RunToEnd(ctx context.Context) error {
	if err := s.enterRunning(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.running.TryTransition(RunStateRunning, RunStateIdle)
			return ctx.Err()
		default:
		}

		e := s.nextDispatchable()
		if e == nil {
			break
		}
		s.queue.pop()

		if err := s.dispatchOne(e); err != nil {
			s.terminate()
			return err
		}
		s.registry.Scavenge(registryScavengeBatch)

		if s.running.Load() == RunStateTerminating {
			s.terminate()
			return ErrEndedByRequest
		}
	}

	s.running.TryTransition(RunStateRunning, RunStateIdle)
	return nil
}

// StepOne dispatches at most one event (the earliest queued event
// eligible to run) and returns whether more dispatchable events remain
// afterward. It returns (false, nil) if the queue was already empty (or
// exhausted by the end time) when called. Like RunToEnd, a call made
// while the scheduler is already running fails ErrSchedulerReentered.
func (s *Scheduler) StepOne() (bool, error) {
	if err := s.enterRunning(); err != nil {
		return false, err
	}

	e := s.nextDispatchable()
	if e == nil {
		s.running.TryTransition(RunStateRunning, RunStateIdle)
		return false, nil
	}
	s.queue.pop()

	if err := s.dispatchOne(e); err != nil {
		s.terminate()
		return false, err
	}
	s.registry.Scavenge(registryScavengeBatch)

	if s.running.Load() == RunStateTerminating {
		s.terminate()
		return false, ErrEndedByRequest
	}

	s.running.TryTransition(RunStateRunning, RunStateIdle)
	return s.nextDispatchable() != nil, nil
}

// RealTimePaced behaves exactly like RunToEnd except that, before
// dispatching each event, it blocks the wall clock for the virtual gap
// since the last dispatched event scaled by rate (or by the scheduler's
// WithRealTimeRate option if rate is zero or negative). It exists for
// demos and interactive tools that want a simulation to run no faster
// than a human can follow; it has no bearing on virtual-time semantics.
func (s *Scheduler) RealTimePaced(ctx context.Context, rate time.Duration) error {
	if rate <= 0 {
		rate = s.opts.realTimeRate
	}

	if err := s.enterRunning(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.running.TryTransition(RunStateRunning, RunStateIdle)
			return ctx.Err()
		default:
		}

		e := s.nextDispatchable()
		if e == nil {
			break
		}

		if wait := time.Duration(e.Time-s.now) * rate; wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.running.TryTransition(RunStateRunning, RunStateIdle)
				return ctx.Err()
			case <-timer.C:
			}
		}

		s.queue.pop()
		if err := s.dispatchOne(e); err != nil {
			s.terminate()
			return err
		}
		s.registry.Scavenge(registryScavengeBatch)

		if s.running.Load() == RunStateTerminating {
			s.terminate()
			return ErrEndedByRequest
		}
	}

	s.running.TryTransition(RunStateRunning, RunStateIdle)
	return nil
}
