// continuation.go implements the continuation mechanism: every event
// body runs on its own goroutine, handing control back to the scheduler
// over a single unbuffered channel it keeps for its entire lifetime,
// however many times it parks and resumes. This is the Go equivalent of
// the stackful fiber a non-goroutine runtime would need for the same
// purpose, and it is why a parked body can later resume exactly where it
// suspended without the scheduler reconstructing any state.
//
// The scheduler's dispatch loop is always blocked reading from that
// channel while a body is active, so it is the only goroutine ever
// reading or writing scheduler state at any instant, and the active
// body goroutine is free to call back into the Scheduler (PostEvent,
// Sleep, PostContinuing, Channel.Put/Take) without any locking of its
// own.
package desim

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// contState is the lifecycle of a single Cont: parked until resumed or
// abandoned, then permanently done.
type contState int32

const (
	contParked contState = iota
	contDone
)

// resumeMsg is delivered to a parked Cont's resumeCh exactly once.
type resumeMsg struct {
	value any
	err   error
}

// Cont is an opaque handle to a suspended event body, created by
// EventContext.newPark and consumed exactly once, either by resume (the
// scheduler dispatching a matching resume Event) or by abandon (registry
// teardown at simulation end).
type Cont struct {
	ec       *execContext
	resumeCh chan resumeMsg
	st       atomic.Int32
}

func newCont(ec *execContext) *Cont {
	c := &Cont{ec: ec, resumeCh: make(chan resumeMsg, 1)}
	c.st.Store(int32(contParked))
	return c
}

// state returns the continuation's current lifecycle state.
func (c *Cont) state() contState {
	return contState(c.st.Load())
}

// resume delivers v/err to the parked body exactly once. It fails with
// ErrContinuationMisuse if c was already resumed or abandoned.
func (c *Cont) resume(v any, err error) error {
	if !c.st.CompareAndSwap(int32(contParked), int32(contDone)) {
		return WrapError("resume", ErrContinuationMisuse)
	}
	c.resumeCh <- resumeMsg{value: v, err: err}
	return nil
}

// reject abandons c without ever resuming its goroutine: the parked
// goroutine is left blocked on resumeCh forever rather than forced to
// run user code during simulation teardown. It is a deliberate,
// documented leak (see Scheduler's termination behavior), not a bug: Go
// gives no way to cancel a goroutine from the outside, and a body that
// never learns its wait was abandoned cannot be made to observe that
// fact any other way.
func (c *Cont) reject(error) {
	c.st.CompareAndSwap(int32(contParked), int32(contDone))
}

// wait blocks until c is resumed.
func (c *Cont) wait() resumeMsg {
	return <-c.resumeCh
}

// yieldMsg is sent on an execContext's yield channel whenever its body
// either parks or completes.
type yieldMsg struct {
	// parked is set when the body suspended; the scheduler must track
	// it and wait for some future Event to resume it.
	parked *Cont

	// done is set when the body's Invoke returned.
	done   bool
	result any
	err    error
}

// execContext is the single handoff channel a body's goroutine keeps for
// its entire lifetime, reused across every park/resume cycle within that
// one invocation. onComplete, if set, is the PostContinuing caller's
// continuation to resume once this body finally completes.
type execContext struct {
	yield      chan yieldMsg
	onComplete *Cont

	// owner is the EventContext created alongside this execContext when
	// its body's goroutine was first spawned, reused across every
	// park/resume cycle. Scheduler.dispatchOne copies it into
	// Scheduler.currentEC so the ambient package funcs (context.go) can
	// reach the active body without it threading an EventContext through
	// every call.
	owner *EventContext
}

// EventContext is passed to an Entity's Invoke method and threaded
// through any blocking calls it makes. It is the caller-facing handle
// onto both the owning Scheduler and this particular invocation's
// execContext.
type EventContext struct {
	sched *Scheduler
	ec    *execContext
}

// Scheduler returns the EventContext's owning scheduler.
func (ec *EventContext) Scheduler() *Scheduler {
	return ec.sched
}

// Now returns the scheduler's current virtual time.
func (ec *EventContext) Now() Time {
	return ec.sched.now
}

// CurrentEvent returns the event presently driving the scheduler's
// dispatch loop. During a resumed body it is the resume event, not the
// body's original dispatch event, except for a body woken by a channel
// rendezvous, where it is the partner's event (see Event.dispatchAs),
// matching the run loop's definition of "current".
func (ec *EventContext) CurrentEvent() *Event {
	return ec.sched.current
}

// newPark creates the Cont for an imminent suspension of this body. The
// caller must finish wiring it into whatever will resume it (a queued
// resume event, a channel wait queue, an onComplete link) before
// calling suspend: once suspend hands control back to the scheduler,
// the next event's body may already be running, and touching scheduler
// or channel state from this goroutine would race with it.
func (ec *EventContext) newPark() *Cont {
	return newCont(ec.ec)
}

// suspend yields control to the scheduler loop and blocks until c is
// resumed, returning the value or error the resume carried.
func (ec *EventContext) suspend(c *Cont) resumeMsg {
	ec.ec.yield <- yieldMsg{parked: c}
	return c.wait()
}

// Sleep suspends the calling body until virtual time advances by d,
// then resumes it with no value. d may be zero, which yields to any
// other event already queued at the current time before resuming.
func (ec *EventContext) Sleep(d Time) {
	s := ec.sched
	if s.opts.debugEvents {
		logEvent(s.opts.logger, logiface.LevelTrace, s.opts.name, s.now, catTimer, "sleep", map[string]any{
			"duration": uint64(d),
		})
	}
	c := ec.newPark()
	s.pushResume(c, s.now+d, nil, nil)
	ec.suspend(c)
}

// PostContinuing invokes target's ordinal method as a fresh event at the
// current virtual time, suspends the calling body, and resumes it with
// that invocation's eventual result or error once the callee (including
// any of its own suspensions) completes.
func (ec *EventContext) PostContinuing(target Entity, ordinal int, args ...any) (any, error) {
	s := ec.sched
	callerCont := ec.newPark()
	e := &Event{
		Time:       s.now,
		Target:     target,
		Ordinal:    ordinal,
		Args:       args,
		Signature:  target.SignatureFor(ordinal),
		Caller:     s.resolveCaller(),
		onComplete: callerCont,
	}
	s.stampDebug(e)
	s.pushEvent(e)
	rm := ec.suspend(callerCont)
	return rm.value, rm.err
}

// EndSimulation requests that the run loop stop after the current event
// body finishes, equivalent to Scheduler.EndSimulation.
func (ec *EventContext) EndSimulation() {
	ec.sched.EndSimulation()
}

// PostEvent schedules target's ordinal method to run at time t,
// attributing Caller to the event currently driving this context if the
// scheduler tracks event sources. It is equivalent to
// Scheduler.PostEvent, provided on EventContext for convenience.
func (ec *EventContext) PostEvent(t Time, target Entity, ordinal int, args ...any) error {
	return ec.sched.PostEvent(t, target, ordinal, args...)
}

// runBody executes target's Invoke on its own goroutine, recovering any
// panic into an error, and reports completion on ecx.yield.
func (s *Scheduler) runBody(ecx *execContext, eventCtx *EventContext, target Entity, ordinal int, args []any) {
	var result any
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = asError(r)
			}
		}()
		result, err = target.Invoke(eventCtx, ordinal, args)
	}()
	ecx.yield <- yieldMsg{done: true, result: result, err: err}
}
