// scheduler.go implements the kernel's core: the Scheduler that owns the
// virtual clock (clock.go) and the event queue (queue.go), and the
// single dispatch step that every controller's loop (controller.go)
// drives one event at a time.
package desim

import (
	"runtime/debug"

	"github.com/joeycumines/logiface"
)

// Scheduler owns a virtual clock, an event queue, and the bookkeeping
// (run state, parked-continuation registry, metrics) needed to drive a
// discrete-event simulation to completion. The zero value is not usable;
// construct one with New.
type Scheduler struct {
	clock

	queue      eventQueue
	seqCounter uint64

	// current is the event presently driving the dispatch loop: the one
	// just popped from queue, whether a fresh dispatch or a resume, or
	// that event's dispatchAs override when it has one.
	current *Event

	// callerOverride, when non-nil, is what resolveCaller returns
	// instead of current; set in matched pairs around a channel
	// rendezvous via SwapCaller so the posted resume event's Caller
	// (and the dispatchAs override applied when it is later run)
	// points at the partner rather than at the synthetic resume.
	callerOverride *Event

	running  *runStateMachine
	registry *registry
	metrics  *runMetrics
	opts     *schedulerOptions

	// currentEC is the EventContext owning whichever body is presently
	// executing, used only by the ambient package funcs (context.go) to
	// reach Sleep/PostContinuing/etc. without the caller holding an
	// EventContext of its own. nil whenever no body is active.
	currentEC *EventContext
}

// New constructs a Scheduler from the given options.
func New(opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		clock:    clock{now: cfg.startTime},
		running:  newRunStateMachine(),
		registry: newRegistry(),
		metrics:  newRunMetrics(cfg.trackSpectrum, cfg.latencyPercentiles),
		opts:     cfg,
	}
	return s, nil
}

// Name returns the scheduler's configured name, or "" if none was set.
func (s *Scheduler) Name() string {
	return s.opts.name
}

// TotalEvents returns the number of events dequeued and dispatched so
// far, including both fresh invocations and continuation resumes.
func (s *Scheduler) TotalEvents() uint64 {
	return s.metrics.eventTotal()
}

// RunState returns the scheduler's current run state.
func (s *Scheduler) RunState() RunState {
	return s.running.Load()
}

// PostEvent schedules target's ordinal method to run at virtual time t,
// which must not be before the scheduler's current time. It does not
// suspend the caller; if called from within an event body, the posted
// event's Caller is attributed to whatever event is currently driving
// the dispatch loop, provided the scheduler tracks event sources.
func (s *Scheduler) PostEvent(t Time, target Entity, ordinal int, args ...any) error {
	if t < s.now {
		return WrapError("post_event", ErrClockReversal)
	}
	e := &Event{
		Time:      t,
		Target:    target,
		Ordinal:   ordinal,
		Args:      args,
		Signature: target.SignatureFor(ordinal),
		Caller:    s.resolveCaller(),
	}
	s.stampDebug(e)
	s.pushEvent(e)
	return nil
}

// EndSimulation requests that the run loop stop once the event body
// presently executing (if any) finishes. Idempotent: calling it more
// than once, including more than once within the same event body, has
// no additional effect beyond the first successful transition.
func (s *Scheduler) EndSimulation() {
	s.running.TryTransition(RunStateRunning, RunStateTerminating)
}

// SwapCaller installs newCaller as the event attributed to any event
// posted before the matching restore call, returning the previous
// override so callers can restore it (s.SwapCaller(prev)). Used by
// Channel's rendezvous to attribute a resume to the waking partner
// rather than to the synthetic resume event that carries it.
func (s *Scheduler) SwapCaller(newCaller *Event) *Event {
	prev := s.callerOverride
	s.callerOverride = newCaller
	return prev
}

// resolveCaller returns the event that should be recorded as Caller on
// an event being created right now, or nil if the scheduler was not
// built with WithTrackEventSources.
func (s *Scheduler) resolveCaller() *Event {
	if !s.opts.trackEventSources {
		return nil
	}
	if s.callerOverride != nil {
		return s.callerOverride
	}
	return s.current
}

// stampDebug captures a creation-site stack trace on e if the scheduler
// was built with WithDebugEvents.
func (s *Scheduler) stampDebug(e *Event) {
	if s.opts.debugEvents {
		e.debugStack = debug.Stack()
	}
}

func (s *Scheduler) nextSeq() uint64 {
	s.seqCounter++
	return s.seqCounter
}

func (s *Scheduler) pushEvent(e *Event) {
	e.Seq = s.nextSeq()
	s.queue.push(e)
}

// pushResume enqueues a resume for c at virtual time at, carrying value
// or err, attributed per resolveCaller/callerOverride. When
// callerOverride is set, the resume event also gets a dispatchAs
// override so dispatchOne reports the partner (not the synthetic
// resume) as "current" while the resumed body runs.
func (s *Scheduler) pushResume(c *Cont, at Time, value any, err error) {
	caller := s.resolveCaller()
	s.pushEvent(&Event{
		Time:         at,
		Continuation: c,
		Args:         []any{value},
		resumeErr:    err,
		Signature:    "<resume>",
		Caller:       caller,
		dispatchAs:   s.callerOverride,
	})
}

// dispatchOne advances the clock to e.Time, then either resumes e's
// parked continuation or spawns a fresh body goroutine for e.Target,
// and blocks until that body parks again or completes.
func (s *Scheduler) dispatchOne(e *Event) error {
	if err := s.advanceTo(e.Time); err != nil {
		return err
	}

	s.current = e
	if e.dispatchAs != nil {
		s.current = e.dispatchAs
	}
	defer func() { s.current = nil }()

	s.metrics.recordDispatch(e.Signature, s.now)
	if s.opts.debugEvents {
		logEvent(s.opts.logger, logiface.LevelTrace, s.opts.name, s.now, catScheduler, "dispatch", map[string]any{
			"signature": e.Signature,
			"seq":       e.Seq,
		})
	}

	var ecx *execContext
	if e.Continuation != nil {
		c := e.Continuation
		ecx = c.ec
		s.currentEC = ecx.owner
		var val any
		if len(e.Args) > 0 {
			val = e.Args[0]
		}
		if err := c.resume(val, e.resumeErr); err != nil {
			return err
		}
	} else {
		ecx = &execContext{yield: make(chan yieldMsg), onComplete: e.onComplete}
		eventCtx := &EventContext{sched: s, ec: ecx}
		ecx.owner = eventCtx
		s.currentEC = eventCtx
		go s.runBody(ecx, eventCtx, e.Target, e.Ordinal, e.Args)
	}

	msg := <-ecx.yield
	s.currentEC = nil
	return s.handleYield(e, ecx, msg)
}

// handleYield processes the outcome of one goroutine handoff: tracking a
// fresh park, resuming a PostContinuing caller on completion, or
// surfacing a fatal UserEventError for an unhandled top-level failure.
func (s *Scheduler) handleYield(e *Event, ecx *execContext, msg yieldMsg) error {
	if msg.parked != nil {
		s.registry.track(msg.parked)
		if s.opts.debugEvents {
			logEvent(s.opts.logger, logiface.LevelTrace, s.opts.name, s.now, catContinuation, "parked", map[string]any{
				"signature": e.Signature,
			})
		}
		return nil
	}

	if ecx.onComplete != nil {
		s.pushResume(ecx.onComplete, s.now, msg.result, msg.err)
		return nil
	}

	if msg.err != nil {
		logErrorEvent(s.opts.logger, s.opts.name, s.now, catScheduler, "event failed", msg.err, map[string]any{
			"signature": e.Signature,
		})
		return &UserEventError{Signature: e.Signature, Time: s.now, Cause: msg.err}
	}
	return nil
}

// terminate marks the scheduler terminated and abandons every still-
// parked continuation (see Cont.reject): no finalizer runs, and no
// parked body is ever resumed after this point.
func (s *Scheduler) terminate() {
	s.running.Store(RunStateTerminated)
	s.registry.RejectAll(ErrEndedByRequest)
	logEvent(s.opts.logger, logiface.LevelDebug, s.opts.name, s.now, catController, "terminated", map[string]any{
		"totalEvents": s.metrics.eventTotal(),
	})
}

