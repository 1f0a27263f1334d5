package desim

// Entity is implemented by user types whose event methods are invoked
// indirectly through a Scheduler. Dispatch tables are ordinarily built
// with DispatchTable rather than hand-rolled, but the kernel only ever
// relies on this interface.
type Entity interface {
	// Invoke executes the method identified by ordinal with the given
	// arguments. It may block (via ec.Sleep, ec.PostContinuing, or a
	// Channel's Put/Take) any number of times before returning. A
	// method invoked with an ordinal it does not recognize should
	// return ErrUnknownOrdinal.
	Invoke(ec *EventContext, ordinal int, args []any) (any, error)

	// SignatureFor returns a stable, human-readable name for ordinal,
	// used for logging, spectrum accounting, and debugging. It must be
	// pure and total: it may not suspend, mutate state, or fail.
	SignatureFor(ordinal int) string
}

// Event is a single scheduled occurrence: either the first dispatch of
// an entity's method, or the resumption of a previously parked
// continuation. Events are ordered strictly by (Time, Seq).
type Event struct {
	Time Time
	Seq  uint64

	// Target is nil only for a pure resumption event (Continuation
	// set, no fresh invocation).
	Target    Entity
	Ordinal   int
	Args      []any
	Signature string

	// Continuation is set iff this event represents the resumption of
	// a previously parked body; in that case Target is nil, Signature
	// is "<resume>" rather than the resumed body's signature, and
	// Args (if non-empty) carries the resume value while resumeErr
	// carries a failure to raise at the park point instead.
	Continuation *Cont
	resumeErr    error

	// Caller is set iff the scheduler was built with
	// WithTrackEventSources, linking this event back to the one whose
	// body caused it to be posted. It must never participate in
	// ordering and is otherwise purely a debugging aid.
	Caller *Event

	// dispatchAs overrides which event is recorded as "current" while
	// this event's body runs, used only for channel-rendezvous resumes
	// so that an entity resumed by a Put/Take sees the partner's event
	// as its caller rather than the synthetic resume event. Set via
	// Scheduler.SwapCaller at the moment the resume is posted.
	dispatchAs *Event

	// onComplete is set on a fresh-dispatch event that was posted by
	// PostContinuing; when the dispatched body eventually completes
	// (possibly after any number of its own parks), the scheduler
	// resumes onComplete with the body's result or error.
	onComplete *Cont

	// debugStack captures the creation-site stack when the scheduler
	// was built with WithDebugEvents.
	debugStack []byte

	// queueIndex is maintained by the heap implementation in queue.go.
	queueIndex int
}
