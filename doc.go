// Package desim implements a discrete-event simulation kernel: a virtual
// clock, a priority event queue, an entity-dispatch protocol, a
// continuation mechanism for blocking events, and a rendezvous channel
// built on top of it.
//
// # Architecture
//
// User code is organized around entities, types implementing [Entity],
// whose event methods are invoked indirectly through a [Scheduler]. Every
// invocation is represented by an [Event] carrying a virtual [Time], a
// target [Entity], a method ordinal, and arguments. Events are ordered by
// (time, sequence) and dequeued one at a time by the run loop; exactly one
// entity body executes at any instant.
//
// Some event methods block: they suspend mid-execution, hand control back
// to the scheduler, and resume later with a value or an error. This is the
// job of the continuation service (see [Cont]), implemented with an
// ordinary goroutine per invocation and a single handoff channel per
// invocation, the Go equivalent of the stackful fibers other runtimes use
// for the same purpose. [Channel] is a zero-capacity rendezvous primitive
// built entirely on that mechanism.
//
// # Thread Safety
//
// A [Scheduler] is not safe for concurrent use by multiple OS threads: the
// run loop ([Scheduler.RunToEnd], [Scheduler.StepOne],
// [Scheduler.RealTimePaced]) must only ever be driven from one goroutine
// at a time, and [Scheduler.PostEvent] and the other [EventContext]
// methods must only be called from that same goroutine or from one of the
// per-invocation goroutines the run loop itself spawns for event bodies
// (which it serializes: only one body ever runs at a time, so calling
// back into the scheduler from inside one is safe by construction, not a
// general concurrency allowance). A second concurrent run-loop call fails
// with [ErrSchedulerReentered].
//
// # Usage
//
//	sched, err := desim.New(desim.WithEndTime(100))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sched.InstallAsCurrent(); err != nil {
//	    log.Fatal(err)
//	}
//	defer sched.ClearCurrent()
//	sched.PostEvent(0, myEntity, opSomeMethod, nil)
//	if err := sched.RunToEnd(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Entity dispatch tables ([DispatchTable]) are ordinarily hand-written
// rather than produced by a bytecode rewriter; the kernel itself makes no
// assumption about how ordinal-to-method tables come into being.
//
// [Scheduler.RunToEnd], [Scheduler.StepOne] and [Scheduler.RealTimePaced]
// are the three interchangeable loop shapes of the [Controller] interface.
// [Scheduler.InstallAsCurrent] occupies a process-wide ambient slot so
// that the package funcs [Sleep], [Now], [CreateChannel] and
// [EndSimulation] can be called from anywhere inside a running event
// body without threading an [EventContext] through every call.
// [Scheduler.Report] returns a [Report] snapshot, renderable as plain
// text ([Report.String]) or as the JSON wire format ([Report.JSON]).
//
// # Error Types
//
// The package provides sentinel and wrapped-cause error kinds:
//   - [ErrClockReversal]: an event was posted or resumed at a time before now
//   - [ErrSchedulerReentered]: the run loop was entered recursively
//   - [ErrControllerAlreadyInstalled]: a second ambient controller was installed
//   - [ErrContinuationMisuse]: a continuation was resumed more than once, or
//     resumed after the scheduler that owns it terminated
//   - [ErrUnknownOrdinal]: an entity was invoked with an ordinal its dispatch
//     table does not recognize
//   - [ErrNoCurrentController]: an ambient package func was called with no
//     installed controller, or outside of an event body
//   - [UserEventError]: wraps a panic or error recovered from an event body
//   - [ErrEndedByRequest]: the simulation was stopped via [Scheduler.EndSimulation]
//
// The Err* kinds are plain sentinels, matched with [errors.Is] even when
// returned wrapped; [UserEventError] is matched with [errors.As] and
// unwraps to its cause.
package desim
