// context.go implements the ambient "current controller": a single
// process-wide slot letting user code call Sleep, Now, CreateChannel and
// EndSimulation without threading an EventContext through every call.
package desim

import "sync"

var ambient struct {
	sync.RWMutex
	sched *Scheduler
}

// InstallAsCurrent occupies the ambient "current controller" slot with
// s, enabling the package-level Sleep/Now/CreateChannel/EndSimulation
// funcs for the duration of its run. It fails ErrControllerAlreadyInstalled
// if another Scheduler already occupies the slot; re-entrant
// installation (even of the same Scheduler) is forbidden by the same
// rule. Callers must pair a successful call with ClearCurrent, typically
// via defer.
func (s *Scheduler) InstallAsCurrent() error {
	ambient.Lock()
	defer ambient.Unlock()
	if ambient.sched != nil {
		return ErrControllerAlreadyInstalled
	}
	ambient.sched = s
	return nil
}

// ClearCurrent vacates the ambient slot if s currently occupies it; it
// is a no-op otherwise (in particular, it never clears a slot installed
// by some other Scheduler).
func (s *Scheduler) ClearCurrent() {
	ambient.Lock()
	defer ambient.Unlock()
	if ambient.sched == s {
		ambient.sched = nil
	}
}

// currentScheduler returns the installed ambient Scheduler, or nil if
// none is installed.
func currentScheduler() *Scheduler {
	ambient.RLock()
	defer ambient.RUnlock()
	return ambient.sched
}

// currentEventContext returns the EventContext of the body presently
// driving the ambient controller's dispatch loop. It fails
// ErrNoCurrentController if no Scheduler is installed, or one is
// installed but no event body is currently executing on it, which is
// the case for any call made outside of an event body, since the
// ambient funcs are only meaningful from inside one.
func currentEventContext() (*EventContext, error) {
	s := currentScheduler()
	if s == nil || s.currentEC == nil {
		return nil, ErrNoCurrentController
	}
	return s.currentEC, nil
}

// Sleep suspends the calling event body, running on the ambient
// installed Scheduler, for d ticks of virtual time. It fails
// ErrNoCurrentController if called outside of an event body.
func Sleep(d Time) error {
	ec, err := currentEventContext()
	if err != nil {
		return err
	}
	ec.Sleep(d)
	return nil
}

// Now returns the ambient installed Scheduler's current virtual time.
// It fails ErrNoCurrentController if called outside of an event body.
func Now() (Time, error) {
	ec, err := currentEventContext()
	if err != nil {
		return 0, err
	}
	return ec.Now(), nil
}

// EndSimulation requests that the ambient installed Scheduler's run
// loop stop once the current event body finishes. It fails
// ErrNoCurrentController if called outside of an event body.
func EndSimulation() error {
	ec, err := currentEventContext()
	if err != nil {
		return err
	}
	ec.EndSimulation()
	return nil
}

// CreateChannel returns a new rendezvous Channel carrying values of
// type T, after confirming an event body is currently executing on the
// ambient installed Scheduler. It fails ErrNoCurrentController if
// called outside of an event body; the returned Channel is otherwise
// ordinary and not itself tied to any particular Scheduler.
func CreateChannel[T any]() (*Channel[T], error) {
	if _, err := currentEventContext(); err != nil {
		return nil, err
	}
	return NewChannel[T](), nil
}
