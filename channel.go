// channel.go implements the rendezvous channel: a zero-capacity
// synchronous primitive built entirely on the continuation service
// (continuation.go). A Put with a receiver already waiting resumes that
// receiver and returns without ever parking; otherwise it parks the
// sender and waits for some later Take to arrive. Take is symmetric.
package desim

import "github.com/joeycumines/logiface"

// sendWaiter is one sender parked on a Channel, holding the value it
// offered until some Take claims it.
type sendWaiter[T any] struct {
	cont  *Cont
	value T
}

// Channel is a zero-capacity rendezvous channel: at most one of its two
// wait queues is ever non-empty. Values pass from a Put directly to a
// Take with no buffering and no advance of virtual time; the handoff
// itself happens at whatever "now" the two sides meet at.
//
// A Channel is not safe for use by multiple goroutines outside the
// single-threaded cooperative model the owning Scheduler enforces: Put
// and Take must only ever be called from inside an event body (i.e.
// with the EventContext that body was invoked with).
type Channel[T any] struct {
	senders   []sendWaiter[T]
	receivers []*Cont
}

// NewChannel returns an empty rendezvous channel carrying values of type T.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Put hands v to the oldest waiting receiver, resuming it immediately
// and returning without suspending the caller. If no receiver is
// waiting, Put parks the calling body in the sender queue until some
// future Take claims v, at which point it resumes with whatever error
// (if any) that Take's resume carried.
func (ch *Channel[T]) Put(ec *EventContext, v T) error {
	s := ec.sched
	if len(ch.receivers) > 0 {
		recv := ch.receivers[0]
		ch.receivers = ch.receivers[1:]
		s.wakePartner(recv, v, nil)
		return nil
	}

	c := ec.newPark()
	ch.senders = append(ch.senders, sendWaiter[T]{cont: c, value: v})
	rm := ec.suspend(c)
	return rm.err
}

// Take claims the oldest waiting sender's value, resuming it
// immediately and returning that value without suspending the caller.
// If no sender is waiting, Take parks the calling body in the receiver
// queue until some future Put arrives.
func (ch *Channel[T]) Take(ec *EventContext) (T, error) {
	s := ec.sched
	var zero T

	if len(ch.senders) > 0 {
		snd := ch.senders[0]
		ch.senders = ch.senders[1:]
		s.wakePartner(snd.cont, nil, nil)
		return snd.value, nil
	}

	c := ec.newPark()
	ch.receivers = append(ch.receivers, c)
	rm := ec.suspend(c)
	if rm.err != nil {
		return zero, rm.err
	}
	v, _ := rm.value.(T)
	return v, nil
}

// wakePartner resumes a waiting partner's continuation at the current
// time, attributing the resumption's caller chain to the event
// currently driving the dispatch loop (the Put/Take that found the
// partner) rather than to the synthetic resume event that will carry
// it, so source tracking reports the partner as the immediate caller.
func (s *Scheduler) wakePartner(c *Cont, value any, err error) {
	if s.opts.debugEvents {
		logEvent(s.opts.logger, logiface.LevelTrace, s.opts.name, s.now, catChannel, "rendezvous", nil)
	}
	prev := s.SwapCaller(s.current)
	s.pushResume(c, s.now, value, err)
	s.SwapCaller(prev)
}
