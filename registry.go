package desim

import "weak"

// registry tracks parked continuations so terminate can abandon every
// one still waiting when the simulation ends. Entries are weak
// pointers: a continuation whose resume source was dropped by user code
// (say, a channel no entity references anymore) stays collectable, and
// a long run never accumulates entries for continuations resumed long
// ago.
//
// Only the run-loop goroutine touches the registry (track from
// handleYield, Scavenge from the controllers, RejectAll from
// terminate), so it needs no locking.
type registry struct {
	parked []weak.Pointer[Cont]
	sweep  int // cursor of the incremental sweep
}

func newRegistry() *registry {
	return &registry{}
}

// track records a continuation that just parked.
func (r *registry) track(c *Cont) {
	r.parked = append(r.parked, weak.Make(c))
}

// Scavenge examines up to batch entries, dropping any whose
// continuation was collected or has already left the parked state. The
// cursor wraps, so every entry is revisited within len/batch calls and
// the per-dispatch cost stays bounded no matter how many continuations
// have ever parked. Dropped entries are filled by swapping the last
// entry down, which keeps the slice dense without shifting.
func (r *registry) Scavenge(batch int) {
	for ; batch > 0 && len(r.parked) > 0; batch-- {
		if r.sweep >= len(r.parked) {
			r.sweep = 0
		}
		c := r.parked[r.sweep].Value()
		if c != nil && c.state() == contParked {
			r.sweep++
			continue
		}
		last := len(r.parked) - 1
		r.parked[r.sweep] = r.parked[last]
		r.parked[last] = weak.Pointer[Cont]{}
		r.parked = r.parked[:last]
	}
}

// RejectAll abandons every continuation still parked, then empties the
// registry. Called once, when the scheduler terminates.
func (r *registry) RejectAll(err error) {
	for _, wp := range r.parked {
		if c := wp.Value(); c != nil {
			c.reject(err)
		}
	}
	r.parked = nil
	r.sweep = 0
}
