package desim

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecursiveRepost drives a self-reposting event that sleeps one
// tick before each recursive post, bounded by the end time. The
// recursive call is a non-blocking PostEvent, so each invocation prints
// its own tick on the way out and the trace ascends: a blocking
// recursion would instead stack up callers whose deepest sleep falls
// past the end time, never resuming, and nothing would print at all.
func TestRecursiveRepost(t *testing.T) {
	sched, err := New(WithEndTime(5))
	require.NoError(t, err)

	var prints []Time
	e := newFuncEntity()
	var ord int
	ord = e.on("event1", func(ec *EventContext, args []any) (any, error) {
		ec.Sleep(1)
		require.NoError(t, ec.PostEvent(ec.Now(), e, ord))
		prints = append(prints, ec.Now())
		return nil, nil
	})

	require.NoError(t, sched.PostEvent(0, e, ord))
	require.NoError(t, sched.RunToEnd(context.Background()))

	assert.Equal(t, []Time{1, 2, 3, 4, 5}, prints)
}

// TestEventThroughput drives a self-recursive op() bounded by a counter
// rather than an end time, asserting the exact event count, spectrum
// count and final virtual time.
func TestEventThroughput(t *testing.T) {
	const n = 5

	sched, err := New(WithTrackSpectrum(true))
	require.NoError(t, err)

	e := newFuncEntity()
	count := 0
	var ord int
	ord = e.on("op", func(ec *EventContext, args []any) (any, error) {
		ec.Sleep(1)
		count++
		if count < n {
			require.NoError(t, ec.PostEvent(ec.Now(), e, ord))
		}
		return nil, nil
	})

	require.NoError(t, sched.PostEvent(0, e, ord))
	require.NoError(t, sched.RunToEnd(context.Background()))

	assert.Equal(t, n, count)
	assert.Equal(t, Time(n), sched.Now())

	report := sched.Report()
	assert.Equal(t, uint64(n), report.Spectrum["op"])
}

// TestFIFOTiebreak verifies events posted at the same time in a given
// order are dispatched in that same order.
func TestFIFOTiebreak(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var order []int
	e := newFuncEntity()
	ord := e.on("record", func(ec *EventContext, args []any) (any, error) {
		order = append(order, args[0].(int))
		return nil, nil
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, sched.PostEvent(5, e, ord, i))
	}

	require.NoError(t, sched.RunToEnd(context.Background()))
	assert.Equal(t, []int{1, 2, 3}, order)
}

// TestTimeMonotonicity verifies now never decreases across any sequence
// of dispatched events, including ones posted out of time order.
func TestTimeMonotonicity(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var times []Time
	e := newFuncEntity()
	ord := e.on("observe", func(ec *EventContext, args []any) (any, error) {
		times = append(times, ec.Now())
		return nil, nil
	})

	for _, tm := range []Time{7, 2, 9, 2, 4} {
		require.NoError(t, sched.PostEvent(tm, e, ord))
	}

	require.NoError(t, sched.RunToEnd(context.Background()))
	require.Len(t, times, 5)
	for i := 1; i < len(times); i++ {
		assert.LessOrEqual(t, times[i-1], times[i])
	}
	assert.Equal(t, []Time{2, 2, 4, 7, 9}, times)
}

// TestBlockingReturn verifies PostContinuing returns the callee's
// result.
func TestBlockingReturn(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	callee := newFuncEntity()
	calleeOrd := callee.on("double", func(ec *EventContext, args []any) (any, error) {
		return args[0].(int) * 2, nil
	})

	caller := newFuncEntity()
	var got any
	callerOrd := caller.on("call", func(ec *EventContext, args []any) (any, error) {
		v, err := ec.PostContinuing(callee, calleeOrd, 21)
		got = v
		return nil, err
	})

	require.NoError(t, sched.PostEvent(0, caller, callerOrd))
	require.NoError(t, sched.RunToEnd(context.Background()))
	assert.Equal(t, 42, got)
}

// TestSleepAccuracy verifies that after Sleep(d) starting at now0,
// now == now0+d at the resumption point.
func TestSleepAccuracy(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var resumedAt Time
	e := newFuncEntity()
	ord := e.on("nap", func(ec *EventContext, args []any) (any, error) {
		before := ec.Now()
		ec.Sleep(17)
		resumedAt = ec.Now()
		_ = before
		return nil, nil
	})

	require.NoError(t, sched.PostEvent(3, e, ord))
	require.NoError(t, sched.RunToEnd(context.Background()))
	assert.Equal(t, Time(20), resumedAt)
}

// TestSpectrumFaithfulness verifies that with spectrum tracking on,
// each signature's count equals the number of dequeued events carrying
// it.
func TestSpectrumFaithfulness(t *testing.T) {
	sched, err := New(WithTrackSpectrum(true))
	require.NoError(t, err)

	e := newFuncEntity()
	ord := e.on("ping", func(ec *EventContext, args []any) (any, error) {
		return nil, nil
	})

	for i := range 10 {
		require.NoError(t, sched.PostEvent(Time(i), e, ord))
	}
	require.NoError(t, sched.RunToEnd(context.Background()))

	report := sched.Report()
	assert.Equal(t, uint64(10), report.Spectrum["ping"])
	assert.Equal(t, uint64(10), report.TotalEvents)
}

// TestReportJSONRoundTrip verifies a Report's JSON encoding round-trips
// field for field.
func TestReportJSONRoundTrip(t *testing.T) {
	sched, err := New(WithName("roundtrip"), WithTrackSpectrum(true))
	require.NoError(t, err)

	e := newFuncEntity()
	ord := e.on("tick", func(ec *EventContext, args []any) (any, error) {
		return nil, nil
	})
	require.NoError(t, sched.PostEvent(3, e, ord))
	require.NoError(t, sched.RunToEnd(context.Background()))

	want := sched.Report()
	data, err := want.JSON()
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want, got)
}

// TestEndSimulationIdempotent verifies calling EndSimulation twice
// within one event body is equivalent to calling it once.
func TestEndSimulationIdempotent(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	e := newFuncEntity()
	ord := e.on("stop", func(ec *EventContext, args []any) (any, error) {
		ec.EndSimulation()
		ec.EndSimulation()
		return nil, nil
	})

	require.NoError(t, sched.PostEvent(0, e, ord))
	err = sched.RunToEnd(context.Background())
	require.True(t, errors.Is(err, ErrEndedByRequest))
	assert.Equal(t, RunStateTerminated, sched.RunState())
}

// TestClockReversalRejected verifies PostEvent refuses a time before now.
func TestClockReversalRejected(t *testing.T) {
	sched, err := New(WithStartTime(10))
	require.NoError(t, err)

	e := newFuncEntity()
	ord := e.on("noop", func(ec *EventContext, args []any) (any, error) { return nil, nil })

	err = sched.PostEvent(5, e, ord)
	require.True(t, errors.Is(err, ErrClockReversal))
}
