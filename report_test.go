package desim

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReportString verifies the plain-text rendering carries the name,
// total-events and duration lines and lists the spectrum in sorted
// signature order.
func TestReportString(t *testing.T) {
	sched, err := New(WithName("render"), WithTrackSpectrum(true))
	require.NoError(t, err)

	e := newFuncEntity()
	ordB := e.on("beta", func(ec *EventContext, args []any) (any, error) { return nil, nil })
	ordA := e.on("alpha", func(ec *EventContext, args []any) (any, error) { return nil, nil })

	require.NoError(t, sched.PostEvent(1, e, ordB))
	require.NoError(t, sched.PostEvent(2, e, ordA))
	require.NoError(t, sched.RunToEnd(context.Background()))

	text := sched.Report().String()
	assert.Contains(t, text, "scheduler:    render")
	assert.Contains(t, text, "total events: 2")
	assert.Contains(t, text, "duration:     2")

	// Sorted spectrum order, not registration order.
	alphaIdx := strings.Index(text, "alpha")
	betaIdx := strings.Index(text, "beta")
	require.NotEqual(t, -1, alphaIdx)
	require.NotEqual(t, -1, betaIdx)
	assert.Less(t, alphaIdx, betaIdx)
}

// TestReportGapPercentiles verifies WithLatencyPercentiles surfaces the
// requested percentiles of the inter-dispatch virtual-time gap, sorted
// ascending by percentile.
func TestReportGapPercentiles(t *testing.T) {
	sched, err := New(WithLatencyPercentiles(0.99, 0.5))
	require.NoError(t, err)

	e := newFuncEntity()
	ord := e.on("tick", func(ec *EventContext, args []any) (any, error) { return nil, nil })

	// Events spaced a constant 10 ticks apart: every gap is exactly 10,
	// so any sane estimate of any percentile is 10.
	for i := Time(0); i < 20; i++ {
		require.NoError(t, sched.PostEvent(i*10, e, ord))
	}
	require.NoError(t, sched.RunToEnd(context.Background()))

	report := sched.Report()
	require.Len(t, report.EventGapPercentiles, 2)
	assert.Equal(t, 0.5, report.EventGapPercentiles[0].Percentile)
	assert.Equal(t, 0.99, report.EventGapPercentiles[1].Percentile)
	for _, pg := range report.EventGapPercentiles {
		assert.InDelta(t, 10, pg.Value, 0.001, "p%v", pg.Percentile)
	}
}
