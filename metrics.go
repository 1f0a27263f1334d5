package desim

import (
	"sort"
	"sync"
)

// runMetrics accumulates the optional diagnostic data surfaced on a
// Report: per-signature event counts (the "spectrum") and streaming
// percentiles of the virtual-time gap between consecutively dequeued
// events. Both are opt-in (WithTrackSpectrum, WithLatencyPercentiles)
// since they cost a map write or an estimator update per dispatch.
type runMetrics struct {
	mu sync.Mutex

	trackSpectrum bool
	spectrum      map[string]uint64

	percentiles  []float64
	gapEstimates []*gapQuantile
	haveLastTime bool
	lastTime     Time

	totalEvents uint64
}

func newRunMetrics(trackSpectrum bool, percentiles []float64) *runMetrics {
	m := &runMetrics{
		trackSpectrum: trackSpectrum,
		percentiles:   percentiles,
	}
	if trackSpectrum {
		m.spectrum = make(map[string]uint64)
	}
	for _, p := range percentiles {
		m.gapEstimates = append(m.gapEstimates, newGapQuantile(p))
	}
	return m
}

// recordDispatch is called once per dequeued event, immediately before
// its body runs.
func (m *runMetrics) recordDispatch(signature string, t Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalEvents++

	if m.trackSpectrum {
		m.spectrum[signature]++
	}

	if len(m.gapEstimates) > 0 {
		if m.haveLastTime {
			gap := int64(t) - int64(m.lastTime)
			if gap < 0 {
				gap = 0
			}
			for _, est := range m.gapEstimates {
				est.observe(float64(gap))
			}
		}
		m.haveLastTime = true
		m.lastTime = t
	}
}

// snapshotSpectrum returns a copy of the per-signature event counts, or
// nil if spectrum tracking is disabled.
func (m *runMetrics) snapshotSpectrum() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.trackSpectrum {
		return nil
	}
	out := make(map[string]uint64, len(m.spectrum))
	for k, v := range m.spectrum {
		out[k] = v
	}
	return out
}

// snapshotGapPercentiles returns the requested percentiles of the
// inter-event virtual-time gap, keyed by the percentile value passed to
// WithLatencyPercentiles, or nil if that option was never set.
func (m *runMetrics) snapshotGapPercentiles() map[float64]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.gapEstimates) == 0 {
		return nil
	}
	out := make(map[float64]float64, len(m.percentiles))
	for i, p := range m.percentiles {
		out[p] = m.gapEstimates[i].estimate()
	}
	return out
}

func (m *runMetrics) eventTotal() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalEvents
}

// sortedSignatures returns the spectrum's keys in sorted order, for
// deterministic Report text rendering.
func sortedSignatures(spectrum map[string]uint64) []string {
	out := make([]string, 0, len(spectrum))
	for k := range spectrum {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
