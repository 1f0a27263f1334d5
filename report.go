package desim

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PercentileGap is one entry of Report.EventGapPercentiles: the
// estimated value of the requested percentile (in [0,1]) of the virtual-
// time gap between consecutively dequeued events.
type PercentileGap struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// Report is a snapshot of a Scheduler's observable state. The JSON
// field names (name, startTime, endTime, totalEvents, spectrum,
// duration) are a stable wire format; EventGapPercentiles is an
// optional diagnostic addition.
type Report struct {
	Name                string            `json:"name"`
	StartTime           Time              `json:"startTime"`
	EndTime             Time              `json:"endTime"`
	TotalEvents         uint64            `json:"totalEvents"`
	Spectrum            map[string]uint64 `json:"spectrum"`
	Duration            Time              `json:"duration"`
	EventGapPercentiles []PercentileGap   `json:"eventGapPercentiles,omitempty"`
}

// Report returns a snapshot of the scheduler's current state: elapsed
// virtual time, total dispatched events, and (if enabled) the
// accumulated event-signature spectrum and inter-event latency
// percentiles. It may be called at any time, including mid-run.
func (s *Scheduler) Report() Report {
	start := s.opts.startTime
	now := s.now
	return Report{
		Name:                s.opts.name,
		StartTime:           start,
		EndTime:             now,
		TotalEvents:         s.metrics.eventTotal(),
		Spectrum:            s.metrics.snapshotSpectrum(),
		Duration:            now - start,
		EventGapPercentiles: percentileGaps(s.metrics.snapshotGapPercentiles()),
	}
}

// percentileGaps converts the metrics package's map-keyed-by-percentile
// form into a sorted slice, since JSON map keys must be strings or
// integers and a percentile is neither.
func percentileGaps(m map[float64]float64) []PercentileGap {
	if len(m) == 0 {
		return nil
	}
	out := make([]PercentileGap, 0, len(m))
	for p, v := range m {
		out = append(out, PercentileGap{Percentile: p, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Percentile < out[j].Percentile })
	return out
}

// JSON renders r as the machine-readable report format.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// String renders r as a human-readable plain-text report, one field
// per line followed by a sorted spectrum table.
func (r Report) String() string {
	var b strings.Builder
	name := r.Name
	if name == "" {
		name = "<unnamed>"
	}
	fmt.Fprintf(&b, "scheduler:    %s\n", name)
	fmt.Fprintf(&b, "start time:   %d\n", r.StartTime)
	fmt.Fprintf(&b, "end time:     %d\n", r.EndTime)
	fmt.Fprintf(&b, "duration:     %d\n", r.Duration)
	fmt.Fprintf(&b, "total events: %d\n", r.TotalEvents)
	if len(r.Spectrum) > 0 {
		b.WriteString("spectrum:\n")
		for _, sig := range sortedSignatures(r.Spectrum) {
			fmt.Fprintf(&b, "  %-40s %d\n", sig, r.Spectrum[sig])
		}
	}
	if len(r.EventGapPercentiles) > 0 {
		b.WriteString("event gap percentiles:\n")
		for _, pg := range r.EventGapPercentiles {
			fmt.Fprintf(&b, "  p%-5.2f %f\n", pg.Percentile*100, pg.Value)
		}
	}
	return b.String()
}
