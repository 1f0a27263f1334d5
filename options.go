// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package desim

import "time"

// schedulerOptions holds configuration resolved from SchedulerOption values.
type schedulerOptions struct {
	name               string
	startTime          Time
	endTime            Time
	hasEndTime         bool
	trackSpectrum      bool
	trackEventSources  bool
	debugEvents        bool
	logger             *Logger
	latencyPercentiles []float64
	realTimeRate       time.Duration
}

// SchedulerOption configures a Scheduler at construction time.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

type schedulerOptionImpl struct {
	applyFunc func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applyFunc(opts)
}

// WithName sets a human-readable name for the scheduler, surfaced on
// Report and in every log line it emits.
func WithName(name string) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.name = name
		return nil
	}}
}

// WithStartTime sets the clock's initial virtual time. Defaults to 0.
func WithStartTime(t Time) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.startTime = t
		return nil
	}}
}

// WithEndTime bounds RunToEnd to stop once the clock would advance past
// t, even if the event queue is non-empty. Without this option, RunToEnd
// runs until the queue is drained or EndSimulation is called.
func WithEndTime(t Time) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.endTime = t
		opts.hasEndTime = true
		return nil
	}}
}

// WithTrackSpectrum enables per-signature event-count accounting,
// available afterwards via Report.Spectrum. Disabled by default since it
// allocates a map entry per distinct signature.
func WithTrackSpectrum(enabled bool) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.trackSpectrum = enabled
		return nil
	}}
}

// WithTrackEventSources enables recording the caller chain (Event.Caller)
// for every posted event, so failures can be traced back to the event
// that caused them. Disabled by default: it retains every Event on the
// chain for as long as any descendant event is still reachable.
func WithTrackEventSources(enabled bool) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.trackEventSources = enabled
		return nil
	}}
}

// WithDebugEvents enables a trace-level log line for every dequeued
// event, including its signature, time, and sequence number.
func WithDebugEvents(enabled bool) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.debugEvents = enabled
		return nil
	}}
}

// WithLogger installs a structured logger. A nil logger (the default)
// disables logging entirely at zero cost on the hot path.
func WithLogger(logger *Logger) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithLatencyPercentiles enables tracking of the given percentiles (each
// in [0,1]) of the virtual-time gap between consecutively dequeued
// events, surfaced via Report.EventGapPercentiles. Disabled by default.
func WithLatencyPercentiles(percentiles ...float64) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.latencyPercentiles = append([]float64(nil), percentiles...)
		return nil
	}}
}

// WithRealTimeRate sets the wall-clock duration that RealTimePaced
// treats as equivalent to one unit of virtual time. It has no effect on
// RunToEnd or StepOne.
func WithRealTimeRate(d time.Duration) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.realTimeRate = d
		return nil
	}}
}

// resolveSchedulerOptions applies a slice of SchedulerOption to a fresh
// schedulerOptions, skipping nil entries.
func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		realTimeRate: time.Millisecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
