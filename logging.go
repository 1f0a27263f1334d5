// logging.go wires structured logging for the kernel on top of logiface,
// using stumpy as the JSON backend.
//
// Design: a nil *Logger is a fully valid, zero-cost no-op (every method
// on logiface.Logger/Builder/Context nil-checks its receiver before
// touching it), so WithLogger(nil), the implicit default, disables
// logging without a separate NoOpLogger type or an IsEnabled branch on
// every call site.

package desim

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout this package: an
// alias of logiface's generic Logger instantiated with stumpy's JSON
// event type, so the whole process shares one concrete logger type.
type Logger = logiface.Logger[*stumpy.Event]

// Log categories, one per kernel component.
const (
	catScheduler    = "scheduler"
	catContinuation = "continuation"
	catChannel      = "channel"
	catTimer        = "timer"
	catController   = "controller"
)

// NewLogger builds a Logger that writes newline-delimited JSON to w at
// the given minimum level, using stumpy.L exactly as shown in the
// logiface-stumpy examples.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithLevel(level),
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
	)
}

// logEvent emits a single structured log line for category with the
// supplied fields, tagged with the scheduler's name and the current
// virtual time. It is a no-op when logger is nil or the level is
// disabled.
func logEvent(logger *Logger, level logiface.Level, name string, now Time, category, msg string, fields map[string]any) {
	if logger == nil {
		return
	}
	b := logger.Build(level)
	if b == nil || !b.Enabled() {
		return
	}
	b = b.Str("category", category).Uint64("time", uint64(now))
	if name != "" {
		b = b.Str("scheduler", name)
	}
	for k, v := range fields {
		b = b.Any(k, v)
	}
	b.Log(msg)
}

// logErrorEvent is logEvent's counterpart for failures, attaching err via
// Builder.Err so it participates in stumpy's error field rather than
// being stringified into an arbitrary field.
func logErrorEvent(logger *Logger, name string, now Time, category, msg string, err error, fields map[string]any) {
	if logger == nil {
		return
	}
	b := logger.Err()
	if b == nil || !b.Enabled() {
		return
	}
	b = b.Str("category", category).Uint64("time", uint64(now))
	if name != "" {
		b = b.Str("scheduler", name)
	}
	for k, v := range fields {
		b = b.Any(k, v)
	}
	b.Err(err).Log(msg)
}
