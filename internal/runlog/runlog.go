// Package runlog implements the iteration recovery log: a loop driver that
// invokes risky per-iteration work, records each iteration's outcome, and
// unconditionally proceeds to the next iteration.
//
// A failing iteration never aborts the loop and never re-raises. This is
// the same "log and continue" policy the rest of the system applies at its
// execution boundaries: the caller gets the full accumulators back and can
// inspect exactly which iterations failed and why.
package runlog

import (
	"errors"
	"log/slog"

	"github.com/roach88/salvage/internal/outcome"
)

// ErrNegativeCount is returned when the requested iteration count is
// negative. Infrastructure faults like this propagate normally; only
// faults raised by the iteration body are intercepted.
var ErrNegativeCount = errors.New("runlog: iteration count must not be negative")

// Body is the caller-supplied per-iteration work. It receives the 1-based
// iteration index and either produces a value or fails (by returning an
// error or by panicking).
type Body func(i int) (any, error)

// Entry records one failed iteration. Entries are appended in the order
// the failures occurred and are never mutated afterwards.
type Entry struct {
	// Iteration is the 1-based index of the iteration that failed.
	Iteration int `json:"iteration"`

	// Err is the captured failure message.
	Err string `json:"error"`
}

// Log holds the pair of accumulators built while iterating.
type Log struct {
	// Errors lists failed iterations in order of occurrence. Each entry
	// carries its own iteration index, so order-of-appearance and index
	// are both recoverable.
	Errors []Entry `json:"errors"`

	// Results has one slot per iteration; slot i-1 backs iteration i.
	// A nil slot marks an iteration that failed.
	Results []any `json:"results"`
}

// Result returns the value produced by iteration i (1-based) and whether
// the iteration succeeded.
func (l *Log) Result(i int) (any, bool) {
	if i < 1 || i > len(l.Results) {
		return nil, false
	}
	v := l.Results[i-1]
	return v, v != nil
}

// Len returns the number of iterations the log covers.
func (l *Log) Len() int {
	return len(l.Results)
}

// Succeeded returns the count of iterations that completed normally.
func (l *Log) Succeeded() int {
	return len(l.Results) - len(l.Errors)
}

// Observer is notified after every iteration with its outcome. Observers
// run on the driving goroutine, in iteration order.
type Observer func(i int, out outcome.Outcome)

// Option configures the loop driver.
type Option func(*driver)

// WithLogger sets the logger used for per-iteration progress notices.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *driver) {
		d.logger = logger
	}
}

// WithObserver registers a per-iteration observer. Useful for journaling
// outcomes as they are produced.
func WithObserver(fn Observer) Option {
	return func(d *driver) {
		d.observer = fn
	}
}

type driver struct {
	logger   *slog.Logger
	observer Observer
}

// Run drives body for i from 1 to n in strictly ascending order, recording
// each iteration's outcome. A failing iteration is appended to the error
// log and the loop proceeds immediately to the next index: no early
// termination, no re-raising.
//
// Run always performs exactly n iterations and returns a Log whose Results
// has length n. n == 0 is valid and yields empty accumulators. n < 0 is an
// infrastructure error and is returned without running anything.
//
// The progress notices emitted per iteration are diagnostics only; the
// data contract is the returned Log.
func Run(n int, body Body, opts ...Option) (*Log, error) {
	if n < 0 {
		return nil, ErrNegativeCount
	}

	d := &driver{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	log := &Log{
		Errors:  []Entry{},
		Results: make([]any, n),
	}

	for i := 1; i <= n; i++ {
		i := i
		out := outcome.Guard(func() (any, error) { return body(i) })

		if d.observer != nil {
			d.observer(i, out)
		}

		if out.Failed() {
			log.Errors = append(log.Errors, Entry{Iteration: i, Err: out.Err})
			d.logger.Warn("iteration failed", "iteration", i, "error", out.Err)
			continue
		}

		log.Results[i-1] = out.Value
		d.logger.Info("iteration succeeded", "iteration", i)
	}

	d.logger.Info("recovery log complete",
		"iterations", n,
		"succeeded", log.Succeeded(),
		"failed", len(log.Errors),
	)

	return log, nil
}
