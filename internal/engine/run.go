package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/salvage/internal/journal"
	"github.com/roach88/salvage/internal/outcome"
	"github.com/roach88/salvage/internal/runlog"
	"github.com/roach88/salvage/internal/scenario"
	"github.com/roach88/salvage/internal/seed"
)

// Report is the result of running a scenario: the recovery log's
// accumulators plus run identity. The embedded stream and snapshot book
// stay with the report so VerifyReplay can re-execute captured
// iterations.
type Report struct {
	Token      string         `json:"token"`
	Scenario   string         `json:"scenario"`
	Iterations int            `json:"iterations"`
	Succeeded  int            `json:"succeeded"`
	Failed     []runlog.Entry `json:"failed"`
	Results    []any          `json:"results"`

	sc      *scenario.Scenario
	program *vm.Program
	stream  *seed.Stream
	book    *seed.Book
}

// Result returns iteration i's value and whether the iteration succeeded.
func (r *Report) Result(i int) (any, bool) {
	if i < 1 || i > len(r.Results) {
		return nil, false
	}
	v := r.Results[i-1]
	return v, v != nil
}

// Run executes a scenario: compile the body once, then drive the
// iteration recovery log for the scenario's iteration count. Every
// iteration's outcome (and its seed snapshot, when the body drew
// randomness) is journaled under a fresh run token.
//
// Faults raised by the body are intercepted per iteration and never
// propagate. Errors returned by Run itself are infrastructure failures:
// an uncompilable body, a negative iteration count, or a journal that
// cannot accept the run row.
func (e *Engine) Run(ctx context.Context, sc *scenario.Scenario) (*Report, error) {
	program, err := expr.Compile(sc.Body)
	if err != nil {
		return nil, fmt.Errorf("compile scenario body: %w", err)
	}

	stream := seed.NewStream(sc.Seed)
	book := seed.NewBook(stream)
	token := e.tokens.Generate()

	if e.journal != nil {
		run := journal.Run{
			Token:      token,
			Scenario:   sc.Name,
			Iterations: sc.Iterations,
			Seed:       sc.Seed,
		}
		if err := e.journal.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("journal run: %w", err)
		}
	}

	e.logger.Info("run starting",
		"token", token,
		"scenario", sc.Name,
		"iterations", sc.Iterations,
		"seed", sc.Seed,
	)

	body := func(i int) (any, error) {
		return evaluate(program, sc.Consts, stream, book, i)
	}

	log, err := runlog.Run(sc.Iterations, body,
		runlog.WithLogger(e.logger),
		runlog.WithObserver(func(i int, out outcome.Outcome) {
			e.journalIteration(ctx, token, i, out, book)
		}),
	)
	if err != nil {
		return nil, err
	}

	e.logger.Info("run complete",
		"token", token,
		"succeeded", log.Succeeded(),
		"failed", len(log.Errors),
	)

	return &Report{
		Token:      token,
		Scenario:   sc.Name,
		Iterations: sc.Iterations,
		Succeeded:  log.Succeeded(),
		Failed:     log.Errors,
		Results:    log.Results,
		sc:         sc,
		program:    program,
		stream:     stream,
		book:       book,
	}, nil
}

// evaluate runs the compiled body for iteration i. The snapshot book may
// be nil during replay, where capturing again would clobber the slot
// being reproduced.
func evaluate(program *vm.Program, consts map[string]any, stream *seed.Stream, book *seed.Book, i int) (any, error) {
	var capErr error
	captured := false
	capture := func() {
		if captured || book == nil {
			return
		}
		captured = true
		capErr = book.Capture(i)
	}

	out, err := expr.Run(program, environment(i, consts, stream, capture))
	if capErr != nil {
		return nil, fmt.Errorf("capture seed state: %w", capErr)
	}
	return out, err
}

// journalIteration writes one iteration outcome (and its snapshot, if one
// was captured) to the journal. Journal write failures are logged, not
// raised: losing a diagnostic row must not fail the iteration it
// describes.
func (e *Engine) journalIteration(ctx context.Context, token string, i int, out outcome.Outcome, book *seed.Book) {
	if e.journal == nil {
		return
	}

	rec := journal.IterationRecord{
		Iteration: i,
		Success:   out.Success,
		Err:       out.Err,
	}
	if out.Success {
		encoded, err := json.Marshal(out.Value)
		if err != nil {
			e.logger.Error("encode iteration value", "iteration", i, "error", err)
			return
		}
		rec.Value = string(encoded)
	}

	if err := e.journal.WriteIteration(ctx, token, rec); err != nil {
		e.logger.Error("journal iteration", "iteration", i, "error", err)
	}

	if snap, ok := book.Snapshot(i); ok {
		if err := e.journal.WriteSnapshot(ctx, token, i, snap); err != nil {
			e.logger.Error("journal snapshot", "iteration", i, "error", err)
		}
	}
}
