package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/salvage/internal/journal"
	"github.com/roach88/salvage/internal/outcome"
	"github.com/roach88/salvage/internal/scenario"
	"github.com/roach88/salvage/internal/seed"
)

// ReplayResult compares one iteration's recorded outcome with the outcome
// produced by restoring its seed snapshot and re-executing the body.
type ReplayResult struct {
	Iteration int `json:"iteration"`

	// Captured is false when the iteration never reached a random draw,
	// so there is no snapshot to replay from.
	Captured bool `json:"captured"`

	// Match reports whether the replayed outcome is identical to the
	// recorded one.
	Match bool `json:"match"`

	Recorded string `json:"recorded,omitempty"`
	Replayed string `json:"replayed,omitempty"`
}

// VerifyReplay re-executes every captured iteration of a finished run
// from its seed snapshot and returns the indexes whose outcome diverged
// from the recorded one. An empty slice means the run replays
// deterministically.
//
// The report's stream is mutated by each restore; the report must not be
// used for further draws afterwards.
func (e *Engine) VerifyReplay(rep *Report) ([]int, error) {
	if rep.book == nil {
		return nil, errors.New("report carries no snapshot book")
	}

	var diverged []int
	for _, i := range rep.book.Indexes() {
		if err := rep.book.Replay(i); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		out := guardedEvaluate(rep.program, rep.sc.Consts, rep.stream, i)

		if !e.outcomeMatchesReport(rep, i, out) {
			diverged = append(diverged, i)
			e.logger.Warn("replay diverged", "iteration", i, "replayed_error", out.Err)
		}
	}
	return diverged, nil
}

// ReplayFromJournal restores journaled seed snapshots and re-executes the
// scenario body for a recorded run. With iteration 0 every failed
// iteration is replayed; otherwise only the requested one.
//
// This is the manual two-step reproduction made operational: restore the
// captured state, reissue the same call, and compare what comes out with
// what the journal recorded.
func (e *Engine) ReplayFromJournal(ctx context.Context, sc *scenario.Scenario, token string, iteration int) ([]ReplayResult, error) {
	if e.journal == nil {
		return nil, errors.New("no journal configured")
	}

	run, err := e.journal.ReadRun(ctx, token)
	if err != nil {
		return nil, err
	}
	if run.Scenario != journal.NormalizeLabel(sc.Name) {
		return nil, fmt.Errorf("scenario %q does not match journaled run scenario %q", sc.Name, run.Scenario)
	}

	program, err := expr.Compile(sc.Body)
	if err != nil {
		return nil, fmt.Errorf("compile scenario body: %w", err)
	}

	var records []journal.IterationRecord
	if iteration > 0 {
		all, err := e.journal.ReadIterations(ctx, token)
		if err != nil {
			return nil, err
		}
		for _, rec := range all {
			if rec.Iteration == iteration {
				records = append(records, rec)
				break
			}
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("iteration %d of run %s: %w", iteration, token, journal.ErrNotFound)
		}
	} else {
		records, err = e.journal.FailedIterations(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	// The restored snapshot fully determines the generator state, so the
	// stream's own seed is irrelevant here; the run seed keeps intent clear.
	stream := seed.NewStream(run.Seed)

	results := make([]ReplayResult, 0, len(records))
	for _, rec := range records {
		result := ReplayResult{Iteration: rec.Iteration, Recorded: recordedString(rec)}

		snap, err := e.journal.ReadSnapshot(ctx, token, rec.Iteration)
		if errors.Is(err, journal.ErrNotFound) {
			results = append(results, result)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Captured = true

		if err := stream.Restore(snap); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", rec.Iteration, err)
		}

		out := guardedEvaluate(program, sc.Consts, stream, rec.Iteration)
		result.Replayed = replayedString(out)
		result.Match = outcomeMatchesRecord(rec, out)

		results = append(results, result)
	}
	return results, nil
}

// guardedEvaluate runs the body once for iteration i with snapshot
// capture disabled, intercepting any fault.
func guardedEvaluate(program *vm.Program, consts map[string]any, stream *seed.Stream, i int) outcome.Outcome {
	return outcome.Guard(func() (any, error) {
		return evaluate(program, consts, stream, nil, i)
	})
}

func (e *Engine) outcomeMatchesReport(rep *Report, i int, out outcome.Outcome) bool {
	if value, ok := rep.Result(i); ok {
		return out.Success && reflect.DeepEqual(value, out.Value)
	}
	for _, entry := range rep.Failed {
		if entry.Iteration == i {
			return out.Failed() && out.Err == entry.Err
		}
	}
	return false
}

func outcomeMatchesRecord(rec journal.IterationRecord, out outcome.Outcome) bool {
	if rec.Success != out.Success {
		return false
	}
	if !rec.Success {
		return rec.Err == out.Err
	}
	encoded, err := json.Marshal(out.Value)
	if err != nil {
		return false
	}
	return rec.Value == string(encoded)
}

func recordedString(rec journal.IterationRecord) string {
	if rec.Success {
		return rec.Value
	}
	return rec.Err
}

func replayedString(out outcome.Outcome) string {
	if out.Failed() {
		return out.Err
	}
	encoded, err := json.Marshal(out.Value)
	if err != nil {
		return fmt.Sprintf("unencodable value: %v", out.Value)
	}
	return string(encoded)
}
