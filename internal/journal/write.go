package journal

import (
	"context"
	"fmt"
)

// Run is the journaled metadata for one batch run.
type Run struct {
	Token      string `json:"token"`
	Scenario   string `json:"scenario"`
	Iterations int    `json:"iterations"`
	Seed       uint64 `json:"seed"`
	StartedAt  string `json:"started_at,omitempty"`
}

// IterationRecord is the journaled outcome of one iteration.
// Value holds the JSON encoding of the result for successful iterations;
// Err holds the captured message for failed ones.
type IterationRecord struct {
	Iteration int    `json:"iteration"`
	Success   bool   `json:"success"`
	Value     string `json:"value,omitempty"`
	Err       string `json:"error,omitempty"`
}

// WriteRun records run metadata. The scenario label is NFC-normalized
// before it is stored.
func (j *Journal) WriteRun(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (token, scenario, iterations, seed) VALUES (?, ?, ?, ?)`,
		run.Token, NormalizeLabel(run.Scenario), run.Iterations, int64(run.Seed),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.Token, err)
	}
	return nil
}

// WriteIteration records one iteration's outcome for a run. Writing the
// same (run, iteration) twice is an error: iteration outcomes are
// immutable after creation.
func (j *Journal) WriteIteration(ctx context.Context, token string, rec IterationRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO iterations (run_token, idx, success, value, error) VALUES (?, ?, ?, ?, ?)`,
		token, rec.Iteration, success, rec.Value, rec.Err,
	)
	if err != nil {
		return fmt.Errorf("write iteration %d of run %s: %w", rec.Iteration, token, err)
	}
	return nil
}

// WriteSnapshot records the seed snapshot captured before iteration idx's
// risky draw.
func (j *Journal) WriteSnapshot(ctx context.Context, token string, idx int, state []byte) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_token, idx, state) VALUES (?, ?, ?)`,
		token, idx, state,
	)
	if err != nil {
		return fmt.Errorf("write snapshot %d of run %s: %w", idx, token, err)
	}
	return nil
}
