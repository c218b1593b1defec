package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReadRun returns the metadata for a run token.
func (j *Journal) ReadRun(ctx context.Context, token string) (Run, error) {
	var run Run
	var seed int64
	err := j.db.QueryRowContext(ctx,
		`SELECT token, scenario, iterations, seed, started_at FROM runs WHERE token = ?`,
		token,
	).Scan(&run.Token, &run.Scenario, &run.Iterations, &seed, &run.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", token, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", token, err)
	}
	run.Seed = uint64(seed)
	return run, nil
}

// ListRuns returns all journaled runs, oldest first.
func (j *Journal) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT token, scenario, iterations, seed, started_at FROM runs ORDER BY started_at, token`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var seed int64
		if err := rows.Scan(&run.Token, &run.Scenario, &run.Iterations, &seed, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Seed = uint64(seed)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently started run.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	var seed int64
	err := j.db.QueryRowContext(ctx,
		`SELECT token, scenario, iterations, seed, started_at FROM runs ORDER BY started_at DESC, token DESC LIMIT 1`,
	).Scan(&run.Token, &run.Scenario, &run.Iterations, &seed, &run.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	run.Seed = uint64(seed)
	return run, nil
}

// ReadIterations returns all iteration records for a run in ascending
// index order.
func (j *Journal) ReadIterations(ctx context.Context, token string) ([]IterationRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT idx, success, value, error FROM iterations WHERE run_token = ? ORDER BY idx ASC`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("read iterations of run %s: %w", token, err)
	}
	defer rows.Close()

	var recs []IterationRecord
	for rows.Next() {
		var rec IterationRecord
		var success int
		if err := rows.Scan(&rec.Iteration, &success, &rec.Value, &rec.Err); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		rec.Success = success == 1
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// FailedIterations returns the failed iteration records for a run in
// ascending index order.
func (j *Journal) FailedIterations(ctx context.Context, token string) ([]IterationRecord, error) {
	recs, err := j.ReadIterations(ctx, token)
	if err != nil {
		return nil, err
	}
	failed := recs[:0:0]
	for _, rec := range recs {
		if !rec.Success {
			failed = append(failed, rec)
		}
	}
	return failed, nil
}

// ReadSnapshot returns the seed snapshot captured for iteration idx.
func (j *Journal) ReadSnapshot(ctx context.Context, token string, idx int) ([]byte, error) {
	var state []byte
	err := j.db.QueryRowContext(ctx,
		`SELECT state FROM snapshots WHERE run_token = ? AND idx = ?`,
		token, idx,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d of run %s: %w", idx, token, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %d of run %s: %w", idx, token, err)
	}
	return state, nil
}
