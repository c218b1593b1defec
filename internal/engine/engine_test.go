package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salvage/internal/journal"
	"github.com/roach88/salvage/internal/scenario"
	"github.com/roach88/salvage/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, j *journal.Journal) *Engine {
	t.Helper()
	return New(j,
		WithLogger(quietLogger()),
		WithTokenGenerator(testutil.NewFixedTokenGenerator("test-run")),
	)
}

func openMemJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRun_DeterministicBody(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "plain-batch",
		Description: "no randomness, no faults",
		Iterations:  3,
		Body:        "i + 22.5",
	}

	rep, err := newTestEngine(t, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "test-run-0001", rep.Token)
	assert.Equal(t, 3, rep.Succeeded)
	assert.Empty(t, rep.Failed)
	for i := 1; i <= 3; i++ {
		v, ok := rep.Result(i)
		require.True(t, ok)
		assert.Equal(t, float64(i)+22.5, v)
	}
}

func TestRun_ReportGolden(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "plain-batch",
		Description: "no randomness, no faults",
		Iterations:  3,
		Body:        "i + 22.5",
	}

	rep, err := newTestEngine(t, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	data, err := json.MarshalIndent(rep, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "plain_batch_report", data)
}

func TestRun_FaultAtIterationTwo(t *testing.T) {
	// The body raises exactly when 10/i == 5 (expr division is float
	// division, so this holds only at i = 2).
	sc := &scenario.Scenario{
		Name:        "fault-at-two",
		Description: "single deliberate fault",
		Iterations:  10,
		Body:        `10 / i == 5 ? fail("deliberate fault") : i + 22.5`,
	}

	rep, err := newTestEngine(t, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	require.Len(t, rep.Failed, 1)
	assert.Equal(t, 2, rep.Failed[0].Iteration)
	assert.Contains(t, rep.Failed[0].Err, "deliberate fault")

	_, ok := rep.Result(2)
	assert.False(t, ok)
	for i := 1; i <= 10; i++ {
		if i == 2 {
			continue
		}
		v, ok := rep.Result(i)
		require.True(t, ok, "iteration %d", i)
		assert.Equal(t, float64(i)+22.5, v)
	}
}

func TestRun_ZeroIterations(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "empty",
		Description: "nothing to do",
		Iterations:  0,
		Body:        "i",
	}

	rep, err := newTestEngine(t, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Iterations)
	assert.Empty(t, rep.Results)
	assert.Empty(t, rep.Failed)
}

func TestRun_UncompilableBody(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "broken",
		Description: "syntax error in body",
		Iterations:  1,
		Body:        "i +",
	}

	_, err := newTestEngine(t, nil).Run(context.Background(), sc)
	assert.Error(t, err, "infrastructure failures propagate")
}

func TestRun_ConstsVisibleToBody(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "scaled",
		Description: "consts in the environment",
		Iterations:  2,
		Body:        "i * scale",
		Consts:      map[string]any{"scale": 10.0},
	}

	rep, err := newTestEngine(t, nil).Run(context.Background(), sc)
	require.NoError(t, err)

	v, _ := rep.Result(2)
	assert.Equal(t, 20.0, v)
}

func TestRun_JournalsOutcomesAndSnapshots(t *testing.T) {
	j := openMemJournal(t)
	sc := &scenario.Scenario{
		Name:        "drawing",
		Description: "every iteration draws",
		Iterations:  4,
		Seed:        42,
		Body:        "draw() + i",
	}

	rep, err := newTestEngine(t, j).Run(context.Background(), sc)
	require.NoError(t, err)

	ctx := context.Background()
	run, err := j.ReadRun(ctx, rep.Token)
	require.NoError(t, err)
	assert.Equal(t, "drawing", run.Scenario)
	assert.Equal(t, uint64(42), run.Seed)

	recs, err := j.ReadIterations(ctx, rep.Token)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Iteration)
		assert.True(t, rec.Success)
		assert.NotEmpty(t, rec.Value)

		// The body drew, so a snapshot exists for every iteration.
		snap, err := j.ReadSnapshot(ctx, rep.Token, rec.Iteration)
		require.NoError(t, err)
		assert.NotEmpty(t, snap)
	}
}

func TestRun_NoDrawMeansNoSnapshot(t *testing.T) {
	j := openMemJournal(t)
	sc := &scenario.Scenario{
		Name:        "dry",
		Description: "body never draws",
		Iterations:  2,
		Body:        "i * 2",
	}

	rep, err := newTestEngine(t, j).Run(context.Background(), sc)
	require.NoError(t, err)

	_, err = j.ReadSnapshot(context.Background(), rep.Token, 1)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestVerifyReplay_Deterministic(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "replayable",
		Description: "draws replay bit-for-bit",
		Iterations:  10,
		Seed:        7,
		Body:        "draw() * 100 + i",
	}

	eng := newTestEngine(t, nil)
	rep, err := eng.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, 10, rep.Succeeded)

	diverged, err := eng.VerifyReplay(rep)
	require.NoError(t, err)
	assert.Empty(t, diverged, "every iteration must replay identically")
}

func TestVerifyReplay_DetectsTampering(t *testing.T) {
	sc := &scenario.Scenario{
		Name:        "tampered",
		Description: "a doctored result must be flagged",
		Iterations:  3,
		Seed:        7,
		Body:        "draw() + i",
	}

	eng := newTestEngine(t, nil)
	rep, err := eng.Run(context.Background(), sc)
	require.NoError(t, err)

	rep.Results[1] = -1.0 // doctor iteration 2

	diverged, err := eng.VerifyReplay(rep)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, diverged)
}

func TestReplayFromJournal_ReproducesFailures(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	// Every third iteration draws and then faults on a malformed model
	// fit; the draw means a snapshot was captured before the fault.
	sc := &scenario.Scenario{
		Name:        "flaky-fit",
		Description: "fit faults on malformed input",
		Iterations:  9,
		Seed:        13,
		Body:        `i % 3 == 0 ? fit(draw(), "x") : draw() + i`,
	}

	eng := newTestEngine(t, j)
	rep, err := eng.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rep.Failed, 3)

	results, err := eng.ReplayFromJournal(context.Background(), sc, rep.Token, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, res := range results {
		assert.True(t, res.Captured, "iteration %d drew before faulting", res.Iteration)
		assert.True(t, res.Match, "iteration %d must reproduce its fault", res.Iteration)
		assert.Equal(t, res.Recorded, res.Replayed)
	}
}

func TestReplayFromJournal_SingleIteration(t *testing.T) {
	j := openMemJournal(t)
	sc := &scenario.Scenario{
		Name:        "single",
		Description: "replay one successful iteration",
		Iterations:  5,
		Seed:        3,
		Body:        "draw() + i",
	}

	eng := newTestEngine(t, j)
	rep, err := eng.Run(context.Background(), sc)
	require.NoError(t, err)

	results, err := eng.ReplayFromJournal(context.Background(), sc, rep.Token, 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].Iteration)
	assert.True(t, results[0].Captured)
	assert.True(t, results[0].Match)
}

func TestReplayFromJournal_ScenarioMismatch(t *testing.T) {
	j := openMemJournal(t)
	sc := &scenario.Scenario{
		Name:        "original",
		Description: "journaled run",
		Iterations:  1,
		Body:        "i",
	}

	eng := newTestEngine(t, j)
	rep, err := eng.Run(context.Background(), sc)
	require.NoError(t, err)

	other := &scenario.Scenario{
		Name:        "different",
		Description: "not the journaled scenario",
		Iterations:  1,
		Body:        "i",
	}
	_, err = eng.ReplayFromJournal(context.Background(), other, rep.Token, 0)
	assert.Error(t, err)
}

func TestReplayFromJournal_UnknownRun(t *testing.T) {
	j := openMemJournal(t)
	sc := &scenario.Scenario{Name: "x", Description: "d", Iterations: 1, Body: "i"}

	eng := newTestEngine(t, j)
	_, err := eng.ReplayFromJournal(context.Background(), sc, "missing-token", 0)
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
