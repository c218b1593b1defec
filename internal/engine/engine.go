// Package engine drives batch scenarios: it compiles the scenario body,
// evaluates it once per iteration under failure interception, captures a
// seed snapshot immediately before each iteration's first random draw,
// and journals every outcome.
//
// Execution is single-threaded and fully synchronous. The random stream
// is owned by one run; parallel runs must each build their own Engine and
// therefore their own stream.
package engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/salvage/internal/journal"
)

// TokenGenerator generates unique run tokens for journal correlation.
// Implemented by UUIDv7Generator (production) and the fixed generator in
// testutil (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates UUIDv7 run tokens. UUIDv7 is time-ordered,
// so journaled runs sort chronologically by token as a tiebreaker.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Engine executes batch scenarios against an optional journal.
type Engine struct {
	journal *journal.Journal
	tokens  TokenGenerator
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTokenGenerator overrides the run token generator. Defaults to
// UUIDv7Generator.
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = gen
	}
}

// New creates an Engine. The journal may be nil, in which case outcomes
// are only accumulated in memory.
func New(j *journal.Journal, opts ...Option) *Engine {
	e := &Engine{
		journal: j,
		tokens:  UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
