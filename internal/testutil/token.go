// Package testutil provides deterministic helpers for tests.
package testutil

import "fmt"

// FixedTokenGenerator returns a predictable sequence of run tokens.
//
// Unlike the production UUIDv7 generator, tokens are stable across runs,
// which keeps journal rows and golden files byte-identical.
type FixedTokenGenerator struct {
	prefix string
	n      int
}

// NewFixedTokenGenerator creates a generator producing "<prefix>-0001",
// "<prefix>-0002", and so on. An empty prefix defaults to "test-run".
func NewFixedTokenGenerator(prefix string) *FixedTokenGenerator {
	if prefix == "" {
		prefix = "test-run"
	}
	return &FixedTokenGenerator{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *FixedTokenGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
