package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/salvage/internal/seed"
)

// environment builds the evaluation environment for one iteration.
//
// Draw functions share the single capture hook: the stream state is
// snapshotted exactly once per iteration, immediately before the first
// draw, which is the stable capture point the replay contract requires.
// Earlier non-draw work in the body does not move the capture point.
func environment(i int, consts map[string]any, stream *seed.Stream, capture func()) map[string]any {
	env := make(map[string]any, len(consts)+8)
	for k, v := range consts {
		env[k] = v
	}

	env["i"] = i

	env["draw"] = func() float64 {
		capture()
		return stream.Float64()
	}
	env["drawn"] = func(n int) int {
		capture()
		return stream.IntN(n)
	}
	env["norm"] = func() float64 {
		capture()
		return stream.NormFloat64()
	}

	env["divide"] = divide
	env["fit"] = fit
	env["fail"] = failWith

	return env
}

// divide is strict float division: non-numeric operands fault, a zero
// divisor does not (the quotient is the IEEE sentinel).
func divide(a, b any) (float64, error) {
	af, ok := asFloat(a)
	if !ok {
		return 0, fmt.Errorf("invalid operand %v: not a number", a)
	}
	bf, ok := asFloat(b)
	if !ok {
		return 0, fmt.Errorf("invalid operand %v: not a number", b)
	}
	return af / bf, nil
}

// fit is a toy model fit over the supplied observations (their mean).
// Malformed input faults, which is exactly what scenarios use it for.
func fit(obs ...any) (float64, error) {
	if len(obs) == 0 {
		return 0, errors.New("model fit requires at least one observation")
	}
	var sum float64
	for _, o := range obs {
		f, ok := asFloat(o)
		if !ok {
			return 0, fmt.Errorf("invalid observation %v: not a number", o)
		}
		sum += f
	}
	return sum / float64(len(obs)), nil
}

// failWith lets a scenario raise a deliberate fault.
func failWith(msg string) (any, error) {
	return nil, errors.New(msg)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
