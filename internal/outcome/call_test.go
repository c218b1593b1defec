package outcome

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// divide is float division: it does not fault on a zero divisor, the
// quotient is the IEEE sentinel (+Inf).
func divide(a, b float64) float64 {
	return a / b
}

// divideStrict faults when handed a non-numeric operand.
func divideStrict(a, b any) (float64, error) {
	af, ok := toFloat(a)
	if !ok {
		return 0, fmt.Errorf("invalid operand %v: not a number", a)
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, fmt.Errorf("invalid operand %v: not a number", b)
	}
	return af / bf, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func TestCall_Success(t *testing.T) {
	out := Call(divide, 10.0, 4.0)

	assert.True(t, out.Success)
	assert.Equal(t, 2.5, out.Value)
	assert.Empty(t, out.Err)
}

func TestCall_DivisionByZero_NoFault(t *testing.T) {
	// Float division by zero does not raise; the guarded call must report
	// success with the sentinel quotient.
	out := Call(divide, 10.0, 0.0)

	require.True(t, out.Success)
	quotient, ok := out.Value.(float64)
	require.True(t, ok)
	assert.True(t, math.IsInf(quotient, 1))
	assert.Empty(t, out.Err)
}

func TestCall_NonNumericOperand_Captured(t *testing.T) {
	out := Call(divideStrict, 10, "x")

	assert.False(t, out.Success)
	assert.Nil(t, out.Value)
	assert.Contains(t, out.Err, "x")
}

func TestCall_PanicCaptured(t *testing.T) {
	out := Call(func() int { panic("boom") })

	assert.False(t, out.Success)
	assert.Equal(t, "boom", out.Err)
	assert.Nil(t, out.Value)
}

func TestCall_PanicWithError(t *testing.T) {
	sentinel := errors.New("model fit diverged")
	out := Call(func() { panic(sentinel) })

	assert.False(t, out.Success)
	assert.Equal(t, "model fit diverged", out.Err)
}

func TestCall_IntegerDivisionPanic(t *testing.T) {
	out := Call(func(a, b int) int { return a / b }, 10, 0)

	assert.False(t, out.Success)
	assert.Contains(t, out.Err, "divide by zero")
}

func TestCall_NotInvocable(t *testing.T) {
	// Non-function work is the same failure category, not a distinct one.
	out := Call(42)

	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Err)
}

func TestCall_WrongArity(t *testing.T) {
	out := Call(divide, 10.0)

	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Err)
}

func TestCall_WrongArgumentType(t *testing.T) {
	out := Call(divide, 10.0, "x")

	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Err)
}

func TestCall_NilArgument(t *testing.T) {
	out := Call(func(err error) bool { return err == nil }, nil)

	require.True(t, out.Success)
	assert.Equal(t, true, out.Value)
}

func TestCall_ErrorReturn(t *testing.T) {
	out := Call(func() (string, error) { return "", errors.New("no data") })

	assert.False(t, out.Success)
	assert.Equal(t, "no data", out.Err)
	assert.Nil(t, out.Value)
}

func TestCall_NoReturnValues(t *testing.T) {
	ran := false
	out := Call(func() { ran = true })

	assert.True(t, ran)
	assert.True(t, out.Success)
	assert.Nil(t, out.Value)
}

func TestGuard_Success(t *testing.T) {
	out := Guard(func() (any, error) { return 7, nil })

	assert.True(t, out.Success)
	assert.Equal(t, 7, out.Value)
}

func TestGuard_ErrorAndPanic(t *testing.T) {
	out := Guard(func() (any, error) { return nil, errors.New("bad input") })
	assert.False(t, out.Success)
	assert.Equal(t, "bad input", out.Err)

	out = Guard(func() (any, error) { panic("unexpected") })
	assert.False(t, out.Success)
	assert.Equal(t, "unexpected", out.Err)
}

func TestOutcome_TaggedUnionInvariant(t *testing.T) {
	cases := []Outcome{
		Call(divide, 1.0, 2.0),
		Call(divide, 1.0, 0.0),
		Call(func() { panic("x") }),
		Call(nil),
		Ok("v"),
		Fail("m"),
		Fail(""),
	}

	for _, out := range cases {
		if out.Success {
			assert.Empty(t, out.Err, "success must not carry an error")
		} else {
			assert.Nil(t, out.Value, "failure must not carry a value")
			assert.NotEmpty(t, out.Err, "failure must carry a message")
		}
	}
}
