package outcome

import (
	"fmt"
	"reflect"
)

// errType is the reflected error interface, used to recognize a trailing
// error return on the supplied work.
var errType = reflect.TypeOf((*error)(nil)).Elem()

// Call invokes work(args...) inside a failure-interception region and
// returns the result as an Outcome. No fault ever propagates out of Call.
//
// Faults are recorded uniformly, regardless of cause:
//   - work panics during execution
//   - work returns a non-nil error as its last return value
//   - work is not invocable at all (not a function, wrong arity,
//     unassignable argument types)
//
// The last category is intercepted the same way as the others: the
// reflective call raises inside the guarded region rather than being
// treated as a distinct error class.
func Call(work any, args ...any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(messageOf(r))
		}
	}()

	fn := reflect.ValueOf(work)
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil && fn.Kind() == reflect.Func && i < fn.Type().NumIn() {
			// Untyped nil has no reflect.Value; substitute the zero value
			// of the declared parameter type.
			in[i] = reflect.Zero(fn.Type().In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	// Panics here (non-func work, arity or type mismatch, faults inside
	// the work itself) are captured by the deferred recover above.
	rets := fn.Call(in)
	return fromReturns(rets)
}

// Guard runs a closure under the same interception semantics as Call.
// Use it when the work is already a closure and reflective dispatch
// would only add noise.
func Guard(fn func() (any, error)) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(messageOf(r))
		}
	}()

	value, err := fn()
	if err != nil {
		return Fail(err.Error())
	}
	return Ok(value)
}

// fromReturns converts the return values of a reflective call into an
// Outcome. A non-nil error in the last position wins; otherwise the first
// non-error return value is the result. Work with no return values
// produces a successful outcome with a nil value.
func fromReturns(rets []reflect.Value) Outcome {
	if n := len(rets); n > 0 && rets[n-1].Type().Implements(errType) {
		if errVal := rets[n-1]; !errVal.IsNil() {
			return Fail(errVal.Interface().(error).Error())
		}
		rets = rets[:n-1]
	}
	if len(rets) == 0 {
		return Ok(nil)
	}
	return Ok(rets[0].Interface())
}

// messageOf extracts a human-readable message from a recovered value.
func messageOf(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
