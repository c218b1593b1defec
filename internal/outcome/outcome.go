// Package outcome implements guarded invocation: running caller-supplied
// work so that any raised fault becomes a returned record instead of
// terminating the caller.
//
// The Outcome record is a tagged union of success-with-value and
// failure-with-message. Exactly one side is populated:
//
//	Success == true  ⇔ Err == ""
//	Success == false ⇔ Value == nil
//
// Guarded invocation provides no transactional guarantee: side effects the
// work performed before its failure point are not rolled back.
package outcome

// Outcome is the record produced by a guarded invocation.
//
// Created fresh per invocation and never mutated after construction.
// Owned solely by the caller that requested the invocation.
type Outcome struct {
	// Success reports whether the work completed without raising.
	Success bool `json:"success"`

	// Value is the work's return value. Nil when Success is false.
	Value any `json:"value,omitempty"`

	// Err is the human-readable failure message. Empty when Success is true.
	Err string `json:"error,omitempty"`
}

// Ok builds a successful outcome carrying the work's return value.
func Ok(value any) Outcome {
	return Outcome{Success: true, Value: value}
}

// Fail builds a failed outcome carrying the fault message.
// The message is never empty: a blank message is replaced with a
// placeholder so the tagged-union invariant stays checkable.
func Fail(message string) Outcome {
	if message == "" {
		message = "work failed with no message"
	}
	return Outcome{Success: false, Err: message}
}

// Failed reports whether the outcome records a fault.
func (o Outcome) Failed() bool {
	return !o.Success
}
