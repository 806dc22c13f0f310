package execution

import (
	"errors"
	"fmt"
)

// ErrSkippedNotAllowed marks the failure of a task that signalled skip while
// FailIfSkipped is set.
var ErrSkippedNotAllowed = errors.New("task skipped but fail_if_skipped is set")

// TransitionError is returned for an edge that is not part of the state machine.
type TransitionError struct {
	Task     string
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %q: %s -> %s", e.Task, e.From, e.To)
}

// AbortedError is recorded on an execution whose dependency failed.
type AbortedError struct {
	Task       string
	Dependency string
	Cause      error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("task %q aborted: dependency %q failed: %v", e.Task, e.Dependency, e.Cause)
}

func (e *AbortedError) Unwrap() error { return e.Cause }

// CallError is recorded on an execution whose programmatic call failed.
type CallError struct {
	Caller string
	Callee string
	Cause  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("task %q: call to %q failed: %v", e.Caller, e.Callee, e.Cause)
}

func (e *CallError) Unwrap() error { return e.Cause }

// PanicError wraps a value recovered from a panicking body or directive.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
