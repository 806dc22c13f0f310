// Package execution holds the per-run state machine node: one Execution per
// attempted run of a task, its transition table, and the errors recorded on
// executions that did not succeed.
package execution

import (
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/burstbuild/internal/task"
)

// Kind says why an Execution was created.
type Kind uint8

const (
	// Requested executions are roots named by the caller of a run.
	Requested Kind = iota
	// Dependency executions were reached through a declared dependency.
	Dependency
	// Call executions were reached through task.Context.Call.
	Call
)

func (k Kind) String() string {
	switch k {
	case Requested:
		return "requested"
	case Dependency:
		return "dependency"
	case Call:
		return "call"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Execution is a single attempt to run a task within one run. The parent
// owns its children; a child refers back only through CallerID.
type Execution struct {
	ID       int
	Task     *task.Task
	Kind     Kind
	CallerID int

	StartTime time.Time
	EndTime   time.Time

	// Result is the body's return value. REPEATED executions carry the
	// original execution's value.
	Result any
	Err    error
	// ErrType is the Go type name of Err.
	ErrType string
	// Trace is the task call stack at failure time, followed by the goroutine
	// stack when the body panicked.
	Trace string

	Children []*Execution

	// OriginalID is the ID of the execution a REPEATED execution refers to.
	OriginalID int
	// BlameID is the ID of the child that aborted or failed this execution.
	BlameID int

	state      State
	history    []State
	repeatedOK bool
}

// New returns an execution in the Started state.
func New(id int, t *task.Task, kind Kind, callerID int, now time.Time) *Execution {
	return &Execution{
		ID:        id,
		Task:      t,
		Kind:      kind,
		CallerID:  callerID,
		StartTime: now,
		state:     Started,
		history:   []State{Started},
	}
}

// State returns the current state.
func (e *Execution) State() State { return e.state }

// History returns every state the execution has been in, oldest first.
func (e *Execution) History() []State { return slices.Clone(e.history) }

// Duration is the time between start and end, or zero while still running.
func (e *Execution) Duration() time.Duration {
	if e.EndTime.IsZero() {
		return 0
	}
	return e.EndTime.Sub(e.StartTime)
}

// Transition moves the execution to the given state. Edges outside the state
// machine are rejected with a *TransitionError.
func (e *Execution) Transition(to State, at time.Time) error {
	if !allowed(e.state, to, e.Task.FailIfSkipped) {
		return &TransitionError{Task: e.Task.Name, From: e.state, To: to}
	}
	e.state = to
	e.history = append(e.history, to)
	if e.IsDone() {
		e.EndTime = at
	}
	return nil
}

// IsDone reports whether the execution reached its final state. A skipped
// execution whose task fails on skip is not done until it has failed.
func (e *Execution) IsDone() bool {
	if e.state == Skipped && e.Task.FailIfSkipped {
		return false
	}
	return e.state.IsTerminal()
}

// Succeeded reports whether the execution counts as a success for its
// dependents and for the run result.
func (e *Execution) Succeeded() bool {
	switch e.state {
	case Succeeded:
		return true
	case Skipped:
		return !e.Task.FailIfSkipped
	case Repeated:
		return e.repeatedOK
	case Started, Dependents, Running, Calling, Failed, Aborted:
		return false
	default:
		return false
	}
}

// AddChild appends a dependency or call execution made from e.
func (e *Execution) AddChild(child *Execution) {
	e.Children = append(e.Children, child)
}

// Succeed records the body's value and moves to Succeeded.
func (e *Execution) Succeed(value any, at time.Time) error {
	if err := e.Transition(Succeeded, at); err != nil {
		return err
	}
	e.Result = value
	return nil
}

// Fail records err and moves to Failed.
func (e *Execution) Fail(err error, trace string, at time.Time) error {
	if err := e.Transition(Failed, at); err != nil {
		return err
	}
	e.setErr(err, trace)
	return nil
}

// Skip records the skip signal and moves to Skipped.
func (e *Execution) Skip(signal error, at time.Time) error {
	if err := e.Transition(Skipped, at); err != nil {
		return err
	}
	e.setErr(signal, "")
	return nil
}

// Abort moves to Aborted, blaming the given child.
func (e *Execution) Abort(blame *Execution, at time.Time) error {
	if err := e.Transition(Aborted, at); err != nil {
		return err
	}
	e.BlameID = blame.ID
	e.setErr(&AbortedError{Task: e.Task.Name, Dependency: blame.Task.Name, Cause: blame.Err}, "")
	return nil
}

// Repeat moves to Repeated, exposing the original's value. A repeat of an
// unsuccessful original carries its error and does not count as a success.
func (e *Execution) Repeat(original *Execution, at time.Time) error {
	if err := e.Transition(Repeated, at); err != nil {
		return err
	}
	e.OriginalID = original.ID
	e.Result = original.Result
	e.repeatedOK = original.Succeeded()
	if !e.repeatedOK {
		e.setErr(original.Err, "")
	}
	return nil
}

func (e *Execution) setErr(err error, trace string) {
	e.Err = err
	e.Trace = trace
	if err != nil {
		e.ErrType = fmt.Sprintf("%T", err)
	}
}

func (e *Execution) String() string {
	return fmt.Sprintf("#%d %s [%s]", e.ID, e.Task.Name, e.state)
}

// Walk visits e and every descendant depth-first in child order. Returning
// false from fn stops the walk below that node.
func (e *Execution) Walk(fn func(ex *Execution, depth int) bool) {
	e.walk(fn, 0)
}

func (e *Execution) walk(fn func(*Execution, int) bool, depth int) {
	if !fn(e, depth) {
		return
	}
	for _, c := range e.Children {
		c.walk(fn, depth+1)
	}
}

// Event describes one state transition.
type Event struct {
	RunID       string
	ExecutionID int
	CallerID    int
	Task        string
	Kind        Kind
	From        State
	To          State
	At          time.Time
	// Done is true when the transition put the execution in its final state.
	Done bool
	// Duration is set once the execution is done.
	Duration time.Duration
	Err      error
}

// NewEvent builds the event for a transition of ex that just happened.
func NewEvent(runID string, ex *Execution, from State, at time.Time) Event {
	return Event{
		RunID:       runID,
		ExecutionID: ex.ID,
		CallerID:    ex.CallerID,
		Task:        ex.Task.Name,
		Kind:        ex.Kind,
		From:        from,
		To:          ex.State(),
		At:          at,
		Done:        ex.IsDone(),
		Duration:    ex.Duration(),
		Err:         ex.Err,
	}
}
