// Package task defines the immutable unit of work the engine orders and runs:
// a named Task with its declared dependencies, a body, and before/after
// directives. It also owns the registry that maps names to tasks and the
// configuration errors raised when that registry is inconsistent.
package task

import (
	"context"
	"log/slog"
)

// Func is the body of a task. The returned value becomes the execution's
// result. Returning ErrSkip (or an error wrapping it) marks the task skipped.
type Func func(c Context) (any, error)

// Phase says when a directive runs relative to the task body.
type Phase int

const (
	// Before directives run in declaration order ahead of the body.
	Before Phase = iota
	// After directives run in declaration order once the body returned normally.
	After
)

func (p Phase) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

// Directive is a hook attached to a task. It fails the task by returning an
// error and skips it by returning ErrSkip.
type Directive struct {
	Name  string
	Phase Phase
	Fn    func(c Context) error
}

// Task represents a single named unit of work. It is created once when the
// build definition is loaded and never mutated afterwards.
type Task struct {
	// Name is the unique key of the task in its Registry.
	Name string
	// Description is a human-readable summary shown by listings.
	Description string
	// Dependencies are the names of tasks that must complete first, in the
	// order they should run.
	Dependencies []string
	// Body is the work itself. A nil body is a no-op that succeeds.
	Body Func
	// Directives are the before/after hooks in declaration order.
	Directives []Directive
	// FailIfSkipped turns a skip signal into a failure.
	FailIfSkipped bool
	// Dir is an optional working directory entered for the duration of the
	// directives and the body.
	Dir string
}

// NullTask is the nominal task of a result produced by a run that requested
// several tasks at once.
var NullTask = &Task{Name: "*", Description: "multiple tasks"}

// IsNull reports whether t is the NullTask sentinel.
func (t *Task) IsNull() bool {
	return t == NullTask
}

// DirectivesFor returns the task's directives of the given phase, keeping
// declaration order.
func (t *Task) DirectivesFor(phase Phase) []Directive {
	var out []Directive
	for _, d := range t.Directives {
		if d.Phase == phase {
			out = append(out, d)
		}
	}
	return out
}

// Context is handed to every task body and directive. It is the only way a
// body may reach back into the engine.
type Context interface {
	// Context returns the context.Context of the surrounding run.
	Context() context.Context
	// Task returns the task being executed.
	Task() *Task
	// ExecutionID returns the ID of the execution the body belongs to.
	ExecutionID() int
	// Call runs another task programmatically and returns its result.
	Call(name string) (any, error)
	// Chdir changes the process working directory. The engine restores the
	// previous directory once the body returns.
	Chdir(dir string) error
	// Logger returns a logger scoped to the current execution.
	Logger() *slog.Logger
}
