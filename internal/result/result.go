// Package result defines the immutable summary handed back from a run.
package result

import (
	"time"

	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// Result summarizes one run. It is built once the requested executions are
// done and is never modified afterwards.
type Result struct {
	RunID string
	// Task is the single requested task, or task.NullTask when several were
	// requested.
	Task    *task.Task
	Success bool
	// Value is the body return value of the first root execution.
	Value any
	// Execution is the first root; the full tree hangs off its Children.
	Execution *execution.Execution
	// Roots holds one execution per requested name that was started.
	Roots []*execution.Execution
	// Executions is every execution created during the run, by ID.
	Executions []*execution.Execution
	// Err is the error of the first unsuccessful root.
	Err      error
	ErrType  string
	Trace    string
	Duration time.Duration
}

// New assembles a Result from the root executions of a run and every
// execution it created. Roots must be in request order.
func New(runID string, t *task.Task, roots, all []*execution.Execution, d time.Duration) *Result {
	r := &Result{
		RunID:      runID,
		Task:       t,
		Success:    len(roots) > 0,
		Roots:      roots,
		Executions: all,
		Duration:   d,
	}
	if len(roots) > 0 {
		r.Execution = roots[0]
		r.Value = roots[0].Result
	}
	for _, root := range roots {
		if root.Succeeded() {
			continue
		}
		r.Success = false
		r.Err = root.Err
		if cause := r.causeOf(root); cause != nil {
			r.ErrType = cause.ErrType
			r.Trace = cause.Trace
		}
		break
	}
	return r
}

// Lookup returns the execution with the given ID.
func (r *Result) Lookup(id int) (*execution.Execution, bool) {
	if id < 1 || id > len(r.Executions) {
		return nil, false
	}
	ex := r.Executions[id-1]
	return ex, ex.ID == id
}

// Cause returns the execution whose own failure made the run fail, following
// aborted and repeated executions down to the node that actually failed.
// It returns nil for a successful run.
func (r *Result) Cause() *execution.Execution {
	if r.Success {
		return nil
	}
	for _, root := range r.Roots {
		if !root.Succeeded() {
			return r.causeOf(root)
		}
	}
	return nil
}

func (r *Result) causeOf(ex *execution.Execution) *execution.Execution {
	seen := make(map[int]bool)
	for ex != nil && !seen[ex.ID] {
		seen[ex.ID] = true
		next := 0
		switch ex.State() {
		case execution.Aborted:
			next = ex.BlameID
		case execution.Repeated:
			next = ex.OriginalID
		case execution.Failed:
			// A failed call blames the callee.
			next = ex.BlameID
		case execution.Started, execution.Dependents, execution.Running, execution.Calling,
			execution.Succeeded, execution.Skipped:
		}
		if next == 0 {
			return ex
		}
		child, ok := r.Lookup(next)
		if !ok {
			return ex
		}
		ex = child
	}
	return ex
}

// Failures returns every execution that failed on its own account, in
// creation order. Aborted and repeated executions are consequences and are
// not included.
func (r *Result) Failures() []*execution.Execution {
	var out []*execution.Execution
	for _, ex := range r.Executions {
		if ex.State() == execution.Failed && ex.BlameID == 0 {
			out = append(out, ex)
		}
	}
	return out
}
