package testutil

import (
	"errors"
	"sync"

	"github.com/specialistvlad/burstbuild/internal/task"
)

// Recorder builds tasks whose bodies record each invocation, so tests can
// assert which bodies ran and in what order.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Task returns a task that records its name and returns it as the result.
func (r *Recorder) Task(name string, deps ...string) *task.Task {
	return &task.Task{
		Name:         name,
		Dependencies: deps,
		Body: r.Wrap(name, func(task.Context) (any, error) {
			return name, nil
		}),
	}
}

// Failing returns a task whose body records its name and returns err.
func (r *Recorder) Failing(name string, err error, deps ...string) *task.Task {
	t := r.Task(name, deps...)
	t.Body = r.Wrap(name, func(task.Context) (any, error) {
		return nil, err
	})
	return t
}

// Wrap records name every time fn is invoked.
func (r *Recorder) Wrap(name string, fn task.Func) task.Func {
	return func(c task.Context) (any, error) {
		r.record(name)
		return fn(c)
	}
}

// Directive returns a directive that records "<name>" and returns err.
func (r *Recorder) Directive(name string, phase task.Phase, err error) task.Directive {
	return task.Directive{
		Name:  name,
		Phase: phase,
		Fn: func(task.Context) error {
			r.record(name)
			return err
		},
	}
}

func (r *Recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

// Calls returns every recorded invocation in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how often name was recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

// ErrBoom is a generic task failure for tests.
var ErrBoom = errors.New("boom")
