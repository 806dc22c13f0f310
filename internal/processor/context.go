package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// callContext is the task.Context handed to bodies and directives.
type callContext struct {
	run    *run
	ctx    context.Context
	ex     *execution.Execution
	logger *slog.Logger
}

var _ task.Context = (*callContext)(nil)

func (c *callContext) Context() context.Context { return c.ctx }

func (c *callContext) Task() *task.Task { return c.ex.Task }

func (c *callContext) ExecutionID() int { return c.ex.ID }

func (c *callContext) Logger() *slog.Logger { return c.logger }

// Call runs the named task from inside the current body and returns its
// result. The caller moves to Calling for the duration and to Failed when
// the callee does not succeed.
func (c *callContext) Call(name string) (any, error) {
	r := c.run
	if state := c.ex.State(); state != execution.Running {
		if c.ex.Err != nil {
			return nil, fmt.Errorf("task %q cannot call %q: %w", c.ex.Task.Name, name, c.ex.Err)
		}
		return nil, fmt.Errorf("task %q cannot call %q from state %s", c.ex.Task.Name, name, state)
	}
	if _, err := r.resolver.Resolve(name); err != nil {
		r.setFatal(err)
		return nil, err
	}
	callee, _ := r.p.registry.Get(name)

	c.logger.Debug("Calling task.", "callee", name)
	if err := r.move(c.ctx, c.ex, execution.Calling); err != nil {
		r.setFatal(err)
		return nil, err
	}
	child, err := r.execute(c.ctx, callee, c.ex, execution.Call)
	if err != nil {
		r.setFatal(err)
		return nil, err
	}

	if child.Succeeded() {
		if err := r.move(c.ctx, c.ex, execution.Running); err != nil {
			r.setFatal(err)
			return nil, err
		}
		return child.Result, nil
	}

	callErr := &execution.CallError{Caller: c.ex.Task.Name, Callee: name, Cause: child.Err}
	c.ex.BlameID = child.ID
	trace := r.trace()
	if err := r.apply(c.ctx, c.ex, func(at time.Time) error { return c.ex.Fail(callErr, trace, at) }); err != nil {
		r.setFatal(err)
		return nil, err
	}
	return nil, callErr
}

// Chdir changes the process working directory. A directory that does not
// exist is a configuration error and stops the run.
func (c *callContext) Chdir(dir string) error {
	if err := os.Chdir(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			nsd := &task.NoSuchDirectoryError{Task: c.ex.Task.Name, Dir: dir, Err: err}
			c.run.setFatal(nsd)
			return nsd
		}
		return fmt.Errorf("task %q: chdir %s: %w", c.ex.Task.Name, dir, err)
	}
	c.logger.Debug("Changed working directory.", "dir", dir)
	return nil
}
