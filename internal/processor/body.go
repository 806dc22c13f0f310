package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// runBody runs the directives and body of ex, which must be Running, and
// moves it to its final state. The working directory is restored afterwards.
func (r *run) runBody(ctx context.Context, ex *execution.Execution, logger *slog.Logger) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("reading working directory: %w", err)
	}
	defer func() {
		if err := os.Chdir(cwd); err != nil {
			logger.Error("Could not restore working directory.", "dir", cwd, "error", err)
		}
	}()

	tc := &callContext{
		run:    r,
		ctx:    ctxlog.WithLogger(ctx, logger),
		ex:     ex,
		logger: logger,
	}

	if dir := ex.Task.Dir; dir != "" {
		logger.Debug("Entering task directory.", "dir", dir)
		if err := tc.Chdir(dir); err != nil {
			if r.fatal != nil {
				return r.fatal
			}
			return r.apply(ctx, ex, func(at time.Time) error { return ex.Fail(err, r.trace(), at) })
		}
	}

	value, err := r.invoke(tc)
	if r.fatal != nil {
		return r.fatal
	}
	if ex.IsDone() {
		// A failed call already moved the execution to Failed.
		logger.Debug("Body returned after a failed call.", "error", err)
		return nil
	}

	switch {
	case err == nil:
		return r.apply(ctx, ex, func(at time.Time) error { return ex.Succeed(value, at) })
	case task.IsSkip(err):
		if err := r.apply(ctx, ex, func(at time.Time) error { return ex.Skip(err, at) }); err != nil {
			return err
		}
		if !ex.Task.FailIfSkipped {
			return nil
		}
		failErr := fmt.Errorf("%w: %w", execution.ErrSkippedNotAllowed, err)
		return r.apply(ctx, ex, func(at time.Time) error { return ex.Fail(failErr, r.trace(), at) })
	default:
		trace := r.trace()
		var pe *execution.PanicError
		if errors.As(err, &pe) {
			trace += "\n\n" + string(pe.Stack)
		}
		return r.apply(ctx, ex, func(at time.Time) error { return ex.Fail(err, trace, at) })
	}
}

// invoke runs the before directives, the body, and the after directives,
// stopping at the first error.
func (r *run) invoke(tc *callContext) (any, error) {
	t := tc.ex.Task
	for _, d := range t.DirectivesFor(task.Before) {
		if err := r.directive(tc, d); err != nil || r.stopped(tc.ex) {
			return nil, err
		}
	}

	value, err := guard(func() (any, error) {
		if t.Body == nil {
			return nil, nil
		}
		return t.Body(tc)
	})
	if err != nil || r.stopped(tc.ex) {
		return value, err
	}

	for _, d := range t.DirectivesFor(task.After) {
		if err := r.directive(tc, d); err != nil || r.stopped(tc.ex) {
			return nil, err
		}
	}
	return value, nil
}

// stopped reports whether nothing more should run for ex: a failed call
// already finished it, or a configuration error ended the run.
func (r *run) stopped(ex *execution.Execution) bool {
	return ex.IsDone() || r.fatal != nil
}

func (r *run) directive(tc *callContext, d task.Directive) error {
	tc.logger.Debug("Running directive.", "directive", d.Name, "phase", d.Phase)
	_, err := guard(func() (any, error) {
		if d.Fn == nil {
			return nil, nil
		}
		return nil, d.Fn(tc)
	})
	if err != nil && !task.IsSkip(err) {
		tc.logger.Warn("Directive failed.", "directive", d.Name, "phase", d.Phase, "error", err)
	}
	return err
}

// guard calls fn, converting a panic into a *execution.PanicError.
func guard(fn func() (any, error)) (value any, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &execution.PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return fn()
}
