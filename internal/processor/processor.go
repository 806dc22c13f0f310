// Package processor drives executions through their state machine. It is the
// only part of the engine with side effects: it invokes task bodies and
// directives, and assembles the result handed back to the caller.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/result"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// ErrNoTasks is returned by Run when no task names were given.
var ErrNoTasks = errors.New("no tasks requested")

// Processor runs tasks from a registry. It holds no per-run state, so one
// Processor may serve many sequential runs.
type Processor struct {
	registry  *task.Registry
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
	newRunID  func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver registers an observer notified of every transition.
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		p.observers = append(p.observers, o)
	}
}

// WithLogger sets the logger. Without it the logger is taken from the run's context.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithRunID replaces the run ID generator.
func WithRunID(gen func() string) Option {
	return func(p *Processor) {
		p.newRunID = gen
	}
}

// New creates a Processor over the given registry.
func New(reg *task.Registry, opts ...Option) *Processor {
	p := &Processor{
		registry: reg,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the named tasks in order, each with its dependencies, and
// returns the outcome. Task failures are reported through the Result.
// Configuration errors (unknown tasks, cycles, missing directories) are
// returned as the error with a nil Result.
func (p *Processor) Run(ctx context.Context, names ...string) (*result.Result, error) {
	if len(names) == 0 {
		return nil, ErrNoTasks
	}

	r := p.newRun(ctx)
	logger := r.logger
	ctx = ctxlog.WithLogger(ctx, logger)

	// Every requested name must resolve before any execution is created.
	for _, name := range names {
		if _, err := r.resolver.Resolve(name); err != nil {
			logger.Error("Task resolution failed.", "task", name, "error", err)
			return nil, err
		}
	}

	logger.Debug("Starting run.", "tasks", names)
	start := p.now()

	var roots []*execution.Execution
	for _, name := range names {
		t, _ := p.registry.Get(name)
		ex, err := r.execute(ctx, t, nil, execution.Requested)
		if err != nil {
			logger.Error("Run stopped by configuration error.", "error", err)
			return nil, err
		}
		roots = append(roots, ex)
		if !ex.Succeeded() {
			break
		}
	}
	if r.fatal != nil {
		return nil, r.fatal
	}

	resultTask := task.NullTask
	if len(names) == 1 {
		resultTask = roots[0].Task
	}
	res := result.New(r.id, resultTask, roots, r.all, p.now().Sub(start))

	if res.Success {
		logger.Info("🏁 Run succeeded.", "duration", res.Duration)
	} else {
		logger.Error("Run failed.", "duration", res.Duration, "error", res.Err)
	}
	r.notifyResult(ctx, res)
	return res, nil
}
