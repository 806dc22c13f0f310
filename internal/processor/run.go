package processor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/resolver"
	"github.com/specialistvlad/burstbuild/internal/result"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// run is the mutable state of a single Run call.
type run struct {
	p        *Processor
	id       string
	logger   *slog.Logger
	resolver *resolver.Resolver

	// executions maps a task name to the execution that runs its body.
	executions *linkedhashmap.Map
	// stack holds the executions currently in progress, innermost on top.
	stack *arraystack.Stack
	// all is every execution created, indexed by ID-1.
	all []*execution.Execution

	// fatal is the first configuration error raised from inside a body.
	fatal error
}

func (p *Processor) newRun(ctx context.Context) *run {
	logger := p.logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	id := p.newRunID()
	return &run{
		p:          p,
		id:         id,
		logger:     logger.With("run_id", id),
		resolver:   resolver.New(p.registry),
		executions: linkedhashmap.New(),
		stack:      arraystack.New(),
	}
}

// execute creates an execution of t below parent and drives it until it is
// done. The returned error is a configuration error; task failures are
// recorded on the execution.
func (r *run) execute(ctx context.Context, t *task.Task, parent *execution.Execution, kind execution.Kind) (*execution.Execution, error) {
	callerID := 0
	if parent != nil {
		callerID = parent.ID
	}
	ex := execution.New(len(r.all)+1, t, kind, callerID, r.p.now())
	r.all = append(r.all, ex)
	if parent != nil {
		parent.AddChild(ex)
	}
	logger := r.logger.With("task", t.Name, "execution_id", ex.ID)
	logger.Debug("Execution created.", "kind", kind, "caller_id", callerID)

	if v, ok := r.executions.Get(t.Name); ok {
		original := v.(*execution.Execution)
		if !original.IsDone() {
			return nil, r.cycle(t.Name)
		}
		logger.Debug("Task already ran in this run.", "original_id", original.ID)
		return ex, r.apply(ctx, ex, func(at time.Time) error { return ex.Repeat(original, at) })
	}
	r.executions.Put(t.Name, ex)

	r.stack.Push(ex)
	defer r.stack.Pop()

	if len(t.Dependencies) > 0 {
		if err := r.move(ctx, ex, execution.Dependents); err != nil {
			return nil, err
		}
		for _, name := range t.Dependencies {
			dep, ok := r.p.registry.Get(name)
			if !ok {
				return nil, &task.NoSuchTaskError{Name: name, Referrer: t.Name}
			}
			child, err := r.execute(ctx, dep, ex, execution.Dependency)
			if err != nil {
				return nil, err
			}
			if !child.Succeeded() {
				logger.Warn("🚫 Task aborted: dependency failed.", "dependency", name)
				return ex, r.apply(ctx, ex, func(at time.Time) error { return ex.Abort(child, at) })
			}
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("Run cancelled before task started.", "error", err)
		return ex, r.apply(ctx, ex, func(at time.Time) error { return ex.Fail(err, r.trace(), at) })
	}

	if err := r.move(ctx, ex, execution.Running); err != nil {
		return nil, err
	}
	logger.Info("▶️ Starting task")
	if err := r.runBody(ctx, ex, logger); err != nil {
		return nil, err
	}

	switch ex.State() {
	case execution.Succeeded:
		logger.Info("✅ Finished task", "duration", ex.Duration())
	case execution.Skipped:
		logger.Info("⏭️ Skipped task", "reason", ex.Err)
	case execution.Failed:
		logger.Error("❌ Task failed", "error", ex.Err)
	case execution.Started, execution.Dependents, execution.Running, execution.Calling,
		execution.Aborted, execution.Repeated:
		return nil, fmt.Errorf("execution %s left the body in state %s", ex, ex.State())
	}
	return ex, nil
}

// apply performs a state change through fn and notifies observers.
func (r *run) apply(ctx context.Context, ex *execution.Execution, fn func(at time.Time) error) error {
	from := ex.State()
	at := r.p.now()
	if err := fn(at); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	ev := execution.NewEvent(r.id, ex, from, at)
	r.logger.Debug("Execution transition.", "task", ev.Task, "execution_id", ev.ExecutionID, "from", ev.From, "to", ev.To)
	for _, o := range r.p.observers {
		r.observe(func() { o.OnTransition(ctx, ev) })
	}
	return nil
}

// move is apply for plain transitions that record nothing else.
func (r *run) move(ctx context.Context, ex *execution.Execution, to execution.State) error {
	return r.apply(ctx, ex, func(at time.Time) error { return ex.Transition(to, at) })
}

func (r *run) notifyResult(ctx context.Context, res *result.Result) {
	for _, o := range r.p.observers {
		if ro, ok := o.(ResultObserver); ok {
			r.observe(func() { ro.OnResult(ctx, res) })
		}
	}
}

// observe calls fn and logs a panic instead of letting it unwind the run.
func (r *run) observe(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("Observer panicked.", "panic", v, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// inProgress returns the executions on the stack, outermost first.
func (r *run) inProgress() []*execution.Execution {
	values := r.stack.Values()
	out := make([]*execution.Execution, 0, len(values))
	for _, v := range values {
		out = append(out, v.(*execution.Execution))
	}
	slices.Reverse(out)
	return out
}

// trace renders the current task call stack, outermost first.
func (r *run) trace() string {
	stack := r.inProgress()
	names := make([]string, 0, len(stack))
	for _, ex := range stack {
		names = append(names, ex.Task.Name)
	}
	return strings.Join(names, " > ")
}

// cycle builds the error for a task reached again while it is still running.
func (r *run) cycle(name string) error {
	var path []string
	for _, ex := range r.inProgress() {
		if ex.Task.Name == name || len(path) > 0 {
			path = append(path, ex.Task.Name)
		}
	}
	path = append(path, name)
	return &task.CircularDependencyError{Path: path}
}

func (r *run) setFatal(err error) {
	if r.fatal == nil {
		r.fatal = err
	}
}
