package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/burstbuild/internal/config"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/shell"
	"github.com/specialistvlad/burstbuild/internal/task"
)

// CommandRunner runs a single command line. *shell.Runner implements it.
type CommandRunner interface {
	Run(ctx context.Context, cmd shell.Command) (string, error)
}

// Builder turns a config.Model into a task registry.
type Builder struct {
	runner  CommandRunner
	baseDir string
	getenv  func(string) string
}

// Option configures a Builder.
type Option func(*Builder)

// WithBaseDir sets the directory relative task directories are resolved against.
func WithBaseDir(dir string) Option {
	return func(b *Builder) {
		b.baseDir = dir
	}
}

// WithGetenv replaces os.Getenv for skip_if_env directives.
func WithGetenv(getenv func(string) string) Option {
	return func(b *Builder) {
		b.getenv = getenv
	}
}

// New creates a builder whose tasks run commands through runner.
func New(runner CommandRunner, opts ...Option) *Builder {
	b := &Builder{runner: runner, getenv: os.Getenv}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates the model and returns a registry with one task per
// config.Task, in declaration order.
func (b *Builder) Build(ctx context.Context, m *config.Model) (*task.Registry, error) {
	logger := ctxlog.FromContext(ctx)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid build file: %w", err)
	}

	tasks := make([]*task.Task, 0, len(m.Tasks))
	for _, ct := range m.Tasks {
		tasks = append(tasks, b.buildTask(ct))
	}
	reg, err := task.NewRegistry(tasks...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Task registry built.", "tasks", reg.Len())
	return reg, nil
}

func (b *Builder) buildTask(ct *config.Task) *task.Task {
	t := &task.Task{
		Name:          ct.Name,
		Description:   ct.Description,
		Dependencies:  ct.DependsOn,
		FailIfSkipped: ct.FailIfSkipped,
		Dir:           b.resolveDir(ct.Dir),
		Body:          b.body(ct),
	}
	for _, d := range ct.Before {
		t.Directives = append(t.Directives, b.directive(ct, d, task.Before))
	}
	for _, d := range ct.After {
		t.Directives = append(t.Directives, b.directive(ct, d, task.After))
	}
	return t
}

func (b *Builder) resolveDir(dir string) string {
	if dir == "" || filepath.IsAbs(dir) || b.baseDir == "" {
		return dir
	}
	return filepath.Join(b.baseDir, dir)
}

func (b *Builder) body(ct *config.Task) task.Func {
	env := environ(ct.Env)
	return func(c task.Context) (any, error) {
		for _, name := range ct.Calls {
			if _, err := c.Call(name); err != nil {
				return nil, err
			}
		}

		var outputs []string
		for _, line := range ct.Commands {
			c.Logger().Info("⚙️ Running command", "command", line)
			out, err := b.runner.Run(c.Context(), shell.Command{Line: line, Env: env})
			if err != nil {
				return nil, err
			}
			if out != "" {
				outputs = append(outputs, out)
			}
		}
		return strings.Join(outputs, "\n"), nil
	}
}

func (b *Builder) directive(ct *config.Task, d *config.Directive, phase task.Phase) task.Directive {
	env := environ(ct.Env)
	return task.Directive{
		Name:  d.Name,
		Phase: phase,
		Fn: func(c task.Context) error {
			if p := d.SkipUnlessExists; p != "" {
				if _, err := os.Stat(p); err != nil {
					return task.Skip(fmt.Sprintf("%s %q: %s does not exist", phase, d.Name, p))
				}
			}
			if name := d.SkipIfEnv; name != "" && b.getenv(name) != "" {
				return task.Skip(fmt.Sprintf("%s %q: $%s is set", phase, d.Name, name))
			}
			if d.Run == "" {
				return nil
			}
			ctx := ctxlog.With(c.Context(), "directive", d.Name, "phase", phase.String())
			_, err := b.runner.Run(ctx, shell.Command{Line: d.Run, Env: env})
			return err
		},
	}
}

// environ converts env into sorted KEY=VALUE pairs.
func environ(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
