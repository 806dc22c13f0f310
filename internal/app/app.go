package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/burstbuild/internal/builder"
	"github.com/specialistvlad/burstbuild/internal/config"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/hcl"
	"github.com/specialistvlad/burstbuild/internal/metrics"
	"github.com/specialistvlad/burstbuild/internal/notify"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/resolver"
	"github.com/specialistvlad/burstbuild/internal/shell"
	"github.com/specialistvlad/burstbuild/internal/task"
	"github.com/specialistvlad/burstbuild/internal/yamlconfig"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	registry   *task.Registry
	metrics    *metrics.Collector
	store      *report.Store
	runner     builder.CommandRunner
	dial       func(context.Context, notify.Config) (*notify.Publisher, error)
	now        func() time.Time
	httpServer *http.Server
}

// Option configures an App.
type Option func(*App)

// WithRunner replaces the shell runner used by task commands.
func WithRunner(r builder.CommandRunner) Option {
	return func(a *App) {
		a.runner = r
	}
}

// WithStore replaces the report store.
func WithStore(s *report.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithDialer replaces notify.Dial.
func WithDialer(dial func(context.Context, notify.Config) (*notify.Publisher, error)) Option {
	return func(a *App) {
		a.dial = dial
	}
}

// DefaultLoader returns a loader for every supported build-file format.
func DefaultLoader(vars map[string]string) config.Loader {
	yamlLoader := yamlconfig.NewLoader(yamlconfig.WithVars(vars))
	return config.ByExtension{
		".hcl":  hcl.NewLoader(hcl.WithVars(vars)),
		".yaml": yamlLoader,
		".yml":  yamlLoader,
	}
}

// NewApp is the constructor for the main application. It loads the build
// file, builds the task registry and lints it. Any problem with the build
// file is returned as an error.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: metrics.New(),
		store:   report.NewStore(),
		runner:  shell.New(outW, outW),
		dial:    notify.Dial,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	path := cfg.File
	if path == "" {
		found, err := config.Discover(cfg.WorkDir)
		if err != nil {
			return nil, err
		}
		path = found
	}
	logger.Debug("Build file selected.", "path", path)

	model, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load build file: %w", err)
	}
	a.model = model
	logger.Debug("Build file loaded and translated into unified model.", "tasks", len(model.Tasks))

	b := builder.New(a.runner, builder.WithBaseDir(baseDir(path)))
	reg, err := b.Build(ctx, model)
	if err != nil {
		return nil, err
	}
	if err := resolver.Lint(reg); err != nil {
		return nil, fmt.Errorf("invalid build file: %w", err)
	}
	a.registry = reg
	logger.Debug("Registry validation passed.", "tasks", reg.Len())

	return a, nil
}

// baseDir is the directory relative task directories are resolved against.
func baseDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return abs
	}
	return filepath.Dir(abs)
}

// Registry returns the application's task registry.
func (a *App) Registry() *task.Registry {
	return a.registry
}

// Model returns the loaded build file.
func (a *App) Model() *config.Model {
	return a.model
}

// Metrics returns the collector attached to every run.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}
