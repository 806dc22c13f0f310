package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/notify"
	"github.com/specialistvlad/burstbuild/internal/processor"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/result"
)

// ErrNoTarget is returned by Run when no target was given and the build file
// has no default task.
var ErrNoTarget = errors.New("no task requested and no default task declared")

// Run executes the configured targets and renders the result. A failed build
// is reported through the Result; the error is reserved for problems that
// prevented the build from running or its report from being saved.
func (a *App) Run(ctx context.Context) (*result.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	targets, err := a.targets()
	if err != nil {
		return nil, err
	}

	if a.config.HealthcheckPort > 0 {
		a.startHealthCheckServer(ctx)
		defer a.closeHealthCheckServer(ctx)
	}

	opts := []processor.Option{
		processor.WithLogger(a.logger),
		processor.WithObserver(a.metrics),
	}
	if a.config.NotifyURL != "" {
		pub, err := a.dial(ctx, notify.Config{
			URL:       a.config.NotifyURL,
			Namespace: a.config.NotifyNamespace,
			Timeout:   a.config.NotifyTimeout,
		})
		if err != nil {
			a.logger.Warn("Notify server unavailable, continuing without live updates.", "error", err)
		} else {
			defer pub.Close()
			opts = append(opts, processor.WithObserver(pub))
		}
	}

	a.logger.Info("🚀 Starting build...", "targets", targets)
	res, err := processor.New(a.registry, opts...).Run(ctx, targets...)
	if err != nil {
		return nil, fmt.Errorf("build aborted: %w", err)
	}

	if err := report.Render(a.outW, res, report.Options{Color: a.config.Color}); err != nil {
		return res, fmt.Errorf("rendering result: %w", err)
	}
	if a.config.ReportPath != "" {
		if err := a.store.Save(ctx, a.config.ReportPath, report.NewDocument(res, a.now())); err != nil {
			return res, fmt.Errorf("saving report: %w", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return res, nil
}

func (a *App) targets() ([]string, error) {
	if len(a.config.Targets) > 0 {
		return a.config.Targets, nil
	}
	if _, ok := a.registry.Get(DefaultTask); ok {
		return []string{DefaultTask}, nil
	}
	return nil, ErrNoTarget
}
