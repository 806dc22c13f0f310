package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/specialistvlad/burstbuild/internal/app"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// fileEnvName overrides build-file discovery when --file is not given.
const fileEnvName = "BURSTBUILD_FILE"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// globalFlags are shared by every command.
type globalFlags struct {
	file      string
	dir       string
	logLevel  string
	logFormat string
	noColor   bool
	vars      map[string]string
}

// runFlags only apply to running tasks.
type runFlags struct {
	healthcheckPort int
	reportPath      string
	notifyURL       string
	notifyNamespace string
}

// Execute runs the command line in args and returns nil or an *ExitError.
// opts are handed to every App the commands create.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, opts ...app.Option) error {
	cmd := NewRootCommand(outW, opts...)
	cmd.SetArgs(args)
	cmd.SetOut(outW)
	cmd.SetErr(errW)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Anything else comes from cobra's own argument handling.
	return usageError(err)
}

// NewRootCommand builds the burstbuild command tree.
func NewRootCommand(outW io.Writer, opts ...app.Option) *cobra.Command {
	g := &globalFlags{}
	r := &runFlags{}

	root := &cobra.Command{
		Use:   "burstbuild [flags] [TASK...]",
		Short: "Run build tasks in dependency order.",
		Long: `burstbuild runs the named tasks of a build file, each with its dependencies,
exactly once per run. Without a task name the "default" task runs.

The build file is burstbuild.hcl, burstbuild.yaml or burstbuild.yml in the
working directory unless --file or $` + fileEnvName + ` names another one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config(args, r)
			if err != nil {
				return err
			}
			a, err := app.NewApp(outW, cfg, app.DefaultLoader(cfg.Vars), opts...)
			if err != nil {
				return usageError(err)
			}
			res, err := a.Run(cmd.Context())
			if err != nil {
				if res == nil {
					return usageError(err)
				}
				return &ExitError{Code: ExitFailed, Message: err.Error()}
			}
			if !res.Success {
				return &ExitError{Code: ExitFailed, Message: fmt.Sprintf("build failed: %v", res.Err)}
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.file, "file", "f", "", "Build file or directory of build files (default: discovered, or $"+fileEnvName+").")
	pf.StringVarP(&g.dir, "dir", "C", "", "Change to this directory before doing anything.")
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable coloured output.")
	pf.StringToStringVar(&g.vars, "var", nil, "Override a build-file variable (key=value, repeatable).")

	f := root.Flags()
	f.IntVar(&r.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	f.StringVar(&r.reportPath, "report", "", "Write a run report to this path or s3://bucket/key (.json or .yaml).")
	f.StringVar(&r.notifyURL, "notify-url", "", "Stream run events to this socket.io server.")
	f.StringVar(&r.notifyNamespace, "notify-namespace", "/", "Socket.io namespace for run events.")

	root.AddCommand(
		newListCommand(outW, g, opts),
		newValidateCommand(outW, g, opts),
		newReportCommand(outW),
	)
	return root
}

// config turns the parsed flags into a validated app.Config.
func (g *globalFlags) config(targets []string, r *runFlags) (*app.Config, error) {
	if g.dir != "" {
		if err := os.Chdir(g.dir); err != nil {
			return nil, usageError(fmt.Errorf("changing directory: %w", err))
		}
	}
	file := g.file
	if file == "" {
		file = os.Getenv(fileEnvName)
	}

	cfg := app.Config{
		File:      file,
		Targets:   targets,
		Vars:      g.vars,
		LogLevel:  strings.ToLower(g.logLevel),
		LogFormat: strings.ToLower(g.logFormat),
		Color:     !g.noColor && !color.NoColor,
	}
	if r != nil {
		cfg.HealthcheckPort = r.healthcheckPort
		cfg.ReportPath = r.reportPath
		cfg.NotifyURL = r.notifyURL
		cfg.NotifyNamespace = r.notifyNamespace
	}

	appConfig, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return appConfig, nil
}
