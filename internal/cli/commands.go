package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/burstbuild/internal/app"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/spf13/cobra"
)

func loadApp(outW io.Writer, g *globalFlags, opts []app.Option) (*app.App, error) {
	cfg, err := g.config(nil, nil)
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(outW, cfg, app.DefaultLoader(cfg.Vars), opts...)
	if err != nil {
		return nil, usageError(err)
	}
	return a, nil
}

func newListCommand(outW io.Writer, g *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tasks of the build file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr(), g, opts)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(outW, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK\tDEPENDS ON\tDESCRIPTION")
			reg := a.Registry()
			for _, name := range reg.Names() {
				t, _ := reg.Get(name)
				deps := strings.Join(t.Dependencies, ", ")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, deps, t.Description)
			}
			return tw.Flush()
		},
	}
}

func newValidateCommand(outW io.Writer, g *globalFlags, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the build file for unknown tasks and dependency cycles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.ErrOrStderr(), g, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(outW, "✅ Build file is valid: %d tasks.\n", a.Registry().Len())
			return nil
		},
	}
}

func newReportCommand(outW io.Writer) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Print a saved run report, or the part of it selected by --query.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := report.ReadFile(args[0])
			if err != nil {
				return usageError(err)
			}
			out, err := report.Query(data, query)
			if err != nil {
				return &ExitError{Code: ExitFailed, Message: err.Error()}
			}
			fmt.Fprintln(outW, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", `gjson path, e.g. "roots.0.children.#.state".`)
	return cmd
}
