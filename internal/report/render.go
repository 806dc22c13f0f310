package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/result"
)

// Options controls terminal rendering.
type Options struct {
	Color bool
}

type palette struct {
	bold, dim, green, red, yellow, cyan func(a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		bold:   mk(color.Bold),
		dim:    mk(color.Faint),
		green:  mk(color.FgGreen),
		red:    mk(color.FgRed),
		yellow: mk(color.FgYellow),
		cyan:   mk(color.FgCyan),
	}
}

func (p palette) icon(s execution.State) string {
	switch s {
	case execution.Succeeded:
		return p.green("✔")
	case execution.Failed:
		return p.red("✘")
	case execution.Skipped:
		return p.yellow("↷")
	case execution.Aborted:
		return p.red("⊘")
	case execution.Repeated:
		return p.cyan("↺")
	case execution.Started, execution.Dependents, execution.Running, execution.Calling:
		return p.dim("…")
	default:
		return "?"
	}
}

// Render writes the execution tree of res followed by a one-line verdict and,
// for a failed run, the root cause.
func Render(w io.Writer, res *result.Result, opts Options) error {
	p := newPalette(opts.Color)
	var b strings.Builder

	for _, root := range res.Roots {
		root.Walk(func(ex *execution.Execution, depth int) bool {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(p.icon(ex.State()))
			b.WriteByte(' ')
			b.WriteString(p.bold(ex.Task.Name))
			fmt.Fprintf(&b, " %s", p.dim(fmt.Sprintf("#%d", ex.ID)))
			if ex.Kind == execution.Call {
				b.WriteString(p.dim(" (call)"))
			}
			b.WriteString(" " + annotate(p, ex))
			b.WriteByte('\n')
			return true
		})
	}

	name := res.Task.Name
	if res.Success {
		fmt.Fprintf(&b, "%s %s succeeded in %s\n", p.green("✅"), p.bold(name), round(res.Duration))
	} else {
		fmt.Fprintf(&b, "%s %s failed after %s\n", p.red("❌"), p.bold(name), round(res.Duration))
		if cause := res.Cause(); cause != nil {
			fmt.Fprintf(&b, "   cause: %s %s\n", p.bold(cause.Task.Name), p.dim(fmt.Sprintf("#%d (%s)", cause.ID, cause.ErrType)))
			if cause.Err != nil {
				fmt.Fprintf(&b, "   error: %s\n", p.red(cause.Err.Error()))
			}
			if cause.Trace != "" {
				fmt.Fprintf(&b, "   trace: %s\n", firstLine(cause.Trace))
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func annotate(p palette, ex *execution.Execution) string {
	switch ex.State() {
	case execution.Succeeded:
		return p.dim(round(ex.Duration()).String())
	case execution.Repeated:
		return p.cyan(fmt.Sprintf("repeated #%d", ex.OriginalID))
	case execution.Aborted:
		return p.red(fmt.Sprintf("aborted by #%d", ex.BlameID))
	case execution.Skipped:
		return p.yellow("skipped")
	case execution.Failed:
		if ex.BlameID != 0 {
			return p.red(fmt.Sprintf("failed: call to #%d failed", ex.BlameID))
		}
		if ex.Err != nil {
			return p.red("failed: " + ex.Err.Error())
		}
		return p.red("failed")
	case execution.Started, execution.Dependents, execution.Running, execution.Calling:
		return p.dim(strings.ToLower(ex.State().String()))
	default:
		return ""
	}
}

func round(d time.Duration) time.Duration {
	if d < time.Millisecond {
		return d
	}
	return d.Round(time.Millisecond)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
