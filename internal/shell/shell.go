// Package shell runs command lines for build-file tasks through sh -c.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
)

// Command is a single command line to run.
type Command struct {
	Line string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env holds KEY=VALUE pairs added to the process environment.
	Env []string
}

// ExitError is returned when a command exits with a non-zero status.
type ExitError struct {
	Line   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Line, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + lastLine(s)
	}
	return msg
}

// Runner executes commands, streaming their output to Stdout and Stderr
// while capturing it.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Shell is the interpreter invoked with -c. Defaults to "sh".
	Shell string
}

// New returns a Runner streaming to the given writers. Nil writers discard.
func New(stdout, stderr io.Writer) *Runner {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Runner{Stdout: stdout, Stderr: stderr, Shell: "sh"}
}

// Run executes cmd and returns its standard output with the trailing newline
// removed. Cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, cmd Command) (string, error) {
	logger := ctxlog.FromContext(ctx)
	sh := r.Shell
	if sh == "" {
		sh = "sh"
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, sh, "-c", cmd.Line)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = io.MultiWriter(&stdout, r.Stdout)
	c.Stderr = io.MultiWriter(&stderr, r.Stderr)

	logger.Debug("Running command.", "command", cmd.Line, "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return stdout.String(), &ExitError{Line: cmd.Line, Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		if ctx.Err() != nil {
			return stdout.String(), fmt.Errorf("command %q interrupted: %w", cmd.Line, ctx.Err())
		}
		return stdout.String(), fmt.Errorf("running %q: %w", cmd.Line, err)
	}
	return strings.TrimSuffix(stdout.String(), "\n"), nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
