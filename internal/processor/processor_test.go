package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/result"
	"github.com/specialistvlad/burstbuild/internal/task"
	"github.com/specialistvlad/burstbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	events  []execution.Event
	results []*result.Result
}

func (o *recordingObserver) OnTransition(_ context.Context, ev execution.Event) {
	o.events = append(o.events, ev)
}

func (o *recordingObserver) OnResult(_ context.Context, res *result.Result) {
	o.results = append(o.results, res)
}

func (o *recordingObserver) transitions() []string {
	out := make([]string, 0, len(o.events))
	for _, ev := range o.events {
		out = append(out, fmt.Sprintf("%s:%s", ev.Task, ev.To))
	}
	return out
}

func newProcessor(t *testing.T, tasks ...*task.Task) *Processor {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	return New(task.MustRegistry(tasks...), WithLogger(logger))
}

func byTask(res *result.Result, name string) []*execution.Execution {
	var out []*execution.Execution
	for _, ex := range res.Executions {
		if ex.Task.Name == name {
			out = append(out, ex)
		}
	}
	return out
}

func buildGraph(rec *testutil.Recorder, compileErr error) []*task.Task {
	build := rec.Task("build", "clean")
	if compileErr != nil {
		build = rec.Failing("build", compileErr, "clean")
	}
	return []*task.Task{
		rec.Task("clean"),
		build,
		rec.Task("test", "build"),
	}
}

func TestRun_Scenario1_LinearChainSucceeds(t *testing.T) {
	// Arrange
	rec := &testutil.Recorder{}
	p := newProcessor(t, buildGraph(rec, nil)...)

	// Act
	res, err := p.Run(context.Background(), "test")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, "test", res.Task.Name)
	assert.Equal(t, "test", res.Value)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"clean", "build", "test"}, rec.Calls())

	require.Len(t, res.Executions, 3)
	for _, ex := range res.Executions {
		assert.Equal(t, execution.Succeeded, ex.State(), ex.Task.Name)
	}

	root := res.Execution
	assert.Equal(t, []execution.State{execution.Started, execution.Dependents, execution.Running, execution.Succeeded}, root.History())
	require.Len(t, root.Children, 1)
	assert.Equal(t, "build", root.Children[0].Task.Name)
	assert.Equal(t, root.ID, root.Children[0].CallerID)
	require.Len(t, root.Children[0].Children, 1)
	clean := root.Children[0].Children[0]
	assert.Equal(t, []execution.State{execution.Started, execution.Running, execution.Succeeded}, clean.History())
	assert.Equal(t, execution.Dependency, clean.Kind)
}

func TestRun_Scenario2_FailureAbortsDependents(t *testing.T) {
	// Arrange
	compileErr := &os.PathError{Op: "open", Path: "main.go", Err: fs.ErrPermission}
	rec := &testutil.Recorder{}
	p := newProcessor(t, buildGraph(rec, compileErr)...)

	// Act
	res, err := p.Run(context.Background(), "test")

	// Assert
	require.NoError(t, err, "a task failure is not a configuration error")
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"clean", "build"}, rec.Calls(), "test body must never run")

	build := byTask(res, "build")[0]
	assert.Equal(t, execution.Failed, build.State())
	assert.Same(t, compileErr, build.Err)

	testEx := res.Execution
	assert.Equal(t, execution.Aborted, testEx.State())
	assert.Equal(t, build.ID, testEx.BlameID)

	var pathErr *os.PathError
	require.ErrorAs(t, res.Err, &pathErr)
	assert.Equal(t, "main.go", pathErr.Path)
	assert.ErrorIs(t, res.Err, fs.ErrPermission)
	var aborted *execution.AbortedError
	require.ErrorAs(t, res.Err, &aborted)
	assert.Equal(t, "build", aborted.Dependency)

	assert.Same(t, build, res.Cause())
	assert.Equal(t, "*fs.PathError", res.ErrType)
	assert.Equal(t, "test > build", res.Trace)
}

func TestRun_Scenario3_SharedDependencyRunsOnce(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t, buildGraph(rec, nil)...)

	res, err := p.Run(context.Background(), "build", "test")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Task.IsNull())
	assert.Equal(t, 1, rec.Count("build"))
	assert.Equal(t, 1, rec.Count("clean"))
	require.Len(t, res.Roots, 2)
	assert.Equal(t, "build", res.Execution.Task.Name)

	builds := byTask(res, "build")
	require.Len(t, builds, 2)
	assert.Equal(t, execution.Succeeded, builds[0].State())
	assert.Equal(t, execution.Repeated, builds[1].State())
	assert.Equal(t, builds[0].ID, builds[1].OriginalID)
	assert.Equal(t, res.Roots[1].ID, builds[1].CallerID)
}

func TestRun_SameTaskTwice(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t, rec.Task("lint"))

	res, err := p.Run(context.Background(), "lint", "lint")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, rec.Count("lint"))
	require.Len(t, res.Roots, 2)

	running := 0
	for _, ex := range res.Executions {
		for _, st := range ex.History() {
			if st == execution.Running {
				running++
			}
		}
	}
	assert.Equal(t, 1, running, "exactly one execution may run the body")

	second := res.Roots[1]
	assert.Equal(t, []execution.State{execution.Started, execution.Repeated}, second.History())
	assert.Equal(t, "lint", second.Result, "a repeat exposes the original value")
	assert.Equal(t, res.Roots[0].ID, second.OriginalID)
}

func TestRun_Diamond(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t,
		rec.Task("top", "left", "right"),
		rec.Task("left", "base"),
		rec.Task("right", "base"),
		rec.Task("base"),
	)

	res, err := p.Run(context.Background(), "top")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"base", "left", "right", "top"}, rec.Calls())

	bases := byTask(res, "base")
	require.Len(t, bases, 2)
	assert.Equal(t, execution.Repeated, bases[1].State())
	assert.Equal(t, "base", bases[1].Result)
	assert.True(t, bases[1].Succeeded())
}

func TestRun_FanOutIsFailFast(t *testing.T) {
	// A depends on B then C; B fails. C must never be started.
	rec := &testutil.Recorder{}
	p := newProcessor(t,
		rec.Task("A", "B", "C"),
		rec.Failing("B", testutil.ErrBoom),
		rec.Task("C"),
	)

	res, err := p.Run(context.Background(), "A")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"B"}, rec.Calls())
	assert.Empty(t, byTask(res, "C"), "no execution may be created for C")
	assert.Equal(t, execution.Aborted, res.Execution.State())
	require.Len(t, res.Execution.Children, 1)
	assert.ErrorIs(t, res.Err, testutil.ErrBoom)
}

func TestRun_AbortPropagatesTransitively(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t,
		rec.Task("release", "package"),
		rec.Task("package", "compile"),
		rec.Failing("compile", testutil.ErrBoom),
	)

	res, err := p.Run(context.Background(), "release")

	require.NoError(t, err)
	assert.Equal(t, execution.Aborted, res.Execution.State())
	assert.Equal(t, execution.Aborted, byTask(res, "package")[0].State())
	compile := byTask(res, "compile")[0]
	assert.Equal(t, execution.Failed, compile.State())
	assert.Same(t, compile, res.Cause())
	assert.Equal(t, []*execution.Execution{compile}, res.Failures())
	assert.ErrorIs(t, res.Err, testutil.ErrBoom)
	for _, ex := range res.Executions {
		if !ex.Succeeded() {
			assert.Error(t, ex.Err, "%s must explain why it did not succeed", ex)
		}
	}
}

func TestRun_Skip(t *testing.T) {
	skipBody := func(task.Context) (any, error) { return nil, task.Skip("nothing changed") }

	t.Run("skipped task counts as success", func(t *testing.T) {
		rec := &testutil.Recorder{}
		docs := &task.Task{Name: "docs", Body: rec.Wrap("docs", skipBody)}
		p := newProcessor(t, docs, rec.Task("site", "docs"))

		res, err := p.Run(context.Background(), "site")

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, execution.Skipped, byTask(res, "docs")[0].State())
		assert.True(t, task.IsSkip(byTask(res, "docs")[0].Err))
		assert.Equal(t, []string{"docs", "site"}, rec.Calls())
	})

	t.Run("fail_if_skipped turns the skip into a failure", func(t *testing.T) {
		docs := &task.Task{Name: "docs", Body: skipBody, FailIfSkipped: true}
		p := newProcessor(t, docs)

		res, err := p.Run(context.Background(), "docs")

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, execution.Failed, res.Execution.State())
		assert.Equal(t,
			[]execution.State{execution.Started, execution.Running, execution.Skipped, execution.Failed},
			res.Execution.History())
		assert.ErrorIs(t, res.Err, execution.ErrSkippedNotAllowed)
		assert.True(t, task.IsSkip(res.Err))
	})
}

func TestRun_Directives(t *testing.T) {
	t.Run("run in order around the body", func(t *testing.T) {
		rec := &testutil.Recorder{}
		tk := rec.Task("build")
		tk.Directives = []task.Directive{
			rec.Directive("before-1", task.Before, nil),
			rec.Directive("after-1", task.After, nil),
			rec.Directive("before-2", task.Before, nil),
		}
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{"before-1", "before-2", "build", "after-1"}, rec.Calls())
	})

	t.Run("failing before directive short-circuits the body", func(t *testing.T) {
		rec := &testutil.Recorder{}
		directiveErr := errors.New("go.mod missing")
		tk := rec.Task("build")
		tk.Directives = []task.Directive{
			rec.Directive("check", task.Before, directiveErr),
			rec.Directive("never", task.Before, nil),
			rec.Directive("after", task.After, nil),
		}
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, []string{"check"}, rec.Calls())
		assert.Equal(t, execution.Failed, res.Execution.State())
		assert.Same(t, directiveErr, res.Execution.Err)
	})

	t.Run("before directive can skip", func(t *testing.T) {
		rec := &testutil.Recorder{}
		tk := rec.Task("deploy")
		tk.Directives = []task.Directive{rec.Directive("only-on-ci", task.Before, task.Skip("not on CI"))}
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "deploy")

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, execution.Skipped, res.Execution.State())
		assert.Equal(t, []string{"only-on-ci"}, rec.Calls())
	})

	t.Run("failing after directive fails the task", func(t *testing.T) {
		rec := &testutil.Recorder{}
		tk := rec.Task("build")
		tk.Directives = []task.Directive{rec.Directive("smoke", task.After, testutil.ErrBoom)}
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.Equal(t, execution.Failed, res.Execution.State())
		assert.ErrorIs(t, res.Err, testutil.ErrBoom)
		assert.Equal(t, []string{"build", "smoke"}, rec.Calls())
	})

	t.Run("panicking directive fails the task", func(t *testing.T) {
		tk := &task.Task{Name: "build", Directives: []task.Directive{{
			Name:  "bad",
			Phase: task.Before,
			Fn:    func(task.Context) error { panic("directive exploded") },
		}}}
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		var pe *execution.PanicError
		require.ErrorAs(t, res.Err, &pe)
		assert.Equal(t, "directive exploded", pe.Value)
	})
}

func TestRun_ConfigurationErrors(t *testing.T) {
	t.Run("no tasks", func(t *testing.T) {
		res, err := newProcessor(t, &task.Task{Name: "a"}).Run(context.Background())
		assert.ErrorIs(t, err, ErrNoTasks)
		assert.Nil(t, res)
	})

	t.Run("unknown requested task stops before anything runs", func(t *testing.T) {
		rec := &testutil.Recorder{}
		p := newProcessor(t, rec.Task("ok"))

		res, err := p.Run(context.Background(), "ok", "missing")

		assert.Nil(t, res)
		assert.ErrorIs(t, err, task.ErrNoSuchTask)
		assert.Empty(t, rec.Calls())
	})

	t.Run("unknown dependency names its referrer", func(t *testing.T) {
		p := newProcessor(t, &task.Task{Name: "build", Dependencies: []string{"generate"}})

		_, err := p.Run(context.Background(), "build")

		var nst *task.NoSuchTaskError
		require.ErrorAs(t, err, &nst)
		assert.Equal(t, "build", nst.Referrer)
	})

	t.Run("cycle never invokes a body", func(t *testing.T) {
		rec := &testutil.Recorder{}
		p := newProcessor(t,
			rec.Task("A", "B"),
			rec.Task("B", "C"),
			rec.Task("C", "A"),
		)

		res, err := p.Run(context.Background(), "A")

		assert.Nil(t, res)
		var cycle *task.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"A", "B", "C", "A"}, cycle.Path)
		assert.Empty(t, rec.Calls())
	})

	t.Run("missing task directory", func(t *testing.T) {
		t.Chdir(t.TempDir())
		rec := &testutil.Recorder{}
		tk := rec.Task("build")
		tk.Dir = "does-not-exist"
		p := newProcessor(t, tk)

		res, err := p.Run(context.Background(), "build")

		assert.Nil(t, res)
		var nsd *task.NoSuchDirectoryError
		require.ErrorAs(t, err, &nsd)
		assert.Equal(t, "does-not-exist", nsd.Dir)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Empty(t, rec.Calls())
	})
}

func TestRun_Call(t *testing.T) {
	t.Run("returns the callee result", func(t *testing.T) {
		rec := &testutil.Recorder{}
		gen := rec.Task("gen")
		build := &task.Task{Name: "build", Body: rec.Wrap("build", func(c task.Context) (any, error) {
			v, err := c.Call("gen")
			if err != nil {
				return nil, err
			}
			return fmt.Sprintf("built from %v", v), nil
		})}
		p := newProcessor(t, build, gen)

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "built from gen", res.Value)
		assert.Equal(t, []string{"build", "gen"}, rec.Calls())
		assert.Equal(t,
			[]execution.State{execution.Started, execution.Running, execution.Calling, execution.Running, execution.Succeeded},
			res.Execution.History())

		require.Len(t, res.Execution.Children, 1)
		callee := res.Execution.Children[0]
		assert.Equal(t, execution.Call, callee.Kind)
		assert.Equal(t, res.Execution.ID, callee.CallerID)
	})

	t.Run("failed callee fails the caller even when swallowed", func(t *testing.T) {
		rec := &testutil.Recorder{}
		var callErr error
		build := &task.Task{Name: "build", Body: func(c task.Context) (any, error) {
			_, callErr = c.Call("gen")
			return "ignored", nil
		}}
		p := newProcessor(t, build, rec.Failing("gen", testutil.ErrBoom))

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, execution.Failed, res.Execution.State())
		assert.Equal(t, execution.Calling, res.Execution.History()[2])

		var ce *execution.CallError
		require.ErrorAs(t, res.Err, &ce)
		assert.Equal(t, "gen", ce.Callee)
		assert.ErrorIs(t, callErr, testutil.ErrBoom)
		assert.ErrorIs(t, res.Err, testutil.ErrBoom)

		gen := byTask(res, "gen")[0]
		assert.Equal(t, gen.ID, res.Execution.BlameID)
		assert.Same(t, gen, res.Cause())
		assert.Equal(t, "build > gen", res.Trace)
	})

	t.Run("calling a finished task repeats it", func(t *testing.T) {
		rec := &testutil.Recorder{}
		build := &task.Task{Name: "build", Dependencies: []string{"gen"}, Body: func(c task.Context) (any, error) {
			return c.Call("gen")
		}}
		p := newProcessor(t, build, rec.Task("gen"))

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.Equal(t, 1, rec.Count("gen"))
		assert.Equal(t, "gen", res.Value)
		gens := byTask(res, "gen")
		require.Len(t, gens, 2)
		assert.Equal(t, execution.Repeated, gens[1].State())
		assert.Equal(t, execution.Call, gens[1].Kind)
	})

	t.Run("unknown callee is a configuration error even when swallowed", func(t *testing.T) {
		build := &task.Task{Name: "build", Body: func(c task.Context) (any, error) {
			_, _ = c.Call("nope")
			return nil, nil
		}}
		p := newProcessor(t, build)

		res, err := p.Run(context.Background(), "build")

		assert.Nil(t, res)
		assert.ErrorIs(t, err, task.ErrNoSuchTask)
	})

	t.Run("calling a running task is a cycle", func(t *testing.T) {
		build := &task.Task{Name: "build", Body: func(c task.Context) (any, error) {
			return c.Call("test")
		}}
		test := &task.Task{Name: "test", Dependencies: []string{"build"}}
		p := newProcessor(t, build, test)

		res, err := p.Run(context.Background(), "build")

		assert.Nil(t, res)
		var cycle *task.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"build", "test", "build"}, cycle.Path)
	})

	t.Run("directive may call and swallow a failure", func(t *testing.T) {
		rec := &testutil.Recorder{}
		tk := rec.Task("build")
		tk.Directives = []task.Directive{{
			Name:  "prepare",
			Phase: task.Before,
			Fn: func(c task.Context) error {
				_, _ = c.Call("gen")
				return nil
			},
		}}
		p := newProcessor(t, tk, rec.Failing("gen", testutil.ErrBoom))

		res, err := p.Run(context.Background(), "build")

		require.NoError(t, err)
		assert.Equal(t, execution.Failed, res.Execution.State())
		assert.Equal(t, []string{"gen"}, rec.Calls(), "the body must not run after a failed call")
	})
}

func TestRun_WorkingDirectory(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"src/main.go": "package main"})
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	t.Chdir(root)

	t.Run("task dir is entered and restored", func(t *testing.T) {
		var seen string
		tk := &task.Task{Name: "build", Dir: "src", Body: func(task.Context) (any, error) {
			wd, err := os.Getwd()
			seen = wd
			return nil, err
		}}
		res, err := newProcessor(t, tk).Run(context.Background(), "build")

		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, filepath.Join(root, "src"), seen)
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, root, wd)
	})

	t.Run("chdir inside the body is undone", func(t *testing.T) {
		tk := &task.Task{Name: "build", Body: func(c task.Context) (any, error) {
			return nil, c.Chdir("src")
		}}
		res, err := newProcessor(t, tk).Run(context.Background(), "build")

		require.NoError(t, err)
		assert.True(t, res.Success)
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, root, wd)
	})

	t.Run("swallowed chdir to a missing directory still stops the run", func(t *testing.T) {
		tk := &task.Task{Name: "build", Body: func(c task.Context) (any, error) {
			_ = c.Chdir("missing")
			return nil, nil
		}}
		res, err := newProcessor(t, tk).Run(context.Background(), "build")

		assert.Nil(t, res)
		assert.ErrorIs(t, err, task.ErrNoSuchDirectory)
	})
}

func TestRun_PanicIsCaptured(t *testing.T) {
	tk := &task.Task{Name: "build", Body: func(task.Context) (any, error) {
		var m map[string]int
		m["x"]++
		return nil, nil
	}}
	p := newProcessor(t, tk)

	res, err := p.Run(context.Background(), "build")

	require.NoError(t, err)
	assert.False(t, res.Success)
	var pe *execution.PanicError
	require.ErrorAs(t, res.Err, &pe)
	assert.Equal(t, "*execution.PanicError", res.ErrType)
	assert.Contains(t, res.Trace, "build")
	assert.Contains(t, res.Trace, "goroutine")
}

func TestRun_CancelledContext(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t, rec.Task("test", "build"), rec.Task("build"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, "test")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, rec.Calls())
	build := byTask(res, "build")[0]
	assert.Equal(t, []execution.State{execution.Started, execution.Failed}, build.History())
	assert.Equal(t, execution.Aborted, res.Execution.State())
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRun_MultipleRootsFailFast(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t, rec.Failing("lint", testutil.ErrBoom), rec.Task("unit"))

	res, err := p.Run(context.Background(), "lint", "unit")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.Task.IsNull())
	assert.Len(t, res.Roots, 1)
	assert.Equal(t, []string{"lint"}, rec.Calls())
}

func TestRun_ObserversAndOptions(t *testing.T) {
	rec := &testutil.Recorder{}
	obs := &recordingObserver{}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	logger, logs := testutil.NewLogger(t)
	p := New(task.MustRegistry(buildGraph(rec, nil)...),
		WithObserver(obs),
		WithLogger(logger),
		WithRunID(func() string { return "run-42" }),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)

	res, err := p.Run(context.Background(), "test")

	require.NoError(t, err)
	assert.Equal(t, "run-42", res.RunID)
	assert.Equal(t, []string{
		"test:DEPENDENTS",
		"build:DEPENDENTS",
		"clean:RUNNING",
		"clean:SUCCEEDED",
		"build:RUNNING",
		"build:SUCCEEDED",
		"test:RUNNING",
		"test:SUCCEEDED",
	}, obs.transitions())
	for _, ev := range obs.events {
		assert.Equal(t, "run-42", ev.RunID)
	}
	last := obs.events[len(obs.events)-1]
	assert.True(t, last.Done)
	assert.Positive(t, last.Duration)
	assert.Positive(t, res.Duration)

	require.Len(t, obs.results, 1)
	assert.Same(t, res, obs.results[0])

	assert.Contains(t, logs.String(), "▶️ Starting task")
	assert.Contains(t, logs.String(), "task=clean")
	assert.Contains(t, logs.String(), "run_id=run-42")
}

func TestRun_ObserverFunc(t *testing.T) {
	var states []execution.State
	p := New(task.MustRegistry(&task.Task{Name: "a"}), WithObserver(ObserverFunc(func(_ context.Context, ev execution.Event) {
		states = append(states, ev.To)
	})))

	_, err := p.Run(context.Background(), "a")

	require.NoError(t, err)
	assert.Equal(t, []execution.State{execution.Running, execution.Succeeded}, states)
}

// panickingObserver panics on every notification.
type panickingObserver struct{}

func (panickingObserver) OnTransition(context.Context, execution.Event) { panic("emit failed") }
func (panickingObserver) OnResult(context.Context, *result.Result)      { panic("emit failed") }

func TestRun_PanickingObserverDoesNotBreakTheRun(t *testing.T) {
	// Arrange
	logger, logs := testutil.NewLogger(t)
	var states []execution.State
	p := New(task.MustRegistry(&task.Task{Name: "b"}, &task.Task{Name: "a", Dependencies: []string{"b"}}),
		WithLogger(logger),
		WithObserver(panickingObserver{}),
		WithObserver(ObserverFunc(func(_ context.Context, ev execution.Event) {
			states = append(states, ev.To)
		})),
	)

	// Act
	res, err := p.Run(context.Background(), "a")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, execution.Succeeded, res.Execution.State())
	assert.Contains(t, states, execution.Succeeded, "later observers are still notified")
	assert.Contains(t, logs.String(), "Observer panicked.")
}

func TestRun_ProcessorIsReusable(t *testing.T) {
	rec := &testutil.Recorder{}
	p := newProcessor(t, rec.Task("a"))

	first, err := p.Run(context.Background(), "a")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Count("a"))
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, execution.Succeeded, second.Execution.State())
}
