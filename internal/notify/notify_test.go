package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/burstbuild/internal/processor"
	"github.com/specialistvlad/burstbuild/internal/task"
	"github.com/specialistvlad/burstbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	event string
	args  []any
}

func TestPublisher(t *testing.T) {
	// Arrange
	var got []emitted
	pub := NewPublisher(func(event string, args ...any) {
		got = append(got, emitted{event: event, args: args})
	})
	rec := &testutil.Recorder{}
	reg := task.MustRegistry(rec.Failing("build", testutil.ErrBoom, "clean"), rec.Task("clean"))
	logger, _ := testutil.NewLogger(t)
	p := processor.New(reg, processor.WithObserver(pub), processor.WithLogger(logger), processor.WithRunID(func() string { return "r1" }))

	// Act
	res, err := p.Run(context.Background(), "build")

	// Assert
	require.NoError(t, err)
	require.False(t, res.Success)

	var states []string
	for _, e := range got[:len(got)-1] {
		require.Equal(t, TransitionEvent, e.event)
		require.Len(t, e.args, 1)
		tr := e.args[0].(Transition)
		assert.Equal(t, "r1", tr.RunID)
		states = append(states, tr.Task+":"+tr.To)
	}
	assert.Equal(t, []string{"build:DEPENDENTS", "clean:RUNNING", "clean:SUCCEEDED", "build:RUNNING", "build:FAILED"}, states)

	first := got[0].args[0].(Transition)
	assert.Equal(t, "STARTED", first.From)
	assert.Equal(t, "requested", first.Kind)
	failed := got[len(got)-2].args[0].(Transition)
	assert.True(t, failed.Done)
	assert.Equal(t, "boom", failed.Error)

	last := got[len(got)-1]
	require.Equal(t, ResultEvent, last.event)
	summary := last.args[0].(Summary)
	assert.Equal(t, "build", summary.Task)
	assert.False(t, summary.Success)
	assert.Equal(t, "build", summary.CauseTask)
	assert.Equal(t, 2, summary.Executions)
	assert.Equal(t, "*errors.errorString", summary.ErrorType)

	pub.Close()
}

func TestDial_InvalidURL(t *testing.T) {
	cases := []string{"://nope", "localhost:3000", "/socket.io"}
	for _, u := range cases {
		t.Run(u, func(t *testing.T) {
			_, err := Dial(context.Background(), Config{URL: u})
			assert.Error(t, err)
		})
	}
}

func TestFirstOutcome_LateOutcomesDoNotBlock(t *testing.T) {
	t.Parallel()

	ch := make(chan error, 1)
	send := firstOutcome(ch)
	connectErr := errors.New("connect_error")

	done := make(chan struct{})
	go func() {
		defer close(done)
		send(nil)
		send(connectErr)
		send(connectErr)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sending a late connection outcome blocked")
	}
	assert.NoError(t, <-ch, "the first outcome is kept")
	assert.Empty(t, ch)
}
