package processor

import (
	"context"

	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/result"
)

// Observer is notified synchronously of every state transition in a run.
type Observer interface {
	OnTransition(ctx context.Context, ev execution.Event)
}

// ResultObserver is implemented by observers that also want the final result.
type ResultObserver interface {
	OnResult(ctx context.Context, res *result.Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev execution.Event)

// OnTransition calls f.
func (f ObserverFunc) OnTransition(ctx context.Context, ev execution.Event) {
	f(ctx, ev)
}
