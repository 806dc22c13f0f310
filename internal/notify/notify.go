// Package notify streams run progress to a socket.io server, typically a CI
// dashboard. Every state transition is emitted as a "transition" event and
// the finished run as a "result" event.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/execution"
	"github.com/specialistvlad/burstbuild/internal/processor"
	"github.com/specialistvlad/burstbuild/internal/result"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by the Publisher.
const (
	TransitionEvent = "transition"
	ResultEvent     = "result"
)

// DefaultTimeout bounds how long Dial waits for the server to accept the
// connection.
const DefaultTimeout = 15 * time.Second

// EmitFunc sends one socket.io event.
type EmitFunc func(event string, args ...any)

// Transition is the payload of a transition event.
type Transition struct {
	RunID       string `json:"run_id"`
	ExecutionID int    `json:"execution_id"`
	CallerID    int    `json:"caller_id,omitempty"`
	Task        string `json:"task"`
	Kind        string `json:"kind"`
	From        string `json:"from"`
	To          string `json:"to"`
	At          string `json:"at"`
	Done        bool   `json:"done"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Summary is the payload of a result event.
type Summary struct {
	RunID      string `json:"run_id"`
	Task       string `json:"task"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ErrorType  string `json:"error_type,omitempty"`
	CauseTask  string `json:"cause_task,omitempty"`
	Executions int    `json:"executions"`
	DurationMS int64  `json:"duration_ms"`
}

// Publisher is a processor observer that forwards events through an EmitFunc.
type Publisher struct {
	emit  EmitFunc
	close func()
}

var (
	_ processor.Observer       = (*Publisher)(nil)
	_ processor.ResultObserver = (*Publisher)(nil)
)

// NewPublisher creates a Publisher that emits through emit.
func NewPublisher(emit EmitFunc) *Publisher {
	return &Publisher{emit: emit, close: func() {}}
}

// OnTransition implements processor.Observer.
func (p *Publisher) OnTransition(_ context.Context, ev execution.Event) {
	msg := Transition{
		RunID:       ev.RunID,
		ExecutionID: ev.ExecutionID,
		CallerID:    ev.CallerID,
		Task:        ev.Task,
		Kind:        ev.Kind.String(),
		From:        ev.From.String(),
		To:          ev.To.String(),
		At:          ev.At.UTC().Format(time.RFC3339Nano),
		Done:        ev.Done,
		DurationMS:  ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	p.emit(TransitionEvent, msg)
}

// OnResult implements processor.ResultObserver.
func (p *Publisher) OnResult(_ context.Context, res *result.Result) {
	msg := Summary{
		RunID:      res.RunID,
		Task:       res.Task.Name,
		Success:    res.Success,
		ErrorType:  res.ErrType,
		Executions: len(res.Executions),
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		msg.Error = res.Err.Error()
	}
	if cause := res.Cause(); cause != nil {
		msg.CauseTask = cause.Task.Name
	}
	p.emit(ResultEvent, msg)
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	p.close()
}

// Config describes the server a Publisher connects to.
type Config struct {
	URL                string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Dial connects to the socket.io server and waits for the namespace to be
// joined.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("notify_url", cfg.URL, "namespace", cfg.Namespace)

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must include a scheme and host", cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	report := firstOutcome(connectChan)
	io.Once(types.EventName("connect"), func(...any) {
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		report(err)
	})

	logger.Debug("Connecting to notify server...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
	logger.Info("📡 Connected to notify server", "sid", io.Id())

	return &Publisher{
		emit: func(event string, args ...any) {
			io.Emit(event, args...)
		},
		close: func() {
			io.Disconnect()
		},
	}, nil
}

// firstOutcome returns a send func for ch that never blocks. Dial reads only
// the first connection outcome, and later ones are dropped so the client's
// event loop keeps running after Dial has returned.
func firstOutcome(ch chan<- error) func(error) {
	return func(err error) {
		select {
		case ch <- err:
		default:
		}
	}
}
