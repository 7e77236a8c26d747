package parley

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RequestState is the lifecycle state of a dispatched request.
type RequestState int32

const (
	RequestIdle RequestState = iota
	RequestSending
	RequestStreaming
	RequestCompleted
	RequestCancelled
	RequestFailed
)

func (s RequestState) String() string {
	switch s {
	case RequestIdle:
		return "idle"
	case RequestSending:
		return "sending"
	case RequestStreaming:
		return "streaming"
	case RequestCompleted:
		return "completed"
	case RequestCancelled:
		return "cancelled"
	case RequestFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final state.
func (s RequestState) Terminal() bool {
	return s >= RequestCompleted
}

// Sink receives the output of one request. Every method is invoked through
// the dispatcher's Poster, never from the worker goroutine directly.
// Exactly one of OnDone, OnCancelled, or OnError is called per request.
type Sink interface {
	OnTextDelta(text string)
	OnDone()
	OnCancelled()
	OnError(kind ErrorKind, message string)
}

// Poster schedules fn on the thread that owns the UI. Calls must run in the
// order they were posted.
type Poster func(fn func())

// RequestReport summarizes a finished request.
type RequestReport struct {
	Provider ProviderKind
	Model    string
	State    RequestState
	Kind     ErrorKind // set when State is RequestFailed
	Chunks   int
	Duration time.Duration
}

// RequestObserver is notified once per finished request.
type RequestObserver interface {
	ObserveRequest(r RequestReport)
}

// OpenFunc starts the provider stream for a job. It runs on the worker.
type OpenFunc func(ctx context.Context) (Stream, error)

// Job is one unit of dispatch work.
type Job struct {
	Model ModelDescriptor
	Open  OpenFunc
}

// StreamJob returns a Job that streams req from p.
func StreamJob(p Provider, model ModelDescriptor, req Request) Job {
	return Job{Model: model, Open: func(ctx context.Context) (Stream, error) {
		return p.Stream(ctx, req)
	}}
}

// Call is a handle on an in-flight request.
type Call struct {
	job       Job
	state     atomic.Int32
	cancelled atomic.Bool
	released  atomic.Bool // worker has closed the stream
	chunks    atomic.Int64
	started   time.Time
	done      chan struct{}
}

// Cancel asks the worker to stop. It returns immediately; the network read
// in progress, if any, is allowed to finish but its output is discarded.
func (c *Call) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (c *Call) Cancelled() bool { return c.cancelled.Load() }

// State returns the current lifecycle state.
func (c *Call) State() RequestState { return RequestState(c.state.Load()) }

// Done is closed when the worker goroutine has exited.
func (c *Call) Done() <-chan struct{} { return c.done }

// finish moves c to a terminal state once. It reports whether this call won.
func (c *Call) finish(s RequestState) bool {
	for {
		cur := c.state.Load()
		if RequestState(cur).Terminal() {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

func (c *Call) advance(s RequestState) {
	for {
		cur := c.state.Load()
		if RequestState(cur).Terminal() || c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Dispatcher runs at most one request at a time on a background worker and
// delivers its output through a Poster.
type Dispatcher struct {
	post     Poster
	logger   *slog.Logger
	observer RequestObserver
	now      func() time.Time

	mu      sync.Mutex
	current *Call
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithRequestObserver sets the observer notified on request completion.
func WithRequestObserver(o RequestObserver) DispatcherOption {
	return func(d *Dispatcher) { d.observer = o }
}

// WithClock overrides the time source used for request durations.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher returns a Dispatcher that delivers callbacks through post.
func NewDispatcher(post Poster, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		post:   post,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Busy reports whether a request is in flight. A cancelled request stays
// busy until its worker has let go of the provider stream, so at most one
// stream is ever open.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busyLocked()
}

func (d *Dispatcher) busyLocked() bool {
	c := d.current
	if c == nil {
		return false
	}
	if !c.released.Load() {
		return true
	}
	return !c.Cancelled() && !c.State().Terminal()
}

// Cancel cancels the current request, if any.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	c := d.current
	d.mu.Unlock()
	if c != nil {
		c.Cancel()
	}
}

// Submit starts job on a new worker goroutine. It returns ErrBusy while a
// previous worker still holds its stream, or while a previous request has
// finished streaming but its outcome has not been delivered yet.
func (d *Dispatcher) Submit(ctx context.Context, job Job, sink Sink) (*Call, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busyLocked() {
		return nil, ErrBusy
	}
	c := &Call{job: job, started: d.now(), done: make(chan struct{})}
	c.state.Store(int32(RequestSending))
	d.current = c
	d.logger.Debug("dispatch", "provider", job.Model.Provider, "model", job.Model.ID)
	go d.run(ctx, c, sink)
	return c, nil
}

func (d *Dispatcher) run(ctx context.Context, c *Call, sink Sink) {
	defer close(c.done)
	notify := d.consume(ctx, c, sink)
	c.released.Store(true)
	notify()
}

// consume reads the stream until it ends, fails, or the call is cancelled,
// and returns the terminal notification to post. The stream is closed by the
// time consume returns.
func (d *Dispatcher) consume(ctx context.Context, c *Call, sink Sink) func() {
	stream, err := c.job.Open(ctx)
	if err != nil {
		return func() { d.fail(c, sink, err) }
	}
	defer stream.Close()
	c.advance(RequestStreaming)

	for {
		if c.Cancelled() {
			return func() { d.cancel(c, sink) }
		}
		ev, err := stream.Next()
		if c.Cancelled() {
			return func() { d.cancel(c, sink) }
		}
		if errors.Is(err, io.EOF) {
			return func() { d.complete(c, sink) }
		}
		if err != nil {
			return func() { d.fail(c, sink, err) }
		}
		if e, ok := ev.(EventTextDelta); ok && e.Delta != "" {
			c.chunks.Add(1)
			text := e.Delta
			d.post(func() {
				if c.Cancelled() {
					return
				}
				sink.OnTextDelta(text)
			})
		}
	}
}

// The terminal callbacks re-check the cancel flag when they run, so a Cancel
// that lands after the worker finished still suppresses OnDone.

func (d *Dispatcher) complete(c *Call, sink Sink) {
	d.post(func() {
		if c.Cancelled() {
			d.settle(c, RequestCancelled, KindUnexpected, sink.OnCancelled)
			return
		}
		d.settle(c, RequestCompleted, KindUnexpected, sink.OnDone)
	})
}

func (d *Dispatcher) cancel(c *Call, sink Sink) {
	d.post(func() {
		d.settle(c, RequestCancelled, KindUnexpected, sink.OnCancelled)
	})
}

func (d *Dispatcher) fail(c *Call, sink Sink, err error) {
	kind, msg := KindOf(err), MessageOf(err)
	d.logger.Debug("dispatch failed", "model", c.job.Model.ID, "kind", kind, "error", err)
	d.post(func() {
		if c.Cancelled() {
			d.settle(c, RequestCancelled, KindUnexpected, sink.OnCancelled)
			return
		}
		d.settle(c, RequestFailed, kind, func() { sink.OnError(kind, msg) })
	})
}

func (d *Dispatcher) settle(c *Call, s RequestState, kind ErrorKind, notify func()) {
	if !c.finish(s) {
		return
	}
	if d.observer != nil {
		r := RequestReport{
			Provider: c.job.Model.Provider,
			Model:    c.job.Model.ID,
			State:    s,
			Chunks:   int(c.chunks.Load()),
			Duration: d.now().Sub(c.started),
		}
		if s == RequestFailed {
			r.Kind = kind
		}
		d.observer.ObserveRequest(r)
	}
	notify()
}
