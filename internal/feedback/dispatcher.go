// Package feedback delivers recommendation feedback in the background.
// Emission is strictly fire-and-forget: a failed or dropped record never
// affects the task mutation that produced it.
package feedback

import (
	"context"
	"sync"
	"time"

	"plancore/internal/recommend"
)

// Sender posts one feedback payload. *recommend.Client satisfies it.
type Sender interface {
	Feedback(ctx context.Context, payload recommend.FeedbackPayload) error
}

// Logger is the subset of the service logger the dispatcher needs.
type Logger interface {
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 10 * time.Second
)

// Dispatcher drains a bounded queue of feedback payloads to a Sender on a
// single background goroutine. When the queue is full new records are
// dropped with a warning rather than blocking the caller.
type Dispatcher struct {
	sender  Sender
	logger  Logger
	queue   chan recommend.FeedbackPayload
	timeout time.Duration

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	finished  chan struct{}
}

// DispatcherOption customizes dispatcher construction.
type DispatcherOption func(*Dispatcher)

// WithLogger attaches a logger for drop and delivery-failure events.
func WithLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQueueSize overrides the queue capacity.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan recommend.FeedbackPayload, n)
		}
	}
}

// WithSendTimeout bounds each delivery attempt.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher starts a dispatcher draining to sender.
func NewDispatcher(sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:   sender,
		logger:   noopLogger{},
		queue:    make(chan recommend.FeedbackPayload, defaultQueueSize),
		timeout:  defaultSendTimeout,
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Enqueue hands a payload to the background worker without blocking. Records
// offered after Close, or while the queue is full, are dropped.
func (d *Dispatcher) Enqueue(payload recommend.FeedbackPayload) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("feedback dropped, dispatcher closed", "question", payload.Question)
		return
	}
	select {
	case d.queue <- payload:
	default:
		d.logger.Warn("feedback dropped, queue full", "question", payload.Question)
	}
}

// Close stops accepting new records, drains the queue, and waits for the
// worker to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
	})
	<-d.finished
}

func (d *Dispatcher) run() {
	defer close(d.finished)
	for payload := range d.queue {
		d.send(payload)
	}
}

func (d *Dispatcher) send(payload recommend.FeedbackPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sender.Feedback(ctx, payload); err != nil {
		d.logger.Warn("feedback delivery failed", "error", err, "question", payload.Question)
		return
	}
	d.logger.Info("feedback delivered", "type", payload.Type, "score", payload.Score)
}
