package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plancore/internal/recommend"
)

type captureSender struct {
	mu   sync.Mutex
	sent []recommend.FeedbackPayload
	err  error
}

func (c *captureSender) Feedback(_ context.Context, payload recommend.FeedbackPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *captureSender) delivered() []recommend.FeedbackPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recommend.FeedbackPayload(nil), c.sent...)
}

type captureLogger struct {
	mu    sync.Mutex
	warns []string
}

func (c *captureLogger) Info(string, ...any) {}
func (c *captureLogger) Warn(msg string, _ ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warns = append(c.warns, msg)
}

func (c *captureLogger) warned() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.warns...)
}

func TestDispatcherDeliversQueuedPayloads(t *testing.T) {
	sender := &captureSender{}
	d := NewDispatcher(sender)

	d.Enqueue(recommend.FeedbackPayload{Question: "q1", Type: "saved", Score: 1.0})
	d.Enqueue(recommend.FeedbackPayload{Question: "q2", Type: "saved", Score: 0.5})
	d.Close()

	got := sender.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered %d payloads, want 2", len(got))
	}
	if got[0].Question != "q1" || got[1].Question != "q2" {
		t.Fatalf("order not preserved: %+v", got)
	}
}

func TestDispatcherSwallowsSendFailures(t *testing.T) {
	sender := &captureSender{err: errors.New("service down")}
	logger := &captureLogger{}
	d := NewDispatcher(sender, WithLogger(logger))

	d.Enqueue(recommend.FeedbackPayload{Question: "q1"})
	d.Close()

	warns := logger.warned()
	if len(warns) != 1 || warns[0] != "feedback delivery failed" {
		t.Fatalf("expected a delivery-failure warning, got %v", warns)
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	sender := &blockingSender{release: block}
	logger := &captureLogger{}
	d := NewDispatcher(sender, WithLogger(logger), WithQueueSize(1), WithSendTimeout(time.Second))

	// First payload occupies the worker, second fills the queue, third drops.
	d.Enqueue(recommend.FeedbackPayload{Question: "q1"})
	sender.waitBusy()
	d.Enqueue(recommend.FeedbackPayload{Question: "q2"})
	d.Enqueue(recommend.FeedbackPayload{Question: "q3"})

	close(block)
	d.Close()

	var sawDrop bool
	for _, w := range logger.warned() {
		if w == "feedback dropped, queue full" {
			sawDrop = true
		}
	}
	if !sawDrop {
		t.Fatalf("expected a queue-full drop warning, got %v", logger.warned())
	}
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	sender := &captureSender{}
	logger := &captureLogger{}
	d := NewDispatcher(sender, WithLogger(logger))
	d.Close()

	d.Enqueue(recommend.FeedbackPayload{Question: "late"})
	if len(sender.delivered()) != 0 {
		t.Fatalf("payload enqueued after close must not be delivered")
	}
	warns := logger.warned()
	if len(warns) != 1 || warns[0] != "feedback dropped, dispatcher closed" {
		t.Fatalf("expected closed-drop warning, got %v", warns)
	}
}

type blockingSender struct {
	release <-chan struct{}
}

func (b *blockingSender) Feedback(context.Context, recommend.FeedbackPayload) error {
	<-b.release
	return nil
}

func (b *blockingSender) waitBusy() {
	// Small settle delay: the worker goroutine pulls the first payload off
	// the queue before blocking in Feedback.
	time.Sleep(20 * time.Millisecond)
}
