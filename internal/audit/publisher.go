package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bucketlist_audit_events_dropped_total",
	Help: "Audit events dropped because the publisher queue was full or closed",
})

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("audit publisher closed")

// Sink receives audit events. Implementations must be safe for use by a
// single worker goroutine.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// Publisher queues events for a background Worker so request handlers never
// block on a slow sink. Emit drops events when the queue is full.
type Publisher struct {
	mu     sync.RWMutex
	closed bool
	inbox  chan Event
	worker *Worker
	done   chan struct{}
	now    func() time.Time
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithQueueSize bounds the number of in-flight events.
func WithQueueSize(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// NewPublisher starts a worker draining into sink.
func NewPublisher(sink Sink, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		inbox: make(chan Event, 1024),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.worker = NewWorker(sink, p.inbox, logger)
	go func() {
		defer close(p.done)
		p.worker.Run()
	}()
	return p
}

// Emit enqueues an event without blocking.
func (p *Publisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		droppedEvents.Inc()
		return ErrClosed
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		droppedEvents.Inc()
		return nil
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
