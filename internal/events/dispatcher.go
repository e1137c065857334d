package events

import (
	"context"
	"log/slog"
	"time"

	"ateneo/internal/platform/metrics"
)

const (
	defaultBufferSize     = 1024
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher decouples services from the publisher: Emit enqueues, Run drains
// the queue and publishes. When the queue is full the event is dropped and
// counted rather than blocking the request.
type Dispatcher struct {
	publisher Publisher
	inbox     chan Event
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
}

type Option func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.inbox = make(chan Event, n)
		}
	}
}

func NewDispatcher(publisher Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		inbox:     make(chan Event, defaultBufferSize),
		logger:    logger,
		timeout:   defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	select {
	case d.inbox <- event:
	default:
		d.metrics.IncrementEventPublished(string(event.Type), "dropped")
		d.logger.WarnContext(ctx, "event queue full, dropping event",
			"event_type", event.Type,
			"event_id", event.ID,
		)
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// already queued using a fresh deadline.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case event := <-d.inbox:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	for {
		select {
		case event := <-d.inbox:
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, event); err != nil {
		d.metrics.IncrementEventPublished(string(event.Type), "failed")
		d.logger.WarnContext(ctx, "failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	d.metrics.IncrementEventPublished(string(event.Type), "published")
}
