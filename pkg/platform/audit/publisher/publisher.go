// Package publisher emits audit events to a queryable store and optional
// fan-out sinks.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "modzero/pkg/domain"
	audit "modzero/pkg/platform/audit"
)

// Publisher captures structured audit events. Emission is synchronous by
// default; WithAsyncBuffer switches to a buffered background loop so the
// decision path never waits on slow sinks.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Appender
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closer sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// When the buffer is full the event is dropped rather than blocking the caller.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink adds a fan-out sink (e.g. Kafka). Sink failures are logged, never
// surfaced: the queryable store is the durability anchor.
func WithSink(sink audit.Appender) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger attaches a logger for sink failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a Publisher around the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit records an audit event. A zero timestamp is stamped with the current
// time; the category is derived from the action when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		// Buffer full: drop rather than stall the caller.
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped", "action", event.Action)
		}
		return nil
	}
}

// List returns the recorded events for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains the async buffer and stops the background loop.
func (p *Publisher) Close() {
	p.closer.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.deliver(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit event delivery failed", "action", event.Action, "error", err)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Append(ctx, event); sinkErr != nil && p.logger != nil {
			p.logger.Warn("audit sink append failed", "action", event.Action, "error", sinkErr)
		}
	}
	return err
}
