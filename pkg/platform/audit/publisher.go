package audit

import (
	"context"
	"log/slog"

	id "salegate/pkg/domain"
	"salegate/pkg/requestcontext"
)

// Sink receives committed events asynchronously, e.g. a Kafka topic for
// downstream compliance tooling.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher persists events synchronously and fans them out to an optional
// sink. The store write is fail-closed: if the event cannot be persisted the
// calling operation must fail, so a committed state change is never silent.
// Sink delivery is fail-open; a full outbox only costs downstream visibility.
type Publisher struct {
	store  Store
	logger *slog.Logger
	outbox chan Event
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for dropped-event reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithOutbox enables async sink delivery with the given buffer size. A Worker
// must drain Outbox() or the buffer fills and events are dropped from the
// sink (never from the store).
func WithOutbox(size int) Option {
	return func(p *Publisher) {
		p.outbox = make(chan Event, size)
	}
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists the event. It stamps the request-scoped time and request ID
// when the caller did not, so events carry the same clock the operation was
// evaluated against.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		return err
	}

	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit outbox full, event not forwarded to sink",
					"action", event.Action,
					"account", event.Account,
				)
			}
		}
	}
	return nil
}

// Outbox exposes the async delivery channel for the worker.
func (p *Publisher) Outbox() <-chan Event {
	return p.outbox
}

// List returns events recorded for an account.
func (p *Publisher) List(ctx context.Context, account id.Account) ([]Event, error) {
	return p.store.ListByAccount(ctx, account)
}
