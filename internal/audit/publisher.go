package audit

import (
	"context"
	"log/slog"

	"dhruva/pkg/requestcontext"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}

// Sink receives events beyond the primary store (e.g. a Kafka topic).
// Delivery is best-effort; the store remains the system of record.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

// NewPublisher wires the audit store and an optional streaming sink.
func NewPublisher(store Store, sink Sink, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, sink: sink, logger: logger}
}

// Emit records one event. A nil Publisher is a no-op so call sites don't
// need nil checks when auditing is disabled in tests.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", event.Action,
			"error", err,
		)
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "failed to stream audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

// List returns events recorded for one actor.
func (p *Publisher) List(ctx context.Context, actor string) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
