package audit

import (
	"context"
	"errors"
	"time"
)

// ErrBufferFull is returned when the audit outbox cannot accept another event.
var ErrBufferFull = errors.New("audit buffer full")

// Store is the persistence sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByChurch(ctx context.Context, churchID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, churchID string) ([]Event, error) {
	return p.store.ListByChurch(ctx, churchID)
}

// ChannelPublisher hands events to a background worker through a bounded
// channel, keeping audit persistence off the request path. A full buffer drops
// the event; audit capture must never block or fail a domain operation.
type ChannelPublisher struct {
	outbox chan<- Event
}

func NewChannelPublisher(outbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{outbox: outbox}
}

func (p *ChannelPublisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.outbox <- base:
		return nil
	default:
		return ErrBufferFull
	}
}
