package notify

import (
	"context"
	"log/slog"
	"time"

	dErrors "visita/pkg/domain-errors"
)

// Dispatcher is the delivery boundary. The staging engine calls Dispatch after
// a successful write and treats failures as warnings; delivery mechanics live
// behind this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Store persists notifications for the review-queue UI to read back.
type Store interface {
	Append(ctx context.Context, n Notification) error
	ListByAudience(ctx context.Context, audience Audience) ([]Notification, error)
}

// ChannelDispatcher hands notifications to a background worker through a
// bounded channel. Dispatch never blocks the request path: when the buffer is
// full the notification is dropped and an error returned for the caller to
// surface as a warning.
type ChannelDispatcher struct {
	outbox chan<- Notification
}

func NewChannelDispatcher(outbox chan<- Notification) *ChannelDispatcher {
	return &ChannelDispatcher{outbox: outbox}
}

func (d *ChannelDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "notification dispatch cancelled")
	}
	select {
	case d.outbox <- n:
		return nil
	default:
		return dErrors.New(dErrors.CodeInternal, "notification buffer full")
	}
}

// LogDispatcher writes notifications to the structured log. Used when no
// delivery backend is configured so the workflow still leaves a trace.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.InfoContext(ctx, "notification",
		"audience", string(n.Audience),
		"church_id", n.ChurchID,
		"church_name", n.ChurchName,
		"fields", n.FieldLabels,
		"actor_id", n.ActorID,
	)
	return nil
}
