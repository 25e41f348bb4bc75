package notify

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "visita/pkg/platform/tx"
)

// Postgres persists notifications.
//
// Schema:
//
//	CREATE TABLE notifications (
//	    id           UUID PRIMARY KEY,
//	    audience     TEXT NOT NULL,
//	    church_id    TEXT NOT NULL,
//	    church_name  TEXT NOT NULL,
//	    field_labels TEXT[] NOT NULL DEFAULT '{}',
//	    actor_id     TEXT NOT NULL,
//	    reason       TEXT NOT NULL DEFAULT '',
//	    sent_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX notifications_audience_idx ON notifications (audience, sent_at);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, n Notification) error {
	query := `
		INSERT INTO notifications (id, audience, church_id, church_name, field_labels, actor_id, reason, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), string(n.Audience), n.ChurchID, n.ChurchName,
		pq.Array(n.FieldLabels), n.ActorID, n.Reason, n.SentAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Postgres) ListByAudience(ctx context.Context, audience Audience) ([]Notification, error) {
	query := `
		SELECT audience, church_id, church_name, field_labels, actor_id, reason, sent_at
		FROM notifications
		WHERE audience = $1
		ORDER BY sent_at ASC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, string(audience))
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.Audience, &n.ChurchID, &n.ChurchName,
			pq.Array(&n.FieldLabels), &n.ActorID, &n.Reason, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
