package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"visita/internal/church/models"
	"visita/pkg/platform/sentinel"
	txcontext "visita/pkg/platform/tx"
)

// Postgres persists pending change sets. A partial unique index carries the
// one-open-set-per-church invariant into the database so concurrent
// submissions cannot race past the service-layer check.
//
// Schema:
//
//	CREATE TABLE pending_change_sets (
//	    id           UUID PRIMARY KEY,
//	    church_id    UUID NOT NULL REFERENCES church_profiles(id),
//	    fields       JSONB NOT NULL DEFAULT '{}',
//	    status       TEXT NOT NULL,
//	    submitted_by TEXT NOT NULL,
//	    submitted_at TIMESTAMPTZ NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL,
//	    resolved_by  TEXT,
//	    resolved_at  TIMESTAMPTZ,
//	    reason       TEXT
//	);
//	CREATE UNIQUE INDEX pending_change_sets_one_open
//	    ON pending_change_sets (church_id) WHERE status = 'open';
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, cs *models.PendingChangeSet) error {
	fields, err := json.Marshal(cs.Fields)
	if err != nil {
		return fmt.Errorf("marshal change set fields: %w", err)
	}
	query := `
		INSERT INTO pending_change_sets
			(id, church_id, fields, status, submitted_by, submitted_at, updated_at, resolved_by, resolved_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		cs.ID, cs.ChurchID, fields, string(cs.Status),
		cs.SubmittedBy, cs.SubmittedAt, cs.UpdatedAt,
		nullString(cs.ResolvedBy), cs.ResolvedAt, nullString(cs.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert change set: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert change set: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const changeSetColumns = `id, church_id, fields, status, submitted_by, submitted_at, updated_at, resolved_by, resolved_at, reason`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.PendingChangeSet, error) {
	query := `SELECT ` + changeSetColumns + ` FROM pending_change_sets WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) FindOpenByChurch(ctx context.Context, churchID uuid.UUID) (*models.PendingChangeSet, error) {
	query := `SELECT ` + changeSetColumns + ` FROM pending_change_sets WHERE church_id = $1 AND status = 'open'`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, churchID))
}

func (s *Postgres) Update(ctx context.Context, cs *models.PendingChangeSet) error {
	fields, err := json.Marshal(cs.Fields)
	if err != nil {
		return fmt.Errorf("marshal change set fields: %w", err)
	}
	query := `
		UPDATE pending_change_sets
		SET fields = $2, status = $3, submitted_by = $4, updated_at = $5,
		    resolved_by = $6, resolved_at = $7, reason = $8
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		cs.ID, fields, string(cs.Status), cs.SubmittedBy, cs.UpdatedAt,
		nullString(cs.ResolvedBy), cs.ResolvedAt, nullString(cs.Reason),
	)
	if err != nil {
		return fmt.Errorf("update change set: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update change set: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListOpen(ctx context.Context) ([]*models.PendingChangeSet, error) {
	query := `SELECT ` + changeSetColumns + ` FROM pending_change_sets WHERE status = 'open' ORDER BY submitted_at ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query change sets: %w", err)
	}
	defer rows.Close()

	var out []*models.PendingChangeSet
	for rows.Next() {
		cs, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change sets: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanOne(row *sql.Row) (*models.PendingChangeSet, error) {
	cs, err := scan(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return cs, err
}

func scan(row rowScanner) (*models.PendingChangeSet, error) {
	var (
		cs         models.PendingChangeSet
		status     string
		fields     []byte
		resolvedBy sql.NullString
		reason     sql.NullString
	)
	err := row.Scan(&cs.ID, &cs.ChurchID, &fields, &status,
		&cs.SubmittedBy, &cs.SubmittedAt, &cs.UpdatedAt,
		&resolvedBy, &cs.ResolvedAt, &reason)
	if err != nil {
		return nil, err
	}
	cs.Status = models.PendingStatus(status)
	cs.ResolvedBy = resolvedBy.String
	cs.Reason = reason.String
	if err := json.Unmarshal(fields, &cs.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal change set fields: %w", err)
	}
	return &cs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
