package profile

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

// Postgres persists church profiles. Field data is stored as JSONB so the
// closed schema can evolve without migrations per field.
//
// Schema:
//
//	CREATE TABLE church_profiles (
//	    id                  UUID PRIMARY KEY,
//	    parish_id           TEXT NOT NULL UNIQUE,
//	    status              TEXT NOT NULL,
//	    fields              JSONB NOT NULL DEFAULT '{}',
//	    has_pending_changes BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at          TIMESTAMPTZ NOT NULL,
//	    updated_at          TIMESTAMPTZ NOT NULL
//	);
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

func (s *Postgres) Create(ctx context.Context, p *models.ChurchProfile) error {
	fields, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}
	query := `
		INSERT INTO church_profiles (id, parish_id, status, fields, has_pending_changes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID, p.ParishID, string(p.Status), fields, p.HasPendingChanges, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert church profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert church profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const profileColumns = `id, parish_id, status, fields, has_pending_changes, created_at, updated_at`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.ChurchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM church_profiles WHERE id = $1`
	return s.scanProfile(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) FindByParish(ctx context.Context, parishID string) (*models.ChurchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM church_profiles WHERE parish_id = $1`
	return s.scanProfile(s.execer(ctx).QueryRowContext(ctx, query, parishID))
}

func (s *Postgres) Update(ctx context.Context, p *models.ChurchProfile) error {
	fields, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}
	query := `
		UPDATE church_profiles
		SET status = $2, fields = $3, has_pending_changes = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		p.ID, string(p.Status), fields, p.HasPendingChanges, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update church profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update church profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByStatus(ctx context.Context, status models.ProfileStatus) ([]*models.ChurchProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM church_profiles WHERE status = $1 ORDER BY updated_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query church profiles: %w", err)
	}
	defer rows.Close()

	var out []*models.ChurchProfile
	for rows.Next() {
		p, err := s.scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate church profiles: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanProfile(row *sql.Row) (*models.ChurchProfile, error) {
	p, err := s.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	return p, err
}

func (s *Postgres) scanProfileRow(rows *sql.Rows) (*models.ChurchProfile, error) {
	return s.scanRow(rows)
}

func (s *Postgres) scanRow(row rowScanner) (*models.ChurchProfile, error) {
	var (
		p      models.ChurchProfile
		status string
		fields []byte
	)
	err := row.Scan(&p.ID, &p.ParishID, &status, &fields, &p.HasPendingChanges, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProfileStatus(status)
	if err := json.Unmarshal(fields, &p.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal profile fields: %w", err)
	}
	return &p, nil
}
