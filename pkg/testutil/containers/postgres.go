//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the church
// workflow schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS church_profiles (
    id                  UUID PRIMARY KEY,
    parish_id           TEXT NOT NULL UNIQUE,
    status              TEXT NOT NULL,
    fields              JSONB NOT NULL DEFAULT '{}',
    has_pending_changes BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_change_sets (
    id           UUID PRIMARY KEY,
    church_id    UUID NOT NULL REFERENCES church_profiles(id),
    fields       JSONB NOT NULL DEFAULT '{}',
    status       TEXT NOT NULL,
    submitted_by TEXT NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL,
    resolved_by  TEXT,
    resolved_at  TIMESTAMPTZ,
    reason       TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS pending_change_sets_one_open
    ON pending_change_sets (church_id) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS notifications (
    id           UUID PRIMARY KEY,
    audience     TEXT NOT NULL,
    church_id    TEXT NOT NULL,
    church_name  TEXT NOT NULL,
    field_labels TEXT[] NOT NULL DEFAULT '{}',
    actor_id     TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    sent_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS notifications_audience_idx
    ON notifications (audience, sent_at);
`

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("visita_test"),
		tcpostgres.WithUsername("visita"),
		tcpostgres.WithPassword("visita"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables clears the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
