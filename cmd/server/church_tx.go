package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "visita/pkg/domain-errors"
	txcontext "visita/pkg/platform/tx"
)

const defaultChurchTxTimeout = 5 * time.Second

// churchPostgresTx runs profile and change-set writes in one database
// transaction. The transaction travels in the context, where the Postgres
// stores pick it up.
type churchPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newChurchPostgresTx(db *sql.DB) *churchPostgresTx {
	return &churchPostgresTx{db: db}
}

func (t *churchPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultChurchTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
