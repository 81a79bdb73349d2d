package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	checkinservice "tripmate/internal/checkin/service"
	checkinstore "tripmate/internal/checkin/store"
	dErrors "tripmate/pkg/domain-errors"
	auditpg "tripmate/pkg/platform/audit/store/postgres"
)

const defaultCheckinTxTimeout = 5 * time.Second

// checkinPostgresTx writes the trip and its audit outbox row in one database
// transaction.
type checkinPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCheckinPostgresTx(db *sql.DB) *checkinPostgresTx {
	return &checkinPostgresTx{db: db}
}

func (t *checkinPostgresTx) RunInTx(ctx context.Context, fn func(stores checkinservice.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultCheckinTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trip transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(checkinservice.TxStores{
		Trips:  checkinstore.NewPostgresTx(tx),
		Outbox: auditpg.NewTx(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trip transaction: %w", err)
	}
	return nil
}
