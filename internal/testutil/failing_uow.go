package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

// FailOnNthExecUoW injects Err on the FailOn-th ExecContext inside a
// transaction, counting from 1. Reads are not counted. Execs reports how many
// writes the last transaction attempted.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error

	execs atomic.Int32
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, failOn: u.FailOn, err: u.Err}
	defer func() { u.execs.Store(wrapped.count.Load()) }()

	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

// WithinReadTx runs fn on the plain database; snapshots are not fault-injected.
func (u *FailOnNthExecUoW) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return db.NewSQLiteUnitOfWork(u.DB).WithinReadTx(ctx, fn)
}

// Execs returns the number of ExecContext calls in the last transaction.
func (u *FailOnNthExecUoW) Execs() int {
	return int(u.execs.Load())
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	n := f.count.Add(1)
	if n == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
