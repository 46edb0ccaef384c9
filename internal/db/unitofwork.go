package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrReadOnly is returned by writes issued inside WithinReadTx.
var ErrReadOnly = errors.New("write inside read-only snapshot")

// UnitOfWork scopes a group of store operations to one SQLite transaction.
// WithinTx commits when fn succeeds and rolls back every write otherwise.
// WithinReadTx gives fn a consistent snapshot across stores and never commits.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
	WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

type SQLiteUnitOfWork struct {
	db *sql.DB
}

func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrStorageUnavailable, err)
	}
	defer rollbackOnPanic(tx)

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (u *SQLiteUnitOfWork) WithinReadTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning snapshot: %v", ErrStorageUnavailable, err)
	}
	defer rollbackOnPanic(tx)

	err = fn(ctx, readOnlyTx{tx})
	_ = tx.Rollback()
	return err
}

func rollbackOnPanic(tx *sql.Tx) {
	if p := recover(); p != nil {
		_ = tx.Rollback()
		panic(p)
	}
}

// readOnlyTx rejects writes so snapshot readers cannot mutate the stores.
type readOnlyTx struct {
	*sql.Tx
}

func (readOnlyTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrReadOnly
}
