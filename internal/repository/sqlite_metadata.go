package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

// SQLiteMetadataRepo is the generic key/value metadata store.
type SQLiteMetadataRepo struct {
	db db.DBTX
}

func NewSQLiteMetadataRepo(conn db.DBTX) *SQLiteMetadataRepo {
	return &SQLiteMetadataRepo{db: conn}
}

func (r *SQLiteMetadataRepo) Get(ctx context.Context, key string) (*MetadataEntry, error) {
	var e MetadataEntry
	var value, updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT key, value, updated_at FROM metadata WHERE key = ?`, key).Scan(&e.Key, &value, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("metadata %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	e.Value = []byte(value)
	if e.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &e, nil
}

func (r *SQLiteMetadataRepo) Put(ctx context.Context, key string, value []byte, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), db.FormatTime(at))
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

func (r *SQLiteMetadataRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting metadata: %w", err)
	}
	return nil
}

// List returns entries whose key starts with prefix, in key order. The match
// is byte-exact and case-sensitive.
func (r *SQLiteMetadataRepo) List(ctx context.Context, prefix string) ([]*MetadataEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM metadata WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing metadata: %w", err)
	}
	return collect(rows, "metadata", func(s rowScanner) (*MetadataEntry, error) {
		var e MetadataEntry
		var value, updatedAt string
		if err := s.Scan(&e.Key, &value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		e.Value = []byte(value)
		t, err := db.ParseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		e.UpdatedAt = t
		return &e, nil
	})
}
