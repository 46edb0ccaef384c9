package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteSyncQueueRepo records local writes awaiting upload.
type SQLiteSyncQueueRepo struct {
	db db.DBTX
}

func NewSQLiteSyncQueueRepo(conn db.DBTX) *SQLiteSyncQueueRepo {
	return &SQLiteSyncQueueRepo{db: conn}
}

func (r *SQLiteSyncQueueRepo) Enqueue(ctx context.Context, item *domain.SyncItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_queue (id, store_name, record_id, operation, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.StoreName,
		item.RecordID,
		string(item.Operation),
		string(item.Status),
		item.Attempts,
		db.FormatTime(item.CreatedAt),
		db.FormatTime(item.UpdatedAt),
	)
	if err != nil {
		return insertErr("sync item", err)
	}
	return nil
}

// ListPending returns pending items oldest first; limit <= 0 means no limit.
func (r *SQLiteSyncQueueRepo) ListPending(ctx context.Context, limit int) ([]*domain.SyncItem, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, store_name, record_id, operation, status, attempts, created_at, updated_at
		FROM sync_queue INDEXED BY idx_sync_queue_status
		WHERE status = 'pending' ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync queue: %w", err)
	}
	return collect(rows, "sync queue", func(s rowScanner) (*domain.SyncItem, error) {
		var item domain.SyncItem
		var op, status, createdAt, updatedAt string
		if err := s.Scan(&item.ID, &item.StoreName, &item.RecordID, &op, &status,
			&item.Attempts, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning sync item: %w", err)
		}
		item.Operation = domain.SyncOperation(op)
		item.Status = domain.SyncStatus(status)
		var err error
		if item.CreatedAt, item.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
			return nil, err
		}
		return &item, nil
	})
}

func (r *SQLiteSyncQueueRepo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, id, domain.SyncDone, at)
}

func (r *SQLiteSyncQueueRepo) MarkFailed(ctx context.Context, id string, at time.Time) error {
	return r.mark(ctx, id, domain.SyncFailed, at)
}

func (r *SQLiteSyncQueueRepo) mark(ctx context.Context, id string, status domain.SyncStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		string(status), db.FormatTime(at), id)
	if err != nil {
		return fmt.Errorf("updating sync item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("sync item %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteSyncQueueRepo) CountByStatus(ctx context.Context, status domain.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sync queue: %w", err)
	}
	return n, nil
}
