package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteTransactionRepo implements TransactionRepo over universal_transactions.
type SQLiteTransactionRepo struct {
	db db.DBTX
}

func NewSQLiteTransactionRepo(conn db.DBTX) *SQLiteTransactionRepo {
	return &SQLiteTransactionRepo{db: conn}
}

const transactionColumns = `id, organization_id, transaction_type, transaction_number, transaction_date,
	reference_entity_id, total_amount, currency, status, smart_code, created_at, updated_at, expires_at`

func (r *SQLiteTransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO universal_transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OrganizationID,
		t.TransactionType,
		t.TransactionNumber,
		db.FormatTime(t.TransactionDate),
		nullableString(t.ReferenceEntityID),
		t.TotalAmount.String(),
		t.Currency,
		string(t.Status),
		t.SmartCode,
		db.FormatTime(t.CreatedAt),
		db.FormatTime(t.UpdatedAt),
		db.NullTime(t.ExpiresAt),
	)
	if err != nil {
		return insertErr("transaction", err)
	}
	return nil
}

func (r *SQLiteTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM universal_transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return t, err
}

// ListByOrg returns every transaction of the organization, newest first.
func (r *SQLiteTransactionRepo) ListByOrg(ctx context.Context, orgID string) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM universal_transactions INDEXED BY idx_transactions_org
		WHERE organization_id = ? ORDER BY transaction_date DESC, id`, orgID)
}

// ListByOrgAndType scans the composite index; limit <= 0 means no limit.
func (r *SQLiteTransactionRepo) ListByOrgAndType(ctx context.Context, orgID, txnType string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.list(ctx, `SELECT `+transactionColumns+` FROM universal_transactions INDEXED BY idx_transactions_org_type
		WHERE organization_id = ? AND transaction_type = ? ORDER BY transaction_date DESC, id LIMIT ?`,
		orgID, txnType, limit)
}

func (r *SQLiteTransactionRepo) ListAll(ctx context.Context) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM universal_transactions ORDER BY created_at, id`)
}

func (r *SQLiteTransactionRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM universal_transactions WHERE organization_id = ?`, orgID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteTransactionRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return collect(rows, "transactions", scanTransaction)
}

func scanTransaction(s rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var txnDate, total, status, createdAt, updatedAt string
	var refID, expiresAt sql.NullString

	err := s.Scan(&t.ID, &t.OrganizationID, &t.TransactionType, &t.TransactionNumber, &txnDate,
		&refID, &total, &t.Currency, &status, &t.SmartCode, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}
	t.Status = domain.TransactionStatus(status)
	t.ReferenceEntityID = stringPtr(refID)
	if t.TransactionDate, err = db.ParseTime(txnDate); err != nil {
		return nil, fmt.Errorf("parsing transaction_date: %w", err)
	}
	if t.TotalAmount, err = parseDecimal("total_amount", total); err != nil {
		return nil, err
	}
	if t.CreatedAt, t.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	if t.ExpiresAt, err = parseExpiry(expiresAt); err != nil {
		return nil, err
	}
	return &t, nil
}
