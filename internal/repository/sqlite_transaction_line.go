package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteTransactionLineRepo implements TransactionLineRepo over
// universal_transaction_lines.
type SQLiteTransactionLineRepo struct {
	db db.DBTX
}

func NewSQLiteTransactionLineRepo(conn db.DBTX) *SQLiteTransactionLineRepo {
	return &SQLiteTransactionLineRepo{db: conn}
}

const transactionLineColumns = `id, organization_id, transaction_id, line_number, line_entity_id,
	description, quantity, unit_price, line_amount, smart_code, status, created_at, updated_at`

func (r *SQLiteTransactionLineRepo) Create(ctx context.Context, l *domain.TransactionLine) error {
	query := `INSERT INTO universal_transaction_lines (` + transactionLineColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.OrganizationID,
		l.TransactionID,
		l.LineNumber,
		nullableString(l.LineEntityID),
		l.Description,
		l.Quantity.String(),
		l.UnitPrice.String(),
		l.LineAmount.String(),
		l.SmartCode,
		l.Status,
		db.FormatTime(l.CreatedAt),
		db.FormatTime(l.UpdatedAt),
	)
	if err != nil {
		return insertErr("transaction line", err)
	}
	return nil
}

func (r *SQLiteTransactionLineRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionLine, error) {
	return r.list(ctx, `SELECT `+transactionLineColumns+` FROM universal_transaction_lines
		INDEXED BY idx_lines_transaction_number
		WHERE transaction_id = ? ORDER BY line_number`, transactionID)
}

func (r *SQLiteTransactionLineRepo) ListAll(ctx context.Context) ([]*domain.TransactionLine, error) {
	return r.list(ctx, `SELECT `+transactionLineColumns+` FROM universal_transaction_lines
		ORDER BY transaction_id, line_number`)
}

func (r *SQLiteTransactionLineRepo) list(ctx context.Context, query string, args ...any) ([]*domain.TransactionLine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transaction lines: %w", err)
	}
	return collect(rows, "transaction lines", scanTransactionLine)
}

func scanTransactionLine(s rowScanner) (*domain.TransactionLine, error) {
	var l domain.TransactionLine
	var lineEntity sql.NullString
	var qty, price, amount, createdAt, updatedAt string

	err := s.Scan(&l.ID, &l.OrganizationID, &l.TransactionID, &l.LineNumber, &lineEntity,
		&l.Description, &qty, &price, &amount, &l.SmartCode, &l.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning transaction line: %w", err)
	}
	l.LineEntityID = stringPtr(lineEntity)
	if l.Quantity, err = parseDecimal("quantity", qty); err != nil {
		return nil, err
	}
	if l.UnitPrice, err = parseDecimal("unit_price", price); err != nil {
		return nil, err
	}
	if l.LineAmount, err = parseDecimal("line_amount", amount); err != nil {
		return nil, err
	}
	if l.CreatedAt, l.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
