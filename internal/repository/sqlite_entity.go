package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteEntityRepo implements EntityRepo over core_entities.
type SQLiteEntityRepo struct {
	db db.DBTX
}

func NewSQLiteEntityRepo(conn db.DBTX) *SQLiteEntityRepo {
	return &SQLiteEntityRepo{db: conn}
}

const entityColumns = `id, organization_id, entity_type, entity_name, entity_code, smart_code,
	parent_entity_id, status, created_at, updated_at, expires_at`

func (r *SQLiteEntityRepo) Create(ctx context.Context, e *domain.Entity) error {
	query := `INSERT INTO core_entities (` + entityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.OrganizationID,
		e.EntityType,
		e.Name,
		e.Code,
		e.SmartCode,
		nullableString(e.ParentEntityID),
		e.Status,
		db.FormatTime(e.CreatedAt),
		db.FormatTime(e.UpdatedAt),
		db.NullTime(e.ExpiresAt),
	)
	if err != nil {
		return insertErr("entity", err)
	}
	return nil
}

func (r *SQLiteEntityRepo) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM core_entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	return e, err
}

// ListByType scans the type index across every organization.
func (r *SQLiteEntityRepo) ListByType(ctx context.Context, entityType string) ([]*domain.Entity, error) {
	return r.list(ctx, `SELECT `+entityColumns+` FROM core_entities INDEXED BY idx_entities_type
		WHERE entity_type = ? ORDER BY created_at, id`, entityType)
}

// ListByOrgAndType is a bounded range scan on the composite index.
func (r *SQLiteEntityRepo) ListByOrgAndType(ctx context.Context, orgID, entityType string) ([]*domain.Entity, error) {
	return r.list(ctx, `SELECT `+entityColumns+` FROM core_entities INDEXED BY idx_entities_org_type
		WHERE organization_id = ? AND entity_type = ? ORDER BY created_at, id`, orgID, entityType)
}

func (r *SQLiteEntityRepo) ListByOrg(ctx context.Context, orgID string) ([]*domain.Entity, error) {
	return r.list(ctx, `SELECT `+entityColumns+` FROM core_entities INDEXED BY idx_entities_org
		WHERE organization_id = ? ORDER BY created_at, id`, orgID)
}

func (r *SQLiteEntityRepo) ListAll(ctx context.Context) ([]*domain.Entity, error) {
	return r.list(ctx, `SELECT `+entityColumns+` FROM core_entities ORDER BY created_at, id`)
}

func (r *SQLiteEntityRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM core_entities WHERE organization_id = ?`, orgID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return n, nil
}

func (r *SQLiteEntityRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Entity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	return collect(rows, "entities", scanEntity)
}

func scanEntity(s rowScanner) (*domain.Entity, error) {
	var e domain.Entity
	var parentID, expiresAt sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&e.ID, &e.OrganizationID, &e.EntityType, &e.Name, &e.Code, &e.SmartCode,
		&parentID, &e.Status, &createdAt, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	e.ParentEntityID = stringPtr(parentID)
	if e.CreatedAt, e.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	if e.ExpiresAt, err = parseExpiry(expiresAt); err != nil {
		return nil, err
	}
	return &e, nil
}
