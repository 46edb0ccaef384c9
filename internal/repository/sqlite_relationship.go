package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteRelationshipRepo implements RelationshipRepo over core_relationships.
type SQLiteRelationshipRepo struct {
	db db.DBTX
}

func NewSQLiteRelationshipRepo(conn db.DBTX) *SQLiteRelationshipRepo {
	return &SQLiteRelationshipRepo{db: conn}
}

const relationshipColumns = `id, organization_id, from_entity_id, to_entity_id, relationship_type,
	relationship_strength, effective_date, expiration_date, smart_code, status, created_at, updated_at`

func (r *SQLiteRelationshipRepo) Create(ctx context.Context, rel *domain.Relationship) error {
	query := `INSERT INTO core_relationships (` + relationshipColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.OrganizationID,
		rel.FromEntityID,
		rel.ToEntityID,
		rel.RelationshipType,
		nullableDecimal(rel.Strength),
		db.NullTime(rel.EffectiveFrom),
		db.NullTime(rel.EffectiveTo),
		rel.SmartCode,
		rel.Status,
		db.FormatTime(rel.CreatedAt),
		db.FormatTime(rel.UpdatedAt),
	)
	if err != nil {
		return insertErr("relationship", err)
	}
	return nil
}

// ListByEntity returns relationships where the entity is either end.
func (r *SQLiteRelationshipRepo) ListByEntity(ctx context.Context, entityID string) ([]*domain.Relationship, error) {
	return r.list(ctx, `SELECT `+relationshipColumns+` FROM core_relationships INDEXED BY idx_relationships_from
		WHERE from_entity_id = ?
		UNION ALL
		SELECT `+relationshipColumns+` FROM core_relationships INDEXED BY idx_relationships_to
		WHERE to_entity_id = ? AND from_entity_id <> ?
		ORDER BY created_at, id`, entityID, entityID, entityID)
}

func (r *SQLiteRelationshipRepo) ListByOrgAndType(ctx context.Context, orgID, relType string) ([]*domain.Relationship, error) {
	return r.list(ctx, `SELECT `+relationshipColumns+` FROM core_relationships INDEXED BY idx_relationships_org_type
		WHERE organization_id = ? AND relationship_type = ? ORDER BY created_at, id`, orgID, relType)
}

func (r *SQLiteRelationshipRepo) ListAll(ctx context.Context) ([]*domain.Relationship, error) {
	return r.list(ctx, `SELECT `+relationshipColumns+` FROM core_relationships ORDER BY created_at, id`)
}

func (r *SQLiteRelationshipRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}
	return collect(rows, "relationships", scanRelationship)
}

func scanRelationship(s rowScanner) (*domain.Relationship, error) {
	var rel domain.Relationship
	var strength, from, to sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&rel.ID, &rel.OrganizationID, &rel.FromEntityID, &rel.ToEntityID,
		&rel.RelationshipType, &strength, &from, &to, &rel.SmartCode, &rel.Status,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning relationship: %w", err)
	}
	if rel.Strength, err = parseNullDecimal("relationship_strength", strength); err != nil {
		return nil, err
	}
	if rel.EffectiveFrom, err = db.ParseNullTime(from); err != nil {
		return nil, fmt.Errorf("parsing effective_date: %w", err)
	}
	if rel.EffectiveTo, err = db.ParseNullTime(to); err != nil {
		return nil, fmt.Errorf("parsing expiration_date: %w", err)
	}
	if rel.CreatedAt, rel.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &rel, nil
}
