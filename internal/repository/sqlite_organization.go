package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteOrganizationRepo implements OrganizationRepo over core_organizations.
type SQLiteOrganizationRepo struct {
	db db.DBTX
}

func NewSQLiteOrganizationRepo(conn db.DBTX) *SQLiteOrganizationRepo {
	return &SQLiteOrganizationRepo{db: conn}
}

const organizationColumns = `id, organization_name, organization_code, organization_type,
	business_type, status, created_at, updated_at, expires_at`

func (r *SQLiteOrganizationRepo) Create(ctx context.Context, o *domain.Organization) error {
	query := `INSERT INTO core_organizations (` + organizationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		o.ID,
		o.Name,
		o.Code,
		string(o.Type),
		o.BusinessType,
		string(o.Status),
		db.FormatTime(o.CreatedAt),
		db.FormatTime(o.UpdatedAt),
		db.NullTime(o.ExpiresAt),
	)
	if err != nil {
		return insertErr("organization", err)
	}
	return nil
}

func (r *SQLiteOrganizationRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM core_organizations WHERE id = ?`, id)
	return scanOrganizationRow(row)
}

func (r *SQLiteOrganizationRepo) GetByCode(ctx context.Context, code string) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM core_organizations INDEXED BY idx_organizations_code
		WHERE organization_code = ?`, code)
	return scanOrganizationRow(row)
}

func (r *SQLiteOrganizationRepo) List(ctx context.Context) ([]*domain.Organization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+organizationColumns+` FROM core_organizations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	return collect(rows, "organizations", scanOrganization)
}

func scanOrganizationRow(row *sql.Row) (*domain.Organization, error) {
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization: %w", ErrNotFound)
	}
	return o, err
}

func scanOrganization(s rowScanner) (*domain.Organization, error) {
	var o domain.Organization
	var orgType, status, createdAt, updatedAt string
	var expiresAt sql.NullString

	err := s.Scan(&o.ID, &o.Name, &o.Code, &orgType, &o.BusinessType, &status,
		&createdAt, &updatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	o.Type = domain.OrganizationType(orgType)
	o.Status = domain.OrganizationStatus(status)
	if o.CreatedAt, o.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	if o.ExpiresAt, err = parseExpiry(expiresAt); err != nil {
		return nil, err
	}
	return &o, nil
}
