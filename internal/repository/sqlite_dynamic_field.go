package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// SQLiteDynamicFieldRepo implements DynamicFieldRepo over core_dynamic_data.
// Rows are append-only: a new value is a new version.
type SQLiteDynamicFieldRepo struct {
	db db.DBTX
}

func NewSQLiteDynamicFieldRepo(conn db.DBTX) *SQLiteDynamicFieldRepo {
	return &SQLiteDynamicFieldRepo{db: conn}
}

const dynamicFieldColumns = `id, organization_id, entity_id, field_name, field_type,
	field_value_text, field_value_number, field_value_boolean, field_value_date,
	field_value_json, field_value_file_url, smart_code, version, created_at, updated_at`

func (r *SQLiteDynamicFieldRepo) Create(ctx context.Context, f *domain.DynamicField) error {
	var boolVal, jsonVal any
	if f.BooleanValue != nil {
		boolVal = boolToInt(*f.BooleanValue)
	}
	if f.JSONValue != nil {
		jsonVal = string(f.JSONValue)
	}
	query := `INSERT INTO core_dynamic_data (` + dynamicFieldColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.OrganizationID,
		f.EntityID,
		f.FieldName,
		string(f.FieldType),
		nullableString(f.TextValue),
		nullableDecimal(f.NumberValue),
		boolVal,
		db.NullTime(f.DateValue),
		jsonVal,
		nullableString(f.FileURL),
		f.SmartCode,
		f.Version,
		db.FormatTime(f.CreatedAt),
		db.FormatTime(f.UpdatedAt),
	)
	if err != nil {
		return insertErr("dynamic field", err)
	}
	return nil
}

// MaxVersion returns the highest stored version for the field, or 0.
func (r *SQLiteDynamicFieldRepo) MaxVersion(ctx context.Context, entityID, fieldName string) (int, error) {
	var v int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM core_dynamic_data INDEXED BY idx_dynamic_entity_field_version
		WHERE entity_id = ? AND field_name = ?`, entityID, fieldName).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("reading field version: %w", err)
	}
	return v, nil
}

func (r *SQLiteDynamicFieldRepo) Latest(ctx context.Context, entityID, fieldName string) (*domain.DynamicField, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dynamicFieldColumns+` FROM core_dynamic_data
		WHERE entity_id = ? AND field_name = ? ORDER BY version DESC LIMIT 1`, entityID, fieldName)
	f, err := scanDynamicField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dynamic field %s.%s: %w", entityID, fieldName, ErrNotFound)
	}
	return f, err
}

func (r *SQLiteDynamicFieldRepo) ListByEntity(ctx context.Context, entityID string) ([]*domain.DynamicField, error) {
	return r.list(ctx, `SELECT `+dynamicFieldColumns+` FROM core_dynamic_data INDEXED BY idx_dynamic_entity
		WHERE entity_id = ? ORDER BY field_name, version`, entityID)
}

// ListByEntityAndField returns every version of one field, oldest first.
func (r *SQLiteDynamicFieldRepo) ListByEntityAndField(ctx context.Context, entityID, fieldName string) ([]*domain.DynamicField, error) {
	return r.list(ctx, `SELECT `+dynamicFieldColumns+` FROM core_dynamic_data INDEXED BY idx_dynamic_entity_field
		WHERE entity_id = ? AND field_name = ? ORDER BY version`, entityID, fieldName)
}

func (r *SQLiteDynamicFieldRepo) ListAll(ctx context.Context) ([]*domain.DynamicField, error) {
	return r.list(ctx, `SELECT `+dynamicFieldColumns+` FROM core_dynamic_data ORDER BY created_at, id`)
}

func (r *SQLiteDynamicFieldRepo) list(ctx context.Context, query string, args ...any) ([]*domain.DynamicField, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dynamic fields: %w", err)
	}
	return collect(rows, "dynamic fields", scanDynamicField)
}

func scanDynamicField(s rowScanner) (*domain.DynamicField, error) {
	var f domain.DynamicField
	var fieldType, createdAt, updatedAt string
	var text, number, date, jsonText, fileURL sql.NullString
	var boolean sql.NullInt64

	err := s.Scan(&f.ID, &f.OrganizationID, &f.EntityID, &f.FieldName, &fieldType,
		&text, &number, &boolean, &date, &jsonText, &fileURL,
		&f.SmartCode, &f.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning dynamic field: %w", err)
	}

	f.FieldType = domain.FieldType(fieldType)
	f.TextValue = stringPtr(text)
	f.FileURL = stringPtr(fileURL)
	if f.NumberValue, err = parseNullDecimal("field_value_number", number); err != nil {
		return nil, err
	}
	if boolean.Valid {
		b := boolean.Int64 != 0
		f.BooleanValue = &b
	}
	if f.DateValue, err = db.ParseNullTime(date); err != nil {
		return nil, fmt.Errorf("parsing field_value_date: %w", err)
	}
	if jsonText.Valid {
		f.JSONValue = json.RawMessage(jsonText.String)
	}
	if f.CreatedAt, f.UpdatedAt, err = timestamps(createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
