package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/testutil"
)

func newField(t *testing.T, entityID, name string, fieldType domain.FieldType, value any, version int) *domain.DynamicField {
	t.Helper()
	now := time.Now().UTC()
	f := &domain.DynamicField{
		ID:             uuid.New().String(),
		OrganizationID: "org-1",
		EntityID:       entityID,
		FieldName:      name,
		Version:        version,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, f.SetValue(fieldType, value))
	return f
}

func TestDynamicFieldRepo_ValueSlotsRoundTrip(t *testing.T) {
	repo := NewSQLiteDynamicFieldRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	fields := []*domain.DynamicField{
		newField(t, "e1", "name", domain.FieldText, "Oak", 1),
		newField(t, "e1", "price", domain.FieldNumber, "199.90", 1),
		newField(t, "e1", "in_stock", domain.FieldBoolean, true, 1),
		newField(t, "e1", "launch", domain.FieldDate, "2026-05-01", 1),
		newField(t, "e1", "dims", domain.FieldJSON, map[string]int{"w": 40}, 1),
		newField(t, "e1", "photo", domain.FieldFile, "https://cdn.example/oak.png", 1),
	}
	for _, f := range fields {
		require.NoError(t, repo.Create(ctx, f))
	}

	got, err := repo.ListByEntity(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got, 6)

	byName := map[string]*domain.DynamicField{}
	for _, f := range got {
		byName[f.FieldName] = f
	}
	assert.Equal(t, "Oak", byName["name"].Value())
	assert.True(t, decimal.RequireFromString("199.9").Equal(byName["price"].Value().(decimal.Decimal)))
	assert.Equal(t, true, byName["in_stock"].Value())
	assert.Equal(t, "2026-05-01", byName["launch"].DateValue.Format("2006-01-02"))
	assert.JSONEq(t, `{"w":40}`, string(byName["dims"].Value().(json.RawMessage)))
	assert.Equal(t, "https://cdn.example/oak.png", byName["photo"].Value())
	assert.Nil(t, byName["name"].NumberValue)
}

func TestDynamicFieldRepo_VersionsAndLatest(t *testing.T) {
	repo := NewSQLiteDynamicFieldRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	v, err := repo.MaxVersion(ctx, "e1", "color")
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, repo.Create(ctx, newField(t, "e1", "color", domain.FieldText, "red", 1)))
	require.NoError(t, repo.Create(ctx, newField(t, "e1", "color", domain.FieldText, "blue", 2)))

	v, err = repo.MaxVersion(ctx, "e1", "color")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	latest, err := repo.Latest(ctx, "e1", "color")
	require.NoError(t, err)
	assert.Equal(t, "blue", latest.Value())

	versions, err := repo.ListByEntityAndField(ctx, "e1", "color")
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	err = repo.Create(ctx, newField(t, "e1", "color", domain.FieldText, "green", 2))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = repo.Latest(ctx, "e1", "size")
	assert.ErrorIs(t, err, ErrNotFound)
}
