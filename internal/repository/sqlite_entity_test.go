package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraerp/heraerp-prd-sub011/internal/testutil"
)

func TestEntityRepo_CreateAndGetByID(t *testing.T) {
	repo := NewSQLiteEntityRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	parent := testutil.NewTestEntity("org-1", "category", "Chairs")
	child := testutil.NewTestEntity("org-1", "product", "Oak Chair",
		testutil.WithParentEntity(parent.ID),
		testutil.WithSmartCode("HERA.FURN.PROD.CHAIR.v1"))
	require.NoError(t, repo.Create(ctx, parent))
	require.NoError(t, repo.Create(ctx, child))

	got, err := repo.GetByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oak Chair", got.Name)
	assert.Equal(t, "HERA.FURN.PROD.CHAIR.v1", got.SmartCode)
	require.NotNil(t, got.ParentEntityID)
	assert.Equal(t, parent.ID, *got.ParentEntityID)
	assert.True(t, child.CreatedAt.Truncate(time.Microsecond).Equal(got.CreatedAt))
}

func TestEntityRepo_DuplicateID(t *testing.T) {
	repo := NewSQLiteEntityRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	e := testutil.NewTestEntity("org-1", "product", "Table")
	require.NoError(t, repo.Create(ctx, e))
	assert.ErrorIs(t, repo.Create(ctx, e), ErrDuplicateKey)
}

func TestEntityRepo_ListByOrgAndType(t *testing.T) {
	repo := NewSQLiteEntityRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestEntity("org-1", "product", "A")))
	require.NoError(t, repo.Create(ctx, testutil.NewTestEntity("org-1", "product", "B")))
	require.NoError(t, repo.Create(ctx, testutil.NewTestEntity("org-1", "customer", "C")))
	require.NoError(t, repo.Create(ctx, testutil.NewTestEntity("org-2", "product", "D")))

	scoped, err := repo.ListByOrgAndType(ctx, "org-1", "product")
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	all, err := repo.ListByType(ctx, "product")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := repo.CountByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
