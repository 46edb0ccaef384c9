package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openMemoryStore(t *testing.T, opts ...func(*db.Options)) *db.Store {
	t.Helper()
	o := db.Options{
		Path:               db.MemoryPath,
		Now:                func() time.Time { return fixedNow },
		DisableAutoCleanup: true,
	}
	for _, fn := range opts {
		fn(&o)
	}
	store, err := db.Open(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func insertOrg(t *testing.T, store *db.Store, id string, expires *time.Time) {
	t.Helper()
	conn, err := store.DB()
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO core_organizations
		(id, organization_name, organization_code, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, "Org "+id, "CODE-"+id, db.FormatTime(fixedNow), db.FormatTime(fixedNow), db.NullTime(expires))
	require.NoError(t, err)
}

func countRows(t *testing.T, store *db.Store, table string) int {
	t.Helper()
	conn, err := store.DB()
	require.NoError(t, err)
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestInitialize_CreatesEveryStoreAndIndex(t *testing.T) {
	store := openMemoryStore(t)
	conn, err := store.DB()
	require.NoError(t, err)

	for _, table := range db.AllStores {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	for _, idx := range []string{
		"idx_organizations_code", "idx_organizations_expires",
		"idx_entities_org", "idx_entities_type", "idx_entities_org_type",
		"idx_entities_smart_code", "idx_entities_parent", "idx_entities_expires",
		"idx_dynamic_entity", "idx_dynamic_entity_field", "idx_dynamic_entity_field_version",
		"idx_relationships_from", "idx_relationships_to", "idx_relationships_org_type",
		"idx_transactions_number", "idx_transactions_org", "idx_transactions_org_type",
		"idx_transactions_date", "idx_transactions_expires",
		"idx_lines_transaction", "idx_lines_transaction_number",
		"idx_sync_queue_status",
	} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s", idx)
	}

	var version int
	require.NoError(t, conn.QueryRow(`PRAGMA user_version`).Scan(&version))
	assert.Equal(t, db.SchemaVersion, version)
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)
	require.NoError(t, store.Initialize(ctx))

	conn, err := store.DB()
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, conn))

	var tables, indexes int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table'`).Scan(&tables))
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name LIKE 'idx_%'`).Scan(&indexes))
	assert.Equal(t, len(db.AllStores), tables)
	assert.Equal(t, 22, indexes)
}

func TestInitialize_ReopensExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hera.db")

	first, err := db.Open(ctx, db.Options{Path: path, DisableAutoCleanup: true})
	require.NoError(t, err)
	insertOrg(t, first, "org-1", nil)
	require.NoError(t, first.Close())

	second, err := db.Open(ctx, db.Options{Path: path, DisableAutoCleanup: true})
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })
	assert.Equal(t, 1, countRows(t, second, db.StoreOrganizations))
}

func TestInitialize_StorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, writeFile(blocker))

	store := db.New(db.Options{Path: filepath.Join(blocker, "nested", "hera.db"), DisableAutoCleanup: true})
	err := store.Initialize(context.Background())
	require.ErrorIs(t, err, db.ErrStorageUnavailable)
	assert.Equal(t, db.StateUninitialized, store.State())
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	store := db.New(db.Options{Path: db.MemoryPath, DisableAutoCleanup: true})
	assert.Equal(t, db.StateUninitialized, store.State())

	_, err := store.DB()
	require.ErrorIs(t, err, db.ErrNotInitialized)

	require.NoError(t, store.Initialize(ctx))
	assert.Equal(t, db.StateReady, store.State())

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
	assert.Equal(t, db.StateClosed, store.State())

	_, err = store.Sweep(ctx)
	require.ErrorIs(t, err, db.ErrNotInitialized)
	_, err = store.StorageStats(ctx)
	require.ErrorIs(t, err, db.ErrNotInitialized)

	require.NoError(t, store.Initialize(ctx))
	assert.Equal(t, db.StateReady, store.State())
	require.NoError(t, store.Close())
}

func TestSweep_RemovesExpiredKeepsFuture(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	store := openMemoryStore(t, func(o *db.Options) { o.Metrics = metrics.New(reg) })

	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)
	insertOrg(t, store, "expired", &past)
	insertOrg(t, store, "exact", &fixedNow)
	insertOrg(t, store, "alive", &future)
	insertOrg(t, store, "forever", nil)

	for range 3 {
		report, err := store.Sweep(ctx)
		require.NoError(t, err)
		require.NoError(t, report.Err())
	}

	conn, err := store.DB()
	require.NoError(t, err)
	rows, err := conn.Query(`SELECT id FROM core_organizations ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"alive", "forever"}, ids)

	last, ok := store.LastSweep()
	require.True(t, ok)
	assert.Len(t, last.Stores, 3)
	assert.Equal(t, float64(2), counterTotal(t, reg, "hera_local_expired_records_deleted_total"))
}

func TestSweep_StoreFailureDoesNotAbortOthers(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	past := fixedNow.Add(-time.Minute)
	insertOrg(t, store, "old", &past)

	conn, err := store.DB()
	require.NoError(t, err)
	_, err = conn.Exec(`DROP TABLE core_entities`)
	require.NoError(t, err)

	report, err := store.Sweep(ctx)
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, db.StoreEntities, failed[0].Store)
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), db.StoreEntities)
	assert.Equal(t, int64(1), report.Deleted())
	assert.Equal(t, 0, countRows(t, store, db.StoreOrganizations))
}

func TestStartExpiryCleanup_SweepsImmediately(t *testing.T) {
	reports := make(chan db.SweepReport, 4)
	past := fixedNow.Add(-time.Hour)

	store := db.New(db.Options{
		Path:               db.MemoryPath,
		Now:                func() time.Time { return fixedNow },
		DisableAutoCleanup: true,
		SweepInterval:      time.Hour,
		OnSweep:            func(r db.SweepReport) { reports <- r },
	})
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))
	t.Cleanup(func() { store.Close() })
	insertOrg(t, store, "stale", &past)

	require.NoError(t, store.StartExpiryCleanup(ctx))
	require.NoError(t, store.StartExpiryCleanup(ctx))

	select {
	case r := <-reports:
		assert.Equal(t, int64(1), r.Deleted())
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup loop did not sweep")
	}

	require.NoError(t, store.Close())
	assert.Equal(t, db.StateClosed, store.State())
}

func TestStorageStats(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hera.db")
	store, err := db.Open(ctx, db.Options{Path: path, DisableAutoCleanup: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	insertOrg(t, store, "a", nil)
	insertOrg(t, store, "b", nil)

	stats, err := store.StorageStats(ctx)
	require.NoError(t, err)
	assert.Positive(t, stats.UsageBytes)
	assert.GreaterOrEqual(t, stats.QuotaBytes, stats.UsageBytes)
	assert.Len(t, stats.RecordCounts, len(db.AllStores))
	assert.Equal(t, int64(2), stats.RecordCounts[db.StoreOrganizations])
	assert.Equal(t, int64(2), stats.TotalRecords())
}

func TestStorageStats_MemoryHasNoQuota(t *testing.T) {
	stats, err := openMemoryStore(t).StorageStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.QuotaBytes)
}

func TestDeleteDatabase_BlockedWhileOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hera.db")
	store, err := db.Open(ctx, db.Options{Path: path, DisableAutoCleanup: true})
	require.NoError(t, err)

	require.ErrorIs(t, db.DeleteDatabase(path), db.ErrDeleteBlocked)
	assert.FileExists(t, path)

	require.NoError(t, store.Close())
	require.NoError(t, db.DeleteDatabase(path))
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+"-wal")
}

func TestDeleteDatabase_MissingFile(t *testing.T) {
	require.NoError(t, db.DeleteDatabase(filepath.Join(t.TempDir(), "never.db")))
}
