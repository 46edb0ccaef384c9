package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

// StoreOption adjusts the options of a test store.
type StoreOption func(*db.Options)

// WithClock pins the store clock.
func WithClock(now func() time.Time) StoreOption {
	return func(o *db.Options) {
		o.Now = now
	}
}

// WithPath uses a database file instead of memory.
func WithPath(path string) StoreOption {
	return func(o *db.Options) {
		o.Path = path
	}
}

// NewTestStore opens an in-memory store with the schema applied and no
// background cleanup. The store is closed when the test completes.
func NewTestStore(t *testing.T, opts ...StoreOption) *db.Store {
	t.Helper()
	o := db.Options{Path: db.MemoryPath, DisableAutoCleanup: true}
	for _, opt := range opts {
		opt(&o)
	}
	store, err := db.Open(context.Background(), o)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTestDB returns the handle of a fresh in-memory store.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := NewTestStore(t).DB()
	if err != nil {
		t.Fatalf("test store not ready: %v", err)
	}
	return conn
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}
