package service

import (
	"context"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
)

// StoreMetadata is the metadata store of a db.Store. The handle is resolved
// on every call, so once the store closes each operation fails with
// db.ErrNotInitialized.
type StoreMetadata struct {
	store *db.Store
}

func NewStoreMetadata(store *db.Store) *StoreMetadata {
	return &StoreMetadata{store: store}
}

func (m *StoreMetadata) repo() (*repository.SQLiteMetadataRepo, error) {
	conn, err := m.store.DB()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteMetadataRepo(conn), nil
}

func (m *StoreMetadata) Get(ctx context.Context, key string) (*repository.MetadataEntry, error) {
	r, err := m.repo()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

func (m *StoreMetadata) Put(ctx context.Context, key string, value []byte, at time.Time) error {
	r, err := m.repo()
	if err != nil {
		return err
	}
	return r.Put(ctx, key, value, at)
}

func (m *StoreMetadata) Delete(ctx context.Context, key string) error {
	r, err := m.repo()
	if err != nil {
		return err
	}
	return r.Delete(ctx, key)
}

func (m *StoreMetadata) List(ctx context.Context, prefix string) ([]*repository.MetadataEntry, error) {
	r, err := m.repo()
	if err != nil {
		return nil, err
	}
	return r.List(ctx, prefix)
}
