package service

import (
	"context"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
)

// LocalData is what the trial manager reads from the adapter.
type LocalData interface {
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	ListOrganizationEntities(ctx context.Context, organizationID string) ([]*domain.Entity, error)
	GetTransactions(ctx context.Context, organizationID, transactionType string, limit int) ([]*domain.Transaction, error)
	CountOrganizationRecords(ctx context.Context, organizationID string) (entities, transactions int, err error)
	StorageStats(ctx context.Context) (db.StorageStats, error)
	ExportAllData(ctx context.Context) (*app.ExportedData, error)
}

// MetadataStore is the generic key/value store trial metadata lives in.
type MetadataStore interface {
	Get(ctx context.Context, key string) (*repository.MetadataEntry, error)
	Put(ctx context.Context, key string, value []byte, at time.Time) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*repository.MetadataEntry, error)
}

var (
	_ LocalData     = (*LocalDataService)(nil)
	_ MetadataStore = (*repository.SQLiteMetadataRepo)(nil)
	_ MetadataStore = (*StoreMetadata)(nil)

	_ app.OrganizationUseCase = (*LocalDataService)(nil)
	_ app.EntityUseCase       = (*LocalDataService)(nil)
	_ app.DynamicFieldUseCase = (*LocalDataService)(nil)
	_ app.RelationshipUseCase = (*LocalDataService)(nil)
	_ app.TransactionUseCase  = (*LocalDataService)(nil)
	_ app.StorageUseCase      = (*LocalDataService)(nil)
	_ app.TrialUseCase        = (*TrialService)(nil)
	_ app.MigrationUseCase    = (*TrialService)(nil)
)
