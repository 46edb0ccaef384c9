package app

import (
	"context"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

type OrganizationUseCase interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	GetOrganizationByCode(ctx context.Context, code string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]*domain.Organization, error)
}

type EntityUseCase interface {
	CreateEntity(ctx context.Context, e *domain.Entity) error
	GetEntity(ctx context.Context, id string) (*domain.Entity, error)
	GetEntities(ctx context.Context, entityType, organizationID string) ([]*domain.Entity, error)
}

type DynamicFieldUseCase interface {
	SetDynamicField(ctx context.Context, entityID, fieldName string, value any, fieldType domain.FieldType, smartCode string) (*domain.DynamicField, error)
	GetDynamicFields(ctx context.Context, entityID string) ([]*domain.DynamicField, error)
	GetLatestDynamicField(ctx context.Context, entityID, fieldName string) (*domain.DynamicField, error)
}

type RelationshipUseCase interface {
	CreateRelationship(ctx context.Context, rel *domain.Relationship) error
	GetRelationships(ctx context.Context, entityID string) ([]*domain.Relationship, error)
	GetRelationshipsByType(ctx context.Context, organizationID, relationshipType string) ([]*domain.Relationship, error)
}

type TransactionUseCase interface {
	CreateTransaction(ctx context.Context, txn *domain.Transaction, lines []*domain.TransactionLine) error
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	GetTransactions(ctx context.Context, organizationID, transactionType string, limit int) ([]*domain.Transaction, error)
	GetTransactionLines(ctx context.Context, transactionID string) ([]*domain.TransactionLine, error)
}

type StorageUseCase interface {
	StorageStats(ctx context.Context) (db.StorageStats, error)
	ExportAllData(ctx context.Context) (*ExportedData, error)
	PendingSync(ctx context.Context, limit int) ([]*domain.SyncItem, error)
	SyncCounts(ctx context.Context) (map[domain.SyncStatus]int, error)
	AcknowledgeSync(ctx context.Context, id string, synced bool) error
}

type TrialUseCase interface {
	InitializeTrial(ctx context.Context, organizationID, businessType string) (*TrialStatus, error)
	GetTrialStatus(ctx context.Context, organizationID string) (*TrialStatus, error)
	TrackFeatureUsage(ctx context.Context, organizationID, feature string) Outcome
	GetConversionMetrics(ctx context.Context, organizationID string) (*ConversionMetrics, error)
	ConvertTrial(ctx context.Context, organizationID string) (*TrialStatus, error)
	ExtendTrial(ctx context.Context, organizationID string, days int) (*TrialStatus, error)
	ListTrials(ctx context.Context) ([]*TrialStatus, error)
	DiscardTrial(ctx context.Context, organizationID string) error
}

type MigrationUseCase interface {
	ValidateForMigration(ctx context.Context, organizationID string) ([]ValidationResult, error)
	PrepareMigrationData(ctx context.Context, organizationID string) (*MigrationPackage, error)
}
