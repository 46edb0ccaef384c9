package repository

import (
	"context"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

type OrganizationRepo interface {
	Create(ctx context.Context, o *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetByCode(ctx context.Context, code string) (*domain.Organization, error)
	List(ctx context.Context) ([]*domain.Organization, error)
}

type EntityRepo interface {
	Create(ctx context.Context, e *domain.Entity) error
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
	ListByType(ctx context.Context, entityType string) ([]*domain.Entity, error)
	ListByOrgAndType(ctx context.Context, orgID, entityType string) ([]*domain.Entity, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Entity, error)
	ListAll(ctx context.Context) ([]*domain.Entity, error)
	CountByOrg(ctx context.Context, orgID string) (int, error)
}

type DynamicFieldRepo interface {
	Create(ctx context.Context, f *domain.DynamicField) error
	MaxVersion(ctx context.Context, entityID, fieldName string) (int, error)
	Latest(ctx context.Context, entityID, fieldName string) (*domain.DynamicField, error)
	ListByEntity(ctx context.Context, entityID string) ([]*domain.DynamicField, error)
	ListByEntityAndField(ctx context.Context, entityID, fieldName string) ([]*domain.DynamicField, error)
	ListAll(ctx context.Context) ([]*domain.DynamicField, error)
}

type RelationshipRepo interface {
	Create(ctx context.Context, r *domain.Relationship) error
	ListByEntity(ctx context.Context, entityID string) ([]*domain.Relationship, error)
	ListByOrgAndType(ctx context.Context, orgID, relType string) ([]*domain.Relationship, error)
	ListAll(ctx context.Context) ([]*domain.Relationship, error)
}

type TransactionRepo interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.Transaction, error)
	ListByOrgAndType(ctx context.Context, orgID, txnType string, limit int) ([]*domain.Transaction, error)
	ListAll(ctx context.Context) ([]*domain.Transaction, error)
	CountByOrg(ctx context.Context, orgID string) (int, error)
}

type TransactionLineRepo interface {
	Create(ctx context.Context, l *domain.TransactionLine) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionLine, error)
	ListAll(ctx context.Context) ([]*domain.TransactionLine, error)
}

// MetadataEntry is one key of the generic metadata store.
type MetadataEntry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

type MetadataRepo interface {
	Get(ctx context.Context, key string) (*MetadataEntry, error)
	Put(ctx context.Context, key string, value []byte, at time.Time) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]*MetadataEntry, error)
}

type SyncQueueRepo interface {
	Enqueue(ctx context.Context, item *domain.SyncItem) error
	ListPending(ctx context.Context, limit int) ([]*domain.SyncItem, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time) error
	CountByStatus(ctx context.Context, status domain.SyncStatus) (int, error)
}
