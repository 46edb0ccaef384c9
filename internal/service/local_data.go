package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/metrics"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
)

// LocalDataService is the typed CRUD adapter over the six universal stores.
// It holds a non-owning reference to the store for one session; Close hands
// the store back and every later call fails with db.ErrNotInitialized.
type LocalDataService struct {
	mu    sync.RWMutex
	store *db.Store

	retention time.Duration
	now       func() time.Time
	uow       db.UnitOfWork
	log       *zap.Logger
	metrics   *metrics.Metrics
	observer  UseCaseObserver
}

type LocalDataOption func(*LocalDataService)

// WithRetention sets how long new records live locally.
func WithRetention(d time.Duration) LocalDataOption {
	return func(s *LocalDataService) { s.retention = d }
}

func WithClock(now func() time.Time) LocalDataOption {
	return func(s *LocalDataService) { s.now = now }
}

// WithUnitOfWork replaces the store's unit of work for write transactions.
func WithUnitOfWork(uow db.UnitOfWork) LocalDataOption {
	return func(s *LocalDataService) { s.uow = uow }
}

func WithLogger(log *zap.Logger) LocalDataOption {
	return func(s *LocalDataService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) LocalDataOption {
	return func(s *LocalDataService) { s.metrics = m }
}

func WithObserver(obs UseCaseObserver) LocalDataOption {
	return func(s *LocalDataService) { s.observer = obs }
}

func NewLocalDataService(store *db.Store, opts ...LocalDataOption) *LocalDataService {
	s := &LocalDataService{
		store:     store,
		retention: domain.DefaultRetention,
		log:       zap.NewNop(),
		observer:  NoopUseCaseObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.now == nil {
		s.now = store.Now
	}
	if s.metrics == nil {
		s.metrics = store.Metrics()
	}
	s.log = s.log.Named("local_data")
	return s
}

func (s *LocalDataService) conn() (*db.Store, db.DBTX, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()
	if store == nil {
		return nil, nil, db.ErrNotInitialized
	}
	conn, err := store.DB()
	if err != nil {
		return nil, nil, err
	}
	return store, conn, nil
}

func (s *LocalDataService) unitOfWork() (db.UnitOfWork, error) {
	store, _, err := s.conn()
	if err != nil {
		return nil, err
	}
	if s.uow != nil {
		return s.uow, nil
	}
	return store.UnitOfWork()
}

func (s *LocalDataService) clock() time.Time {
	return s.now().UTC().Truncate(db.TimePrecision)
}

func (s *LocalDataService) expiry(now time.Time) *time.Time {
	t := domain.ExpiryFrom(now, s.retention)
	return &t
}

func (s *LocalDataService) enqueue(ctx context.Context, tx db.DBTX, store, recordID string, op domain.SyncOperation, now time.Time) error {
	return repository.NewSQLiteSyncQueueRepo(tx).Enqueue(ctx, &domain.SyncItem{
		ID:        uuid.New().String(),
		StoreName: store,
		RecordID:  recordID,
		Operation: op,
		Status:    domain.SyncPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// CreateOrganization fills id, timestamps, expiry, type and status when
// absent and inserts the organization.
func (s *LocalDataService) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	uow, err := s.unitOfWork()
	if err != nil {
		return err
	}
	now := s.clock()
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	if org.Type == "" {
		org.Type = domain.OrganizationTrial
	}
	if org.Status == "" {
		org.Status = domain.OrganizationActive
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now
	if org.ExpiresAt == nil {
		org.ExpiresAt = s.expiry(org.CreatedAt)
	}
	if err := domain.Validate(org); err != nil {
		return err
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteOrganizationRepo(tx).Create(ctx, org); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, db.StoreOrganizations, org.ID, domain.SyncCreate, now)
	})
	if err != nil {
		return fmt.Errorf("creating organization: %w", err)
	}
	s.metrics.RecordCreated(db.StoreOrganizations, 1)
	return nil
}

func (s *LocalDataService) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteOrganizationRepo(conn).GetByID(ctx, id)
}

func (s *LocalDataService) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteOrganizationRepo(conn).List(ctx)
}

// GetOrganizationByCode looks an organization up by its code.
func (s *LocalDataService) GetOrganizationByCode(ctx context.Context, code string) (*domain.Organization, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteOrganizationRepo(conn).GetByCode(ctx, code)
}

// CreateEntity fills id, timestamps and expiry when absent and inserts the
// entity. A reused id fails with repository.ErrDuplicateKey.
func (s *LocalDataService) CreateEntity(ctx context.Context, e *domain.Entity) error {
	uow, err := s.unitOfWork()
	if err != nil {
		return err
	}
	now := s.clock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = domain.StatusActive
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	if e.ExpiresAt == nil {
		e.ExpiresAt = s.expiry(e.CreatedAt)
	}
	if err := domain.Validate(e); err != nil {
		return err
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteEntityRepo(tx).Create(ctx, e); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, db.StoreEntities, e.ID, domain.SyncCreate, now)
	})
	if err != nil {
		return fmt.Errorf("creating entity: %w", err)
	}
	s.metrics.RecordCreated(db.StoreEntities, 1)
	return nil
}

func (s *LocalDataService) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteEntityRepo(conn).GetByID(ctx, id)
}

// GetEntities lists entities of a type. With an organization id the scan is
// bounded by the (organization, type) index; without one it covers every
// organization.
func (s *LocalDataService) GetEntities(ctx context.Context, entityType, organizationID string) ([]*domain.Entity, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	repo := repository.NewSQLiteEntityRepo(conn)
	if organizationID != "" {
		return repo.ListByOrgAndType(ctx, organizationID, entityType)
	}
	return repo.ListByType(ctx, entityType)
}

// ListOrganizationEntities returns every entity of one organization.
func (s *LocalDataService) ListOrganizationEntities(ctx context.Context, organizationID string) ([]*domain.Entity, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteEntityRepo(conn).ListByOrg(ctx, organizationID)
}

// CreateTransaction writes the header and its lines in one unit of work.
// Lines are numbered from 1 and inherit the header's organization. Either
// every record is written or none is.
func (s *LocalDataService) CreateTransaction(ctx context.Context, txn *domain.Transaction, lines []*domain.TransactionLine) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"lines": len(lines)}
	defer observe(ctx, s.observer, "create-transaction", startedAt, fields, &err)

	uow, err := s.unitOfWork()
	if err != nil {
		return err
	}
	now := s.clock()
	prepareTransaction(txn, lines, now, s.expiry)
	fields["transaction_id"] = txn.ID

	if err = domain.Validate(txn); err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	for _, l := range lines {
		if err = domain.Validate(l); err != nil {
			return fmt.Errorf("creating transaction: line %d: %w", l.LineNumber, err)
		}
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteTransactionRepo(tx).Create(ctx, txn); err != nil {
			return err
		}
		lineRepo := repository.NewSQLiteTransactionLineRepo(tx)
		for _, l := range lines {
			if err := lineRepo.Create(ctx, l); err != nil {
				return err
			}
		}
		if err := s.enqueue(ctx, tx, db.StoreTransactions, txn.ID, domain.SyncCreate, now); err != nil {
			return err
		}
		for _, l := range lines {
			if err := s.enqueue(ctx, tx, db.StoreTransactionLines, l.ID, domain.SyncCreate, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("transaction rolled back", zap.String("transaction_number", txn.TransactionNumber), zap.Error(err))
		return fmt.Errorf("creating transaction: %w", err)
	}
	s.metrics.RecordCreated(db.StoreTransactions, 1)
	s.metrics.RecordCreated(db.StoreTransactionLines, len(lines))
	return nil
}

func prepareTransaction(txn *domain.Transaction, lines []*domain.TransactionLine, now time.Time, expiry func(time.Time) *time.Time) {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.TransactionNumber == "" {
		txn.TransactionNumber = fmt.Sprintf("TXN-%s-%s", now.Format("20060102"), uuid.New().String()[:8])
	}
	if txn.TransactionDate.IsZero() {
		txn.TransactionDate = now
	}
	if txn.Currency == "" {
		txn.Currency = "USD"
	}
	if txn.Status == "" {
		txn.Status = domain.TransactionDraft
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	if txn.ExpiresAt == nil {
		txn.ExpiresAt = expiry(txn.CreatedAt)
	}

	sumLines := txn.TotalAmount.IsZero()
	for i, l := range lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.TransactionID = txn.ID
		l.OrganizationID = txn.OrganizationID
		l.LineNumber = i + 1
		if l.Status == "" {
			l.Status = domain.StatusActive
		}
		l.CreatedAt, l.UpdatedAt = now, now
		l.ComputeLineAmount()
		if sumLines {
			txn.TotalAmount = txn.TotalAmount.Add(l.LineAmount)
		}
	}
}

// GetTransactions lists an organization's transactions, newest first. With a
// type the composite index is scanned with the limit applied in the query;
// without one the whole organization is read and truncated afterwards.
// limit <= 0 means no limit.
func (s *LocalDataService) GetTransactions(ctx context.Context, organizationID, transactionType string, limit int) ([]*domain.Transaction, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	repo := repository.NewSQLiteTransactionRepo(conn)
	if transactionType != "" {
		return repo.ListByOrgAndType(ctx, organizationID, transactionType, limit)
	}
	txns, err := repo.ListByOrg(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
	}
	return txns, nil
}

func (s *LocalDataService) GetTransactionLines(ctx context.Context, transactionID string) ([]*domain.TransactionLine, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteTransactionLineRepo(conn).ListByTransaction(ctx, transactionID)
}

// SetDynamicField appends a new version of the field; earlier versions are
// kept. The owning entity must exist and supplies the organization.
func (s *LocalDataService) SetDynamicField(ctx context.Context, entityID, fieldName string, value any, fieldType domain.FieldType, smartCode string) (*domain.DynamicField, error) {
	uow, err := s.unitOfWork()
	if err != nil {
		return nil, err
	}
	now := s.clock()
	field := &domain.DynamicField{
		ID:        uuid.New().String(),
		EntityID:  entityID,
		FieldName: fieldName,
		SmartCode: smartCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := field.SetValue(fieldType, value); err != nil {
		return nil, err
	}

	err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		entity, err := repository.NewSQLiteEntityRepo(tx).GetByID(ctx, entityID)
		if err != nil {
			return err
		}
		field.OrganizationID = entity.OrganizationID

		fields := repository.NewSQLiteDynamicFieldRepo(tx)
		current, err := fields.MaxVersion(ctx, entityID, fieldName)
		if err != nil {
			return err
		}
		field.Version = current + 1
		if err := domain.Validate(field); err != nil {
			return err
		}
		if err := fields.Create(ctx, field); err != nil {
			return err
		}
		op := domain.SyncCreate
		if field.Version > 1 {
			op = domain.SyncUpdate
		}
		return s.enqueue(ctx, tx, db.StoreDynamicData, field.ID, op, now)
	})
	if err != nil {
		return nil, fmt.Errorf("setting field %s: %w", fieldName, err)
	}
	s.metrics.RecordCreated(db.StoreDynamicData, 1)
	return field, nil
}

// GetDynamicFields returns every version of every field of the entity.
func (s *LocalDataService) GetDynamicFields(ctx context.Context, entityID string) ([]*domain.DynamicField, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteDynamicFieldRepo(conn).ListByEntity(ctx, entityID)
}

func (s *LocalDataService) GetDynamicFieldVersions(ctx context.Context, entityID, fieldName string) ([]*domain.DynamicField, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteDynamicFieldRepo(conn).ListByEntityAndField(ctx, entityID, fieldName)
}

func (s *LocalDataService) GetLatestDynamicField(ctx context.Context, entityID, fieldName string) (*domain.DynamicField, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteDynamicFieldRepo(conn).Latest(ctx, entityID, fieldName)
}

// CreateRelationship links two existing entities. The organization defaults
// to the source entity's.
func (s *LocalDataService) CreateRelationship(ctx context.Context, rel *domain.Relationship) error {
	uow, err := s.unitOfWork()
	if err != nil {
		return err
	}
	now := s.clock()
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.Status == "" {
		rel.Status = domain.StatusActive
	}
	rel.CreatedAt, rel.UpdatedAt = now, now

	err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		entities := repository.NewSQLiteEntityRepo(tx)
		from, err := entities.GetByID(ctx, rel.FromEntityID)
		if err != nil {
			return err
		}
		if _, err := entities.GetByID(ctx, rel.ToEntityID); err != nil {
			return err
		}
		if rel.OrganizationID == "" {
			rel.OrganizationID = from.OrganizationID
		}
		if err := domain.Validate(rel); err != nil {
			return err
		}
		if err := repository.NewSQLiteRelationshipRepo(tx).Create(ctx, rel); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, db.StoreRelationships, rel.ID, domain.SyncCreate, now)
	})
	if err != nil {
		return fmt.Errorf("creating relationship: %w", err)
	}
	s.metrics.RecordCreated(db.StoreRelationships, 1)
	return nil
}

func (s *LocalDataService) GetRelationships(ctx context.Context, entityID string) ([]*domain.Relationship, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteRelationshipRepo(conn).ListByEntity(ctx, entityID)
}

// GetRelationshipsByType lists an organization's relationships of one type.
func (s *LocalDataService) GetRelationshipsByType(ctx context.Context, organizationID, relationshipType string) ([]*domain.Relationship, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteRelationshipRepo(conn).ListByOrgAndType(ctx, organizationID, relationshipType)
}

func (s *LocalDataService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteTransactionRepo(conn).GetByID(ctx, id)
}

// CountOrganizationRecords returns the entity and transaction counts of one
// organization.
func (s *LocalDataService) CountOrganizationRecords(ctx context.Context, organizationID string) (entities, transactions int, err error) {
	_, conn, err := s.conn()
	if err != nil {
		return 0, 0, err
	}
	if entities, err = repository.NewSQLiteEntityRepo(conn).CountByOrg(ctx, organizationID); err != nil {
		return 0, 0, err
	}
	if transactions, err = repository.NewSQLiteTransactionRepo(conn).CountByOrg(ctx, organizationID); err != nil {
		return 0, 0, err
	}
	return entities, transactions, nil
}

// PendingSync returns queued writes not yet uploaded, oldest first.
func (s *LocalDataService) PendingSync(ctx context.Context, limit int) ([]*domain.SyncItem, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return repository.NewSQLiteSyncQueueRepo(conn).ListPending(ctx, limit)
}

// AcknowledgeSync records the upload outcome of one queued write. Failed
// items leave the pending list; their attempt count is kept.
func (s *LocalDataService) AcknowledgeSync(ctx context.Context, id string, synced bool) error {
	_, conn, err := s.conn()
	if err != nil {
		return err
	}
	repo := repository.NewSQLiteSyncQueueRepo(conn)
	if synced {
		return repo.MarkSynced(ctx, id, s.clock())
	}
	return repo.MarkFailed(ctx, id, s.clock())
}

// SyncCounts reports how many queued writes are in each sync state.
func (s *LocalDataService) SyncCounts(ctx context.Context) (map[domain.SyncStatus]int, error) {
	_, conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	repo := repository.NewSQLiteSyncQueueRepo(conn)
	counts := make(map[domain.SyncStatus]int, 3)
	for _, st := range []domain.SyncStatus{domain.SyncPending, domain.SyncDone, domain.SyncFailed} {
		n, err := repo.CountByStatus(ctx, st)
		if err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, nil
}

func (s *LocalDataService) StorageStats(ctx context.Context) (db.StorageStats, error) {
	store, _, err := s.conn()
	if err != nil {
		return db.StorageStats{}, err
	}
	return store.StorageStats(ctx)
}

// ExportAllData reads the six universal stores inside one read-only snapshot
// so the arrays are mutually consistent.
func (s *LocalDataService) ExportAllData(ctx context.Context) (data *app.ExportedData, err error) {
	startedAt := time.Now()
	fields := map[string]any{}
	defer observe(ctx, s.observer, "export-all-data", startedAt, fields, &err)

	store, _, err := s.conn()
	if err != nil {
		return nil, err
	}
	uow, err := store.UnitOfWork()
	if err != nil {
		return nil, err
	}

	data = &app.ExportedData{}
	err = uow.WithinReadTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if data.Organizations, err = repository.NewSQLiteOrganizationRepo(tx).List(ctx); err != nil {
			return err
		}
		if data.Entities, err = repository.NewSQLiteEntityRepo(tx).ListAll(ctx); err != nil {
			return err
		}
		if data.DynamicData, err = repository.NewSQLiteDynamicFieldRepo(tx).ListAll(ctx); err != nil {
			return err
		}
		if data.Relationships, err = repository.NewSQLiteRelationshipRepo(tx).ListAll(ctx); err != nil {
			return err
		}
		if data.Transactions, err = repository.NewSQLiteTransactionRepo(tx).ListAll(ctx); err != nil {
			return err
		}
		data.TransactionLines, err = repository.NewSQLiteTransactionLineRepo(tx).ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("exporting local data: %w", err)
	}
	fields["records"] = data.Count()
	return data, nil
}

// Close closes the store and drops the reference to it.
func (s *LocalDataService) Close() error {
	s.mu.Lock()
	store := s.store
	s.store = nil
	s.mu.Unlock()
	if store == nil {
		return nil
	}
	return store.Close()
}
