package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the version recorded in PRAGMA user_version once every
// store and index below exists.
const SchemaVersion = 1

// Store (table) names of the progressive database.
const (
	StoreOrganizations    = "core_organizations"
	StoreEntities         = "core_entities"
	StoreDynamicData      = "core_dynamic_data"
	StoreRelationships    = "core_relationships"
	StoreTransactions     = "universal_transactions"
	StoreTransactionLines = "universal_transaction_lines"
	StoreMetadata         = "metadata"
	StoreSyncQueue        = "sync_queue"
)

// UniversalStores are the six tables of the universal schema, in export order.
var UniversalStores = []string{
	StoreOrganizations,
	StoreEntities,
	StoreDynamicData,
	StoreRelationships,
	StoreTransactions,
	StoreTransactionLines,
}

// AllStores adds the auxiliary metadata and sync queue stores.
var AllStores = append(append([]string{}, UniversalStores...), StoreMetadata, StoreSyncQueue)

// expirableStore pairs a table with the index the sweep walks.
type expirableStore struct {
	table string
	index string
}

// ExpirableStores are swept daily. Dynamic data, relationships and lines are
// not: they outlive their owners until migrated or deleted with the database.
var expirableStores = []expirableStore{
	{table: StoreOrganizations, index: "idx_organizations_expires"},
	{table: StoreEntities, index: "idx_entities_expires"},
	{table: StoreTransactions, index: "idx_transactions_expires"},
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS core_organizations (
		id                TEXT PRIMARY KEY,
		organization_name TEXT NOT NULL,
		organization_code TEXT NOT NULL,
		organization_type TEXT NOT NULL DEFAULT 'trial'
		                  CHECK(organization_type IN ('trial','production')),
		business_type     TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'active'
		                  CHECK(status IN ('active','suspended','archived')),
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		expires_at        TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_organizations_code ON core_organizations(organization_code)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_expires ON core_organizations(expires_at)`,

	`CREATE TABLE IF NOT EXISTS core_entities (
		id               TEXT PRIMARY KEY,
		organization_id  TEXT NOT NULL,
		entity_type      TEXT NOT NULL,
		entity_name      TEXT NOT NULL,
		entity_code      TEXT NOT NULL DEFAULT '',
		smart_code       TEXT NOT NULL DEFAULT '',
		parent_entity_id TEXT,
		status           TEXT NOT NULL DEFAULT 'active',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		expires_at       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_org ON core_entities(organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_type ON core_entities(entity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_org_type ON core_entities(organization_id, entity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_smart_code ON core_entities(smart_code)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_parent ON core_entities(parent_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_expires ON core_entities(expires_at)`,

	`CREATE TABLE IF NOT EXISTS core_dynamic_data (
		id                   TEXT PRIMARY KEY,
		organization_id      TEXT NOT NULL,
		entity_id            TEXT NOT NULL,
		field_name           TEXT NOT NULL,
		field_type           TEXT NOT NULL
		                     CHECK(field_type IN ('text','number','boolean','date','json','file')),
		field_value_text     TEXT,
		field_value_number   TEXT,
		field_value_boolean  INTEGER,
		field_value_date     TEXT,
		field_value_json     TEXT,
		field_value_file_url TEXT,
		smart_code           TEXT NOT NULL DEFAULT '',
		version              INTEGER NOT NULL DEFAULT 1,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dynamic_entity ON core_dynamic_data(entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dynamic_entity_field ON core_dynamic_data(entity_id, field_name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_dynamic_entity_field_version ON core_dynamic_data(entity_id, field_name, version)`,

	`CREATE TABLE IF NOT EXISTS core_relationships (
		id                    TEXT PRIMARY KEY,
		organization_id       TEXT NOT NULL,
		from_entity_id        TEXT NOT NULL,
		to_entity_id          TEXT NOT NULL,
		relationship_type     TEXT NOT NULL,
		relationship_strength TEXT,
		effective_date        TEXT,
		expiration_date       TEXT,
		smart_code            TEXT NOT NULL DEFAULT '',
		status                TEXT NOT NULL DEFAULT 'active',
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_from ON core_relationships(from_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_to ON core_relationships(to_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_org_type ON core_relationships(organization_id, relationship_type)`,

	`CREATE TABLE IF NOT EXISTS universal_transactions (
		id                  TEXT PRIMARY KEY,
		organization_id     TEXT NOT NULL,
		transaction_type    TEXT NOT NULL,
		transaction_number  TEXT NOT NULL,
		transaction_date    TEXT NOT NULL,
		reference_entity_id TEXT,
		total_amount        TEXT NOT NULL DEFAULT '0',
		currency            TEXT NOT NULL DEFAULT 'USD',
		status              TEXT NOT NULL DEFAULT 'draft'
		                    CHECK(status IN ('draft','pending','confirmed','cancelled')),
		smart_code          TEXT NOT NULL DEFAULT '',
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		expires_at          TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_number ON universal_transactions(transaction_number)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_org ON universal_transactions(organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_org_type ON universal_transactions(organization_id, transaction_type)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON universal_transactions(transaction_date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_expires ON universal_transactions(expires_at)`,

	`CREATE TABLE IF NOT EXISTS universal_transaction_lines (
		id              TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		transaction_id  TEXT NOT NULL,
		line_number     INTEGER NOT NULL CHECK(line_number > 0),
		line_entity_id  TEXT,
		description     TEXT NOT NULL DEFAULT '',
		quantity        TEXT NOT NULL DEFAULT '0',
		unit_price      TEXT NOT NULL DEFAULT '0',
		line_amount     TEXT NOT NULL DEFAULT '0',
		smart_code      TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'active',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lines_transaction ON universal_transaction_lines(transaction_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_lines_transaction_number ON universal_transaction_lines(transaction_id, line_number)`,

	`CREATE TABLE IF NOT EXISTS metadata (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sync_queue (
		id         TEXT PRIMARY KEY,
		store_name TEXT NOT NULL,
		record_id  TEXT NOT NULL,
		operation  TEXT NOT NULL CHECK(operation IN ('create','update','delete')),
		status     TEXT NOT NULL DEFAULT 'pending'
		           CHECK(status IN ('pending','synced','failed')),
		attempts   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, created_at)`,
}

// Migrate brings the database up to SchemaVersion. A database already at
// that version is left untouched, so calling Migrate repeatedly is safe.
func Migrate(ctx context.Context, conn *sql.DB) error {
	var version int
	if err := conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= SchemaVersion {
		return nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting schema transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, SchemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	committed = true
	return nil
}
