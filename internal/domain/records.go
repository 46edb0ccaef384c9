package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRetention is how long progressive-mode records live locally before
// the expiry sweep removes them.
const DefaultRetention = 30 * 24 * time.Hour

// Organization is the tenant every other record belongs to.
type Organization struct {
	ID           string             `json:"id" validate:"required"`
	Name         string             `json:"organization_name" validate:"required"`
	Code         string             `json:"organization_code" validate:"required"`
	Type         OrganizationType   `json:"organization_type" validate:"required,oneof=trial production"`
	BusinessType string             `json:"business_type,omitempty"`
	Status       OrganizationStatus `json:"status" validate:"required,oneof=active suspended archived"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
}

// Entity is any business noun: product, customer, menu item, workstation.
type Entity struct {
	ID             string     `json:"id" validate:"required"`
	OrganizationID string     `json:"organization_id" validate:"required"`
	EntityType     string     `json:"entity_type" validate:"required"`
	Name           string     `json:"entity_name" validate:"required"`
	Code           string     `json:"entity_code,omitempty"`
	SmartCode      string     `json:"smart_code"`
	ParentEntityID *string    `json:"parent_entity_id,omitempty"`
	Status         string     `json:"status" validate:"required"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// Relationship links two entities. Relationships do not expire on their own.
type Relationship struct {
	ID               string           `json:"id" validate:"required"`
	OrganizationID   string           `json:"organization_id" validate:"required"`
	FromEntityID     string           `json:"from_entity_id" validate:"required"`
	ToEntityID       string           `json:"to_entity_id" validate:"required"`
	RelationshipType string           `json:"relationship_type" validate:"required"`
	Strength         *decimal.Decimal `json:"relationship_strength,omitempty"`
	EffectiveFrom    *time.Time       `json:"effective_date,omitempty"`
	EffectiveTo      *time.Time       `json:"expiration_date,omitempty"`
	SmartCode        string           `json:"smart_code,omitempty"`
	Status           string           `json:"status" validate:"required"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Transaction is the header of any business event (sale, purchase order,
// production run).
type Transaction struct {
	ID                string            `json:"id" validate:"required"`
	OrganizationID    string            `json:"organization_id" validate:"required"`
	TransactionType   string            `json:"transaction_type" validate:"required"`
	TransactionNumber string            `json:"transaction_number" validate:"required"`
	TransactionDate   time.Time         `json:"transaction_date"`
	ReferenceEntityID *string           `json:"reference_entity_id,omitempty"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	Currency          string            `json:"currency" validate:"required,len=3"`
	Status            TransactionStatus `json:"status" validate:"required,oneof=draft pending confirmed cancelled"`
	SmartCode         string            `json:"smart_code"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}

// TransactionLine is one line of a Transaction. Its lifetime is tied to the
// parent transaction.
type TransactionLine struct {
	ID             string          `json:"id" validate:"required"`
	OrganizationID string          `json:"organization_id" validate:"required"`
	TransactionID  string          `json:"transaction_id" validate:"required"`
	LineNumber     int             `json:"line_number" validate:"gte=1"`
	LineEntityID   *string         `json:"line_entity_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineAmount     decimal.Decimal `json:"line_amount"`
	SmartCode      string          `json:"smart_code,omitempty"`
	Status         string          `json:"status" validate:"required"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SyncItem records a local write that still has to reach the cloud backend.
type SyncItem struct {
	ID        string        `json:"id"`
	StoreName string        `json:"store_name"`
	RecordID  string        `json:"record_id"`
	Operation SyncOperation `json:"operation"`
	Status    SyncStatus    `json:"status"`
	Attempts  int           `json:"attempts"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ExpiryFrom returns the expiry timestamp for a record created at t.
// A non-positive retention falls back to DefaultRetention.
func ExpiryFrom(t time.Time, retention time.Duration) time.Time {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return t.Add(retention)
}

// ComputeLineAmount fills LineAmount from Quantity x UnitPrice when it was
// left at zero.
func (l *TransactionLine) ComputeLineAmount() {
	if l.LineAmount.IsZero() && !l.Quantity.IsZero() {
		l.LineAmount = l.Quantity.Mul(l.UnitPrice)
	}
}
