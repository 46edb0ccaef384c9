package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

var testCodeCounter atomic.Int64

func nextCode(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, testCodeCounter.Add(1))
}

// Organization options
type OrganizationOption func(*domain.Organization)

func WithOrgCode(code string) OrganizationOption {
	return func(o *domain.Organization) {
		o.Code = code
	}
}

func WithOrgType(t domain.OrganizationType) OrganizationOption {
	return func(o *domain.Organization) {
		o.Type = t
	}
}

func WithOrgExpiry(t time.Time) OrganizationOption {
	return func(o *domain.Organization) {
		o.ExpiresAt = &t
	}
}

func NewTestOrganization(name string, opts ...OrganizationOption) *domain.Organization {
	now := time.Now().UTC().Truncate(db.TimePrecision)
	expires := domain.ExpiryFrom(now, 0)
	o := &domain.Organization{
		ID:           uuid.New().String(),
		Name:         name,
		Code:         nextCode("ORG"),
		Type:         domain.OrganizationTrial,
		BusinessType: "restaurant",
		Status:       domain.OrganizationActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    &expires,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Entity options
type EntityOption func(*domain.Entity)

func WithSmartCode(code string) EntityOption {
	return func(e *domain.Entity) {
		e.SmartCode = code
	}
}

func WithParentEntity(id string) EntityOption {
	return func(e *domain.Entity) {
		e.ParentEntityID = &id
	}
}

func WithEntityExpiry(t time.Time) EntityOption {
	return func(e *domain.Entity) {
		e.ExpiresAt = &t
	}
}

func WithEntityCreatedAt(t time.Time) EntityOption {
	return func(e *domain.Entity) {
		e.CreatedAt = t
		e.UpdatedAt = t
	}
}

func NewTestEntity(orgID, entityType, name string, opts ...EntityOption) *domain.Entity {
	now := time.Now().UTC().Truncate(db.TimePrecision)
	expires := domain.ExpiryFrom(now, 0)
	e := &domain.Entity{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		EntityType:     entityType,
		Name:           name,
		Code:           nextCode("ENT"),
		SmartCode:      "HERA.TEST.TRIAL.ENTITY.v1",
		Status:         domain.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      &expires,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transaction options
type TransactionOption func(*domain.Transaction)

func WithTransactionType(t string) TransactionOption {
	return func(txn *domain.Transaction) {
		txn.TransactionType = t
	}
}

func WithReferenceEntity(id string) TransactionOption {
	return func(txn *domain.Transaction) {
		txn.ReferenceEntityID = &id
	}
}

func WithTransactionDate(d time.Time) TransactionOption {
	return func(txn *domain.Transaction) {
		txn.TransactionDate = d
	}
}

func WithTotal(amount string) TransactionOption {
	return func(txn *domain.Transaction) {
		txn.TotalAmount = decimal.RequireFromString(amount)
	}
}

func NewTestTransaction(orgID string, opts ...TransactionOption) *domain.Transaction {
	now := time.Now().UTC().Truncate(db.TimePrecision)
	expires := domain.ExpiryFrom(now, 0)
	txn := &domain.Transaction{
		ID:                uuid.New().String(),
		OrganizationID:    orgID,
		TransactionType:   "sale",
		TransactionNumber: nextCode("TXN"),
		TransactionDate:   now,
		TotalAmount:       decimal.RequireFromString("10.00"),
		Currency:          "USD",
		Status:            domain.TransactionDraft,
		SmartCode:         "HERA.TEST.TRIAL.TXN.SALE.v1",
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         &expires,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// NewTestLine returns a line without id or number; CreateTransaction
// assigns both.
func NewTestLine(description, qty, price string) *domain.TransactionLine {
	return &domain.TransactionLine{
		Description: description,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		Status:      domain.StatusActive,
	}
}
