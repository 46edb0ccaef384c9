package domain

type OrganizationType string

const (
	OrganizationTrial      OrganizationType = "trial"
	OrganizationProduction OrganizationType = "production"
)

type OrganizationStatus string

const (
	OrganizationActive    OrganizationStatus = "active"
	OrganizationSuspended OrganizationStatus = "suspended"
	OrganizationArchived  OrganizationStatus = "archived"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type TransactionStatus string

const (
	TransactionDraft     TransactionStatus = "draft"
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionCancelled TransactionStatus = "cancelled"
)

type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldJSON    FieldType = "json"
	FieldFile    FieldType = "file"
)

// ValidFieldTypes is the canonical set of accepted dynamic field types.
var ValidFieldTypes = map[FieldType]bool{
	FieldText: true, FieldNumber: true, FieldBoolean: true,
	FieldDate: true, FieldJSON: true, FieldFile: true,
}

type SyncOperation string

const (
	SyncCreate SyncOperation = "create"
	SyncUpdate SyncOperation = "update"
	SyncDelete SyncOperation = "delete"
)

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// TrialState is the lifecycle state of a progressive trial.
type TrialState string

const (
	TrialActive    TrialState = "active"
	TrialExpired   TrialState = "expired"
	TrialConverted TrialState = "converted"
	TrialExtended  TrialState = "extended"
)
