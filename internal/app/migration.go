package app

import "time"

type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
)

// Migration check names.
const (
	CheckRequiredFields = "required_fields"
	CheckDataIntegrity  = "data_integrity"
	CheckBusinessRules  = "business_rules"
	CheckDataSize       = "data_size"
	CheckOverall        = "overall"
)

type ValidationResult struct {
	Check   string      `json:"check"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Fixable bool        `json:"fixable"`
	Count   int         `json:"count,omitempty"`
}

// HasFailure reports whether any result failed.
func HasFailure(results []ValidationResult) bool {
	for _, r := range results {
		if r.Status == CheckFailed {
			return true
		}
	}
	return false
}

type MigrationStatus string

const (
	MigrationValidating MigrationStatus = "validating"
	MigrationExporting  MigrationStatus = "exporting"
	MigrationFailed     MigrationStatus = "failed"
	MigrationReady      MigrationStatus = "ready"
)

type MigrationLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

type MigrationPackage struct {
	OrganizationID string              `json:"organization_id"`
	Status         MigrationStatus     `json:"status"`
	Validation     []ValidationResult  `json:"validation"`
	Data           *ExportedData       `json:"data,omitempty"`
	RecordCount    int                 `json:"record_count"`
	Log            []MigrationLogEntry `json:"log"`
	PreparedAt     time.Time           `json:"prepared_at"`
}

// AppendLog adds an entry; the log is never rewritten.
func (p *MigrationPackage) AppendLog(at time.Time, stage, status, message string) {
	p.Log = append(p.Log, MigrationLogEntry{Timestamp: at, Stage: stage, Status: status, Message: message})
}
