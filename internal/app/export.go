package app

import "github.com/heraerp/heraerp-prd-sub011/internal/domain"

// ExportedData is the complete content of the six universal stores. Its JSON
// form is what a production importer consumes.
type ExportedData struct {
	Organizations    []*domain.Organization    `json:"core_organizations"`
	Entities         []*domain.Entity          `json:"core_entities"`
	DynamicData      []*domain.DynamicField    `json:"core_dynamic_data"`
	Relationships    []*domain.Relationship    `json:"core_relationships"`
	Transactions     []*domain.Transaction     `json:"universal_transactions"`
	TransactionLines []*domain.TransactionLine `json:"universal_transaction_lines"`
}

// Count returns the number of records across all stores.
func (d *ExportedData) Count() int {
	return len(d.Organizations) + len(d.Entities) + len(d.DynamicData) +
		len(d.Relationships) + len(d.Transactions) + len(d.TransactionLines)
}
