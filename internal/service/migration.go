package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/repository"
)

// ValidateForMigration runs the fixed battery of migration checks against the
// organization's local data. Data-quality problems are reported as results;
// the error is reserved for storage failures.
func (s *TrialService) ValidateForMigration(ctx context.Context, orgID string) (results []app.ValidationResult, err error) {
	startedAt := time.Now()
	fields := map[string]any{"organization_id": orgID}
	defer observe(ctx, s.observer, "validate-migration", startedAt, fields, &err)

	if _, err = s.data.GetOrganization(ctx, orgID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("reading organization: %w", err)
		}
		err = nil
		results = append(results, app.ValidationResult{
			Check:   app.CheckRequiredFields,
			Status:  app.CheckFailed,
			Message: "Organization record is missing",
		})
	} else {
		results = append(results, app.ValidationResult{
			Check:   app.CheckRequiredFields,
			Status:  app.CheckPassed,
			Message: "Organization record present",
		})
	}

	entities, err := s.data.ListOrganizationEntities(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}
	txns, err := s.data.GetTransactions(ctx, orgID, "", 0)
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	results = append(results, integrityCheck(entities, txns), smartCodeCheck(entities))

	stats, err := s.data.StorageStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading storage stats: %w", err)
	}
	if stats.UsageBytes > s.cfg.MaxMigrationBytes {
		results = append(results, app.ValidationResult{
			Check:   app.CheckDataSize,
			Status:  app.CheckWarning,
			Message: fmt.Sprintf("Local data is %d MB; migration may take a while", stats.UsageBytes/(1024*1024)),
		})
	} else {
		results = append(results, app.ValidationResult{
			Check:   app.CheckDataSize,
			Status:  app.CheckPassed,
			Message: "Data size within limits",
		})
	}

	if !app.HasFailure(results) {
		results = append(results, app.ValidationResult{
			Check:   app.CheckOverall,
			Status:  app.CheckPassed,
			Message: "Ready for migration",
		})
	}
	fields["failed"] = app.HasFailure(results)
	return results, nil
}

func integrityCheck(entities []*domain.Entity, txns []*domain.Transaction) app.ValidationResult {
	known := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		known[e.ID] = struct{}{}
	}
	orphans := 0
	for _, t := range txns {
		if t.ReferenceEntityID == nil {
			continue
		}
		if _, ok := known[*t.ReferenceEntityID]; !ok {
			orphans++
		}
	}
	if orphans > 0 {
		return app.ValidationResult{
			Check:   app.CheckDataIntegrity,
			Status:  app.CheckWarning,
			Message: fmt.Sprintf("%d transactions reference missing entities", orphans),
			Fixable: true,
			Count:   orphans,
		}
	}
	return app.ValidationResult{Check: app.CheckDataIntegrity, Status: app.CheckPassed, Message: "No orphaned transactions"}
}

func smartCodeCheck(entities []*domain.Entity) app.ValidationResult {
	bad := 0
	for _, e := range entities {
		if !domain.HasSmartCodePrefix(e.SmartCode) {
			bad++
		}
	}
	if bad > 0 {
		return app.ValidationResult{
			Check:   app.CheckBusinessRules,
			Status:  app.CheckWarning,
			Message: fmt.Sprintf("%d entities have missing or malformed smart codes", bad),
			Fixable: true,
			Count:   bad,
		}
	}
	return app.ValidationResult{Check: app.CheckBusinessRules, Status: app.CheckPassed, Message: "Smart codes valid"}
}

// PrepareMigrationData validates, exports and transforms the organization's
// local data into production shape. A failed check stops before the export.
func (s *TrialService) PrepareMigrationData(ctx context.Context, orgID string) (pkg *app.MigrationPackage, err error) {
	startedAt := time.Now()
	fields := map[string]any{"organization_id": orgID}
	defer observe(ctx, s.observer, "prepare-migration", startedAt, fields, &err)

	pkg = &app.MigrationPackage{OrganizationID: orgID, Status: app.MigrationValidating}
	pkg.AppendLog(s.clock(), "validation", "started", "Validating local data")

	pkg.Validation, err = s.ValidateForMigration(ctx, orgID)
	if err != nil {
		pkg.Status = app.MigrationFailed
		pkg.AppendLog(s.clock(), "validation", "error", err.Error())
		s.log.Error("migration validation failed", zap.String("organization_id", orgID), zap.Error(err))
		return pkg, err
	}
	if app.HasFailure(pkg.Validation) {
		pkg.Status = app.MigrationFailed
		pkg.AppendLog(s.clock(), "validation", "failed", "Blocking validation issues found")
		fields["status"] = string(pkg.Status)
		return pkg, nil
	}
	pkg.AppendLog(s.clock(), "validation", "completed", "All blocking checks passed")

	pkg.Status = app.MigrationExporting
	pkg.AppendLog(s.clock(), "export", "started", "Exporting local data")
	data, err := s.data.ExportAllData(ctx)
	if err != nil {
		pkg.Status = app.MigrationFailed
		pkg.AppendLog(s.clock(), "export", "error", err.Error())
		s.log.Error("migration export failed", zap.String("organization_id", orgID), zap.Error(err))
		return pkg, err
	}
	pkg.AppendLog(s.clock(), "export", "completed", fmt.Sprintf("Exported %d records", data.Count()))

	pkg.Data = toProduction(data, orgID)
	pkg.RecordCount = pkg.Data.Count()
	pkg.AppendLog(s.clock(), "transform", "completed",
		fmt.Sprintf("Prepared %d records for production", pkg.RecordCount))

	pkg.Status = app.MigrationReady
	pkg.PreparedAt = s.clock()
	fields["status"] = string(pkg.Status)
	fields["records"] = pkg.RecordCount
	return pkg, nil
}

// toProduction keeps the organization's records, drops local expiry and
// rewrites trial markers. The input is not modified.
func toProduction(in *app.ExportedData, orgID string) *app.ExportedData {
	out := &app.ExportedData{
		Organizations:    []*domain.Organization{},
		Entities:         []*domain.Entity{},
		DynamicData:      []*domain.DynamicField{},
		Relationships:    []*domain.Relationship{},
		Transactions:     []*domain.Transaction{},
		TransactionLines: []*domain.TransactionLine{},
	}
	for _, o := range in.Organizations {
		if o.ID != orgID {
			continue
		}
		c := *o
		c.ExpiresAt = nil
		if c.Type == domain.OrganizationTrial {
			c.Type = domain.OrganizationProduction
		}
		out.Organizations = append(out.Organizations, &c)
	}
	for _, e := range in.Entities {
		if e.OrganizationID != orgID {
			continue
		}
		c := *e
		c.ExpiresAt = nil
		c.SmartCode = domain.ProductionSmartCode(c.SmartCode)
		out.Entities = append(out.Entities, &c)
	}
	for _, f := range in.DynamicData {
		if f.OrganizationID != orgID {
			continue
		}
		c := *f
		c.SmartCode = domain.ProductionSmartCode(c.SmartCode)
		out.DynamicData = append(out.DynamicData, &c)
	}
	for _, r := range in.Relationships {
		if r.OrganizationID != orgID {
			continue
		}
		c := *r
		c.SmartCode = domain.ProductionSmartCode(c.SmartCode)
		out.Relationships = append(out.Relationships, &c)
	}
	for _, t := range in.Transactions {
		if t.OrganizationID != orgID {
			continue
		}
		c := *t
		c.ExpiresAt = nil
		c.SmartCode = domain.ProductionSmartCode(c.SmartCode)
		out.Transactions = append(out.Transactions, &c)
	}
	for _, l := range in.TransactionLines {
		if l.OrganizationID != orgID {
			continue
		}
		c := *l
		c.SmartCode = domain.ProductionSmartCode(c.SmartCode)
		out.TransactionLines = append(out.TransactionLines, &c)
	}
	return out
}

// WriteMigrationPackage writes pkg as indented JSON. The file is written
// beside the target and renamed into place so readers never see a partial
// package.
func WriteMigrationPackage(path string, pkg *app.MigrationPackage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating package directory: %w", err)
	}
	raw, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding migration package: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing migration package: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing migration package: %w", err)
	}
	return nil
}
