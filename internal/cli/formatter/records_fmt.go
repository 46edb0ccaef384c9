package formatter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

func FormatOrganizations(orgs []*domain.Organization, now time.Time) string {
	rows := make([][]string, 0, len(orgs))
	for _, o := range orgs {
		rows = append(rows, []string{ShortID(o.ID), o.Code, o.Name, string(o.Type), o.BusinessType, Expiry(o.ExpiresAt, now)})
	}
	return RenderTable([]string{"ID", "CODE", "NAME", "TYPE", "BUSINESS", "EXPIRES"}, rows)
}

func FormatEntities(entities []*domain.Entity, now time.Time) string {
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		code := e.SmartCode
		if !domain.HasSmartCodePrefix(code) {
			code = StyleYellow.Render(orDash(code))
		}
		rows = append(rows, []string{ShortID(e.ID), e.EntityType, e.Name, code, Expiry(e.ExpiresAt, now)})
	}
	return RenderTable([]string{"ID", "TYPE", "NAME", "SMART CODE", "EXPIRES"}, rows)
}

// FormatFields lists field versions, newest version of each field first.
func FormatFields(fields []*domain.DynamicField) string {
	sorted := append([]*domain.DynamicField(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FieldName != sorted[j].FieldName {
			return sorted[i].FieldName < sorted[j].FieldName
		}
		return sorted[i].Version > sorted[j].Version
	})
	rows := make([][]string, 0, len(sorted))
	for _, f := range sorted {
		rows = append(rows, []string{f.FieldName, "v" + strconv.Itoa(f.Version), string(f.FieldType), fieldValue(f)})
	}
	return RenderTable([]string{"FIELD", "VERSION", "TYPE", "VALUE"}, rows)
}

func fieldValue(f *domain.DynamicField) string {
	switch v := f.Value().(type) {
	case nil:
		return Dim("-")
	case time.Time:
		return v.Format("2006-01-02")
	case json.RawMessage:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func FormatRelationships(rels []*domain.Relationship) string {
	rows := make([][]string, 0, len(rels))
	for _, r := range rels {
		rows = append(rows, []string{ShortID(r.ID), ShortID(r.FromEntityID), r.RelationshipType, ShortID(r.ToEntityID), r.Status})
	}
	return RenderTable([]string{"ID", "FROM", "TYPE", "TO", "STATUS"}, rows)
}

func FormatTransactions(txns []*domain.Transaction) string {
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.TransactionNumber,
			t.TransactionDate.Format("2006-01-02"),
			t.TransactionType,
			Money(t.TotalAmount, t.Currency),
			string(t.Status),
		})
	}
	return RenderTable([]string{"NUMBER", "DATE", "TYPE", "TOTAL", "STATUS"}, rows)
}

func FormatLines(lines []*domain.TransactionLine) string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			strconv.Itoa(l.LineNumber),
			l.Description,
			l.Quantity.String(),
			l.UnitPrice.StringFixed(2),
			l.LineAmount.StringFixed(2),
		})
	}
	return RenderTable([]string{"#", "DESCRIPTION", "QTY", "PRICE", "AMOUNT"}, rows)
}

func FormatSyncItems(items []*domain.SyncItem) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.CreatedAt.Format(time.DateTime), it.StoreName, string(it.Operation), ShortID(it.RecordID)})
	}
	return RenderTable([]string{"QUEUED", "STORE", "OP", "RECORD"}, rows)
}

// FormatSyncCounts lists queued writes per sync state.
func FormatSyncCounts(counts map[domain.SyncStatus]int) string {
	rows := [][]string{
		{StyleYellow.Render(string(domain.SyncPending)), strconv.Itoa(counts[domain.SyncPending])},
		{StyleGreen.Render(string(domain.SyncDone)), strconv.Itoa(counts[domain.SyncDone])},
		{StyleRed.Render(string(domain.SyncFailed)), strconv.Itoa(counts[domain.SyncFailed])},
	}
	return RenderTable([]string{"STATE", "WRITES"}, rows)
}

// FormatStorageStats shows usage against quota followed by per-store counts.
func FormatStorageStats(stats db.StorageStats) string {
	var b strings.Builder
	b.WriteString(Header("Local storage") + "\n")
	if stats.QuotaBytes > 0 {
		free := 1 - float64(stats.UsageBytes)/float64(stats.QuotaBytes)
		fmt.Fprintf(&b, "%s of %s  %s\n\n", Bytes(stats.UsageBytes), Bytes(stats.QuotaBytes), RenderProgress(free, 20))
	} else {
		fmt.Fprintf(&b, "%s %s\n\n", Bytes(stats.UsageBytes), Dim("(in memory)"))
	}
	rows := make([][]string, 0, len(db.AllStores))
	for _, store := range db.AllStores {
		rows = append(rows, []string{store, strconv.FormatInt(stats.RecordCounts[store], 10)})
	}
	rows = append(rows, []string{Bold("total"), Bold(strconv.FormatInt(stats.TotalRecords(), 10))})
	b.WriteString(RenderTable([]string{"STORE", "RECORDS"}, rows))
	return b.String()
}

// FormatSweepReport lists per-store results of one sweep.
func FormatSweepReport(r db.SweepReport) string {
	rows := make([][]string, 0, len(r.Stores))
	for _, s := range r.Stores {
		result := StyleGreen.Render("ok")
		if s.Err != nil {
			result = StyleRed.Render(s.Err.Error())
		}
		rows = append(rows, []string{s.Store, strconv.FormatInt(s.Deleted, 10), result})
	}
	out := RenderTable([]string{"STORE", "DELETED", "RESULT"}, rows)
	return out + Dim(fmt.Sprintf("%d expired records removed in %s", r.Deleted(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
