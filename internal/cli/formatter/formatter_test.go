package formatter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
	"github.com/heraerp/heraerp-prd-sub011/internal/service"
)

func TestRelativeDateFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"today", now, "Today"},
		{"tomorrow", now.Add(24 * time.Hour), "Tomorrow"},
		{"yesterday", now.Add(-24 * time.Hour), "Yesterday"},
		{"3 days future", now.Add(3 * 24 * time.Hour), "In 3d"},
		{"3 days past", now.Add(-3 * 24 * time.Hour), "3d ago"},
		{"30 days future", now.Add(30 * 24 * time.Hour), "In 4w"},
		{"2 weeks past", now.Add(-14 * 24 * time.Hour), "2w ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDateFrom(tt.input, now))
		})
	}
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "512 B", Bytes(512))
	assert.Equal(t, "4.0 KiB", Bytes(4096))
	assert.Equal(t, "100.0 MiB", Bytes(100*1024*1024))
}

func TestRenderProgress_Clamps(t *testing.T) {
	assert.Contains(t, RenderProgress(1.5, 10), "100%")
	assert.Contains(t, RenderProgress(-1, 10), "0%")
	assert.Equal(t, 4, strings.Count(RenderProgress(0.5, 8), filledBlock))
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"long value", "x"}, {"s", "y"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, lipgloss.Width(lines[2]), lipgloss.Width(lines[3]))
	assert.Equal(t, strings.Index(lines[2], "x"), strings.Index(lines[3], "y"))
}

func TestFormatOffers_UrgencyFirst(t *testing.T) {
	out := FormatOffers(service.GenerateConversionOffers(2, 150))
	urgent := strings.Index(out, "Last chance")
	standard := strings.Index(out, "Upgrade to Professional")
	assert.True(t, urgent >= 0 && urgent < standard)
	assert.Contains(t, out, "49.50/mo")
	assert.Contains(t, out, "Enterprise")
}

func TestFormatValidation(t *testing.T) {
	out := FormatValidation([]app.ValidationResult{
		{Check: app.CheckRequiredFields, Status: app.CheckFailed, Message: "Organization record is missing"},
		{Check: app.CheckBusinessRules, Status: app.CheckWarning, Message: "1 entities have missing or malformed smart codes", Fixable: true},
	})
	assert.Contains(t, out, "required_fields")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "fixable")
}

func TestFormatSweepReport(t *testing.T) {
	started := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out := FormatSweepReport(db.SweepReport{
		StartedAt:  started,
		FinishedAt: started.Add(15 * time.Millisecond),
		Stores: []db.StoreSweep{
			{Store: db.StoreOrganizations, Deleted: 2},
			{Store: db.StoreEntities, Err: errors.New("no such table")},
		},
	})
	assert.Contains(t, out, "no such table")
	assert.Contains(t, out, "2 expired records removed")
}

func TestCountdown(t *testing.T) {
	assert.Contains(t, Countdown(&app.TrialStatus{IsActive: true, DaysRemaining: 12}), "12 days left")
	assert.Contains(t, Countdown(&app.TrialStatus{IsActive: true, DaysRemaining: 1, HoursRemaining: 5}), "5 hours left")
	assert.Contains(t, Countdown(&app.TrialStatus{}), "trial ended")
}

func TestFormatSyncCounts_ShowsEveryState(t *testing.T) {
	out := FormatSyncCounts(map[domain.SyncStatus]int{domain.SyncPending: 4})
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "4")
	assert.Contains(t, out, "synced")
	assert.Contains(t, out, "failed")
}

func TestFormatTrialList(t *testing.T) {
	out := FormatTrialList([]*app.TrialStatus{
		{OrganizationID: "0f3a9c1e-aaaa", BusinessType: "salon", Status: domain.TrialActive, IsActive: true, DaysRemaining: 9, TotalFeatureUsage: 17},
		{OrganizationID: "7b21d004-bbbb", BusinessType: "retail", Status: domain.TrialConverted},
	})
	assert.Contains(t, out, "salon")
	assert.Contains(t, out, "9 days left")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "CONVERTED")
	assert.Contains(t, out, "trial ended")
}
