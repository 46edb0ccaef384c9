package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
)

// Countdown renders "12 days left" style text colored by urgency.
func Countdown(st *app.TrialStatus) string {
	if !st.IsActive {
		return StyleRed.Render("trial ended")
	}
	if st.DaysRemaining <= 1 {
		return StyleRed.Render(fmt.Sprintf("%d hours left", st.HoursRemaining))
	}
	return DaysColor(st.DaysRemaining).Render(fmt.Sprintf("%d days left", st.DaysRemaining))
}

// FormatTrialStatus renders the status box shown by `trial status`.
func FormatTrialStatus(st *app.TrialStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", TrialIndicator(st.Status), Countdown(st))
	total := st.ExpiresAt.Sub(st.StartedAt)
	if total > 0 && st.IsActive {
		remaining := float64(st.HoursRemaining) / total.Hours()
		fmt.Fprintf(&b, "%s\n", RenderProgress(remaining, 30))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", Dim("Business:    "), st.BusinessType)
	fmt.Fprintf(&b, "%s %s\n", Dim("Started:     "), st.StartedAt.Format("Jan 2, 2006 15:04"))
	fmt.Fprintf(&b, "%s %s\n", Dim("Expires:     "), st.ExpiresAt.Format("Jan 2, 2006 15:04"))
	fmt.Fprintf(&b, "%s %d entities, %d transactions\n", Dim("Data:        "), st.EntityCount, st.TransactionCount)
	fmt.Fprintf(&b, "%s %d events\n", Dim("Usage:       "), st.TotalFeatureUsage)
	if st.StorageQuotaBytes > 0 {
		fmt.Fprintf(&b, "%s %s of %s\n", Dim("Storage:     "), Bytes(st.StorageUsedBytes), Bytes(st.StorageQuotaBytes))
	} else {
		fmt.Fprintf(&b, "%s %s\n", Dim("Storage:     "), Bytes(st.StorageUsedBytes))
	}
	eligible := StyleDim.Render("not yet")
	if st.ConversionEligible {
		eligible = StyleGreen.Render("yes")
	}
	fmt.Fprintf(&b, "%s %s", Dim("Upgrade ready:"), eligible)
	return RenderBox("Trial "+ShortID(st.OrganizationID), b.String())
}

// FormatTrialList renders one row per trial.
func FormatTrialList(trials []*app.TrialStatus) string {
	rows := make([][]string, 0, len(trials))
	for _, st := range trials {
		rows = append(rows, []string{
			ShortID(st.OrganizationID),
			st.BusinessType,
			TrialIndicator(st.Status),
			Countdown(st),
			strconv.Itoa(st.TotalFeatureUsage),
		})
	}
	return RenderTable([]string{"ORG", "BUSINESS", "STATUS", "REMAINING", "EVENTS"}, rows)
}

// FormatOffers renders each offer as a line with price and call to action.
func FormatOffers(offers []app.ConversionOffer) string {
	var b strings.Builder
	for i, o := range offers {
		title := Bold(o.Title)
		if o.Urgent {
			title = StyleRed.Bold(true).Render(o.Title)
		}
		price := o.OfferPrice.StringFixed(2) + "/mo"
		if o.DiscountPercent > 0 {
			price = fmt.Sprintf("%s %s", StyleGreen.Render(price), Dim("was "+o.MonthlyPrice.StringFixed(2)))
		}
		fmt.Fprintf(&b, "%d. %s  %s\n   %s\n   %s\n", i+1, title, price, o.Description, StyleBlue.Render("→ "+o.CTA))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatConversionMetrics renders scores, usage and blockers.
func FormatConversionMetrics(m *app.ConversionMetrics) string {
	var b strings.Builder
	b.WriteString(Header("Engagement") + "\n")
	fmt.Fprintf(&b, "Engagement   %s\n", RenderProgress(float64(m.EngagementScore)/100, 20))
	fmt.Fprintf(&b, "Consistency  %s\n", RenderProgress(float64(m.ConsistencyScore)/100, 20))
	fmt.Fprintf(&b, "Conversion   %s\n", RenderProgress(float64(m.ConversionProbability)/100, 20))
	fmt.Fprintf(&b, "%s %s  %s %d of %d days\n\n",
		Dim("Recommended:"), Bold(string(m.RecommendedPlan)), Dim("active"), m.ActiveDays, m.DaysElapsed)

	if len(m.FeatureUsage) > 0 {
		features := make([]string, 0, len(m.FeatureUsage))
		for f := range m.FeatureUsage {
			features = append(features, f)
		}
		sort.Strings(features)
		rows := make([][]string, 0, len(features))
		for _, f := range features {
			rows = append(rows, []string{f, strconv.Itoa(m.FeatureUsage[f])})
		}
		b.WriteString(RenderTable([]string{"FEATURE", "USES"}, rows))
		b.WriteString("\n")
	}

	if len(m.Blockers) == 0 {
		b.WriteString(StyleGreen.Render("No blockers"))
		return b.String()
	}
	b.WriteString(Header("Blockers") + "\n")
	for _, bl := range m.Blockers {
		fmt.Fprintf(&b, "%s %s %s\n", StyleYellow.Render("▲"), bl.Message, Dim("("+bl.Code+")"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatValidation renders one line per migration check.
func FormatValidation(results []app.ValidationResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		fix := ""
		if r.Fixable {
			fix = Dim("fixable")
		}
		rows = append(rows, []string{r.Check, CheckIndicator(r.Status), r.Message, fix})
	}
	return RenderTable([]string{"CHECK", "STATUS", "DETAIL", ""}, rows)
}

// FormatMigrationPackage summarises a prepared package and its log.
func FormatMigrationPackage(pkg *app.MigrationPackage) string {
	var b strings.Builder
	status := StyleGreen.Render(string(pkg.Status))
	if pkg.Status == app.MigrationFailed {
		status = StyleRed.Render(string(pkg.Status))
	}
	fmt.Fprintf(&b, "%s %s  %s %d\n\n", Dim("Status:"), status, Dim("records:"), pkg.RecordCount)
	b.WriteString(FormatValidation(pkg.Validation))
	b.WriteString("\n")
	for _, e := range pkg.Log {
		fmt.Fprintf(&b, "%s %-10s %-9s %s\n", Dim(e.Timestamp.Format("15:04:05")), e.Stage, e.Status, e.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}
