package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// RelativeDateFrom returns a human-friendly relative date string from a reference time.
func RelativeDateFrom(t time.Time, now time.Time) string {
	days := int(math.Round(t.Sub(now).Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0:
		return fmt.Sprintf("In %dw", days/7)
	case days > -14:
		return fmt.Sprintf("%dd ago", -days)
	default:
		return fmt.Sprintf("%dw ago", -days/7)
	}
}

// Expiry renders an optional expiry relative to now, or "never".
func Expiry(t *time.Time, now time.Time) string {
	if t == nil {
		return Dim("never")
	}
	return RelativeDateFrom(*t, now)
}

// Bytes renders a byte count with a binary unit.
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Money renders an amount with two decimals and its currency.
func Money(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

// ShortID keeps the first eight characters of an identifier.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// Deref returns the pointed-to string or a dim dash.
func Deref(s *string) string {
	if s == nil || *s == "" {
		return Dim("-")
	}
	return *s
}
