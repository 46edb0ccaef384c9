package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// DaysColor picks the countdown style: red in the last three days, yellow in
// the last week.
func DaysColor(days int) lipgloss.Style {
	switch {
	case days <= 3:
		return StyleRed
	case days <= 7:
		return StyleYellow
	default:
		return StyleGreen
	}
}

// TrialIndicator returns a colored trial state such as "● ACTIVE".
func TrialIndicator(state domain.TrialState) string {
	switch state {
	case domain.TrialActive:
		return StyleGreen.Render("● ACTIVE")
	case domain.TrialExtended:
		return StyleBlue.Render("● EXTENDED")
	case domain.TrialConverted:
		return StylePurple.Render("✔ CONVERTED")
	case domain.TrialExpired:
		return StyleRed.Render("✖ EXPIRED")
	default:
		return StyleDim.Render("● " + strings.ToUpper(string(state)))
	}
}

// CheckIndicator renders a migration check result marker.
func CheckIndicator(status app.CheckStatus) string {
	switch status {
	case app.CheckPassed:
		return StyleGreen.Render("✔ passed")
	case app.CheckWarning:
		return StyleYellow.Render("▲ warning")
	case app.CheckFailed:
		return StyleRed.Render("✖ failed")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
