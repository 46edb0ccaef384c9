package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
)

// heraHuhTheme returns a huh theme using the formatter palette.
func heraHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorRed).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// confirm asks a yes/no question, defaulting to no.
func (a *App) confirm(title, description string) (bool, error) {
	if a.Confirm != nil {
		return a.Confirm(title, description)
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Delete").
				Negative("Keep").
				Value(&ok),
		),
	).WithTheme(heraHuhTheme()).WithShowHelp(false).Run()
	return ok, err
}
