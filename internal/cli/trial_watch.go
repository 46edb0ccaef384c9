package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/app"
	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/service"
)

// trialStatusMsg carries a freshly loaded trial status.
type trialStatusMsg struct {
	status *app.TrialStatus
	err    error
}

// trialTickMsg triggers the next refresh.
type trialTickMsg struct{}

type trialWatchKeys struct {
	Quit    key.Binding
	Refresh key.Binding
}

var watchKeys = trialWatchKeys{
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
}

// trialWatchModel re-reads the trial status on an interval and renders the
// countdown box.
type trialWatchModel struct {
	fetch    func() (*app.TrialStatus, error)
	interval time.Duration
	spinner  spinner.Model
	loading  bool
	status   *app.TrialStatus
	err      error
	updated  time.Time
	now      func() time.Time
}

func newTrialWatchModel(fetch func() (*app.TrialStatus, error), interval time.Duration, now func() time.Time) trialWatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = formatter.StyleHeader
	return trialWatchModel{
		fetch:    fetch,
		interval: interval,
		spinner:  sp,
		loading:  true,
		now:      now,
	}
}

func (m trialWatchModel) load() tea.Cmd {
	return func() tea.Msg {
		st, err := m.fetch()
		return trialStatusMsg{status: st, err: err}
	}
}

func (m trialWatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return trialTickMsg{} })
}

func (m trialWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m trialWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, watchKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, watchKeys.Refresh):
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, m.load()
		}
	case trialStatusMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.updated = m.now()
		}
		return m, m.tick()
	case trialTickMsg:
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.load()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m trialWatchModel) View() string {
	var b strings.Builder
	switch {
	case m.status != nil:
		b.WriteString(formatter.FormatTrialStatus(m.status))
		b.WriteString("\n")
	case m.err == nil:
		b.WriteString(m.spinner.View() + " Loading trial status...\n")
	}
	if m.err != nil {
		b.WriteString(formatter.StyleRed.Render("Error: "+m.err.Error()) + "\n")
	}

	status := formatter.Dim("updated " + m.updated.Format("15:04:05"))
	if m.loading {
		status = m.spinner.View() + formatter.Dim(" refreshing")
	}
	fmt.Fprintf(&b, "%s  %s\n", status,
		formatter.Dim(fmt.Sprintf("%s %s · %s %s",
			watchKeys.Refresh.Help().Key, watchKeys.Refresh.Help().Desc,
			watchKeys.Quit.Help().Key, watchKeys.Quit.Help().Desc)))
	return b.String()
}

func trialStatusFetcher(ctx context.Context, trial *service.TrialService, orgID string) func() (*app.TrialStatus, error) {
	return func() (*app.TrialStatus, error) {
		return trial.GetTrialStatus(ctx, orgID)
	}
}

func newTrialWatchCmd(app *App) *cobra.Command {
	var org string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live countdown of a trial",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			trial, err := app.Trial(ctx)
			if err != nil {
				return err
			}
			model := newTrialWatchModel(trialStatusFetcher(ctx, trial, orgID), interval, app.clock())
			_, err = tea.NewProgram(model,
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Refresh interval")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
