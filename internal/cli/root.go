package cli

import (
	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/config"
)

// NewRootCmd creates the top-level "hera" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "hera",
		Short:         "Progressive local data store and trial manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(func() (*config.Config, error) {
				return config.Load(cmd.Flags())
			})
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.String("db-path", "", "Local database file (\":memory:\" for a throwaway store)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "auto", "Log format: auto, json, console")
	pf.String("log-output", "stderr", "Log destination: stderr, stdout or a file path")

	root.AddCommand(
		newInitCmd(app),
		newOrgCmd(app),
		newEntityCmd(app),
		newFieldCmd(app),
		newRelCmd(app),
		newTxnCmd(app),
		newStatsCmd(app),
		newExportCmd(app),
		newSweepCmd(app),
		newSyncCmd(app),
		newDBCmd(app),
		newTrialCmd(app),
		newDaemonCmd(app),
	)

	return root
}
