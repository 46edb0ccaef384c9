package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/db"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show local storage usage and record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			stats, err := data.StorageStats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStorageStats(stats))
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all local records as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			exported, err := data.ExportAllData(ctx)
			if err != nil {
				return err
			}
			body, err := json.MarshalIndent(exported, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding export: %w", err)
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return err
			}
			if err := os.WriteFile(out, append(body, '\n'), 0o600); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", exported.Count(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired records now",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			report, err := store.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSweepReport(report))
			return report.Err()
		},
	}
}

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect the cloud sync queue",
	}
	cmd.AddCommand(
		newSyncPendingCmd(app),
		newSyncStatusCmd(app),
		newSyncAckCmd(app),
	)
	return cmd
}

func newSyncStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count queued writes by sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			counts, err := data.SyncCounts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSyncCounts(counts))
			return nil
		},
	}
}

func newSyncAckCmd(app *App) *cobra.Command {
	var failed bool

	cmd := &cobra.Command{
		Use:   "ack <item-id>...",
		Short: "Mark queued writes as uploaded, or as failed with --failed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := data.AcknowledgeSync(ctx, id, !failed); err != nil {
					return err
				}
			}
			state := "synced"
			if failed {
				state = "failed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d items %s\n", len(args), state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failed, "failed", false, "Record the upload as failed")
	return cmd
}

func newSyncPendingCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List writes waiting to be synced, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			items, err := data.PendingSync(ctx, limit)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.StyleGreen.Render("Sync queue is empty."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSyncItems(items))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows (0 for all)")
	return cmd
}

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local database file",
	}
	cmd.AddCommand(newDBDeleteCmd(app))
	return cmd
}

func newDBDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the local database and every record in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.Config.DB.Path
			if !yes {
				if !app.IsInteractive() {
					return errors.New("refusing to delete without confirmation; pass --yes")
				}
				ok, err := app.confirm(
					"Delete local database?",
					fmt.Sprintf("%s and all trial data in it will be removed.", path))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Cancelled."))
					return nil
				}
			}
			if err := db.DeleteDatabase(path); err != nil {
				if errors.Is(err, db.ErrDeleteBlocked) {
					return fmt.Errorf("%w: stop `hera daemon` and other hera processes first", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
