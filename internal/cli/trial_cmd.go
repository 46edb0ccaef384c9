package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/service"
)

func newTrialCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Manage the progressive trial of an organization",
	}
	cmd.AddCommand(
		newTrialStartCmd(app),
		newTrialStatusCmd(app),
		newTrialTrackCmd(app),
		newTrialMetricsCmd(app),
		newTrialOffersCmd(app),
		newTrialValidateCmd(app),
		newTrialPrepareCmd(app),
		newTrialConvertCmd(app),
		newTrialExtendCmd(app),
		newTrialListCmd(app),
		newTrialDiscardCmd(app),
		newTrialWatchCmd(app),
	)
	return cmd
}

func newTrialStartCmd(app *App) *cobra.Command {
	var org, business string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start (or restart) the trial window",
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
			if business == "" {
				data, err := app.Data(ctx)
				if err != nil {
					return err
				}
				if o, err := data.GetOrganization(ctx, orgID); err == nil {
					business = o.BusinessType
				}
			}
			st, err := trial.InitializeTrial(ctx, orgID, business)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trial started: %s, expires %s\n",
				formatter.Countdown(st), st.ExpiresAt.Format("Jan 2, 2006"))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&business, "business", "", "Business type (defaults to the organization's)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialStatusCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the trial countdown, usage and upgrade eligibility",
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
			st, err := trial.GetTrialStatus(ctx, orgID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTrialStatus(st))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialTrackCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "track <feature>",
		Short: "Count one use of a feature",
		Args:  cobra.ExactArgs(1),
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
			out := trial.TrackFeatureUsage(ctx, orgID, args[0])
			if out.Err != nil {
				return out.Err
			}
			if !out.Recorded {
				fmt.Fprintf(cmd.OutOrStdout(), "Not recorded: %s\n", out.Reason)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialMetricsCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show engagement scores and conversion blockers",
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
			m, err := trial.GetConversionMetrics(ctx, orgID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatConversionMetrics(m))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialOffersCmd(app *App) *cobra.Command {
	var org string
	var days, usage int

	cmd := &cobra.Command{
		Use:   "offers",
		Short: "Show the upgrade offers for a trial",
		Long: `Show the upgrade offers for a trial. With --org the offers follow the
trial's countdown and usage; otherwise --days and --usage are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if org != "" {
				orgID, err := resolveOrgID(ctx, app, org)
				if err != nil {
					return err
				}
				trial, err := app.Trial(ctx)
				if err != nil {
					return err
				}
				st, err := trial.GetTrialStatus(ctx, orgID)
				if err != nil {
					return err
				}
				days, usage = st.DaysRemaining, st.TotalFeatureUsage
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatOffers(service.GenerateConversionOffers(days, usage)))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().IntVar(&days, "days", 30, "Days remaining in the trial")
	cmd.Flags().IntVar(&usage, "usage", 0, "Total feature usage events")
	return cmd
}

func newTrialValidateCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check whether local data is ready to migrate",
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
			results, err := trial.ValidateForMigration(ctx, orgID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatValidation(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialPrepareCmd(app *App) *cobra.Command {
	var org, out string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build the production migration package",
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
			pkg, err := trial.PrepareMigrationData(ctx, orgID)
			if pkg != nil {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMigrationPackage(pkg))
			}
			if err != nil {
				return err
			}
			if pkg.Data == nil {
				return fmt.Errorf("migration package not prepared: validation failed")
			}
			if out != "" {
				if err := service.WriteMigrationPackage(out, pkg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the package as JSON to this file")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialConvertCmd(app *App) *cobra.Command {
	var org string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Mark the trial as converted to a paid plan",
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
			st, err := trial.ConvertTrial(ctx, orgID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trial %s\n", formatter.TrialIndicator(st.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialExtendCmd(app *App) *cobra.Command {
	var org string
	var days int

	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Extend the trial window",
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
			st, err := trial.ExtendTrial(ctx, orgID, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trial extended: %s, expires %s\n",
				formatter.Countdown(st), st.ExpiresAt.Format("Jan 2, 2006"))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().IntVar(&days, "days", 7, "Days to add")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newTrialListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every trial in the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			trial, err := app.Trial(ctx)
			if err != nil {
				return err
			}
			trials, err := trial.ListTrials(ctx)
			if err != nil {
				return err
			}
			if len(trials) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No trials. Start one with `hera trial start --org <code>`."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTrialList(trials))
			return nil
		},
	}
}

func newTrialDiscardCmd(app *App) *cobra.Command {
	var org string
	var yes bool

	cmd := &cobra.Command{
		Use:   "discard",
		Short: "Forget the trial of an organization, keeping its records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			if !yes {
				if !app.IsInteractive() {
					return errors.New("refusing to discard without confirmation; pass --yes")
				}
				ok, err := app.confirm("Discard trial?",
					"Usage history and the countdown are removed. Records expire on their own schedule.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Cancelled."))
					return nil
				}
			}
			trial, err := app.Trial(ctx)
			if err != nil {
				return err
			}
			if err := trial.DiscardTrial(ctx, orgID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded trial of %s\n", formatter.ShortID(orgID))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
