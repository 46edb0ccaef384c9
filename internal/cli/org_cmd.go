package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Local store ready at %s\n", store.Path())
			return nil
		},
	}
}

func newOrgCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "org",
		Aliases: []string{"organization"},
		Short:   "Manage organizations",
	}
	cmd.AddCommand(
		newOrgCreateCmd(app),
		newOrgListCmd(app),
	)
	return cmd
}

func newOrgCreateCmd(app *App) *cobra.Command {
	var name, code, businessType string
	var production bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			org := &domain.Organization{
				Name:         name,
				Code:         code,
				BusinessType: businessType,
				Type:         domain.OrganizationTrial,
			}
			if production {
				org.Type = domain.OrganizationProduction
			}
			if err := data.CreateOrganization(ctx, org); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created organization %s [%s] %s\n",
				org.Name, org.Code, formatter.Dim(org.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Organization name")
	cmd.Flags().StringVar(&code, "code", "", "Organization code, e.g. MARIO-PIZZA")
	cmd.Flags().StringVar(&businessType, "business", "", "Business type, e.g. restaurant")
	cmd.Flags().BoolVar(&production, "production", false, "Create a production organization instead of a trial")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newOrgListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			orgs, err := data.ListOrganizations(ctx)
			if err != nil {
				return err
			}
			if len(orgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No organizations. Create one with: hera org create --name ... --code ..."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatOrganizations(orgs, app.clock()()))
			return nil
		},
	}
}
