package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heraerp/heraerp-prd-sub011/internal/cli/formatter"
	"github.com/heraerp/heraerp-prd-sub011/internal/domain"
)

func newEntityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage entities",
	}
	cmd.AddCommand(
		newEntityCreateCmd(app),
		newEntityListCmd(app),
	)
	return cmd
}

func newEntityCreateCmd(app *App) *cobra.Command {
	var org, entityType, name, code, smartCode, parent string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			if smartCode != "" && !domain.ValidSmartCode(smartCode) {
				fmt.Fprintln(cmd.ErrOrStderr(), formatter.StyleYellow.Render(
					fmt.Sprintf("warning: %q is not a HERA smart code; migration validation will flag it", smartCode)))
			}
			e := &domain.Entity{
				OrganizationID: orgID,
				EntityType:     entityType,
				Name:           name,
				Code:           code,
				SmartCode:      smartCode,
			}
			if parent != "" {
				parentID, err := resolveEntityID(ctx, app, orgID, parent)
				if err != nil {
					return err
				}
				e.ParentEntityID = &parentID
			}
			if err := data.CreateEntity(ctx, e); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q %s\n", e.EntityType, e.Name, formatter.Dim(e.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&entityType, "type", "", "Entity type, e.g. product or customer")
	cmd.Flags().StringVar(&name, "name", "", "Entity name")
	cmd.Flags().StringVar(&code, "code", "", "Entity code")
	cmd.Flags().StringVar(&smartCode, "smart-code", "", "Smart code, e.g. HERA.REST.MENU.ITEM.v1")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent entity ID")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newEntityListCmd(app *App) *cobra.Command {
	var org, entityType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities of an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orgID, err := resolveOrgID(ctx, app, org)
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			var entities []*domain.Entity
			if entityType != "" {
				entities, err = data.GetEntities(ctx, entityType, orgID)
			} else {
				entities, err = data.ListOrganizationEntities(ctx, orgID)
			}
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No entities."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEntities(entities, app.clock()()))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&entityType, "type", "", "Only list this entity type")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newFieldCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage dynamic fields of an entity",
	}
	cmd.AddCommand(
		newFieldSetCmd(app),
		newFieldListCmd(app),
	)
	return cmd
}

func newFieldSetCmd(app *App) *cobra.Command {
	var org, fieldType, smartCode string

	cmd := &cobra.Command{
		Use:   "set <entity-id> <field> <value>",
		Short: "Write a new version of a dynamic field",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var orgID string
			if org != "" {
				id, err := resolveOrgID(ctx, app, org)
				if err != nil {
					return err
				}
				orgID = id
			}
			entityID, err := resolveEntityID(ctx, app, orgID, args[0])
			if err != nil {
				return err
			}
			ft := domain.FieldType(fieldType)
			if !domain.ValidFieldTypes[ft] {
				return fmt.Errorf("invalid field type %q", fieldType)
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			f, err := data.SetDynamicField(ctx, entityID, args[1], args[2], ft, smartCode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s (v%d)\n", f.FieldName, args[2], f.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID, for matching entity ID prefixes")
	cmd.Flags().StringVar(&fieldType, "type", string(domain.FieldText), "Field type: text, number, boolean, date, json, file")
	cmd.Flags().StringVar(&smartCode, "smart-code", "", "Smart code of the field")
	return cmd
}

func newFieldListCmd(app *App) *cobra.Command {
	var org, name string
	var latest bool

	cmd := &cobra.Command{
		Use:   "list <entity-id>",
		Short: "List dynamic field versions of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var orgID string
			if org != "" {
				id, err := resolveOrgID(ctx, app, org)
				if err != nil {
					return err
				}
				orgID = id
			}
			entityID, err := resolveEntityID(ctx, app, orgID, args[0])
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			var fields []*domain.DynamicField
			switch {
			case name != "" && latest:
				f, err := data.GetLatestDynamicField(ctx, entityID, name)
				if err != nil {
					return err
				}
				fields = []*domain.DynamicField{f}
			case name != "":
				fields, err = data.GetDynamicFieldVersions(ctx, entityID, name)
			default:
				fields, err = data.GetDynamicFields(ctx, entityID)
			}
			if err != nil {
				return err
			}
			if len(fields) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No fields."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatFields(fields))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID, for matching entity ID prefixes")
	cmd.Flags().StringVar(&name, "name", "", "Only show versions of this field")
	cmd.Flags().BoolVar(&latest, "latest", false, "With --name, only show the current version")
	return cmd
}

func newRelCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rel",
		Aliases: []string{"relationship"},
		Short:   "Manage relationships between entities",
	}
	cmd.AddCommand(
		newRelCreateCmd(app),
		newRelListCmd(app),
	)
	return cmd
}

func newRelCreateCmd(app *App) *cobra.Command {
	var org, relType, smartCode string

	cmd := &cobra.Command{
		Use:   "create <from-entity-id> <to-entity-id>",
		Short: "Link two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var orgID string
			if org != "" {
				id, err := resolveOrgID(ctx, app, org)
				if err != nil {
					return err
				}
				orgID = id
			}
			from, err := resolveEntityID(ctx, app, orgID, args[0])
			if err != nil {
				return err
			}
			to, err := resolveEntityID(ctx, app, orgID, args[1])
			if err != nil {
				return err
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}
			rel := &domain.Relationship{
				OrganizationID:   orgID,
				FromEntityID:     from,
				ToEntityID:       to,
				RelationshipType: relType,
				SmartCode:        smartCode,
			}
			if err := data.CreateRelationship(ctx, rel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -[%s]-> %s\n",
				formatter.ShortID(from), rel.RelationshipType, formatter.ShortID(to))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&relType, "type", "", "Relationship type, e.g. parent_of")
	cmd.Flags().StringVar(&smartCode, "smart-code", "", "Smart code of the relationship")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newRelListCmd(app *App) *cobra.Command {
	var org, relType string

	cmd := &cobra.Command{
		Use:   "list [entity-id]",
		Short: "List relationships of an entity, or of an organization by type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var orgID string
			if org != "" {
				id, err := resolveOrgID(ctx, app, org)
				if err != nil {
					return err
				}
				orgID = id
			}
			data, err := app.Data(ctx)
			if err != nil {
				return err
			}

			var rels []*domain.Relationship
			switch {
			case len(args) == 1:
				entityID, err := resolveEntityID(ctx, app, orgID, args[0])
				if err != nil {
					return err
				}
				rels, err = data.GetRelationships(ctx, entityID)
				if err != nil {
					return err
				}
			case orgID != "" && relType != "":
				rels, err = data.GetRelationshipsByType(ctx, orgID, relType)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("pass an entity ID, or --org with --type")
			}

			if len(rels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No relationships."))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRelationships(rels))
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Organization code or ID")
	cmd.Flags().StringVar(&relType, "type", "", "Relationship type, with --org and no entity ID")
	return cmd
}
