package cli

import (
	"context"
	"fmt"
	"strings"
)

// resolveOrgID resolves an organization identifier which can be:
//   - An organization code (case-insensitive)
//   - A full UUID
//   - An unambiguous UUID prefix
func resolveOrgID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("organization is required (use --org)")
	}

	data, err := app.Data(ctx)
	if err != nil {
		return "", err
	}
	if o, err := data.GetOrganizationByCode(ctx, input); err == nil {
		return o.ID, nil
	}
	orgs, err := data.ListOrganizations(ctx)
	if err != nil {
		return "", err
	}

	for _, o := range orgs {
		if strings.EqualFold(o.Code, input) {
			return o.ID, nil
		}
	}
	for _, o := range orgs {
		if o.ID == input {
			return o.ID, nil
		}
	}

	var matches []string
	for _, o := range orgs {
		if strings.HasPrefix(o.ID, input) {
			matches = append(matches, o.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("organization not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("organization ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveEntityID accepts a full entity UUID or a prefix unique within the
// organization.
func resolveEntityID(ctx context.Context, app *App, orgID, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("entity ID is required")
	}
	data, err := app.Data(ctx)
	if err != nil {
		return "", err
	}
	if e, err := data.GetEntity(ctx, input); err == nil {
		return e.ID, nil
	}
	if orgID == "" {
		return "", fmt.Errorf("entity not found: %q (pass --org to match by prefix)", input)
	}
	entities, err := data.ListOrganizationEntities(ctx, orgID)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, e := range entities {
		if strings.HasPrefix(e.ID, input) {
			matches = append(matches, e.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("entity not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("entity ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
