package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var tenantsCmd = &cobra.Command{
	Use:     "orgs",
	Aliases: []string{"tenants"},
	Short:   "List and select organizations",
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the organizations you belong to",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(app)

		list, err := app.LoadTenants(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			pterm.Warning.Println("You do not belong to any organization yet")
			return nil
		}

		selected := app.Status().TenantID
		table := pterm.TableData{{"ID", "NAME", "ROLE", "DEFAULT", "SELECTED"}}
		for _, t := range list {
			table = append(table, []string{t.ID, t.Name, t.Role, mark(t.IsDefault), mark(t.ID == selected)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

var tenantsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Switch the active organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(app)

		if !app.Status().Authenticated {
			return fmt.Errorf("not logged in")
		}
		if err := app.SelectTenant(args[0]); err != nil {
			return err
		}
		pterm.Success.Printf("Organization %s selected\n", args[0])
		return nil
	},
}

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}

func init() {
	tenantsCmd.AddCommand(tenantsListCmd, tenantsSelectCmd)
}
