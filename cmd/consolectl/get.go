package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-console-session/querycache"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var queryParams []string

var getCmd = &cobra.Command{
	Use:   "get <family> <path>",
	Short: "Fetch a JSON resource",
	Long: `Fetches a resource and prints the JSON response.

Families tools, dashboard, analytics, users and logs are requested under the
selected organization. profile and tenants are not organization scoped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		family := querycache.Family(args[0])
		query := url.Values{}
		for _, kv := range queryParams {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("query parameter %q must be key=value", kv)
			}
			query.Add(k, v)
		}

		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(app)

		var raw json.RawMessage
		if err := app.GetJSON(cmd.Context(), family, args[1], query, &raw); err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return err
		}
		pterm.Println(out.String())
		return nil
	},
}

func init() {
	getCmd.Flags().StringArrayVarP(&queryParams, "query", "q", nil, "Query parameter key=value (repeatable)")
}
