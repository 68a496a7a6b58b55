package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jrsteele09/go-console-session/console"
	"github.com/jrsteele09/go-console-session/credentials/filestore"
	"github.com/jrsteele09/go-console-session/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "consolectl",
	Short: "Admin console session client",
	Long: `consolectl signs in to the admin console API, keeps the session fresh and
runs reads under the selected organization.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags override the environment the config layer reads
		if serverURL != "" {
			if err := os.Setenv("CONSOLE_BASE_URL", serverURL); err != nil {
				return err
			}
		}
		if dataDir != "" {
			if err := os.Setenv("CONSOLE_DATA_FOLDER", dataDir); err != nil {
				return err
			}
		}
		log.Logger = config.NewLogger(config.New(), os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Console API base URL (overrides CONSOLE_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for the credential file (overrides CONSOLE_DATA_FOLDER)")
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, tenantsCmd, getCmd)
}

// openApp creates the app over the credential file and hydrates it
func openApp(ctx context.Context) (*console.App, error) {
	cfg := config.New()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var opts []filestore.Option
	key, err := filestore.ParseKey(cfg.GetCredentialKey())
	if err != nil {
		return nil, err
	}
	if key != nil {
		opts = append(opts, filestore.WithEncryptionKey(key))
	}
	store, err := filestore.New(cfg.GetDataFolder(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	app, err := console.Create(ctx, cfg, store, console.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	if err := app.HydrateFromDurableStore(ctx); err != nil {
		log.Err(err).Msg("Failed to restore session")
	}
	return app, nil
}

func closeApp(app *console.App) {
	if err := app.Teardown(); err != nil {
		log.Err(err).Msg("Failed to tear down")
	}
}
