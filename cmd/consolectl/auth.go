package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-console-session/identity"
	"github.com/jrsteele09/go-console-session/internal/config"
	"github.com/jrsteele09/go-console-session/tokenclock"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	email    string
	password string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the console API",
	Long: `Signs in with the configured identity source.

With CONSOLE_IDENTITY_SOURCE=password (default) the email and password are sent to
the API directly. With CONSOLE_IDENTITY_SOURCE=oidc a browser login with PKCE is
started and completed on the local redirect URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(app)

		var grant identity.Grant
		switch src := app.Source().(type) {
		case *identity.DelegatedProviderSource:
			g, err := delegatedGrant(ctx, src, config.New().GetOIDCRedirectURL())
			if err != nil {
				return err
			}
			grant = g
		default:
			if email == "" {
				if email, err = pterm.DefaultInteractiveTextInput.Show("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password"); err != nil {
					return err
				}
			}
			grant = identity.PasswordGrant{Email: email, Password: password}
		}

		if _, err := app.Login(ctx, grant); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		pterm.Success.Println("Login successful")
		if u := app.Session().User(); u != nil {
			pterm.Info.Printf("Authenticated as: %s\n", u.Email)
		}
		if id := app.Status().TenantID; id != "" {
			pterm.Info.Printf("Organization: %s\n", id)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(app)

		if err := app.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout incomplete: %w", err)
		}
		pterm.Success.Println("Logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(app)

		displayAppname(config.New().GetAppName())
		status := app.Status()
		pterm.DefaultSection.Println("Session Status")
		pterm.Info.Printf("State: %s\n", status.State)
		pterm.Info.Printf("Credential present: %t\n", status.Authenticated)
		if cred := app.Session().Credential(); cred != nil {
			if exp, ok := tokenclock.ExpiryInstant(cred.AccessToken); ok {
				pterm.Info.Printf("Access token expires: %s\n", exp.Local().Format(time.RFC1123))
			}
			pterm.Info.Printf("Host: %s\n", cred.HostAddress)
		}
		if status.TenantSelected {
			pterm.Info.Printf("Organization: %s\n", status.TenantID)
		} else {
			pterm.Warning.Println("No organization selected")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&email, "email", "", "Account email (password source)")
	loginCmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
}
