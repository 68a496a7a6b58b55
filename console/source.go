package console

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-console-session/identity"
	"github.com/jrsteele09/go-console-session/internal/config"
	"github.com/rs/zerolog"
)

// NewSource builds the single identity source the configuration selects
func NewSource(ctx context.Context, cfg config.Config, client *http.Client, logger zerolog.Logger) (identity.Source, error) {
	if cfg.GetIdentitySource() == config.IdentitySourceOIDC {
		return identity.NewDelegatedProviderSource(ctx, identity.ProviderConfig{
			Issuer:      cfg.GetOIDCIssuer(),
			ClientID:    cfg.GetOIDCClientID(),
			RedirectURL: cfg.GetOIDCRedirectURL(),
			Scopes:      cfg.GetOIDCScopes(),
			APIBaseURL:  cfg.GetBaseURL(),
		}, identity.WithProviderHTTPClient(client), identity.WithProviderLogger(logger))
	}
	return identity.NewPasswordGrantSource(cfg.GetBaseURL(),
		identity.WithPasswordHTTPClient(client),
		identity.WithPasswordLogger(logger),
	), nil
}
