package config

import "strings"

const (
	IdentitySourcePassword = "password"
	IdentitySourceOIDC     = "oidc"

	oidcIssuerVar   = "CONSOLE_OIDC_ISSUER"
	oidcClientIDVar = "CONSOLE_OIDC_CLIENT_ID"
)

type ProviderConfig interface {
	GetIdentitySource() string
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCRedirectURL() string
	GetOIDCScopes() []string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

// GetIdentitySource selects the one credential source the session manager uses
func (Provider) GetIdentitySource() string {
	source := strings.ToLower(GetEnv("CONSOLE_IDENTITY_SOURCE", IdentitySourcePassword))
	if source != IdentitySourceOIDC {
		return IdentitySourcePassword
	}
	return source
}

func (Provider) GetOIDCIssuer() string {
	return GetEnv(oidcIssuerVar, "")
}

func (Provider) GetOIDCClientID() string {
	return GetEnv(oidcClientIDVar, "")
}

func (Provider) GetOIDCRedirectURL() string {
	return GetEnv("CONSOLE_OIDC_REDIRECT_URL", "http://127.0.0.1:8085/callback")
}

func (Provider) GetOIDCScopes() []string {
	raw := GetEnv("CONSOLE_OIDC_SCOPES", "openid profile email offline_access")
	return strings.Fields(raw)
}
