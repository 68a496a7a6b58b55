package config

import (
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

type Config interface {
	EnvConfig
	SessionConfig
	ProviderConfig
	StorageConfig
}

type EnvConfig interface {
	GetBaseURL() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Session
	Provider
	Storage
}

func New() Config {
	return mainConfig{}
}

// Validate reports configuration that makes the process unable to start.
// A missing base URL is a startup error, never a runtime auth error.
func Validate(c Config) error {
	raw := c.GetBaseURL()
	if raw == "" {
		return fmt.Errorf("[config] %s: %w", baseURLVar, apperrors.ErrMissingBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("[config] invalid %s %q: %w", baseURLVar, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("[config] %s must be an absolute http(s) URL, got %q", baseURLVar, raw)
	}
	if c.GetIdentitySource() == IdentitySourceOIDC {
		if c.GetOIDCIssuer() == "" || c.GetOIDCClientID() == "" {
			return fmt.Errorf("[config] oidc identity source requires %s and %s", oidcIssuerVar, oidcClientIDVar)
		}
	}
	return nil
}
