package credentials

import (
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

// TTLs are the explicit expiries given to each durable key
type TTLs struct {
	AccessToken  time.Duration
	RefreshToken time.Duration
	Selection    time.Duration
}

// DefaultTTLs mirror the cookie lifetimes of the browser console
var DefaultTTLs = TTLs{
	AccessToken:  24 * time.Hour,
	RefreshToken: 7 * 24 * time.Hour,
	Selection:    30 * 24 * time.Hour,
}

// Adapter maps credentials and the tenant selection onto a Store.
// The session core is its only writer.
type Adapter struct {
	store Store
	ttls  TTLs
}

func NewAdapter(store Store, ttls TTLs) *Adapter {
	if ttls.AccessToken <= 0 {
		ttls.AccessToken = DefaultTTLs.AccessToken
	}
	if ttls.RefreshToken <= 0 {
		ttls.RefreshToken = DefaultTTLs.RefreshToken
	}
	if ttls.Selection <= 0 {
		ttls.Selection = DefaultTTLs.Selection
	}
	return &Adapter{store: store, ttls: ttls}
}

func (a *Adapter) SaveCredential(c *Credential) error {
	if c == nil {
		return fmt.Errorf("[credentials] cannot save nil credential")
	}
	if err := a.store.Set(KeyAccessToken, c.AccessToken, a.ttls.AccessToken); err != nil {
		return apperrors.Wrapf(err, "[credentials] save %s", KeyAccessToken)
	}
	if err := a.store.Set(KeyRefreshToken, c.RefreshToken, a.ttls.RefreshToken); err != nil {
		return apperrors.Wrapf(err, "[credentials] save %s", KeyRefreshToken)
	}
	if err := a.store.Set(KeyHostAddress, c.HostAddress, a.ttls.RefreshToken); err != nil {
		return apperrors.Wrapf(err, "[credentials] save %s", KeyHostAddress)
	}
	return nil
}

// LoadCredential needs at least a refresh token; a missing access token is
// returned empty and is recovered by refreshing.
func (a *Adapter) LoadCredential() (*Credential, error) {
	refreshToken, err := a.store.Get(KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, apperrors.ErrNotFound
	}

	accessToken, err := a.optional(KeyAccessToken)
	if err != nil {
		return nil, err
	}
	hostAddress, err := a.optional(KeyHostAddress)
	if err != nil {
		return nil, err
	}

	return &Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		HostAddress:  hostAddress,
	}, nil
}

func (a *Adapter) ClearCredential() error {
	return a.store.Delete(KeyAccessToken, KeyRefreshToken, KeyHostAddress)
}

func (a *Adapter) SaveSelectedTenant(tenantID string) error {
	return apperrors.Wrapf(a.store.Set(KeySelectedTenant, tenantID, a.ttls.Selection), "[credentials] save %s", KeySelectedTenant)
}

// LoadSelectedTenant returns "" when nothing has been selected
func (a *Adapter) LoadSelectedTenant() (string, error) {
	return a.optional(KeySelectedTenant)
}

func (a *Adapter) ClearSelectedTenant() error {
	return a.store.Delete(KeySelectedTenant)
}

// Clear removes every key the core owns
func (a *Adapter) Clear() error {
	return a.store.Delete(AllKeys...)
}

func (a *Adapter) optional(key string) (string, error) {
	v, err := a.store.Get(key)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "[credentials] load %s", key)
	}
	return v, nil
}
