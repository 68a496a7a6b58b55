package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-console-session/credentials"
	"github.com/jrsteele09/go-console-session/identity"
	"github.com/jrsteele09/go-console-session/internal/config"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/internal/metrics"
	"github.com/jrsteele09/go-console-session/querycache"
	"github.com/jrsteele09/go-console-session/session"
	"github.com/jrsteele09/go-console-session/tenants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App is the explicit process-wide handle: Create, then HydrateFromDurableStore, then Teardown
type App struct {
	cfg     config.Config
	store   credentials.Store
	source  identity.Source
	manager *session.Manager
	tenants *tenants.Store
	cache   *querycache.Cache
	logger  zerolog.Logger
}

// Status is what a route guard reads
type Status struct {
	Authenticated      bool
	TenantSelected     bool
	OnboardingRequired bool
	State              session.State
	TenantID           string
}

type options struct {
	source     identity.Source
	clock      clock.Clock
	httpClient *http.Client
	logger     *zerolog.Logger
	registerer prometheus.Registerer
}

type Option func(*options)

// WithSource replaces the configured identity source
func WithSource(src identity.Source) Option {
	return func(o *options) { o.source = src }
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithRegisterer enables Prometheus session metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func Create(ctx context.Context, cfg config.Config, store credentials.Store, opts ...Option) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("[console] a credential store is required")
	}

	o := &options{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}
	logger := config.NewLogger(cfg, os.Stderr)
	if o.logger != nil {
		logger = *o.logger
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.GetRequestTimeout()}
	}

	source := o.source
	if source == nil {
		var err error
		if source, err = NewSource(ctx, cfg, o.httpClient, logger); err != nil {
			return nil, err
		}
	}

	adapter := credentials.NewAdapter(store, credentials.TTLs{
		AccessToken:  cfg.GetAccessTokenTTL(),
		RefreshToken: cfg.GetRefreshTokenTTL(),
		Selection:    cfg.GetSelectionTTL(),
	})

	sessionOpts := []session.Option{
		session.WithClock(o.clock),
		session.WithHTTPClient(o.httpClient),
		session.WithLogger(logger),
	}
	if o.registerer != nil {
		sessionOpts = append(sessionOpts, session.WithMetrics(metrics.NewSessionMetrics(o.registerer)))
	}
	manager, err := session.New(session.Config{
		BaseURL:           cfg.GetBaseURL(),
		RefreshLeadTime:   cfg.GetRefreshLeadTime(),
		ReactiveThreshold: cfg.GetReactiveThreshold(),
		RefreshTimeout:    cfg.GetRefreshTimeout(),
	}, source, adapter, sessionOpts...)
	if err != nil {
		return nil, err
	}

	cache := querycache.New(cfg.GetCacheSize(), cfg.GetCacheTTL(), querycache.WithLogger(logger))
	tenantStore := tenants.NewStore(manager, adapter, cache, tenants.WithLogger(logger))

	// No tenant data outlives the session
	manager.OnSessionEnd(func(_ context.Context, reason session.EndReason) error {
		logger.Debug().Str("reason", string(reason)).Msg("[console] clearing tenant context")
		return tenantStore.Clear()
	})

	return &App{
		cfg:     cfg,
		store:   store,
		source:  source,
		manager: manager,
		tenants: tenantStore,
		cache:   cache,
		logger:  logger,
	}, nil
}

// HydrateFromDurableStore restores the credential and the tenant selection
func (a *App) HydrateFromDurableStore(ctx context.Context) error {
	var result *multierror.Error
	if err := a.manager.HydrateFromDurableStore(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := a.tenants.Hydrate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Teardown stops background refresh and drops in-memory caches. Durable state is kept.
func (a *App) Teardown() error {
	a.manager.Teardown()
	a.cache.Clear()

	var result *multierror.Error
	for _, c := range []any{a.source, a.store} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// Login authenticates and then loads tenants; a tenant load failure does not fail the login
func (a *App) Login(ctx context.Context, grant identity.Grant) (*credentials.Credential, error) {
	cred, err := a.manager.Login(ctx, grant)
	if err != nil {
		return nil, err
	}
	if _, err := a.tenants.LoadTenants(ctx); err != nil {
		a.logger.Err(err).Msg("[console] failed to load tenants after login")
	}
	return cred, nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.manager.Logout(ctx)
}

func (a *App) LoadTenants(ctx context.Context) ([]tenants.Tenant, error) {
	return a.tenants.LoadTenants(ctx)
}

func (a *App) SelectTenant(tenantID string) error {
	return a.tenants.SelectTenant(tenantID)
}

// GetJSON reads through the shared cache. Tenant scoped families are keyed, tagged and
// requested under the tenant selected when the call starts.
func (a *App) GetJSON(ctx context.Context, family querycache.Family, path string, query url.Values, out any) error {
	tenantID := ""
	if family.TenantScoped() {
		if tenantID = a.tenants.SelectedID(); tenantID == "" {
			return apperrors.ErrNoTenantSelected
		}
	}

	key := querycache.NewKey(family, tenantID, query)
	key.Params = path + "?" + key.Params

	data, err := a.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		req := session.Request{Method: http.MethodGet, Path: path, Query: url.Values{}}
		for k, vs := range query {
			req.Query[k] = append([]string(nil), vs...)
		}
		if tenantID != "" {
			req.SetQuery(tenants.QueryParamTenant, tenantID)
		}
		resp, err := a.manager.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("[console] failed to decode %s: %w", path, err)
	}
	return nil
}

func (a *App) Status() Status {
	return Status{
		Authenticated:      a.manager.HasCredential(),
		TenantSelected:     a.tenants.SelectedID() != "",
		OnboardingRequired: a.tenants.OnboardingRequired(),
		State:              a.manager.State(),
		TenantID:           a.tenants.SelectedID(),
	}
}

func (a *App) Session() *session.Manager {
	return a.manager
}

func (a *App) Tenants() *tenants.Store {
	return a.tenants
}

func (a *App) Cache() *querycache.Cache {
	return a.cache
}

// Source is the identity source in use; the CLI needs it to start a delegated login
func (a *App) Source() identity.Source {
	return a.source
}
