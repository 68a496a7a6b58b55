package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-console-session/credentials"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ Source = (*DelegatedProviderSource)(nil)

// ProviderConfig describes the third-party identity provider
type ProviderConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string // Empty for a public client
	RedirectURL  string
	Scopes       []string
	APIBaseURL   string // Backing API the issued tokens are used against
}

// AuthorizationRequest is everything needed to start and later verify an authorization code login
type AuthorizationRequest struct {
	URL      string
	State    string
	Nonce    string
	Verifier string
}

// DelegatedProviderSource authenticates through an OIDC provider using
// the authorization code flow with PKCE.
type DelegatedProviderSource struct {
	cfg                ProviderConfig
	oauth2Config       *oauth2.Config
	verifier           *oidc.IDTokenVerifier
	revocationEndpoint string
	client             *http.Client
	logger             zerolog.Logger
}

type DelegatedOption func(*DelegatedProviderSource)

func WithProviderHTTPClient(c *http.Client) DelegatedOption {
	return func(s *DelegatedProviderSource) { s.client = c }
}

func WithProviderLogger(l zerolog.Logger) DelegatedOption {
	return func(s *DelegatedProviderSource) { s.logger = l }
}

// NewDelegatedProviderSource runs OIDC discovery against the issuer
func NewDelegatedProviderSource(ctx context.Context, cfg ProviderConfig, opts ...DelegatedOption) (*DelegatedProviderSource, error) {
	s := &DelegatedProviderSource{
		cfg:    cfg,
		client: defaultHTTPClient(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.client), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider at %s: %w", cfg.Issuer, err)
	}

	var discovery struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&discovery); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}
	s.revocationEndpoint = discovery.RevocationEndpoint

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}

	endpoint := provider.Endpoint()
	if cfg.ClientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	s.oauth2Config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return s, nil
}

// AuthorizationRequest builds the provider URL with a fresh state, nonce and S256 PKCE challenge
func (s *DelegatedProviderSource) AuthorizationRequest() AuthorizationRequest {
	state := uuid.NewString()
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	return AuthorizationRequest{
		URL:      s.oauth2Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce)),
		State:    state,
		Nonce:    nonce,
		Verifier: verifier,
	}
}

func (s *DelegatedProviderSource) Login(ctx context.Context, grant Grant) (*Result, error) {
	g, ok := grant.(AuthCodeGrant)
	if !ok {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, apperrors.ErrUnsupportedMode)
	}
	if g.Code == "" || g.State == "" || g.State != g.ExpectedState {
		return nil, apperrors.NewAuthError(apperrors.ErrInvalidCredentials, fmt.Errorf("invalid state parameter"))
	}

	ctx = oidc.ClientContext(ctx, s.client)
	token, err := s.oauth2Config.Exchange(ctx, g.Code, oauth2.VerifierOption(g.Verifier))
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("no ID token in response"))
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("ID token verification failed: %w", err))
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("failed to extract claims: %w", err))
	}
	if claims.Nonce != g.Nonce {
		return nil, apperrors.NewAuthError(apperrors.ErrInvalidCredentials, fmt.Errorf("invalid nonce"))
	}
	if token.RefreshToken == "" {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("provider did not issue a refresh token"))
	}

	s.logger.Debug().Str("sub", claims.Sub).Msg("delegated login succeeded")
	return &Result{
		Credential: &credentials.Credential{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			HostAddress:  s.cfg.APIBaseURL,
		},
		User: &User{ID: claims.Sub, Email: claims.Email, Name: claims.Name},
	}, nil
}

func (s *DelegatedProviderSource) Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error) {
	ctx = oidc.ClientContext(ctx, s.client)
	tokenSource := s.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if apperrors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
			return nil, &apperrors.RefreshError{Kind: apperrors.ErrRevokedToken, Err: err}
		}
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: err}
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	return &credentials.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: newRefresh,
		HostAddress:  s.cfg.APIBaseURL,
	}, nil
}

// Logout revokes the refresh token (RFC 7009) when the provider advertises a revocation endpoint
func (s *DelegatedProviderSource) Logout(ctx context.Context, cred *credentials.Credential) error {
	if s.revocationEndpoint == "" || cred == nil || cred.RefreshToken == "" {
		return nil
	}

	form := url.Values{
		"token":           {cred.RefreshToken},
		"token_type_hint": {"refresh_token"},
		"client_id":       {s.cfg.ClientID},
	}
	if s.cfg.ClientSecret != "" {
		form.Set("client_secret", s.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if apperrors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return apperrors.NewAuthError(apperrors.ErrProvider, err)
		}
		return apperrors.NewAuthError(apperrors.ErrInvalidCredentials, err)
	}
	return apperrors.NewAuthError(apperrors.ErrNetwork, err)
}
