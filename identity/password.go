package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-console-session/credentials"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteLogin   = "/auth/login"
	RouteRefresh = "/auth/refresh"
)

var _ Source = (*PasswordGrantSource)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// PasswordGrantSource logs in with email/password directly against the backing API
type PasswordGrantSource struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type PasswordOption func(*PasswordGrantSource)

func WithPasswordHTTPClient(c *http.Client) PasswordOption {
	return func(s *PasswordGrantSource) { s.client = c }
}

func WithPasswordLogger(l zerolog.Logger) PasswordOption {
	return func(s *PasswordGrantSource) { s.logger = l }
}

func NewPasswordGrantSource(baseURL string, opts ...PasswordOption) *PasswordGrantSource {
	s := &PasswordGrantSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  defaultHTTPClient(),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PasswordGrantSource) Login(ctx context.Context, grant Grant) (*Result, error) {
	pg, ok := grant.(PasswordGrant)
	if !ok {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, apperrors.ErrUnsupportedMode)
	}

	status, body, err := s.post(ctx, RouteLogin, loginRequest{Email: pg.Email, Password: pg.Password})
	if err != nil {
		return nil, apperrors.NewAuthError(apperrors.ErrNetwork, err)
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, apperrors.NewAuthError(apperrors.ErrInvalidCredentials, &apperrors.RequestError{Status: status, Body: body})
	case status < 200 || status > 299:
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, &apperrors.RequestError{Status: status, Body: body})
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("failed to decode login response: %w", err))
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("login response is missing tokens"))
	}

	s.logger.Debug().Str("email", pg.Email).Msg("password login succeeded")
	return &Result{
		Credential: &credentials.Credential{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			HostAddress:  s.baseURL,
		},
		User: resp.User,
	}, nil
}

func (s *PasswordGrantSource) Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error) {
	status, body, err := s.post(ctx, RouteRefresh, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: err}
	}
	if err := classifyRefreshStatus(status, body); err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: fmt.Errorf("failed to decode refresh response: %w", err)}
	}
	if resp.AccessToken == "" {
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: fmt.Errorf("refresh response is missing access token")}
	}
	// Rotation is optional; keep the old refresh token when none is returned
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}

	return &credentials.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		HostAddress:  s.baseURL,
	}, nil
}

// Logout is a no-op; the password backend keeps no server-side session
func (s *PasswordGrantSource) Logout(context.Context, *credentials.Credential) error {
	return nil
}

func (s *PasswordGrantSource) post(ctx context.Context, route string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+route, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// classifyRefreshStatus maps a refresh response status onto the refresh error kinds
func classifyRefreshStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status >= 500:
		return &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: &apperrors.RequestError{Status: status, Body: body}}
	default:
		return &apperrors.RefreshError{Kind: apperrors.ErrRevokedToken, Err: &apperrors.RequestError{Status: status, Body: body}}
	}
}
