package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the console session core
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no session")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrProvider           = errors.New("identity provider error")
	ErrNetwork            = errors.New("network error")

	// Refresh errors
	ErrRefreshNetwork = errors.New("refresh network failure")
	ErrRevokedToken   = errors.New("refresh token revoked")

	// Token errors
	ErrMalformedToken  = errors.New("malformed token")
	ErrMissingExpiry   = errors.New("token has no exp claim")
	ErrUnsupportedMode = errors.New("unsupported grant for identity source")

	// Tenant errors
	ErrNoTenantSelected = errors.New("no tenant selected")
	ErrTenantFetch      = errors.New("tenant fetch failed")

	// Configuration errors
	ErrMissingBaseURL = errors.New("base URL is not configured")

	// General errors
	ErrNotFound = errors.New("not found")
)

// AuthError is surfaced when a session cannot be established or used.
// Kind is one of ErrInvalidCredentials, ErrNoSession, ErrUnauthorized,
// ErrProvider or ErrNetwork.
type AuthError struct {
	Kind error
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Kind.Error()
	}
	return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewAuthError builds an AuthError of the given kind
func NewAuthError(kind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

// RefreshError describes why a refresh attempt ended the session.
// Kind is ErrRefreshNetwork or ErrRevokedToken.
type RefreshError struct {
	Kind error
	Err  error
}

func (e *RefreshError) Error() string {
	if e.Err == nil {
		return "refresh: " + e.Kind.Error()
	}
	return fmt.Sprintf("refresh: %s: %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// RequestError is a non-2xx, non-401 response from the backing API.
// The body is passed through untouched.
type RequestError struct {
	Status int
	Body   []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// DecodeError reports an access token whose expiry cannot be read
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode token: " + e.Reason
	}
	return fmt.Sprintf("decode token: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed tenant list fetch
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTenantFetch, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrTenantFetch, e.Err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
