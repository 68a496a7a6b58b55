package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-console-session/credentials"
)

// Grant is the input a Source accepts on Login
type Grant interface {
	grantType() string
}

// PasswordGrant is a direct email/password login against the backing API
type PasswordGrant struct {
	Email    string
	Password string
}

func (PasswordGrant) grantType() string { return "password" }

// AuthCodeGrant completes a delegated provider login. State is what came back
// on the redirect, ExpectedState/Verifier/Nonce are what the AuthorizationRequest produced.
type AuthCodeGrant struct {
	Code          string
	State         string
	ExpectedState string
	Verifier      string
	Nonce         string
}

func (AuthCodeGrant) grantType() string { return "authorization_code" }

// User is the principal the source authenticated
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Result of a successful Login
type Result struct {
	Credential *credentials.Credential
	User       *User
}

// Source issues, refreshes and revokes credentials. The session manager
// depends only on this interface.
type Source interface {
	// Login fails with an *errors.AuthError of kind ErrInvalidCredentials, ErrNetwork or ErrProvider
	Login(ctx context.Context, grant Grant) (*Result, error)
	// Refresh fails with an *errors.RefreshError of kind ErrRefreshNetwork or ErrRevokedToken
	Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error)
	// Logout is best effort; the caller logs and ignores failures
	Logout(ctx context.Context, cred *credentials.Credential) error
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}
