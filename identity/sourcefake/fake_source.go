package sourcefake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-console-session/credentials"
	"github.com/jrsteele09/go-console-session/identity"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

var _ identity.Source = (*FakeSource)(nil)

// FakeSource is a scriptable identity.Source that counts calls
type FakeSource struct {
	LoginFunc   func(ctx context.Context, grant identity.Grant) (*identity.Result, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (*credentials.Credential, error)
	LogoutFunc  func(ctx context.Context, cred *credentials.Credential) error

	lock         sync.Mutex
	loginCalls   int
	refreshCalls int
	logoutCalls  int
}

// NewFakeSource accepts any PasswordGrant and issues the given credential
func NewFakeSource(issue *credentials.Credential) *FakeSource {
	return &FakeSource{
		LoginFunc: func(_ context.Context, grant identity.Grant) (*identity.Result, error) {
			pg, ok := grant.(identity.PasswordGrant)
			if !ok {
				return nil, apperrors.NewAuthError(apperrors.ErrProvider, apperrors.ErrUnsupportedMode)
			}
			if pg.Password == "" {
				return nil, apperrors.NewAuthError(apperrors.ErrInvalidCredentials, nil)
			}
			return &identity.Result{
				Credential: issue.Clone(),
				User:       &identity.User{ID: "u-1", Email: pg.Email},
			}, nil
		},
	}
}

func (f *FakeSource) Login(ctx context.Context, grant identity.Grant) (*identity.Result, error) {
	f.lock.Lock()
	f.loginCalls++
	fn := f.LoginFunc
	f.lock.Unlock()
	if fn == nil {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, apperrors.ErrUnsupportedMode)
	}
	return fn(ctx, grant)
}

func (f *FakeSource) Refresh(ctx context.Context, refreshToken string) (*credentials.Credential, error) {
	f.lock.Lock()
	f.refreshCalls++
	fn := f.RefreshFunc
	f.lock.Unlock()
	if fn == nil {
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRevokedToken}
	}
	return fn(ctx, refreshToken)
}

func (f *FakeSource) Logout(ctx context.Context, cred *credentials.Credential) error {
	f.lock.Lock()
	f.logoutCalls++
	fn := f.LogoutFunc
	f.lock.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, cred)
}

func (f *FakeSource) LoginCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.loginCalls
}

func (f *FakeSource) RefreshCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refreshCalls
}

func (f *FakeSource) LogoutCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.logoutCalls
}
