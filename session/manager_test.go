package session_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-console-session/credentials"
	"github.com/jrsteele09/go-console-session/credentials/memstore"
	"github.com/jrsteele09/go-console-session/identity"
	"github.com/jrsteele09/go-console-session/identity/sourcefake"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/session"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u-1",
		"jti": uuid.NewString(),
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

type fixture struct {
	manager  *session.Manager
	source   *sourcefake.FakeSource
	store    *memstore.MemStore
	adapter  *credentials.Adapter
	mock     *clock.Mock
	backend  *httptest.Server
	register func(http.HandlerFunc)
}

func newFixture(t *testing.T, cfg session.Config) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		mock:  clock.NewMock(),
	}
	f.mock.Set(start)
	f.adapter = credentials.NewAdapter(f.store, credentials.DefaultTTLs)

	var handler atomic.Value
	handler.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	f.register = func(h http.HandlerFunc) { handler.Store(h) }
	f.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Load().(http.HandlerFunc)(w, r)
	}))
	t.Cleanup(f.backend.Close)

	f.source = sourcefake.NewFakeSource(&credentials.Credential{
		AccessToken:  mintToken(t, start.Add(2*time.Hour)),
		RefreshToken: "refresh-1",
	})
	f.source.RefreshFunc = func(_ context.Context, refreshToken string) (*credentials.Credential, error) {
		return &credentials.Credential{AccessToken: mintToken(t, f.mock.Now().Add(2*time.Hour)), RefreshToken: refreshToken}, nil
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = f.backend.URL
	}
	m, err := session.New(cfg, f.source, f.adapter, session.WithClock(f.mock))
	require.NoError(t, err)
	f.manager = m
	t.Cleanup(m.Teardown)
	return f
}

func (f *fixture) login(t *testing.T) *credentials.Credential {
	t.Helper()
	cred, err := f.manager.Login(context.Background(), identity.PasswordGrant{Email: "admin@example.com", Password: "secret"})
	require.NoError(t, err)
	return cred
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := session.New(session.Config{}, sourcefake.NewFakeSource(nil), credentials.NewAdapter(memstore.New(), credentials.DefaultTTLs))
	require.ErrorIs(t, err, apperrors.ErrMissingBaseURL)
}

func TestManager_Login(t *testing.T) {
	f := newFixture(t, session.Config{})
	require.Equal(t, session.StateUnauthenticated, f.manager.State())

	cred := f.login(t)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.True(t, f.manager.HasCredential())
	require.Equal(t, f.backend.URL, cred.HostAddress)
	require.Equal(t, "admin@example.com", f.manager.User().Email)

	stored, err := f.adapter.LoadCredential()
	require.NoError(t, err)
	require.Equal(t, cred, stored)
}

func TestManager_LoginFailureKeepsState(t *testing.T) {
	f := newFixture(t, session.Config{})

	_, err := f.manager.Login(context.Background(), identity.PasswordGrant{Email: "admin@example.com"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.manager.HasCredential())
	require.Empty(t, f.store.Keys())
}

func TestManager_ProactiveRefreshFiresAtLeadTime(t *testing.T) {
	f := newFixture(t, session.Config{RefreshLeadTime: 30 * time.Minute})
	f.source.LoginFunc = func(context.Context, identity.Grant) (*identity.Result, error) {
		return &identity.Result{Credential: &credentials.Credential{
			AccessToken:  mintToken(t, start.Add(40*time.Minute)),
			RefreshToken: "refresh-1",
		}}, nil
	}
	f.login(t)

	f.mock.Add(9 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, f.source.RefreshCalls())

	f.mock.Add(time.Minute)
	require.Eventually(t, func() bool { return f.source.RefreshCalls() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.manager.State() == session.StateAuthenticated }, time.Second, 5*time.Millisecond)
}

func TestManager_ProactiveRefreshInsideLeadWindowFiresNow(t *testing.T) {
	f := newFixture(t, session.Config{RefreshLeadTime: 30 * time.Minute})
	first := mintToken(t, start.Add(10*time.Minute))
	f.source.LoginFunc = func(context.Context, identity.Grant) (*identity.Result, error) {
		return &identity.Result{Credential: &credentials.Credential{AccessToken: first, RefreshToken: "refresh-1"}}, nil
	}
	f.login(t)

	require.Eventually(t, func() bool { return f.source.RefreshCalls() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		cred := f.manager.Credential()
		return cred != nil && cred.AccessToken != first
	}, time.Second, 5*time.Millisecond)
}

func TestManager_UndecodableTokenArmsNoTimer(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.source.LoginFunc = func(context.Context, identity.Grant) (*identity.Result, error) {
		return &identity.Result{Credential: &credentials.Credential{AccessToken: "opaque", RefreshToken: "refresh-1"}}, nil
	}
	f.login(t)

	f.mock.Add(48 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 0, f.source.RefreshCalls())
}

func TestManager_RefreshIsSingleFlight(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	release := make(chan struct{})
	refreshed := mintToken(t, start.Add(3*time.Hour))
	f.source.RefreshFunc = func(_ context.Context, refreshToken string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: refreshed, RefreshToken: "refresh-2"}, nil
	}

	const callers = 10
	results := make([]*credentials.Credential, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.manager.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.manager.State() == session.StateRefreshing }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, 1, f.source.RefreshCalls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, refreshed, results[i].AccessToken)
		require.Equal(t, "refresh-2", results[i].RefreshToken)
	}
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestManager_RefreshFailureExpiresSession(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	var reasons []session.EndReason
	f.manager.OnSessionEnd(func(_ context.Context, reason session.EndReason) error {
		reasons = append(reasons, reason)
		return nil
	})
	require.NoError(t, f.adapter.SaveSelectedTenant("tenant-a"))

	f.source.RefreshFunc = func(context.Context, string) (*credentials.Credential, error) {
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRevokedToken}
	}
	_, err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRevokedToken)

	require.Equal(t, session.StateExpired, f.manager.State())
	require.False(t, f.manager.HasCredential())
	require.Empty(t, f.store.Keys())
	require.Equal(t, []session.EndReason{session.EndExpired}, reasons)

	var calls atomic.Int32
	f.register(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	_, err = f.manager.Do(context.Background(), session.Request{Path: "/tools"})
	require.ErrorIs(t, err, apperrors.ErrNoSession)
	require.Zero(t, calls.Load())

	// A new login leaves EXPIRED
	f.source.RefreshFunc = nil
	f.login(t)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestManager_RefreshTimeoutReleasesGate(t *testing.T) {
	f := newFixture(t, session.Config{RefreshTimeout: 50 * time.Millisecond})
	f.login(t)

	f.source.RefreshFunc = func(ctx context.Context, _ string) (*credentials.Credential, error) {
		<-ctx.Done()
		return nil, &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: ctx.Err()}
	}
	_, err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRefreshNetwork)
	require.Equal(t, session.StateExpired, f.manager.State())
}

func TestManager_CallerCancellationDoesNotCancelFlight(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	release := make(chan struct{})
	f.source.RefreshFunc = func(_ context.Context, refreshToken string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: mintToken(t, start.Add(4*time.Hour)), RefreshToken: refreshToken}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.manager.Refresh(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return f.manager.State() == session.StateAuthenticated }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.source.RefreshCalls())
}

func TestManager_DoAttachesBearer(t *testing.T) {
	f := newFixture(t, session.Config{})
	cred := f.login(t)

	f.register(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer "+cred.AccessToken, r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get(session.HeaderRequestID))
		require.Equal(t, "tenant-a", r.URL.Query().Get("organization_id"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := session.Request{Path: "tools"}
	req.SetQuery("organization_id", "tenant-a")
	resp, err := f.manager.Do(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
	require.Equal(t, 0, f.source.RefreshCalls())
}

func TestManager_DoPreflightRefresh(t *testing.T) {
	f := newFixture(t, session.Config{ReactiveThreshold: time.Minute, RefreshLeadTime: time.Second})
	expiring := mintToken(t, start.Add(30*time.Second))
	f.source.LoginFunc = func(context.Context, identity.Grant) (*identity.Result, error) {
		return &identity.Result{Credential: &credentials.Credential{AccessToken: expiring, RefreshToken: "refresh-1"}}, nil
	}
	f.login(t)

	f.register(func(w http.ResponseWriter, r *http.Request) {
		require.NotEqual(t, "Bearer "+expiring, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	_, err := f.manager.Do(context.Background(), session.Request{Path: "/profile"})
	require.NoError(t, err)
	require.Equal(t, 1, f.source.RefreshCalls())
}

func TestManager_DoRetriesOnceAfter401(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	var calls atomic.Int32
	requestIDs := make(chan string, 2)
	f.register(func(w http.ResponseWriter, r *http.Request) {
		requestIDs <- r.Header.Get(session.HeaderRequestID)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"stats":1}`))
	})

	resp, err := f.manager.Do(context.Background(), session.Request{Path: "/dashboard"})
	require.NoError(t, err)
	require.Equal(t, `{"stats":1}`, string(resp.Body))
	require.Equal(t, 1, f.source.RefreshCalls())
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, <-requestIDs, <-requestIDs)
}

func TestManager_DoSecond401IsUnauthorized(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	var calls atomic.Int32
	f.register(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := f.manager.Do(context.Background(), session.Request{Path: "/dashboard"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, 1, f.source.RefreshCalls())
	require.Equal(t, int32(2), calls.Load())
}

func TestManager_DoRetryUsesAlreadyRotatedToken(t *testing.T) {
	f := newFixture(t, session.Config{})
	original := f.login(t)

	var calls atomic.Int32
	f.register(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer "+original.AccessToken {
			// Another caller rotates the credential while this request is out
			_, err := f.manager.Refresh(context.Background())
			require.NoError(t, err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := f.manager.Do(context.Background(), session.Request{Method: http.MethodDelete, Path: "/users/7"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, f.source.RefreshCalls())
	require.Equal(t, int32(2), calls.Load())
}

func TestManager_DoSurfacesRequestError(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	f.register(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"name":"x"}`, string(body))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"name taken"}`))
	})

	_, err := f.manager.Do(context.Background(), session.Request{Method: http.MethodPost, Path: "/tools", Body: []byte(`{"name":"x"}`)})
	var reqErr *apperrors.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusUnprocessableEntity, reqErr.Status)
	require.Equal(t, `{"error":"name taken"}`, string(reqErr.Body))
	require.Equal(t, 0, f.source.RefreshCalls())
}

func TestManager_LogoutCompleteness(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	var reasons []session.EndReason
	f.manager.OnSessionEnd(func(_ context.Context, reason session.EndReason) error {
		reasons = append(reasons, reason)
		return f.adapter.ClearSelectedTenant()
	})
	require.NoError(t, f.adapter.SaveSelectedTenant("tenant-a"))

	require.NoError(t, f.manager.Logout(context.Background()))
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.False(t, f.manager.HasCredential())
	require.Nil(t, f.manager.User())
	require.Empty(t, f.store.Keys())
	require.Equal(t, []session.EndReason{session.EndLogout}, reasons)
	require.Equal(t, 1, f.source.LogoutCalls())

	var calls atomic.Int32
	f.register(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })
	_, err := f.manager.Do(context.Background(), session.Request{Path: "/tools"})
	require.ErrorIs(t, err, apperrors.ErrNoSession)
	require.Zero(t, calls.Load())
	require.Equal(t, 0, f.source.RefreshCalls())
}

func TestManager_LogoutDuringRefreshDiscardsResult(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	release := make(chan struct{})
	f.source.RefreshFunc = func(_ context.Context, refreshToken string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: mintToken(t, start.Add(4*time.Hour)), RefreshToken: refreshToken}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Refresh(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return f.manager.State() == session.StateRefreshing }, time.Second, time.Millisecond)

	require.NoError(t, f.manager.Logout(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, apperrors.ErrNoSession)
	require.Equal(t, session.StateUnauthenticated, f.manager.State())
	require.Empty(t, f.store.Keys())
}

func TestManager_TeardownDuringRefreshKeepsRotatedCredential(t *testing.T) {
	f := newFixture(t, session.Config{})
	f.login(t)

	release := make(chan struct{})
	rotated := mintToken(t, start.Add(4*time.Hour))
	f.source.RefreshFunc = func(context.Context, string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: rotated, RefreshToken: "rotated-2"}, nil
	}

	type result struct {
		cred *credentials.Credential
		err  error
	}
	done := make(chan result, 1)
	go func() {
		cred, err := f.manager.Refresh(context.Background())
		done <- result{cred, err}
	}()
	require.Eventually(t, func() bool { return f.manager.State() == session.StateRefreshing }, time.Second, time.Millisecond)

	tornDown := make(chan struct{})
	go func() {
		f.manager.Teardown()
		close(tornDown)
	}()
	select {
	case <-tornDown:
		t.Fatal("teardown returned while the refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-tornDown
	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, rotated, res.cred.AccessToken)
	require.Equal(t, session.StateAuthenticated, f.manager.State())

	stored, err := f.adapter.LoadCredential()
	require.NoError(t, err)
	require.Equal(t, "rotated-2", stored.RefreshToken)
	require.Equal(t, rotated, stored.AccessToken)

	// No timer is re-armed after teardown
	f.mock.Add(48 * time.Hour)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, f.source.RefreshCalls())
}

func TestManager_ConcurrentPreflightSharesOneRefresh(t *testing.T) {
	f := newFixture(t, session.Config{ReactiveThreshold: time.Minute, RefreshLeadTime: time.Second})
	expiring := mintToken(t, start.Add(30*time.Second))
	f.source.LoginFunc = func(context.Context, identity.Grant) (*identity.Result, error) {
		return &identity.Result{Credential: &credentials.Credential{AccessToken: expiring, RefreshToken: "refresh-1"}}, nil
	}
	f.login(t)

	release := make(chan struct{})
	refreshed := mintToken(t, start.Add(2*time.Hour))
	f.source.RefreshFunc = func(context.Context, string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: refreshed, RefreshToken: "refresh-2"}, nil
	}

	var lock sync.Mutex
	var bearers []string
	f.register(func(w http.ResponseWriter, r *http.Request) {
		lock.Lock()
		bearers = append(bearers, r.Header.Get("Authorization"))
		lock.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Do(context.Background(), session.Request{Path: "/dashboard"})
		}(i)
	}

	require.Eventually(t, func() bool { return f.manager.State() == session.StateRefreshing }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.source.RefreshCalls())
	require.Len(t, bearers, callers)
	for _, bearer := range bearers {
		require.Equal(t, "Bearer "+refreshed, bearer)
	}
}

func TestManager_Concurrent401sShareOneRefresh(t *testing.T) {
	f := newFixture(t, session.Config{})
	original := f.login(t)

	release := make(chan struct{})
	refreshed := mintToken(t, start.Add(3*time.Hour))
	f.source.RefreshFunc = func(context.Context, string) (*credentials.Credential, error) {
		<-release
		return &credentials.Credential{AccessToken: refreshed, RefreshToken: "refresh-2"}, nil
	}

	var rejected atomic.Int32
	var lock sync.Mutex
	var retries []string
	f.register(func(w http.ResponseWriter, r *http.Request) {
		bearer := r.Header.Get("Authorization")
		if bearer == "Bearer "+original.AccessToken {
			rejected.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		lock.Lock()
		retries = append(retries, bearer)
		lock.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.Do(context.Background(), session.Request{Path: "/tools"})
		}(i)
	}

	require.Eventually(t, func() bool { return rejected.Load() == callers }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.source.RefreshCalls())
	require.Len(t, retries, callers)
	for _, bearer := range retries {
		require.Equal(t, "Bearer "+refreshed, bearer)
	}
}

func TestManager_HydrateFromDurableStore(t *testing.T) {
	t.Run("restores credential", func(t *testing.T) {
		f := newFixture(t, session.Config{})
		access := mintToken(t, start.Add(2*time.Hour))
		require.NoError(t, f.adapter.SaveCredential(&credentials.Credential{AccessToken: access, RefreshToken: "r", HostAddress: f.backend.URL}))

		require.NoError(t, f.manager.HydrateFromDurableStore(context.Background()))
		require.Equal(t, session.StateAuthenticated, f.manager.State())
		require.Equal(t, access, f.manager.Credential().AccessToken)
		require.Equal(t, 0, f.source.RefreshCalls())
	})

	t.Run("missing access token refreshes", func(t *testing.T) {
		f := newFixture(t, session.Config{})
		require.NoError(t, f.store.Set(credentials.KeyRefreshToken, "r", time.Hour))

		require.NoError(t, f.manager.HydrateFromDurableStore(context.Background()))
		require.Equal(t, 1, f.source.RefreshCalls())
		require.NotEmpty(t, f.manager.Credential().AccessToken)
	})

	t.Run("other host is discarded", func(t *testing.T) {
		f := newFixture(t, session.Config{})
		require.NoError(t, f.adapter.SaveCredential(&credentials.Credential{AccessToken: "a", RefreshToken: "r", HostAddress: "https://elsewhere.example.com"}))

		require.NoError(t, f.manager.HydrateFromDurableStore(context.Background()))
		require.False(t, f.manager.HasCredential())
		require.Empty(t, f.store.Keys())
	})

	t.Run("empty store", func(t *testing.T) {
		f := newFixture(t, session.Config{})
		require.NoError(t, f.manager.HydrateFromDurableStore(context.Background()))
		require.Equal(t, session.StateUnauthenticated, f.manager.State())
	})
}
