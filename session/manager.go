package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-console-session/credentials"
	"github.com/jrsteele09/go-console-session/identity"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/tokenclock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// SessionEndHook runs after logout or after a failed refresh expires the session
type SessionEndHook func(ctx context.Context, reason EndReason) error

// Manager owns the credential. It is the only writer of the credential keys in the durable store.
type Manager struct {
	cfg     Config
	source  identity.Source
	store   *credentials.Adapter
	client  *http.Client
	clock   clock.Clock
	logger  zerolog.Logger
	metrics Metrics

	flights singleflight.Group

	lock       sync.RWMutex
	state      State
	cred       *credentials.Credential
	user       *identity.User
	timer      *clock.Timer
	generation uint64 // bumped on every install, logout and expiry
	hooks      []SessionEndHook
	closed     bool
	flightDone chan struct{} // open while a refresh is talking to the identity source
}

func New(cfg Config, source identity.Source, store *credentials.Adapter, opts ...Option) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.ErrMissingBaseURL
	}
	if source == nil {
		return nil, fmt.Errorf("[session] an identity source is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[session] a credential store is required")
	}

	m := &Manager{
		cfg:     cfg.withDefaults(),
		source:  source,
		store:   store,
		client:  &http.Client{Timeout: 30 * time.Second},
		clock:   clock.New(),
		logger:  log.Logger,
		metrics: nopMetrics{},
		state:   StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// OnSessionEnd registers a hook run on logout and on expiry
func (m *Manager) OnSessionEnd(hook SessionEndHook) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.hooks = append(m.hooks, hook)
}

func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

func (m *Manager) HasCredential() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.cred != nil
}

// Credential returns a copy of the current credential, or nil
func (m *Manager) Credential() *credentials.Credential {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.cred.Clone()
}

// User is only known after a Login in this process; hydrated sessions return nil
func (m *Manager) User() *identity.User {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Login(ctx context.Context, grant identity.Grant) (*credentials.Credential, error) {
	res, err := m.source.Login(ctx, grant)
	if err != nil {
		var authErr *apperrors.AuthError
		if !apperrors.As(err, &authErr) {
			err = apperrors.NewAuthError(apperrors.ErrProvider, err)
		}
		m.logger.Err(err).Msg("[session] login failed")
		return nil, err
	}
	if res == nil || res.Credential == nil || res.Credential.AccessToken == "" || res.Credential.RefreshToken == "" {
		return nil, apperrors.NewAuthError(apperrors.ErrProvider, fmt.Errorf("identity source returned no credential"))
	}

	cred := res.Credential.Clone()
	if cred.HostAddress == "" {
		cred.HostAddress = m.cfg.BaseURL
	}

	m.lock.Lock()
	m.installLocked(cred, res.User, false)
	m.lock.Unlock()

	m.logger.Info().Str("host", cred.HostAddress).Msg("[session] logged in")
	return cred.Clone(), nil
}

func (m *Manager) Logout(ctx context.Context) error {
	var result *multierror.Error

	m.lock.Lock()
	cred := m.cred
	m.generation++
	m.cred = nil
	m.user = nil
	m.state = StateUnauthenticated
	m.stopTimerLocked()
	if err := m.store.ClearCredential(); err != nil {
		result = multierror.Append(result, err)
	}
	m.lock.Unlock()

	if cred != nil {
		if err := m.source.Logout(ctx, cred); err != nil {
			m.logger.Err(err).Msg("[session] identity source logout failed")
		}
	}

	m.metrics.SessionEnded(EndLogout)
	if err := m.runHooks(ctx, EndLogout); err != nil {
		result = multierror.Append(result, err)
	}
	m.logger.Info().Msg("[session] logged out")
	return result.ErrorOrNil()
}

// Refresh is single-flight: concurrent callers share one call to the identity source.
// The caller's context only bounds how long this caller waits.
func (m *Manager) Refresh(ctx context.Context) (*credentials.Credential, error) {
	return m.refresh(ctx, TriggerManual, "")
}

// HydrateFromDurableStore restores a credential persisted by an earlier process
func (m *Manager) HydrateFromDurableStore(ctx context.Context) error {
	cred, err := m.store.LoadCredential()
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Wrapf(err, "[session] hydrate")
	}

	if cred.HostAddress != "" && cred.HostAddress != m.cfg.BaseURL {
		m.logger.Warn().Str("stored", cred.HostAddress).Str("configured", m.cfg.BaseURL).Msg("[session] discarding credential issued for another host")
		return apperrors.Wrapf(m.store.ClearCredential(), "[session] hydrate")
	}
	cred.HostAddress = m.cfg.BaseURL

	m.lock.Lock()
	m.installLocked(cred, nil, false)
	m.lock.Unlock()

	if cred.AccessToken == "" {
		_, err := m.refresh(ctx, TriggerHydrate, "")
		return err
	}
	return nil
}

// Teardown stops the refresh timer and waits for an in-flight refresh, whose
// credential is still persisted. Durable state is left intact.
func (m *Manager) Teardown() {
	m.lock.Lock()
	m.closed = true
	m.stopTimerLocked()
	m.hooks = nil
	done := m.flightDone
	m.lock.Unlock()

	if done != nil {
		<-done
	}
}

// Do runs an authenticated request: refresh when there is no credential or it is about
// to expire, attach the bearer token, and on a 401 refresh once and retry once.
func (m *Manager) Do(ctx context.Context, req Request) (*Response, error) {
	if m.State() == StateExpired {
		return nil, apperrors.NewAuthError(apperrors.ErrNoSession, nil)
	}
	requestID := uuid.NewString()

	accessToken, err := m.ensureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.send(ctx, req, accessToken, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		m.metrics.RequestRetried()
		accessToken, err = m.tokenAfterUnauthorized(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		if resp, err = m.send(ctx, req, accessToken, requestID); err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.NewAuthError(apperrors.ErrUnauthorized, &apperrors.RequestError{Status: resp.StatusCode, Body: resp.Body})
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.RequestError{Status: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (m *Manager) ensureAccessToken(ctx context.Context) (string, error) {
	cred := m.Credential()
	if cred == nil || cred.AccessToken == "" {
		refreshed, err := m.refresh(ctx, TriggerNoCredential, "")
		if err != nil {
			return "", noSession(err)
		}
		return refreshed.AccessToken, nil
	}

	if tokenclock.IsExpiringWithin(cred.AccessToken, m.cfg.ReactiveThreshold, m.clock.Now()) {
		refreshed, err := m.refresh(ctx, TriggerPreflight, cred.AccessToken)
		if err != nil {
			return "", noSession(err)
		}
		return refreshed.AccessToken, nil
	}
	return cred.AccessToken, nil
}

// tokenAfterUnauthorized reuses a token another flight already rotated in, otherwise refreshes
func (m *Manager) tokenAfterUnauthorized(ctx context.Context, rejected string) (string, error) {
	if cred := m.Credential(); cred != nil && cred.AccessToken != "" && cred.AccessToken != rejected {
		return cred.AccessToken, nil
	}
	refreshed, err := m.refresh(ctx, TriggerUnauthorized, rejected)
	if err != nil {
		return "", noSession(err)
	}
	return refreshed.AccessToken, nil
}

// refresh joins or starts the single flight. seen is the access token the caller
// found unusable; request-path triggers skip the network when it was already replaced.
func (m *Manager) refresh(ctx context.Context, trigger Trigger, seen string) (*credentials.Credential, error) {
	ch := m.flights.DoChan(refreshFlightKey, func() (interface{}, error) {
		return m.runRefresh(trigger, seen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*credentials.Credential).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runRefresh is the body of the single flight. It runs on its own bounded
// context so a hung identity source still resolves the flight.
func (m *Manager) runRefresh(trigger Trigger, seen string) (*credentials.Credential, error) {
	m.lock.Lock()
	if m.cred == nil || m.cred.RefreshToken == "" {
		m.lock.Unlock()
		return nil, apperrors.NewAuthError(apperrors.ErrNoSession, nil)
	}
	if current := m.replacedLocked(trigger, seen); current != nil {
		m.lock.Unlock()
		return current, nil
	}
	refreshToken := m.cred.RefreshToken
	gen := m.generation
	m.state = StateRefreshing
	done := make(chan struct{})
	m.flightDone = done
	m.lock.Unlock()
	defer m.finishFlight(done)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RefreshTimeout)
	defer cancel()

	start := m.clock.Now()
	cred, err := m.source.Refresh(ctx, refreshToken)
	m.metrics.RefreshCompleted(trigger, err, m.clock.Since(start).Seconds())

	if err == nil && (cred == nil || cred.AccessToken == "") {
		err = fmt.Errorf("identity source returned an empty credential")
	}
	if err != nil {
		var refreshErr *apperrors.RefreshError
		if !apperrors.As(err, &refreshErr) {
			err = &apperrors.RefreshError{Kind: apperrors.ErrRefreshNetwork, Err: err}
		}
		m.expire(gen, err)
		return nil, err
	}

	cred = cred.Clone()
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	if cred.HostAddress == "" {
		cred.HostAddress = m.cfg.BaseURL
	}

	m.lock.Lock()
	if gen != m.generation {
		m.lock.Unlock()
		m.logger.Debug().Msg("[session] discarding refresh result for an ended session")
		return nil, apperrors.NewAuthError(apperrors.ErrNoSession, nil)
	}
	m.installLocked(cred, nil, true)
	m.lock.Unlock()

	m.logger.Debug().Str("trigger", string(trigger)).Msg("[session] credential refreshed")
	return cred, nil
}

// replacedLocked returns the installed credential when a request-path caller saw an
// older token and the installed one is still usable
func (m *Manager) replacedLocked(trigger Trigger, seen string) *credentials.Credential {
	switch trigger {
	case TriggerNoCredential, TriggerPreflight, TriggerUnauthorized:
	default:
		return nil
	}
	token := m.cred.AccessToken
	if token == "" || token == seen || tokenclock.IsExpiringWithin(token, m.cfg.ReactiveThreshold, m.clock.Now()) {
		return nil
	}
	return m.cred.Clone()
}

func (m *Manager) finishFlight(done chan struct{}) {
	m.lock.Lock()
	if m.flightDone == done {
		m.flightDone = nil
	}
	m.lock.Unlock()
	close(done)
}

// expire ends the session after a failed refresh, unless it already ended
func (m *Manager) expire(gen uint64, cause error) {
	m.lock.Lock()
	if gen != m.generation {
		m.lock.Unlock()
		return
	}
	m.generation++
	m.cred = nil
	m.user = nil
	m.state = StateExpired
	m.stopTimerLocked()
	if err := m.store.Clear(); err != nil {
		m.logger.Err(err).Msg("[session] failed to clear durable store")
	}
	m.lock.Unlock()

	m.logger.Err(cause).Msg("[session] refresh failed, session expired")
	m.metrics.SessionEnded(EndExpired)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RefreshTimeout)
	defer cancel()
	if err := m.runHooks(ctx, EndExpired); err != nil {
		m.logger.Err(err).Msg("[session] session end hooks failed")
	}
}

// installLocked replaces the credential, persists it and re-arms the schedule
func (m *Manager) installLocked(cred *credentials.Credential, user *identity.User, refreshed bool) {
	m.generation++
	m.cred = cred
	if user != nil {
		m.user = user
	}
	m.state = StateAuthenticated
	m.stopTimerLocked()

	if err := m.store.SaveCredential(cred); err != nil {
		m.logger.Err(err).Msg("[session] failed to persist credential")
	}
	m.scheduleLocked(cred.AccessToken, m.generation, refreshed)
}

// scheduleLocked arms the proactive refresh. A credential that a refresh just produced
// and that is already inside the lead window is re-armed at half its remaining life.
func (m *Manager) scheduleLocked(accessToken string, gen uint64, refreshed bool) {
	if m.closed {
		return
	}
	expiry, ok := tokenclock.ExpiryInstant(accessToken)
	if !ok {
		m.logger.Debug().Msg("[session] access token expiry unreadable, relying on reactive refresh")
		return
	}

	now := m.clock.Now()
	delay := tokenclock.RefreshDelay(expiry, now, m.cfg.RefreshLeadTime)
	if delay == 0 && refreshed {
		remaining := expiry.Sub(now)
		if remaining <= 0 {
			return
		}
		delay = remaining / 2
	}

	if delay == 0 {
		go m.scheduledRefresh(gen)
		return
	}
	m.timer = m.clock.AfterFunc(delay, func() { m.scheduledRefresh(gen) })
}

func (m *Manager) scheduledRefresh(gen uint64) {
	m.lock.RLock()
	stale := m.closed || gen != m.generation
	m.lock.RUnlock()
	if stale {
		return
	}
	if _, err := m.refresh(context.Background(), TriggerScheduled, ""); err != nil {
		m.logger.Err(err).Msg("[session] scheduled refresh failed")
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) runHooks(ctx context.Context, reason EndReason) error {
	m.lock.RLock()
	hooks := append([]SessionEndHook(nil), m.hooks...)
	m.lock.RUnlock()

	var result *multierror.Error
	for _, hook := range hooks {
		if err := hook(ctx, reason); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// noSession surfaces refresh failures on the request path as AuthError(NoSession)
func noSession(err error) error {
	var authErr *apperrors.AuthError
	if apperrors.As(err, &authErr) && authErr.Kind == apperrors.ErrNoSession {
		return err
	}
	if apperrors.Is(err, context.Canceled) || apperrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewAuthError(apperrors.ErrNoSession, err)
}
