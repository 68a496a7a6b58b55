package tenants

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	RouteTenants     = "/organizations"
	QueryParamTenant = "organization_id"
)

// Store tracks the tenants available to the principal and the active selection.
// It is the only writer of the selection record and the one place tenant invalidation happens.
type Store struct {
	api       Requester
	selection SelectionRepo
	cache     CacheInvalidator
	logger    zerolog.Logger

	lock       sync.RWMutex
	tenants    []Tenant
	loaded     bool
	selectedID string
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(api Requester, selection SelectionRepo, cache CacheInvalidator, opts ...Option) *Store {
	s := &Store{
		api:       api,
		selection: selection,
		cache:     cache,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores the persisted selection into memory
func (s *Store) Hydrate() error {
	id, err := s.selection.LoadSelectedTenant()
	if err != nil {
		return apperrors.Wrapf(err, "[tenants] hydrate selection")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.selectedID = id
	return nil
}

// LoadTenants fetches the tenant list and applies the default selection rule.
// A failed fetch leaves the list, the selection and the cache untouched.
func (s *Store) LoadTenants(ctx context.Context) ([]Tenant, error) {
	resp, err := s.api.Do(ctx, session.Request{Method: http.MethodGet, Path: RouteTenants})
	if err != nil {
		return nil, &apperrors.FetchError{Err: err}
	}
	list, err := DecodeTenants(resp.Body)
	if err != nil {
		return nil, &apperrors.FetchError{Err: err}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	s.tenants = list
	s.loaded = true

	current := s.selectedID
	if current == "" {
		if current, err = s.selection.LoadSelectedTenant(); err != nil {
			s.logger.Err(err).Msg("[tenants] failed to read persisted selection")
		}
	}

	next := defaultSelection(list, current)
	if next == current {
		s.selectedID = next
		return s.tenantsLocked(), nil
	}

	if next == "" {
		err = s.selection.ClearSelectedTenant()
	} else {
		err = s.selection.SaveSelectedTenant(next)
	}
	if err != nil {
		s.logger.Err(err).Str("tenant", next).Msg("[tenants] failed to persist selection")
	}
	s.selectedID = next
	if current != "" {
		s.cache.InvalidateTenantScoped()
	}

	s.logger.Debug().Str("previous", current).Str("selected", next).Msg("[tenants] selection changed on load")
	return s.tenantsLocked(), nil
}

// SelectTenant accepts ids missing from the last loaded set; the next load reconciles them.
// Order: persist, update memory, invalidate every tenant scoped cache entry.
func (s *Store) SelectTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("[tenants] tenant id is required")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if tenantID == s.selectedID {
		return nil
	}
	if s.loaded && s.indexLocked(tenantID) < 0 {
		s.logger.Warn().Str("tenant", tenantID).Msg("[tenants] selecting a tenant absent from the last loaded set")
	}

	if err := s.selection.SaveSelectedTenant(tenantID); err != nil {
		return apperrors.Wrapf(err, "[tenants] select %s", tenantID)
	}
	s.selectedID = tenantID
	evicted := s.cache.InvalidateTenantScoped()

	s.logger.Info().Str("tenant", tenantID).Int("evicted", evicted).Msg("[tenants] tenant selected")
	return nil
}

// Scope adds the selected tenant to a request
func (s *Store) Scope(req *session.Request) error {
	id := s.SelectedID()
	if id == "" {
		return apperrors.ErrNoTenantSelected
	}
	req.SetQuery(QueryParamTenant, id)
	return nil
}

// Clear drops the list, the selection, the durable selection record and the whole cache
func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tenants = nil
	s.loaded = false
	s.selectedID = ""
	s.cache.Clear()
	return apperrors.Wrapf(s.selection.ClearSelectedTenant(), "[tenants] clear selection")
}

func (s *Store) SelectedID() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.selectedID
}

// Selected returns the selected tenant when it is part of the loaded set
func (s *Store) Selected() (Tenant, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if i := s.indexLocked(s.selectedID); i >= 0 {
		return s.tenants[i], true
	}
	return Tenant{}, false
}

func (s *Store) Tenants() []Tenant {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.tenantsLocked()
}

// OnboardingRequired is true once a load returned no tenants
func (s *Store) OnboardingRequired() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.loaded && len(s.tenants) == 0
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range s.tenants {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) tenantsLocked() []Tenant {
	return append([]Tenant(nil), s.tenants...)
}
