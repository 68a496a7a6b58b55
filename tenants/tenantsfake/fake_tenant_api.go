package tenantsfake

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/session"
	"github.com/jrsteele09/go-console-session/tenants"
)

var _ tenants.Requester = (*FakeTenantAPI)(nil)

// FakeTenantAPI serves GET /organizations from memory, in insertion order
type FakeTenantAPI struct {
	tenants  []tenants.Tenant
	failWith error
	requests []session.Request
	lock     sync.RWMutex
}

func NewFakeTenantAPI(list ...tenants.Tenant) *FakeTenantAPI {
	return &FakeTenantAPI{tenants: append([]tenants.Tenant(nil), list...)}
}

func (f *FakeTenantAPI) Upsert(t tenants.Tenant) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	for i := range f.tenants {
		if f.tenants[i].ID == t.ID {
			f.tenants[i] = t
			return
		}
	}
	f.tenants = append(f.tenants, t)
}

func (f *FakeTenantAPI) Delete(tenantID string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for i := range f.tenants {
		if f.tenants[i].ID == tenantID {
			f.tenants = append(f.tenants[:i], f.tenants[i+1:]...)
			return
		}
	}
}

// FailWith makes subsequent calls fail with err; nil restores normal service
func (f *FakeTenantAPI) FailWith(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failWith = err
}

func (f *FakeTenantAPI) Requests() []session.Request {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]session.Request(nil), f.requests...)
}

func (f *FakeTenantAPI) Do(_ context.Context, req session.Request) (*session.Response, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.requests = append(f.requests, req)

	if f.failWith != nil {
		return nil, f.failWith
	}
	if req.Method != http.MethodGet || req.Path != tenants.RouteTenants {
		return nil, &apperrors.RequestError{Status: http.StatusNotFound}
	}

	list := f.tenants
	if list == nil {
		list = []tenants.Tenant{}
	}
	body, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return &session.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
}
