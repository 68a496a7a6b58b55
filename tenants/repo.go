package tenants

import (
	"context"

	"github.com/jrsteele09/go-console-session/session"
)

// Requester issues authenticated calls; *session.Manager implements it
type Requester interface {
	Do(ctx context.Context, req session.Request) (*session.Response, error)
}

// SelectionRepo persists the selected tenant id; *credentials.Adapter implements it
type SelectionRepo interface {
	SaveSelectedTenant(tenantID string) error
	LoadSelectedTenant() (string, error)
	ClearSelectedTenant() error
}

// CacheInvalidator evicts cached responses; *querycache.Cache implements it
type CacheInvalidator interface {
	InvalidateTenantScoped() int
	Clear()
}
