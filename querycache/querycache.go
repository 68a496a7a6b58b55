package querycache

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Family groups queries by the kind of data they return
type Family string

const (
	FamilyTools     Family = "tools"
	FamilyDashboard Family = "dashboard"
	FamilyAnalytics Family = "analytics"
	FamilyUsers     Family = "users"
	FamilyLogs      Family = "logs"

	// Principal level, not tied to a tenant
	FamilyProfile Family = "profile"
	FamilyTenants Family = "tenants"
)

// TenantScoped reports whether entries of this family belong to a tenant
func (f Family) TenantScoped() bool {
	switch f {
	case FamilyProfile, FamilyTenants:
		return false
	default:
		return true
	}
}

// Key identifies a cached query. Params is the canonical query string.
type Key struct {
	Family   Family
	TenantID string
	Params   string
}

func NewKey(family Family, tenantID string, params url.Values) Key {
	if !family.TenantScoped() {
		tenantID = ""
	}
	return Key{Family: family, TenantID: tenantID, Params: params.Encode()}
}

func (k Key) String() string {
	return string(k.Family) + "|" + k.TenantID + "|" + k.Params
}

type entry struct {
	data []byte
	tag  string // tenant id at write time, "" for principal level
}

const (
	DefaultSize = 512
	DefaultTTL  = 5 * time.Minute
)

// Cache holds opaque JSON responses tagged by tenant
type Cache struct {
	entries *expirable.LRU[Key, entry]
	flights singleflight.Group
	logger  zerolog.Logger

	lock  sync.Mutex
	epoch uint64 // bumped by every invalidation
}

type Option func(*Cache)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func New(size int, ttl time.Duration, opts ...Option) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: expirable.NewLRU[Key, entry](size, nil, ttl),
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a response. A tenant scoped key must carry a tenant id.
func (c *Cache) Set(key Key, data []byte) error {
	if key.Family.TenantScoped() && key.TenantID == "" {
		return apperrors.Wrapf(apperrors.ErrNoTenantSelected, "[querycache] %s entries need a tenant", key.Family)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.add(key, data)
	return nil
}

func (c *Cache) Get(key Key) ([]byte, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// InvalidateTenant evicts every entry tagged with tenantID
func (c *Cache) InvalidateTenant(tenantID string) int {
	return c.evict(func(e entry) bool { return e.tag != "" && e.tag == tenantID })
}

// InvalidateTenantScoped evicts every tenant tagged entry, leaving principal level data
func (c *Cache) InvalidateTenantScoped() int {
	return c.evict(func(e entry) bool { return e.tag != "" })
}

func (c *Cache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.epoch++
	c.entries.Purge()
}

// Fetch reads through the cache. Concurrent misses on one key share a single load, and a
// load that started before an invalidation is returned but not stored.
func (c *Cache) Fetch(ctx context.Context, key Key, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}
	if key.Family.TenantScoped() && key.TenantID == "" {
		return nil, apperrors.Wrapf(apperrors.ErrNoTenantSelected, "[querycache] %s entries need a tenant", key.Family)
	}

	// The load outlives any one caller; each caller stops waiting on its own ctx
	loadCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (interface{}, error) {
		c.lock.Lock()
		epoch := c.epoch
		c.lock.Unlock()

		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.lock.Lock()
		defer c.lock.Unlock()
		if epoch == c.epoch {
			c.add(key, data)
		} else {
			c.logger.Debug().Str("key", key.String()).Msg("[querycache] dropping result loaded before invalidation")
		}
		return data, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) add(key Key, data []byte) {
	e := entry{data: data}
	if key.Family.TenantScoped() {
		e.tag = key.TenantID
	}
	c.entries.Add(key, e)
}

func (c *Cache) evict(match func(entry) bool) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.epoch++

	evicted := 0
	for _, k := range c.entries.Keys() {
		if e, ok := c.entries.Peek(k); ok && match(e) {
			c.entries.Remove(k)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Msg("[querycache] invalidated tenant entries")
	}
	return evicted
}
