package memstore

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jrsteele09/go-console-session/credentials"
	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
)

var _ credentials.Store = (*MemStore)(nil)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemStore is a thread-safe in-memory credentials.Store
type MemStore struct {
	entries map[string]entry
	clock   clock.Clock
	lock    sync.RWMutex
}

func New() *MemStore {
	return NewWithClock(clock.New())
}

// NewWithClock lets tests drive key expiry
func NewWithClock(c clock.Clock) *MemStore {
	return &MemStore{
		entries: make(map[string]entry),
		clock:   c,
	}
}

func (s *MemStore) Get(key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	e, ok := s.entries[key]
	if !ok || (!e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt)) {
		return "", apperrors.ErrNotFound
	}
	return e.value, nil
}

func (s *MemStore) Set(key, value string, ttl time.Duration) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Keys returns the live keys; used by tests asserting logout completeness
func (s *MemStore) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	now := s.clock.Now()
	keys := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			keys = append(keys, k)
		}
	}
	return keys
}
