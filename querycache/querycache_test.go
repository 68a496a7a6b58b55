package querycache_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-console-session/internal/errors"
	"github.com/jrsteele09/go-console-session/querycache"
	"github.com/stretchr/testify/require"
)

func TestFamily_TenantScoped(t *testing.T) {
	for _, f := range []querycache.Family{querycache.FamilyTools, querycache.FamilyDashboard, querycache.FamilyAnalytics, querycache.FamilyUsers, querycache.FamilyLogs} {
		require.True(t, f.TenantScoped(), f)
	}
	require.False(t, querycache.FamilyProfile.TenantScoped())
	require.False(t, querycache.FamilyTenants.TenantScoped())
}

func TestCache_TenantIsolation(t *testing.T) {
	c := querycache.New(16, time.Minute)
	tools := querycache.NewKey(querycache.FamilyTools, "A", nil)
	dashboard := querycache.NewKey(querycache.FamilyDashboard, "A", url.Values{"range": {"7d"}})
	profile := querycache.NewKey(querycache.FamilyProfile, "A", nil)

	require.NoError(t, c.Set(tools, []byte(`["hammer"]`)))
	require.NoError(t, c.Set(dashboard, []byte(`{"count":3}`)))
	require.NoError(t, c.Set(profile, []byte(`{"name":"me"}`)))
	require.Empty(t, profile.TenantID, "principal level keys are never tagged")

	require.Equal(t, 2, c.InvalidateTenantScoped())

	_, ok := c.Get(tools)
	require.False(t, ok)
	_, ok = c.Get(dashboard)
	require.False(t, ok)
	data, ok := c.Get(profile)
	require.True(t, ok)
	require.Equal(t, `{"name":"me"}`, string(data))
}

func TestCache_InvalidateTenant(t *testing.T) {
	c := querycache.New(16, time.Minute)
	a := querycache.NewKey(querycache.FamilyUsers, "A", nil)
	b := querycache.NewKey(querycache.FamilyUsers, "B", nil)
	require.NoError(t, c.Set(a, []byte("a")))
	require.NoError(t, c.Set(b, []byte("b")))

	require.Equal(t, 1, c.InvalidateTenant("A"))
	_, ok := c.Get(a)
	require.False(t, ok)
	_, ok = c.Get(b)
	require.True(t, ok)

	c.Clear()
	require.Zero(t, c.Len())
}

func TestCache_SetRequiresTenantForScopedFamilies(t *testing.T) {
	c := querycache.New(16, time.Minute)
	err := c.Set(querycache.NewKey(querycache.FamilyLogs, "", nil), []byte("x"))
	require.ErrorIs(t, err, apperrors.ErrNoTenantSelected)
}

func TestCache_FetchSharesLoads(t *testing.T) {
	c := querycache.New(16, time.Minute)
	key := querycache.NewKey(querycache.FamilyAnalytics, "A", nil)

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) ([]byte, error) {
		loads.Add(1)
		<-release
		return []byte("42"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := c.Fetch(context.Background(), key, loader)
			require.NoError(t, err)
			require.Equal(t, "42", string(data))
		}()
	}
	time.Sleep(30 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load())
	data, err := c.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
		return nil, errors.New("should be cached")
	})
	require.NoError(t, err)
	require.Equal(t, "42", string(data))
}

func TestCache_FetchDropsLoadsStartedBeforeInvalidation(t *testing.T) {
	c := querycache.New(16, time.Minute)
	key := querycache.NewKey(querycache.FamilyTools, "A", nil)

	data, err := c.Fetch(context.Background(), key, func(context.Context) ([]byte, error) {
		c.InvalidateTenantScoped()
		return []byte("stale"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "stale", string(data))

	_, ok := c.Get(key)
	require.False(t, ok)
}

func TestCache_FetchError(t *testing.T) {
	c := querycache.New(16, time.Minute)
	key := querycache.NewKey(querycache.FamilyProfile, "", nil)
	boom := errors.New("boom")

	_, err := c.Fetch(context.Background(), key, func(context.Context) ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Zero(t, c.Len())
}

func TestCache_FetchSurvivesFirstCallerCancelling(t *testing.T) {
	c := querycache.New(16, time.Minute)
	key := querycache.NewKey(querycache.FamilyTools, "A", nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var loads atomic.Int32
	load := func(ctx context.Context) ([]byte, error) {
		if loads.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return []byte(`["hammer"]`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, key, load)
		first <- err
	}()
	<-started

	second := make(chan []byte, 1)
	go func() {
		data, err := c.Fetch(context.Background(), key, load)
		require.NoError(t, err)
		second <- data
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(release)
	require.Equal(t, `["hammer"]`, string(<-second))
	require.Equal(t, int32(1), loads.Load())

	data, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, `["hammer"]`, string(data))
}
