package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably-labs/tably-cli/internal/adapters/driven/storage/memory"
	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// --- Mock implementations for strategy testing ---

// strategyMockRemote implements driven.RemoteStore for testing.
type strategyMockRemote struct {
	mu      sync.Mutex
	resp    *driven.Response
	err     error
	calls   int
	fetched chan struct{}
}

func newStrategyMockRemote(resp *driven.Response, err error) *strategyMockRemote {
	return &strategyMockRemote{resp: resp, err: err, fetched: make(chan struct{}, 16)}
}

func (m *strategyMockRemote) Fetch(_ context.Context, _ driven.Request) (*driven.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	select {
	case m.fetched <- struct{}{}:
	default:
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *strategyMockRemote) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *strategyMockRemote) set(resp *driven.Response, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resp = resp
	m.err = err
}

// testClock is an adjustable now() source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func okJSON(body string) *driven.Response {
	return &driven.Response{Status: 200, ContentType: "application/json", Body: []byte(body)}
}

var menuRule = domain.CacheRule{
	Pattern:  "/api/menu",
	Strategy: domain.StrategyCacheFirst,
	TTL:      time.Hour,
}

func TestCacheFirst_MissFetchesAndStores(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"items":[1]}`), nil)
	clock := newTestClock()
	strategy := NewCacheFirst(cache, remote, clock.Now)

	resp, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/api/menu"}, menuRule)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, remote.callCount())

	entry, err := cache.GetEntry(context.Background(), "GET /api/menu")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[1]}`), entry.Payload)
	assert.Equal(t, time.Hour, entry.TTL)
}

func TestCacheFirst_FreshHitSkipsNetwork(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"items":[1]}`), nil)
	clock := newTestClock()
	strategy := NewCacheFirst(cache, remote, clock.Now)
	req := driven.Request{Method: "GET", URL: "/api/menu"}

	_, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)

	// Second call 10 minutes later must be served from the store.
	clock.Advance(10 * time.Minute)
	resp, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[1]}`), resp.Body)
	assert.Equal(t, 1, remote.callCount())
}

func TestCacheFirst_StaleEntryRevalidates(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"items":[1]}`), nil)
	clock := newTestClock()
	strategy := NewCacheFirst(cache, remote, clock.Now)
	req := driven.Request{Method: "GET", URL: "/api/menu"}

	_, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)

	// After 61 minutes the entry is stale and a revalidating fetch runs.
	clock.Advance(61 * time.Minute)
	remote.set(okJSON(`{"items":[2]}`), nil)
	resp, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[2]}`), resp.Body)
	assert.Equal(t, 2, remote.callCount())

	entry, err := cache.GetEntry(context.Background(), "GET /api/menu")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[2]}`), entry.Payload)
}

func TestCacheFirst_StaleServedWhenRevalidationFails(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"items":[1]}`), nil)
	clock := newTestClock()
	strategy := NewCacheFirst(cache, remote, clock.Now)
	req := driven.Request{Method: "GET", URL: "/api/menu"}

	_, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	remote.set(nil, domain.ErrNetwork)
	resp, err := strategy.Handle(context.Background(), req, menuRule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[1]}`), resp.Body)
}

func TestCacheFirst_MissWithNetworkFailurePropagates(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(nil, domain.ErrNetwork)
	strategy := NewCacheFirst(cache, remote, newTestClock().Now)

	_, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/api/menu"}, menuRule)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestNetworkFirst_SuccessWritesThrough(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"orders":[]}`), nil)
	strategy := NewNetworkFirst(cache, remote, newTestClock().Now)
	rule := domain.CacheRule{Pattern: "/api/orders", Strategy: domain.StrategyNetworkFirst, TTL: time.Minute}

	resp, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/api/orders"}, rule)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	_, err = cache.GetEntry(context.Background(), "GET /api/orders")
	assert.NoError(t, err)
}

func TestNetworkFirst_FallsBackToStaleCache(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`{"orders":[1]}`), nil)
	clock := newTestClock()
	strategy := NewNetworkFirst(cache, remote, clock.Now)
	rule := domain.CacheRule{Pattern: "/api/orders", Strategy: domain.StrategyNetworkFirst, TTL: time.Minute}
	req := driven.Request{Method: "GET", URL: "/api/orders"}

	_, err := strategy.Handle(context.Background(), req, rule)
	require.NoError(t, err)

	// Long past the TTL the entry is stale, but stale beats failure.
	clock.Advance(time.Hour)
	remote.set(nil, domain.ErrNetwork)
	resp, err := strategy.Handle(context.Background(), req, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"orders":[1]}`), resp.Body)
}

func TestNetworkFirst_OfflineSynthesizedForAPIRequests(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(nil, domain.ErrNetwork)
	strategy := NewNetworkFirst(cache, remote, newTestClock().Now)
	rule := domain.CacheRule{Strategy: domain.StrategyNetworkFirst, TTL: time.Minute}

	resp, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/api/orders"}, rule)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Contains(t, string(resp.Body), `"offline":true`)
}

func TestNetworkFirst_FailurePropagatesForNonAPIRequests(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(nil, errors.New("connection refused"))
	strategy := NewNetworkFirst(cache, remote, newTestClock().Now)
	rule := domain.CacheRule{Strategy: domain.StrategyNetworkFirst, TTL: time.Minute}

	_, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/static/app.css"}, rule)
	assert.Error(t, err)
}

func TestStaleWhileRevalidate_ServesCachedAndRefreshes(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`v2`), nil)
	clock := newTestClock()
	strategy := NewStaleWhileRevalidate(cache, remote, clock.Now)
	rule := domain.CacheRule{Pattern: "*/static/*", Strategy: domain.StrategyStaleWhileRevalidate, TTL: time.Minute}
	req := driven.Request{Method: "GET", URL: "/static/app.js"}

	// Seed an entry that is already past its TTL.
	require.NoError(t, cache.PutEntry(context.Background(), domain.CacheEntry{
		Key:      "GET /static/app.js",
		Payload:  []byte(`v1`),
		Status:   200,
		StoredAt: clock.Now().Add(-time.Hour),
		TTL:      time.Minute,
	}))

	resp, err := strategy.Handle(context.Background(), req, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`v1`), resp.Body, "stale entry is served immediately")

	// The background refresh lands regardless.
	select {
	case <-remote.fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never fetched")
	}
	assert.Eventually(t, func() bool {
		entry, getErr := cache.GetEntry(context.Background(), "GET /static/app.js")
		return getErr == nil && string(entry.Payload) == "v2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStaleWhileRevalidate_MissBehavesAsNetworkFirst(t *testing.T) {
	cache := memory.NewCacheStore()
	remote := newStrategyMockRemote(okJSON(`v1`), nil)
	strategy := NewStaleWhileRevalidate(cache, remote, newTestClock().Now)
	rule := domain.CacheRule{Strategy: domain.StrategyStaleWhileRevalidate, TTL: time.Minute}

	resp, err := strategy.Handle(context.Background(), driven.Request{Method: "GET", URL: "/static/app.js"}, rule)
	require.NoError(t, err)
	assert.Equal(t, []byte(`v1`), resp.Body)
	assert.Equal(t, 1, remote.callCount())
}
