package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// mockProbe reports a settable connectivity observation.
type mockProbe struct {
	mu     sync.Mutex
	online bool
}

func (p *mockProbe) Online(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

func (p *mockProbe) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

// mockQueue counts drain passes and reports a settable queue depth.
type mockQueue struct {
	mu     sync.Mutex
	drains int
	count  int
}

func (q *mockQueue) Enqueue(_ context.Context, _ domain.SyncTask) error { return nil }

func (q *mockQueue) Drain(_ context.Context) (*domain.DrainResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drains++
	q.count = 0
	return &domain.DrainResult{}, nil
}

func (q *mockQueue) Status(_ context.Context) (domain.QueueStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.QueueStatus{Count: q.count, Pending: q.count}, nil
}

func (q *mockQueue) Clear(_ context.Context) error { return nil }

func (q *mockQueue) drainCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drains
}

func (q *mockQueue) setCount(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.count = n
}

// mockRouter records which URLs were precached.
type mockRouter struct {
	mu      sync.Mutex
	handled []string
	err     error
}

func (r *mockRouter) Route(_ driven.Request) domain.CacheRule { return domain.CacheRule{} }

func (r *mockRouter) Handle(_ context.Context, req driven.Request) (*driven.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, req.URL)
	if r.err != nil {
		return nil, r.err
	}
	return &driven.Response{Status: 200}, nil
}

func (r *mockRouter) Evict(_ context.Context) error { return nil }

func (r *mockRouter) Status(_ context.Context) (domain.CacheStatus, error) {
	return domain.CacheStatus{}, nil
}

func (r *mockRouter) Purge(_ context.Context) error { return nil }

func (r *mockRouter) handledURLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.handled...)
}

func connectivityTestConfig() domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()
	// Long enough that tickers never fire unless a test wants them to.
	cfg.ProbeInterval = time.Hour
	cfg.DrainInterval = time.Hour
	return cfg
}

// startConnectivity runs Start in the background and waits for the
// generation to activate.
func startConnectivity(t *testing.T, c *Connectivity) {
	t.Helper()
	go func() { _ = c.Start(context.Background()) }()
	require.Eventually(t, func() bool {
		return c.Phase() == domain.PhaseActive
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnectivity_StartPrecachesAndActivates(t *testing.T) {
	probe := &mockProbe{online: true}
	queue := &mockQueue{}
	router := &mockRouter{}
	conn := NewConnectivity(connectivityTestConfig(), probe, queue, router, &captureNotifier{})

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	assert.ElementsMatch(t, []string{"/", "/manifest.json", "/offline.html"}, router.handledURLs())
	assert.True(t, conn.State().Online)
}

func TestConnectivity_OfflineInstallSkipsPrecache(t *testing.T) {
	probe := &mockProbe{online: false}
	router := &mockRouter{}
	conn := NewConnectivity(connectivityTestConfig(), probe, &mockQueue{}, router, &captureNotifier{})

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	assert.Empty(t, router.handledURLs())
	assert.False(t, conn.State().Online)
}

func TestConnectivity_InstallFailsWhenEveryPrecacheFetchFails(t *testing.T) {
	probe := &mockProbe{online: true}
	router := &mockRouter{err: domain.ErrNetwork}
	conn := NewConnectivity(connectivityTestConfig(), probe, &mockQueue{}, router, &captureNotifier{})

	err := conn.Start(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, domain.PhaseActive, conn.Phase())
}

func TestConnectivity_ReconnectDrainsExactlyOnce(t *testing.T) {
	probe := &mockProbe{online: false}
	queue := &mockQueue{}
	notifier := &captureNotifier{}
	conn := NewConnectivity(connectivityTestConfig(), probe, queue, &mockRouter{}, notifier)

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	conn.SetOnline(true)
	require.Eventually(t, func() bool {
		return queue.drainCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Repeating the same observation is not a transition.
	conn.SetOnline(true)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, queue.drainCount())

	online := notifier.byType(domain.EventOnline)
	assert.Len(t, online, 1)
}

func TestConnectivity_OfflineTransitionAnnouncedWithoutDrain(t *testing.T) {
	probe := &mockProbe{online: true}
	queue := &mockQueue{}
	notifier := &captureNotifier{}
	conn := NewConnectivity(connectivityTestConfig(), probe, queue, &mockRouter{}, notifier)

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	conn.SetOnline(false)
	require.Eventually(t, func() bool {
		return len(notifier.byType(domain.EventOffline)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, conn.State().Online)
	assert.Equal(t, 1, queue.drainCount(), "only the bootstrap drain ran")
}

func TestConnectivity_BootstrapOnlineDrainsBacklogSilently(t *testing.T) {
	probe := &mockProbe{online: true}
	queue := &mockQueue{count: 2} // Backlog persisted from a prior session.
	notifier := &captureNotifier{}
	conn := NewConnectivity(connectivityTestConfig(), probe, queue, &mockRouter{}, notifier)

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	require.Eventually(t, func() bool {
		return queue.drainCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, notifier.byType(domain.EventOnline), "bootstrap is a baseline, not a transition")
}

func TestConnectivity_PeriodicDrainWhenWorkIsQueued(t *testing.T) {
	cfg := connectivityTestConfig()
	cfg.DrainInterval = 20 * time.Millisecond
	probe := &mockProbe{online: true}
	queue := &mockQueue{}
	conn := NewConnectivity(cfg, probe, queue, &mockRouter{}, &captureNotifier{})

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	// The bootstrap observation already drained once; the fallback
	// ticker accounts for any pass beyond that.
	queue.setCount(3)
	require.Eventually(t, func() bool {
		return queue.drainCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnectivity_PeriodicDrainSkippedWhileOffline(t *testing.T) {
	cfg := connectivityTestConfig()
	cfg.DrainInterval = 20 * time.Millisecond
	probe := &mockProbe{online: false}
	queue := &mockQueue{}
	conn := NewConnectivity(cfg, probe, queue, &mockRouter{}, &captureNotifier{})

	startConnectivity(t, conn)
	defer func() { require.NoError(t, conn.Stop()) }()

	queue.setCount(3)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, queue.drainCount())
}

func TestConnectivity_StopRetiresGeneration(t *testing.T) {
	probe := &mockProbe{online: true}
	conn := NewConnectivity(connectivityTestConfig(), probe, &mockQueue{}, &mockRouter{}, &captureNotifier{})

	startConnectivity(t, conn)
	require.NoError(t, conn.Stop())
	assert.Equal(t, domain.PhaseRetiring, conn.Phase())

	// Stop is idempotent.
	require.NoError(t, conn.Stop())
}
