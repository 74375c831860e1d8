package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure Router implements the interface.
var _ driving.CacheRouter = (*Router)(nil)

// Router matches requests against the ordered rule list, dispatches
// them to the matching strategy and keeps the cache under its size
// budget.
type Router struct {
	cache      driven.CacheStore
	strategies map[domain.Strategy]driving.CacheStrategy
	now        func() time.Time

	mu         sync.RWMutex
	rules      []domain.CacheRule
	budget     int64
	defaultTTL time.Duration
}

// NewRouter creates a router with a static strategy registry built from
// the injected collaborators.
func NewRouter(
	cfg domain.EngineConfig,
	cache driven.CacheStore,
	remote driven.RemoteStore,
	now func() time.Time,
) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{
		cache: cache,
		strategies: map[domain.Strategy]driving.CacheStrategy{
			domain.StrategyCacheFirst:           NewCacheFirst(cache, remote, now),
			domain.StrategyNetworkFirst:         NewNetworkFirst(cache, remote, now),
			domain.StrategyStaleWhileRevalidate: NewStaleWhileRevalidate(cache, remote, now),
		},
		now:        now,
		rules:      cfg.Rules,
		budget:     cfg.CacheBudgetBytes,
		defaultTTL: cfg.DefaultTTL,
	}
}

// Route matches the request URL against the ordered rule list.
// First match wins; the fallback is network-first with the default TTL.
func (r *Router) Route(req driven.Request) domain.CacheRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Matches(req.URL) {
			return rule
		}
	}
	return domain.CacheRule{
		Pattern:  "",
		Strategy: domain.StrategyNetworkFirst,
		TTL:      r.defaultTTL,
	}
}

// Handle serves the request under its routed strategy. The budget is
// enforced opportunistically before the strategy gets a chance to
// write through.
func (r *Router) Handle(ctx context.Context, req driven.Request) (*driven.Response, error) {
	if err := r.Evict(ctx); err != nil {
		logger.Warn("pre-handle eviction failed: %v", err)
	}

	rule := r.Route(req)
	strategy, ok := r.strategies[rule.Strategy]
	if !ok {
		return nil, fmt.Errorf("%w: strategy %q", domain.ErrInvalidInput, rule.Strategy)
	}

	logger.Debug("routing %s %s via %s", req.Method, req.URL, rule.Strategy)
	return strategy.Handle(ctx, req, rule)
}

// Evict removes oldest entries until the cache is back under budget.
// Size accounting is approximate; under concurrent writers this is
// best-effort, not a hard invariant.
func (r *Router) Evict(ctx context.Context) error {
	r.mu.RLock()
	budget := r.budget
	r.mu.RUnlock()

	if budget <= 0 {
		return nil
	}

	for {
		size, _, err := r.cache.TotalSize(ctx)
		if err != nil {
			return fmt.Errorf("cache size: %w", err)
		}
		if size <= budget {
			return nil
		}

		// One entry per round keeps eviction minimal: only as many
		// entries go as the budget demands.
		removed, err := r.cache.EvictOldest(ctx, 1)
		if err != nil {
			return fmt.Errorf("evict oldest: %w", err)
		}
		if removed == 0 {
			// Nothing left to remove; accounting may be ahead of reality.
			return nil
		}
		logger.Debug("evicted %d cache entries (size %d over budget %d)", removed, size, budget)
	}
}

// Status reports cache occupancy against the configured budget.
func (r *Router) Status(ctx context.Context) (domain.CacheStatus, error) {
	size, count, err := r.cache.TotalSize(ctx)
	if err != nil {
		return domain.CacheStatus{}, fmt.Errorf("cache size: %w", err)
	}

	r.mu.RLock()
	budget := r.budget
	r.mu.RUnlock()

	return domain.CacheStatus{
		Entries:   count,
		TotalSize: size,
		Budget:    budget,
	}, nil
}

// Purge wipes the whole cache.
func (r *Router) Purge(ctx context.Context) error {
	if err := r.cache.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// Reconfigure applies reloaded tunables without restarting the engine.
func (r *Router) Reconfigure(cfg domain.EngineConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cfg.Rules) > 0 {
		r.rules = cfg.Rules
	}
	if cfg.CacheBudgetBytes > 0 {
		r.budget = cfg.CacheBudgetBytes
	}
	if cfg.DefaultTTL > 0 {
		r.defaultTTL = cfg.DefaultTTL
	}
}
