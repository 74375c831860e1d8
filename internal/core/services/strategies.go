package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure the strategies implement the interface.
var (
	_ driving.CacheStrategy = (*CacheFirst)(nil)
	_ driving.CacheStrategy = (*NetworkFirst)(nil)
	_ driving.CacheStrategy = (*StaleWhileRevalidate)(nil)
)

// strategyBase carries the collaborators every strategy needs.
type strategyBase struct {
	cache  driven.CacheStore
	remote driven.RemoteStore
	now    func() time.Time
}

// fetchAndStore performs a network fetch and writes successful GET
// responses through to the cache store.
func (b *strategyBase) fetchAndStore(
	ctx context.Context,
	req driven.Request,
	rule domain.CacheRule,
) (*driven.Response, error) {
	resp, err := b.remote.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.OK() && req.Method == "GET" {
		entry := domain.CacheEntry{
			Key:         domain.CacheKey(req.Method, req.URL),
			Payload:     resp.Body,
			ContentType: resp.ContentType,
			Status:      resp.Status,
			StoredAt:    b.now(),
			TTL:         rule.TTL,
			Strategy:    rule.Strategy,
		}
		if putErr := b.cache.PutEntry(ctx, entry); putErr != nil {
			// A failed write-through does not fail the request.
			logger.Warn("cache write-through failed for %s: %v", entry.Key, putErr)
		}
	}

	return resp, nil
}

// lookup fetches the cached entry for a request, mapping a miss to nil.
func (b *strategyBase) lookup(ctx context.Context, req driven.Request) (*domain.CacheEntry, error) {
	entry, err := b.cache.GetEntry(ctx, domain.CacheKey(req.Method, req.URL))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	return entry, nil
}

func entryResponse(entry *domain.CacheEntry) *driven.Response {
	return &driven.Response{
		Status:      entry.Status,
		ContentType: entry.ContentType,
		Body:        entry.Payload,
	}
}

// CacheFirst serves fresh cached entries without touching the network.
// Stale or missing entries fall through to a revalidating fetch; a
// network failure with no cached entry propagates.
type CacheFirst struct {
	strategyBase
}

// NewCacheFirst creates the cache-first strategy.
func NewCacheFirst(cache driven.CacheStore, remote driven.RemoteStore, now func() time.Time) *CacheFirst {
	return &CacheFirst{strategyBase{cache: cache, remote: remote, now: now}}
}

// Handle serves the request cache-first.
func (s *CacheFirst) Handle(
	ctx context.Context,
	req driven.Request,
	rule domain.CacheRule,
) (*driven.Response, error) {
	entry, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	if entry != nil && entry.IsFresh(s.now()) {
		logger.Debug("cache-first hit: %s", entry.Key)
		return entryResponse(entry), nil
	}

	// Miss or stale: revalidate against the network.
	resp, err := s.fetchAndStore(ctx, req, rule)
	if err != nil {
		if entry != nil {
			// Revalidation failed; a stale entry still beats nothing.
			logger.Debug("cache-first revalidation failed, serving stale: %s", entry.Key)
			return entryResponse(entry), nil
		}
		return nil, fmt.Errorf("cache-first fetch: %w", err)
	}
	return resp, nil
}

// NetworkFirst tries the network and falls back to any cached entry,
// stale included, since the alternative is failure. With no entry it
// synthesizes a well-formed offline response for API-shaped requests.
type NetworkFirst struct {
	strategyBase
}

// NewNetworkFirst creates the network-first strategy.
func NewNetworkFirst(cache driven.CacheStore, remote driven.RemoteStore, now func() time.Time) *NetworkFirst {
	return &NetworkFirst{strategyBase{cache: cache, remote: remote, now: now}}
}

// Handle serves the request network-first.
func (s *NetworkFirst) Handle(
	ctx context.Context,
	req driven.Request,
	rule domain.CacheRule,
) (*driven.Response, error) {
	resp, err := s.fetchAndStore(ctx, req, rule)
	if err == nil {
		return resp, nil
	}

	entry, lookupErr := s.lookup(ctx, req)
	if lookupErr == nil && entry != nil {
		logger.Debug("network-first fallback to cache: %s", entry.Key)
		return entryResponse(entry), nil
	}

	if isAPIRequest(req.URL) {
		logger.Debug("network-first synthesizing offline response: %s", req.URL)
		return offlineResponse(s.now()), nil
	}

	return nil, fmt.Errorf("network-first fetch: %w", err)
}

// StaleWhileRevalidate serves whatever is cached immediately, refreshing
// the entry in the background for next time. With no cached entry it
// behaves as network-first for this one call.
type StaleWhileRevalidate struct {
	strategyBase
	fallback *NetworkFirst
}

// NewStaleWhileRevalidate creates the stale-while-revalidate strategy.
func NewStaleWhileRevalidate(
	cache driven.CacheStore,
	remote driven.RemoteStore,
	now func() time.Time,
) *StaleWhileRevalidate {
	return &StaleWhileRevalidate{
		strategyBase: strategyBase{cache: cache, remote: remote, now: now},
		fallback:     NewNetworkFirst(cache, remote, now),
	}
}

// Handle serves the request stale-while-revalidate.
func (s *StaleWhileRevalidate) Handle(
	ctx context.Context,
	req driven.Request,
	rule domain.CacheRule,
) (*driven.Response, error) {
	entry, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		return s.fallback.Handle(ctx, req, rule)
	}

	// Refresh in the background, detached from the caller's deadline.
	// The transport applies its own per-request timeout.
	go func() {
		bg := context.WithoutCancel(ctx)
		if _, fetchErr := s.fetchAndStore(bg, req, rule); fetchErr != nil {
			logger.Debug("background revalidation failed for %s: %v", entry.Key, fetchErr)
		}
	}()

	logger.Debug("stale-while-revalidate hit: %s", entry.Key)
	return entryResponse(entry), nil
}
