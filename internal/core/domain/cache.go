package domain

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a request is served from cache and network.
type Strategy string

const (
	// StrategyCacheFirst serves a fresh cached entry without touching the
	// network; stale or missing entries are fetched and written through.
	StrategyCacheFirst Strategy = "cache-first"

	// StrategyNetworkFirst tries the network and falls back to any cached
	// entry, stale included, when the fetch fails.
	StrategyNetworkFirst Strategy = "network-first"

	// StrategyStaleWhileRevalidate serves whatever is cached immediately
	// and refreshes the entry in the background for next time.
	StrategyStaleWhileRevalidate Strategy = "stale-while-revalidate"
)

// CacheEntry is a cached response keyed by method and URL.
// Entries are owned by the cache store; no other component mutates them.
type CacheEntry struct {
	// Key identifies the entry, formed as "METHOD URL".
	Key string

	// Payload is the opaque response body.
	Payload []byte

	// ContentType is the response content type, kept so a cached reply
	// can be served with the original headers.
	ContentType string

	// Status is the HTTP status code of the cached response.
	Status int

	// StoredAt is when the entry was written or last revalidated.
	StoredAt time.Time

	// TTL is how long the entry is trusted without revalidation.
	TTL time.Duration

	// Strategy records which policy produced the entry.
	Strategy Strategy
}

// Size returns the approximate stored size of the entry in bytes.
func (e *CacheEntry) Size() int64 {
	return int64(len(e.Key) + len(e.ContentType) + len(e.Payload))
}

// IsFresh reports whether the entry is still within its TTL at the
// given instant. A stale entry must be revalidated before a cache-first
// hit may trust it.
func (e *CacheEntry) IsFresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// CacheKey builds the canonical cache key for a request.
func CacheKey(method, url string) string {
	return fmt.Sprintf("%s %s", strings.ToUpper(method), url)
}

// CacheRule maps a URL pattern to a caching policy.
// Rules are evaluated in order; the first match wins.
type CacheRule struct {
	// Pattern is a URL prefix, or a substring match when wrapped in '*'.
	Pattern string

	// Strategy is the policy applied to matching requests.
	Strategy Strategy

	// TTL applies to entries written under this rule.
	TTL time.Duration
}

// Matches reports whether a request URL falls under this rule.
func (r *CacheRule) Matches(url string) bool {
	if strings.HasPrefix(r.Pattern, "*") && strings.HasSuffix(r.Pattern, "*") && len(r.Pattern) > 1 {
		return strings.Contains(url, strings.Trim(r.Pattern, "*"))
	}
	return strings.HasPrefix(url, r.Pattern)
}

// CacheStatus is a snapshot of cache occupancy for UI and telemetry.
type CacheStatus struct {
	// Entries is the number of cached responses.
	Entries int

	// TotalSize is the approximate cumulative size in bytes.
	TotalSize int64

	// Budget is the configured size budget in bytes.
	Budget int64
}
