package driving

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// CacheRouter routes each outbound resource request to a caching policy
// and enforces the global size budget and per-entry TTLs.
type CacheRouter interface {
	// Route matches the request against the ordered rule list and
	// returns the winning rule. The fallback is network-first with the
	// default TTL.
	Route(req driven.Request) domain.CacheRule

	// Handle serves the request under its routed strategy, writing
	// successful network fetches through to the cache store.
	Handle(ctx context.Context, req driven.Request) (*driven.Response, error)

	// Evict brings the cache back under budget, removing oldest
	// entries first. Best-effort under concurrent writers.
	Evict(ctx context.Context) error

	// Status reports cache occupancy.
	Status(ctx context.Context) (domain.CacheStatus, error)

	// Purge wipes the whole cache.
	Purge(ctx context.Context) error
}

// CacheStrategy serves one request under a single caching policy.
// Strategies are constructor-injected from a static registry; there is
// no runtime lookup by name.
type CacheStrategy interface {
	// Handle serves the request, consulting cache and network as the
	// policy dictates.
	Handle(ctx context.Context, req driven.Request, rule domain.CacheRule) (*driven.Response, error)
}
