package driving

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
)

// Connectivity is the single source of truth for online/offline state
// and for triggering queue drains at the right moments. It also governs
// the cache generation lifecycle from install to retirement.
type Connectivity interface {
	// Start installs the current generation (precache), activates it
	// and begins watching connectivity. Blocks until ctx is cancelled
	// or Stop is called.
	Start(ctx context.Context) error

	// Stop cancels the owned timers, finishes any in-flight drain and
	// retires the generation.
	Stop() error

	// State returns the current connectivity snapshot.
	State() domain.ConnectivityState

	// Phase returns the lifecycle phase of the active generation.
	Phase() domain.GenerationPhase

	// SetOnline force-feeds a connectivity observation, used by hosts
	// that receive platform online/offline events directly.
	SetOnline(online bool)
}
