package driving

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
)

// SyncQueue guarantees that writes issued while offline are eventually
// delivered to the remote store, with priority ordering and a bounded
// retry budget per task.
type SyncQueue interface {
	// Enqueue appends a task, persists the queue and requests a drain:
	// immediately when online, deferred to the next reconnect or
	// periodic tick otherwise.
	Enqueue(ctx context.Context, task domain.SyncTask) error

	// Drain replays queued tasks against the remote store. At most one
	// drain runs at a time; an overlapping call is a no-op returning
	// domain.ErrDrainInProgress. A single task's failure never blocks
	// the rest of the batch.
	Drain(ctx context.Context) (*domain.DrainResult, error)

	// Status returns a queue snapshot.
	Status(ctx context.Context) (domain.QueueStatus, error)

	// Clear empties the queue. The only way to stop a task short of
	// retry exhaustion.
	Clear(ctx context.Context) error
}
