package driven

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
)

// RecordStore is durable, partitioned storage for mirrored records.
// Partitions are created on first write; the schema is versioned so
// adding a partition never invalidates existing ones.
//
// Storage failures are wrapped domain.ErrStorage. The store never
// retries implicitly; callers decide whether to retry, drop or alert.
type RecordStore interface {
	// Get retrieves a record by ID. A miss is domain.ErrNotFound.
	Get(ctx context.Context, partition domain.Partition, id string) (*domain.Record, error)

	// GetAll returns every record in a partition. An uninitialised
	// partition yields an empty slice, not an error.
	GetAll(ctx context.Context, partition domain.Partition) ([]domain.Record, error)

	// Put upserts a record by its own identity key.
	Put(ctx context.Context, partition domain.Partition, record domain.Record) error

	// Delete removes a record by ID. Deleting a missing record is not
	// an error.
	Delete(ctx context.Context, partition domain.Partition, id string) error

	// Clear wipes all records in a partition, used before a full bulk
	// replace.
	Clear(ctx context.Context, partition domain.Partition) error
}

// CacheStore persists HTTP cache entries with size accounting so the
// router can enforce its budget.
type CacheStore interface {
	// GetEntry retrieves a cache entry by key. A miss is
	// domain.ErrNotFound.
	GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error)

	// PutEntry upserts an entry by key.
	PutEntry(ctx context.Context, entry domain.CacheEntry) error

	// DeleteEntry removes an entry by key.
	DeleteEntry(ctx context.Context, key string) error

	// TotalSize returns the approximate cumulative entry size in bytes
	// together with the entry count. Best-effort under concurrent
	// writers.
	TotalSize(ctx context.Context) (int64, int, error)

	// EvictOldest removes up to n entries, oldest StoredAt first, and
	// returns how many were removed.
	EvictOldest(ctx context.Context, n int) (int, error)

	// PurgeAll wipes the cache, used when a generation retires.
	PurgeAll(ctx context.Context) error
}

// QueueStore persists sync tasks across process restarts. The same
// store may be shared by several engine instances; record-level
// last-write-wins is the only cross-instance guarantee.
type QueueStore interface {
	// Append adds a task to the queue.
	Append(ctx context.Context, task domain.SyncTask) error

	// List returns all queued tasks in no particular order; the drain
	// pass sorts them itself.
	List(ctx context.Context) ([]domain.SyncTask, error)

	// Update persists a task's mutated retry count.
	Update(ctx context.Context, task domain.SyncTask) error

	// Remove deletes a task by ID after successful replay or retry
	// exhaustion.
	Remove(ctx context.Context, id string) error

	// Clear empties the queue.
	Clear(ctx context.Context) error

	// Count returns the number of queued tasks.
	Count(ctx context.Context) (int, error)
}
