package driving

import (
	"context"

	"github.com/tably-labs/tably-cli/internal/core/domain"
)

// Command is the closed set of messages the engine accepts from the
// application. Each variant is a distinct type so dispatch is an
// exhaustive type switch checked at compile time, not a string-keyed
// lookup.
type Command interface {
	isCommand()
}

// StoreDataCommand bulk-replaces a record partition with the given
// records (clear, then write).
type StoreDataCommand struct {
	Partition domain.Partition
	Records   []domain.Record
}

// GetDataCommand reads back all records of a partition.
type GetDataCommand struct {
	Partition domain.Partition
}

// ForceSyncCommand triggers an immediate drain of the sync queue.
type ForceSyncCommand struct{}

// ClearCacheCommand wipes the HTTP cache.
type ClearCacheCommand struct{}

// CacheStatusCommand reports cache and queue occupancy.
type CacheStatusCommand struct{}

func (StoreDataCommand) isCommand()   {}
func (GetDataCommand) isCommand()     {}
func (ForceSyncCommand) isCommand()   {}
func (ClearCacheCommand) isCommand()  {}
func (CacheStatusCommand) isCommand() {}

// Reply is the plain-data response to a Command.
type Reply struct {
	// Records is populated for GetDataCommand.
	Records []domain.Record

	// Drain is populated for ForceSyncCommand.
	Drain *domain.DrainResult

	// Cache is populated for CacheStatusCommand.
	Cache *domain.CacheStatus

	// Queue is populated for CacheStatusCommand.
	Queue *domain.QueueStatus
}

// Engine is the offline engine facade: one instance per process owning
// the store, the queue and the connectivity controller, with explicit
// init and teardown.
type Engine interface {
	// Execute dispatches a command and resolves with its reply.
	Execute(ctx context.Context, cmd Command) (*Reply, error)

	// Request serves an application resource request through the cache
	// strategy router. Failed writes are redirected into the sync
	// queue; the caller sees a queued-accepted response, not an error.
	Request(ctx context.Context, method, url string, headers map[string]string, body []byte) (*EngineResponse, error)

	// Close tears the engine down.
	Close() error
}

// EngineResponse is the engine's reply to a resource request.
type EngineResponse struct {
	Status      int
	ContentType string
	Body        []byte

	// Queued is true when a write could not reach the remote store and
	// was deferred for replay.
	Queued bool

	// TaskID is the sync task holding the deferred write.
	TaskID string
}
