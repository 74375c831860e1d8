package domain

import "time"

// EventType identifies a notification emitted by the engine.
type EventType string

const (
	// EventSyncCompleted reports a finished drain pass.
	EventSyncCompleted EventType = "sync_completed"

	// EventSyncFailed reports a task dropped after retry exhaustion.
	EventSyncFailed EventType = "sync_failed"

	// EventOffline reports a transition to offline.
	EventOffline EventType = "offline"

	// EventOnline reports a transition back online.
	EventOnline EventType = "online"

	// EventWriteQueued reports a write deferred for later replay.
	// The application shows "offline, will sync later" on this, not an
	// error.
	EventWriteQueued EventType = "write_queued"
)

// Event is a fire-and-forget signal to any listening UI. Delivery is
// best-effort; emitting never blocks engine progress.
type Event struct {
	// Type classifies the event.
	Type EventType

	// At is when the event was emitted.
	At time.Time

	// Drain carries the pass summary for sync events.
	Drain *DrainResult

	// TaskID identifies the affected task for per-task events.
	TaskID string

	// Detail is an optional human-readable message.
	Detail string
}
