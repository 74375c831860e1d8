package domain

import (
	"strings"
	"time"
)

// Task priorities. Higher values drain first. Order writes outrank
// inventory writes, which outrank everything else.
const (
	PriorityDefault   = 1
	PriorityInventory = 2
	PriorityOrder     = 3
)

// TaskTypeAPIRequest is the task type for a deferred HTTP mutation.
const TaskTypeAPIRequest = "api_request"

// SyncTask is a deferred mutation awaiting transmission to the remote
// store. Tasks survive process restarts and are dropped permanently once
// the retry budget is exhausted.
type SyncTask struct {
	// ID uniquely identifies the task.
	ID string

	// Type is the domain operation, e.g. "api_request".
	Type string

	// Payload is the snapshot of the request to replay.
	Payload TaskPayload

	// CreatedAt orders tasks of equal priority (FIFO).
	CreatedAt time.Time

	// RetryCount increases on each failed replay attempt.
	RetryCount int

	// Priority is set at enqueue time and immutable thereafter.
	// Higher values are more urgent.
	Priority int
}

// TaskPayload is the request snapshot carried by a sync task.
type TaskPayload struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// QueueStatus is a snapshot of the sync queue for UI and telemetry.
type QueueStatus struct {
	// Count is the number of tasks currently queued.
	Count int

	// Pending is the number of tasks that have not yet been attempted.
	Pending int

	// Failed is the number of tasks dropped after retry exhaustion
	// since the engine started.
	Failed int
}

// DrainResult summarises one drain pass over the queue.
type DrainResult struct {
	// Successful is the number of tasks replayed and removed.
	Successful int

	// Failed is the number of tasks dropped after exhausting retries.
	Failed int

	// Remaining is the number of tasks still queued after the pass.
	Remaining int
}

// PriorityForURL assigns a replay priority from the mutation target.
// Order-related writes rank above inventory writes rank above the rest.
func PriorityForURL(url string) int {
	switch {
	case strings.Contains(url, "/orders"):
		return PriorityOrder
	case strings.Contains(url, "/inventory"):
		return PriorityInventory
	default:
		return PriorityDefault
	}
}
