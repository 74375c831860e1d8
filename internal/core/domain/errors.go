package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record or cache entry does not exist.
	// A cache miss is a defined outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates local persistence failed (quota, corruption).
	// Surfaced to the caller; the engine never retries storage operations
	// implicitly and never crashes the host process over one.
	ErrStorage = errors.New("storage failure")

	// ErrNetwork indicates a transient fetch failure. Reads fall back to
	// the cache; writes are queued for replay instead of failing.
	ErrNetwork = errors.New("network failure")

	// ErrRetryExhausted indicates a sync task exceeded its retry budget
	// and was permanently dropped from the queue.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrDrainInProgress indicates a drain pass is already running.
	// The overlapping trigger is dropped, not queued.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine closed")

	// ErrUnknownPartition indicates a partition name outside the known set.
	ErrUnknownPartition = errors.New("unknown partition")
)
