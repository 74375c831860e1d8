// Package domain defines the entities of the offline engine: cache
// entries and routing rules, sync tasks and their queue, mirrored
// records, connectivity state and the engine configuration.
//
// The domain layer has no dependencies on adapters or services; it is
// shared vocabulary for the ports around it.
package domain
