// Package memory provides in-memory implementations of the storage
// ports. They back tests and the ephemeral mode; nothing survives a
// process restart.
package memory
