package domain

import "time"

// ConnectivityState is the process-wide view of network availability.
// It is derived fresh each session and never persisted. Only the
// connectivity controller mutates it; everything else reads it.
type ConnectivityState struct {
	// Online reports whether the remote store is reachable.
	Online bool

	// LastTransition is when the online flag last flipped.
	LastTransition time.Time
}

// GenerationPhase is the lifecycle phase of a cache generation. A new
// generation is installed alongside the active one, waits for the old
// one to retire, then serves until superseded itself.
type GenerationPhase int

const (
	// PhaseInstalling precaches the critical resource set.
	PhaseInstalling GenerationPhase = iota

	// PhaseWaiting means the new generation is ready but the old one
	// is still active.
	PhaseWaiting

	// PhaseActive serves requests and supervises the sync queue.
	PhaseActive

	// PhaseRetiring stops accepting work and finishes in-flight drains
	// before teardown.
	PhaseRetiring
)

// String returns the phase name.
func (p GenerationPhase) String() string {
	switch p {
	case PhaseInstalling:
		return "installing"
	case PhaseWaiting:
		return "waiting"
	case PhaseActive:
		return "active"
	case PhaseRetiring:
		return "retiring"
	default:
		return "unknown"
	}
}
