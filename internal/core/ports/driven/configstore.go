package driven

import "github.com/tably-labs/tably-cli/internal/core/domain"

// ConfigStore loads and persists the engine configuration.
type ConfigStore interface {
	// Load returns the current configuration, falling back to defaults
	// for unset fields.
	Load() (domain.EngineConfig, error)

	// Save persists the configuration.
	Save(cfg domain.EngineConfig) error

	// Watch invokes fn with the reloaded configuration whenever the
	// backing file changes. Returns a stop function.
	Watch(fn func(domain.EngineConfig)) (stop func(), err error)
}
