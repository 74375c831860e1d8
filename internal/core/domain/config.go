package domain

import "time"

// EngineConfig holds the tunables of the offline engine.
type EngineConfig struct {
	// DataDir is where the persistent store lives.
	// Empty means the platform default (~/.tably/data).
	DataDir string

	// RemoteBaseURL is the base URL of the remote platform API.
	RemoteBaseURL string

	// CacheBudgetBytes caps the aggregate cache size. Oldest entries
	// are evicted first when the budget is exceeded.
	CacheBudgetBytes int64

	// DefaultTTL applies to cache entries written under the fallback rule.
	DefaultTTL time.Duration

	// MaxRetries bounds replay attempts per sync task.
	MaxRetries int

	// DrainBatchSize is how many tasks one drain pass processes per batch.
	DrainBatchSize int

	// DrainInterval is the periodic fallback drain cadence, catching
	// work left behind by missed connectivity transitions.
	DrainInterval time.Duration

	// ProbeInterval is how often connectivity is checked.
	ProbeInterval time.Duration

	// RequestTimeout bounds each individual network call. An in-flight
	// drain batch has no further timeout of its own.
	RequestTimeout time.Duration

	// ReplayRate caps sync-task replays per second on reconnect.
	ReplayRate float64

	// Precache is the fixed critical-resource set fetched at install.
	Precache []string

	// Rules is the ordered cache routing table. First match wins;
	// the fallback is network-first with DefaultTTL.
	Rules []CacheRule
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CacheBudgetBytes: 50 * 1024 * 1024,
		DefaultTTL:       5 * time.Minute,
		MaxRetries:       3,
		DrainBatchSize:   5,
		DrainInterval:    30 * time.Second,
		ProbeInterval:    10 * time.Second,
		RequestTimeout:   15 * time.Second,
		ReplayRate:       20,
		Precache: []string{
			"/",
			"/manifest.json",
			"/offline.html",
		},
		Rules: []CacheRule{
			{Pattern: "/api/menu", Strategy: StrategyCacheFirst, TTL: time.Hour},
			{Pattern: "/api/settings", Strategy: StrategyCacheFirst, TTL: time.Hour},
			{Pattern: "/api/orders", Strategy: StrategyNetworkFirst, TTL: time.Minute},
			{Pattern: "/api/inventory", Strategy: StrategyNetworkFirst, TTL: 5 * time.Minute},
			{Pattern: "/api/customers", Strategy: StrategyNetworkFirst, TTL: 5 * time.Minute},
			{Pattern: "*/static/*", Strategy: StrategyStaleWhileRevalidate, TTL: 24 * time.Hour},
		},
	}
}
