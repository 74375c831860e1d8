// Package file implements the config store port on a TOML file, with
// change notification so tunables apply without restarting the engine.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// fileConfig is the TOML shape of the engine configuration. Durations
// are strings in Go duration syntax ("30s", "1h").
type fileConfig struct {
	DataDir          string     `toml:"data_dir"`
	RemoteBaseURL    string     `toml:"remote_base_url"`
	CacheBudgetBytes int64      `toml:"cache_budget_bytes"`
	DefaultTTL       string     `toml:"default_ttl"`
	MaxRetries       int        `toml:"max_retries"`
	DrainBatchSize   int        `toml:"drain_batch_size"`
	DrainInterval    string     `toml:"drain_interval"`
	ProbeInterval    string     `toml:"probe_interval"`
	RequestTimeout   string     `toml:"request_timeout"`
	ReplayRate       float64    `toml:"replay_rate"`
	Precache         []string   `toml:"precache"`
	Rules            []fileRule `toml:"rules"`
}

// fileRule is the TOML shape of one cache routing rule.
type fileRule struct {
	Pattern  string `toml:"pattern"`
	Strategy string `toml:"strategy"`
	TTL      string `toml:"ttl"`
}

// ConfigStore is a TOML-file-backed implementation of
// driven.ConfigStore.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// NewConfigStore creates a TOML config store.
// If configDir is empty, defaults to ~/.tably/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".tably")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load returns the current configuration, falling back to defaults for
// unset fields. A missing file yields pure defaults.
func (s *ConfigStore) Load() (domain.EngineConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := domain.DefaultEngineConfig()

	raw, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyFileConfig(&cfg, fc)
	return cfg, nil
}

// Save persists the configuration.
func (s *ConfigStore) Save(cfg domain.EngineConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc := fileConfig{
		DataDir:          cfg.DataDir,
		RemoteBaseURL:    cfg.RemoteBaseURL,
		CacheBudgetBytes: cfg.CacheBudgetBytes,
		DefaultTTL:       cfg.DefaultTTL.String(),
		MaxRetries:       cfg.MaxRetries,
		DrainBatchSize:   cfg.DrainBatchSize,
		DrainInterval:    cfg.DrainInterval.String(),
		ProbeInterval:    cfg.ProbeInterval.String(),
		RequestTimeout:   cfg.RequestTimeout.String(),
		ReplayRate:       cfg.ReplayRate,
		Precache:         cfg.Precache,
	}
	for _, rule := range cfg.Rules {
		fc.Rules = append(fc.Rules, fileRule{
			Pattern:  rule.Pattern,
			Strategy: string(rule.Strategy),
			TTL:      rule.TTL.String(),
		})
	}

	raw, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(s.filePath, raw, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Watch invokes fn with the reloaded configuration whenever the file
// changes on disk. Returns a stop function that releases the watcher.
func (s *ConfigStore) Watch(fn func(domain.EngineConfig)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory: editors replace the file rather than write
	// in place, which would orphan a file-level watch.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching config dir: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.filePath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, loadErr := s.Load()
				if loadErr != nil {
					logger.Warn("config reload failed: %v", loadErr)
					continue
				}
				logger.Info("config reloaded from %s", s.filePath)
				fn(cfg)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher: %v", watchErr)
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return stop, nil
}

// applyFileConfig overlays the parsed file onto the defaults, keeping
// defaults for unset or unparseable fields.
func applyFileConfig(cfg *domain.EngineConfig, fc fileConfig) {
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.RemoteBaseURL != "" {
		cfg.RemoteBaseURL = fc.RemoteBaseURL
	}
	if fc.CacheBudgetBytes > 0 {
		cfg.CacheBudgetBytes = fc.CacheBudgetBytes
	}
	if d, err := time.ParseDuration(fc.DefaultTTL); err == nil && d > 0 {
		cfg.DefaultTTL = d
	}
	if fc.MaxRetries > 0 {
		cfg.MaxRetries = fc.MaxRetries
	}
	if fc.DrainBatchSize > 0 {
		cfg.DrainBatchSize = fc.DrainBatchSize
	}
	if d, err := time.ParseDuration(fc.DrainInterval); err == nil && d > 0 {
		cfg.DrainInterval = d
	}
	if d, err := time.ParseDuration(fc.ProbeInterval); err == nil && d > 0 {
		cfg.ProbeInterval = d
	}
	if d, err := time.ParseDuration(fc.RequestTimeout); err == nil && d > 0 {
		cfg.RequestTimeout = d
	}
	if fc.ReplayRate > 0 {
		cfg.ReplayRate = fc.ReplayRate
	}
	if len(fc.Precache) > 0 {
		cfg.Precache = fc.Precache
	}
	if len(fc.Rules) > 0 {
		rules := make([]domain.CacheRule, 0, len(fc.Rules))
		for _, fr := range fc.Rules {
			ttl, err := time.ParseDuration(fr.TTL)
			if err != nil || ttl <= 0 {
				ttl = cfg.DefaultTTL
			}
			rules = append(rules, domain.CacheRule{
				Pattern:  fr.Pattern,
				Strategy: domain.Strategy(fr.Strategy),
				TTL:      ttl,
			})
		}
		cfg.Rules = rules
	}
}
