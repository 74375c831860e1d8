// Package cli wires the offline engine behind a cobra command tree.
// Commands talk to the engine through the driving ports only; tests
// swap the package-level services for mocks.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/tably-labs/tably-cli/internal/adapters/driven/config/file"
	"github.com/tably-labs/tably-cli/internal/adapters/driven/notify"
	"github.com/tably-labs/tably-cli/internal/adapters/driven/remote/httpapi"
	"github.com/tably-labs/tably-cli/internal/adapters/driven/storage/sqlite"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/core/services"
	"github.com/tably-labs/tably-cli/internal/logger"
)

var (
	version = "dev"

	verboseFlag bool
	configDir   string

	// Services the commands run against. Populated by initServices,
	// replaced by mocks in tests.
	engine       driving.Engine
	connectivity driving.Connectivity
	router       *services.Router
	configStore  *configfile.ConfigStore
	broadcaster  *notify.Broadcaster

	// closers tears down adapters after a command finishes.
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "tably",
	Short: "Offline-first cache and sync engine for the tably platform",
	Long: `tably keeps a local mirror of orders, inventory and customers,
serves API reads through a strategy-routed cache and replays writes
queued while offline once connectivity returns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.tably)")
}

// Execute runs the CLI.
func Execute(ver string) {
	if ver != "" {
		version = ver
	}
	defer teardown()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initServices assembles the engine from its adapters. Idempotent so
// every command can call it first.
func initServices() error {
	if engine != nil {
		return nil
	}

	var err error
	configStore, err = configfile.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	cfg, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, store.Close)

	remote := httpapi.NewClient(cfg.RemoteBaseURL, cfg.RequestTimeout, 0)
	broadcaster = notify.NewBroadcaster()
	notifier := notify.Multi{broadcaster, notify.NewLogNotifier()}

	router = services.NewRouter(cfg, store.CacheStore(), remote, nil)
	queue := services.NewSyncQueue(cfg, store.QueueStore(), remote, notifier, nil)
	conn := services.NewConnectivity(cfg, remote, queue, router, notifier)

	connectivity = conn
	engine = services.NewEngine(store.RecordStore(), remote, router, queue, conn)
	closers = append(closers, engine.Close)

	return nil
}

// teardown closes adapters in reverse construction order.
func teardown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("teardown: %v", err)
		}
	}
	closers = nil
}
