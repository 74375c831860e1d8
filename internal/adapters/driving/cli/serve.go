package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the offline engine in the foreground",
	Long: `Installs the cache generation, precaches the critical resource set
and then watches connectivity: reconnects trigger a queue drain and a
periodic timer catches anything left behind. Stops on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Apply config edits without a restart.
	if configStore != nil && router != nil {
		stopWatch, err := configStore.Watch(router.Reconfigure)
		if err != nil {
			cmd.PrintErrf("config watch disabled: %v\n", err)
		} else {
			defer stopWatch()
		}
	}

	// Mirror engine events onto the terminal.
	if broadcaster != nil {
		events, cancel := broadcaster.Subscribe(32)
		defer cancel()
		go func() {
			for event := range events {
				if event.Drain != nil {
					cmd.Printf("[%s] %d synced, %d failed, %d remaining\n",
						event.Type, event.Drain.Successful, event.Drain.Failed, event.Drain.Remaining)
					continue
				}
				cmd.Printf("[%s] %s\n", event.Type, event.Detail)
			}
		}()
	}

	cmd.Println("tably engine running; press Ctrl-C to stop")
	err := connectivity.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("engine stopped: %w", err)
	}

	cmd.Println("tably engine stopped")
	return nil
}
