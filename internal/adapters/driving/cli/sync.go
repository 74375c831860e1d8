package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the offline sync queue now",
	Long: `Forces an immediate drain: queued writes are replayed against the
remote store in priority order. Tasks that exhaust their retry budget
are dropped and reported.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	cmd.Println("Draining sync queue...")
	reply, err := engine.Execute(cmd.Context(), driving.ForceSyncCommand{})
	if err != nil {
		if errors.Is(err, domain.ErrDrainInProgress) {
			cmd.Println("A drain is already running; queued work will be picked up.")
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Sync complete: %d replayed, %d dropped, %d remaining.\n",
		reply.Drain.Successful, reply.Drain.Failed, reply.Drain.Remaining)
	return nil
}
