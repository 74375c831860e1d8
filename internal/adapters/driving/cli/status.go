package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache and sync queue status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	reply, err := engine.Execute(cmd.Context(), driving.CacheStatusCommand{})
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	state := connectivity.State()
	if state.Online {
		cmd.Println("Connectivity: online")
	} else {
		cmd.Println("Connectivity: offline")
	}
	cmd.Printf("Cache: %d entries, %s of %s used\n",
		reply.Cache.Entries, formatBytes(reply.Cache.TotalSize), formatBytes(reply.Cache.Budget))
	cmd.Printf("Queue: %d pending tasks, %d dropped this session\n",
		reply.Queue.Count, reply.Queue.Failed)
	return nil
}

// formatBytes renders a byte count in a human unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
