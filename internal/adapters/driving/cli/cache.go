package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the HTTP cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Wipe all cached responses",
	RunE:  runCachePurge,
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache occupancy",
	RunE:  runStatus,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	if _, err := engine.Execute(cmd.Context(), driving.ClearCacheCommand{}); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	cmd.Println("Cache purged.")
	return nil
}
