package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Read and replace the offline record partitions",
}

var dataGetCmd = &cobra.Command{
	Use:   "get <partition>",
	Short: "Print all records of a partition as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDataGet,
}

var dataPutCmd = &cobra.Command{
	Use:   "put <partition> <file>",
	Short: "Bulk-replace a partition from a JSON array file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDataPut,
}

func init() {
	dataCmd.AddCommand(dataGetCmd)
	dataCmd.AddCommand(dataPutCmd)
	rootCmd.AddCommand(dataCmd)
}

func runDataGet(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	reply, err := engine.Execute(cmd.Context(), driving.GetDataCommand{
		Partition: domain.Partition(args[0]),
	})
	if err != nil {
		return fmt.Errorf("get data: %w", err)
	}

	out, err := json.MarshalIndent(reply.Records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	cmd.Println(string(out))
	return nil
}

func runDataPut(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}

	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("parse %s: %w", args[1], err)
	}

	if _, err := engine.Execute(cmd.Context(), driving.StoreDataCommand{
		Partition: domain.Partition(args[0]),
		Records:   records,
	}); err != nil {
		return fmt.Errorf("store data: %w", err)
	}

	cmd.Printf("Stored %d records in %s.\n", len(records), args[0])
	return nil
}
