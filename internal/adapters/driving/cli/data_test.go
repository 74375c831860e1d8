package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

func TestDataGetCommand_PrintsRecordsAsJSON(t *testing.T) {
	eng := &mockEngine{
		reply: &driving.Reply{
			Records: []domain.Record{
				{ID: "o1", Data: map[string]any{"table": float64(4)}},
			},
		},
	}

	out, err := runCommand(t, eng, &mockConnectivity{}, "data", "get", "orders")
	require.NoError(t, err)

	require.Len(t, eng.commands, 1)
	cmd, ok := eng.commands[0].(driving.GetDataCommand)
	require.True(t, ok)
	assert.Equal(t, domain.PartitionOrders, cmd.Partition)
	assert.Contains(t, out, `"o1"`)
}

func TestDataPutCommand_ParsesFileAndStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"id":"o1","updatedAt":"2025-06-01T12:00:00Z","data":{"table":4}}]`), 0600))

	eng := &mockEngine{}
	out, err := runCommand(t, eng, &mockConnectivity{}, "data", "put", "orders", path)
	require.NoError(t, err)

	require.Len(t, eng.commands, 1)
	cmd, ok := eng.commands[0].(driving.StoreDataCommand)
	require.True(t, ok)
	assert.Equal(t, domain.PartitionOrders, cmd.Partition)
	require.Len(t, cmd.Records, 1)
	assert.Equal(t, "o1", cmd.Records[0].ID)
	assert.Contains(t, out, "Stored 1 records in orders")
}

func TestDataPutCommand_RejectsUnreadableFile(t *testing.T) {
	eng := &mockEngine{}
	_, err := runCommand(t, eng, &mockConnectivity{}, "data", "put", "orders", "/does/not/exist.json")
	require.Error(t, err)
	assert.Empty(t, eng.commands)
}
