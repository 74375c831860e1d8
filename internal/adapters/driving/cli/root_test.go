package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
)

// mockEngine implements driving.Engine for command tests. Commands see
// it through the package-level engine var, so no adapters are built.
type mockEngine struct {
	reply    *driving.Reply
	err      error
	commands []driving.Command
}

func (m *mockEngine) Execute(_ context.Context, cmd driving.Command) (*driving.Reply, error) {
	m.commands = append(m.commands, cmd)
	if m.err != nil {
		return nil, m.err
	}
	if m.reply != nil {
		return m.reply, nil
	}
	return &driving.Reply{}, nil
}

func (m *mockEngine) Request(_ context.Context, _, _ string, _ map[string]string, _ []byte) (*driving.EngineResponse, error) {
	return &driving.EngineResponse{Status: 200}, nil
}

func (m *mockEngine) Close() error { return nil }

// mockConnectivity implements driving.Connectivity.
type mockConnectivity struct {
	state domain.ConnectivityState
}

func (m *mockConnectivity) Start(_ context.Context) error   { return nil }
func (m *mockConnectivity) Stop() error                     { return nil }
func (m *mockConnectivity) State() domain.ConnectivityState { return m.state }
func (m *mockConnectivity) Phase() domain.GenerationPhase   { return domain.PhaseActive }
func (m *mockConnectivity) SetOnline(_ bool)                {}

// runCommand executes the CLI against swapped-in mocks and returns the
// combined output.
func runCommand(t *testing.T, eng *mockEngine, conn *mockConnectivity, args ...string) (string, error) {
	t.Helper()

	engine = eng
	connectivity = conn
	t.Cleanup(func() {
		engine = nil
		connectivity = nil
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, &mockEngine{}, &mockConnectivity{}, "version")
	require.NoError(t, err)
	require.Contains(t, out, "tably version")
}
