package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/podium/pkg/logger"
)

func init() {
	_ = logger.InitWith(io.Discard, "text")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "podiumctl", cmd.Use)
	assert.Contains(t, cmd.Long, "prediction leagues")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"seed", "ingest", "recompute", "analyze", "standings", "replay"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"driver", "dsn"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestStandingsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	standingsCmd, _, err := cmd.Find([]string{"standings"})
	require.NoError(t, err)

	limitFlag := standingsCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "n", limitFlag.Shorthand)
	assert.Equal(t, "0", limitFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "recompute", "--event", "e", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRequiredFlags(t *testing.T) {
	_, err := execute(t, "standings", "--event", "e")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "league")

	_, err = execute(t, "ingest", "--event", "e", "--driver", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--fixture")

	_, err = execute(t, "ingest", "--event", "e", "--category", "c", "--winner", "w", "--seed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--seed requires --fixture")
}
