package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCmd executes the root command with the given args and returns
// the output. Help and version flag state is cleared first so runs do
// not leak into each other.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"help", "version"} {
		if f := rootCmd.Flags().Lookup(name); f != nil {
			f.Value.Set("false")
			f.Changed = false
		}
	}

	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := executeCmd(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "stevedore")
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "graph")
}

func TestRootVersion(t *testing.T) {
	out, err := executeCmd(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "stevedore version "+version)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"render", "graph", "lint", "env", "up", "down", "snapshot", "update"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
