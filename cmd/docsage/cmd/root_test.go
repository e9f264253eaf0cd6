package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	out, err := executeCommand(t, "--help")

	// Then: it should show usage information
	require.NoError(t, err)
	assert.Contains(t, out, "docsage")
	assert.Contains(t, out, "Usage:")
}

func TestRootCmd_NoArgsShowsHelp(t *testing.T) {
	// Given: a root command with no arguments

	// When: executing
	out, err := executeCommand(t)

	// Then: usage is printed instead of starting anything
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands:")
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: every delivery surface is registered
	expected := []string{"ask", "serve", "index", "cache", "config", "version"}
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "docsage version")
}

func TestAskCmd_RequiresQuery(t *testing.T) {
	// When: asking without a question
	_, err := executeCommand(t, "ask")

	// Then: cobra rejects the call before any pipeline work
	require.Error(t, err)
}
