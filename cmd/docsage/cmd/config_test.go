package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withTempConfigHome points the user config at a temp directory.
func withTempConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "docsage", "config.yaml")
}

// inTempDir runs the rest of the test from an empty directory so no
// project config leaks in.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })
	return dir
}

func TestConfigPathCmd_PrintsUserConfigPath(t *testing.T) {
	configPath := withTempConfigHome(t)

	out, err := executeCommand(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, configPath+"\n", out)
}

func TestConfigInitCmd_CreatesUserConfig(t *testing.T) {
	// Given: no user config exists
	configPath := withTempConfigHome(t)

	// When: running config init
	out, err := executeCommand(t, "config", "init")

	// Then: the template is written
	require.NoError(t, err)
	assert.Contains(t, out, "Created user configuration")

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend")
}

func TestConfigInitCmd_ExistingConfigNeedsForce(t *testing.T) {
	// Given: a user config already exists
	withTempConfigHome(t)
	_, err := executeCommand(t, "config", "init")
	require.NoError(t, err)

	// When: running init again without --force
	out, err := executeCommand(t, "config", "init")

	// Then: nothing is overwritten
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestConfigInitCmd_ProjectTemplate(t *testing.T) {
	// Given: an empty project directory
	withTempConfigHome(t)
	dir := inTempDir(t)

	// When: creating a project config
	out, err := executeCommand(t, "config", "init", "--project")

	// Then: .docsage.yaml appears in the directory
	require.NoError(t, err)
	assert.Contains(t, out, "Created project configuration")
	_, err = os.Stat(filepath.Join(dir, ".docsage.yaml"))
	require.NoError(t, err)
}

func TestConfigShowCmd_RendersYAML(t *testing.T) {
	withTempConfigHome(t)
	inTempDir(t)

	out, err := executeCommand(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "backend:")
	assert.Contains(t, out, "search:")
	assert.Contains(t, out, "cache:")
}

func TestConfigShowCmd_JSON(t *testing.T) {
	withTempConfigHome(t)
	inTempDir(t)

	out, err := executeCommand(t, "config", "show", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"backend"`)
}

func TestConfigValidateCmd_DefaultsAreValid(t *testing.T) {
	withTempConfigHome(t)
	inTempDir(t)

	out, err := executeCommand(t, "config", "validate")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	// Default config has no backend URL; the validate output should
	// point that out rather than fail.
	assert.Contains(t, out, "backend.url")
}

func TestConfigValidateCmd_RejectsBadValues(t *testing.T) {
	withTempConfigHome(t)
	dir := inTempDir(t)

	bad := "search:\n  page_size: 50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsage.yaml"), []byte(bad), 0o644))

	_, err := executeCommand(t, "config", "validate")

	require.Error(t, err)
}
