package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestSyncList(t *testing.T) {
	path := writeTestConfig(t, `
targets:
  - hostname: alpha.example.org
    port: 22
    username: user
  - hostname: beta.example.org
    port: 2222
    username: user
`)

	out, _, err := execute(t, "--config", path, "sync", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "- alpha.example.org")
	assert.Contains(t, out, "- beta.example.org")
}

func TestSyncListWithoutConfigFallsBackToDefaults(t *testing.T) {
	out, errOut, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yml"), "sync", "--list")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "using defaults")
}

func TestExecList(t *testing.T) {
	path := writeTestConfig(t, `
projects:
  - name: example
  - name: other
`)

	out, _, err := execute(t, "--config", path, "exec", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "- example")
	assert.Contains(t, out, "- other")
}

func TestExecWithoutTarget(t *testing.T) {
	_, _, err := execute(t, "--config", writeTestConfig(t, ""), "exec")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
