package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestGenerateWritesSkeletonConfig(t *testing.T) {
	fixtures, err := filepath.Abs("testdata")
	require.NoError(t, err)
	chdir(t, t.TempDir())

	_, _, err = execute(t, "generate")
	require.NoError(t, err)

	data, err := os.ReadFile("run/config.yml")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir(fixtures))
	g.Assert(t, "config", data)
}

func TestGenerateBacksUpExistingConfig(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, os.MkdirAll("run", 0o755))
	require.NoError(t, os.WriteFile("run/config.yml", []byte("old: config"), 0o644))

	_, _, err := execute(t, "generate")
	require.NoError(t, err)

	backups, err := filepath.Glob("run/config_*.yml")
	require.NoError(t, err)
	require.Len(t, backups, 1)
}

func TestResetRemovesCaches(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, os.MkdirAll("run", 0o755))
	require.NoError(t, os.WriteFile("run/cache.sqlite", []byte("x"), 0o644))
	require.NoError(t, os.WriteFile("run/oddjob.log", []byte("x"), 0o644))

	_, _, err := execute(t, "reset")
	require.NoError(t, err)

	_, statErr := os.Stat("run/cache.sqlite")
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat("run/oddjob.log")
	require.True(t, os.IsNotExist(statErr))
}
