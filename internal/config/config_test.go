package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSymlinks resolves symlinks for path comparison (macOS /var -> /private/var).
func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
}

func TestFindRoot(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	writeConfig(t, tmpDir, "project: demo\n")

	deepDir := filepath.Join(tmpDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deepDir, 0755))

	t.Run("from project root", func(t *testing.T) {
		root, err := FindRoot(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, tmpDir, root)
	})

	t.Run("from nested directory", func(t *testing.T) {
		root, err := FindRoot(deepDir)
		require.NoError(t, err)
		assert.Equal(t, tmpDir, root)
	})
}

func TestFindRoot_NoProjectRoot(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project root not found")
}

func TestLoad(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	writeConfig(t, tmpDir, `project: harbor
base: topology.yml
overlays:
  - overlays/staging.yml
  - overlays/prod.yml
strict: true
`)

	subDir := filepath.Join(tmpDir, "overlays")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	cfg, err := Load(subDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "harbor", cfg.Project)
	assert.Equal(t, tmpDir, cfg.Root)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "topology.yml"),
		filepath.Join(tmpDir, "overlays", "staging.yml"),
		filepath.Join(tmpDir, "overlays", "prod.yml"),
	}, cfg.LayerFiles())
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	writeConfig(t, tmpDir, "{}\n")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(tmpDir), cfg.Project)
	assert.Equal(t, []string{filepath.Join(tmpDir, "topology.yml")}, cfg.LayerFiles())
	assert.Equal(t, filepath.Join(tmpDir, "output"), cfg.OutputDir())
	assert.False(t, cfg.Strict)
}

func TestLoad_NoProjectRoot(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "project root not found")
}

func TestLoadFile_Malformed(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "project: [unclosed\n")

	_, err := LoadFile(filepath.Join(tmpDir, FileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfig_StateDirs(t *testing.T) {
	cfg := &Config{Root: "/project", Output: "rendered"}

	assert.Equal(t, "/project/.stevedore", cfg.StateDir())
	assert.Equal(t, "/project/.stevedore/snapshots", cfg.SnapshotsDir())
	assert.Equal(t, "/project/rendered", cfg.OutputDir())
}

func TestConfig_AbsolutePathsKept(t *testing.T) {
	cfg := &Config{Root: "/project", Base: "/shared/base.yml"}

	assert.Equal(t, []string{"/shared/base.yml"}, cfg.LayerFiles())
}
