// pkg/core/config_test.go
package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Backend)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Zero(t, cfg.Timeout())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"backend: debian\nroot: /mnt/sysroot\ntimeout_seconds: 5\ndebug: true\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debian", cfg.Backend)
	assert.Equal(t, "/mnt/sysroot", cfg.Root)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.True(t, cfg.Debug)
	// Unset fields keep their defaults.
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	want := DefaultConfig()
	want.Backend = "rpm"
	want.CacheDir = "/tmp/hostpkg-test"
	want.TimeoutSeconds = 42
	require.NoError(t, SaveConfig(want, path))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConfigEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: arch\n"), 0o644))
	t.Setenv("HOSTPKG_CONFIG", path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "arch", cfg.Backend)
}
