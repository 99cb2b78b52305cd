package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/pacman", cfg.PacmanBin)
	assert.Equal(t, "/usr/bin/pkexec", cfg.Helper)
	assert.Equal(t, "/usr/lib/modules", cfg.ModulesDir)
	assert.Equal(t, "scx", cfg.Sched.Service)
	assert.Equal(t, "/etc/default/scx", cfg.Sched.ConfPath)
	assert.Equal(t, time.Second, cfg.Sched.PollInterval)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "info", cfg.Logging.Components["catalog"])
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	confDir := filepath.Join(dir, "kernelctl")
	require.NoError(t, os.MkdirAll(confDir, 0o755))
	content := `
pacman_bin: /usr/local/bin/pacman
sched:
  poll_interval: 250ms
history:
  retention_days: 7
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/pacman", cfg.PacmanBin)
	assert.Equal(t, 250*time.Millisecond, cfg.Sched.PollInterval)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "/usr/bin/pkexec", cfg.Helper)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("KERNELCTL_PACMAN_BIN", "/opt/pacman")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/pacman", cfg.PacmanBin)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, WriteDefault())

	path := filepath.Join(dir, "kernelctl", "config.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pacman_bin")
	assert.Contains(t, string(data), "sched:")

	// Second call must not clobber an existing file.
	require.NoError(t, os.WriteFile(path, []byte("pacman_bin: /custom\n"), 0o644))
	require.NoError(t, WriteDefault())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pacman_bin: /custom\n", string(data))
}

func TestConfigDirPrefersXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-test/kernelctl", dir)
}
