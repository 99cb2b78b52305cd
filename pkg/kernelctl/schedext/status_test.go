package schedext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSysfs(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStatusCurrent(t *testing.T) {
	tests := []struct {
		name  string
		state string
		ops   string
		want  string
	}{
		{"enabled with scheduler", "enabled\n", "scx_rusty\n", "scx_rusty"},
		{"enabled without scheduler name", "enabled\n", "", StatusUnknown},
		{"disabled passes state through", "disabled\n", "scx_rusty\n", "disabled"},
		{"enabling passes state through", "enabling\n", "", "enabling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			reader := StatusReader{
				StateFile: writeSysfs(t, dir, "state", tt.state),
				OpsFile:   writeSysfs(t, dir, "ops", tt.ops),
			}
			assert.Equal(t, tt.want, reader.Current())
		})
	}
}

func TestStatusMissingSysfs(t *testing.T) {
	dir := t.TempDir()
	reader := StatusReader{
		StateFile: filepath.Join(dir, "absent-state"),
		OpsFile:   filepath.Join(dir, "absent-ops"),
	}

	assert.Equal(t, "", reader.Current())
	assert.False(t, reader.Enabled())
}

func TestStatusEnabledMissingOps(t *testing.T) {
	dir := t.TempDir()
	reader := StatusReader{
		StateFile: writeSysfs(t, dir, "state", "enabled\n"),
		OpsFile:   filepath.Join(dir, "absent-ops"),
	}

	assert.Equal(t, StatusUnknown, reader.Current())
	assert.True(t, reader.Enabled())
}

func TestReadFirstLineStripsOnlyNewline(t *testing.T) {
	dir := t.TempDir()

	path := writeSysfs(t, dir, "multi", "scx_lavd\nsecond line\n")
	assert.Equal(t, "scx_lavd", readFirstLine(path))

	// Content other than the newline passes through untouched.
	raw := writeSysfs(t, dir, "raw", "  odd state  \n")
	assert.Equal(t, "  odd state  ", readFirstLine(raw))
}
