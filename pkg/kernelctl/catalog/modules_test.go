package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulesSizes(t *testing.T) {
	root := t.TempDir()

	relA := filepath.Join(root, "6.10.1-arch1-1")
	require.NoError(t, os.MkdirAll(filepath.Join(relA, "kernel", "fs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(relA, "kernel", "fs", "ext4.ko"), make([]byte, 1024), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(relA, "modules.dep"), make([]byte, 100), 0o644))

	relB := filepath.Join(root, "6.6.40-lts")
	require.NoError(t, os.MkdirAll(relB, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(relB, "modules.dep"), make([]byte, 50), 0o644))

	// Stray file at the root is not a release tree.
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray"), []byte("x"), 0o644))

	sizes, err := ModulesSizes(root)
	require.NoError(t, err)
	require.Len(t, sizes, 2)
	assert.Equal(t, int64(1124), sizes["6.10.1-arch1-1"])
	assert.Equal(t, int64(50), sizes["6.6.40-lts"])
}

func TestModulesSizesMissingRoot(t *testing.T) {
	sizes, err := ModulesSizes(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, sizes)
}
