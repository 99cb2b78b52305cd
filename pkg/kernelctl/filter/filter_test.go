package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

func sampleKernels() []types.Kernel {
	return []types.Kernel{
		{Name: "linux", Version: "6.10.1", Category: "core", Installed: true, ModulesSize: 300},
		{Name: "linux-lts", Version: "6.6.40", Category: "core", Installed: true, UpdateAvailable: true, ModulesSize: 250},
		{Name: "linux-zen", Version: "6.10.1.zen1", Category: "extra", ModulesSize: 0},
		{Name: "linux-cachyos", Version: "6.10.2", Category: "cachyos", Installed: true, ModulesSize: 400},
	}
}

func TestMatchInstalledOnly(t *testing.T) {
	f := New(WithInstalledOnly(true))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 3)
	for _, k := range got {
		assert.True(t, k.Installed)
	}
}

func TestMatchUpdatesOnly(t *testing.T) {
	f := New(WithUpdatesOnly(true))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 1)
	assert.Equal(t, "linux-lts", got[0].Name)
}

func TestMatchRepo(t *testing.T) {
	f := New(WithRepo("core"))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 2)
	assert.Equal(t, "linux", got[0].Name)
	assert.Equal(t, "linux-lts", got[1].Name)
}

func TestMatchPatterns(t *testing.T) {
	f := New(WithPatterns("*zen*", "*lts*"))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 2)
	assert.Equal(t, "linux-lts", got[0].Name)
	assert.Equal(t, "linux-zen", got[1].Name)
}

func TestInvalidPatternSkipped(t *testing.T) {
	f := New(WithPatterns("[", "linux"))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 1)
	assert.Equal(t, "linux", got[0].Name)
}

func TestSortBySizeDescending(t *testing.T) {
	f := New(WithSortBy(SortSize), WithSortDescending(true))
	got := f.Apply(sampleKernels())
	require.Len(t, got, 4)
	assert.Equal(t, "linux-cachyos", got[0].Name)
	assert.Equal(t, "linux-zen", got[3].Name)
}

func TestSortDefaultsToName(t *testing.T) {
	got := New().Apply(sampleKernels())
	require.Len(t, got, 4)
	assert.Equal(t, "linux", got[0].Name)
	assert.Equal(t, "linux-zen", got[3].Name)
}

func TestLimit(t *testing.T) {
	f := New(WithLimit(2))
	got := f.Apply(sampleKernels())
	assert.Len(t, got, 2)
}

func TestParseSortField(t *testing.T) {
	for _, valid := range []string{"name", "version", "size", "SIZE"} {
		_, ok := ParseSortField(valid)
		assert.True(t, ok, valid)
	}
	_, ok := ParseSortField("age")
	assert.False(t, ok)
}
