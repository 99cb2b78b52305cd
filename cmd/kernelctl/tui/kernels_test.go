package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scxtools/kernelctl/pkg/kernelctl/changeset"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

func testKernels() []types.Kernel {
	return []types.Kernel{
		{Name: "linux", Version: "6.10.1", Installed: true, Running: true},
		{Name: "linux-lts", Version: "6.6.40", Installed: true, UpdateAvailable: true},
		{Name: "linux-zen", Version: "6.10.1.zen1"},
	}
}

func TestToggleStagesInstallForAbsentKernel(t *testing.T) {
	changes := changeset.New()
	m := NewKernelModel(changes)
	m.SetKernels(testKernels())

	m.HandleKey("down")
	m.HandleKey("down")
	m.HandleKey(" ")

	kind, ok := changes.Pending("linux-zen")
	require.True(t, ok)
	assert.Equal(t, types.ChangeInstall, kind)
}

func TestToggleStagesRemoveForInstalledKernel(t *testing.T) {
	changes := changeset.New()
	m := NewKernelModel(changes)
	m.SetKernels(testKernels())

	m.HandleKey(" ")

	kind, ok := changes.Pending("linux")
	require.True(t, ok)
	assert.Equal(t, types.ChangeRemove, kind)
}

func TestToggleStagesInstallWhenUpdateAvailable(t *testing.T) {
	changes := changeset.New()
	m := NewKernelModel(changes)
	m.SetKernels(testKernels())

	m.HandleKey("down")
	m.HandleKey(" ")

	kind, ok := changes.Pending("linux-lts")
	require.True(t, ok)
	assert.Equal(t, types.ChangeInstall, kind)
}

func TestToggleTwiceClearsChange(t *testing.T) {
	changes := changeset.New()
	m := NewKernelModel(changes)
	m.SetKernels(testKernels())

	m.HandleKey(" ")
	m.HandleKey(" ")

	_, ok := changes.Pending("linux")
	assert.False(t, ok)
	assert.Equal(t, 0, changes.Len())
}

func TestCursorBounds(t *testing.T) {
	m := NewKernelModel(changeset.New())
	m.SetKernels(testKernels())

	m.HandleKey("up")
	k, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "linux", k.Name)

	for range 10 {
		m.HandleKey("down")
	}
	k, ok = m.Current()
	require.True(t, ok)
	assert.Equal(t, "linux-zen", k.Name)
}

func TestSetKernelsClampsCursor(t *testing.T) {
	m := NewKernelModel(changeset.New())
	m.SetKernels(testKernels())
	m.HandleKey("end")

	m.SetKernels(testKernels()[:1])
	k, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "linux", k.Name)
}

func TestViewShowsMarkersAndBadges(t *testing.T) {
	changes := changeset.New()
	m := NewKernelModel(changes)
	m.SetKernels(testKernels())
	changes.Set("linux-zen", types.ChangeInstall)

	view := m.View()
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "[+]")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "1 pending change(s)")
}

func TestViewEmptyCatalog(t *testing.T) {
	m := NewKernelModel(changeset.New())
	assert.Contains(t, m.View(), "No kernels found")
}
