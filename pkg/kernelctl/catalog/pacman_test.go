package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scxtools/kernelctl/pkg/kernelctl/privexec"
)

const syncListing = `core linux 6.10.1 [installed]
core linux-lts 6.6.40 [installed: 6.6.39]
core linux-headers 6.10.1
extra linux-zen 6.10.1.zen1
extra linux-firmware 2024.07
cachyos linux-cachyos 6.10.2
`

const localListing = `linux 6.10.1
linux-lts 6.6.39
linux-mainline 6.11.rc1
bash 5.2
`

func newTestCatalog(t *testing.T) (*Pacman, *privexec.Recorder) {
	t.Helper()
	rec := privexec.NewRecorder()
	rec.Outputs["pacman -Sl"] = syncListing
	rec.Outputs["pacman -Q"] = localListing

	p := NewPacman(Options{
		PacmanBin:  "pacman",
		ModulesDir: t.TempDir(),
		Runner:     rec,
		Elevated:   &privexec.Elevated{Helper: "pkexec", Runner: rec},
	})
	return p, rec
}

func TestRefreshParsesDatabases(t *testing.T) {
	p, _ := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	kernels := p.Kernels()
	names := make([]string, 0, len(kernels))
	for _, k := range kernels {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"linux", "linux-lts", "linux-zen", "linux-cachyos", "linux-mainline"}, names)

	linux, ok := p.Get("linux")
	require.True(t, ok)
	assert.True(t, linux.Installed)
	assert.Equal(t, "core", linux.Category)
	assert.Equal(t, "6.10.1", linux.InstalledVersion)
	assert.False(t, linux.UpdateAvailable)

	lts, ok := p.Get("linux-lts")
	require.True(t, ok)
	assert.True(t, lts.UpdateAvailable, "installed 6.6.39 vs sync 6.6.40")

	zen, ok := p.Get("linux-zen")
	require.True(t, ok)
	assert.False(t, zen.Installed)
}

func TestRefreshExcludesCompanionPackages(t *testing.T) {
	p, _ := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	_, ok := p.Get("linux-headers")
	assert.False(t, ok)
	_, ok = p.Get("linux-firmware")
	assert.False(t, ok)
	_, ok = p.Get("bash")
	assert.False(t, ok)
}

func TestRefreshMarksForeignKernels(t *testing.T) {
	p, _ := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	mainline, ok := p.Get("linux-mainline")
	require.True(t, ok)
	assert.True(t, mainline.Installed)
	assert.Equal(t, "local", mainline.Category)
	assert.Equal(t, "6.11.rc1", mainline.Version)
}

func TestCommitBuildsSingleTransaction(t *testing.T) {
	p, rec := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	require.NoError(t, p.Install("linux-zen"))
	require.NoError(t, p.Remove("linux-lts"))
	require.NoError(t, p.Commit(context.Background()))

	lines := rec.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t,
		"pkexec /usr/bin/bash -c pacman -S --noconfirm --needed linux-zen && pacman -R --noconfirm linux-lts",
		lines[len(lines)-1])
}

func TestCommitNoopWhenNothingStaged(t *testing.T) {
	p, rec := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	before := len(rec.Calls)
	require.NoError(t, p.Commit(context.Background()))
	assert.Equal(t, before, len(rec.Calls))
}

func TestStageUnknownPackage(t *testing.T) {
	p, _ := newTestCatalog(t)
	require.NoError(t, p.Refresh(context.Background()))

	assert.ErrorIs(t, p.Install("linux-bogus"), ErrUnknownPackage)
	assert.ErrorIs(t, p.Remove("linux-bogus"), ErrUnknownPackage)
}

func TestDryRunSkipsCommit(t *testing.T) {
	rec := privexec.NewRecorder()
	rec.Outputs["pacman -Sl"] = syncListing
	rec.Outputs["pacman -Q"] = localListing

	p := NewPacman(Options{
		PacmanBin:  "pacman",
		ModulesDir: t.TempDir(),
		Runner:     rec,
		Elevated:   &privexec.Elevated{Helper: "pkexec", Runner: rec},
		DryRun:     true,
	})
	require.NoError(t, p.Refresh(context.Background()))
	require.NoError(t, p.Install("linux-zen"))
	require.NoError(t, p.Commit(context.Background()))

	for _, line := range rec.Lines() {
		assert.NotContains(t, line, "pkexec")
	}
}

func TestIsKernelPackage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"linux", true},
		{"linux-lts", true},
		{"linux-zen", true},
		{"linux-cachyos-bore", true},
		{"linux-headers", false},
		{"linux-lts-headers", false},
		{"linux-firmware", false},
		{"linux-api-headers", false},
		{"linux-tools", false},
		{"linux-docs", false},
		{"bash", false},
		{"util-linux", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKernelPackage(tt.name))
		})
	}
}

func TestCommitScript(t *testing.T) {
	assert.Equal(t,
		"pacman -S --noconfirm --needed a b",
		commitScript("pacman", []string{"a", "b"}, nil))
	assert.Equal(t,
		"pacman -R --noconfirm c",
		commitScript("pacman", nil, []string{"c"}))
	assert.Equal(t,
		"pacman -S --noconfirm --needed a && pacman -R --noconfirm c",
		commitScript("pacman", []string{"a"}, []string{"c"}))
}
