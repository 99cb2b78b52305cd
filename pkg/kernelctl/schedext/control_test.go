package schedext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scxtools/kernelctl/pkg/kernelctl/privexec"
)

func newTestController(t *testing.T, confContent string) (*Controller, *privexec.Recorder) {
	t.Helper()
	rec := privexec.NewRecorder()

	conf := filepath.Join(t.TempDir(), "scx")
	if confContent != "" {
		require.NoError(t, os.WriteFile(conf, []byte(confContent), 0o644))
	}

	c := NewController(
		WithRunner(rec),
		WithElevated(&privexec.Elevated{Helper: "pkexec", Runner: rec}),
	)
	c.ConfPath = conf
	return c, rec
}

func TestFlagsEditFragment(t *testing.T) {
	tests := []struct {
		name      string
		flags     string
		commented bool
		want      string
	}{
		{"empty flags, line commented", "", true, ""},
		{"empty flags, line active", "", false, `-e 's/SCX_FLAGS=/#SCX_FLAGS=/'`},
		{"flags, line commented", "--slice-us 5000", true, `-e "s/.*SCX_FLAGS=.*/SCX_FLAGS='--slice-us 5000'/"`},
		{"flags, line active", "--slice-us 5000", false, `-e "s/SCX_FLAGS=.*/SCX_FLAGS='--slice-us 5000'/"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlagsEditFragment(tt.flags, tt.commented))
		})
	}
}

func TestApplyEnablesDisabledService(t *testing.T) {
	c, rec := newTestController(t, "SCX_SCHEDULER=scx_rusty\n#SCX_FLAGS=\n")
	rec.Outputs["systemctl is-enabled scx"] = "disabled"

	err := c.Apply(context.Background(), "scx_lavd", "")
	require.NoError(t, err)

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t,
		"pkexec /usr/bin/bash -c sed -e 's/SCX_SCHEDULER=.*/SCX_SCHEDULER=scx_lavd/' -i "+c.ConfPath+" && systemctl enable --now scx",
		lines[1])
}

func TestApplyRestartsEnabledService(t *testing.T) {
	c, rec := newTestController(t, "SCX_SCHEDULER=scx_rusty\nSCX_FLAGS='--old'\n")
	rec.Outputs["systemctl is-enabled scx"] = "enabled"

	err := c.Apply(context.Background(), "scx_bpfland", "--slice-us 5000")
	require.NoError(t, err)

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t,
		`pkexec /usr/bin/bash -c sed -e 's/SCX_SCHEDULER=.*/SCX_SCHEDULER=scx_bpfland/' -e "s/SCX_FLAGS=.*/SCX_FLAGS='--slice-us 5000'/" -i `+c.ConfPath+" && systemctl restart scx",
		lines[1])
}

func TestApplyUncommentsFlagsLine(t *testing.T) {
	c, rec := newTestController(t, "SCX_SCHEDULER=scx_rusty\n#SCX_FLAGS=\n")
	rec.Outputs["systemctl is-enabled scx"] = "enabled"

	err := c.Apply(context.Background(), "scx_rusty", "--verbose")
	require.NoError(t, err)

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `-e "s/.*SCX_FLAGS=.*/SCX_FLAGS='--verbose'/"`)
}

func TestApplyCommentsOutActiveFlags(t *testing.T) {
	c, rec := newTestController(t, "SCX_SCHEDULER=scx_rusty\nSCX_FLAGS='--old'\n")
	rec.Outputs["systemctl is-enabled scx"] = "enabled"

	err := c.Apply(context.Background(), "scx_rusty", "")
	require.NoError(t, err)

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `-e 's/SCX_FLAGS=/#SCX_FLAGS=/'`)
}

func TestApplyRejectsUnknownScheduler(t *testing.T) {
	c, rec := newTestController(t, "")

	err := c.Apply(context.Background(), "scx_bogus", "")
	require.ErrorContains(t, err, "unknown scheduler")
	assert.Empty(t, rec.Calls)
}

func TestDisableEnabledService(t *testing.T) {
	c, rec := newTestController(t, "")
	rec.Outputs["systemctl is-enabled scx"] = "enabled"

	require.NoError(t, c.Disable(context.Background()))

	lines := rec.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "pkexec systemctl disable --now scx", lines[1])
}

func TestDisableStopsActiveButNotEnabledService(t *testing.T) {
	c, rec := newTestController(t, "")
	rec.Outputs["systemctl is-enabled scx"] = "disabled"
	rec.Outputs["systemctl is-active scx"] = "active"

	require.NoError(t, c.Disable(context.Background()))

	lines := rec.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "pkexec systemctl stop scx", lines[2])
}

func TestDisableNoopWhenInactive(t *testing.T) {
	c, rec := newTestController(t, "")
	rec.Outputs["systemctl is-enabled scx"] = "disabled"
	rec.Outputs["systemctl is-active scx"] = "inactive"

	require.NoError(t, c.Disable(context.Background()))

	for _, line := range rec.Lines() {
		assert.NotContains(t, line, "pkexec", "no privileged command expected")
	}
}

func TestCurrentSelection(t *testing.T) {
	c, _ := newTestController(t, "SCX_SCHEDULER=scx_lavd\nSCX_FLAGS='--slice-us 5000'\n")

	sel := c.CurrentSelection()
	assert.True(t, sel.ConfAvailable)
	assert.Equal(t, "scx_lavd", sel.Scheduler)
	assert.Equal(t, "--slice-us 5000", sel.Flags)
	assert.True(t, sel.FlagsActive)
}

func TestCurrentSelectionCommentedFlags(t *testing.T) {
	c, _ := newTestController(t, "SCX_SCHEDULER=scx_rusty\n#SCX_FLAGS=\n")

	sel := c.CurrentSelection()
	assert.Equal(t, "scx_rusty", sel.Scheduler)
	assert.False(t, sel.FlagsActive)
}

func TestCurrentSelectionMissingConf(t *testing.T) {
	c, _ := newTestController(t, "")

	sel := c.CurrentSelection()
	assert.False(t, sel.ConfAvailable)
	assert.Empty(t, sel.Scheduler)
}

func TestIsKnownScheduler(t *testing.T) {
	assert.True(t, IsKnownScheduler("scx_rusty"))
	assert.True(t, IsKnownScheduler("scx_simple"))
	assert.False(t, IsKnownScheduler("cfs"))
	assert.Len(t, Schedulers, 11)
}
