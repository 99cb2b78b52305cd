package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scxtools/kernelctl/pkg/kernelctl/schedext"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestSchedModelPreselectsConfiguredScheduler(t *testing.T) {
	m := NewSchedModel(schedext.Selection{
		Scheduler:     "scx_lavd",
		Flags:         "--slice-us 5000",
		FlagsActive:   true,
		ConfAvailable: true,
	})

	assert.Equal(t, "scx_lavd", m.Selected())
	assert.Equal(t, "--slice-us 5000", m.Flags())
}

func TestSchedModelNavigation(t *testing.T) {
	m := NewSchedModel(schedext.Selection{})
	require.Equal(t, schedext.Schedulers[0], m.Selected())

	consumed, _ := m.HandleKey(keyMsg("down"))
	assert.True(t, consumed)
	assert.Equal(t, schedext.Schedulers[1], m.Selected())

	m.HandleKey(keyMsg("up"))
	m.HandleKey(keyMsg("up"))
	assert.Equal(t, schedext.Schedulers[0], m.Selected())
}

func TestSchedModelFlagsEditing(t *testing.T) {
	m := NewSchedModel(schedext.Selection{})

	consumed, _ := m.HandleKey(keyMsg("f"))
	require.True(t, consumed)
	assert.True(t, m.EditingFlags())

	// While editing, navigation keys go to the input, not the picker.
	before := m.Selected()
	m.HandleKey(keyMsg("j"))
	assert.Equal(t, before, m.Selected())

	m.HandleKey(keyMsg("enter"))
	assert.False(t, m.EditingFlags())
}

func TestSchedModelActionErrRendering(t *testing.T) {
	m := NewSchedModel(schedext.Selection{})

	m.SetActionErr(errors.New("applying scheduler scx_lavd: pkexec: exit status 127"))
	assert.Contains(t, m.View(), "exit status 127")

	m.SetActionErr(nil)
	assert.NotContains(t, m.View(), "exit status 127")
}

func TestSchedModelStatusRendering(t *testing.T) {
	m := NewSchedModel(schedext.Selection{})

	assert.Contains(t, m.View(), "not available")

	m.SetStatus(schedext.Status{Value: "scx_rusty", Enabled: true, At: time.Now()})
	view := m.View()
	assert.Contains(t, view, "sched_ext: scx_rusty")
	assert.Contains(t, view, "(*)")

	m.SetStatus(schedext.Status{Value: "disabled", At: time.Now()})
	assert.Contains(t, m.View(), "sched_ext: disabled")
}
