package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/scxtools/kernelctl/pkg/kernelctl/schedext"
)

// SchedModel is the Scheduler tab: a picker over the selectable schedulers,
// a flags input, and a live status line fed by the poller.
type SchedModel struct {
	schedulers []string
	cursor     int

	flagsInput   textinput.Model
	editingFlags bool

	status    schedext.Status
	actionErr error
	width     int
	height    int
}

// NewSchedModel creates the scheduler panel, preselecting the scheduler
// currently configured in the service environment file.
func NewSchedModel(current schedext.Selection) SchedModel {
	input := textinput.New()
	input.Placeholder = "scheduler flags"
	input.CharLimit = 200
	input.Width = 40
	if current.FlagsActive {
		input.SetValue(current.Flags)
	}

	m := SchedModel{
		schedulers: schedext.Schedulers,
		flagsInput: input,
		width:      80,
		height:     24,
	}
	for i, name := range m.schedulers {
		if name == current.Scheduler {
			m.cursor = i
			break
		}
	}
	return m
}

// SetDimensions updates the layout bounds.
func (m *SchedModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// SetStatus records the latest poller observation.
func (m *SchedModel) SetStatus(status schedext.Status) {
	m.status = status
}

// SetActionErr records the outcome of the last apply or disable. A nil
// error clears a previously shown failure.
func (m *SchedModel) SetActionErr(err error) {
	m.actionErr = err
}

// Selected returns the scheduler under the cursor.
func (m *SchedModel) Selected() string {
	return m.schedulers[m.cursor]
}

// Flags returns the flags input value.
func (m *SchedModel) Flags() string {
	return strings.TrimSpace(m.flagsInput.Value())
}

// EditingFlags reports whether the flags input has focus.
func (m *SchedModel) EditingFlags() bool {
	return m.editingFlags
}

// HandleKey processes a key. It returns true when the key was consumed and
// a command for the text input, if any.
func (m *SchedModel) HandleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.editingFlags {
		switch msg.String() {
		case "enter", "esc":
			m.editingFlags = false
			m.flagsInput.Blur()
			return true, nil
		default:
			var cmd tea.Cmd
			m.flagsInput, cmd = m.flagsInput.Update(msg)
			return true, cmd
		}
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return true, nil
	case "down", "j":
		if m.cursor < len(m.schedulers)-1 {
			m.cursor++
		}
		return true, nil
	case "f":
		m.editingFlags = true
		return true, m.flagsInput.Focus()
	}
	return false, nil
}

// View renders the scheduler panel.
func (m *SchedModel) View() string {
	var b strings.Builder

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if m.actionErr != nil {
		b.WriteString(errorTextStyle.Render("  " + truncate(m.actionErr.Error(), m.width-4)))
		b.WriteString("\n")
	}

	for i, name := range m.schedulers {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}

		marker := "( )"
		if m.status.Enabled && m.status.Value == name {
			marker = installMarkStyle.Render("(*)")
		}

		line := fmt.Sprintf("%s%s %s", cursor, marker, name)
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render(line))
		} else {
			b.WriteString(normalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	label := mutedTextStyle.Render("  Flags: ")
	if m.editingFlags {
		label = titleStyle.Render("  Flags: ")
	}
	b.WriteString(label)
	b.WriteString(m.flagsInput.View())
	b.WriteString("\n")
	return b.String()
}

// renderStatus renders the live sched_ext status line.
func (m *SchedModel) renderStatus() string {
	switch {
	case m.status.Value == "":
		return mutedTextStyle.Render("  sched_ext: not available")
	case m.status.Enabled:
		return successTextStyle.Render("  sched_ext: " + m.status.Value)
	default:
		return warningTextStyle.Render("  sched_ext: " + m.status.Value)
	}
}

// FooterHints returns the key hints for the scheduler tab.
func (m *SchedModel) FooterHints() string {
	if m.editingFlags {
		return "  " + keyStyle.Render("[enter]") + " " + keyDescStyle.Render("done editing")
	}
	hints := []string{
		keyStyle.Render("[enter]") + " " + keyDescStyle.Render("apply"),
		keyStyle.Render("[f]") + " " + keyDescStyle.Render("flags"),
		keyStyle.Render("[x]") + " " + keyDescStyle.Render("disable"),
		keyStyle.Render("[tab]") + " " + keyDescStyle.Render("kernels"),
		keyStyle.Render("[q]") + " " + keyDescStyle.Render("quit"),
	}
	return "  " + strings.Join(hints, "  ")
}
