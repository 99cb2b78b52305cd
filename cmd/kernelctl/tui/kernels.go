package tui

import (
	"fmt"
	"strings"

	"github.com/scxtools/kernelctl/pkg/kernelctl/changeset"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
)

// KernelModel is the kernel checklist on the Kernels tab. Moving the cursor
// and toggling entries mutates the shared change set; the worker applies it
// when the user confirms.
type KernelModel struct {
	kernels []types.Kernel
	changes *changeset.ChangeSet
	cursor  int
	offset  int
	width   int
	height  int
}

// NewKernelModel creates the checklist over the shared change set.
func NewKernelModel(changes *changeset.ChangeSet) KernelModel {
	return KernelModel{changes: changes, width: 80, height: 24}
}

// SetKernels replaces the listing, clamping the cursor.
func (m *KernelModel) SetKernels(kernels []types.Kernel) {
	m.kernels = kernels
	if m.cursor >= len(kernels) {
		m.cursor = max(len(kernels)-1, 0)
	}
}

// SetDimensions updates the layout bounds.
func (m *KernelModel) SetDimensions(width, height int) {
	m.width = width
	m.height = height
}

// Current returns the kernel under the cursor.
func (m *KernelModel) Current() (types.Kernel, bool) {
	if m.cursor < 0 || m.cursor >= len(m.kernels) {
		return types.Kernel{}, false
	}
	return m.kernels[m.cursor], true
}

// HandleKey processes navigation and toggle keys.
func (m *KernelModel) HandleKey(key string) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.kernels)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.kernels)-1, 0)
	case " ", "space":
		m.toggle()
	}
	m.scrollIntoView()
}

// toggle cycles the pending change for the kernel under the cursor:
// no change -> install or remove (depending on installed state) -> no change.
func (m *KernelModel) toggle() {
	k, ok := m.Current()
	if !ok {
		return
	}
	if _, pending := m.changes.Pending(k.Name); pending {
		m.changes.Unset(k.Name)
		return
	}
	if k.Installed && !k.UpdateAvailable {
		m.changes.Set(k.Name, types.ChangeRemove)
	} else {
		m.changes.Set(k.Name, types.ChangeInstall)
	}
}

// visibleRows returns how many list rows fit in the layout.
func (m *KernelModel) visibleRows() int {
	rows := m.height - 9
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m *KernelModel) scrollIntoView() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// View renders the checklist.
func (m *KernelModel) View() string {
	var b strings.Builder

	if len(m.kernels) == 0 {
		b.WriteString(mutedTextStyle.Render("  No kernels found in the package databases."))
		b.WriteString("\n")
		return b.String()
	}

	rows := m.visibleRows()
	end := min(m.offset+rows, len(m.kernels))

	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	if pending := m.changes.Len(); pending > 0 {
		b.WriteString("\n")
		b.WriteString(warningTextStyle.Render(fmt.Sprintf("  %d pending change(s)", pending)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderRow renders one kernel line: marker, name, version, size, badges.
func (m *KernelModel) renderRow(i int) string {
	k := m.kernels[i]

	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}

	marker := "[ ]"
	markerStyle := normalItemStyle
	if kind, pending := m.changes.Pending(k.Name); pending {
		if kind == types.ChangeInstall {
			marker = "[+]"
			markerStyle = installMarkStyle
		} else {
			marker = "[-]"
			markerStyle = removeMarkStyle
		}
	} else if k.Installed {
		marker = "[x]"
		markerStyle = successTextStyle
	}

	var badges []string
	if k.Running {
		badges = append(badges, successTextStyle.Render("running"))
	}
	if k.UpdateAvailable {
		badges = append(badges, warningTextStyle.Render("update "+k.Version))
	}

	size := ""
	if k.ModulesSize > 0 {
		size = sizeStyle.Render(k.HumanModulesSize())
	}

	version := k.Version
	if k.Installed && k.InstalledVersion != "" {
		version = k.InstalledVersion
	}

	nameWidth := 24
	line := fmt.Sprintf("%s%s %-*s %-16s %s %s",
		cursor,
		markerStyle.Render(marker),
		nameWidth, truncate(k.Name, nameWidth),
		truncate(version, 16),
		size,
		strings.Join(badges, " "),
	)

	if i == m.cursor {
		return selectedItemStyle.Render(line)
	}
	return normalItemStyle.Render(line)
}

// FooterHints returns the key hints for the kernels tab.
func (m *KernelModel) FooterHints() string {
	hints := []string{
		keyStyle.Render("[space]") + " " + keyDescStyle.Render("toggle"),
		keyStyle.Render("[enter]") + " " + keyDescStyle.Render("apply"),
		keyStyle.Render("[r]") + " " + keyDescStyle.Render("refresh"),
		keyStyle.Render("[tab]") + " " + keyDescStyle.Render("scheduler"),
		keyStyle.Render("[q]") + " " + keyDescStyle.Render("quit"),
	}
	return "  " + strings.Join(hints, "  ")
}
