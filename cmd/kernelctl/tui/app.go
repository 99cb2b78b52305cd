package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scxtools/kernelctl/pkg/kernelctl/catalog"
	"github.com/scxtools/kernelctl/pkg/kernelctl/changeset"
	"github.com/scxtools/kernelctl/pkg/kernelctl/history"
	"github.com/scxtools/kernelctl/pkg/kernelctl/logging"
	"github.com/scxtools/kernelctl/pkg/kernelctl/schedext"
	"github.com/scxtools/kernelctl/pkg/kernelctl/types"
	"github.com/scxtools/kernelctl/pkg/kernelctl/worker"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateBrowse AppState = iota
	StateConfirm
	StateApplying
	StateComplete
)

// Tab identifies the active panel.
type Tab int

const (
	TabKernels Tab = iota
	TabScheduler
)

// Options configures the TUI application.
type Options struct {
	Catalog      catalog.Catalog
	Controller   *schedext.Controller
	StatusReader schedext.StatusReader
	PollInterval time.Duration
	HistoryPath  string
}

// Messages exchanged between background work and the model.
type (
	refreshDoneMsg struct {
		kernels []types.Kernel
		err     error
	}
	statusMsg      schedext.Status
	applyDoneMsg   types.ApplyResult
	confChangedMsg struct{}
	schedDoneMsg   struct {
		action string
		err    error
	}
)

// Model is the main Bubble Tea model for the kernelctl TUI.
type Model struct {
	state     AppState
	activeTab Tab

	options Options
	changes *changeset.ChangeSet
	worker  *worker.Worker
	sub     *schedext.Subscription
	confCh  chan struct{}

	kernelModel KernelModel
	schedModel  SchedModel

	ctx    context.Context
	cancel context.CancelFunc

	loading    bool
	loadErr    error
	spinner    spinner.Model
	lastResult types.ApplyResult

	confirmFocused int

	width  int
	height int
}

// newModel wires the model over already running background components.
func newModel(opts Options, changes *changeset.ChangeSet, w *worker.Worker,
	sub *schedext.Subscription, confCh chan struct{},
	ctx context.Context, cancel context.CancelFunc,
) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		state:       StateBrowse,
		activeTab:   TabKernels,
		options:     opts,
		changes:     changes,
		worker:      w,
		sub:         sub,
		confCh:      confCh,
		kernelModel: NewKernelModel(changes),
		schedModel:  NewSchedModel(opts.Controller.CurrentSelection()),
		ctx:         ctx,
		cancel:      cancel,
		loading:     true,
		spinner:     s,
		width:       80,
		height:      24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.refresh(),
		m.listenForStatus(),
		m.listenForConfChanges(),
	)
}

// refresh reloads the catalog in the background.
func (m Model) refresh() tea.Cmd {
	cat := m.options.Catalog
	ctx := m.ctx
	return func() tea.Msg {
		if err := cat.Refresh(ctx); err != nil {
			return refreshDoneMsg{err: err}
		}
		return refreshDoneMsg{kernels: cat.Kernels()}
	}
}

// listenForStatus waits for the next poller observation.
func (m Model) listenForStatus() tea.Cmd {
	sub := m.sub
	return func() tea.Msg {
		status, ok := <-sub.Updates
		if !ok {
			return nil
		}
		return statusMsg(status)
	}
}

// listenForConfChanges waits for the next scx configuration edit.
func (m Model) listenForConfChanges() tea.Cmd {
	ch := m.confCh
	return func() tea.Msg {
		_, ok := <-ch
		if !ok {
			return nil
		}
		return confChangedMsg{}
	}
}

// listenForResult waits for the worker's transaction outcome.
func (m Model) listenForResult() tea.Cmd {
	w := m.worker
	return func() tea.Msg {
		result, ok := <-w.Results()
		if !ok {
			return nil
		}
		return applyDoneMsg(result)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.kernelModel.SetDimensions(msg.Width, msg.Height)
		m.schedModel.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.loading || m.state == StateApplying {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case refreshDoneMsg:
		m.loading = false
		m.loadErr = msg.err
		if msg.err == nil {
			m.kernelModel.SetKernels(msg.kernels)
		}
		return m, nil

	case statusMsg:
		m.schedModel.SetStatus(schedext.Status(msg))
		return m, m.listenForStatus()

	case confChangedMsg:
		m.schedModel = NewSchedModel(m.options.Controller.CurrentSelection())
		m.schedModel.SetDimensions(m.width, m.height)
		return m, m.listenForConfChanges()

	case applyDoneMsg:
		m.lastResult = types.ApplyResult(msg)
		m.state = StateComplete
		return m, m.refresh()

	case schedDoneMsg:
		m.schedModel.SetActionErr(msg.err)
		if msg.err != nil {
			logging.Get("tui").Error("scheduler action failed", "action", msg.action, "error", msg.err)
		}
		return m, nil
	}

	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateBrowse:
		return m.handleBrowseKey(msg)

	case StateConfirm:
		switch key {
		case "q", "esc", "n":
			m.state = StateBrowse
		case "left", "h":
			m.confirmFocused = 0
		case "right", "l":
			m.confirmFocused = 1
		case "tab":
			m.confirmFocused = (m.confirmFocused + 1) % 2
		case "enter":
			if m.confirmFocused == 1 {
				return m.startApply()
			}
			m.state = StateBrowse
		case "y":
			return m.startApply()
		}

	case StateApplying:
		// Transaction in flight, ignore input.

	case StateComplete:
		if key == "q" || key == "enter" || key == "esc" {
			m.state = StateBrowse
		}
	}

	return m, nil
}

// handleBrowseKey routes keys to the active tab.
func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.activeTab == TabScheduler {
		if consumed, cmd := m.schedModel.HandleKey(msg); consumed {
			return m, cmd
		}
	}

	switch key {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit

	case "tab":
		if m.activeTab == TabKernels {
			m.activeTab = TabScheduler
		} else {
			m.activeTab = TabKernels
		}
		return m, nil
	}

	switch m.activeTab {
	case TabKernels:
		switch key {
		case "enter":
			if m.changes.Len() > 0 {
				m.state = StateConfirm
				m.confirmFocused = 0
			}
		case "r":
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.refresh())
		default:
			m.kernelModel.HandleKey(key)
		}

	case TabScheduler:
		switch key {
		case "enter":
			return m, m.applyScheduler()
		case "x":
			return m, m.disableScheduler()
		}
	}

	return m, nil
}

// startApply hands the change set to the worker.
func (m Model) startApply() (tea.Model, tea.Cmd) {
	if !m.worker.Request() {
		return m, nil
	}
	m.state = StateApplying
	return m, tea.Batch(m.spinner.Tick, m.listenForResult())
}

// applyScheduler applies the selected scheduler in the background.
func (m Model) applyScheduler() tea.Cmd {
	controller := m.options.Controller
	name := m.schedModel.Selected()
	flags := m.schedModel.Flags()
	ctx := m.ctx
	return func() tea.Msg {
		return schedDoneMsg{action: "apply", err: controller.Apply(ctx, name, flags)}
	}
}

// disableScheduler turns the scheduler off in the background.
func (m Model) disableScheduler() tea.Cmd {
	controller := m.options.Controller
	ctx := m.ctx
	return func() tea.Msg {
		return schedDoneMsg{action: "disable", err: controller.Disable(ctx)}
	}
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateConfirm:
		return m.overlayDialog(m.renderBrowse(), m.renderConfirmDialog())
	case StateApplying:
		return m.renderApplying()
	case StateComplete:
		return m.renderComplete()
	default:
		return m.renderBrowse()
	}
}

// renderBrowse renders the tab bar and the active panel.
func (m Model) renderBrowse() string {
	var b strings.Builder

	kernelsTab := inactiveTabStyle.Render("Kernels")
	schedTab := inactiveTabStyle.Render("Scheduler")
	if m.activeTab == TabKernels {
		kernelsTab = activeTabStyle.Render("Kernels")
	} else {
		schedTab = activeTabStyle.Render("Scheduler")
	}
	b.WriteString("  " + kernelsTab + " " + schedTab)
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width - 4))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(fmt.Sprintf("\n  %s Loading package databases...\n", m.spinner.View()))
	case m.loadErr != nil:
		b.WriteString("\n")
		b.WriteString(errorTextStyle.Render("  " + truncate(m.loadErr.Error(), m.width-6)))
		b.WriteString("\n")
		b.WriteString(mutedTextStyle.Render("  Press r to retry."))
		b.WriteString("\n")
	case m.activeTab == TabKernels:
		b.WriteString(m.kernelModel.View())
	default:
		b.WriteString(m.schedModel.View())
	}

	b.WriteString("\n")
	if m.activeTab == TabKernels {
		b.WriteString(m.kernelModel.FooterHints())
	} else {
		b.WriteString(m.schedModel.FooterHints())
	}
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderConfirmDialog renders the transaction confirmation dialog.
func (m Model) renderConfirmDialog() string {
	var installs, removes []string
	for _, change := range m.changes.Snapshot() {
		if change.Kind == types.ChangeInstall {
			installs = append(installs, change.Name)
		} else {
			removes = append(removes, change.Name)
		}
	}

	var content strings.Builder
	content.WriteString(dialogTitleStyle.Render("Apply Changes"))
	content.WriteString("\n\n")
	if len(installs) > 0 {
		content.WriteString(dialogTextStyle.Render("Install: " + strings.Join(installs, ", ")))
		content.WriteString("\n")
	}
	if len(removes) > 0 {
		content.WriteString(dialogTextStyle.Render("Remove: " + strings.Join(removes, ", ")))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	cancelBtn := inactiveButtonStyle.Render("Cancel")
	applyBtn := inactiveButtonStyle.Render("Apply")
	if m.confirmFocused == 0 {
		cancelBtn = activeButtonStyle.Background(subtleColor).Render("Cancel")
	} else {
		applyBtn = activeButtonStyle.Render("Apply")
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, cancelBtn, "  ", applyBtn)
	content.WriteString(center(buttons, 50))

	return dialogBoxStyle.Render(content.String())
}

// renderApplying renders the in-flight transaction view.
func (m Model) renderApplying() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  Applying changes..."))
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width - 4))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s Waiting for the package transaction to finish.", m.spinner.View()))
	b.WriteString("\n")
	b.WriteString(mutedTextStyle.Render("  You may be prompted to authenticate."))
	b.WriteString("\n")
	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderComplete renders the transaction outcome.
func (m Model) renderComplete() string {
	r := m.lastResult

	var b strings.Builder
	if r.Ok() {
		b.WriteString(successTextStyle.Render("  Transaction Complete"))
	} else {
		b.WriteString(errorTextStyle.Render("  Transaction Failed"))
	}
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width - 4))
	b.WriteString("\n\n")
	b.WriteString("  " + r.Summary())
	b.WriteString("\n")

	for _, ce := range r.Errors {
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("    - %s %s: %v", ce.Kind, ce.Package, ce.Err)))
		b.WriteString("\n")
	}
	if r.CommitErr != nil {
		b.WriteString(errorTextStyle.Render("    commit: " + truncate(r.CommitErr.Error(), m.width-14)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(center(keyStyle.Render("[Enter]")+" "+keyDescStyle.Render("Back"), m.width-4))
	b.WriteString("\n")
	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// overlayDialog centers a dialog over a background view.
func (m Model) overlayDialog(bg, dialog string) string {
	dialogLines := strings.Split(dialog, "\n")
	bgLines := strings.Split(bg, "\n")

	dialogHeight := len(dialogLines)
	startRow := (m.height - dialogHeight) / 2
	if startRow < 0 {
		startRow = 0
	}

	dialogWidth := lipgloss.Width(dialog)
	startCol := (m.width - dialogWidth) / 2
	if startCol < 0 {
		startCol = 0
	}

	var result []string
	for i := range max(len(bgLines), startRow+dialogHeight) {
		if i < startRow || i >= startRow+dialogHeight {
			if i < len(bgLines) {
				result = append(result, bgLines[i])
			} else {
				result = append(result, "")
			}
			continue
		}
		dialogLine := dialogLines[i-startRow]
		if i < len(bgLines) && startCol <= len(bgLines[i]) {
			result = append(result, bgLines[i][:startCol]+dialogLine)
		} else {
			result = append(result, strings.Repeat(" ", startCol)+dialogLine)
		}
	}
	return strings.Join(result, "\n")
}

// Run starts the TUI application and its background components.
func Run(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := changeset.New()

	var workerOpts []worker.Option
	if opts.HistoryPath != "" {
		store, err := history.Open(opts.HistoryPath)
		if err != nil {
			logging.Get("tui").Warn("history store unavailable", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			workerOpts = append(workerOpts, worker.WithRecorder(func(r types.ApplyResult) {
				if err := store.Put(r); err != nil {
					logging.Get("tui").Warn("recording transaction failed", "error", err)
				}
			}))
		}
	}

	w := worker.New(opts.Catalog, changes, workerOpts...)
	w.Start(ctx)

	poller := schedext.NewPoller(opts.StatusReader, opts.PollInterval)
	sub := poller.Subscribe()
	poller.Start(ctx)

	confCh := make(chan struct{}, 1)
	if watcher, err := schedext.NewConfWatcher(opts.Controller.ConfPath); err == nil {
		defer func() { _ = watcher.Close() }()
		go watcher.Run(ctx, func() {
			select {
			case confCh <- struct{}{}:
			default:
			}
		})
	} else {
		logging.Get("tui").Debug("configuration watcher unavailable", "error", err)
	}

	model := newModel(opts, changes, w, sub, confCh, ctx, cancel)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
