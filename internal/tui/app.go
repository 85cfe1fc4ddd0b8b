package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lu-zhengda/appsweep/internal/catalog"
	"github.com/lu-zhengda/appsweep/internal/engine"
	"github.com/lu-zhengda/appsweep/internal/remover"
	"github.com/lu-zhengda/appsweep/internal/utils"
)

type viewState int

const (
	viewLoading viewState = iota
	viewBrowse
	viewConfirm
	viewRemoval
)

const (
	listWidth     = 44
	minPanelWidth = 40
	chromeLines   = 8
)

type appsLoadedMsg struct {
	apps []catalog.App
}

type loadProgressMsg struct {
	progress engine.DescribeProgress
}

type planMsg struct {
	path string
	plan engine.Plan
	err  error
}

type removalEventMsg struct {
	event remover.Event
}

// logLine is one rendered line of the removal log.
type logLine struct {
	text string
	tone remover.LineTone
}

// removalClosedMsg arrives once the event stream is drained.
type removalClosedMsg struct{}

// RemovedFunc is called on the UI goroutine after each finished removal.
type RemovedFunc func(engine.Plan, remover.Report)

// Model is the bubbletea model for the interactive remover.
type Model struct {
	engine    *engine.Engine
	remover   *remover.Remover
	onRemoved RemovedFunc

	currentView viewState

	// App list state
	apps         []catalog.App
	filtered     []catalog.App
	cursor       int
	scrollOffset int
	search       textinput.Model
	searching    bool

	// Loading state
	loadProgress engine.DescribeProgress
	loadCh       chan engine.DescribeProgress

	// Details panel state
	plans      map[string]engine.Plan
	inspecting string
	planErr    error

	// Removal state
	removing bool
	target   engine.Plan
	events   <-chan remover.Event
	logLines []logLine
	report   *remover.Report

	spinner spinner.Model

	width  int
	height int
}

// New returns the interactive model. onRemoved may be nil.
func New(e *engine.Engine, rm *remover.Remover, onRemoved RemovedFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 100
	ti.Width = listWidth - 4
	ti.Prompt = "/ "

	return Model{
		engine:    e,
		remover:   rm,
		onRemoved: onRemoved,
		search:    ti,
		loadCh:    make(chan engine.DescribeProgress, 1),
		plans:     make(map[string]engine.Plan),
		spinner:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(loadApps(m.engine, m.loadCh), listenLoadProgress(m.loadCh), m.spinner.Tick)
}

// loadApps lists and sizes every app, reporting progress on ch and closing
// it when done.
func loadApps(e *engine.Engine, ch chan engine.DescribeProgress) tea.Cmd {
	return func() tea.Msg {
		apps := e.Describe(context.Background(), e.Catalog().List(), func(p engine.DescribeProgress) {
			select {
			case ch <- p:
			default:
			}
		})
		close(ch)
		return appsLoadedMsg{apps: apps}
	}
}

func listenLoadProgress(ch chan engine.DescribeProgress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return loadProgressMsg{progress: p}
	}
}

func (m Model) reload() (Model, tea.Cmd) {
	m.currentView = viewLoading
	m.loadProgress = engine.DescribeProgress{}
	m.plans = make(map[string]engine.Plan)
	m.loadCh = make(chan engine.DescribeProgress, 1)
	return m, tea.Batch(loadApps(m.engine, m.loadCh), listenLoadProgress(m.loadCh), m.spinner.Tick)
}

func (m Model) inspect(path string) tea.Cmd {
	return func() tea.Msg {
		plan, err := m.engine.InspectBundle(context.Background(), path)
		return planMsg{path: path, plan: plan, err: err}
	}
}

// listenRemoval delivers the next removal event, or removalClosedMsg once
// the stream ends.
func listenRemoval(ch <-chan remover.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return removalClosedMsg{}
		}
		return removalEventMsg{event: e}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.currentView == viewLoading || m.inspecting != "" || m.removing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case loadProgressMsg:
		m.loadProgress = msg.progress
		if m.loadCh != nil {
			return m, listenLoadProgress(m.loadCh)
		}
		return m, nil

	case appsLoadedMsg:
		m.apps = msg.apps
		m.loadCh = nil
		m.currentView = viewBrowse
		m.applyFilter()
		cmd := m.inspectSelected()
		return m, cmd

	case planMsg:
		if msg.err == nil {
			m.plans[msg.path] = msg.plan
		}
		// Results for an app that is no longer highlighted only fill the cache.
		if msg.path == m.inspecting {
			m.inspecting = ""
			m.planErr = msg.err
		}
		return m, nil

	case removalEventMsg:
		m.handleRemovalEvent(msg.event)
		return m, listenRemoval(m.events)

	case removalClosedMsg:
		m.removing = false
		m.events = nil
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.currentView {
		case viewBrowse:
			return m.updateBrowse(msg)
		case viewConfirm:
			return m.updateConfirm(msg)
		case viewRemoval:
			return m.updateRemoval(msg)
		case viewLoading:
			if msg.String() == "q" {
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

func (m *Model) handleRemovalEvent(e remover.Event) {
	switch e.Kind {
	case remover.EventLine:
		m.logLines = append(m.logLines, logLine{text: e.Line, tone: e.Tone})
	case remover.EventDone:
		m.report = e.Report
		if m.onRemoved != nil && e.Report != nil {
			m.onRemoved(m.target, *e.Report)
		}
	}
}

func (m *Model) applyFilter() {
	m.filtered = catalog.Filter(m.apps, m.search.Value())
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.scrollOffset = 0
	m.ensureCursorVisible()
}

func (m Model) selected() (catalog.App, bool) {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return catalog.App{}, false
	}
	return m.filtered[m.cursor], true
}

// inspectSelected starts building the plan for the highlighted app unless
// it is already cached.
func (m *Model) inspectSelected() tea.Cmd {
	app, ok := m.selected()
	if !ok {
		m.inspecting = ""
		return nil
	}
	m.planErr = nil
	if _, cached := m.plans[app.Path]; cached {
		m.inspecting = ""
		return nil
	}
	m.inspecting = app.Path
	return tea.Batch(m.inspect(app.Path), m.spinner.Tick)
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.String() {
		case "enter", "down", "up":
			m.searching = false
			m.search.Blur()
			if msg.String() == "enter" {
				cmd := m.inspectSelected()
				return m, cmd
			}
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.applyFilter()
			cmd := m.inspectSelected()
			return m, cmd
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			m.applyFilter()
			return m, cmd
		}
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.applyFilter()
			cmd := m.inspectSelected()
			return m, cmd
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
			cmd := m.inspectSelected()
			return m, cmd
		}
	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.ensureCursorVisible()
			cmd := m.inspectSelected()
			return m, cmd
		}
	case "r":
		if !m.removing {
			return m.reload()
		}
	case "d", "enter":
		if m.removing {
			return m, nil
		}
		app, ok := m.selected()
		if !ok {
			return m, nil
		}
		if plan, ready := m.plans[app.Path]; ready {
			m.target = plan
			m.currentView = viewConfirm
		}
	}
	return m, nil
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleItemCount()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
}

func (m Model) visibleItemCount() int {
	if m.height == 0 {
		return 20
	}
	return max(1, m.height-chromeLines)
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		if m.removing {
			return m, nil
		}
		m.removing = true
		m.report = nil
		m.logLines = nil
		m.events = m.remover.Start(context.Background(), m.target.Request())
		m.currentView = viewRemoval
		return m, tea.Batch(listenRemoval(m.events), m.spinner.Tick)
	case "n", "esc", "backspace":
		m.currentView = viewBrowse
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateRemoval(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.removing {
		return m, nil
	}
	switch msg.String() {
	case "enter", "esc":
		m.search.SetValue("")
		m.cursor = 0
		return m.reload()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// --- Views ---

func (m Model) View() string {
	switch m.currentView {
	case viewLoading:
		return m.viewLoading()
	case viewConfirm:
		return m.viewConfirm()
	case viewRemoval:
		return m.viewRemoval()
	default:
		return m.viewBrowse()
	}
}

func (m Model) viewLoading() string {
	s := renderHeader("Applications") + "\n"
	s += m.spinner.View() + " Sizing installed applications...\n\n"
	if p := m.loadProgress; p.Total > 0 {
		s += fmt.Sprintf("  %s %d/%d  %s\n",
			renderProgressBar(float64(p.Done)/float64(p.Total), 30), p.Done, p.Total, dimStyle.Render(p.App.Name))
	}
	return s + helpStyle.Render("q quit")
}

func (m Model) viewBrowse() string {
	s := renderHeader("Applications")

	left := m.viewList()
	right := m.viewDetails()
	s += lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n"

	hints := "j/k navigate | / search | d remove | r refresh | q quit"
	if m.searching {
		hints = "type to filter | enter done | esc clear"
	}
	return s + renderFooter(hints)
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(m.search.View() + "\n\n")

	if len(m.filtered) == 0 {
		if len(m.apps) == 0 {
			b.WriteString(dimStyle.Render("No applications found."))
		} else {
			b.WriteString(dimStyle.Render(fmt.Sprintf("No match for %q.", m.search.Value())))
		}
		return panelStyle.Width(listWidth).Render(b.String())
	}

	visible := m.visibleItemCount()
	end := min(m.scrollOffset+visible, len(m.filtered))
	for i := m.scrollOffset; i < end; i++ {
		app := m.filtered[i]
		line := fmt.Sprintf("%-28s %10s", truncPath(app.Name, 28), utils.FormatSize(app.Size))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	if len(m.filtered) > visible {
		b.WriteString(dimStyle.Render(fmt.Sprintf("[%d-%d of %d]", m.scrollOffset+1, end, len(m.filtered))))
	}

	return panelStyle.Width(listWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) detailsWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(minPanelWidth, m.width-listWidth-6)
}

func (m Model) viewDetails() string {
	width := m.detailsWidth()
	app, ok := m.selected()
	if !ok {
		return panelStyle.Width(width).Render(dimStyle.Render("Select an application."))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(app.Name) + "\n")

	plan, ready := m.plans[app.Path]
	switch {
	case m.planErr != nil && m.inspecting == "":
		b.WriteString(failStyle.Render("Could not inspect: " + m.planErr.Error()))
		return panelStyle.Width(width).Render(b.String())
	case !ready:
		b.WriteString(m.spinner.View() + " Looking for residual files...")
		return panelStyle.Width(width).Render(b.String())
	}

	pathWidth := width - 16
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Path:      "), truncPath(plan.App.Path, pathWidth)))
	id := plan.App.BundleID
	if id == "" {
		id = dimStyle.Render("(none)")
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Identifier:"), id))
	b.WriteString(fmt.Sprintf("%s %s\n\n", labelStyle.Render("Size:      "), utils.FormatSize(plan.App.Size)))

	if len(plan.Residuals) == 0 {
		b.WriteString(dimStyle.Render("No residual files found.") + "\n")
	} else {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Residual files (%d):", len(plan.Residuals))) + "\n")
		for _, r := range plan.Residuals {
			ratio := 0.0
			if plan.Total > 0 {
				ratio = float64(r.Size) / float64(plan.Total)
			}
			b.WriteString(fmt.Sprintf("  %s %-*s %10s\n",
				renderProgressBar(ratio, 8), pathWidth-14, truncPath(r.Path, pathWidth-14), utils.FormatSize(r.Size)))
		}
	}

	b.WriteString("\n" + statusBarStyle.Render(fmt.Sprintf("Total: %s", utils.FormatSize(plan.Total))))
	return panelStyle.Width(width).Render(b.String())
}

func (m Model) viewConfirm() string {
	plan := m.target
	s := dangerStyle.Render(" CONFIRM REMOVAL ") + "\n\n"
	s += fmt.Sprintf("  Remove %s and %d residual items (%s)?\n\n",
		labelStyle.Render(plan.App.Name), len(plan.Residuals), utils.FormatSize(plan.Total))
	s += fmt.Sprintf("  %s\n", truncPath(plan.App.Path, 70))
	for _, r := range plan.Residuals {
		s += fmt.Sprintf("  %s\n", truncPath(r.Path, 70))
	}
	s += warnStyle.Render("\n  Files are deleted permanently. A running app is asked to quit first.") + "\n"
	return s + helpStyle.Render("  y confirm | n cancel")
}

func (m Model) viewRemoval() string {
	s := renderHeader("Remove", m.target.App.Name) + "\n"
	if m.removing {
		s += m.spinner.View() + " Removing...\n\n"
	}

	lines := m.logLines
	if limit := m.visibleItemCount(); len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(lineStyle(l.tone).Render(l.text) + "\n")
	}
	s += panelStyle.Width(max(minPanelWidth, m.width-4)).Render(strings.TrimRight(b.String(), "\n")) + "\n"

	if m.report != nil && len(m.report.Failed()) > 0 {
		hint := "Some files may need administrator privileges."
		if m.report.NeedsPrivilege() {
			hint = "Some files need administrator privileges."
		}
		s += failStyle.Render(fmt.Sprintf("\n  %d path(s) could not be removed. %s", len(m.report.Failed()), hint)) + "\n"
		s += dimStyle.Render(fmt.Sprintf("  Try: sudo appsweep remove %q", m.target.App.Name)) + "\n"
	}

	if m.removing {
		return s
	}
	return s + helpStyle.Render("enter back to list | q quit")
}
