package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ycstress/internal/catalog"
	"ycstress/internal/config"
	"ycstress/internal/db"
	"ycstress/internal/session"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	consoleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")) // Classic green terminal

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F44747")).
			Bold(true)

	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	stoppingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00")).Bold(true)
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

// maxConsoleLines bounds the in-memory console tail.
const maxConsoleLines = 2000

type sessionEventMsg session.Event

type streamClosedMsg struct{}

type stressTickMsg time.Time

// StressModel is the main TUI: checkbox list of catalog tests on the left,
// live console pane on the right. It only ever observes the session manager
// through Status snapshots and the event stream.
type StressModel struct {
	manager      *session.Manager
	history      db.Store
	settingsPath string
	settings     config.Settings

	tests    []catalog.TestDefinition
	cursor   int
	selected map[string]bool

	limitInput   textinput.Model
	editingLimit bool

	console viewport.Model
	lines   []string
	events  <-chan session.Event
	status  session.Status
	runID   int64
	notice  string

	width  int
	height int
}

// NewStressModel builds the dashboard from persisted settings. history may
// be nil; run recording is then skipped.
func NewStressModel(manager *session.Manager, history db.Store, settingsPath string) StressModel {
	settings := config.LoadSettings(settingsPath)

	selected := make(map[string]bool)
	for _, id := range settings.SelectedIDs() {
		selected[id] = true
	}

	input := textinput.New()
	input.Placeholder = "auto"
	input.SetValue(settings.TimeLimit)
	input.CharLimit = 8
	input.Width = 10

	m := StressModel{
		manager:      manager,
		history:      history,
		settingsPath: settingsPath,
		settings:     settings,
		tests:        catalog.Tests(),
		selected:     selected,
		limitInput:   input,
		console:      viewport.New(0, 0),
	}
	m.status = manager.Status()
	return m
}

func (m StressModel) Init() tea.Cmd {
	return stressTickCmd()
}

func stressTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return stressTickMsg(t)
	})
}

// listenCmd relays one event from the background drain context into the
// bubbletea loop. The foreground never blocks on process I/O; it re-arms
// this command after each message.
func listenCmd(events <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return sessionEventMsg(ev)
	}
}

func (m StressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.console.Width = m.width/2 - 4
		m.console.Height = m.height - 8
		return m, nil

	case stressTickMsg:
		m.status = m.manager.Status()
		return m, stressTickCmd()

	case sessionEventMsg:
		ev := session.Event(msg)
		switch ev.Kind {
		case session.EventLine:
			m.appendLine(ev.Line)
		case session.EventDone:
			m.status = ev.Status
			m.finishRun(ev.Status)
		}
		return m, listenCmd(m.events)

	case streamClosedMsg:
		m.events = nil
		m.status = m.manager.Status()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.console, cmd = m.console.Update(msg)
	return m, cmd
}

func (m StressModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingLimit {
		switch msg.String() {
		case "enter", "esc":
			m.editingLimit = false
			m.limitInput.Blur()
			if strings.TrimSpace(m.limitInput.Value()) == "" {
				m.limitInput.SetValue("auto")
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.limitInput, cmd = m.limitInput.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.persistSettings()
		m.manager.Stop()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.tests)-1 {
			m.cursor++
		}

	case " ":
		id := m.tests[m.cursor].ID
		m.selected[id] = !m.selected[id]

	case "a":
		for _, d := range m.tests {
			m.selected[d.ID] = true
		}

	case "n":
		m.selected = make(map[string]bool)
		// With nothing selected the auto time limit is 0; a stale manual
		// value would be meaningless here.
		m.limitInput.SetValue("auto")

	case "1":
		m.applyPreset(catalog.PresetCPU)

	case "2":
		m.applyPreset(catalog.PresetCPURAM)

	case "3":
		m.applyPreset(catalog.PresetRAM)

	case "t":
		m.editingLimit = true
		m.limitInput.Focus()
		return m, textinput.Blink

	case "s":
		return m.startRun()

	case "x":
		if m.status.State == session.StateRunning {
			m.manager.Stop()
			m.status = m.manager.Status()
			m.appendLine("> Stop requested, waiting for process to exit...")
		}
	}

	return m, nil
}

func (m *StressModel) applyPreset(p catalog.Preset) {
	m.selected = make(map[string]bool)
	for _, id := range catalog.ComputePreset(p) {
		m.selected[id] = true
	}
	m.notice = ""
}

// selectionIDs returns the checked tests in catalog order.
func (m StressModel) selectionIDs() []string {
	var ids []string
	for _, d := range m.tests {
		if m.selected[d.ID] {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func (m StressModel) runConfig() session.RunConfig {
	return session.RunConfig{
		Selection:       m.selectionIDs(),
		TimeLimit:       m.limitInput.Value(),
		DurationPerTest: m.settings.DurationPerTest,
		Memory:          m.settings.Memory,
	}
}

func (m StressModel) startRun() (tea.Model, tea.Cmd) {
	cfg := m.runConfig()

	events, err := m.manager.Start(cfg)
	if err != nil {
		m.notice = startErrorMessage(err)
		return m, nil
	}

	m.notice = ""
	m.lines = nil
	m.events = events
	m.status = m.manager.Status()
	m.appendLine("> " + strings.Join(session.BuildArgs(cfg), " "))

	if m.history != nil {
		id, err := m.history.RecordStart(cfg.Selection, cfg.EffectiveTimeLimit())
		if err != nil {
			slog.Warn("failed to record run start", "error", err)
		} else {
			m.runID = id
		}
	}

	return m, listenCmd(events)
}

func (m *StressModel) finishRun(st session.Status) {
	if st.State == session.StateFailed {
		m.appendLine(fmt.Sprintf("> Run failed: %s", st.Reason))
	} else if st.ExitCode != 0 {
		m.appendLine(fmt.Sprintf("> Process exited with code: %d", st.ExitCode))
	}
	if st.Forced {
		m.appendLine("> Graceful stop timed out; the process group was killed. If y-cruncher is still running, terminate it manually.")
	}
	m.appendLine("> Test completed or stopped.")

	if m.history != nil && m.runID != 0 {
		if err := m.history.RecordFinish(m.runID, st.State.String(), st.ExitCode); err != nil {
			slog.Warn("failed to record run end", "error", err)
		}
		m.runID = 0
	}
}

func (m *StressModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxConsoleLines {
		m.lines = m.lines[len(m.lines)-maxConsoleLines:]
	}
	atBottom := m.console.AtBottom()
	m.console.SetContent(consoleStyle.Render(strings.Join(m.lines, "\n")))
	if atBottom {
		m.console.GotoBottom()
	}
}

func (m *StressModel) persistSettings() {
	m.settings.Selected = make(map[string]bool)
	for id, on := range m.selected {
		if on {
			m.settings.Selected[id] = true
		}
	}
	m.settings.TimeLimit = m.limitInput.Value()
	if err := config.SaveSettings(m.settingsPath, m.settings); err != nil {
		// Non-fatal: the session outlives a bad settings write.
		slog.Warn("failed to save settings", "error", err)
	}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrAlreadyRunning):
		return "Test is already running!"
	case errors.Is(err, session.ErrNoSelection):
		return "Please select at least one component!"
	case errors.Is(err, session.ErrBinaryNotFound):
		return "y-cruncher not found! Run 'ycstress download' or place the binary next to this tool."
	default:
		return fmt.Sprintf("Failed to start: %v", err)
	}
}

func (m StressModel) View() string {
	header := m.renderHeader()

	listWidth := m.width/2 - 4
	if listWidth < 30 {
		listWidth = 46
	}

	testsPane := paneStyle.Width(listWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Background(lipgloss.Color("#0000AA")).Render("Components"),
			m.renderTestList(),
		),
	)

	consolePane := paneStyle.Width(listWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Background(lipgloss.Color("#005500")).Render("Console"),
			m.console.View(),
		),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, testsPane, consolePane)

	footer := subtleStyle.Render(
		"space toggle · a all · n none · 1 CPU · 2 CPU+RAM · 3 RAM · t time limit · s start · x stop · q quit")
	if m.notice != "" {
		footer = noticeStyle.Render(m.notice) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, footer)
}

func (m StressModel) renderHeader() string {
	st := m.status

	var stateText string
	switch st.State {
	case session.StateRunning:
		stateText = runningStyle.Render("RUNNING") + subtleStyle.Render(
			fmt.Sprintf(" (%s)", time.Since(st.StartedAt).Round(time.Second)))
	case session.StateStopping:
		stateText = stoppingStyle.Render("STOPPING")
	case session.StateFinished:
		stateText = fmt.Sprintf("FINISHED (exit %d)", st.ExitCode)
	case session.StateFailed:
		stateText = failedStyle.Render("FAILED") + " " + st.Reason
	default:
		stateText = "IDLE"
	}

	cfg := m.runConfig()
	limit := fmt.Sprintf("time limit: %ds", cfg.EffectiveTimeLimit())
	if m.editingLimit {
		limit = "time limit: " + m.limitInput.View()
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(" y-cruncher stress "),
		subtleStyle.Render(fmt.Sprintf("  %d selected · %s · ", len(cfg.Selection), limit)),
		stateText,
	)
}

func (m StressModel) renderTestList() string {
	var b strings.Builder
	for i, d := range m.tests {
		check := "[ ]"
		if m.selected[d.ID] {
			check = "[x]"
		}
		row := fmt.Sprintf("%s %-6s %-14s %s", check, d.ID, d.DisplayName, d.LoadVisual())
		if i == m.cursor {
			row = selectedRowStyle.Render(row)
		}
		b.WriteString(row)
		if i < len(m.tests)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Public entry point
var StartStressDashboard = func(manager *session.Manager, history db.Store, settingsPath string) error {
	p := tea.NewProgram(NewStressModel(manager, history, settingsPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
