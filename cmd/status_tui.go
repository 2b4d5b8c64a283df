package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/embedterm/pkg/embedterm"
	"github.com/grovetools/embedterm/tui/theme"
)

const statusRefreshInterval = 500 * time.Millisecond

// statusPanel is the slice of *embedterm.Panel the status view drives.
type statusPanel interface {
	Status() embedterm.Status
	OnFocusGained()
	OnFocusLost()
	OnClick()
	Retry()
}

type statusKeyMap struct {
	Focus key.Binding
	Click key.Binding
	Retry key.Binding
	Quit  key.Binding
}

func newStatusKeyMap() statusKeyMap {
	return statusKeyMap{
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle terminal focus"),
		),
		Click: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "click terminal"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k statusKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.Click, k.Retry, k.Quit}
}

func (k statusKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type statusTickMsg time.Time

func statusTick() tea.Cmd {
	return tea.Tick(statusRefreshInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

// statusModel shows the panel state while embedterm run --tui is active.
// Focus is simulated: while "focused", configured chords go to the session.
type statusModel struct {
	panel   statusPanel
	host    *cliHost
	keys    statusKeyMap
	help    help.Model
	focused bool
	status  embedterm.Status
}

func newStatusModel(panel statusPanel, host *cliHost) statusModel {
	return statusModel{
		panel:  panel,
		host:   host,
		keys:   newStatusKeyMap(),
		help:   help.New(),
		status: panel.Status(),
	}
}

func (m statusModel) Init() tea.Cmd {
	return statusTick()
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case statusTickMsg:
		m.status = m.panel.Status()
		return m, statusTick()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Focus):
			m.focused = !m.focused
			if m.focused {
				m.panel.OnFocusGained()
			} else {
				m.panel.OnFocusLost()
			}
		case key.Matches(msg, m.keys.Click):
			m.focused = true
			m.panel.OnClick()
		case key.Matches(msg, m.keys.Retry):
			m.panel.Retry()
		}
		m.status = m.panel.Status()
	}
	return m, nil
}

func (m statusModel) View() string {
	notice := ""
	if m.host != nil {
		notice = m.host.Notice()
	}
	return renderStatus(m.status, m.focused, notice) + "\n\n" + m.help.View(m.keys)
}

// renderStatus formats a status snapshot as a small key/value block.
func renderStatus(s embedterm.Status, focused bool, notice string) string {
	t := theme.DefaultTheme
	label := lipgloss.NewStyle().Foreground(t.Colors.MutedText).Width(10)

	stateStyle := "info"
	switch s.State {
	case embedterm.StateReady:
		stateStyle = "success"
	case embedterm.StateDegraded, embedterm.StateRespawning:
		stateStyle = "warning"
	}
	state := theme.RenderStatus(stateStyle, s.State.String())
	if s.Inert {
		state = theme.RenderStatus("error", "inert")
	}

	intercept := "off"
	if s.Intercept {
		intercept = "on"
	}
	focus := "host"
	if focused {
		focus = "terminal"
	}

	rows := [][2]string{
		{"state", state},
		{"pid", fmt.Sprintf("%d", s.Pid)},
		{"window", fmt.Sprintf("0x%x", s.Window)},
		{"cwd", s.Cwd},
		{"grid", fmt.Sprintf("%dx%d", s.Cols, s.Rows)},
		{"respawns", fmt.Sprintf("%d", s.Respawns)},
		{"focus", focus},
		{"intercept", intercept},
	}

	var b strings.Builder
	b.WriteString(theme.RenderHeader("embedterm"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(label.Render(row[0]))
		b.WriteString(row[1])
		b.WriteString("\n")
	}
	if notice != "" {
		b.WriteString("\n")
		b.WriteString(theme.RenderStatus("warning", notice))
	}
	return strings.TrimRight(b.String(), "\n")
}
