package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetvoice/fleetvoice/pkg/session"
	"github.com/fleetvoice/fleetvoice/pkg/transcript"
)

const eventsPaneRows = 8

var (
	styleHeader    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("57")).Padding(0, 1)
	styleStatus    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	styleConnected = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleUser      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleBot       = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	styleEvent     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleReveal    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleErr       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleHint      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Messages delivered into the update loop from controller callbacks.
type (
	statusMsg     session.Status
	typingMsg     bool
	chatMsg       struct{}
	transcriptMsg struct{}
	revealMsg     struct {
		component string
		params    map[string]any
	}
	connectDoneMsg struct{ err error }
)

type uiModel struct {
	controller *session.Controller
	chat       *session.ChatProjection
	savePrefs  func(pushToTalk, eventsExpanded, audioEnabled bool)

	view    viewport.Model
	input   textinput.Model
	spinner spinner.Model

	status         session.Status
	typing         bool
	talking        bool
	eventsExpanded bool
	audioEnabled   bool
	reveal         string
	errText        string
	width          int
	height         int
	ready          bool
	quitting       bool
}

func newUIModel(controller *session.Controller, chat *session.ChatProjection, eventsExpanded, audioEnabled bool, savePrefs func(pushToTalk, eventsExpanded, audioEnabled bool)) uiModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	return uiModel{
		controller:     controller,
		chat:           chat,
		savePrefs:      savePrefs,
		input:          ti,
		spinner:        sp,
		status:         session.StatusDisconnected,
		eventsExpanded: eventsExpanded,
		audioEnabled:   audioEnabled,
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.connectCmd())
}

func (m uiModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		return connectDoneMsg{err: m.controller.Connect(context.Background())}
	}
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshChat()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.status = session.Status(msg)
		if m.status == session.StatusDisconnected {
			m.talking = false
		}
		return m, nil

	case typingMsg:
		m.typing = bool(msg)
		m.refreshChat()
		return m, nil

	case chatMsg:
		m.refreshChat()
		return m, nil

	case transcriptMsg:
		m.refreshChat()
		return m, nil

	case revealMsg:
		m.reveal = revealSummary(msg.component, msg.params)
		return m, nil

	case connectDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if err := m.controller.SendUserText(text); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.chat.AddUserMessage(text)
		m.errText = ""
		m.input.Reset()
		m.refreshChat()
		return m, nil

	case "ctrl+p":
		enabled := !m.controller.PushToTalk()
		m.controller.SetPushToTalk(enabled)
		m.talking = false
		m.savePrefs(enabled, m.eventsExpanded, m.audioEnabled)
		return m, nil

	case "ctrl+o":
		m.audioEnabled = !m.audioEnabled
		m.savePrefs(m.controller.PushToTalk(), m.eventsExpanded, m.audioEnabled)
		return m, nil

	case "ctrl+t":
		if !m.controller.PushToTalk() {
			return m, nil
		}
		if m.talking {
			m.controller.TalkButtonUp()
			m.talking = false
		} else {
			m.controller.TalkButtonDown()
			m.talking = true
		}
		return m, nil

	case "ctrl+a":
		m.cycleAgent()
		return m, nil

	case "ctrl+e":
		m.eventsExpanded = !m.eventsExpanded
		m.savePrefs(m.controller.PushToTalk(), m.eventsExpanded, m.audioEnabled)
		m.layout()
		m.refreshChat()
		return m, nil

	case "ctrl+r":
		if m.status == session.StatusDisconnected {
			return m, m.connectCmd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *uiModel) cycleAgent() {
	names := m.controller.AgentNames()
	if len(names) < 2 {
		return
	}
	active := m.controller.ActiveAgent()
	for i, name := range names {
		if name == active {
			next := names[(i+1)%len(names)]
			if err := m.controller.SelectAgent(next); err != nil {
				m.errText = err.Error()
			}
			return
		}
	}
}

func (m *uiModel) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chrome := 5 // header, input, hints, reveal slot, error slot
	if m.eventsExpanded {
		chrome += eventsPaneRows + 1
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	if m.view.Width == 0 {
		m.view = viewport.New(m.width, h)
	} else {
		m.view.Width = m.width
		m.view.Height = h
	}
	m.input.Width = m.width - 4
}

func (m *uiModel) refreshChat() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.chat.Messages() {
		label := styleBot.Render("agent")
		if msg.Sender == session.SenderUser {
			label = styleUser.Render("you")
		}
		b.WriteString(fmt.Sprintf("%s  %s\n\n", label, msg.Text))
	}
	if m.typing {
		b.WriteString(m.spinner.View() + styleStatus.Render(" agent is responding...") + "\n")
	}
	m.view.SetContent(b.String())
	m.view.GotoBottom()
}

func (m uiModel) View() string {
	if m.quitting {
		return "bye\n"
	}
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader() + "\n")
	b.WriteString(m.view.View() + "\n")
	if m.eventsExpanded {
		b.WriteString(m.renderEvents())
	}
	if m.reveal != "" {
		b.WriteString(styleReveal.Render("▸ "+m.reveal) + "\n")
	} else {
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(styleErr.Render("error: "+m.errText) + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(styleHint.Render(m.hints()))
	return b.String()
}

func (m uiModel) renderHeader() string {
	status := styleStatus.Render(string(m.status))
	if m.status == session.StatusConnected {
		status = styleConnected.Render(string(m.status))
	}
	mode := "vad"
	if m.controller.PushToTalk() {
		mode = "ptt"
		if m.talking {
			mode = "ptt·talking"
		}
	}
	audio := "on"
	if !m.audioEnabled {
		audio = "off"
	}
	return styleHeader.Render("fleetvoice") + "  " +
		status + "  " +
		styleStatus.Render("agent: "+m.controller.ActiveAgent()) + "  " +
		styleStatus.Render("mode: "+mode) + "  " +
		styleStatus.Render("audio: "+audio)
}

func (m uiModel) renderEvents() string {
	items := m.controller.Transcript().Items()
	var lines []string
	for _, item := range items {
		if item.Hidden {
			continue
		}
		switch item.Kind {
		case transcript.KindBreadcrumb:
			title, _, _ := strings.Cut(item.Title, "\n")
			lines = append(lines, "• "+title)
		case transcript.KindSeparator:
			lines = append(lines, "── "+item.Title)
		}
	}
	if len(lines) > eventsPaneRows {
		lines = lines[len(lines)-eventsPaneRows:]
	}
	for len(lines) < eventsPaneRows {
		lines = append(lines, "")
	}
	var b strings.Builder
	b.WriteString(styleEvent.Render("events") + "\n")
	for _, line := range lines {
		b.WriteString(styleEvent.Render(line) + "\n")
	}
	return b.String()
}

func (m uiModel) hints() string {
	return "enter send · ctrl+t talk · ctrl+p ptt · ctrl+o audio · ctrl+a agent · ctrl+e events · ctrl+r reconnect · esc quit"
}

func revealSummary(component string, params map[string]any) string {
	switch component {
	case "purchaseControls":
		if preset, _ := params["preset"].(string); preset != "" {
			return "purchase controls (" + preset + " preset)"
		}
		return "purchase controls"
	case "statementSummary":
		if period, _ := params["period"].(string); period != "" {
			return "statement summary for " + period
		}
		return "statement summary"
	default:
		return component
	}
}
