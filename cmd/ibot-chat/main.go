// Command ibot-chat is a terminal conversation client. Typing updates the
// in-progress turn, Enter completes it, and the bot's replies stream into a
// scrolling transcript. It talks to a running ibot-server when
// IBOT_SERVER_URL is set and falls back to an in-process registry otherwise.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sleekcode-io/ibot/client"
	orchestration "github.com/sleekcode-io/ibot/core"
	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/llms/openai"
	"github.com/sleekcode-io/ibot/core/registry"
	"github.com/sleekcode-io/ibot/core/roles"
	"github.com/sleekcode-io/ibot/core/transcript"
)

type startedMsg struct{ err error }

type stateMsg struct{ state orchestration.State }

type entryMsg struct {
	index int
	entry transcript.Entry
}

type errMsg struct{ err error }

type actionMsg struct{ status string }

func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

type theme struct {
	user   lipgloss.Style
	bot    lipgloss.Style
	system lipgloss.Style
	status lipgloss.Style
	errord lipgloss.Style
	footer lipgloss.Style
}

func newTheme() theme {
	return theme{
		user:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		bot:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		system: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		errord: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		footer: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

type model struct {
	orch   *orchestration.Orchestrator
	events chan tea.Msg

	input      textinput.Model
	transcript viewport.Model
	lines      []string

	width  int
	height int

	state  orchestration.State
	status string
	theme  theme
}

func newModel(orch *orchestration.Orchestrator, events chan tea.Msg) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Say something, or /role, /job, /lang, /save, /end"
	input.CharLimit = 2000
	input.Focus()

	return model{
		orch:       orch,
		events:     events,
		input:      input,
		transcript: viewport.New(0, 0),
		state:      orchestration.StateNoSession,
		status:     "starting...",
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.events),
		func() tea.Msg { return startedMsg{err: m.orch.Run(context.Background())} },
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case startedMsg:
		if msg.err != nil {
			m.status = "start failed: " + msg.err.Error()
		}
	case stateMsg:
		m.state = msg.state
		cmds = append(cmds, waitForEvent(m.events))
	case entryMsg:
		if m.orch.MarkEntryDisplayed(msg.index) {
			m.appendEntry(msg.entry)
		}
		cmds = append(cmds, waitForEvent(m.events))
	case errMsg:
		m.status = m.theme.errord.Render(msg.err.Error())
		cmds = append(cmds, waitForEvent(m.events))
	case actionMsg:
		m.status = msg.status
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = msg.Height - 4
		m.input.Width = msg.Width - 4
		m.renderTranscript()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			cmd := m.submitLine()
			m.input.Reset()
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			if !strings.HasPrefix(m.input.Value(), "/") {
				m.orch.HandlePartialText(m.input.Value())
			}
			cmds = append(cmds, cmd)
		}
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submitLine finishes the current line: slash commands drive session
// operations, everything else completes the turn.
func (m *model) submitLine() tea.Cmd {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, "/") {
		m.orch.HandlePartialText(line)
		m.orch.CompleteTurn()
		return nil
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	orch := m.orch

	switch command {
	case "/role":
		roleID, ok := roleByName(rest)
		if !ok {
			return func() tea.Msg { return actionMsg{status: "unknown role: " + rest} }
		}
		return func() tea.Msg {
			if err := orch.SwitchRole(context.Background(), roleID); err != nil {
				return errMsg{err: err}
			}
			return actionMsg{status: "switched role"}
		}
	case "/job":
		if rest == "" {
			return func() tea.Msg { return actionMsg{status: "usage: /job <description>"} }
		}
		return func() tea.Msg {
			if err := orch.SetJobContext(context.Background(), rest, registry.ModeInteractive); err != nil {
				return errMsg{err: err}
			}
			return actionMsg{status: "job description sent"}
		}
	case "/lang":
		language, voice, _ := strings.Cut(rest, " ")
		if language == "" {
			return func() tea.Msg { return actionMsg{status: "usage: /lang <language> [voice]"} }
		}
		return func() tea.Msg {
			if err := orch.SetLanguage(context.Background(), language, strings.TrimSpace(voice)); err != nil {
				return errMsg{err: err}
			}
			return actionMsg{status: "language set to " + language}
		}
	case "/save":
		return func() tea.Msg {
			name := fmt.Sprintf("transcript-%s.txt", time.Now().Format("20060102-150405"))
			if err := os.WriteFile(name, []byte(orch.ExportTranscript()), 0o644); err != nil {
				return errMsg{err: err}
			}
			return actionMsg{status: "saved " + name}
		}
	case "/end":
		return func() tea.Msg {
			if err := orch.End(context.Background(), 0, ""); err != nil {
				return errMsg{err: err}
			}
			if err := orch.Reconcile(context.Background()); err != nil {
				return errMsg{err: err}
			}
			return actionMsg{status: "conversation restarted"}
		}
	default:
		return func() tea.Msg { return actionMsg{status: "unknown command: " + command} }
	}
}

func roleByName(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, role := range roles.All() {
		if strings.Contains(role.Name, name) && name != "" {
			return role.ID, true
		}
	}
	return 0, false
}

func (m *model) appendEntry(entry transcript.Entry) {
	var style lipgloss.Style
	var label string
	switch entry.Speaker {
	case llms.SpeakerUser:
		style, label = m.theme.user, "you"
	case llms.SpeakerBot:
		style, label = m.theme.bot, "ibot"
	default:
		style, label = m.theme.system, "*"
	}

	width := m.width
	if width <= 0 {
		width = 80
	}
	m.lines = append(m.lines, style.Render(label+": ")+wordwrap.String(entry.Text, width-len(label)-2))
	m.renderTranscript()
}

func (m *model) renderTranscript() {
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m model) View() string {
	footer := m.theme.footer.Render("enter to send · /role /job /lang /save /end · esc to quit")
	status := m.theme.status.Render(fmt.Sprintf("[%s] %s", m.state, m.status))
	return m.transcript.View() + "\n" + m.input.View() + "\n" + status + "\n" + footer
}

func buildService() (orchestration.SessionService, error) {
	if baseURL := strings.TrimSpace(os.Getenv("IBOT_SERVER_URL")); baseURL != "" {
		return client.New(baseURL), nil
	}

	gateway, err := openai.NewClient()
	if err != nil {
		return nil, fmt.Errorf("no IBOT_SERVER_URL and no local gateway: %w", err)
	}
	return registry.New(gateway), nil
}

func main() {
	service, err := buildService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ibot-chat: %v\n", err)
		os.Exit(1)
	}

	events := make(chan tea.Msg, 64)
	// Non-blocking sends keep orchestrator goroutines from hanging on a
	// stopped UI; a dropped status update is harmless.
	push := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	orch := orchestration.NewOrchestrator(service,
		orchestration.WithRole(roles.JobInterviewer),
		orchestration.WithStateChangeCallback(func(state orchestration.State) {
			push(stateMsg{state: state})
		}),
		orchestration.WithTranscriptEntryCallback(func(index int, entry transcript.Entry) {
			push(entryMsg{index: index, entry: entry})
		}),
		orchestration.WithErrorCallback(func(err error) {
			push(errMsg{err: err})
		}),
	)
	defer orch.Close()

	p := tea.NewProgram(newModel(orch, events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ibot-chat: %v\n", err)
		os.Exit(1)
	}
}
