package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wifilog "github.com/shazow/wifilinker/internal/log"
	"github.com/shazow/wifilinker/linker"
	"github.com/shazow/wifilinker/wifi"
)

// The main model for our TUI application
type model struct {
	linker *linker.Linker
	// events carries linker callbacks and log records into the update loop.
	events chan tea.Msg

	stack   *ComponentStack
	list    *ListModel
	spinner spinner.Model

	loading       bool
	statusMessage string
	statusStyle   lipgloss.Style
	target        string
}

// NewModel creates the starting state of our application
func NewModel(l *linker.Linker) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(CurrentTheme.Primary)

	listModel := NewListModel()
	return &model{
		linker:        l,
		events:        make(chan tea.Msg, 64),
		stack:         NewComponentStack(listModel),
		list:          listModel,
		spinner:       s,
		loading:       true,
		statusMessage: "Scanning for networks...",
		statusStyle:   lipgloss.NewStyle().Foreground(CurrentTheme.Primary),
	}
}

// Run starts the interactive interface and blocks until it exits.
func Run(l *linker.Linker) error {
	m := NewModel(l)
	wifilog.SetOutput(m.events)
	defer wifilog.SetOutput(nil)

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *model) post(msg tea.Msg) {
	m.events <- msg
}

// waitForEvent delivers the next message from the event channel.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{<-events}
	}
}

func (m *model) scanListener() linker.ScanListener {
	return linker.ScanFuncs{
		Stop: func(results []wifi.ScanResult) {
			m.post(scanFinishedMsg(results))
		},
	}
}

func (m *model) statusListener() linker.StatusListener {
	return linker.ListenerFuncs{
		StatusChange: func(success bool, status linker.Status) {
			m.post(statusMsg{success: success, status: status})
		},
		Connect: func(info wifi.LinkInfo) {
			m.post(connectedMsg(info))
		},
	}
}

func (m *model) scan() tea.Msg {
	m.linker.Scan(m.scanListener())
	return nil
}

func (m *model) loadProfiles() tea.Msg {
	profiles, err := m.linker.Profiles()
	if err != nil {
		return errorMsg{fmt.Errorf("failed to load profiles: %w", err)}
	}
	return profilesLoadedMsg(profiles)
}

func (m *model) connect(req connectMsg) tea.Cmd {
	return func() tea.Msg {
		attempt, err := m.linker.Connect(req.ssid, req.credential, req.security, m.statusListener())
		if err != nil {
			return errorMsg{err}
		}
		return connectStartedMsg{ssid: req.ssid, attempt: attempt}
	}
}

func (m *model) disconnect() tea.Msg {
	return disconnectedMsg{m.linker.Disconnect()}
}

func (m *model) setStatus(text string, color lipgloss.TerminalColor) {
	m.statusMessage = text
	m.statusStyle = lipgloss.NewStyle().Foreground(color)
}

// Init is the first command that is run when the program starts
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.stack.Top().Init(), waitForEvent(m.events), m.scan, m.loadProfiles)
}

// Update handles all incoming messages and updates the model accordingly
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := m.Update(msg.msg)
		return m, tea.Batch(cmd, waitForEvent(m.events))
	case tea.WindowSizeMsg:
		m.stack.Resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case pushViewMsg:
		return m, m.stack.Push(msg.c)
	case popViewMsg:
		m.stack.Pop()
		return m, nil
	case errorMsg:
		m.loading = false
		m.setStatus("", CurrentTheme.Primary)
		return m, m.stack.Push(NewErrorModel(msg.err))
	case scanMsg:
		m.loading = true
		m.setStatus("Scanning for networks...", CurrentTheme.Primary)
		return m, m.scan
	case scanFinishedMsg:
		if m.target == "" {
			m.loading = false
			m.setStatus(fmt.Sprintf("Found %d access points", len(msg)), CurrentTheme.Subtle)
		}
		return m, tea.Batch(m.list.SetResults(msg), m.loadProfiles)
	case profilesLoadedMsg:
		return m, m.list.SetProfiles(msg)
	case connectMsg:
		m.loading = true
		m.target = msg.ssid
		m.setStatus(fmt.Sprintf("Connecting to '%s'...", msg.ssid), CurrentTheme.Primary)
		return m, m.connect(msg)
	case connectStartedMsg:
		if msg.attempt.AlreadyConnected() {
			m.loading = false
			m.target = ""
			m.setStatus(fmt.Sprintf("Already connected to '%s'", msg.ssid), CurrentTheme.Success)
			return m, m.list.SetActive(msg.ssid)
		}
		return m, nil
	case statusMsg:
		return m, m.handleStatus(msg)
	case connectedMsg:
		m.loading = false
		m.target = ""
		m.setStatus(fmt.Sprintf("Connected to '%s' (%s)", msg.SSID, msg.IP), CurrentTheme.Success)
		return m, tea.Batch(m.list.SetActive(msg.SSID), m.loadProfiles)
	case disconnectMsg:
		m.loading = true
		m.setStatus("Disconnecting...", CurrentTheme.Primary)
		return m, m.disconnect
	case disconnectedMsg:
		m.loading = false
		m.target = ""
		if msg.err != nil {
			return m, m.stack.Push(NewErrorModel(msg.err))
		}
		m.setStatus("Disconnected, radio off", CurrentTheme.Subtle)
		return m, tea.Batch(m.list.SetActive(""), m.loadProfiles)
	case wifilog.LogMsg:
		// Kept by the handler for the log view.
		return m, nil
	}

	var cmds []tea.Cmd
	cmds = append(cmds, m.stack.Update(msg))

	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)
	cmds = append(cmds, spinnerCmd)

	return m, tea.Batch(cmds...)
}

func (m *model) handleStatus(msg statusMsg) tea.Cmd {
	switch {
	case msg.status == linker.StatusConnected:
		// The link details follow in connectedMsg.
		return nil
	case msg.status == linker.StatusDisconnected:
		m.setStatus("Link lost", CurrentTheme.Error)
		return m.list.SetActive("")
	}

	m.loading = false
	ssid := m.target
	m.target = ""
	err := msg.status.Err()
	if errors.Is(err, linker.ErrAuthenticationRejected) {
		m.setStatus(fmt.Sprintf("Wrong passphrase for '%s'", ssid), CurrentTheme.Error)
		return nil
	}
	m.setStatus("", CurrentTheme.Primary)
	return m.stack.Push(NewErrorModel(fmt.Errorf("connect to '%s': %w", ssid, err)))
}

// View renders the UI based on the current model state
func (m *model) View() string {
	var s strings.Builder
	s.WriteString(m.stack.View())

	if m.loading {
		s.WriteString(fmt.Sprintf("\n%s %s", m.spinner.View(), m.statusStyle.Render(m.statusMessage)))
	} else if m.statusMessage != "" {
		s.WriteString(fmt.Sprintf("\n%s", m.statusStyle.Render(m.statusMessage)))
	}
	return s.String()
}
