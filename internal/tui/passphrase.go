package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifilinker/wifi"
)

// PassphraseModel prompts for the credential of a network without a stored profile.
type PassphraseModel struct {
	ssid     string
	security wifi.SecurityType
	input    textinput.Model
}

func NewPassphraseModel(ssid string, security wifi.SecurityType) *PassphraseModel {
	ti := textinput.New()
	ti.Placeholder = "passphrase"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()
	return &PassphraseModel{ssid: ssid, security: security, input: ti}
}

func (m *PassphraseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *PassphraseModel) Resize(width, height int) {
	if width > 10 {
		m.input.Width = min(40, width-10)
	}
}

func (m *PassphraseModel) IsConsumingInput() bool { return true }

func (m *PassphraseModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, popView
		case "tab":
			// Toggle between hidden and visible passphrase.
			if m.input.EchoMode == textinput.EchoPassword {
				m.input.EchoMode = textinput.EchoNormal
			} else {
				m.input.EchoMode = textinput.EchoPassword
			}
			return m, nil
		case "enter":
			req := connectMsg{ssid: m.ssid, credential: m.input.Value(), security: m.security}
			return m, tea.Sequence(popView, func() tea.Msg { return req })
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PassphraseModel) View() string {
	var s strings.Builder
	title := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	s.WriteString(title.Render(fmt.Sprintf("Join '%s' (%s)", m.ssid, m.security)))
	s.WriteString("\n\n")
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render("enter: connect • tab: show/hide • esc: back"))
	return lipgloss.NewStyle().Margin(1, 2).Render(s.String())
}
