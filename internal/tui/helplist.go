package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// CustomHelpList wraps list.Model so the short help leads with the network
// actions instead of cursor movement.
type CustomHelpList struct {
	list.Model
}

func (m CustomHelpList) Update(msg tea.Msg) (CustomHelpList, tea.Cmd) {
	var cmd tea.Cmd
	m.Model, cmd = m.Model.Update(msg)
	return m, cmd
}

// ShortHelp satisfies help.KeyMap.
func (m CustomHelpList) ShortHelp() []key.Binding {
	var kb []key.Binding
	if m.AdditionalShortHelpKeys != nil {
		kb = append(kb, m.AdditionalShortHelpKeys()...)
	}
	if m.Paginator.TotalPages > 1 {
		kb = append(kb, m.KeyMap.NextPage, m.KeyMap.PrevPage)
	}
	return append(kb, m.KeyMap.Filter, m.KeyMap.Quit)
}

func (m CustomHelpList) FullHelp() [][]key.Binding {
	return m.Model.FullHelp()
}
