package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shazow/wifilinker/linker"
	"github.com/shazow/wifilinker/wifi"
)

// Component is the interface for a TUI component.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Component, tea.Cmd)
	View() string
	Resize(width, height int)
	// IsConsumingInput reports whether keys should go to the component
	// instead of the global bindings.
	IsConsumingInput() bool
}

// Bubbletea messages are used to communicate between the main loop and commands
type (
	// From the linker
	scanFinishedMsg   []wifi.ScanResult
	profilesLoadedMsg []wifi.Profile
	statusMsg         struct {
		success bool
		status  linker.Status
	}
	connectedMsg      wifi.LinkInfo
	connectStartedMsg struct {
		ssid    string
		attempt *linker.Attempt
	}
	disconnectedMsg struct{ err error }
	errorMsg        struct{ err error }

	// From components
	scanMsg    struct{}
	connectMsg struct {
		ssid       string
		credential string
		security   wifi.SecurityType
	}
	disconnectMsg struct{}
	pushViewMsg   struct{ c Component }
	popViewMsg    struct{}

	// eventMsg wraps a message that arrived on the event channel.
	eventMsg struct{ msg tea.Msg }
)

func pushView(c Component) tea.Cmd {
	return func() tea.Msg { return pushViewMsg{c} }
}

func popView() tea.Msg {
	return popViewMsg{}
}
