package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shazow/wifilinker/wifi"
)

// networkItem is one row of the network list: a visible access point, a
// stored profile, or both.
type networkItem struct {
	SSID     string
	Security wifi.SecurityType
	Strength uint8

	IsVisible bool
	IsKnown   bool
	IsActive  bool
}

func (i networkItem) Title() string { return i.SSID }
func (i networkItem) Description() string {
	if i.IsVisible {
		return fmt.Sprintf("%d%%", i.Strength)
	}
	return "saved"
}
func (i networkItem) FilterValue() string { return i.Title() }

// needsCredential reports whether joining the network requires a passphrase prompt.
func (i networkItem) needsCredential() bool {
	return !i.IsKnown && (i.Security == wifi.SecurityWEP || i.Security == wifi.SecurityWPA)
}

// buildItems merges scan results with stored profiles. Visible networks come
// first, strongest first, followed by saved networks that are out of range.
func buildItems(results []wifi.ScanResult, profiles []wifi.Profile, active string) []list.Item {
	known := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		known[p.SSID] = true
	}

	var items []list.Item
	seen := make(map[string]bool)
	for _, r := range wifi.StrongestPerSSID(results) {
		seen[r.SSID] = true
		items = append(items, networkItem{
			SSID:      r.SSID,
			Security:  r.Security(),
			Strength:  r.Strength,
			IsVisible: true,
			IsKnown:   known[r.SSID],
			IsActive:  r.SSID == active,
		})
	}
	for _, p := range profiles {
		if seen[p.SSID] || p.SSID == "" {
			continue
		}
		seen[p.SSID] = true
		items = append(items, networkItem{
			SSID:     p.SSID,
			Security: p.Security,
			IsKnown:  true,
			IsActive: p.SSID == active,
		})
	}
	return items
}

// itemDelegate is our custom list delegate
type itemDelegate struct {
	list.DefaultDelegate
}

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(networkItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, listItem)
		return
	}

	var icon string
	switch {
	case i.IsKnown:
		icon = CurrentTheme.NetworkSavedIcon
	case i.Security == wifi.SecurityOpen:
		icon = CurrentTheme.NetworkOpenIcon
	case i.Security == wifi.SecurityUnknown:
		icon = CurrentTheme.NetworkUnknownIcon
	default:
		icon = CurrentTheme.NetworkSecureIcon
	}
	title := icon + i.Title()

	// Define column width for SSID
	const ssidColumnWidth = 30
	if w := lipgloss.Width(title); w > ssidColumnWidth {
		title = string([]rune(title)[:ssidColumnWidth-1]) + "…"
	}
	padding := strings.Repeat(" ", max(0, ssidColumnWidth-lipgloss.Width(title)))

	var titleStyle lipgloss.Style
	switch {
	case i.IsActive:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Success)
	case !i.IsVisible:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Disabled)
	default:
		titleStyle = lipgloss.NewStyle().Foreground(CurrentTheme.Normal)
	}
	title = titleStyle.Render(title)

	connectedPart := ""
	if i.IsActive {
		connectedPart = " (Connected)"
	}
	var desc string
	if i.IsVisible {
		signal := CurrentTheme.signalColor(i.Strength, lipgloss.HasDarkBackground())
		desc = lipgloss.NewStyle().Foreground(signal).Render(i.Description()) + connectedPart
	} else {
		desc = lipgloss.NewStyle().Foreground(CurrentTheme.Subtle).Render(i.Description() + connectedPart)
	}

	var line string
	if index == m.Index() {
		line = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render("▶ ") + title + padding + " " + desc
	} else {
		line = "  " + title + padding + " " + desc
	}
	fmt.Fprint(w, line)
}

type listKeyMap struct {
	connect    key.Binding
	scan       key.Binding
	disconnect key.Binding
	logs       key.Binding
}

var listKeys = listKeyMap{
	connect:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
	scan:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
	disconnect: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
	logs:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logs")),
}

// ListModel shows the networks and starts connects and scans.
type ListModel struct {
	list CustomHelpList

	results  []wifi.ScanResult
	profiles []wifi.Profile
	active   string
}

func NewListModel() *ListModel {
	delegate := itemDelegate{DefaultDelegate: list.NewDefaultDelegate()}
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "WiFi Networks"
	l.Styles.Title = lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{listKeys.connect, listKeys.scan, listKeys.disconnect, listKeys.logs}
	}
	return &ListModel{list: CustomHelpList{Model: l}}
}

func (m *ListModel) Init() tea.Cmd { return nil }

func (m *ListModel) Resize(width, height int) {
	// Leave room for the help line and the status line.
	m.list.SetSize(width, height-3)
	m.list.Help.Width = width
}

// IsConsumingInput returns whether the list filter is being typed into.
func (m *ListModel) IsConsumingInput() bool {
	return m.list.FilterState() == list.Filtering
}

// SetResults replaces the visible networks.
func (m *ListModel) SetResults(results []wifi.ScanResult) tea.Cmd {
	m.results = results
	return m.refresh()
}

// SetProfiles replaces the stored profiles.
func (m *ListModel) SetProfiles(profiles []wifi.Profile) tea.Cmd {
	m.profiles = profiles
	return m.refresh()
}

// SetActive marks the associated network, or none for "".
func (m *ListModel) SetActive(ssid string) tea.Cmd {
	m.active = ssid
	return m.refresh()
}

func (m *ListModel) refresh() tea.Cmd {
	return m.list.SetItems(buildItems(m.results, m.profiles, m.active))
}

func (m *ListModel) selected() (networkItem, bool) {
	i, ok := m.list.SelectedItem().(networkItem)
	return i, ok
}

func (m *ListModel) Update(msg tea.Msg) (Component, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.IsConsumingInput() {
		switch {
		case key.Matches(keyMsg, listKeys.connect):
			item, ok := m.selected()
			if !ok {
				return m, nil
			}
			if item.needsCredential() {
				return m, pushView(NewPassphraseModel(item.SSID, item.Security))
			}
			return m, func() tea.Msg {
				// Known networks reuse their profile; the credential is ignored.
				return connectMsg{ssid: item.SSID, security: item.Security}
			}
		case key.Matches(keyMsg, listKeys.scan):
			return m, func() tea.Msg { return scanMsg{} }
		case key.Matches(keyMsg, listKeys.disconnect):
			return m, func() tea.Msg { return disconnectMsg{} }
		case key.Matches(keyMsg, listKeys.logs):
			return m, pushView(NewLogViewModel())
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *ListModel) View() string {
	return m.list.View() + "\n" + m.list.Help.View(m.list)
}
