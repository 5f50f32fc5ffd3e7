package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme contains the colors for the application.
type Theme struct {
	Primary  lipgloss.TerminalColor
	Subtle   lipgloss.TerminalColor
	Success  lipgloss.TerminalColor
	Error    lipgloss.TerminalColor
	Normal   lipgloss.TerminalColor
	Disabled lipgloss.TerminalColor
	Border   lipgloss.TerminalColor

	SignalHigh lipgloss.TerminalColor
	SignalLow  lipgloss.TerminalColor

	NetworkOpenIcon    string
	NetworkSecureIcon  string
	NetworkSavedIcon   string
	NetworkUnknownIcon string
}

// CurrentTheme is the active theme for the application.
var CurrentTheme = NewDefaultTheme()

// NewDefaultTheme creates a new default theme.
func NewDefaultTheme() Theme {
	return Theme{
		Primary:  lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#D359E3"}, // Purple/Pink
		Subtle:   lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}, // Gray
		Success:  lipgloss.AdaptiveColor{Light: "#388E3C", Dark: "#81C784"}, // Green
		Error:    lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#E57373"}, // Red
		Normal:   lipgloss.AdaptiveColor{Light: "#212121", Dark: "#FFFFFF"}, // Black/White
		Disabled: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#424242"}, // Lighter/Darker Gray
		Border:   lipgloss.AdaptiveColor{Light: "#BDBDBD", Dark: "#616161"}, // Gray

		SignalHigh: lipgloss.AdaptiveColor{Light: "#00B300", Dark: "#00FF00"},
		SignalLow:  lipgloss.AdaptiveColor{Light: "#D05F00", Dark: "#BC3C00"},

		NetworkOpenIcon:    "  ",
		NetworkSecureIcon:  "🔒",
		NetworkSavedIcon:   "★ ",
		NetworkUnknownIcon: "? ",
	}
}

// hexColor picks the hex string of a theme color for the given background.
func hexColor(c lipgloss.TerminalColor, dark bool) string {
	switch c := c.(type) {
	case lipgloss.Color:
		return string(c)
	case lipgloss.AdaptiveColor:
		if dark {
			return c.Dark
		}
		return c.Light
	}
	return ""
}

// signalColor blends between the low and high signal colors by strength (0-100).
func (t Theme) signalColor(strength uint8, dark bool) lipgloss.Color {
	low, err := colorful.Hex(hexColor(t.SignalLow, dark))
	if err != nil {
		return lipgloss.Color(hexColor(t.Normal, dark))
	}
	high, err := colorful.Hex(hexColor(t.SignalHigh, dark))
	if err != nil {
		return lipgloss.Color(hexColor(t.Normal, dark))
	}
	p := float64(strength) / 100.0
	if p > 1 {
		p = 1
	}
	return lipgloss.Color(low.BlendRgb(high, p).Clamped().Hex())
}
