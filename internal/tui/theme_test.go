package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestSignalColor(t *testing.T) {
	theme := NewDefaultTheme()
	theme.SignalLow = lipgloss.Color("#000000")
	theme.SignalHigh = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#00ff00"}

	tests := []struct {
		strength uint8
		dark     bool
		want     lipgloss.Color
	}{
		{0, true, "#000000"},
		{100, true, "#00ff00"},
		{100, false, "#ffffff"},
		{200, false, "#ffffff"},
	}
	for _, tt := range tests {
		if got := theme.signalColor(tt.strength, tt.dark); got != tt.want {
			t.Errorf("signalColor(%d, %t) = %s, want %s", tt.strength, tt.dark, got, tt.want)
		}
	}

	mid := theme.signalColor(50, true)
	if mid == "#000000" || mid == "#00ff00" {
		t.Errorf("signalColor(50) should blend, got %s", mid)
	}
}

func TestSignalColorInvalidHex(t *testing.T) {
	theme := NewDefaultTheme()
	theme.SignalLow = lipgloss.Color("not a color")
	theme.Normal = lipgloss.Color("#123456")
	if got := theme.signalColor(50, true); got != "#123456" {
		t.Errorf("expected fallback to normal color, got %s", got)
	}
}
