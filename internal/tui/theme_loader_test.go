package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestLoadTheme(t *testing.T) {
	t.Cleanup(func() { CurrentTheme = NewDefaultTheme() })

	tomlData := `
		Primary = "#FF0000"
		Subtle = ["#00FF00", "#00EE00"]
		SignalHigh = "#008000"
		SignalLow = ["#FFA500", "#FF8C00"]
	`
	if err := LoadTheme(strings.NewReader(tomlData)); err != nil {
		t.Fatalf("LoadTheme failed: %v", err)
	}

	if CurrentTheme.Primary != lipgloss.Color("#FF0000") {
		t.Errorf("Expected Primary color to be #FF0000, but got %v", CurrentTheme.Primary)
	}

	adaptiveColor, ok := CurrentTheme.Subtle.(lipgloss.AdaptiveColor)
	if !ok {
		t.Fatalf("Expected Subtle color to be an AdaptiveColor, but it's %T", CurrentTheme.Subtle)
	}
	if adaptiveColor.Light != "#00FF00" || adaptiveColor.Dark != "#00EE00" {
		t.Errorf("Unexpected Subtle color %+v", adaptiveColor)
	}

	// Colors missing from the file keep their defaults.
	if CurrentTheme.Error != NewDefaultTheme().Error {
		t.Errorf("Error color should keep its default, got %v", CurrentTheme.Error)
	}

	if got := CurrentTheme.signalColor(0, true); got != "#ff8c00" {
		t.Errorf("signalColor(0) = %s, want the dark low color", got)
	}
}

func TestLoadTheme_NilReader(t *testing.T) {
	originalTheme := CurrentTheme

	if err := LoadTheme(nil); err != nil {
		t.Fatalf("LoadTheme(nil) should not return an error, but got: %v", err)
	}
	if CurrentTheme.Primary != originalTheme.Primary {
		t.Errorf("Theme should not change when reader is nil")
	}
}

func TestLoadTheme_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":       `Primary = `,
		"three colors": `Primary = ["#000000", "#111111", "#222222"]`,
		"not a color":  `Primary = 42`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if err := LoadTheme(strings.NewReader(data)); err == nil {
				t.Fatalf("LoadTheme should have failed for %q", data)
			}
		})
	}
}
