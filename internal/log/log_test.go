package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTUIHandlerKeepsRecent(t *testing.T) {
	var buf bytes.Buffer
	h := NewTUIHandler(slog.NewTextHandler(&buf, nil), nil)
	logger := slog.New(h)

	for i := 0; i < keep+5; i++ {
		logger.Info("scan finished", "n", i)
	}

	logs := h.Logs()
	if len(logs) != keep {
		t.Fatalf("expected %d records, got %d", keep, len(logs))
	}
	var first int64
	logs[0].Attrs(func(a slog.Attr) bool {
		if a.Key == "n" {
			first = a.Value.Int64()
		}
		return true
	})
	if first != 5 {
		t.Errorf("oldest kept record has n=%d, want 5", first)
	}
	if !strings.Contains(buf.String(), "scan finished") {
		t.Errorf("records were not passed to the wrapped handler")
	}
}

func TestTUIHandlerWithAttrs(t *testing.T) {
	h := NewTUIHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	slog.New(h).With("ssid", "Cafe").Warn("connecting")

	logs := h.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(logs))
	}
	var ssid string
	logs[0].Attrs(func(a slog.Attr) bool {
		if a.Key == "ssid" {
			ssid = a.Value.String()
		}
		return true
	})
	if ssid != "Cafe" {
		t.Errorf("expected derived attrs in stored record, got ssid=%q", ssid)
	}
}

func TestTUIHandlerOutputDoesNotBlock(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	h := NewTUIHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), nil)
	h.SetOutput(ch)
	logger := slog.New(h)

	logger.Info("first")
	logger.Info("second")

	msg := <-ch
	if r := slog.Record(msg.(LogMsg)); r.Message != "first" {
		t.Errorf("expected first record on channel, got %q", r.Message)
	}
	if len(h.Logs()) != 2 {
		t.Errorf("expected both records stored")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, Options{Level: slog.LevelDebug, JSON: true})).Debug("radio ready")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"radio ready"`) {
		t.Errorf("expected a JSON record, got %q", buf.String())
	}
}
