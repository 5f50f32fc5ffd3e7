package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// keep is how many recent records the handler remembers for the log view.
const keep = 20

// history is shared between a TUIHandler and the handlers derived from it.
type history struct {
	mu   sync.Mutex
	ch   chan<- tea.Msg
	logs []slog.Record
}

// TUIHandler is a slog.Handler that remembers recent records and forwards them
// to a tea.Program.
type TUIHandler struct {
	slog.Handler
	attrs []slog.Attr
	h     *history
}

// NewTUIHandler creates a new TUIHandler.
func NewTUIHandler(handler slog.Handler, ch chan<- tea.Msg) *TUIHandler {
	return &TUIHandler{
		Handler: handler,
		h:       &history{ch: ch},
	}
}

// Handle stores the record and sends it to the TUI without blocking.
func (h *TUIHandler) Handle(ctx context.Context, r slog.Record) error {
	stored := r.Clone()
	stored.AddAttrs(h.attrs...)

	h.h.mu.Lock()
	h.h.logs = append(h.h.logs, stored)
	if len(h.h.logs) > keep {
		h.h.logs = h.h.logs[1:]
	}
	if h.h.ch != nil {
		select {
		case h.h.ch <- LogMsg(stored):
		default:
		}
	}
	h.h.mu.Unlock()

	return h.Handler.Handle(ctx, r)
}

func (h *TUIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUIHandler{
		Handler: h.Handler.WithAttrs(attrs),
		attrs:   append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		h:       h.h,
	}
}

func (h *TUIHandler) WithGroup(name string) slog.Handler {
	return &TUIHandler{
		Handler: h.Handler.WithGroup(name),
		attrs:   h.attrs,
		h:       h.h,
	}
}

// Logs returns a copy of the stored log records.
func (h *TUIHandler) Logs() []slog.Record {
	h.h.mu.Lock()
	defer h.h.mu.Unlock()
	out := make([]slog.Record, len(h.h.logs))
	copy(out, h.h.logs)
	return out
}

// LogMsg is a tea.Msg that represents a log message.
type LogMsg slog.Record

// SetOutput sets the output channel for the handler.
func (h *TUIHandler) SetOutput(ch chan<- tea.Msg) {
	h.h.mu.Lock()
	defer h.h.mu.Unlock()
	h.h.ch = ch
}

// Options select the handler Init installs.
type Options struct {
	Level slog.Level
	JSON  bool
}

// ParseLevel accepts the slog level names, case insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewHandler returns a text or JSON handler writing to w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.NewTextHandler(w, handlerOpts)
}

var defaultHandler = NewTUIHandler(slog.NewTextHandler(io.Discard, nil), nil)

// Init installs handler, wrapped in a TUIHandler, as the default logger.
func Init(handler slog.Handler) *slog.Logger {
	defaultHandler = NewTUIHandler(handler, nil)
	logger := slog.New(defaultHandler)
	slog.SetDefault(logger)
	return logger
}

// SetOutput sets the output channel for the default logger.
func SetOutput(ch chan<- tea.Msg) {
	defaultHandler.SetOutput(ch)
}

// Logs returns the stored log messages from the default logger.
func Logs() []slog.Record {
	return defaultHandler.Logs()
}
