//go:build !linux && !mock

package main

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/shazow/wifilinker/wifi"
)

// GetBackend returns an error for unsupported operating systems.
func GetBackend(logger *slog.Logger) (wifi.Backend, error) {
	return nil, fmt.Errorf("unsupported operating system %s: %w", runtime.GOOS, wifi.ErrNotSupported)
}
