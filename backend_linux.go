//go:build linux && !mock

package main

import (
	"log/slog"

	"github.com/shazow/wifilinker/wifi"
	"github.com/shazow/wifilinker/wifi/networkmanager"
)

// GetBackend connects to NetworkManager over the system bus.
func GetBackend(logger *slog.Logger) (wifi.Backend, error) {
	return networkmanager.New(logger)
}
