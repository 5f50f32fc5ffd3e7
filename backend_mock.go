//go:build mock

package main

import (
	"log/slog"

	"github.com/shazow/wifilinker/wifi"
	mockBackend "github.com/shazow/wifilinker/wifi/mock"
)

func GetBackend(logger *slog.Logger) (wifi.Backend, error) {
	logger.Info("using mock backend")
	return mockBackend.New()
}
