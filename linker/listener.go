package linker

import (
	"log/slog"

	"github.com/shazow/wifilinker/wifi"
)

// StatusListener receives the outcome of a Connect and later link changes.
// Callbacks are delivered in order on a single goroutine owned by the Linker.
type StatusListener interface {
	OnStatusChange(success bool, status Status)
	OnConnect(info wifi.LinkInfo)
}

// ScanListener receives the progress of a Scan.
type ScanListener interface {
	// OnScanStart is called synchronously by Scan.
	OnScanStart()
	// OnScanStop is called once, from the scanning goroutine, unless the scan
	// was superseded.
	OnScanStop(results []wifi.ScanResult)
}

// ListenerFuncs adapts plain functions to StatusListener. Nil fields are skipped.
type ListenerFuncs struct {
	StatusChange func(success bool, status Status)
	Connect      func(info wifi.LinkInfo)
}

func (f ListenerFuncs) OnStatusChange(success bool, status Status) {
	if f.StatusChange != nil {
		f.StatusChange(success, status)
	}
}

func (f ListenerFuncs) OnConnect(info wifi.LinkInfo) {
	if f.Connect != nil {
		f.Connect(info)
	}
}

// ScanFuncs adapts plain functions to ScanListener. Nil fields are skipped.
type ScanFuncs struct {
	Start func()
	Stop  func(results []wifi.ScanResult)
}

func (f ScanFuncs) OnScanStart() {
	if f.Start != nil {
		f.Start()
	}
}

func (f ScanFuncs) OnScanStop(results []wifi.ScanResult) {
	if f.Stop != nil {
		f.Stop(results)
	}
}

// logListener stands in for a missing listener.
type logListener struct {
	logger *slog.Logger
}

func (l logListener) OnStatusChange(success bool, status Status) {
	l.logger.Info("connection status", "success", success, "status", status)
}

func (l logListener) OnConnect(info wifi.LinkInfo) {
	l.logger.Info("connected", "ssid", info.SSID, "ip", info.IP, "mac", info.MAC, "gateway", info.Gateway)
}

func (l logListener) OnScanStart() {
	l.logger.Debug("scan started")
}

func (l logListener) OnScanStop(results []wifi.ScanResult) {
	l.logger.Info("scan finished", "results", len(results))
}
