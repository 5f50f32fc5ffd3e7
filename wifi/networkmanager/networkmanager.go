//go:build linux

package networkmanager

import (
	"fmt"
	"log/slog"
	"sync"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifilinker/wifi"
)

// Device states, as NetworkManager numbers them.
const (
	deviceStateUnknown      = 0
	deviceStateUnmanaged    = 10
	deviceStateUnavailable  = 20
	deviceStateDisconnected = 30
	deviceStatePrepare      = 40
	deviceStateConfig       = 50
	deviceStateNeedAuth     = 60
	deviceStateIPConfig     = 70
	deviceStateIPCheck      = 80
	deviceStateSecondaries  = 90
	deviceStateActivated    = 100
	deviceStateDeactivating = 110
	deviceStateFailed       = 120
)

// Backend implements wifi.Backend using D-Bus to communicate with NetworkManager.
// Profile IDs are the D-Bus object paths of NetworkManager connections.
type Backend struct {
	NM       gonetworkmanager.NetworkManager
	Settings gonetworkmanager.Settings

	logger *slog.Logger

	mu     sync.Mutex
	device gonetworkmanager.DeviceWireless
	// target is the SSID of the connection last activated, reported on
	// association events until the device says otherwise.
	target string

	radioFeed  wifi.Feed[wifi.RadioEvent]
	assocFeed  wifi.Feed[wifi.AssociationEvent]
	signalOnce sync.Once
	signalErr  error
	bus        *dbus.Conn
}

var _ wifi.Backend = (*Backend)(nil)

// New creates a new networkmanager.Backend.
func New(logger *slog.Logger) (wifi.Backend, error) {
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return nil, fmt.Errorf("failed to create network manager client: %w", wifi.ErrNotAvailable)
	}

	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", wifi.ErrOperationFailed)
	}

	return &Backend{
		NM:       nm,
		Settings: settings,
		logger:   logger,
	}, nil
}

func (b *Backend) log() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}

// getWirelessDevice returns the first wireless device, cached after the first lookup.
func (b *Backend) getWirelessDevice() (gonetworkmanager.DeviceWireless, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		return b.device, nil
	}

	devices, err := b.NM.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, device := range devices {
		if dev, ok := device.(gonetworkmanager.DeviceWireless); ok {
			b.device = dev
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no wireless device found: %w", wifi.ErrNotFound)
}

func (b *Backend) setTarget(ssid string) {
	b.mu.Lock()
	b.target = ssid
	b.mu.Unlock()
}

func (b *Backend) currentTarget() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *Backend) SetRadioEnabled(enabled bool) error {
	// Not all versions of NetworkManager support subscribing to signals, so we
	// can't rely on it. RadioState polls the device instead.
	// See: https://github.com/Wifx/gonetworkmanager/pull/14
	if err := b.NM.SetPropertyWirelessEnabled(enabled); err != nil {
		return fmt.Errorf("failed to set wireless enabled: %w", err)
	}
	return nil
}

// RadioState combines the WirelessEnabled switch with the device state: an
// enabled radio whose device is still unavailable is enabling.
func (b *Backend) RadioState() (wifi.RadioState, error) {
	enabled, err := b.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return wifi.RadioUnknown, err
	}
	dev, err := b.getWirelessDevice()
	if err != nil {
		return wifi.RadioUnknown, err
	}
	state, err := dev.GetPropertyState()
	if err != nil {
		return wifi.RadioUnknown, fmt.Errorf("failed to read device state: %w", err)
	}
	return radioState(enabled, uint32(state)), nil
}

func radioState(enabled bool, deviceState uint32) wifi.RadioState {
	switch {
	case deviceState == deviceStateUnmanaged:
		return wifi.RadioUnknown
	case enabled && deviceState <= deviceStateUnavailable:
		return wifi.RadioEnabling
	case enabled:
		return wifi.RadioEnabled
	case deviceState > deviceStateUnavailable:
		return wifi.RadioDisabling
	default:
		return wifi.RadioDisabled
	}
}

func (b *Backend) RequestScan() error {
	enabled, err := b.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return err
	}
	if !enabled {
		return wifi.ErrWirelessDisabled
	}
	dev, err := b.getWirelessDevice()
	if err != nil {
		return err
	}
	if err := dev.RequestScan(); err != nil {
		return fmt.Errorf("failed to request scan: %w", err)
	}
	return nil
}

func (b *Backend) ScanResults() ([]wifi.ScanResult, error) {
	enabled, err := b.NM.GetPropertyWirelessEnabled()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, wifi.ErrWirelessDisabled
	}
	dev, err := b.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	accessPoints, err := dev.GetAccessPoints()
	if err != nil {
		return nil, fmt.Errorf("failed to list access points: %w", err)
	}

	results := make([]wifi.ScanResult, 0, len(accessPoints))
	for _, ap := range accessPoints {
		r, err := scanResult(ap)
		if err != nil {
			b.log().Debug("skipping access point", "path", ap.GetPath(), "error", err)
			continue
		}
		results = append(results, r)
	}
	wifi.SortScanResults(results)
	return results, nil
}

func scanResult(ap gonetworkmanager.AccessPoint) (wifi.ScanResult, error) {
	ssid, err := ap.GetPropertySSID()
	if err != nil {
		return wifi.ScanResult{}, err
	}
	bssid, _ := ap.GetPropertyHWAddress()
	strength, _ := ap.GetPropertyStrength()
	frequency, _ := ap.GetPropertyFrequency()
	flags, _ := ap.GetPropertyFlags()
	wpaFlags, _ := ap.GetPropertyWPAFlags()
	rsnFlags, _ := ap.GetPropertyRSNFlags()

	return wifi.ScanResult{
		SSID:         ssid,
		BSSID:        bssid,
		Strength:     strength,
		Frequency:    uint(frequency),
		Capabilities: capabilities(uint32(flags), uint32(wpaFlags), uint32(rsnFlags)),
	}, nil
}

// capabilities renders NetworkManager's access point flags in the bracketed
// form wifi.ClassifySecurity reads.
func capabilities(flags, wpaFlags, rsnFlags uint32) string {
	var s string
	if wpaFlags > 0 {
		s += "[WPA-PSK]"
	}
	if rsnFlags > 0 {
		s += "[RSN-PSK]"
	}
	if s == "" && flags&uint32(gonetworkmanager.Nm80211APFlagsPrivacy) != 0 {
		s += "[WEP]"
	}
	return s + "[ESS]"
}

func (b *Backend) Disassociate() error {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return err
	}
	state, err := dev.GetPropertyState()
	if err == nil && uint32(state) <= deviceStateDisconnected {
		return nil
	}
	if err := dev.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect device: %w", err)
	}
	return nil
}

func (b *Backend) CurrentAssociation() (*wifi.LinkInfo, error) {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return nil, err
	}
	state, err := dev.GetPropertyState()
	if err != nil {
		return nil, fmt.Errorf("failed to read device state: %w", err)
	}
	if uint32(state) != deviceStateActivated {
		return nil, nil
	}

	info := &wifi.LinkInfo{}
	if ap, err := dev.GetPropertyActiveAccessPoint(); err == nil && ap != nil {
		info.SSID, _ = ap.GetPropertySSID()
	}
	info.MAC, _ = dev.GetPropertyHwAddress()
	if ip4, err := dev.GetPropertyIP4Config(); err == nil && ip4 != nil {
		if addrs, err := ip4.GetPropertyAddressData(); err == nil && len(addrs) > 0 {
			info.IP = addrs[0].Address
		}
		info.Gateway, _ = ip4.GetPropertyGateway()
	}
	return info, nil
}
