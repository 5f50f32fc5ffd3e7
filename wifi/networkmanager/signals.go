//go:build linux

package networkmanager

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifilinker/wifi"
)

const (
	nmPath              = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmInterface         = "org.freedesktop.NetworkManager"
	deviceInterface     = "org.freedesktop.NetworkManager.Device"
	wirelessInterface   = "org.freedesktop.NetworkManager.Device.Wireless"
	accessPointIface    = "org.freedesktop.NetworkManager.AccessPoint"
	propertiesInterface = "org.freedesktop.DBus.Properties"
)

// Device state change reasons that mean the credential was not accepted.
const (
	reasonNoSecrets            = 7
	reasonSupplicantDisconnect = 8
)

func (b *Backend) SubscribeRadio(ch chan<- wifi.RadioEvent) (wifi.Subscription, error) {
	if err := b.startSignals(); err != nil {
		return nil, err
	}
	return b.radioFeed.Subscribe(ch), nil
}

func (b *Backend) SubscribeAssociation(ch chan<- wifi.AssociationEvent) (wifi.Subscription, error) {
	if err := b.startSignals(); err != nil {
		return nil, err
	}
	return b.assocFeed.Subscribe(ch), nil
}

// startSignals connects to the system bus once and starts pumping
// NetworkManager signals into the feeds.
func (b *Backend) startSignals() error {
	b.signalOnce.Do(func() {
		dev, err := b.getWirelessDevice()
		if err != nil {
			b.signalErr = err
			return
		}

		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			b.signalErr = fmt.Errorf("failed to connect to system bus: %w", wifi.ErrNotAvailable)
			return
		}

		matches := [][]dbus.MatchOption{
			{
				dbus.WithMatchObjectPath(nmPath),
				dbus.WithMatchInterface(propertiesInterface),
				dbus.WithMatchMember("PropertiesChanged"),
			},
			{
				dbus.WithMatchObjectPath(dev.GetPath()),
				dbus.WithMatchInterface(propertiesInterface),
				dbus.WithMatchMember("PropertiesChanged"),
			},
			{
				dbus.WithMatchObjectPath(dev.GetPath()),
				dbus.WithMatchInterface(deviceInterface),
				dbus.WithMatchMember("StateChanged"),
			},
			{
				dbus.WithMatchInterface(propertiesInterface),
				dbus.WithMatchMember("PropertiesChanged"),
				dbus.WithMatchArg(0, accessPointIface),
			},
		}
		for _, opts := range matches {
			if err := conn.AddMatchSignal(opts...); err != nil {
				conn.Close()
				b.signalErr = fmt.Errorf("failed to add signal match: %w", err)
				return
			}
		}

		signals := make(chan *dbus.Signal, 32)
		conn.Signal(signals)
		b.mu.Lock()
		b.bus = conn
		b.mu.Unlock()
		go b.pumpSignals(signals, dev.GetPath())
	})
	return b.signalErr
}

func (b *Backend) pumpSignals(signals <-chan *dbus.Signal, devicePath dbus.ObjectPath) {
	for sig := range signals {
		if sig == nil {
			continue
		}
		b.handleSignal(sig, devicePath)
	}
	b.log().Debug("networkmanager signal stream closed")
}

func (b *Backend) handleSignal(sig *dbus.Signal, devicePath dbus.ObjectPath) {
	switch sig.Name {
	case deviceInterface + ".StateChanged":
		if sig.Path != devicePath {
			return
		}
		newState, oldState, reason, ok := stateChangedBody(sig.Body)
		if !ok {
			return
		}
		b.log().Debug("device state changed", "new", newState, "old", oldState, "reason", reason)
		if radio, ok := radioFromDeviceState(newState, oldState); ok {
			b.radioFeed.Send(wifi.RadioEvent{Kind: wifi.RadioStateChanged, State: radio})
		}
		ssid := b.currentTarget()
		for _, ev := range associationEvents(newState, reason) {
			ev.SSID = ssid
			b.assocFeed.Send(ev)
		}

	case propertiesInterface + ".PropertiesChanged":
		iface, changed, ok := propertiesChangedBody(sig.Body)
		if !ok {
			return
		}
		for _, ev := range radioEvents(iface, changed) {
			if ev.Kind == wifi.SignalStrengthChanged && !b.isActiveAccessPoint(sig.Path) {
				continue
			}
			b.radioFeed.Send(ev)
		}
	}
}

func (b *Backend) isActiveAccessPoint(path dbus.ObjectPath) bool {
	dev, err := b.getWirelessDevice()
	if err != nil {
		return false
	}
	ap, err := dev.GetPropertyActiveAccessPoint()
	if err != nil || ap == nil {
		return false
	}
	return ap.GetPath() == path
}

// Close disconnects from the system bus, which ends the signal pump.
func (b *Backend) Close() error {
	b.mu.Lock()
	bus := b.bus
	b.bus = nil
	b.mu.Unlock()
	if bus == nil {
		return nil
	}
	return bus.Close()
}

func stateChangedBody(body []interface{}) (newState, oldState, reason uint32, ok bool) {
	if len(body) != 3 {
		return 0, 0, 0, false
	}
	newState, ok1 := body[0].(uint32)
	oldState, ok2 := body[1].(uint32)
	reason, ok3 := body[2].(uint32)
	return newState, oldState, reason, ok1 && ok2 && ok3
}

func propertiesChangedBody(body []interface{}) (string, map[string]dbus.Variant, bool) {
	if len(body) < 2 {
		return "", nil, false
	}
	iface, ok1 := body[0].(string)
	changed, ok2 := body[1].(map[string]dbus.Variant)
	return iface, changed, ok1 && ok2
}

// radioEvents translates a PropertiesChanged signal into radio events.
func radioEvents(iface string, changed map[string]dbus.Variant) []wifi.RadioEvent {
	var events []wifi.RadioEvent
	switch iface {
	case nmInterface:
		if v, ok := changed["WirelessEnabled"]; ok {
			if enabled, ok := v.Value().(bool); ok {
				state := wifi.RadioDisabled
				if enabled {
					state = wifi.RadioEnabling
				}
				events = append(events, wifi.RadioEvent{Kind: wifi.RadioStateChanged, State: state})
			}
		}
	case wirelessInterface:
		if _, ok := changed["LastScan"]; ok {
			events = append(events, wifi.RadioEvent{Kind: wifi.ScanResultsAvailable})
		}
	case accessPointIface:
		if v, ok := changed["Strength"]; ok {
			if strength, ok := v.Value().(byte); ok {
				events = append(events, wifi.RadioEvent{Kind: wifi.SignalStrengthChanged, Strength: strength})
			}
		}
	}
	return events
}

// radioFromDeviceState reports the radio coming up or going away as seen from
// the device leaving or entering the unavailable state.
func radioFromDeviceState(newState, oldState uint32) (wifi.RadioState, bool) {
	switch {
	case oldState <= deviceStateUnavailable && newState > deviceStateUnavailable:
		return wifi.RadioEnabled, true
	case newState == deviceStateUnmanaged:
		return wifi.RadioUnknown, true
	}
	return 0, false
}

// associationEvents maps a device state change to association events.
func associationEvents(newState, reason uint32) []wifi.AssociationEvent {
	var events []wifi.AssociationEvent
	if (newState == deviceStateFailed || newState == deviceStateDisconnected) &&
		(reason == reasonNoSecrets || reason == reasonSupplicantDisconnect) {
		events = append(events, wifi.AssociationEvent{Kind: wifi.CredentialRejected})
	}
	return append(events, wifi.AssociationEvent{State: connectionState(newState)})
}

func connectionState(deviceState uint32) wifi.ConnectionState {
	switch deviceState {
	case deviceStateUnmanaged:
		return wifi.StateBlocked
	case deviceStateUnavailable:
		return wifi.StateSuspended
	case deviceStateDisconnected:
		return wifi.StateDisconnected
	case deviceStatePrepare, deviceStateConfig:
		return wifi.StateConnecting
	case deviceStateNeedAuth:
		return wifi.StateAuthenticating
	case deviceStateIPConfig, deviceStateIPCheck, deviceStateSecondaries:
		return wifi.StateObtainingAddress
	case deviceStateActivated:
		return wifi.StateConnected
	case deviceStateDeactivating:
		return wifi.StateDisconnecting
	case deviceStateFailed:
		return wifi.StateFailed
	}
	return wifi.StateIdle
}
