//go:build linux

package networkmanager

import (
	"errors"
	"reflect"
	"testing"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/godbus/dbus/v5"

	"github.com/shazow/wifilinker/wifi"
)

type mockNM struct {
	gonetworkmanager.NetworkManager
	getDevicesFunc                 func() ([]gonetworkmanager.Device, error)
	getPropertyWirelessEnabledFunc func() (bool, error)
	activated                      []gonetworkmanager.Connection
}

func (m *mockNM) GetDevices() ([]gonetworkmanager.Device, error) {
	if m.getDevicesFunc != nil {
		return m.getDevicesFunc()
	}
	return nil, nil
}

func (m *mockNM) GetPropertyWirelessEnabled() (bool, error) {
	if m.getPropertyWirelessEnabledFunc != nil {
		return m.getPropertyWirelessEnabledFunc()
	}
	return true, nil
}

func (m *mockNM) ActivateConnection(c gonetworkmanager.Connection, d gonetworkmanager.Device, specificObject *dbus.Object) (gonetworkmanager.ActiveConnection, error) {
	m.activated = append(m.activated, c)
	return nil, nil
}

func (m *mockNM) GetPropertyActiveConnections() ([]gonetworkmanager.ActiveConnection, error) {
	return nil, nil
}

type mockDeviceWireless struct {
	gonetworkmanager.DeviceWireless
	state uint32
}

func (m *mockDeviceWireless) GetPath() dbus.ObjectPath {
	return "/org/freedesktop/NetworkManager/Devices/3"
}

func (m *mockDeviceWireless) GetPropertyState() (gonetworkmanager.NmDeviceState, error) {
	return gonetworkmanager.NmDeviceState(m.state), nil
}

func (m *mockDeviceWireless) GetPropertyInterface() (string, error) {
	return "wlan0", nil
}

type mockSettings struct {
	gonetworkmanager.Settings
	conns []*mockConnection
}

func (m *mockSettings) ListConnections() ([]gonetworkmanager.Connection, error) {
	out := make([]gonetworkmanager.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockSettings) AddConnectionUnsaved(settings gonetworkmanager.ConnectionSettings) (gonetworkmanager.Connection, error) {
	c := &mockConnection{
		path:     dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings/new"),
		settings: settings,
		unsaved:  true,
	}
	m.conns = append(m.conns, c)
	return c, nil
}

type mockConnection struct {
	gonetworkmanager.Connection
	path     dbus.ObjectPath
	settings gonetworkmanager.ConnectionSettings
	secrets  gonetworkmanager.ConnectionSettings
	unsaved  bool
	updates  int
	saved    bool
}

func (m *mockConnection) GetPath() dbus.ObjectPath { return m.path }

func (m *mockConnection) GetSettings() (gonetworkmanager.ConnectionSettings, error) {
	return m.settings, nil
}

func (m *mockConnection) GetSecrets(settingName string) (gonetworkmanager.ConnectionSettings, error) {
	return m.secrets, nil
}

func (m *mockConnection) GetPropertyUnsaved() (bool, error) { return m.unsaved, nil }

func (m *mockConnection) Update(settings gonetworkmanager.ConnectionSettings) error {
	m.settings = settings
	m.updates++
	m.unsaved = false
	return nil
}

func (m *mockConnection) UpdateUnsaved(settings gonetworkmanager.ConnectionSettings) error {
	m.settings = settings
	m.updates++
	return nil
}

func (m *mockConnection) Save() error {
	m.saved = true
	m.unsaved = false
	return nil
}

func wirelessConnection(path, ssid string, autoconnect bool) *mockConnection {
	return &mockConnection{
		path: dbus.ObjectPath(path),
		settings: gonetworkmanager.ConnectionSettings{
			"connection":        {"id": ssid, "type": wirelessType, "autoconnect": autoconnect},
			wirelessType:        {"ssid": []byte(ssid)},
			"ipv6":              {"method": "auto", "addresses": []interface{}{}},
			wirelessSecurityKey: {"key-mgmt": "wpa-psk"},
		},
	}
}

func TestGetWirelessDevice_Caching(t *testing.T) {
	callCount := 0
	mockDev := &mockDeviceWireless{}

	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			callCount++
			return []gonetworkmanager.Device{mockDev}, nil
		},
	}

	b := &Backend{
		NM: nm,
	}

	// First call
	dev, err := b.getWirelessDevice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev != mockDev {
		t.Errorf("expected device %v, got %v", mockDev, dev)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	// Second call (should be cached)
	dev2, err := b.getWirelessDevice()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev2 != mockDev {
		t.Errorf("expected device %v, got %v", mockDev, dev2)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestGetWirelessDevice_NotFound(t *testing.T) {
	b := &Backend{NM: &mockNM{}}
	if _, err := b.getWirelessDevice(); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRadioState(t *testing.T) {
	tests := []struct {
		enabled     bool
		deviceState uint32
		expected    wifi.RadioState
	}{
		{true, deviceStateUnavailable, wifi.RadioEnabling},
		{true, deviceStateDisconnected, wifi.RadioEnabled},
		{true, deviceStateActivated, wifi.RadioEnabled},
		{false, deviceStateActivated, wifi.RadioDisabling},
		{false, deviceStateUnavailable, wifi.RadioDisabled},
		{true, deviceStateUnmanaged, wifi.RadioUnknown},
	}

	for _, tt := range tests {
		if got := radioState(tt.enabled, tt.deviceState); got != tt.expected {
			t.Errorf("radioState(%t, %d) = %v, want %v", tt.enabled, tt.deviceState, got, tt.expected)
		}
	}
}

func TestRadioStateFromBackend(t *testing.T) {
	dev := &mockDeviceWireless{state: deviceStateUnavailable}
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{dev}, nil
		},
	}
	b := &Backend{NM: nm}

	state, err := b.RadioState()
	if err != nil {
		t.Fatalf("RadioState() failed: %v", err)
	}
	if state != wifi.RadioEnabling {
		t.Errorf("expected enabling, got %v", state)
	}
}

func TestCapabilities(t *testing.T) {
	privacy := uint32(gonetworkmanager.Nm80211APFlagsPrivacy)
	tests := []struct {
		flags, wpa, rsn uint32
		expected        wifi.SecurityType
	}{
		{0, 0, 0, wifi.SecurityOpen},
		{privacy, 0, 0, wifi.SecurityWEP},
		{privacy, 0x100, 0, wifi.SecurityWPA},
		{privacy, 0, 0x100, wifi.SecurityWPA},
	}
	for _, tt := range tests {
		caps := capabilities(tt.flags, tt.wpa, tt.rsn)
		if got := wifi.ClassifySecurity(caps); got != tt.expected {
			t.Errorf("capabilities(%d, %d, %d) = %q classified as %v, want %v", tt.flags, tt.wpa, tt.rsn, caps, got, tt.expected)
		}
	}
}

func TestConnectionSettingsRoundTrip(t *testing.T) {
	profiles := []wifi.Profile{
		{SSID: "Open", Security: wifi.SecurityOpen, Enabled: true, Auth: wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "open"}},
		{SSID: "Old", Security: wifi.SecurityWEP, Enabled: true, Auth: wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "shared", WEPKey0: "abcde", WEPKeyType: 1}},
		{SSID: "Cafe", Security: wifi.SecurityWPA, Enabled: true, Hidden: true, Auth: wifi.AuthSettings{
			KeyMgmt: "wpa-psk", AuthAlg: "open", PSK: "hunter2",
			Proto: []string{"wpa", "rsn"}, Pairwise: []string{"tkip", "ccmp"}, Group: []string{"tkip", "ccmp"},
		}},
	}

	for _, p := range profiles {
		t.Run(p.SSID, func(t *testing.T) {
			s := connectionSettings(p, "wlan0")
			if s["connection"]["interface-name"] != "wlan0" {
				t.Errorf("missing interface name")
			}
			got := profileFromSettings(s)

			// Secrets stay in the secrets map.
			want := p
			want.Auth.PSK = ""
			want.Auth.WEPKey0 = ""
			if !reflect.DeepEqual(got, want) {
				t.Errorf("profileFromSettings() = %+v, want %+v", got, want)
			}
			if secret := secretFromSettings(s); secret != p.Auth.PSK+p.Auth.WEPKey0 {
				t.Errorf("secretFromSettings() = %q", secret)
			}
		})
	}
}

func TestProfiles(t *testing.T) {
	wired := &mockConnection{
		path:     "/org/freedesktop/NetworkManager/Settings/1",
		settings: gonetworkmanager.ConnectionSettings{"connection": {"id": "eth", "type": "802-3-ethernet"}},
	}
	settings := &mockSettings{conns: []*mockConnection{
		wired,
		wirelessConnection("/org/freedesktop/NetworkManager/Settings/2", "Cafe", true),
	}}
	b := &Backend{Settings: settings}

	profiles, err := b.Profiles()
	if err != nil {
		t.Fatalf("Profiles() failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 wireless profile, got %d", len(profiles))
	}
	p := profiles[0]
	if p.ID != "/org/freedesktop/NetworkManager/Settings/2" || p.SSID != "Cafe" || p.Security != wifi.SecurityWPA || !p.Enabled {
		t.Errorf("unexpected profile %+v", p)
	}
}

func TestAddAndSaveProfile(t *testing.T) {
	settings := &mockSettings{}
	b := &Backend{NM: &mockNM{}, Settings: settings}

	id, err := b.AddProfile(wifi.Profile{SSID: "Cafe", Security: wifi.SecurityWPA, Enabled: true, Auth: wifi.AuthSettings{KeyMgmt: "wpa-psk", PSK: "hunter2"}})
	if err != nil {
		t.Fatalf("AddProfile() failed: %v", err)
	}
	if id != string(settings.conns[0].path) {
		t.Errorf("AddProfile() id = %q", id)
	}
	if err := b.SaveProfiles(); err != nil {
		t.Fatalf("SaveProfiles() failed: %v", err)
	}
	if !settings.conns[0].saved {
		t.Error("unsaved connection was not saved")
	}

	if _, err := b.AddProfile(wifi.Profile{}); !errors.Is(err, wifi.ErrOperationFailed) {
		t.Errorf("expected ErrOperationFailed for empty ssid, got %v", err)
	}
}

func TestEnableProfileExclusive(t *testing.T) {
	dev := &mockDeviceWireless{state: deviceStateDisconnected}
	nm := &mockNM{
		getDevicesFunc: func() ([]gonetworkmanager.Device, error) {
			return []gonetworkmanager.Device{dev}, nil
		},
	}
	target := wirelessConnection("/org/freedesktop/NetworkManager/Settings/1", "Cafe", false)
	other := wirelessConnection("/org/freedesktop/NetworkManager/Settings/2", "Library", true)
	b := &Backend{NM: nm, Settings: &mockSettings{conns: []*mockConnection{target, other}}}

	if err := b.EnableProfile(string(target.path), true); err != nil {
		t.Fatalf("EnableProfile() failed: %v", err)
	}

	if ac := target.settings["connection"]["autoconnect"]; ac != true {
		t.Errorf("target autoconnect = %v, want true", ac)
	}
	if ac := other.settings["connection"]["autoconnect"]; ac != false {
		t.Errorf("other autoconnect = %v, want false", ac)
	}
	if _, ok := target.settings["ipv6"]["addresses"]; ok {
		t.Error("ipv6 addresses should be stripped before update")
	}
	if len(nm.activated) != 1 || nm.activated[0] != target {
		t.Errorf("expected target to be activated, got %v", nm.activated)
	}
	if b.currentTarget() != "Cafe" {
		t.Errorf("association target = %q, want Cafe", b.currentTarget())
	}

	if err := b.EnableProfile("/missing", false); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileSecret(t *testing.T) {
	conn := wirelessConnection("/org/freedesktop/NetworkManager/Settings/1", "Cafe", true)
	conn.secrets = gonetworkmanager.ConnectionSettings{wirelessSecurityKey: {"psk": "hunter2"}}
	b := &Backend{Settings: &mockSettings{conns: []*mockConnection{conn}}}

	secret, err := b.ProfileSecret(string(conn.path))
	if err != nil {
		t.Fatalf("ProfileSecret() failed: %v", err)
	}
	if secret != "hunter2" {
		t.Errorf("expected secret 'hunter2', got %q", secret)
	}
}

func TestAssociationEvents(t *testing.T) {
	tests := []struct {
		name     string
		state    uint32
		reason   uint32
		expected []wifi.AssociationEvent
	}{
		{"connecting", deviceStateConfig, 0, []wifi.AssociationEvent{{State: wifi.StateConnecting}}},
		{"authenticating", deviceStateNeedAuth, 0, []wifi.AssociationEvent{{State: wifi.StateAuthenticating}}},
		{"ip config", deviceStateIPConfig, 0, []wifi.AssociationEvent{{State: wifi.StateObtainingAddress}}},
		{"activated", deviceStateActivated, 0, []wifi.AssociationEvent{{State: wifi.StateConnected}}},
		{"failed", deviceStateFailed, 1, []wifi.AssociationEvent{{State: wifi.StateFailed}}},
		{"no secrets", deviceStateFailed, reasonNoSecrets, []wifi.AssociationEvent{
			{Kind: wifi.CredentialRejected},
			{State: wifi.StateFailed},
		}},
		{"supplicant disconnect", deviceStateDisconnected, reasonSupplicantDisconnect, []wifi.AssociationEvent{
			{Kind: wifi.CredentialRejected},
			{State: wifi.StateDisconnected},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := associationEvents(tt.state, tt.reason)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("associationEvents(%d, %d) = %+v, want %+v", tt.state, tt.reason, got, tt.expected)
			}
		})
	}
}

func TestRadioEvents(t *testing.T) {
	tests := []struct {
		name     string
		iface    string
		changed  map[string]dbus.Variant
		expected []wifi.RadioEvent
	}{
		{"radio on", nmInterface, map[string]dbus.Variant{"WirelessEnabled": dbus.MakeVariant(true)},
			[]wifi.RadioEvent{{Kind: wifi.RadioStateChanged, State: wifi.RadioEnabling}}},
		{"radio off", nmInterface, map[string]dbus.Variant{"WirelessEnabled": dbus.MakeVariant(false)},
			[]wifi.RadioEvent{{Kind: wifi.RadioStateChanged, State: wifi.RadioDisabled}}},
		{"scan done", wirelessInterface, map[string]dbus.Variant{"LastScan": dbus.MakeVariant(int64(12345))},
			[]wifi.RadioEvent{{Kind: wifi.ScanResultsAvailable}}},
		{"strength", accessPointIface, map[string]dbus.Variant{"Strength": dbus.MakeVariant(byte(64))},
			[]wifi.RadioEvent{{Kind: wifi.SignalStrengthChanged, Strength: 64}}},
		{"unrelated", nmInterface, map[string]dbus.Variant{"Connectivity": dbus.MakeVariant(uint32(4))}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := radioEvents(tt.iface, tt.changed)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("radioEvents() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestHandleSignal_StateChanged(t *testing.T) {
	dev := &mockDeviceWireless{}
	b := &Backend{NM: &mockNM{}, target: "Cafe"}
	events := make(chan wifi.AssociationEvent, 4)
	radio := make(chan wifi.RadioEvent, 4)
	b.assocFeed.Subscribe(events)
	b.radioFeed.Subscribe(radio)

	b.handleSignal(&dbus.Signal{
		Path: dev.GetPath(),
		Name: deviceInterface + ".StateChanged",
		Body: []interface{}{uint32(deviceStateFailed), uint32(deviceStateNeedAuth), uint32(reasonNoSecrets)},
	}, dev.GetPath())

	if ev := <-events; ev.Kind != wifi.CredentialRejected || ev.SSID != "Cafe" {
		t.Errorf("expected credential rejected for Cafe, got %+v", ev)
	}
	if ev := <-events; ev.State != wifi.StateFailed {
		t.Errorf("expected failed, got %+v", ev)
	}
	if len(radio) != 0 {
		t.Errorf("unexpected radio event")
	}

	b.handleSignal(&dbus.Signal{
		Path: dev.GetPath(),
		Name: deviceInterface + ".StateChanged",
		Body: []interface{}{uint32(deviceStateDisconnected), uint32(deviceStateUnavailable), uint32(0)},
	}, dev.GetPath())
	if ev := <-radio; ev.State != wifi.RadioEnabled {
		t.Errorf("expected radio enabled, got %+v", ev)
	}
}
