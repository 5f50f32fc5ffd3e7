//go:build linux

package networkmanager

import (
	"fmt"

	gonetworkmanager "github.com/Wifx/gonetworkmanager/v3"
	"github.com/google/uuid"

	"github.com/shazow/wifilinker/wifi"
)

const (
	wirelessType        = "802-11-wireless"
	wirelessSecurityKey = "802-11-wireless-security"
)

// wirelessConnections lists stored wifi connections with their settings.
func (b *Backend) wirelessConnections() ([]gonetworkmanager.Connection, []gonetworkmanager.ConnectionSettings, error) {
	conns, err := b.Settings.ListConnections()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list connections: %w", err)
	}
	var (
		outConns    []gonetworkmanager.Connection
		outSettings []gonetworkmanager.ConnectionSettings
	)
	for _, c := range conns {
		s, err := c.GetSettings()
		if err != nil {
			b.log().Debug("skipping unreadable connection", "path", c.GetPath(), "error", err)
			continue
		}
		if t, _ := s["connection"]["type"].(string); t != wirelessType {
			continue
		}
		outConns = append(outConns, c)
		outSettings = append(outSettings, s)
	}
	return outConns, outSettings, nil
}

// connection finds a stored wifi connection by profile ID.
func (b *Backend) connection(id string) (gonetworkmanager.Connection, gonetworkmanager.ConnectionSettings, error) {
	conns, settings, err := b.wirelessConnections()
	if err != nil {
		return nil, nil, err
	}
	for i, c := range conns {
		if string(c.GetPath()) == id {
			return c, settings[i], nil
		}
	}
	return nil, nil, fmt.Errorf("connection not found for %s: %w", id, wifi.ErrNotFound)
}

func (b *Backend) Profiles() ([]wifi.Profile, error) {
	conns, settings, err := b.wirelessConnections()
	if err != nil {
		return nil, err
	}
	profiles := make([]wifi.Profile, 0, len(conns))
	for i, c := range conns {
		p := profileFromSettings(settings[i])
		p.ID = string(c.GetPath())
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func profileFromSettings(s gonetworkmanager.ConnectionSettings) wifi.Profile {
	var p wifi.Profile
	if wireless, ok := s[wirelessType]; ok {
		if ssid, ok := wireless["ssid"].([]byte); ok {
			p.SSID = string(ssid)
		}
		p.Hidden, _ = wireless["hidden"].(bool)
	}

	p.Enabled = true
	if ac, ok := s["connection"]["autoconnect"].(bool); ok {
		p.Enabled = ac
	}

	sec, ok := s[wirelessSecurityKey]
	if !ok {
		p.Security = wifi.SecurityOpen
		p.Auth = wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "open"}
		return p
	}
	p.Auth.KeyMgmt, _ = sec["key-mgmt"].(string)
	p.Auth.AuthAlg, _ = sec["auth-alg"].(string)
	p.Auth.Proto = stringList(sec["proto"])
	p.Auth.Pairwise = stringList(sec["pairwise"])
	p.Auth.Group = stringList(sec["group"])
	if kt, ok := sec["wep-key-type"].(uint32); ok {
		p.Auth.WEPKeyType = int(kt)
	}
	if idx, ok := sec["wep-tx-keyidx"].(uint32); ok {
		p.Auth.WEPTxKeyIdx = int(idx)
	}

	switch p.Auth.KeyMgmt {
	case "wpa-psk", "sae", "wpa-eap":
		p.Security = wifi.SecurityWPA
	case "none", "ieee8021x":
		p.Security = wifi.SecurityWEP
	default:
		p.Security = wifi.SecurityUnknown
	}
	return p
}

func stringList(v interface{}) []string {
	list, _ := v.([]string)
	return list
}

// connectionSettings renders a profile as a NetworkManager settings map.
func connectionSettings(p wifi.Profile, iface string) gonetworkmanager.ConnectionSettings {
	connection := gonetworkmanager.ConnectionSettings{
		"connection": {
			"id":          p.SSID,
			"uuid":        uuid.New().String(),
			"type":        wirelessType,
			"autoconnect": p.Enabled,
		},
		wirelessType: {
			"mode": "infrastructure",
			"ssid": []byte(p.SSID),
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "auto"},
	}
	if iface != "" {
		connection["connection"]["interface-name"] = iface
	}
	if p.Hidden {
		connection[wirelessType]["hidden"] = true
	}

	switch p.Security {
	case wifi.SecurityOpen:
		// No security settings needed
	case wifi.SecurityWEP:
		connection[wirelessType]["security"] = wirelessSecurityKey
		sec := map[string]interface{}{
			"key-mgmt":      p.Auth.KeyMgmt,
			"auth-alg":      p.Auth.AuthAlg,
			"wep-key0":      p.Auth.WEPKey0,
			"wep-tx-keyidx": uint32(p.Auth.WEPTxKeyIdx),
		}
		if p.Auth.WEPKeyType != 0 {
			sec["wep-key-type"] = uint32(p.Auth.WEPKeyType)
		}
		connection[wirelessSecurityKey] = sec
	default: // WPA/WPA2
		connection[wirelessType]["security"] = wirelessSecurityKey
		sec := map[string]interface{}{
			"key-mgmt": p.Auth.KeyMgmt,
			"psk":      p.Auth.PSK,
		}
		if p.Auth.AuthAlg != "" {
			sec["auth-alg"] = p.Auth.AuthAlg
		}
		if len(p.Auth.Proto) > 0 {
			sec["proto"] = p.Auth.Proto
		}
		if len(p.Auth.Pairwise) > 0 {
			sec["pairwise"] = p.Auth.Pairwise
		}
		if len(p.Auth.Group) > 0 {
			sec["group"] = p.Auth.Group
		}
		connection[wirelessSecurityKey] = sec
	}
	return connection
}

// AddProfile adds an unsaved connection. SaveProfiles writes it to disk.
func (b *Backend) AddProfile(p wifi.Profile) (string, error) {
	if p.SSID == "" {
		return "", fmt.Errorf("profile has no ssid: %w", wifi.ErrOperationFailed)
	}
	var iface string
	if dev, err := b.getWirelessDevice(); err == nil {
		iface, _ = dev.GetPropertyInterface()
	}

	conn, err := b.Settings.AddConnectionUnsaved(connectionSettings(p, iface))
	if err != nil {
		return "", fmt.Errorf("failed to add connection: %w", err)
	}
	return string(conn.GetPath()), nil
}

func (b *Backend) RemoveProfile(id string) error {
	conn, _, err := b.connection(id)
	if err != nil {
		return err
	}
	return conn.Delete()
}

// EnableProfile turns autoconnect on and activates the connection on the
// wireless device. With exclusive set, autoconnect is turned off for every
// other wifi connection.
func (b *Backend) EnableProfile(id string, exclusive bool) error {
	conns, settings, err := b.wirelessConnections()
	if err != nil {
		return err
	}
	var target gonetworkmanager.Connection
	var targetSettings gonetworkmanager.ConnectionSettings
	for i, c := range conns {
		if string(c.GetPath()) == id {
			target, targetSettings = c, settings[i]
			continue
		}
		if exclusive {
			if err := b.setAutoConnect(c, settings[i], false); err != nil {
				b.log().Warn("failed to disable autoconnect", "path", c.GetPath(), "error", err)
			}
		}
	}
	if target == nil {
		return fmt.Errorf("connection not found for %s: %w", id, wifi.ErrNotFound)
	}
	if err := b.setAutoConnect(target, targetSettings, true); err != nil {
		return err
	}

	dev, err := b.getWirelessDevice()
	if err != nil {
		return err
	}
	b.setTarget(profileFromSettings(targetSettings).SSID)
	if _, err := b.NM.ActivateConnection(target, dev, nil); err != nil {
		return fmt.Errorf("failed to activate connection: %w", err)
	}
	return nil
}

// DisableProfile turns autoconnect off and deactivates the connection if it is active.
func (b *Backend) DisableProfile(id string) error {
	conn, settings, err := b.connection(id)
	if err != nil {
		return err
	}
	if err := b.setAutoConnect(conn, settings, false); err != nil {
		return err
	}

	active, err := b.NM.GetPropertyActiveConnections()
	if err != nil {
		return fmt.Errorf("failed to list active connections: %w", err)
	}
	for _, ac := range active {
		c, err := ac.GetPropertyConnection()
		if err != nil || c == nil || c.GetPath() != conn.GetPath() {
			continue
		}
		if err := b.NM.DeactivateConnection(ac); err != nil {
			return fmt.Errorf("failed to deactivate connection: %w", err)
		}
	}
	return nil
}

func (b *Backend) setAutoConnect(conn gonetworkmanager.Connection, settings gonetworkmanager.ConnectionSettings, autoConnect bool) error {
	if current, ok := settings["connection"]["autoconnect"].(bool); ok && current == autoConnect {
		return nil
	} else if !ok && autoConnect {
		// Absent means the NetworkManager default, which is on.
		return nil
	}
	settings["connection"]["autoconnect"] = autoConnect

	applyUpdateWorkaround(settings)
	if unsaved, err := conn.GetPropertyUnsaved(); err == nil && unsaved {
		return conn.UpdateUnsaved(settings)
	}
	return conn.Update(settings)
}

// applyUpdateWorkaround modifies the settings map to workaround D-Bus type errors.
//
// NetworkManager's D-Bus API can return ipv6.addresses and ipv6.routes as an
// array of array of variants ('aav'), but expects them as an array of structs
// on update ('a(ayuay)' for addresses and 'a(ayuayu)' for routes). Removing
// them is safe because the updates here only touch other properties.
//
// See: https://github.com/Wifx/gonetworkmanager/issues/13 and https://github.com/godbus/dbus/issues/400
func applyUpdateWorkaround(settings gonetworkmanager.ConnectionSettings) {
	if ipv6Settings, ok := settings["ipv6"]; ok {
		delete(ipv6Settings, "addresses")
		delete(ipv6Settings, "routes")
	}
}

func (b *Backend) ProfileSecret(id string) (string, error) {
	conn, settings, err := b.connection(id)
	if err != nil {
		return "", err
	}
	if _, ok := settings[wirelessSecurityKey]; !ok {
		return "", nil
	}

	secrets, err := conn.GetSecrets(wirelessSecurityKey)
	if err != nil {
		return "", fmt.Errorf("failed to get secrets: %w", wifi.ErrOperationFailed)
	}
	return secretFromSettings(secrets), nil
}

func secretFromSettings(s gonetworkmanager.ConnectionSettings) string {
	sec, ok := s[wirelessSecurityKey]
	if !ok {
		return ""
	}
	for _, key := range []string{"psk", "wep-key0"} {
		if v, ok := sec[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// SaveProfiles writes every unsaved wifi connection to disk.
func (b *Backend) SaveProfiles() error {
	conns, _, err := b.wirelessConnections()
	if err != nil {
		return err
	}
	for _, c := range conns {
		unsaved, err := c.GetPropertyUnsaved()
		if err != nil || !unsaved {
			continue
		}
		if err := c.Save(); err != nil {
			return fmt.Errorf("failed to save %s: %w", c.GetPath(), err)
		}
	}
	return nil
}
