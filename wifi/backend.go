package wifi

import "fmt"

// SecurityType represents the security protocol of a network.
//
// SecurityUnknown is the zero value. When passed to a connect request it means
// the caller did not specify one and it should be derived from scan results.
type SecurityType int

const (
	SecurityUnknown SecurityType = iota
	SecurityOpen
	SecurityWEP
	SecurityWPA
)

func (s SecurityType) String() string {
	switch s {
	case SecurityOpen:
		return "open"
	case SecurityWEP:
		return "wep"
	case SecurityWPA:
		return "wpa"
	default:
		return "unknown"
	}
}

// ParseSecurityType parses the flag spelling of a security type.
func ParseSecurityType(s string) (SecurityType, error) {
	switch s {
	case "", "auto":
		return SecurityUnknown, nil
	case "open", "none":
		return SecurityOpen, nil
	case "wep":
		return SecurityWEP, nil
	case "wpa", "wpa2", "psk":
		return SecurityWPA, nil
	}
	return SecurityUnknown, fmt.Errorf("invalid security type: %s", s)
}

// ScanResult is a single access point seen by the last completed scan.
type ScanResult struct {
	SSID      string
	BSSID     string
	Strength  uint8 // 0-100
	Frequency uint  // MHz
	// Capabilities is the advertised security capability string, e.g. "[WPA2-PSK-CCMP][ESS]".
	Capabilities string
}

// Security classifies the advertised capabilities of the result.
func (r ScanResult) Security() SecurityType {
	return ClassifySecurity(r.Capabilities)
}

// AuthSettings holds the subsystem-facing authentication fields of a profile.
type AuthSettings struct {
	KeyMgmt     string // "none" or "wpa-psk"
	AuthAlg     string // "open" or "shared"
	PSK         string
	WEPKey0     string
	WEPKeyType  int // 1 = hex/ascii key, 2 = passphrase
	WEPTxKeyIdx int
	Proto       []string
	Pairwise    []string
	Group       []string
}

// Profile is a stored network configuration owned by the backend.
type Profile struct {
	// ID is assigned by the backend once the profile is persisted.
	ID       string
	SSID     string
	Security SecurityType
	Auth     AuthSettings
	Hidden   bool
	Enabled  bool
}

// LinkInfo is a snapshot of the current association.
type LinkInfo struct {
	SSID    string
	IP      string
	MAC     string
	Gateway string
}

// Backend defines the interface to the host networking subsystem.
type Backend interface {
	// SetRadioEnabled powers the wireless radio on or off.
	SetRadioEnabled(enabled bool) error
	// RadioState returns the current power state of the radio.
	RadioState() (RadioState, error)

	// RequestScan asks the subsystem to start a scan. It does not wait for results.
	RequestScan() error
	// ScanResults returns the results of the most recent scan the subsystem completed.
	ScanResults() ([]ScanResult, error)

	// Profiles lists the stored network profiles.
	Profiles() ([]Profile, error)
	// AddProfile stores a new profile and returns the ID assigned to it.
	AddProfile(p Profile) (string, error)
	// RemoveProfile deletes a stored profile.
	RemoveProfile(id string) error
	// EnableProfile enables a profile and requests association with it. If
	// exclusive is set, the subsystem should not associate with other profiles.
	EnableProfile(id string, exclusive bool) error
	// DisableProfile prevents the subsystem from associating with a profile.
	DisableProfile(id string) error
	// ProfileSecret returns the stored credential of a profile, if any.
	ProfileSecret(id string) (string, error)
	// SaveProfiles persists the profile store.
	SaveProfiles() error

	// Disassociate drops the current association, if any.
	Disassociate() error
	// CurrentAssociation returns the current link, or nil when not associated.
	CurrentAssociation() (*LinkInfo, error)

	// SubscribeRadio delivers radio state, scan completion and signal strength events.
	SubscribeRadio(ch chan<- RadioEvent) (Subscription, error)
	// SubscribeAssociation delivers association state and credential rejection events.
	SubscribeAssociation(ch chan<- AssociationEvent) (Subscription, error)
}
