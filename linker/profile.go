package linker

import (
	"encoding/hex"
	"fmt"

	"github.com/shazow/wifilinker/wifi"
)

const maxPassphraseLength = 64

// WEP key types, as NetworkManager numbers them.
const (
	wepKeyTypeKey        = 1
	wepKeyTypePassphrase = 2
)

// ProfileResolver locates stored profiles and builds new ones.
type ProfileResolver struct {
	backend             wifi.Backend
	minPassphraseLength int
}

// NewProfileResolver returns a resolver over the backend's profile store.
func NewProfileResolver(backend wifi.Backend, minPassphraseLength int) *ProfileResolver {
	if minPassphraseLength < 1 {
		minPassphraseLength = 1
	}
	return &ProfileResolver{backend: backend, minPassphraseLength: minPassphraseLength}
}

// FindExisting returns the first stored profile whose SSID matches exactly, or
// nil if there is none.
func (r *ProfileResolver) FindExisting(ssid string) (*wifi.Profile, error) {
	profiles, err := r.backend.Profiles()
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	for i := range profiles {
		if profiles[i].SSID == ssid {
			p := profiles[i]
			return &p, nil
		}
	}
	return nil, nil
}

// Build constructs an unsaved profile for the network. It fails with
// ErrInvalidProfile when the credential does not fit the security type.
func (r *ProfileResolver) Build(ssid, credential string, security wifi.SecurityType) (wifi.Profile, error) {
	if ssid == "" {
		return wifi.Profile{}, fmt.Errorf("empty ssid: %w", ErrInvalidProfile)
	}
	p := wifi.Profile{SSID: ssid, Security: security, Enabled: true}

	switch security {
	case wifi.SecurityOpen:
		p.Auth = wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "open"}
	case wifi.SecurityWEP:
		if credential == "" {
			return wifi.Profile{}, fmt.Errorf("wep network %q needs a key: %w", ssid, ErrInvalidProfile)
		}
		p.Auth = wifi.AuthSettings{
			KeyMgmt:     "none",
			AuthAlg:     "shared",
			WEPKey0:     credential,
			WEPKeyType:  wepKeyType(credential),
			WEPTxKeyIdx: 0,
		}
	case wifi.SecurityWPA:
		switch {
		case credential == "":
			return wifi.Profile{}, fmt.Errorf("wpa network %q needs a passphrase: %w", ssid, ErrInvalidProfile)
		case len(credential) < r.minPassphraseLength:
			return wifi.Profile{}, fmt.Errorf("passphrase shorter than %d characters: %w", r.minPassphraseLength, ErrInvalidProfile)
		case len(credential) > maxPassphraseLength:
			return wifi.Profile{}, fmt.Errorf("passphrase longer than %d characters: %w", maxPassphraseLength, ErrInvalidProfile)
		}
		p.Auth = wifi.AuthSettings{
			KeyMgmt:  "wpa-psk",
			AuthAlg:  "open",
			PSK:      credential,
			Proto:    []string{"wpa", "rsn"},
			Pairwise: []string{"tkip", "ccmp"},
			Group:    []string{"tkip", "ccmp"},
		}
	default:
		return wifi.Profile{}, fmt.Errorf("security type %s: %w", security, ErrInvalidProfile)
	}
	return p, nil
}

// wepKeyType treats 40/104-bit keys, in hex or ascii form, as raw keys and
// anything else as a passphrase.
func wepKeyType(key string) int {
	switch len(key) {
	case 10, 26:
		if _, err := hex.DecodeString(key); err == nil {
			return wepKeyTypeKey
		}
	case 5, 13:
		return wepKeyTypeKey
	}
	return wepKeyTypePassphrase
}
