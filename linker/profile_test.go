package linker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shazow/wifilinker/wifi"
	"github.com/shazow/wifilinker/wifi/mock"
)

func TestBuild(t *testing.T) {
	r := NewProfileResolver(mock.NewMock(), 8)

	tests := []struct {
		name       string
		credential string
		security   wifi.SecurityType
		expected   wifi.AuthSettings
	}{
		{
			name:     "open",
			security: wifi.SecurityOpen,
			expected: wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "open"},
		},
		{
			name:       "open ignores credential",
			credential: "whatever",
			security:   wifi.SecurityOpen,
			expected:   wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "open"},
		},
		{
			name:       "wep hex key",
			credential: "0123456789",
			security:   wifi.SecurityWEP,
			expected:   wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "shared", WEPKey0: "0123456789", WEPKeyType: wepKeyTypeKey},
		},
		{
			name:       "wep passphrase",
			credential: "not a key at all",
			security:   wifi.SecurityWEP,
			expected:   wifi.AuthSettings{KeyMgmt: "none", AuthAlg: "shared", WEPKey0: "not a key at all", WEPKeyType: wepKeyTypePassphrase},
		},
		{
			name:       "wpa",
			credential: "correct horse",
			security:   wifi.SecurityWPA,
			expected: wifi.AuthSettings{
				KeyMgmt:  "wpa-psk",
				AuthAlg:  "open",
				PSK:      "correct horse",
				Proto:    []string{"wpa", "rsn"},
				Pairwise: []string{"tkip", "ccmp"},
				Group:    []string{"tkip", "ccmp"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Build("Cafe", tt.credential, tt.security)
			require.NoError(t, err)
			assert.Equal(t, "Cafe", p.SSID)
			assert.Equal(t, tt.security, p.Security)
			assert.Equal(t, tt.expected, p.Auth)
			assert.Empty(t, p.ID)
		})
	}
}

func TestBuildInvalid(t *testing.T) {
	r := NewProfileResolver(mock.NewMock(), 8)

	tests := []struct {
		name       string
		ssid       string
		credential string
		security   wifi.SecurityType
	}{
		{"wep without key", "Cafe", "", wifi.SecurityWEP},
		{"wpa without passphrase", "Cafe", "", wifi.SecurityWPA},
		{"wpa too short", "Cafe", "hunter2", wifi.SecurityWPA},
		{"wpa too long", "Cafe", strings.Repeat("x", 65), wifi.SecurityWPA},
		{"unknown security", "Cafe", "password", wifi.SecurityUnknown},
		{"empty ssid", "", "password", wifi.SecurityWPA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.ssid, tt.credential, tt.security)
			assert.ErrorIs(t, err, ErrInvalidProfile)
		})
	}
}

func TestBuildDefaultMinimumLength(t *testing.T) {
	r := NewProfileResolver(mock.NewMock(), DefaultConfig().MinPassphraseLength)

	p, err := r.Build("Cafe", "hunter2", wifi.SecurityWPA)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", p.Auth.PSK)
}

func TestFindExisting(t *testing.T) {
	m := mock.NewMock()
	r := NewProfileResolver(m, 1)

	p, err := r.FindExisting("GET off my LAN")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "GET off my LAN", p.SSID)

	p, err = r.FindExisting("get off my lan")
	require.NoError(t, err)
	assert.Nil(t, p, "match must be exact")

	m.ProfilesError = errors.New("bus is down")
	_, err = r.FindExisting("GET off my LAN")
	assert.Error(t, err)
}

func TestBuildThenFindExisting(t *testing.T) {
	m := mock.NewMock()
	r := NewProfileResolver(m, 1)

	for _, security := range []wifi.SecurityType{wifi.SecurityOpen, wifi.SecurityWEP, wifi.SecurityWPA} {
		ssid := "Roundtrip " + security.String()
		built, err := r.Build(ssid, "abcde", security)
		require.NoError(t, err)
		_, err = m.AddProfile(built)
		require.NoError(t, err)

		found, err := r.FindExisting(ssid)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, security, found.Security)
	}
}

func TestWEPKeyType(t *testing.T) {
	tests := []struct {
		key      string
		expected int
	}{
		{"abcde", wepKeyTypeKey},
		{"abcdefghijklm", wepKeyTypeKey},
		{"0123456789", wepKeyTypeKey},
		{"0123456789abcdef0123456789", wepKeyTypeKey},
		{"zz23456789", wepKeyTypePassphrase},
		{"a longer passphrase", wepKeyTypePassphrase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, wepKeyType(tt.key), "key %q", tt.key)
	}
}
