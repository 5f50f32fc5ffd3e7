package mock

import (
	"errors"
	"testing"
	"time"

	"github.com/shazow/wifilinker/wifi"
)

// Helper to find a profile in a slice
func findProfile(profiles []wifi.Profile, ssid string) *wifi.Profile {
	for i := range profiles {
		if profiles[i].SSID == ssid {
			return &profiles[i]
		}
	}
	return nil
}

// waitAssociation reads events until one matches, or fails the test.
func waitAssociation(t *testing.T, ch <-chan wifi.AssociationEvent, match func(wifi.AssociationEvent) bool) wifi.AssociationEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for association event")
		}
	}
}

func TestNew(t *testing.T) {
	b, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if b == nil {
		t.Fatal("New() returned nil backend")
	}
	mock := b.(*MockBackend)
	if len(mock.StoredProfiles()) == 0 {
		t.Fatal("New() returned no stored profiles")
	}
	if mock.AssociatedSSID() != "" {
		t.Errorf("expected no association, got %q", mock.AssociatedSSID())
	}
}

func TestRequestScan(t *testing.T) {
	m := NewMock()
	events := make(chan wifi.RadioEvent, 8)
	if _, err := m.SubscribeRadio(events); err != nil {
		t.Fatalf("SubscribeRadio() failed: %v", err)
	}

	if err := m.RequestScan(); err != nil {
		t.Fatalf("RequestScan() failed: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != wifi.ScanResultsAvailable {
			t.Fatalf("expected ScanResultsAvailable, got %v", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scan results")
	}

	results, err := m.ScanResults()
	if err != nil {
		t.Fatalf("ScanResults() failed: %v", err)
	}
	if len(results) != len(m.VisibleNetworks) {
		t.Errorf("expected %d results, got %d", len(m.VisibleNetworks), len(results))
	}
}

func TestRequestScan_WirelessDisabled(t *testing.T) {
	m := NewMock()
	m.Radio = wifi.RadioDisabled

	err := m.RequestScan()
	if err != wifi.ErrWirelessDisabled {
		t.Errorf("expected error %v, but got %v", wifi.ErrWirelessDisabled, err)
	}
}

func TestSetRadioEnabled(t *testing.T) {
	m := NewMock()
	m.Radio = wifi.RadioDisabled
	events := make(chan wifi.RadioEvent, 8)
	m.SubscribeRadio(events)

	if err := m.SetRadioEnabled(true); err != nil {
		t.Fatalf("SetRadioEnabled(true) failed: %v", err)
	}

	var states []wifi.RadioState
	timeout := time.After(2 * time.Second)
	for len(states) < 2 {
		select {
		case ev := <-events:
			states = append(states, ev.State)
		case <-timeout:
			t.Fatalf("timed out, got states %v", states)
		}
	}
	if states[0] != wifi.RadioEnabling || states[1] != wifi.RadioEnabled {
		t.Errorf("expected [enabling enabled], got %v", states)
	}
	if m.RadioPower() != wifi.RadioEnabled {
		t.Errorf("expected radio enabled, got %v", m.RadioPower())
	}
}

func TestAddAndEnableProfile(t *testing.T) {
	m := NewMock()
	events := make(chan wifi.AssociationEvent, 16)
	m.SubscribeAssociation(events)

	ssid := "Password is password"
	id, err := m.AddProfile(wifi.Profile{SSID: ssid, Security: wifi.SecurityWPA, Auth: wifi.AuthSettings{PSK: "password"}})
	if err != nil {
		t.Fatalf("AddProfile() failed: %v", err)
	}
	if err := m.EnableProfile(id, true); err != nil {
		t.Fatalf("EnableProfile() failed: %v", err)
	}

	waitAssociation(t, events, func(ev wifi.AssociationEvent) bool {
		return ev.State == wifi.StateConnected && ev.SSID == ssid
	})

	info, err := m.CurrentAssociation()
	if err != nil {
		t.Fatalf("CurrentAssociation() failed: %v", err)
	}
	if info == nil || info.SSID != ssid {
		t.Fatalf("expected association with %q, got %+v", ssid, info)
	}

	// Exclusive enable disables every other profile.
	for _, p := range m.StoredProfiles() {
		if p.ID != id && p.Enabled {
			t.Errorf("profile %s should have been disabled", p.SSID)
		}
	}
}

func TestEnableProfile_WrongPassword(t *testing.T) {
	m := NewMock()
	events := make(chan wifi.AssociationEvent, 16)
	m.SubscribeAssociation(events)

	id, _ := m.AddProfile(wifi.Profile{SSID: "HideYoKidsHideYoWiFi", Security: wifi.SecurityWPA, Auth: wifi.AuthSettings{PSK: "nope nope"}})
	if err := m.EnableProfile(id, true); err != nil {
		t.Fatalf("EnableProfile() failed: %v", err)
	}

	waitAssociation(t, events, func(ev wifi.AssociationEvent) bool {
		return ev.Kind == wifi.CredentialRejected
	})
	if m.AssociatedSSID() != "" {
		t.Errorf("expected no association, got %q", m.AssociatedSSID())
	}
}

func TestEnableProfile_NotVisible(t *testing.T) {
	m := NewMock()
	events := make(chan wifi.AssociationEvent, 16)
	m.SubscribeAssociation(events)

	profile := findProfile(m.StoredProfiles(), "GET off my LAN")
	if profile == nil {
		t.Fatal("test setup failed: missing stored profile")
	}
	if err := m.EnableProfile(profile.ID, true); err != nil {
		t.Fatalf("EnableProfile() failed: %v", err)
	}
	waitAssociation(t, events, func(ev wifi.AssociationEvent) bool {
		return ev.State == wifi.StateFailed
	})
}

func TestRemoveProfile(t *testing.T) {
	m := NewMock()
	profile := findProfile(m.StoredProfiles(), "Password is password")

	if err := m.RemoveProfile(profile.ID); err != nil {
		t.Fatalf("RemoveProfile() failed: %v", err)
	}
	if findProfile(m.StoredProfiles(), "Password is password") != nil {
		t.Error("profile still stored after RemoveProfile()")
	}

	err := m.RemoveProfile(profile.ID)
	if !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound removing twice, got %v", err)
	}
}

func TestDisassociate(t *testing.T) {
	m := NewMock()
	m.Associated = "Password is password"
	events := make(chan wifi.AssociationEvent, 16)
	m.SubscribeAssociation(events)

	if err := m.Disassociate(); err != nil {
		t.Fatalf("Disassociate() failed: %v", err)
	}
	waitAssociation(t, events, func(ev wifi.AssociationEvent) bool {
		return ev.State == wifi.StateDisconnected
	})
	if info, _ := m.CurrentAssociation(); info != nil {
		t.Errorf("expected no association, got %+v", info)
	}
}

func TestUnsubscribeTwice(t *testing.T) {
	m := NewMock()
	sub, err := m.SubscribeRadio(make(chan wifi.RadioEvent, 1))
	if err != nil {
		t.Fatalf("SubscribeRadio() failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("first Unsubscribe() failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != wifi.ErrNotSubscribed {
		t.Errorf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestProfileSecret(t *testing.T) {
	m := NewMock()
	profile := findProfile(m.StoredProfiles(), "Password is password")

	secret, err := m.ProfileSecret(profile.ID)
	if err != nil {
		t.Fatalf("ProfileSecret() failed: %v", err)
	}
	if secret != "password" {
		t.Errorf("expected secret 'password', got '%s'", secret)
	}

	if _, err := m.ProfileSecret("missing"); !errors.Is(err, wifi.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func init() {
	DefaultActionSleep = 0
	DefaultStepDelay = 0
}
