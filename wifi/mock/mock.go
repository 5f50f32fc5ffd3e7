package mock

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/shazow/wifilinker/wifi"
)

var (
	// DefaultActionSleep is the delay before every backend call.
	DefaultActionSleep = 500 * time.Millisecond
	// DefaultStepDelay is the delay between simulated radio and association steps.
	DefaultStepDelay = 300 * time.Millisecond
)

// mockProfile wraps a wifi.Profile with mock-specific metadata.
type mockProfile struct {
	wifi.Profile
	Secret string
}

// MockBackend is an in-memory implementation of wifi.Backend. It simulates radio
// power-up, scans and association progress, and reports them on the event streams.
type MockBackend struct {
	// VisibleNetworks are the access points a scan will find.
	VisibleNetworks []wifi.ScanResult
	// Passwords holds the credential an access point accepts. Networks missing
	// from the map accept any credential.
	Passwords map[string]string
	// SilentSSIDs never report association progress once enabled.
	SilentSSIDs map[string]bool

	Radio      wifi.RadioState
	Associated string
	IP         string
	MAC        string
	Gateway    string

	// RadioBroken makes power-up end in wifi.RadioUnknown.
	RadioBroken bool
	// RadioStuck keeps the radio in wifi.RadioEnabling after power-up is requested.
	RadioStuck bool

	SetRadioError      error
	RadioStateError    error
	RequestScanError   error
	ProfilesError      error
	AddProfileError    error
	RemoveProfileError error
	EnableError        error
	DisableError       error
	DisassociateError  error

	// RandomizeStrength re-rolls signal strengths on every scan.
	RandomizeStrength bool

	// ActionSleep is a delay before every action, to better emulate a real-world backend for the frontend. Set to 0 during testing.
	ActionSleep time.Duration
	// StepDelay is the delay between simulated steps.
	StepDelay time.Duration

	mu          sync.Mutex
	profiles    []mockProfile
	scanResults []wifi.ScanResult
	nextID      int
	radioGen    int
	assocGen    int
	mutations   []string

	radioFeed wifi.Feed[wifi.RadioEvent]
	assocFeed wifi.Feed[wifi.AssociationEvent]
}

var _ wifi.Backend = (*MockBackend)(nil)

// New creates a new mock.Backend with a list of fun wifi networks.
func New() (wifi.Backend, error) {
	m := NewMock()
	m.RandomizeStrength = true
	return m, nil
}

// NewMock is New without the interface conversion, for tests that poke at internals.
func NewMock() *MockBackend {
	m := &MockBackend{
		VisibleNetworks: []wifi.ScanResult{
			{SSID: "HideYoKidsHideYoWiFi", BSSID: "00:11:22:33:44:01", Strength: 72, Frequency: 2412, Capabilities: "[WPA2-PSK-CCMP][ESS]"},
			{SSID: "NeverGonnaGiveYouIP", BSSID: "00:11:22:33:44:02", Strength: 55, Frequency: 2437, Capabilities: "[WEP][ESS]"},
			{SSID: "Unencrypted_Honeypot", BSSID: "00:11:22:33:44:03", Strength: 64, Frequency: 2462, Capabilities: "[ESS]"},
			{SSID: "Dunder MiffLAN", BSSID: "00:11:22:33:44:04", Strength: 41, Frequency: 5180, Capabilities: "[WPA-PSK-TKIP][WPA2-PSK-CCMP][ESS]"},
			{SSID: "Password is password", BSSID: "00:11:22:33:44:05", Strength: 87, Frequency: 5240, Capabilities: "[RSN-PSK-CCMP][ESS]"},
			{SSID: "TacoBoutAGoodSignal", BSSID: "00:11:22:33:44:06", Strength: 99, Frequency: 2412, Capabilities: "[WPA2-PSK-CCMP][WPS][ESS]"},
			{SSID: "Multi-AP Network", BSSID: "AA:BB:CC:DD:EE:FF", Strength: 60, Frequency: 5180, Capabilities: "[WPA2-PSK-CCMP][ESS]"},
			{SSID: "Multi-AP Network", BSSID: "11:22:33:44:55:66", Strength: 40, Frequency: 5240, Capabilities: "[WPA2-PSK-CCMP][ESS]"},
		},
		Passwords: map[string]string{
			"Password is password": "password",
			"HideYoKidsHideYoWiFi": "hidden",
			"NeverGonnaGiveYouIP":  "rickroll1",
		},
		SilentSSIDs: map[string]bool{},
		Radio:       wifi.RadioEnabled,
		IP:          "192.168.1.23",
		MAC:         "02:00:00:00:00:01",
		Gateway:     "192.168.1.1",
		ActionSleep: DefaultActionSleep,
		StepDelay:   DefaultStepDelay,
	}
	m.profiles = []mockProfile{
		{
			Profile: wifi.Profile{ID: m.allocID(), SSID: "Password is password", Security: wifi.SecurityWPA, Enabled: true,
				Auth: wifi.AuthSettings{KeyMgmt: "wpa-psk", AuthAlg: "open", PSK: "password"}},
			Secret: "password",
		},
		{
			Profile: wifi.Profile{ID: m.allocID(), SSID: "GET off my LAN", Security: wifi.SecurityWPA, Enabled: true,
				Auth: wifi.AuthSettings{KeyMgmt: "wpa-psk", AuthAlg: "open", PSK: "correct horse"}},
			Secret: "correct horse",
		},
	}
	return m
}

func (m *MockBackend) allocID() string {
	m.nextID++
	return strconv.Itoa(m.nextID)
}

func (m *MockBackend) record(format string, a ...interface{}) {
	m.mutations = append(m.mutations, fmt.Sprintf(format, a...))
}

// Mutations returns a log of every state-changing call, in order.
func (m *MockBackend) Mutations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.mutations...)
}

// StoredProfiles returns a copy of the profile store including secrets.
func (m *MockBackend) StoredProfiles() []wifi.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wifi.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Profile)
	}
	return out
}

// AddStoredProfile seeds the profile store without recording a mutation.
func (m *MockBackend) AddStoredProfile(p wifi.Profile, secret string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.allocID()
	m.profiles = append(m.profiles, mockProfile{Profile: p, Secret: secret})
	return p.ID
}

// AssociatedSSID returns the SSID the mock is currently associated with.
func (m *MockBackend) AssociatedSSID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Associated
}

// RadioPower returns the current radio state without sleeping.
func (m *MockBackend) RadioPower() wifi.RadioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Radio
}

func (m *MockBackend) SetRadioEnabled(enabled bool) error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	if m.SetRadioError != nil {
		m.mu.Unlock()
		return m.SetRadioError
	}
	m.record("SetRadioEnabled(%t)", enabled)

	if enabled {
		if m.Radio == wifi.RadioEnabled || m.Radio == wifi.RadioEnabling {
			m.mu.Unlock()
			return nil
		}
		m.Radio = wifi.RadioEnabling
		m.radioGen++
		gen := m.radioGen
		m.mu.Unlock()
		m.radioFeed.Send(wifi.RadioEvent{Kind: wifi.RadioStateChanged, State: wifi.RadioEnabling})
		go m.finishRadio(gen, true)
		return nil
	}

	if m.Radio == wifi.RadioDisabled {
		m.mu.Unlock()
		return nil
	}
	m.Radio = wifi.RadioDisabling
	m.radioGen++
	gen := m.radioGen
	dropped := m.Associated
	m.Associated = ""
	m.assocGen++
	m.mu.Unlock()

	m.radioFeed.Send(wifi.RadioEvent{Kind: wifi.RadioStateChanged, State: wifi.RadioDisabling})
	if dropped != "" {
		m.assocFeed.Send(wifi.AssociationEvent{State: wifi.StateDisconnected, SSID: dropped})
	}
	go m.finishRadio(gen, false)
	return nil
}

func (m *MockBackend) finishRadio(gen int, enabled bool) {
	time.Sleep(m.StepDelay)

	m.mu.Lock()
	if m.radioGen != gen {
		m.mu.Unlock()
		return
	}
	var next wifi.RadioState
	switch {
	case !enabled:
		next = wifi.RadioDisabled
	case m.RadioStuck:
		m.mu.Unlock()
		return
	case m.RadioBroken:
		next = wifi.RadioUnknown
	default:
		next = wifi.RadioEnabled
	}
	m.Radio = next
	m.mu.Unlock()

	m.radioFeed.Send(wifi.RadioEvent{Kind: wifi.RadioStateChanged, State: next})
}

func (m *MockBackend) RadioState() (wifi.RadioState, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RadioStateError != nil {
		return wifi.RadioUnknown, m.RadioStateError
	}
	return m.Radio, nil
}

func (m *MockBackend) RequestScan() error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	if m.RequestScanError != nil {
		m.mu.Unlock()
		return m.RequestScanError
	}
	if m.Radio != wifi.RadioEnabled {
		m.mu.Unlock()
		return wifi.ErrWirelessDisabled
	}
	m.mu.Unlock()

	go func() {
		time.Sleep(m.StepDelay)

		m.mu.Lock()
		// For mock, we can re-randomize strengths on each scan
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		results := make([]wifi.ScanResult, len(m.VisibleNetworks))
		copy(results, m.VisibleNetworks)
		if m.RandomizeStrength {
			for i := range results {
				results[i].Strength = uint8(r.Intn(70) + 30)
			}
		}
		m.scanResults = results
		m.mu.Unlock()

		m.radioFeed.Send(wifi.RadioEvent{Kind: wifi.ScanResultsAvailable})
	}()
	return nil
}

func (m *MockBackend) ScanResults() ([]wifi.ScanResult, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Radio != wifi.RadioEnabled {
		return nil, wifi.ErrWirelessDisabled
	}
	return append([]wifi.ScanResult(nil), m.scanResults...), nil
}

// CompleteScan makes the visible networks available as scan results immediately.
func (m *MockBackend) CompleteScan() {
	m.mu.Lock()
	m.scanResults = append([]wifi.ScanResult(nil), m.VisibleNetworks...)
	m.mu.Unlock()
}

func (m *MockBackend) Profiles() ([]wifi.Profile, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProfilesError != nil {
		return nil, m.ProfilesError
	}
	out := make([]wifi.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p.Profile)
	}
	return out, nil
}

func (m *MockBackend) AddProfile(p wifi.Profile) (string, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddProfileError != nil {
		return "", m.AddProfileError
	}
	if p.SSID == "" {
		return "", fmt.Errorf("profile has no ssid: %w", wifi.ErrOperationFailed)
	}
	p.ID = m.allocID()
	secret := p.Auth.PSK
	if p.Security == wifi.SecurityWEP {
		secret = p.Auth.WEPKey0
	}
	m.profiles = append(m.profiles, mockProfile{Profile: p, Secret: secret})
	m.record("AddProfile(%s)", p.SSID)
	return p.ID, nil
}

func (m *MockBackend) RemoveProfile(id string) error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveProfileError != nil {
		return m.RemoveProfileError
	}
	for i, p := range m.profiles {
		if p.ID == id {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			m.record("RemoveProfile(%s)", id)
			return nil
		}
	}
	return fmt.Errorf("cannot remove unknown profile %s: %w", id, wifi.ErrNotFound)
}

func (m *MockBackend) EnableProfile(id string, exclusive bool) error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	if m.EnableError != nil {
		m.mu.Unlock()
		return m.EnableError
	}
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("cannot enable unknown profile %s: %w", id, wifi.ErrNotFound)
	}
	if m.Radio != wifi.RadioEnabled {
		m.mu.Unlock()
		return wifi.ErrWirelessDisabled
	}
	for i := range m.profiles {
		if i == idx {
			m.profiles[i].Enabled = true
		} else if exclusive {
			m.profiles[i].Enabled = false
		}
	}
	m.record("EnableProfile(%s,%t)", id, exclusive)
	m.assocGen++
	gen := m.assocGen
	p := m.profiles[idx]
	m.mu.Unlock()

	go m.associate(gen, p)
	return nil
}

// associate walks the association state machine for a profile.
func (m *MockBackend) associate(gen int, p mockProfile) {
	step := func(ev wifi.AssociationEvent) bool {
		time.Sleep(m.StepDelay)
		m.mu.Lock()
		current := m.assocGen == gen
		if current && ev.Kind == wifi.AssociationStateChanged {
			switch ev.State {
			case wifi.StateConnected:
				m.Associated = p.SSID
			case wifi.StateConnecting, wifi.StateDisconnected, wifi.StateFailed:
				m.Associated = ""
			}
		}
		m.mu.Unlock()
		if !current {
			return false
		}
		m.assocFeed.Send(ev)
		return true
	}

	m.mu.Lock()
	silent := m.SilentSSIDs[p.SSID]
	visible := false
	for _, n := range m.VisibleNetworks {
		if n.SSID == p.SSID {
			visible = true
			break
		}
	}
	expected, checked := m.Passwords[p.SSID]
	m.mu.Unlock()

	if silent {
		return
	}
	if !step(wifi.AssociationEvent{State: wifi.StateConnecting, SSID: p.SSID}) {
		return
	}
	if !visible {
		step(wifi.AssociationEvent{State: wifi.StateFailed, SSID: p.SSID})
		return
	}
	if !step(wifi.AssociationEvent{State: wifi.StateAuthenticating, SSID: p.SSID}) {
		return
	}
	if p.Security != wifi.SecurityOpen && checked && p.Secret != expected {
		if step(wifi.AssociationEvent{Kind: wifi.CredentialRejected, SSID: p.SSID}) {
			step(wifi.AssociationEvent{State: wifi.StateDisconnected, SSID: p.SSID})
		}
		return
	}
	if !step(wifi.AssociationEvent{State: wifi.StateObtainingAddress, SSID: p.SSID}) {
		return
	}
	step(wifi.AssociationEvent{State: wifi.StateConnected, SSID: p.SSID})
}

func (m *MockBackend) DisableProfile(id string) error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	if m.DisableError != nil {
		m.mu.Unlock()
		return m.DisableError
	}
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("cannot disable unknown profile %s: %w", id, wifi.ErrNotFound)
	}
	m.profiles[idx].Enabled = false
	m.record("DisableProfile(%s)", id)
	dropped := ""
	if m.Associated == m.profiles[idx].SSID {
		dropped = m.Associated
		m.Associated = ""
		m.assocGen++
	}
	m.mu.Unlock()

	if dropped != "" {
		m.assocFeed.Send(wifi.AssociationEvent{State: wifi.StateDisconnecting, SSID: dropped})
		m.assocFeed.Send(wifi.AssociationEvent{State: wifi.StateDisconnected, SSID: dropped})
	}
	return nil
}

func (m *MockBackend) ProfileSecret(id string) (string, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOf(id); idx >= 0 {
		return m.profiles[idx].Secret, nil
	}
	return "", fmt.Errorf("no secrets for %s: %w", id, wifi.ErrNotFound)
}

func (m *MockBackend) SaveProfiles() error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveProfiles()")
	return nil
}

func (m *MockBackend) Disassociate() error {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	if m.DisassociateError != nil {
		m.mu.Unlock()
		return m.DisassociateError
	}
	m.record("Disassociate()")
	dropped := m.Associated
	m.Associated = ""
	m.assocGen++
	m.mu.Unlock()

	if dropped != "" {
		m.assocFeed.Send(wifi.AssociationEvent{State: wifi.StateDisconnecting, SSID: dropped})
		m.assocFeed.Send(wifi.AssociationEvent{State: wifi.StateDisconnected, SSID: dropped})
	}
	return nil
}

func (m *MockBackend) CurrentAssociation() (*wifi.LinkInfo, error) {
	time.Sleep(m.ActionSleep)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Associated == "" {
		return nil, nil
	}
	return &wifi.LinkInfo{
		SSID:    m.Associated,
		IP:      m.IP,
		MAC:     m.MAC,
		Gateway: m.Gateway,
	}, nil
}

func (m *MockBackend) indexOf(id string) int {
	for i, p := range m.profiles {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *MockBackend) SubscribeRadio(ch chan<- wifi.RadioEvent) (wifi.Subscription, error) {
	return m.radioFeed.Subscribe(ch), nil
}

func (m *MockBackend) SubscribeAssociation(ch chan<- wifi.AssociationEvent) (wifi.Subscription, error) {
	return m.assocFeed.Subscribe(ch), nil
}

// EmitRadio delivers a radio event to every subscriber.
func (m *MockBackend) EmitRadio(ev wifi.RadioEvent) {
	m.radioFeed.Send(ev)
}

// EmitAssociation delivers an association event to every subscriber.
func (m *MockBackend) EmitAssociation(ev wifi.AssociationEvent) {
	m.assocFeed.Send(ev)
}
