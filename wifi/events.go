package wifi

// RadioState is the power state of the wireless radio.
type RadioState int

const (
	RadioUnknown RadioState = iota
	RadioDisabling
	RadioDisabled
	RadioEnabling
	RadioEnabled
)

func (s RadioState) String() string {
	switch s {
	case RadioDisabling:
		return "disabling"
	case RadioDisabled:
		return "disabled"
	case RadioEnabling:
		return "enabling"
	case RadioEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// ConnectionState is the detailed link-layer association state.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateScanning
	StateConnecting
	StateAuthenticating
	StateObtainingAddress
	StateConnected
	StateSuspended
	StateDisconnecting
	StateDisconnected
	StateFailed
	StateBlocked
)

var connectionStateNames = map[ConnectionState]string{
	StateIdle:             "idle",
	StateScanning:         "scanning",
	StateConnecting:       "connecting",
	StateAuthenticating:   "authenticating",
	StateObtainingAddress: "obtaining-address",
	StateConnected:        "connected",
	StateSuspended:        "suspended",
	StateDisconnecting:    "disconnecting",
	StateDisconnected:     "disconnected",
	StateFailed:           "failed",
	StateBlocked:          "blocked",
}

func (s ConnectionState) String() string {
	if name, ok := connectionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// RadioEventKind identifies the kind of a RadioEvent.
type RadioEventKind int

const (
	RadioStateChanged RadioEventKind = iota
	ScanResultsAvailable
	SignalStrengthChanged
)

// RadioEvent is delivered on the radio stream.
type RadioEvent struct {
	Kind RadioEventKind
	// State is set for RadioStateChanged.
	State RadioState
	// Strength is set for SignalStrengthChanged, 0-100.
	Strength uint8
}

// AssociationEventKind identifies the kind of an AssociationEvent.
type AssociationEventKind int

const (
	AssociationStateChanged AssociationEventKind = iota
	CredentialRejected
)

// AssociationEvent is delivered on the association stream.
type AssociationEvent struct {
	Kind  AssociationEventKind
	State ConnectionState
	// SSID of the network the event refers to, if the subsystem knows it.
	SSID string
}

// Subscription is a handle to an event stream.
type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once returns ErrNotSubscribed.
	Unsubscribe() error
}
