package linker

import "fmt"

// Status is the code delivered to a StatusListener.
type Status int

const (
	StatusConnected    Status = 1
	StatusDisconnected Status = 2

	StatusNoRadioHardware         Status = -1
	StatusConnectFailed           Status = -2
	StatusExistingProfileTimedOut Status = -3
	StatusAuthenticationRejected  Status = -11
	StatusScanRequired            Status = -20
	StatusInvalidProfile          Status = -21
)

var statusNames = map[Status]string{
	StatusConnected:               "connected",
	StatusDisconnected:            "disconnected",
	StatusNoRadioHardware:         "no radio hardware",
	StatusConnectFailed:           "connect failed",
	StatusExistingProfileTimedOut: "existing profile timed out",
	StatusAuthenticationRejected:  "authentication rejected",
	StatusScanRequired:            "scan required",
	StatusInvalidProfile:          "invalid profile",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Success reports whether the status is delivered with success=true.
func (s Status) Success() bool {
	return s > 0
}

// Err maps a failure status to its sentinel error. It returns nil for
// StatusConnected and StatusDisconnected.
func (s Status) Err() error {
	switch s {
	case StatusNoRadioHardware:
		return ErrNoRadioHardware
	case StatusConnectFailed:
		return ErrConnectFailed
	case StatusExistingProfileTimedOut:
		return ErrExistingProfileTimedOut
	case StatusAuthenticationRejected:
		return ErrAuthenticationRejected
	case StatusScanRequired:
		return ErrScanRequired
	case StatusInvalidProfile:
		return ErrInvalidProfile
	case StatusConnected, StatusDisconnected:
		return nil
	}
	return fmt.Errorf("%s: %w", s, ErrConnectFailed)
}
