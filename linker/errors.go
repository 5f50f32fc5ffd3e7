package linker

import "errors"

var (
	ErrNoRadioHardware         = errors.New("no radio hardware")
	ErrAuthenticationRejected  = errors.New("authentication rejected")
	ErrConnectFailed           = errors.New("connect failed")
	ErrExistingProfileTimedOut = errors.New("existing profile timed out")
	ErrScanRequired            = errors.New("scan required")
	ErrInvalidProfile          = errors.New("invalid profile")
)
