package linker

import (
	"fmt"
	"time"
)

// Config holds the timing and validation knobs of a Linker.
type Config struct {
	// RadioReadyTimeout bounds the wait for the radio to leave the enabling state.
	RadioReadyTimeout time.Duration
	// RadioPollInterval is how often the radio state is polled during that wait.
	RadioPollInterval time.Duration
	// ExistingProfileGrace is how long an existing secured profile has to link
	// before the attempt is abandoned.
	ExistingProfileGrace time.Duration
	// ScanSettle bounds the wait for scan results after a scan is requested.
	ScanSettle time.Duration
	// MinPassphraseLength is the shortest WPA passphrase accepted when building a profile.
	MinPassphraseLength int
}

// DefaultConfig returns the baseline timings.
func DefaultConfig() Config {
	return Config{
		RadioReadyTimeout:    10 * time.Second,
		RadioPollInterval:    100 * time.Millisecond,
		ExistingProfileGrace: 5000 * time.Millisecond,
		ScanSettle:           1 * time.Second,
		MinPassphraseLength:  1,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.RadioReadyTimeout <= 0:
		return fmt.Errorf("radio ready timeout must be positive, got %s", c.RadioReadyTimeout)
	case c.RadioPollInterval <= 0:
		return fmt.Errorf("radio poll interval must be positive, got %s", c.RadioPollInterval)
	case c.ExistingProfileGrace <= 0:
		return fmt.Errorf("existing profile grace must be positive, got %s", c.ExistingProfileGrace)
	case c.ScanSettle <= 0:
		return fmt.Errorf("scan settle must be positive, got %s", c.ScanSettle)
	case c.MinPassphraseLength < 1 || c.MinPassphraseLength > maxPassphraseLength:
		return fmt.Errorf("min passphrase length must be between 1 and %d, got %d", maxPassphraseLength, c.MinPassphraseLength)
	}
	return nil
}
