// Package linker joins wireless networks: it scans, picks the security scheme,
// reuses or creates a profile, activates it and reconciles the subsystem's
// asynchronous radio and association events into a single outcome per request.
package linker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shazow/wifilinker/wifi"
)

// Linker orchestrates scans and connection attempts against a wifi.Backend.
type Linker struct {
	backend  wifi.Backend
	config   Config
	logger   *slog.Logger
	resolver *ProfileResolver
	scans    *scanCoordinator
	notify   *notifier
	router   *eventRouter

	mu       sync.Mutex
	gen      uint64
	active   *request
	lastSSID string
}

// New subscribes to the backend's event streams. Call Shutdown to release them.
func New(backend wifi.Backend, config Config, logger *slog.Logger) (*Linker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l := &Linker{
		backend:  backend,
		config:   config,
		logger:   logger,
		resolver: NewProfileResolver(backend, config.MinPassphraseLength),
		scans:    newScanCoordinator(backend, config.ScanSettle, logger),
		notify:   newNotifier(),
	}

	router, err := newEventRouter(backend, l.scans, l, logger)
	if err != nil {
		l.notify.close()
		return nil, err
	}
	l.router = router
	return l, nil
}

// Scan starts a scan, superseding any scan already in flight. A nil listener
// logs instead.
func (l *Linker) Scan(listener ScanListener) {
	if listener == nil {
		listener = logListener{l.logger}
	}
	l.scans.start(listener)
}

// ScanResults returns the results of the last completed scan.
func (l *Linker) ScanResults() []wifi.ScanResult {
	return l.scans.results()
}

// SignalStrength returns the last signal strength reported for the current link.
func (l *Linker) SignalStrength() uint8 {
	return uint8(l.scans.strength.Load())
}

// Profiles lists the stored profiles.
func (l *Linker) Profiles() ([]wifi.Profile, error) {
	return l.backend.Profiles()
}

// Connect starts joining ssid in the background and returns immediately.
//
// If security is wifi.SecurityUnknown it is derived from the last scan, and
// Connect fails with ErrScanRequired when no scan has produced results. A network
// missing from a populated scan cache is treated as open. Connecting to the
// network that is already associated does nothing and returns an Attempt whose
// AlreadyConnected is true.
//
// The outcome is delivered to listener; a nil listener logs instead. Once the
// link is up, a drop is reported as StatusDisconnected and a reassociation as
// StatusConnected. A disconnect seen before the link ever came up is not
// reported, since the failure that caused it already resolved the request.
// A superseded request stops touching the backend and reports nothing more.
func (l *Linker) Connect(ssid, credential string, security wifi.SecurityType, listener StatusListener) (*Attempt, error) {
	if listener == nil {
		listener = logListener{l.logger}
	}
	logger := l.logger.With("ssid", ssid)

	if security == wifi.SecurityUnknown {
		result, populated := l.scans.lookup(ssid)
		switch {
		case !populated:
			logger.Warn("cannot derive security without scan results")
			l.notify.post(func() {
				listener.OnStatusChange(false, StatusScanRequired)
			})
			return nil, fmt.Errorf("connect to %q: %w", ssid, ErrScanRequired)
		case result == nil:
			logger.Info("network not in scan results, assuming open")
			security = wifi.SecurityOpen
		default:
			security = result.Security()
		}
	}

	info, err := l.backend.CurrentAssociation()
	if err != nil {
		logger.Warn("failed to read current association", "error", err)
	} else if info != nil && info.SSID == ssid {
		logger.Info("already connected, nothing to do")
		return alreadyConnectedAttempt(), nil
	}

	req := l.supersede(ssid, credential, security, listener)
	logger.Info("connecting", "security", security, "gen", req.gen)
	go l.run(req)
	return req.attempt, nil
}

// supersede makes a new request the active one and cancels the previous.
func (l *Linker) supersede(ssid, credential string, security wifi.SecurityType, listener StatusListener) *request {
	ctx, cancel := context.WithCancel(context.Background())

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		l.logger.Debug("superseding request", "ssid", l.active.ssid, "gen", l.active.gen)
		l.active.cancel()
	}
	l.gen++
	req := &request{
		gen:        l.gen,
		ssid:       ssid,
		credential: credential,
		security:   security,
		listener:   listener,
		ctx:        ctx,
		cancel:     cancel,
		attempt:    newAttempt(),
	}
	l.active = req
	l.lastSSID = ssid
	return req
}

// current returns the active request, or nil.
func (l *Linker) current() *request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Linker) isCurrent(req *request) bool {
	return l.current() == req
}

// fail resolves req with a failure status if it is still current and pending.
func (l *Linker) fail(req *request, status Status) bool {
	if !l.isCurrent(req) {
		l.logger.Debug("dropping outcome of stale request", "ssid", req.ssid, "gen", req.gen, "status", status)
		return false
	}
	if !req.claim(outcomeFailed) {
		return false
	}
	l.deliver(req, status)
	return true
}

func (l *Linker) deliver(req *request, status Status) {
	listener := req.listener
	l.notify.post(func() {
		listener.OnStatusChange(status.Success(), status)
	})
}

// Disconnect forgets the last requested network, disables every stored
// profile, drops the association and powers the radio down. It does nothing
// when no stored profile matches and nothing is associated.
func (l *Linker) Disconnect() error {
	l.mu.Lock()
	ssid := l.lastSSID
	req := l.active
	l.mu.Unlock()

	profiles, err := l.backend.Profiles()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	var target *wifi.Profile
	if ssid != "" {
		for i := range profiles {
			if profiles[i].SSID == ssid {
				target = &profiles[i]
				break
			}
		}
	}

	info, err := l.backend.CurrentAssociation()
	if err != nil {
		l.logger.Warn("failed to read current association", "error", err)
	}
	if target == nil && info == nil && err == nil {
		l.logger.Debug("nothing to disconnect")
		return nil
	}

	if req != nil {
		// The radio going down from here on is expected.
		req.radioReady.Store(false)
		req.cancel()
	}

	var errs []error
	if target != nil {
		l.logger.Info("forgetting profile", "ssid", target.SSID, "id", target.ID)
		if err := l.backend.RemoveProfile(target.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove profile %s: %w", target.ID, err))
		} else if err := l.backend.SaveProfiles(); err != nil {
			errs = append(errs, fmt.Errorf("save profiles: %w", err))
		}
	}
	for _, p := range profiles {
		if !p.Enabled || (target != nil && p.ID == target.ID) {
			continue
		}
		if err := l.backend.DisableProfile(p.ID); err != nil {
			errs = append(errs, fmt.Errorf("disable profile %s: %w", p.ID, err))
		}
	}
	if err := l.backend.Disassociate(); err != nil {
		errs = append(errs, fmt.Errorf("disassociate: %w", err))
	}
	if err := l.backend.SetRadioEnabled(false); err != nil {
		errs = append(errs, fmt.Errorf("disable radio: %w", err))
	}

	err = errors.Join(errs...)
	if err != nil {
		l.logger.Warn("disconnect incomplete", "error", err)
	}
	return err
}

// Shutdown cancels the active request and any scan in flight and unsubscribes
// from the backend. It is safe to call more than once.
func (l *Linker) Shutdown() {
	l.mu.Lock()
	if l.active != nil {
		l.active.cancel()
		l.active = nil
	}
	l.mu.Unlock()

	l.scans.stop()
	l.router.close()
	l.notify.close()
}
