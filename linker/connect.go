package linker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shazow/wifilinker/wifi"
)

func (l *Linker) run(req *request) {
	accepted, err := l.link(req)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Debug("connect procedure ended", "ssid", req.ssid, "gen", req.gen, "error", err)
	}
	req.attempt.finish(accepted, err)
}

// link is the connect procedure. It returns whether the subsystem accepted the
// activation. Failures it detects itself are resolved on the request before it
// returns.
func (l *Linker) link(req *request) (bool, error) {
	logger := l.logger.With("ssid", req.ssid, "gen", req.gen)

	if err := l.waitRadio(req.ctx); err != nil {
		if req.ctx.Err() != nil {
			return false, req.ctx.Err()
		}
		logger.Warn("radio not ready", "error", err)
		l.fail(req, StatusNoRadioHardware)
		return false, err
	}
	req.radioReady.Store(true)

	existing, err := l.resolver.FindExisting(req.ssid)
	if err != nil {
		logger.Warn("failed to look up existing profile", "error", err)
		l.fail(req, StatusConnectFailed)
		return false, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	if err := req.ctx.Err(); err != nil {
		return false, err
	}

	keep := ""
	if existing != nil {
		keep = existing.ID
	}
	if err := l.disableOthers(req, keep); err != nil {
		return false, err
	}

	if existing != nil {
		return l.activateExisting(req, existing)
	}
	return l.activateNew(req)
}

// waitRadio powers the radio on and waits, bounded by RadioReadyTimeout, for it
// to leave the enabling state.
func (l *Linker) waitRadio(ctx context.Context) error {
	state, err := l.backend.RadioState()
	if err != nil {
		return fmt.Errorf("failed to read radio state: %w", err)
	}
	if state == wifi.RadioEnabled {
		return nil
	}
	if state != wifi.RadioEnabling {
		l.logger.Info("enabling radio", "state", state)
		if err := l.backend.SetRadioEnabled(true); err != nil {
			return fmt.Errorf("failed to enable radio: %w", err)
		}
	}

	deadline := time.NewTimer(l.config.RadioReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.config.RadioPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("radio still enabling after %s: %w", l.config.RadioReadyTimeout, ErrNoRadioHardware)
		case <-ticker.C:
		}

		state, err = l.backend.RadioState()
		if err != nil {
			return fmt.Errorf("failed to read radio state: %w", err)
		}
		switch state {
		case wifi.RadioEnabling:
			continue
		case wifi.RadioEnabled:
			return nil
		default:
			return fmt.Errorf("radio is %s: %w", state, ErrNoRadioHardware)
		}
	}
}

// checkCurrent returns an error once req has been superseded or shut down.
// Every step that changes the backend calls it first.
func (l *Linker) checkCurrent(req *request) error {
	if err := req.ctx.Err(); err != nil {
		return err
	}
	if !l.isCurrent(req) {
		return context.Canceled
	}
	return nil
}

// disableOthers disables every enabled stored profile except keep. It only
// fails when req stops being current.
func (l *Linker) disableOthers(req *request, keep string) error {
	if err := l.checkCurrent(req); err != nil {
		return err
	}
	profiles, err := l.backend.Profiles()
	if err != nil {
		l.logger.Warn("failed to list profiles", "error", err)
		return nil
	}
	for _, p := range profiles {
		if p.ID == keep || !p.Enabled {
			continue
		}
		if err := l.checkCurrent(req); err != nil {
			return err
		}
		if err := l.backend.DisableProfile(p.ID); err != nil {
			l.logger.Warn("failed to disable profile", "ssid", p.SSID, "id", p.ID, "gen", req.gen, "error", err)
		}
	}
	return nil
}

func (l *Linker) activateExisting(req *request, p *wifi.Profile) (bool, error) {
	logger := l.logger.With("ssid", req.ssid, "gen", req.gen, "id", p.ID)
	if err := l.checkCurrent(req); err != nil {
		return false, err
	}
	logger.Info("activating existing profile")

	if err := l.backend.EnableProfile(p.ID, true); err != nil {
		logger.Warn("failed to activate profile", "error", err)
		l.fail(req, StatusConnectFailed)
		return false, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	if req.security == wifi.SecurityOpen || req.linked.Load() {
		return true, nil
	}

	timer := time.NewTimer(l.config.ExistingProfileGrace)
	defer timer.Stop()
	select {
	case <-req.ctx.Done():
		return true, req.ctx.Err()
	case <-timer.C:
	}

	if !l.isCurrent(req) || !req.claim(outcomeFailed) {
		return true, nil
	}
	logger.Warn("existing profile did not link in time", "grace", l.config.ExistingProfileGrace)
	if err := l.backend.DisableProfile(p.ID); err != nil {
		logger.Warn("failed to disable profile", "error", err)
	}
	l.deliver(req, StatusExistingProfileTimedOut)
	return true, nil
}

type activation struct {
	accepted bool
	err      error
}

func (l *Linker) activateNew(req *request) (bool, error) {
	profile, err := l.resolver.Build(req.ssid, req.credential, req.security)
	if err != nil {
		l.logger.Warn("cannot build profile", "ssid", req.ssid, "gen", req.gen, "error", err)
		l.fail(req, StatusInvalidProfile)
		return false, err
	}

	if req.security == wifi.SecurityOpen {
		return l.addAndEnable(req, profile)
	}

	// Secured networks negotiate on their own goroutine; only the subsystem's
	// answer to the activation is waited for here.
	done := make(chan activation, 1)
	go func() {
		accepted, err := l.addAndEnable(req, profile)
		done <- activation{accepted, err}
	}()
	select {
	case a := <-done:
		return a.accepted, a.err
	case <-req.ctx.Done():
		return false, req.ctx.Err()
	}
}

func (l *Linker) addAndEnable(req *request, profile wifi.Profile) (bool, error) {
	logger := l.logger.With("ssid", req.ssid, "gen", req.gen)

	if err := l.checkCurrent(req); err != nil {
		return false, err
	}
	id, err := l.backend.AddProfile(profile)
	if err != nil {
		logger.Warn("failed to add profile", "error", err)
		l.fail(req, StatusConnectFailed)
		return false, fmt.Errorf("%w: add profile: %w", ErrConnectFailed, err)
	}
	logger.Info("added profile", "id", id, "security", profile.Security)

	if err := l.checkCurrent(req); err != nil {
		return false, err
	}
	if err := l.backend.EnableProfile(id, true); err != nil {
		logger.Warn("activation refused", "id", id, "error", err)
		l.fail(req, StatusConnectFailed)
		return false, fmt.Errorf("%w: enable profile: %w", ErrConnectFailed, err)
	}
	return true, nil
}

// radioChanged handles radio state events for the active request.
func (l *Linker) radioChanged(state wifi.RadioState) {
	req := l.current()
	if req == nil {
		l.logger.Debug("radio state changed", "state", state)
		return
	}
	logger := l.logger.With("ssid", req.ssid, "gen", req.gen, "state", state)

	switch {
	case state == wifi.RadioUnknown:
		logger.Warn("radio reported unknown state")
		l.fail(req, StatusNoRadioHardware)
	case state == wifi.RadioDisabled && req.radioReady.Load():
		logger.Warn("radio disabled during connect")
		l.fail(req, StatusNoRadioHardware)
	default:
		logger.Debug("radio state changed")
	}
}

// associationChanged drives the connect state machine.
func (l *Linker) associationChanged(ev wifi.AssociationEvent) {
	req := l.current()
	if req == nil {
		l.logger.Debug("association event without request", "state", ev.State, "ssid", ev.SSID)
		return
	}
	if ev.SSID != "" && ev.SSID != req.ssid {
		l.logger.Debug("ignoring association event for another network", "event_ssid", ev.SSID, "ssid", req.ssid)
		return
	}
	logger := l.logger.With("ssid", req.ssid, "gen", req.gen)

	if ev.Kind == wifi.CredentialRejected {
		req.linked.Store(false)
		logger.Warn("credential rejected")
		l.fail(req, StatusAuthenticationRejected)
		return
	}

	switch ev.State {
	case wifi.StateConnecting:
		req.linked.Store(false)
		logger.Info("associating")
	case wifi.StateConnected:
		if !req.claim(outcomeSucceeded) && req.outcome.Load() != outcomeSucceeded {
			logger.Warn("link came up after the request failed")
			return
		}
		if req.linked.Swap(true) {
			return
		}
		info := l.linkInfo(req.ssid)
		logger.Info("connected", "ip", info.IP)
		listener := req.listener
		l.notify.post(func() {
			listener.OnStatusChange(true, StatusConnected)
			listener.OnConnect(info)
		})
	case wifi.StateDisconnecting:
		req.linked.Store(false)
		logger.Info("disconnecting")
	case wifi.StateDisconnected:
		if req.linked.Swap(false) {
			logger.Info("link dropped")
			l.deliver(req, StatusDisconnected)
			return
		}
		logger.Debug("disconnected")
	case wifi.StateFailed:
		req.linked.Store(false)
		logger.Warn("association failed")
		l.fail(req, StatusConnectFailed)
	default:
		logger.Debug("association state changed", "state", ev.State)
	}
}

func (l *Linker) linkInfo(ssid string) wifi.LinkInfo {
	info, err := l.backend.CurrentAssociation()
	if err != nil || info == nil {
		if err != nil {
			l.logger.Warn("failed to read link info", "error", err)
		}
		return wifi.LinkInfo{SSID: ssid}
	}
	return *info
}
