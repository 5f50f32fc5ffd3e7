package linker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shazow/wifilinker/wifi"
)

// scanCoordinator runs at most one logical scan at a time and owns the scan cache.
type scanCoordinator struct {
	backend wifi.Backend
	logger  *slog.Logger
	settle  time.Duration

	mu sync.Mutex
	// gen identifies the scan in flight; cancel is nil when there is none.
	gen    uint64
	cancel context.CancelFunc
	// ready is signalled when the backend reports results for the scan in
	// flight. It is armed only once that scan's request returned, so results
	// announced for an earlier scan are ignored.
	ready chan struct{}
	cache []wifi.ScanResult

	strength atomic.Uint32
}

func newScanCoordinator(backend wifi.Backend, settle time.Duration, logger *slog.Logger) *scanCoordinator {
	return &scanCoordinator{
		backend: backend,
		logger:  logger,
		settle:  settle,
	}
}

// start supersedes any scan in flight and begins a new one.
func (s *scanCoordinator) start(listener ScanListener) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{}, 1)

	s.mu.Lock()
	if s.cancel != nil {
		s.logger.Debug("superseding scan in flight", "gen", s.gen)
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.ready = nil
	s.mu.Unlock()

	listener.OnScanStart()
	go s.run(ctx, gen, ready, listener)
}

func (s *scanCoordinator) run(ctx context.Context, gen uint64, ready chan struct{}, listener ScanListener) {
	logger := s.logger.With("gen", gen)

	var results []wifi.ScanResult
	if err := s.backend.RequestScan(); err != nil {
		logger.Warn("scan request failed", "error", err)
	} else {
		s.mu.Lock()
		if s.gen == gen {
			s.ready = ready
		}
		s.mu.Unlock()

		timer := time.NewTimer(s.settle)
		select {
		case <-ready:
		case <-timer.C:
			logger.Debug("scan settle elapsed without results event")
		case <-ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()

		var err error
		results, err = s.backend.ScanResults()
		if err != nil {
			logger.Warn("failed to fetch scan results", "error", err)
			results = nil
		}
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.cache = results
	s.cancel()
	s.cancel = nil
	s.ready = nil
	s.mu.Unlock()

	logger.Info("scan complete", "results", len(results))
	listener.OnScanStop(append([]wifi.ScanResult(nil), results...))
}

// resultsAvailable is routed from the backend's radio stream.
func (s *scanCoordinator) resultsAvailable() {
	s.mu.Lock()
	inFlight := s.cancel != nil
	ready := s.ready
	s.mu.Unlock()

	if inFlight {
		if ready == nil {
			s.logger.Debug("ignoring scan results announced before the scan request returned")
			return
		}
		select {
		case ready <- struct{}{}:
		default:
		}
		return
	}

	// No scan in flight: someone else scanned, refresh the cache.
	results, err := s.backend.ScanResults()
	if err != nil {
		s.logger.Debug("failed to refresh scan cache", "error", err)
		return
	}
	s.mu.Lock()
	if s.cancel == nil {
		s.cache = results
	}
	s.mu.Unlock()
}

func (s *scanCoordinator) signalChanged(strength uint8) {
	s.strength.Store(uint32(strength))
	s.logger.Debug("signal strength changed", "strength", strength)
}

// results returns a copy of the cache.
func (s *scanCoordinator) results() []wifi.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wifi.ScanResult(nil), s.cache...)
}

// lookup returns the cached entry for ssid, and whether the cache holds anything at all.
func (s *scanCoordinator) lookup(ssid string) (result *wifi.ScanResult, populated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		if s.cache[i].SSID == ssid {
			r := s.cache[i]
			return &r, true
		}
	}
	return nil, len(s.cache) > 0
}

func (s *scanCoordinator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.ready = nil
}
