package linker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shazow/wifilinker/wifi"
)

const eventBufferSize = 16

// associationHandler consumes the events that drive the connect state machine.
type associationHandler interface {
	radioChanged(state wifi.RadioState)
	associationChanged(ev wifi.AssociationEvent)
}

// eventRouter pumps the backend's two event streams into the scan coordinator
// and the connection state machine.
type eventRouter struct {
	logger  *slog.Logger
	scans   *scanCoordinator
	handler associationHandler

	radio    chan wifi.RadioEvent
	assoc    chan wifi.AssociationEvent
	radioSub wifi.Subscription
	assocSub wifi.Subscription

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newEventRouter(backend wifi.Backend, scans *scanCoordinator, handler associationHandler, logger *slog.Logger) (*eventRouter, error) {
	r := &eventRouter{
		logger:  logger,
		scans:   scans,
		handler: handler,
		radio:   make(chan wifi.RadioEvent, eventBufferSize),
		assoc:   make(chan wifi.AssociationEvent, eventBufferSize),
		done:    make(chan struct{}),
	}

	var err error
	r.radioSub, err = backend.SubscribeRadio(r.radio)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to radio events: %w", err)
	}
	r.assocSub, err = backend.SubscribeAssociation(r.assoc)
	if err != nil {
		r.unsubscribe("radio", r.radioSub)
		return nil, fmt.Errorf("failed to subscribe to association events: %w", err)
	}

	r.wg.Add(2)
	go r.pumpRadio()
	go r.pumpAssociation()
	return r, nil
}

func (r *eventRouter) pumpRadio() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.radio:
			r.dispatchRadio(ev)
		case <-r.done:
			return
		}
	}
}

func (r *eventRouter) pumpAssociation() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.assoc:
			r.handler.associationChanged(ev)
		case <-r.done:
			return
		}
	}
}

func (r *eventRouter) dispatchRadio(ev wifi.RadioEvent) {
	switch ev.Kind {
	case wifi.ScanResultsAvailable:
		r.scans.resultsAvailable()
	case wifi.SignalStrengthChanged:
		r.scans.signalChanged(ev.Strength)
	case wifi.RadioStateChanged:
		r.handler.radioChanged(ev.State)
	default:
		r.logger.Debug("unhandled radio event", "kind", ev.Kind)
	}
}

// close unsubscribes both streams and stops the pumps. It may be called more
// than once; the backend's complaints about repeated unsubscribes are logged.
func (r *eventRouter) close() {
	r.unsubscribe("radio", r.radioSub)
	r.unsubscribe("association", r.assocSub)
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}

func (r *eventRouter) unsubscribe(stream string, sub wifi.Subscription) {
	err := sub.Unsubscribe()
	switch {
	case err == nil:
		r.logger.Debug("unsubscribed", "stream", stream)
	case errors.Is(err, wifi.ErrNotSubscribed):
		r.logger.Debug("already unsubscribed", "stream", stream)
	default:
		r.logger.Warn("failed to unsubscribe", "stream", stream, "error", err)
	}
}
