package linker

import (
	"context"
	"sync/atomic"

	"github.com/shazow/wifilinker/wifi"
)

// Outcomes of a request. A request moves out of outcomePending exactly once.
const (
	outcomePending int32 = iota
	outcomeSucceeded
	outcomeFailed
)

// request is one Connect call. It is superseded by the next one.
type request struct {
	gen        uint64
	ssid       string
	credential string
	security   wifi.SecurityType
	listener   StatusListener

	ctx    context.Context
	cancel context.CancelFunc

	outcome atomic.Int32
	linked  atomic.Bool
	// radioReady is set once the procedure got past the radio-ready wait.
	radioReady atomic.Bool

	attempt *Attempt
}

// claim moves the request from pending to outcome. Only the first caller wins.
func (r *request) claim(outcome int32) bool {
	return r.outcome.CompareAndSwap(outcomePending, outcome)
}

// Attempt tracks the background procedure started by Connect.
type Attempt struct {
	done             chan struct{}
	accepted         bool
	alreadyConnected bool
	err              error
}

func newAttempt() *Attempt {
	return &Attempt{done: make(chan struct{})}
}

// alreadyConnectedAttempt is returned when Connect targets the current association.
func alreadyConnectedAttempt() *Attempt {
	a := newAttempt()
	a.alreadyConnected = true
	a.accepted = true
	close(a.done)
	return a
}

func (a *Attempt) finish(accepted bool, err error) {
	a.accepted = accepted
	a.err = err
	close(a.done)
}

// Done is closed when the procedure returns.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the procedure returns or ctx is done. The boolean reports
// whether the subsystem accepted the activation. It says nothing about whether
// the link came up; that is delivered to the StatusListener.
func (a *Attempt) Wait(ctx context.Context) (bool, error) {
	select {
	case <-a.done:
		return a.accepted, a.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Accepted reports the procedure's result, or false while it is still running.
func (a *Attempt) Accepted() bool {
	select {
	case <-a.done:
		return a.accepted
	default:
		return false
	}
}

// AlreadyConnected is true when Connect found the network already associated
// and did nothing.
func (a *Attempt) AlreadyConnected() bool {
	return a.alreadyConnected
}
