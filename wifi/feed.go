package wifi

import (
	"sync"
	"sync/atomic"
)

// Feed fans events out to subscribed channels. The zero value is ready to use.
//
// Send blocks until every subscriber has taken the event or unsubscribed, so
// events reach each subscriber in the order they were sent.
type Feed[T any] struct {
	mu   sync.Mutex
	subs []*feedSub[T]
}

type feedSub[T any] struct {
	feed   *Feed[T]
	ch     chan<- T
	done   chan struct{}
	closed atomic.Bool
}

// Subscribe starts delivering events to ch.
func (f *Feed[T]) Subscribe(ch chan<- T) Subscription {
	sub := &feedSub[T]{feed: f, ch: ch, done: make(chan struct{})}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub
}

// Send delivers ev to every current subscriber.
func (f *Feed[T]) Send(ev T) {
	f.mu.Lock()
	subs := append([]*feedSub[T](nil), f.subs...)
	f.mu.Unlock()

	for _, s := range subs {
		if s.closed.Load() {
			continue
		}
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *feedSub[T]) Unsubscribe() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrNotSubscribed
	}
	close(s.done)

	f := s.feed
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, other := range f.subs {
		if other == s {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			break
		}
	}
	return nil
}
