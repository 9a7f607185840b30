// Package notify provides the wake registry shared by observables and their
// subscribers.
//
// A waiter takes the current channel with [Set.Wait], re-checks whatever
// condition it is waiting for, and then blocks on the channel. [Set.Notify]
// closes the channel, waking every waiter at once, and installs a fresh one.
// Waiters that give up simply stop selecting on the channel; nothing is left
// behind in the registry.
package notify

import "sync"

// Set is a notify-all wake registry. The zero value is ready to use.
type Set struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

// Wait returns a channel that is closed by the next call to Notify or
// Close. After Close it returns an already closed channel.
func (s *Set) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
		if s.closed {
			close(s.ch)
		}
	}
	return s.ch
}

// Notify wakes all current waiters.
func (s *Set) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ch == nil {
		return
	}
	close(s.ch)
	s.ch = nil
}

// Close wakes all current waiters and makes every later Wait return
// immediately.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.ch != nil {
		close(s.ch)
		return
	}
	s.ch = make(chan struct{})
	close(s.ch)
}

// Closed reports whether Close has been called.
func (s *Set) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
