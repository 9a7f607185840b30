package observable

import "context"

// Subscriber observes an observable's value. A Subscriber is not safe for
// concurrent use; use Clone to hand one to another goroutine.
type Subscriber[T any] struct {
	st       *state[T]
	observed uint64
	closed   bool
}

// Get returns a copy of the latest value without waiting and without
// marking it as seen.
func (s *Subscriber[T]) Get() T {
	return s.st.get()
}

// Read returns a guard over the latest value without marking it as seen.
func (s *Subscriber[T]) Read() *ReadGuard[T] {
	return s.st.read()
}

// Next waits until the value has changed since it was last seen and
// returns the latest value. Values written in between are skipped. It
// returns ErrClosed once the writer side is closed, or ctx.Err().
func (s *Subscriber[T]) Next(ctx context.Context) (T, error) {
	g, err := s.NextRef(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer g.Release()
	return g.Value(), nil
}

// NextRef is like Next but returns a read guard instead of a copy.
func (s *Subscriber[T]) NextRef(ctx context.Context) (*ReadGuard[T], error) {
	for {
		wait := s.st.wakers.Wait()
		s.st.mu.RLock()
		version := s.st.version
		if version == 0 {
			s.st.mu.RUnlock()
			return nil, ErrClosed
		}
		if s.observed < version {
			s.observed = version
			return &ReadGuard[T]{st: s.st}, nil
		}
		s.st.mu.RUnlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// NextNow returns the latest value and marks it as seen without waiting.
func (s *Subscriber[T]) NextNow() T {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	if s.st.version != 0 {
		s.observed = s.st.version
	}
	return s.st.value
}

// Reset forgets the last seen version so the next call to Next returns
// immediately with the current value.
func (s *Subscriber[T]) Reset() {
	s.observed = 0
}

// Clone returns an independent subscriber with the same cursor.
func (s *Subscriber[T]) Clone() *Subscriber[T] {
	return s.st.subscribe(s.observed)
}

// CloneReset returns an independent subscriber that has not seen any
// value.
func (s *Subscriber[T]) CloneReset() *Subscriber[T] {
	return s.st.subscribe(0)
}

// Close releases the subscriber. It is safe to call more than once.
func (s *Subscriber[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.st.subscribers.Add(-1)
}
