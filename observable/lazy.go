package observable

import "context"

type maybe[T any] struct {
	v  T
	ok bool
}

// Lazy is an observable that starts without a value. Subscribers wait for
// the first Set.
type Lazy[T any] struct {
	o *Observable[maybe[T]]
}

// NewLazy returns an uninitialized observable.
func NewLazy[T any]() *Lazy[T] {
	return &Lazy[T]{o: New(maybe[T]{})}
}

// Get returns the current value and whether one has been set.
func (l *Lazy[T]) Get() (T, bool) {
	m := l.o.Get()
	return m.v, m.ok
}

// Set sets the value and returns the previous one, if any.
func (l *Lazy[T]) Set(v T) (T, bool) {
	prev := l.o.Set(maybe[T]{v: v, ok: true})
	return prev.v, prev.ok
}

// Subscribe returns a subscriber that has seen the current state. If the
// value is unset, the first Set will wake it.
func (l *Lazy[T]) Subscribe() *LazySubscriber[T] {
	return &LazySubscriber[T]{s: l.o.Subscribe()}
}

// SubscriberCount returns the number of open subscribers.
func (l *Lazy[T]) SubscriberCount() int {
	return l.o.SubscriberCount()
}

// Close ends the update stream.
func (l *Lazy[T]) Close() {
	l.o.Close()
}

// LazySubscriber observes a Lazy observable.
type LazySubscriber[T any] struct {
	s *Subscriber[maybe[T]]
}

// Get returns the latest value and whether one has been set.
func (s *LazySubscriber[T]) Get() (T, bool) {
	m := s.s.Get()
	return m.v, m.ok
}

// Next waits for a value newer than the last one seen. The unset state is
// never returned.
func (s *LazySubscriber[T]) Next(ctx context.Context) (T, error) {
	for {
		m, err := s.s.Next(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if m.ok {
			return m.v, nil
		}
	}
}

// Reset makes the next call to Next return the current value if one is
// set.
func (s *LazySubscriber[T]) Reset() {
	s.s.Reset()
}

// Close releases the subscriber.
func (s *LazySubscriber[T]) Close() {
	s.s.Close()
}
