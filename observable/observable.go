package observable

import (
	"errors"
	"hash/maphash"
	"sync"
)

var (
	// ErrClosed is returned by blocking subscriber calls once no further
	// updates can happen.
	ErrClosed = errors.New("observable closed")
	// ErrGone is returned through a weak handle after the last strong handle
	// has been closed.
	ErrGone = errors.New("observable gone")
)

// writer holds the operations common to every writer handle.
type writer[T any] struct {
	st *state[T]
}

// Get returns a copy of the current value.
func (w writer[T]) Get() T {
	return w.st.get()
}

// Read returns a guard over the current value. Writers block until the
// guard is released.
func (w writer[T]) Read() *ReadGuard[T] {
	return w.st.read()
}

// Set replaces the value, wakes all subscribers and returns the previous
// value.
func (w writer[T]) Set(v T) T {
	return w.st.set(v)
}

// SetIfNotEqualFunc sets v unless eq reports it equal to the current value.
// It returns the previous value and true on a write, or the zero value and
// false when nothing changed.
func (w writer[T]) SetIfNotEqualFunc(v T, eq func(a, b T) bool) (T, bool) {
	var prev T
	changed := w.st.mustUpdate(func(cur *T) bool {
		if eq(*cur, v) {
			return false
		}
		prev = *cur
		*cur = v
		return true
	})
	return prev, changed
}

// SetIfHashNotEqual sets v unless hash(v) equals the hash of the current
// value.
func (w writer[T]) SetIfHashNotEqual(v T, hash func(T) uint64) (T, bool) {
	return w.SetIfNotEqualFunc(v, func(a, b T) bool {
		return hash(a) == hash(b)
	})
}

// Update mutates the value in place and always notifies subscribers.
func (w writer[T]) Update(f func(*T)) {
	w.st.mustUpdate(func(cur *T) bool {
		f(cur)
		return true
	})
}

// UpdateIf mutates the value in place and notifies subscribers only if f
// returns true. Mutations made by f are kept either way.
func (w writer[T]) UpdateIf(f func(*T) bool) bool {
	return w.st.mustUpdate(f)
}

// Subscribe returns a subscriber that has already seen the current value.
func (w writer[T]) Subscribe() *Subscriber[T] {
	return w.st.subscribe(w.st.currentVersion())
}

// SubscribeReset returns a subscriber whose first Next yields the current
// value immediately.
func (w writer[T]) SubscribeReset() *Subscriber[T] {
	return w.st.subscribe(0)
}

// SubscriberCount returns the number of open subscribers.
func (w writer[T]) SubscriberCount() int {
	return int(w.st.subscribers.Load())
}

// Observable is the unique writer handle of a value.
type Observable[T any] struct {
	writer[T]
	once sync.Once
}

// New returns an observable holding v.
func New[T any](v T) *Observable[T] {
	return &Observable[T]{writer: writer[T]{st: newState(v)}}
}

// Close ends the update stream. Subscribers keep the last value.
func (o *Observable[T]) Close() {
	o.once.Do(o.st.close)
}

// Updater is implemented by every writer handle.
type Updater[T any] interface {
	UpdateIf(f func(*T) bool) bool
}

// SetIfNotEqual sets v unless it equals the current value. It returns the
// previous value and true on a write.
func SetIfNotEqual[T comparable](u Updater[T], v T) (T, bool) {
	var prev T
	changed := u.UpdateIf(func(cur *T) bool {
		if *cur == v {
			return false
		}
		prev = *cur
		*cur = v
		return true
	})
	return prev, changed
}

// HashOf returns a hash function over comparable values suitable for
// SetIfHashNotEqual. Each call uses a fresh seed.
func HashOf[T comparable]() func(T) uint64 {
	seed := maphash.MakeSeed()
	return func(v T) uint64 {
		return maphash.Comparable(seed, v)
	}
}
