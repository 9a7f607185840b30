package vector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/signadot/observe/debug"
	"github.com/signadot/observe/internal/notify"
	"github.com/signadot/observe/observable"
	"github.com/signadot/observe/persist"
)

// ErrClosed is returned by NextBatch and Next once the observable is closed
// and every published diff has been delivered.
var ErrClosed = observable.ErrClosed

// Stream is a source of diff batches. NextBatch blocks until at least one
// diff is available. If ctx is done first it returns ctx.Err() and consumes
// nothing. Once the source has ended it returns ErrClosed.
type Stream[T any] interface {
	NextBatch(ctx context.Context) ([]Diff[T], error)
}

// Observable is a sequence that broadcasts every change as diffs.
//
// Mutations are serialized by a writer lock, which a Transaction holds for
// its whole lifetime. Reads never wait for the writer lock.
type Observable[T any] struct {
	wmu sync.Mutex

	mu     sync.RWMutex
	values persist.Vector[T]
	hist   *diffLog[T]
	closed bool

	wakers      notify.Set
	subscribers atomic.Int64
	log         *slog.Logger
}

// New returns an empty observable sequence.
func New[T any](opts ...Option) *Observable[T] {
	return NewFrom(persist.Vector[T]{}, opts...)
}

// NewFrom returns an observable sequence holding values.
func NewFrom[T any](values persist.Vector[T], opts ...Option) *Observable[T] {
	o := makeOptions(opts)
	return &Observable[T]{
		values: values,
		hist:   newDiffLog[T](o.capacity),
		log:    o.log,
	}
}

// Values returns the committed values.
func (o *Observable[T]) Values() persist.Vector[T] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.values
}

// Len returns the number of committed values.
func (o *Observable[T]) Len() int {
	return o.Values().Len()
}

// Get returns the committed value at i.
func (o *Observable[T]) Get(i int) T {
	return o.Values().Get(i)
}

// Subscribe returns the current values together with a subscriber that
// receives every later change.
func (o *Observable[T]) Subscribe() (persist.Vector[T], *Subscriber[T]) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	o.subscribers.Add(1)
	return o.values, &Subscriber[T]{o: o, cursor: o.hist.head}
}

// SubscriberCount returns the number of open subscribers.
func (o *Observable[T]) SubscriberCount() int {
	return int(o.subscribers.Load())
}

// Close ends the diff stream. It waits for an open transaction to finish.
// Subscribers still receive every diff published before Close.
func (o *Observable[T]) Close() {
	o.wmu.Lock()
	defer o.wmu.Unlock()
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()
	o.wakers.Close()
}

// publish makes values current and broadcasts diffs as one batch. The
// caller holds wmu.
func (o *Observable[T]) publish(diffs []Diff[T], values persist.Vector[T]) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		panic("vector: write to closed observable")
	}
	o.values = values
	seq := o.hist.push(diffs)
	o.mu.Unlock()
	o.wakers.Notify()
	o.log.Debug("broadcast", "seq", seq, "diffs", len(diffs))
	if debug.Broadcast() {
		debug.Logf("broadcast seq %d: %v\n", seq, diffs)
	}
}

// write runs f in a single-mutation transaction.
func (o *Observable[T]) write(f func(tx *Transaction[T])) {
	tx := o.Transaction()
	defer tx.Rollback()
	f(tx)
	tx.Commit()
}

// Append adds vs at the end.
func (o *Observable[T]) Append(vs ...T) {
	o.write(func(tx *Transaction[T]) { tx.Append(vs...) })
}

// Clear removes every value.
func (o *Observable[T]) Clear() {
	o.write(func(tx *Transaction[T]) { tx.Clear() })
}

// PushFront adds v at the front.
func (o *Observable[T]) PushFront(v T) {
	o.write(func(tx *Transaction[T]) { tx.PushFront(v) })
}

// PushBack adds v at the end.
func (o *Observable[T]) PushBack(v T) {
	o.write(func(tx *Transaction[T]) { tx.PushBack(v) })
}

// PopFront removes and returns the first value.
func (o *Observable[T]) PopFront() (v T, ok bool) {
	o.write(func(tx *Transaction[T]) { v, ok = tx.PopFront() })
	return v, ok
}

// PopBack removes and returns the last value.
func (o *Observable[T]) PopBack() (v T, ok bool) {
	o.write(func(tx *Transaction[T]) { v, ok = tx.PopBack() })
	return v, ok
}

// Insert inserts v before position i. It panics if i > Len.
func (o *Observable[T]) Insert(i int, v T) {
	o.write(func(tx *Transaction[T]) { tx.Insert(i, v) })
}

// Set replaces the value at i and returns the previous one.
func (o *Observable[T]) Set(i int, v T) (prev T) {
	o.write(func(tx *Transaction[T]) { prev = tx.Set(i, v) })
	return prev
}

// Remove removes and returns the value at i.
func (o *Observable[T]) Remove(i int) (v T) {
	o.write(func(tx *Transaction[T]) { v = tx.Remove(i) })
	return v
}

// Truncate keeps the first n values. It does nothing if n >= Len.
func (o *Observable[T]) Truncate(n int) {
	o.write(func(tx *Transaction[T]) { tx.Truncate(n) })
}
