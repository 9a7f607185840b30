package observable

import (
	"sync"
	"sync/atomic"
)

type control[T any] struct {
	st     *state[T]
	strong atomic.Int64
	weak   atomic.Int64
}

// Shared is a strong, reference counted writer handle. Every clone writes
// to the same state; the state closes when the last strong handle is
// closed. A Shared handle must not be used after Close.
type Shared[T any] struct {
	writer[T]
	c    *control[T]
	once sync.Once
}

// NewShared returns a shared observable holding v.
func NewShared[T any](v T) *Shared[T] {
	c := &control[T]{st: newState(v)}
	c.strong.Store(1)
	return &Shared[T]{writer: writer[T]{st: c.st}, c: c}
}

// acquire adds a strong reference unless none is left.
func (c *control[T]) acquire() bool {
	for {
		n := c.strong.Load()
		if n == 0 {
			return false
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Clone returns another strong handle to the same state. It panics if
// every strong handle has been closed.
func (h *Shared[T]) Clone() *Shared[T] {
	if !h.c.acquire() {
		panic("observable: clone of closed shared handle")
	}
	return &Shared[T]{writer: h.writer, c: h.c}
}

// Downgrade returns a weak handle to the same state.
func (h *Shared[T]) Downgrade() *Weak[T] {
	h.c.weak.Add(1)
	return &Weak[T]{c: h.c}
}

// Close releases this handle. Closing the last strong handle closes the
// state.
func (h *Shared[T]) Close() {
	h.once.Do(func() {
		if h.c.strong.Add(-1) == 0 {
			h.c.st.close()
		}
	})
}

// StrongCount returns the number of open strong handles.
func (h *Shared[T]) StrongCount() int {
	return int(h.c.strong.Load())
}

// WeakCount returns the number of open weak handles.
func (h *Shared[T]) WeakCount() int {
	return int(h.c.weak.Load())
}

// ObservableCount returns the number of open handles, strong and weak.
func (h *Shared[T]) ObservableCount() int {
	return h.StrongCount() + h.WeakCount()
}

// Weak is a handle that does not keep the shared state open.
type Weak[T any] struct {
	c    *control[T]
	once sync.Once
}

// Upgrade returns a new strong handle, or ErrGone if every strong handle
// has already been closed.
func (w *Weak[T]) Upgrade() (*Shared[T], error) {
	if !w.c.acquire() {
		return nil, ErrGone
	}
	return &Shared[T]{writer: writer[T]{st: w.c.st}, c: w.c}, nil
}

// Get returns the current value, or ErrGone.
func (w *Weak[T]) Get() (T, error) {
	h, err := w.Upgrade()
	if err != nil {
		var zero T
		return zero, err
	}
	defer h.Close()
	return h.Get(), nil
}

// Set replaces the value through a temporary strong handle, or returns
// ErrGone.
func (w *Weak[T]) Set(v T) (T, error) {
	h, err := w.Upgrade()
	if err != nil {
		var zero T
		return zero, err
	}
	defer h.Close()
	return h.Set(v), nil
}

// Subscribe subscribes through a temporary strong handle, or returns
// ErrGone.
func (w *Weak[T]) Subscribe() (*Subscriber[T], error) {
	h, err := w.Upgrade()
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.Subscribe(), nil
}

// Close releases the weak handle.
func (w *Weak[T]) Close() {
	w.once.Do(func() {
		w.c.weak.Add(-1)
	})
}
