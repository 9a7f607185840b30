package observable

// ReadGuard holds shared read access to an observable's value. A waiting
// writer blocks new readers, so do not call Get or Read on the same
// observable while holding a guard.
type ReadGuard[T any] struct {
	st       *state[T]
	released bool
}

// Value returns the guarded value.
func (g *ReadGuard[T]) Value() T {
	if g.released {
		panic("observable: read through released guard")
	}
	return g.st.value
}

// Release gives up read access. Calling it more than once is a no-op.
func (g *ReadGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.st.mu.RUnlock()
}
