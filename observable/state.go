package observable

import (
	"sync"
	"sync/atomic"

	"github.com/signadot/observe/internal/notify"
)

// state is the versioned cell shared by writer handles and subscribers.
//
// version starts at 1 and is set to 0 when the state is closed, so a
// subscriber whose cursor is 0 always has a pending update unless the state
// is closed.
type state[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64

	wakers      notify.Set
	subscribers atomic.Int64
}

func newState[T any](v T) *state[T] {
	return &state[T]{value: v, version: 1}
}

func (s *state[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *state[T]) read() *ReadGuard[T] {
	s.mu.RLock()
	return &ReadGuard[T]{st: s}
}

func (s *state[T]) currentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// update runs f under the write lock and, if f reports a change, bumps the
// version and wakes subscribers. It returns false without calling f when
// the state is closed.
func (s *state[T]) update(f func(*T) bool) (changed, ok bool) {
	s.mu.Lock()
	if s.version == 0 {
		s.mu.Unlock()
		return false, false
	}
	changed = f(&s.value)
	if changed {
		s.version++
	}
	s.mu.Unlock()
	if changed {
		s.wakers.Notify()
	}
	return changed, true
}

func (s *state[T]) mustUpdate(f func(*T) bool) bool {
	changed, ok := s.update(f)
	if !ok {
		panic("observable: write to closed observable")
	}
	return changed
}

func (s *state[T]) set(v T) T {
	var prev T
	s.mustUpdate(func(cur *T) bool {
		prev = *cur
		*cur = v
		return true
	})
	return prev
}

func (s *state[T]) close() {
	s.mu.Lock()
	s.version = 0
	s.mu.Unlock()
	s.wakers.Close()
}

func (s *state[T]) subscribe(observed uint64) *Subscriber[T] {
	s.subscribers.Add(1)
	return &Subscriber[T]{st: s, observed: observed}
}
