package vector

import (
	"context"

	"github.com/signadot/observe/debug"
)

// Subscriber receives the diffs published by an Observable after it
// subscribed. A Subscriber is not safe for concurrent use.
//
// Diffs can be consumed one at a time with Next or grouped with NextBatch;
// both observe the same order and may be mixed. A subscriber that falls
// more than the observable's capacity behind receives a single reset
// carrying the current values instead of the diffs it missed.
type Subscriber[T any] struct {
	o       *Observable[T]
	cursor  uint64
	pending []Diff[T]
	closed  bool
}

// NextBatch returns every diff published since the last call, in order.
func (s *Subscriber[T]) NextBatch(ctx context.Context) ([]Diff[T], error) {
	if len(s.pending) > 0 {
		res := s.pending
		s.pending = nil
		return res, nil
	}
	for {
		wait := s.o.wakers.Wait()
		s.o.mu.RLock()
		diffs, lagged := s.o.hist.since(s.cursor)
		head := s.o.hist.head
		values := s.o.values
		closed := s.o.closed
		s.o.mu.RUnlock()
		if lagged {
			s.o.log.Debug("subscriber lagged", "missed", head-s.cursor, "seq", head)
			if debug.Lag() {
				debug.Logf("subscriber lagged from %d to %d\n", s.cursor, head)
			}
			s.cursor = head
			return []Diff[T]{Reset(values)}, nil
		}
		if len(diffs) > 0 {
			s.cursor = head
			return diffs, nil
		}
		if closed {
			return nil, ErrClosed
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Next returns the next diff.
func (s *Subscriber[T]) Next(ctx context.Context) (Diff[T], error) {
	if len(s.pending) == 0 {
		batch, err := s.NextBatch(ctx)
		if err != nil {
			return Diff[T]{}, err
		}
		s.pending = batch
	}
	d := s.pending[0]
	s.pending = s.pending[1:]
	return d, nil
}

// Close releases the subscriber. It is safe to call more than once.
func (s *Subscriber[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	s.o.subscribers.Add(-1)
}
