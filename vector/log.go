package vector

import "slices"

// diffLog is a bounded ring of published diff batches. Sequence numbers
// start at 0; head is the sequence number of the next batch.
type diffLog[T any] struct {
	ring [][]Diff[T]
	head uint64
}

func newDiffLog[T any](capacity int) *diffLog[T] {
	return &diffLog[T]{ring: make([][]Diff[T], capacity)}
}

func (l *diffLog[T]) push(diffs []Diff[T]) uint64 {
	seq := l.head
	l.ring[seq%uint64(len(l.ring))] = diffs
	l.head++
	return seq
}

// oldest returns the sequence number of the oldest retained batch.
func (l *diffLog[T]) oldest() uint64 {
	c := uint64(len(l.ring))
	if l.head <= c {
		return 0
	}
	return l.head - c
}

// since returns the diffs of every batch from cursor on, in order. lagged
// is true if some of those batches have already been overwritten.
func (l *diffLog[T]) since(cursor uint64) (diffs []Diff[T], lagged bool) {
	if cursor < l.oldest() {
		return nil, true
	}
	for seq := cursor; seq < l.head; seq++ {
		diffs = append(diffs, l.ring[seq%uint64(len(l.ring))]...)
	}
	return slices.Clip(diffs), false
}
