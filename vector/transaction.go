package vector

import (
	"github.com/signadot/observe/debug"
	"github.com/signadot/observe/persist"
)

// Transaction stages mutations of an Observable. Staged changes are
// visible through the transaction but not to subscribers or other readers
// until Commit, which publishes them as one batch. Rollback discards them.
//
// A transaction holds the observable's writer lock until it is finished,
// so the usual pattern is
//
//	tx := o.Transaction()
//	defer tx.Rollback()
//	...
//	tx.Commit()
type Transaction[T any] struct {
	o      *Observable[T]
	start  persist.Vector[T]
	values persist.Vector[T]
	batch  []Diff[T]
	done   bool
}

// Transaction starts a transaction, waiting for any open one to finish.
func (o *Observable[T]) Transaction() *Transaction[T] {
	o.wmu.Lock()
	values := o.Values()
	return &Transaction[T]{o: o, start: values, values: values}
}

func (tx *Transaction[T]) stage(d Diff[T]) {
	if tx.done {
		panic("vector: use of finished transaction")
	}
	tx.values = Apply(d, tx.values)
	tx.batch = append(tx.batch, d)
}

// Commit publishes the staged diffs as one batch and finishes the
// transaction. Nothing is published if no diff was staged.
func (tx *Transaction[T]) Commit() {
	if tx.done {
		panic("vector: commit of finished transaction")
	}
	tx.done = true
	defer tx.o.wmu.Unlock()
	if len(tx.batch) == 0 {
		return
	}
	if debug.Tx() {
		debug.Logf("commit %d diffs\n", len(tx.batch))
	}
	tx.o.publish(tx.batch, tx.values)
}

// Rollback discards the staged diffs and finishes the transaction. It does
// nothing if the transaction is already finished, so it is safe to defer.
func (tx *Transaction[T]) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	if len(tx.batch) > 0 {
		tx.o.log.Debug("rollback", "diffs", len(tx.batch))
	}
	tx.batch = nil
	tx.values = tx.start
	tx.o.wmu.Unlock()
}

// Revert discards the staged diffs and keeps the transaction open.
func (tx *Transaction[T]) Revert() {
	if tx.done {
		panic("vector: use of finished transaction")
	}
	tx.batch = nil
	tx.values = tx.start
}

// Staged returns the diffs staged so far.
func (tx *Transaction[T]) Staged() []Diff[T] {
	return tx.batch
}

// Values returns the values including staged changes.
func (tx *Transaction[T]) Values() persist.Vector[T] {
	return tx.values
}

// Len returns the length including staged changes.
func (tx *Transaction[T]) Len() int {
	return tx.values.Len()
}

// Get returns the value at i including staged changes.
func (tx *Transaction[T]) Get(i int) T {
	return tx.values.Get(i)
}

// Append adds vs at the end.
func (tx *Transaction[T]) Append(vs ...T) {
	if len(vs) == 0 {
		return
	}
	tx.stage(Append(persist.FromSlice(vs)))
}

// Clear removes every value. Diffs staged earlier in the transaction are
// dropped, since the clear supersedes them.
func (tx *Transaction[T]) Clear() {
	if tx.values.IsEmpty() {
		return
	}
	tx.batch = nil
	tx.stage(Clear[T]())
}

// PushFront adds v at the front.
func (tx *Transaction[T]) PushFront(v T) {
	tx.stage(PushFront(v))
}

// PushBack adds v at the end.
func (tx *Transaction[T]) PushBack(v T) {
	tx.stage(PushBack(v))
}

// PopFront removes and returns the first value.
func (tx *Transaction[T]) PopFront() (T, bool) {
	if tx.values.IsEmpty() {
		var zero T
		return zero, false
	}
	v := tx.values.Get(0)
	tx.stage(PopFront[T]())
	return v, true
}

// PopBack removes and returns the last value.
func (tx *Transaction[T]) PopBack() (T, bool) {
	if tx.values.IsEmpty() {
		var zero T
		return zero, false
	}
	v := tx.values.Get(tx.values.Len() - 1)
	tx.stage(PopBack[T]())
	return v, true
}

// Insert inserts v before position i. It panics if i > Len.
func (tx *Transaction[T]) Insert(i int, v T) {
	tx.stage(Insert(i, v))
}

// Set replaces the value at i and returns the previous one.
func (tx *Transaction[T]) Set(i int, v T) T {
	prev := tx.values.Get(i)
	tx.stage(Set(i, v))
	return prev
}

// Remove removes and returns the value at i.
func (tx *Transaction[T]) Remove(i int) T {
	v := tx.values.Get(i)
	tx.stage(Remove[T](i))
	return v
}

// Truncate keeps the first n values. It does nothing if n >= Len.
func (tx *Transaction[T]) Truncate(n int) {
	if n >= tx.values.Len() {
		return
	}
	tx.stage(Truncate[T](max(n, 0)))
}
