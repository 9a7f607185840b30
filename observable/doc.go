// Package observable implements a single-value observable.
//
// An [Observable] owns one value and a version counter. Every write bumps the
// version and wakes all waiting subscribers at once. A [Subscriber] remembers
// the last version it has seen; [Subscriber.Next] waits for a newer version and
// returns the latest value, skipping any intermediate values written in
// between.
//
// # Read guards
//
// [Observable.Read], [Subscriber.Read] and [Subscriber.NextRef] return a
// [ReadGuard]. While any guard is held, writers block. Guards must be released
// with [ReadGuard.Release], normally by defer. Taking a second guard from the
// same goroutine while a writer is waiting deadlocks, as with [sync.RWMutex].
//
// # Closing
//
// Closing the writer side ends the update stream: pending and future calls
// to Next return [ErrClosed]. The last value remains readable through every
// existing subscriber.
//
// # Shared handles
//
// [Shared] is a reference counted writer handle. Clones share one state; the
// state closes when the last strong handle is closed. [Weak] handles do not
// keep the state open and report [ErrGone] once it has closed.
package observable
