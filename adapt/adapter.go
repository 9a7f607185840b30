package adapt

import (
	"context"

	"github.com/signadot/observe/debug"
	"github.com/signadot/observe/vector"
)

// transformer is implemented by each adapter kind. apply appends the
// downstream diffs for one upstream diff to out.
type transformer[T, U any] interface {
	apply(d vector.Diff[T], out []vector.Diff[U]) []vector.Diff[U]
}

// resizer is implemented by the window kinds, whose size can change.
type resizer[T any] interface {
	resize(n int, out []vector.Diff[T]) []vector.Diff[T]
}

// Adapter is a diff stream derived from an upstream diff stream. An
// Adapter is not safe for concurrent use.
type Adapter[T, U any] struct {
	name    string
	up      vector.Stream[T]
	t       transformer[T, U]
	pending []vector.Diff[U]

	sizes <-chan int
}

func newAdapter[T, U any](name string, up vector.Stream[T], t transformer[T, U]) *Adapter[T, U] {
	return &Adapter[T, U]{name: name, up: up, t: t}
}

// NextBatch returns the derived diffs of the next upstream batches that
// produce any. Upstream batches that derive nothing are consumed silently.
func (a *Adapter[T, U]) NextBatch(ctx context.Context) ([]vector.Diff[U], error) {
	for len(a.pending) == 0 {
		if err := a.pull(ctx); err != nil {
			return nil, err
		}
	}
	res := a.pending
	a.pending = nil
	return res, nil
}

// Next returns the next derived diff.
func (a *Adapter[T, U]) Next(ctx context.Context) (vector.Diff[U], error) {
	if len(a.pending) == 0 {
		batch, err := a.NextBatch(ctx)
		if err != nil {
			return vector.Diff[U]{}, err
		}
		a.pending = batch
	}
	d := a.pending[0]
	a.pending = a.pending[1:]
	return d, nil
}

func (a *Adapter[T, U]) consume(batch []vector.Diff[T]) {
	start := len(a.pending)
	for _, d := range batch {
		a.pending = a.t.apply(d, a.pending)
	}
	if debug.Adapt() {
		debug.Logf("%s: %v -> %v\n", a.name, batch, a.pending[start:])
	}
}

func (a *Adapter[T, U]) resize(n int) {
	r := any(a.t).(resizer[U])
	a.pending = r.resize(n, a.pending)
	if debug.Adapt() {
		debug.Logf("%s: resize %d -> %v\n", a.name, n, a.pending)
	}
}

type fetched[T any] struct {
	batch []vector.Diff[T]
	err   error
}

func (a *Adapter[T, U]) pull(ctx context.Context) error {
	if a.sizes == nil {
		batch, err := a.up.NextBatch(ctx)
		if err != nil {
			return err
		}
		a.consume(batch)
		return nil
	}
	select {
	case n, ok := <-a.sizes:
		a.sizeUpdate(n, ok)
		return nil
	default:
	}
	// Wait for the upstream in its own goroutine so a size update can
	// interrupt it. A batch that arrives while interrupting is kept.
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	res := make(chan fetched[T], 1)
	go func() {
		batch, err := a.up.NextBatch(fctx)
		res <- fetched[T]{batch: batch, err: err}
	}()
	select {
	case f := <-res:
		if f.err != nil {
			return f.err
		}
		a.consume(f.batch)
		return nil
	case n, ok := <-a.sizes:
		cancel()
		a.sizeUpdate(n, ok)
		if f := <-res; f.err == nil {
			a.consume(f.batch)
		}
		return nil
	case <-ctx.Done():
		if f := <-res; f.err == nil {
			a.consume(f.batch)
		}
		if len(a.pending) > 0 {
			return nil
		}
		return ctx.Err()
	}
}

func (a *Adapter[T, U]) sizeUpdate(n int, ok bool) {
	if !ok {
		a.sizes = nil
		return
	}
	a.resize(n)
}
