package adapt

import (
	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

type windowKind int

const (
	head windowKind = iota
	tail
	skip
)

var windowNames = [...]string{head: "head", tail: "tail", skip: "skip"}

// window keeps a copy of the upstream values so that elements entering
// the window can be backfilled.
type window[T any] struct {
	kind windowKind
	n    int
	buf  persist.Vector[T]
}

// Head derives the first n elements.
func Head[T any](values persist.Vector[T], up vector.Stream[T], n int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(head, values, up, n, nil)
}

// HeadDynamic is like [Head], taking updates of n from sizes. A closed
// sizes channel keeps the last n.
func HeadDynamic[T any](values persist.Vector[T], up vector.Stream[T], n int, sizes <-chan int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(head, values, up, n, sizes)
}

// Tail derives the last n elements.
func Tail[T any](values persist.Vector[T], up vector.Stream[T], n int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(tail, values, up, n, nil)
}

// TailDynamic is like [Tail], taking updates of n from sizes.
func TailDynamic[T any](values persist.Vector[T], up vector.Stream[T], n int, sizes <-chan int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(tail, values, up, n, sizes)
}

// Skip derives all but the first n elements.
func Skip[T any](values persist.Vector[T], up vector.Stream[T], n int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(skip, values, up, n, nil)
}

// SkipDynamic is like [Skip], taking updates of n from sizes.
func SkipDynamic[T any](values persist.Vector[T], up vector.Stream[T], n int, sizes <-chan int) (persist.Vector[T], *Adapter[T, T]) {
	return newWindow(skip, values, up, n, sizes)
}

func newWindow[T any](kind windowKind, values persist.Vector[T], up vector.Stream[T], n int, sizes <-chan int) (persist.Vector[T], *Adapter[T, T]) {
	w := &window[T]{kind: kind, n: max(n, 0), buf: values}
	a := newAdapter(windowNames[kind], up, transformer[T, T](w))
	a.sizes = sizes
	return w.view(), a
}

// bounds returns the window [s, e) over an upstream of length l.
func (w *window[T]) bounds(l int) (s, e int) {
	switch w.kind {
	case head:
		return 0, min(w.n, l)
	case tail:
		return max(0, l-w.n), l
	default:
		return min(w.n, l), l
	}
}

func (w *window[T]) view() persist.Vector[T] {
	return w.buf.Slice(w.bounds(w.buf.Len()))
}

func (w *window[T]) resize(n int, out []vector.Diff[T]) []vector.Diff[T] {
	s0, e0 := w.bounds(w.buf.Len())
	w.n = max(n, 0)
	return w.splice(0, 0, 0, s0, e0, out)
}

func (w *window[T]) apply(d vector.Diff[T], out []vector.Diff[T]) []vector.Diff[T] {
	l0 := w.buf.Len()
	s0, e0 := w.bounds(l0)
	var at, del, k int
	switch d.Op {
	case vector.OpSet:
		w.buf = w.buf.Set(d.Index, d.Value)
		if d.Index >= s0 && d.Index < e0 {
			out = append(out, vector.Set(d.Index-s0, d.Value))
		}
		return out
	case vector.OpReset:
		w.buf = d.Values
		return append(out, vector.Reset(w.view()))
	case vector.OpAppend:
		at, k = l0, d.Values.Len()
	case vector.OpClear:
		del = l0
	case vector.OpPushFront:
		k = 1
	case vector.OpPushBack:
		at, k = l0, 1
	case vector.OpPopFront:
		del = 1
	case vector.OpPopBack:
		at, del = l0-1, 1
	case vector.OpInsert:
		at, k = d.Index, 1
	case vector.OpRemove:
		at, del = d.Index, 1
	case vector.OpTruncate:
		at, del = d.Length, l0-d.Length
	}
	w.buf = vector.Apply(d, w.buf)
	return w.splice(at, del, k, s0, e0, out)
}

type span struct{ lo, hi int }

// splice emits the diffs turning the old window [s0, e0) into the current
// one, after del upstream elements at at were replaced by k elements.
// Elements that stay in the window are kept; the rest are removed from
// the back, then the new ones are inserted from the front.
func (w *window[T]) splice(at, del, k, s0, e0 int, out []vector.Diff[T]) []vector.Diff[T] {
	s1, e1 := w.bounds(w.buf.Len())
	// kept old positions before and after the splice, and their shift.
	before := span{max(s0, s1), min(e0, at, e1)}
	after := span{max(s0, at+del, s1-k+del), min(e0, e1-k+del)}
	shift := k - del

	var oldKept, newKept []span
	if before.lo < before.hi {
		oldKept = append(oldKept, span{before.lo - s0, before.hi - s0})
		newKept = append(newKept, span{before.lo - s1, before.hi - s1})
	}
	if after.lo < after.hi {
		oldKept = append(oldKept, span{after.lo - s0, after.hi - s0})
		newKept = append(newKept, span{after.lo + shift - s1, after.hi + shift - s1})
	}

	cur := e0 - s0
	removed := gaps(oldKept, cur)
	for i := len(removed) - 1; i >= 0; i-- {
		out = emitRemoval(removed[i], cur, out)
		cur -= removed[i].hi - removed[i].lo
	}
	for _, g := range gaps(newKept, e1-s1) {
		out = emitInsertion(g, cur, w.buf.Slice(s1+g.lo, s1+g.hi), out)
		cur += g.hi - g.lo
	}
	return out
}

// gaps returns the complement of the ordered disjoint spans kept within
// [0, n).
func gaps(kept []span, n int) []span {
	var res []span
	p := 0
	for _, s := range kept {
		if p < s.lo {
			res = append(res, span{p, s.lo})
		}
		p = s.hi
	}
	if p < n {
		res = append(res, span{p, n})
	}
	return res
}

func emitRemoval[T any](g span, cur int, out []vector.Diff[T]) []vector.Diff[T] {
	count := g.hi - g.lo
	switch {
	case g.lo == 0 && count == cur:
		return append(out, vector.Clear[T]())
	case g.hi == cur && count == 1:
		return append(out, vector.PopBack[T]())
	case g.hi == cur:
		return append(out, vector.Truncate[T](g.lo))
	case g.lo == 0:
		for range count {
			out = append(out, vector.PopFront[T]())
		}
	default:
		for range count {
			out = append(out, vector.Remove[T](g.lo))
		}
	}
	return out
}

func emitInsertion[T any](g span, cur int, vs persist.Vector[T], out []vector.Diff[T]) []vector.Diff[T] {
	switch {
	case g.lo == cur && vs.Len() == 1:
		return append(out, vector.PushBack(vs.Get(0)))
	case g.lo == cur:
		return append(out, vector.Append(vs))
	case g.lo == 0:
		for i := vs.Len() - 1; i >= 0; i-- {
			out = append(out, vector.PushFront(vs.Get(i)))
		}
	default:
		vs.Each(func(i int, v T) bool {
			out = append(out, vector.Insert(g.lo+i, v))
			return true
		})
	}
	return out
}
