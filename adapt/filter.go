package adapt

import (
	"slices"
	"sort"

	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

// filterMap keeps the sorted upstream indices of the elements that pass,
// and the upstream length.
type filterMap[T, U any] struct {
	f       func(T) (U, bool)
	indices []int
	length  int
}

// Filter derives the elements for which keep returns true.
func Filter[T any](values persist.Vector[T], up vector.Stream[T], keep func(T) bool) (persist.Vector[T], *Adapter[T, T]) {
	return filterMapNamed("filter", values, up, func(v T) (T, bool) {
		return v, keep(v)
	})
}

// FilterMap derives f(v) for the elements v for which f returns true.
func FilterMap[T, U any](values persist.Vector[T], up vector.Stream[T], f func(T) (U, bool)) (persist.Vector[U], *Adapter[T, U]) {
	return filterMapNamed("filter_map", values, up, f)
}

func filterMapNamed[T, U any](name string, values persist.Vector[T], up vector.Stream[T], f func(T) (U, bool)) (persist.Vector[U], *Adapter[T, U]) {
	fm := &filterMap[T, U]{f: f}
	return fm.reset(values), newAdapter(name, up, transformer[T, U](fm))
}

func (fm *filterMap[T, U]) reset(values persist.Vector[T]) persist.Vector[U] {
	fm.indices = fm.indices[:0]
	fm.length = values.Len()
	var res []U
	values.Each(func(i int, v T) bool {
		if u, ok := fm.f(v); ok {
			fm.indices = append(fm.indices, i)
			res = append(res, u)
		}
		return true
	})
	return persist.FromSlice(res)
}

// position returns the downstream position of upstream index i, and
// whether i is present downstream. If it is not, the position is where it
// would be inserted.
func (fm *filterMap[T, U]) position(i int) (int, bool) {
	pos := sort.SearchInts(fm.indices, i)
	return pos, pos < len(fm.indices) && fm.indices[pos] == i
}

// shift adds delta to every index at or after downstream position pos.
func (fm *filterMap[T, U]) shift(pos, delta int) {
	for k := pos; k < len(fm.indices); k++ {
		fm.indices[k] += delta
	}
}

func (fm *filterMap[T, U]) apply(d vector.Diff[T], out []vector.Diff[U]) []vector.Diff[U] {
	switch d.Op {
	case vector.OpAppend:
		var res []U
		d.Values.Each(func(k int, v T) bool {
			if u, ok := fm.f(v); ok {
				fm.indices = append(fm.indices, fm.length+k)
				res = append(res, u)
			}
			return true
		})
		fm.length += d.Values.Len()
		if len(res) > 0 {
			out = append(out, vector.Append(persist.FromSlice(res)))
		}
	case vector.OpClear:
		fm.length = 0
		if len(fm.indices) > 0 {
			fm.indices = fm.indices[:0]
			out = append(out, vector.Clear[U]())
		}
	case vector.OpPushFront:
		fm.shift(0, 1)
		fm.length++
		if u, ok := fm.f(d.Value); ok {
			fm.indices = slices.Insert(fm.indices, 0, 0)
			out = append(out, vector.PushFront(u))
		}
	case vector.OpPushBack:
		if u, ok := fm.f(d.Value); ok {
			fm.indices = append(fm.indices, fm.length)
			out = append(out, vector.PushBack(u))
		}
		fm.length++
	case vector.OpPopFront:
		fm.length--
		if len(fm.indices) > 0 && fm.indices[0] == 0 {
			fm.indices = slices.Delete(fm.indices, 0, 1)
			out = append(out, vector.PopFront[U]())
		}
		fm.shift(0, -1)
	case vector.OpPopBack:
		fm.length--
		if n := len(fm.indices); n > 0 && fm.indices[n-1] == fm.length {
			fm.indices = fm.indices[:n-1]
			out = append(out, vector.PopBack[U]())
		}
	case vector.OpInsert:
		pos, _ := fm.position(d.Index)
		fm.shift(pos, 1)
		fm.length++
		if u, ok := fm.f(d.Value); ok {
			fm.indices = slices.Insert(fm.indices, pos, d.Index)
			out = append(out, vector.Insert(pos, u))
		}
	case vector.OpSet:
		pos, present := fm.position(d.Index)
		u, ok := fm.f(d.Value)
		switch {
		case present && ok:
			out = append(out, vector.Set(pos, u))
		case present:
			fm.indices = slices.Delete(fm.indices, pos, pos+1)
			out = append(out, vector.Remove[U](pos))
		case ok:
			fm.indices = slices.Insert(fm.indices, pos, d.Index)
			out = append(out, vector.Insert(pos, u))
		}
	case vector.OpRemove:
		pos, present := fm.position(d.Index)
		if present {
			fm.indices = slices.Delete(fm.indices, pos, pos+1)
			out = append(out, vector.Remove[U](pos))
		}
		fm.shift(pos, -1)
		fm.length--
	case vector.OpTruncate:
		pos, _ := fm.position(d.Length)
		fm.length = d.Length
		if pos < len(fm.indices) {
			fm.indices = fm.indices[:pos]
			out = append(out, vector.Truncate[U](pos))
		}
	case vector.OpReset:
		out = append(out, vector.Reset(fm.reset(d.Values)))
	}
	return out
}
