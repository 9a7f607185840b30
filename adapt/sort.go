package adapt

import (
	"cmp"
	"slices"
	"sort"

	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

type entry[T any] struct {
	idx int
	v   T
}

// sorter keeps the upstream entries in output order. Entries that compare
// equal are ordered by upstream index.
type sorter[T any] struct {
	compare func(a, b T) int
	entries []entry[T]
	length  int
}

// Sort derives the values in ascending order.
func Sort[T cmp.Ordered](values persist.Vector[T], up vector.Stream[T]) (persist.Vector[T], *Adapter[T, T]) {
	return sortNamed("sort", values, up, cmp.Compare[T])
}

// SortBy derives the values ordered by compare, which returns a negative
// number when a sorts before b, a positive one when after, and 0 when the
// two are equivalent.
func SortBy[T any](values persist.Vector[T], up vector.Stream[T], compare func(a, b T) int) (persist.Vector[T], *Adapter[T, T]) {
	return sortNamed("sort_by", values, up, compare)
}

// SortByKey derives the values ordered by key.
func SortByKey[T any, K cmp.Ordered](values persist.Vector[T], up vector.Stream[T], key func(T) K) (persist.Vector[T], *Adapter[T, T]) {
	return sortNamed("sort_by_key", values, up, func(a, b T) int {
		return cmp.Compare(key(a), key(b))
	})
}

func sortNamed[T any](name string, values persist.Vector[T], up vector.Stream[T], compare func(a, b T) int) (persist.Vector[T], *Adapter[T, T]) {
	s := &sorter[T]{compare: compare}
	return s.reset(values), newAdapter(name, up, transformer[T, T](s))
}

func (s *sorter[T]) cmpEntry(a, b entry[T]) int {
	if c := s.compare(a.v, b.v); c != 0 {
		return c
	}
	return cmp.Compare(a.idx, b.idx)
}

func (s *sorter[T]) reset(values persist.Vector[T]) persist.Vector[T] {
	s.length = values.Len()
	s.entries = s.entries[:0]
	values.Each(func(i int, v T) bool {
		s.entries = append(s.entries, entry[T]{idx: i, v: v})
		return true
	})
	slices.SortFunc(s.entries, s.cmpEntry)
	return s.values()
}

func (s *sorter[T]) values() persist.Vector[T] {
	vs := make([]T, len(s.entries))
	for i, e := range s.entries {
		vs[i] = e.v
	}
	return persist.FromSlice(vs)
}

// rank returns the output position of e among the current entries.
func (s *sorter[T]) rank(e entry[T]) int {
	return sort.Search(len(s.entries), func(k int) bool {
		return s.cmpEntry(s.entries[k], e) >= 0
	})
}

// find returns the output position of upstream index i.
func (s *sorter[T]) find(i int) int {
	for p, e := range s.entries {
		if e.idx == i {
			return p
		}
	}
	panic("adapt: sorted index out of sync")
}

// shift adds delta to every upstream index at or after from.
func (s *sorter[T]) shift(from, delta int) {
	for k := range s.entries {
		if s.entries[k].idx >= from {
			s.entries[k].idx += delta
		}
	}
}

func (s *sorter[T]) insert(e entry[T], out []vector.Diff[T]) []vector.Diff[T] {
	p := s.rank(e)
	out = insertAt(p, len(s.entries), e.v, out)
	s.entries = slices.Insert(s.entries, p, e)
	return out
}

func (s *sorter[T]) removeAt(p int, out []vector.Diff[T]) []vector.Diff[T] {
	out = removeAt[T](p, len(s.entries), out)
	s.entries = slices.Delete(s.entries, p, p+1)
	return out
}

func (s *sorter[T]) apply(d vector.Diff[T], out []vector.Diff[T]) []vector.Diff[T] {
	switch d.Op {
	case vector.OpAppend:
		d.Values.Each(func(k int, v T) bool {
			out = s.insert(entry[T]{idx: s.length + k, v: v}, out)
			return true
		})
		s.length += d.Values.Len()
	case vector.OpClear:
		s.length = 0
		if len(s.entries) > 0 {
			s.entries = s.entries[:0]
			out = append(out, vector.Clear[T]())
		}
	case vector.OpPushFront:
		s.shift(0, 1)
		s.length++
		out = s.insert(entry[T]{idx: 0, v: d.Value}, out)
	case vector.OpPushBack:
		out = s.insert(entry[T]{idx: s.length, v: d.Value}, out)
		s.length++
	case vector.OpPopFront:
		out = s.removeAt(s.find(0), out)
		s.shift(0, -1)
		s.length--
	case vector.OpPopBack:
		s.length--
		out = s.removeAt(s.find(s.length), out)
	case vector.OpInsert:
		s.shift(d.Index, 1)
		s.length++
		out = s.insert(entry[T]{idx: d.Index, v: d.Value}, out)
	case vector.OpSet:
		p := s.find(d.Index)
		e := entry[T]{idx: d.Index, v: d.Value}
		s.entries = slices.Delete(s.entries, p, p+1)
		if q := s.rank(e); q == p {
			s.entries = slices.Insert(s.entries, p, e)
			out = append(out, vector.Set(p, e.v))
		} else {
			out = removeAt[T](p, len(s.entries)+1, out)
			out = s.insert(e, out)
		}
	case vector.OpRemove:
		out = s.removeAt(s.find(d.Index), out)
		s.shift(d.Index, -1)
		s.length--
	case vector.OpTruncate:
		out = s.truncate(d.Length, out)
	case vector.OpReset:
		out = append(out, vector.Reset(s.reset(d.Values)))
	}
	return out
}

// truncate drops the entries whose upstream index is n or more.
func (s *sorter[T]) truncate(n int, out []vector.Diff[T]) []vector.Diff[T] {
	s.length = n
	var drop []int
	for p, e := range s.entries {
		if e.idx >= n {
			drop = append(drop, p)
		}
	}
	cur := len(s.entries)
	switch {
	case len(drop) == 0:
		return out
	case len(drop) == cur:
		s.entries = s.entries[:0]
		return append(out, vector.Clear[T]())
	case drop[0] == cur-len(drop):
		s.entries = s.entries[:drop[0]]
		if len(drop) == 1 {
			return append(out, vector.PopBack[T]())
		}
		return append(out, vector.Truncate[T](drop[0]))
	}
	for i := len(drop) - 1; i >= 0; i-- {
		out = s.removeAt(drop[i], out)
	}
	return out
}

func insertAt[T any](p, cur int, v T, out []vector.Diff[T]) []vector.Diff[T] {
	switch p {
	case 0:
		return append(out, vector.PushFront(v))
	case cur:
		return append(out, vector.PushBack(v))
	}
	return append(out, vector.Insert(p, v))
}

func removeAt[T any](p, cur int, out []vector.Diff[T]) []vector.Diff[T] {
	switch p {
	case 0:
		return append(out, vector.PopFront[T]())
	case cur - 1:
		return append(out, vector.PopBack[T]())
	}
	return append(out, vector.Remove[T](p))
}
