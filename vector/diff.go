package vector

import (
	"fmt"

	"github.com/signadot/observe/persist"
)

// Op identifies the kind of a Diff.
type Op int

const (
	OpAppend Op = iota + 1
	OpClear
	OpPushFront
	OpPushBack
	OpPopFront
	OpPopBack
	OpInsert
	OpSet
	OpRemove
	OpTruncate
	OpReset
)

var opNames = map[Op]string{
	OpAppend:    "append",
	OpClear:     "clear",
	OpPushFront: "push_front",
	OpPushBack:  "push_back",
	OpPopFront:  "pop_front",
	OpPopBack:   "pop_back",
	OpInsert:    "insert",
	OpSet:       "set",
	OpRemove:    "remove",
	OpTruncate:  "truncate",
	OpReset:     "reset",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp parses the name of an Op as returned by Op.String.
func ParseOp(s string) (Op, error) {
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown diff op %q", s)
}

// Diff describes one structural change to a sequence. Which fields are
// meaningful depends on Op:
//
//	append, reset            Values
//	push_front, push_back    Value
//	insert, set              Index, Value
//	remove                   Index
//	truncate                 Length
//	clear, pop_front, pop_back
type Diff[T any] struct {
	Op     Op
	Index  int
	Length int
	Value  T
	Values persist.Vector[T]
}

func Append[T any](vs persist.Vector[T]) Diff[T] {
	return Diff[T]{Op: OpAppend, Values: vs}
}

func Clear[T any]() Diff[T] {
	return Diff[T]{Op: OpClear}
}

func PushFront[T any](v T) Diff[T] {
	return Diff[T]{Op: OpPushFront, Value: v}
}

func PushBack[T any](v T) Diff[T] {
	return Diff[T]{Op: OpPushBack, Value: v}
}

func PopFront[T any]() Diff[T] {
	return Diff[T]{Op: OpPopFront}
}

func PopBack[T any]() Diff[T] {
	return Diff[T]{Op: OpPopBack}
}

func Insert[T any](i int, v T) Diff[T] {
	return Diff[T]{Op: OpInsert, Index: i, Value: v}
}

func Set[T any](i int, v T) Diff[T] {
	return Diff[T]{Op: OpSet, Index: i, Value: v}
}

func Remove[T any](i int) Diff[T] {
	return Diff[T]{Op: OpRemove, Index: i}
}

func Truncate[T any](n int) Diff[T] {
	return Diff[T]{Op: OpTruncate, Length: n}
}

func Reset[T any](vs persist.Vector[T]) Diff[T] {
	return Diff[T]{Op: OpReset, Values: vs}
}

func (d Diff[T]) String() string {
	switch d.Op {
	case OpAppend, OpReset:
		return fmt.Sprintf("%s(%v)", d.Op, d.Values.Values())
	case OpPushFront, OpPushBack:
		return fmt.Sprintf("%s(%v)", d.Op, d.Value)
	case OpInsert, OpSet:
		return fmt.Sprintf("%s(%d, %v)", d.Op, d.Index, d.Value)
	case OpRemove:
		return fmt.Sprintf("%s(%d)", d.Op, d.Index)
	case OpTruncate:
		return fmt.Sprintf("%s(%d)", d.Op, d.Length)
	}
	return d.Op.String()
}

// Apply returns values with d applied. It panics if d does not fit values,
// for example an index out of range or a pop on an empty sequence.
func Apply[T any](d Diff[T], values persist.Vector[T]) persist.Vector[T] {
	switch d.Op {
	case OpAppend:
		return values.Concat(d.Values)
	case OpClear:
		return persist.Vector[T]{}
	case OpPushFront:
		return values.PushFront(d.Value)
	case OpPushBack:
		return values.PushBack(d.Value)
	case OpPopFront:
		res, _, ok := values.PopFront()
		if !ok {
			panic("vector: pop_front on empty sequence")
		}
		return res
	case OpPopBack:
		res, _, ok := values.PopBack()
		if !ok {
			panic("vector: pop_back on empty sequence")
		}
		return res
	case OpInsert:
		return values.Insert(d.Index, d.Value)
	case OpSet:
		return values.Set(d.Index, d.Value)
	case OpRemove:
		res, _ := values.Remove(d.Index)
		return res
	case OpTruncate:
		if d.Length > values.Len() {
			panic(fmt.Sprintf("vector: truncate to %d beyond length %d", d.Length, values.Len()))
		}
		return values.Truncate(d.Length)
	case OpReset:
		return d.Values
	}
	panic(fmt.Sprintf("vector: unknown diff op %d", int(d.Op)))
}

// ApplyAll applies diffs in order.
func ApplyAll[T any](diffs []Diff[T], values persist.Vector[T]) persist.Vector[T] {
	for _, d := range diffs {
		values = Apply(d, values)
	}
	return values
}
