// Package persist provides an immutable, structurally shared sequence.
//
// A [Vector] is a size-annotated AVL tree. Every update copies only the path
// from the root to the changed position, so copying a Vector is O(1) and old
// versions remain valid and unchanged. Indexed get, set, insert and remove
// are O(log n).
package persist

import (
	"encoding/json"
	"fmt"
)

type node[T any] struct {
	left, right *node[T]
	value       T
	size        int
	height      int
}

func size[T any](n *node[T]) int {
	if n == nil {
		return 0
	}
	return n.size
}

func height[T any](n *node[T]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func mk[T any](l *node[T], v T, r *node[T]) *node[T] {
	return &node[T]{
		left:   l,
		right:  r,
		value:  v,
		size:   size(l) + size(r) + 1,
		height: 1 + max(height(l), height(r)),
	}
}

// balance builds a node from subtrees whose heights differ by at most 2.
func balance[T any](l *node[T], v T, r *node[T]) *node[T] {
	hl, hr := height(l), height(r)
	switch {
	case hl > hr+1:
		if height(l.left) >= height(l.right) {
			return mk(l.left, l.value, mk(l.right, v, r))
		}
		lr := l.right
		return mk(mk(l.left, l.value, lr.left), lr.value, mk(lr.right, v, r))
	case hr > hl+1:
		if height(r.right) >= height(r.left) {
			return mk(mk(l, v, r.left), r.value, r.right)
		}
		rl := r.left
		return mk(mk(l, v, rl.left), rl.value, mk(rl.right, r.value, r.right))
	}
	return mk(l, v, r)
}

// join builds a tree of l, v and r for subtrees of any height.
func join[T any](l *node[T], v T, r *node[T]) *node[T] {
	hl, hr := height(l), height(r)
	switch {
	case hl > hr+1:
		return balance(l.left, l.value, join(l.right, v, r))
	case hr > hl+1:
		return balance(join(l, v, r.left), r.value, r.right)
	}
	return mk(l, v, r)
}

func concat[T any](l, r *node[T]) *node[T] {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	rest, first := remove(r, 0)
	return join(l, first, rest)
}

func get[T any](n *node[T], i int) T {
	for {
		ls := size(n.left)
		switch {
		case i < ls:
			n = n.left
		case i > ls:
			i -= ls + 1
			n = n.right
		default:
			return n.value
		}
	}
}

func set[T any](n *node[T], i int, v T) *node[T] {
	ls := size(n.left)
	c := *n
	switch {
	case i < ls:
		c.left = set(n.left, i, v)
	case i > ls:
		c.right = set(n.right, i-ls-1, v)
	default:
		c.value = v
	}
	return &c
}

func insert[T any](n *node[T], i int, v T) *node[T] {
	if n == nil {
		return mk(nil, v, nil)
	}
	ls := size(n.left)
	if i <= ls {
		return balance(insert(n.left, i, v), n.value, n.right)
	}
	return balance(n.left, n.value, insert(n.right, i-ls-1, v))
}

func remove[T any](n *node[T], i int) (*node[T], T) {
	ls := size(n.left)
	switch {
	case i < ls:
		l, x := remove(n.left, i)
		return balance(l, n.value, n.right), x
	case i > ls:
		r, x := remove(n.right, i-ls-1)
		return balance(n.left, n.value, r), x
	}
	if n.left == nil {
		return n.right, n.value
	}
	if n.right == nil {
		return n.left, n.value
	}
	r, succ := remove(n.right, 0)
	return balance(n.left, succ, r), n.value
}

func take[T any](n *node[T], k int) *node[T] {
	if n == nil || k <= 0 {
		return nil
	}
	if k >= n.size {
		return n
	}
	ls := size(n.left)
	if k <= ls {
		return take(n.left, k)
	}
	return join(n.left, n.value, take(n.right, k-ls-1))
}

func drop[T any](n *node[T], k int) *node[T] {
	if n == nil || k <= 0 {
		return n
	}
	if k >= n.size {
		return nil
	}
	ls := size(n.left)
	if k <= ls {
		return join(drop(n.left, k), n.value, n.right)
	}
	return drop(n.right, k-ls-1)
}

func build[T any](vs []T) *node[T] {
	if len(vs) == 0 {
		return nil
	}
	m := len(vs) / 2
	return mk(build(vs[:m]), vs[m], build(vs[m+1:]))
}

func each[T any](n *node[T], off int, f func(int, T) bool) bool {
	if n == nil {
		return true
	}
	ls := size(n.left)
	if !each(n.left, off, f) {
		return false
	}
	if !f(off+ls, n.value) {
		return false
	}
	return each(n.right, off+ls+1, f)
}

// Vector is an immutable sequence. The zero value is an empty Vector.
// Methods that modify return a new Vector and leave the receiver unchanged.
type Vector[T any] struct {
	root *node[T]
}

// New returns a Vector holding vs.
func New[T any](vs ...T) Vector[T] {
	return FromSlice(vs)
}

// FromSlice returns a Vector holding the elements of vs.
func FromSlice[T any](vs []T) Vector[T] {
	return Vector[T]{root: build(vs)}
}

// Len returns the number of elements.
func (v Vector[T]) Len() int {
	return size(v.root)
}

// IsEmpty reports whether v has no elements.
func (v Vector[T]) IsEmpty() bool {
	return v.root == nil
}

func (v Vector[T]) check(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("persist: index %d out of range [0:%d]", i, n))
	}
}

// Get returns the element at i.
func (v Vector[T]) Get(i int) T {
	v.check(i, v.Len())
	return get(v.root, i)
}

// Set returns a Vector with the element at i replaced by x.
func (v Vector[T]) Set(i int, x T) Vector[T] {
	v.check(i, v.Len())
	return Vector[T]{root: set(v.root, i, x)}
}

// Insert returns a Vector with x inserted before position i. i may equal
// Len.
func (v Vector[T]) Insert(i int, x T) Vector[T] {
	v.check(i, v.Len()+1)
	return Vector[T]{root: insert(v.root, i, x)}
}

// Remove returns a Vector without the element at i, and that element.
func (v Vector[T]) Remove(i int) (Vector[T], T) {
	v.check(i, v.Len())
	r, x := remove(v.root, i)
	return Vector[T]{root: r}, x
}

// PushBack returns a Vector with x appended.
func (v Vector[T]) PushBack(x T) Vector[T] {
	return Vector[T]{root: insert(v.root, v.Len(), x)}
}

// PushFront returns a Vector with x prepended.
func (v Vector[T]) PushFront(x T) Vector[T] {
	return Vector[T]{root: insert(v.root, 0, x)}
}

// PopBack removes the last element. ok is false if v is empty.
func (v Vector[T]) PopBack() (rest Vector[T], x T, ok bool) {
	if v.root == nil {
		return v, x, false
	}
	r, x := remove(v.root, v.Len()-1)
	return Vector[T]{root: r}, x, true
}

// PopFront removes the first element. ok is false if v is empty.
func (v Vector[T]) PopFront() (rest Vector[T], x T, ok bool) {
	if v.root == nil {
		return v, x, false
	}
	r, x := remove(v.root, 0)
	return Vector[T]{root: r}, x, true
}

// Truncate returns the first n elements. If n >= Len, v is returned.
func (v Vector[T]) Truncate(n int) Vector[T] {
	return Vector[T]{root: take(v.root, n)}
}

// Slice returns the elements in [from, to), clamped to the bounds of v.
func (v Vector[T]) Slice(from, to int) Vector[T] {
	from = max(from, 0)
	to = min(to, v.Len())
	if from >= to {
		return Vector[T]{}
	}
	return Vector[T]{root: drop(take(v.root, to), from)}
}

// Concat returns v followed by o.
func (v Vector[T]) Concat(o Vector[T]) Vector[T] {
	return Vector[T]{root: concat(v.root, o.root)}
}

// Each calls f on every element in order until f returns false.
func (v Vector[T]) Each(f func(i int, x T) bool) {
	each(v.root, 0, f)
}

// Values returns the elements as a new slice.
func (v Vector[T]) Values() []T {
	res := make([]T, 0, v.Len())
	v.Each(func(_ int, x T) bool {
		res = append(res, x)
		return true
	})
	return res
}

// Equal reports whether a and b hold equal elements in the same order.
func Equal[T comparable](a, b Vector[T]) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.root == b.root {
		return true
	}
	bs := b.Values()
	eq := true
	a.Each(func(i int, x T) bool {
		eq = x == bs[i]
		return eq
	})
	return eq
}

func (v Vector[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Values())
}

func (v *Vector[T]) UnmarshalJSON(d []byte) error {
	var vs []T
	if err := json.Unmarshal(d, &vs); err != nil {
		return err
	}
	*v = FromSlice(vs)
	return nil
}

func (v Vector[T]) MarshalYAML() (any, error) {
	return v.Values(), nil
}
