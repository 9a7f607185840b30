package vector

import (
	"unicode/utf8"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Reconcile stages the edits that turn the transaction's values into
// target. Elements are matched by key: runs of equal keys are kept in
// place, and only the elements in between are removed or inserted. Kept
// elements are not replaced, so key should identify an element's whole
// content.
func Reconcile[T any, K comparable](tx *Transaction[T], target []T, key func(T) K) {
	if len(target) == 0 {
		tx.Clear()
		return
	}
	if tx.Len() == 0 {
		tx.Append(target...)
		return
	}
	keys := map[K]rune{}
	from, ok := mapKeysTo(keys, tx.Values().Values(), key)
	if !ok {
		replaceAll(tx, target)
		return
	}
	to, ok := mapKeysTo(keys, target, key)
	if !ok {
		replaceAll(tx, target)
		return
	}
	diffs := diffpatch.New().DiffMainRunes(from, to, false)
	i, ti := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffpatch.DiffDelete:
			for range n {
				tx.Remove(i)
			}
		case diffpatch.DiffEqual:
			i += n
			ti += n
		case diffpatch.DiffInsert:
			for range n {
				tx.Insert(i, target[ti])
				i++
				ti++
			}
		}
	}
}

func replaceAll[T any](tx *Transaction[T], target []T) {
	tx.Clear()
	tx.Append(target...)
}

// mapKeysTo assigns each distinct key its own rune, skipping the surrogate
// range so every rune survives the round trip through a string.
func mapKeysTo[T any, K comparable](m map[K]rune, vs []T, key func(T) K) ([]rune, bool) {
	rs := make([]rune, len(vs))
	for i, v := range vs {
		k := key(v)
		r, ok := m[k]
		if !ok {
			r = rune(len(m))
			if r >= 0xD800 {
				r += 0x800
			}
			if r > utf8.MaxRune {
				return nil, false
			}
			m[k] = r
		}
		rs[i] = r
	}
	return rs, true
}
