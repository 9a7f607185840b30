// Package jsondiff renders collection diffs as RFC 6902 JSON Patch
// operations against a JSON array, and applies them to documents.
package jsondiff

import (
	"encoding/json"
	"fmt"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/signadot/observe/debug"
	"github.com/signadot/observe/vector"
)

// Operation is one JSON Patch operation.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Encoder turns diffs into operations on the array at a JSON pointer. It
// tracks the array length, so it must see every diff in order.
type Encoder[T any] struct {
	pointer string
	length  int
}

// NewEncoder returns an Encoder for the array at pointer, which currently
// has length elements. The empty pointer is the whole document.
func NewEncoder[T any](pointer string, length int) *Encoder[T] {
	return &Encoder[T]{pointer: pointer, length: length}
}

// Len returns the array length after the diffs encoded so far.
func (e *Encoder[T]) Len() int {
	return e.length
}

func (e *Encoder[T]) path(i int) string {
	return e.pointer + "/" + strconv.Itoa(i)
}

func (e *Encoder[T]) add(ops []Operation, path string, v T) ([]Operation, error) {
	d, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value at %s: %w", path, err)
	}
	return append(ops, Operation{Op: "add", Path: path, Value: d}), nil
}

func (e *Encoder[T]) removeFrom(ops []Operation, n int) []Operation {
	for i := e.length - 1; i >= n; i-- {
		ops = append(ops, Operation{Op: "remove", Path: e.path(i)})
	}
	e.length = n
	return ops
}

// Encode returns the operations equivalent to diffs.
func (e *Encoder[T]) Encode(diffs ...vector.Diff[T]) ([]Operation, error) {
	var (
		ops []Operation
		err error
	)
	for _, d := range diffs {
		switch d.Op {
		case vector.OpAppend:
			d.Values.Each(func(_ int, v T) bool {
				ops, err = e.add(ops, e.pointer+"/-", v)
				return err == nil
			})
			e.length += d.Values.Len()
		case vector.OpClear:
			ops = e.removeFrom(ops, 0)
		case vector.OpPushFront:
			ops, err = e.add(ops, e.path(0), d.Value)
			e.length++
		case vector.OpPushBack:
			ops, err = e.add(ops, e.pointer+"/-", d.Value)
			e.length++
		case vector.OpPopFront:
			ops = append(ops, Operation{Op: "remove", Path: e.path(0)})
			e.length--
		case vector.OpPopBack:
			e.length--
			ops = append(ops, Operation{Op: "remove", Path: e.path(e.length)})
		case vector.OpInsert:
			ops, err = e.add(ops, e.path(d.Index), d.Value)
			e.length++
		case vector.OpSet:
			var v json.RawMessage
			v, err = json.Marshal(d.Value)
			ops = append(ops, Operation{Op: "replace", Path: e.path(d.Index), Value: v})
		case vector.OpRemove:
			ops = append(ops, Operation{Op: "remove", Path: e.path(d.Index)})
			e.length--
		case vector.OpTruncate:
			ops = e.removeFrom(ops, d.Length)
		case vector.OpReset:
			ops = e.removeFrom(ops, 0)
			d.Values.Each(func(_ int, v T) bool {
				ops, err = e.add(ops, e.pointer+"/-", v)
				return err == nil
			})
			e.length = d.Values.Len()
		default:
			err = fmt.Errorf("unknown diff op %d", d.Op)
		}
		if err != nil {
			return nil, err
		}
	}
	return ops, nil
}

// Apply applies ops to the JSON document doc.
func Apply(doc []byte, ops []Operation) ([]byte, error) {
	d, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(d)
	if err != nil {
		return nil, err
	}
	if debug.Adapt() {
		debug.Logf("json patch %s\n", d)
	}
	return patch.Apply(doc)
}
