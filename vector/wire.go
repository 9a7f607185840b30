package vector

import (
	"encoding/json"
	"fmt"

	"github.com/signadot/observe/persist"
)

// wireDiff is the serialized form of a Diff, shared by JSON and YAML:
//
//	{op: insert, index: 2, value: x}
//
// A missing value decodes as the zero value.
type wireDiff[T any] struct {
	Op     string `json:"op" yaml:"op"`
	Index  *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Length *int   `json:"length,omitempty" yaml:"length,omitempty"`
	Value  *T     `json:"value,omitempty" yaml:"value,omitempty"`
	Values []T    `json:"values,omitempty" yaml:"values,omitempty"`
}

func (d Diff[T]) wire() wireDiff[T] {
	w := wireDiff[T]{Op: d.Op.String()}
	switch d.Op {
	case OpAppend, OpReset:
		w.Values = d.Values.Values()
	case OpPushFront, OpPushBack:
		w.Value = &d.Value
	case OpInsert, OpSet:
		w.Index = &d.Index
		w.Value = &d.Value
	case OpRemove:
		w.Index = &d.Index
	case OpTruncate:
		w.Length = &d.Length
	}
	return w
}

func (w wireDiff[T]) diff() (Diff[T], error) {
	op, err := ParseOp(w.Op)
	if err != nil {
		return Diff[T]{}, err
	}
	d := Diff[T]{Op: op}
	need := func(field string, ok bool) error {
		if !ok {
			return fmt.Errorf("%s diff missing %s", op, field)
		}
		return nil
	}
	switch op {
	case OpAppend, OpReset:
		d.Values = persist.FromSlice(w.Values)
	case OpPushFront, OpPushBack:
		if w.Value != nil {
			d.Value = *w.Value
		}
	case OpInsert, OpSet:
		if err := need("index", w.Index != nil); err != nil {
			return d, err
		}
		d.Index = *w.Index
		if w.Value != nil {
			d.Value = *w.Value
		}
	case OpRemove:
		if err := need("index", w.Index != nil); err != nil {
			return d, err
		}
		d.Index = *w.Index
	case OpTruncate:
		if err := need("length", w.Length != nil); err != nil {
			return d, err
		}
		d.Length = *w.Length
	}
	return d, nil
}

func (d Diff[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire())
}

func (d *Diff[T]) UnmarshalJSON(data []byte) error {
	var w wireDiff[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	res, err := w.diff()
	if err != nil {
		return err
	}
	*d = res
	return nil
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (d Diff[T]) MarshalYAML() (any, error) {
	return d.wire(), nil
}
