package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/signadot/observe/adapt"
	"github.com/signadot/observe/exprfn"
	"github.com/signadot/observe/persist"
	"github.com/signadot/observe/vector"
)

// Script is a run script: initial values, a pipeline of adapter stages,
// and the operations to feed through it.
type Script struct {
	Capacity int     `yaml:"capacity"`
	Initial  []any   `yaml:"initial"`
	Pipeline []Stage `yaml:"pipeline"`
	Ops      []Op    `yaml:"ops"`
}

// Stage is one adapter. Exactly one field is set.
type Stage struct {
	Filter  string `yaml:"filter,omitempty"`
	Map     string `yaml:"map,omitempty"`
	Sort    string `yaml:"sort,omitempty"`
	SortKey string `yaml:"sortkey,omitempty"`
	Head    *int   `yaml:"head,omitempty"`
	Tail    *int   `yaml:"tail,omitempty"`
	Skip    *int   `yaml:"skip,omitempty"`
}

// Op is one collection operation, or a group of them for tx and abort.
type Op struct {
	Op     string `yaml:"op"`
	Index  int    `yaml:"index,omitempty"`
	Length int    `yaml:"length,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
	Ops    []Op   `yaml:"ops,omitempty"`
}

const (
	opTx    = "tx"
	opAbort = "abort"
)

// DefaultScript returns an empty script with the default capacity.
func DefaultScript() *Script {
	return &Script{Capacity: vector.DefaultCapacity}
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses and validates a script.
func ParseScript(data []byte) (*Script, error) {
	s := DefaultScript()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the script for errors that do not depend on the
// collection's contents.
func (s *Script) Validate() error {
	if s.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", s.Capacity)
	}
	for i := range s.Pipeline {
		if err := s.Pipeline[i].validate(); err != nil {
			return fmt.Errorf("pipeline stage %d: %w", i, err)
		}
	}
	return validateOps(s.Ops, true)
}

func (st *Stage) validate() error {
	n := 0
	for _, set := range []bool{st.Filter != "", st.Map != "", st.Sort != "", st.SortKey != "",
		st.Head != nil, st.Tail != nil, st.Skip != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("expected exactly one of filter, map, sort, sortkey, head, tail, skip, got %d", n)
	}
	for _, p := range []*int{st.Head, st.Tail, st.Skip} {
		if p != nil && *p < 0 {
			return fmt.Errorf("negative window size %d", *p)
		}
	}
	return nil
}

func validateOps(ops []Op, top bool) error {
	for i := range ops {
		op := &ops[i]
		switch op.Op {
		case opTx, opAbort:
			if !top {
				return fmt.Errorf("op %d: %s cannot be nested", i, op.Op)
			}
			if err := validateOps(op.Ops, false); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			continue
		}
		if _, err := vector.ParseOp(op.Op); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if len(op.Ops) != 0 {
			return fmt.Errorf("op %d: only tx and abort take ops", i)
		}
	}
	return nil
}

// pipeline builds the script's stages over an upstream stream whose
// current values are values.
func (s *Script) pipeline(values persist.Vector[any], up vector.Stream[any]) (persist.Vector[any], vector.Stream[any], error) {
	for i := range s.Pipeline {
		var err error
		values, up, err = s.Pipeline[i].build(values, up)
		if err != nil {
			return values, nil, fmt.Errorf("pipeline stage %d: %w", i, err)
		}
	}
	return values, up, nil
}

func (st *Stage) build(values persist.Vector[any], up vector.Stream[any]) (persist.Vector[any], vector.Stream[any], error) {
	switch {
	case st.Filter != "":
		keep, err := exprfn.Predicate[any](st.Filter)
		if err != nil {
			return values, nil, err
		}
		return adaptStream(adapt.Filter(values, up, keep))
	case st.Map != "":
		f, err := exprfn.Mapper[any](st.Map)
		if err != nil {
			return values, nil, err
		}
		return adaptStream(adapt.FilterMap(values, up, f))
	case st.Sort != "":
		compare, err := exprfn.Less[any](st.Sort)
		if err != nil {
			return values, nil, err
		}
		return adaptStream(adapt.SortBy(values, up, compare))
	case st.SortKey != "":
		key, err := exprfn.Key[any](st.SortKey)
		if err != nil {
			return values, nil, err
		}
		return adaptStream(adapt.SortByKey(values, up, key))
	case st.Head != nil:
		return adaptStream(adapt.Head(values, up, *st.Head))
	case st.Tail != nil:
		return adaptStream(adapt.Tail(values, up, *st.Tail))
	case st.Skip != nil:
		return adaptStream(adapt.Skip(values, up, *st.Skip))
	}
	return values, nil, errors.New("empty stage")
}

func adaptStream(values persist.Vector[any], a *adapt.Adapter[any, any]) (persist.Vector[any], vector.Stream[any], error) {
	return values, a, nil
}

// apply stages op in tx. Indices are checked against the transaction's
// values so a bad script fails instead of panicking.
func (op *Op) apply(tx *vector.Transaction[any]) error {
	kind, err := vector.ParseOp(op.Op)
	if err != nil {
		return err
	}
	n := tx.Len()
	switch kind {
	case vector.OpAppend:
		tx.Append(op.Values...)
	case vector.OpClear:
		tx.Clear()
	case vector.OpPushFront:
		tx.PushFront(op.Value)
	case vector.OpPushBack:
		tx.PushBack(op.Value)
	case vector.OpPopFront:
		tx.PopFront()
	case vector.OpPopBack:
		tx.PopBack()
	case vector.OpInsert:
		if op.Index < 0 || op.Index > n {
			return fmt.Errorf("insert index %d out of range [0:%d]", op.Index, n)
		}
		tx.Insert(op.Index, op.Value)
	case vector.OpSet:
		if op.Index < 0 || op.Index >= n {
			return fmt.Errorf("set index %d out of range [0:%d)", op.Index, n)
		}
		tx.Set(op.Index, op.Value)
	case vector.OpRemove:
		if op.Index < 0 || op.Index >= n {
			return fmt.Errorf("remove index %d out of range [0:%d)", op.Index, n)
		}
		tx.Remove(op.Index)
	case vector.OpTruncate:
		if op.Length < 0 {
			return fmt.Errorf("negative truncate length %d", op.Length)
		}
		tx.Truncate(op.Length)
	case vector.OpReset:
		tx.Clear()
		tx.Append(op.Values...)
	}
	return nil
}
