// Package exprfn compiles expr-lang expressions into the functions taken
// by the adapt package.
//
// Single-value expressions see the element as value. Comparisons see the
// two elements as a and b. An expression that fails at run time counts as
// false, or drops the element for a mapping.
package exprfn

import (
	"fmt"
	"math"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprOpts leaves the variables untyped so they are checked at run time
// against whatever the element is.
func exprOpts() []expr.Option {
	return []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("getenv", func(params ...any) (any, error) {
			return os.Getenv(params[0].(string)), nil
		},
			new(func(string) string)),
	}
}

func compile(src string, opts ...expr.Option) (*vm.Program, error) {
	prg, err := expr.Compile(src, append(exprOpts(), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("could not compile %q: %w", src, err)
	}
	return prg, nil
}

// Predicate compiles a boolean expression of value.
func Predicate[T any](src string) (func(T) bool, error) {
	prg, err := compile(src, expr.AsBool())
	if err != nil {
		return nil, err
	}
	return func(v T) bool {
		res, err := expr.Run(prg, map[string]any{"value": v})
		if err != nil {
			return false
		}
		return res.(bool)
	}, nil
}

// Mapper compiles an expression of value. The element is dropped when the
// expression yields nil.
func Mapper[T any](src string) (func(T) (any, bool), error) {
	prg, err := compile(src)
	if err != nil {
		return nil, err
	}
	return func(v T) (any, bool) {
		res, err := expr.Run(prg, map[string]any{"value": v})
		if err != nil || res == nil {
			return nil, false
		}
		return res, true
	}, nil
}

// Key compiles a numeric expression of value. Elements whose key cannot be
// computed get NaN, which orders before every number.
func Key[T any](src string) (func(T) float64, error) {
	prg, err := compile(src, expr.AsFloat64())
	if err != nil {
		return nil, err
	}
	return func(v T) float64 {
		res, err := expr.Run(prg, map[string]any{"value": v})
		if err != nil {
			return math.NaN()
		}
		return res.(float64)
	}, nil
}

// Less compiles a boolean expression of a and b reporting whether a sorts
// before b, and returns the matching three-way comparison.
func Less[T any](src string) (func(a, b T) int, error) {
	prg, err := compile(src, expr.AsBool())
	if err != nil {
		return nil, err
	}
	less := func(a, b T) bool {
		res, err := expr.Run(prg, map[string]any{"a": a, "b": b})
		if err != nil {
			return false
		}
		return res.(bool)
	}
	return func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	}, nil
}
