// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ted

import (
	"reflect"

	"golang.org/x/exp/constraints"
)

// operatorTable gives Eval goals duck-typed arithmetic and comparison over
// any registered primitive type, without reflecting on method names: every
// supported type pre-registers its add/sub/mul/div/mod/neg/cmp
// implementations once, keyed by reflect.Type. The binding is not resolved
// when a goal is compiled: Add, Sub, ..., Compare and Equal look up the set
// for their first argument's runtime type on every call.
type binaryOp func(a, b any) (any, error)
type unaryOp func(a any) (any, error)
type cmpOp func(a, b any) (int, error)

type opSet struct {
	add, sub, mul, div, mod binaryOp
	neg                     unaryOp
	cmp                     cmpOp
}

var operatorTable = map[reflect.Type]*opSet{}

// RegisterOperators installs (or overrides) the arithmetic/comparison
// implementation for a primitive numeric type T. Built-in numeric types are
// pre-registered in init(); a host may call RegisterOperators for its own
// primitive types to participate in Eval goals' arithmetic.
func RegisterOperators[T constraints.Integer | constraints.Float](zero T) {
	t := reflect.TypeOf(zero)
	operatorTable[t] = &opSet{
		add: func(a, b any) (any, error) { return a.(T) + b.(T), nil },
		sub: func(a, b any) (any, error) { return a.(T) - b.(T), nil },
		mul: func(a, b any) (any, error) { return a.(T) * b.(T), nil },
		div: func(a, b any) (any, error) {
			bv := b.(T)
			if bv == 0 {
				return nil, ErrUndefinedOperator
			}
			return a.(T) / bv, nil
		},
		mod: modOp[T](),
		neg: func(a any) (any, error) { return -a.(T), nil },
		cmp: func(a, b any) (int, error) {
			av, bv := a.(T), b.(T)
			switch {
			case av < bv:
				return -1, nil
			case av > bv:
				return 1, nil
			default:
				return 0, nil
			}
		},
	}
}

// modOp is split out because % is only legal on integer types in Go; for
// float types it falls back to ErrUndefinedOperator, since the operator
// simply isn't defined for that type.
func modOp[T constraints.Integer | constraints.Float]() binaryOp {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return func(a, b any) (any, error) { return nil, ErrUndefinedOperator }
	default:
		return func(a, b any) (any, error) {
			bv := b.(T)
			if bv == 0 {
				return nil, ErrUndefinedOperator
			}
			return a.(T) % bv, nil
		}
	}
}

func init() {
	RegisterOperators[int](0)
	RegisterOperators[int32](0)
	RegisterOperators[int64](0)
	RegisterOperators[uint](0)
	RegisterOperators[uint32](0)
	RegisterOperators[uint64](0)
	RegisterOperators[float32](0)
	RegisterOperators[float64](0)
}

func opsFor(t reflect.Type) (*opSet, error) {
	ops, ok := operatorTable[t]
	if !ok {
		return nil, ErrUndefinedOperator
	}
	return ops, nil
}

// Add, Sub, Mul, Div, Mod, Neg, Compare, and Equal dispatch to the
// registered operator set for the runtime type of their arguments. They
// are available to host-written FunExpr.Fn closures; Compare and Equal
// also back the comparison goals (goal.go).
func Add(a, b any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.add(a, b)
}

func Sub(a, b any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.sub(a, b)
}

func Mul(a, b any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.mul(a, b)
}

func Div(a, b any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.div(a, b)
}

func Mod(a, b any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.mod(a, b)
}

func Neg(a any) (any, error) {
	ops, err := opsFor(reflect.TypeOf(a))
	if err != nil {
		return nil, err
	}
	return ops.neg(a)
}

// Compare returns -1, 0, or 1. For types without a registered opSet (e.g.
// strings, bools, enums), it falls back to reflect.DeepEqual for equality
// only; ordering comparisons on such types return ErrUndefinedOperator.
func Compare(a, b any) (int, error) {
	ops, ok := operatorTable[reflect.TypeOf(a)]
	if !ok {
		if reflect.DeepEqual(a, b) {
			return 0, nil
		}
		return 0, ErrUndefinedOperator
	}
	return ops.cmp(a, b)
}

// Equal reports whether a == b, using the registered comparator when
// available and reflect.DeepEqual otherwise.
func Equal(a, b any) bool {
	if ops, ok := operatorTable[reflect.TypeOf(a)]; ok {
		c, err := ops.cmp(a, b)
		return err == nil && c == 0
	}
	return reflect.DeepEqual(a, b)
}
