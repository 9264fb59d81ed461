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
	"testing"

	"github.com/stretchr/testify/require"
)

func addExpr(a, b Term) *FunExpr {
	return &FunExpr{
		Op:   "+",
		Args: []Term{a, b},
		Type: reflect.TypeOf(0),
		Fn: func(args []any) (any, error) {
			return args[0].(int) + args[1].(int), nil
		},
	}
}

func TestFoldConstantExpression(t *testing.T) {
	expr := addExpr(Const(2), Const(3))
	folded := Fold(expr)
	c, ok := IsConstant(folded)
	require.True(t, ok)
	require.Equal(t, 5, c.Value)
}

func TestFoldLeavesVariableExpressionUnfolded(t *testing.T) {
	v := NewVariable("x", reflect.TypeOf(0))
	expr := addExpr(v, Const(3))
	folded := Fold(expr)
	f, ok := IsFunExpr(folded)
	require.True(t, ok)
	require.Equal(t, "+", f.Op)
}

func TestFoldRecursesIntoNestedExpressions(t *testing.T) {
	inner := addExpr(Const(1), Const(2))
	outer := addExpr(inner, Const(4))
	folded := Fold(outer)
	c, ok := IsConstant(folded)
	require.True(t, ok)
	require.Equal(t, 7, c.Value)
}

func TestFoldPanicsOnConstantEvalError(t *testing.T) {
	bad := &FunExpr{
		Op:   "div0",
		Args: []Term{Const(1)},
		Type: reflect.TypeOf(0),
		Fn: func(args []any) (any, error) {
			return nil, ErrUndefinedOperator
		},
	}
	require.Panics(t, func() { Fold(bad) })
}

func TestSimplifyDropsTrivialTrue(t *testing.T) {
	v := NewVariable("x", reflect.TypeOf(0))
	goals := []Goal{True(), Apply(NewPredicate[numRow]("SimpP", numCol), v)}
	out := Simplify(goals)
	require.Len(t, out, 1)
}

func TestSimplifyCollapsesOnTrivialFalse(t *testing.T) {
	v := NewVariable("x", reflect.TypeOf(0))
	goals := []Goal{Apply(NewPredicate[numRow]("SimpQ", numCol), v), False()}
	out := Simplify(goals)
	require.Len(t, out, 1)
	tv, ok := out[0].(trivialGoal)
	require.True(t, ok)
	require.False(t, bool(tv))
}

func TestSimplifyEmptyBodyBecomesTrue(t *testing.T) {
	out := Simplify(nil)
	require.Len(t, out, 1)
	tv, ok := out[0].(trivialGoal)
	require.True(t, ok)
	require.True(t, bool(tv))
}
