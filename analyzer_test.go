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

func TestResolveVariableFirstUseIsWrite(t *testing.T) {
	a := newAnalyzer()
	v := NewVariable("x", reflect.TypeOf(0))
	_, isWrite := ResolveVariable[int](a, v)
	require.True(t, isWrite, "first occurrence of a variable must report write mode")
	require.True(t, a.isBound(v))
}

func TestResolveVariableSecondUseIsRead(t *testing.T) {
	a := newAnalyzer()
	v := NewVariable("x", reflect.TypeOf(0))
	ref1, _ := ResolveVariable[int](a, v)
	ref1.Set(7)
	ref2, isWrite := ResolveVariable[int](a, v)
	require.False(t, isWrite, "repeated occurrence of a bound variable must report read mode")
	require.Equal(t, 7, ref2.Get(), "the same variable must resolve to the same cell")
}

func TestForkInheritsParentBindingsByReference(t *testing.T) {
	a := newAnalyzer()
	v := NewVariable("x", reflect.TypeOf(0))
	ref, _ := ResolveVariable[int](a, v)
	ref.Set(5)

	child := a.fork()
	require.True(t, child.isBound(v))
	childRef, isWrite := ResolveVariable[int](child, v)
	require.False(t, isWrite)
	require.Equal(t, 5, childRef.Get(), "fork must inherit the parent's cell, not a copy")

	childRef.Set(9)
	require.Equal(t, 9, ref.Get(), "fork shares the underlying cell pointer with its parent")
}

func TestForkFreshBindingsDoNotLeakToParent(t *testing.T) {
	a := newAnalyzer()
	child := a.fork()
	fresh := NewVariable("y", reflect.TypeOf(0))
	ref, isWrite := ResolveVariable[int](child, fresh)
	require.True(t, isWrite)
	ref.Set(3)

	require.False(t, a.isBound(fresh), "a variable first bound inside a fork must not become visible to the parent")
}

func TestCellForDoesNotCreateBinding(t *testing.T) {
	a := newAnalyzer()
	v := NewVariable("x", reflect.TypeOf(0))
	_, ok := a.cellFor(v)
	require.False(t, ok)
	require.False(t, a.isBound(v), "cellFor must never create a binding as a side effect")

	ResolveVariable[int](a, v)
	_, ok = a.cellFor(v)
	require.True(t, ok)
}

func TestReportDependencyPropagatesToRootAnalyzer(t *testing.T) {
	root := newAnalyzer()
	child := root.fork()
	grandchild := child.fork()

	dummy := NewPredicate[numRow]("DepDummy", numCol)
	grandchild.reportDependency(dummy)

	deps := root.dependencies()
	require.Len(t, deps, 1)
	require.Equal(t, dummy.ID(), deps[0].ID())

	// the intermediate fork also observes it, since reportDependency walks
	// every enclosing analyzer on the way up.
	require.Len(t, child.dependencies(), 1)
}
