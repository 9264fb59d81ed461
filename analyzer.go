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

// analyzer carries a variable->cell mapping and the set of bound variables
// through a rule body in declaration order. It also accumulates the set
// of tables a rule (or a sub-body) reads, directly or through
// higher-order arguments (a Goal/*Predicate passed as an argument to
// And/Or/Not/aggregation/etc.).
type analyzer struct {
	parent *analyzer
	bound  map[*Variable]AnyCell
	deps   map[PredicateId]AnyPredicate
}

// newAnalyzer creates a root analyzer for a fresh rule body, with no
// bindings yet established.
func newAnalyzer() *analyzer {
	return &analyzer{
		bound: make(map[*Variable]AnyCell),
		deps:  make(map[PredicateId]AnyPredicate),
	}
}

// fork creates a child analyzer for a scoped sub-body (Once, Not, FirstOf,
// aggregators, a disjunct arm). The child inherits a snapshot of the
// parent's bindings; anything the child binds for the first time is
// invisible to the parent once the child goes out of scope, since the
// child owns its own copy of the bound map rather than mutating the
// parent's.
func (a *analyzer) fork() *analyzer {
	child := newAnalyzer()
	child.parent = a
	for v, c := range a.bound {
		child.bound[v] = c
	}
	return child
}

// reportDependency records that the rule (or sub-body) being analyzed reads
// p's table, propagating the report up through every enclosing analyzer so
// a top-level rule's Dependencies is the closure of every table reached,
// including through higher-order arguments.
func (a *analyzer) reportDependency(p AnyPredicate) {
	a.deps[p.ID()] = p
	if a.parent != nil {
		a.parent.reportDependency(p)
	}
}

// dependencies returns the predicates this analyzer has recorded as read,
// including those reported by any child it forked (reportDependency
// propagates every report up to each enclosing analyzer).
func (a *analyzer) dependencies() []AnyPredicate {
	preds := make([]AnyPredicate, 0, len(a.deps))
	for _, p := range a.deps {
		preds = append(preds, p)
	}
	return preds
}

// isBound reports whether v already has a cell in this analyzer's scope.
func (a *analyzer) isBound(v *Variable) bool {
	_, ok := a.bound[v]
	return ok
}

// cellFor returns v's cell without creating one, for callers (FunExpr
// operand resolution in predicate.go) that only ever read an
// already-established binding.
func (a *analyzer) cellFor(v *Variable) (AnyCell, bool) {
	c, ok := a.bound[v]
	return c, ok
}

// cellRef is a typed view onto an AnyCell: Get/Set go through the
// type-erased GetAny/SetAny rather than asserting the cell's own concrete
// type. This lets the same logical variable be bound once (at whichever
// type first claims it: a table column's T, or "any" for an
// Eval-introduced temporary) and read afterwards at any type its later
// occurrences need, as long as the values that actually flow through
// genuinely share a dynamic type.
type cellRef[T any] struct {
	cell AnyCell
}

func (r cellRef[T]) Get() T    { return r.cell.GetAny().(T) }
func (r cellRef[T]) Set(v T)   { r.cell.SetAny(v) }
func (r cellRef[T]) Any() AnyCell { return r.cell }

// ResolveVariable returns a typed reference to v's cell, creating and
// registering a fresh ValueCell[T] on first use. isWrite is true exactly
// when this is the first occurrence of v within the analyzer's (possibly
// forked) scope: the preprocessor emits a Write match-operation for a
// fresh cell and a Read for a pre-existing one.
//
// Package-level rather than a method because Go does not allow a method to
// introduce its own type parameter; the analyzer's bound map is type-erased
// via AnyCell and this function recovers the needed type at each call
// site, where the caller already knows the column type T.
func ResolveVariable[T any](a *analyzer, v *Variable) (ref cellRef[T], isWrite bool) {
	if existing, ok := a.bound[v]; ok {
		return cellRef[T]{cell: existing}, false
	}
	cell := NewValueCell[T](v.Name)
	a.bound[v] = cell
	return cellRef[T]{cell: cell}, true
}
