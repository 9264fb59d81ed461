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

import "fmt"

// AnyCell is the type-erased view of a ValueCell, used wherever a slice of
// cells must hold more than one column type (e.g. a rule's full binding
// set, or a Call's dependency list).
type AnyCell interface {
	// Name returns the variable name this cell was created for, for
	// diagnostics; it is not used for identity.
	Name() string
	// id is this cell's distinct identity, assigned once at creation.
	id() uint64
	// GetAny and SetAny give type-erased access to the cell's current
	// value. Callers that know the concrete column type T use these
	// through a cellRef[T] (see ResolveVariable in analyzer.go) rather
	// than asserting the cell's own concrete type, since the same
	// variable may be first bound at a ValueCell[any] (e.g. an Eval
	// temporary) and later read at a concrete column type, or vice
	// versa.
	GetAny() any
	SetAny(v any)
	fmt.Stringer
}

// ValueCell is a mutable, typed slot holding the current binding of one
// rule-scope variable during the evaluation of one rule body. Cells are
// allocated once per variable per compiled rule by the preprocessor
// (analyzer.go) and reused across every tick and every solution of that
// rule: a restart of the enclosing call simply overwrites the cell's value.
type ValueCell[T any] struct {
	name  string
	cid   uint64
	Value T
}

// NewValueCell allocates a fresh cell for a variable named name. The name is
// cosmetic; identity is by cid.
func NewValueCell[T any](name string) *ValueCell[T] {
	return &ValueCell[T]{name: name, cid: nextCellID()}
}

func (c *ValueCell[T]) Name() string { return c.name }
func (c *ValueCell[T]) id() uint64   { return c.cid }

func (c *ValueCell[T]) String() string {
	return fmt.Sprintf("%s=%v", c.name, c.Value)
}

// Get returns the cell's current value.
func (c *ValueCell[T]) Get() T { return c.Value }

// Set overwrites the cell's current value.
func (c *ValueCell[T]) Set(v T) { c.Value = v }

// GetAny and SetAny implement AnyCell.
func (c *ValueCell[T]) GetAny() any { return c.Value }
func (c *ValueCell[T]) SetAny(v any) {
	c.Value = v.(T)
}
