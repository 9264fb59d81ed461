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

// MatchCode names the three things a MatchOperation can do with one
// argument position of a goal.
type MatchCode int

const (
	// Write stores the row's column value into the cell. Used for the
	// first occurrence of a variable in a rule body.
	Write MatchCode = iota
	// Read compares the cell's current value against the row's column
	// value, failing the match on inequality. Used for every later
	// occurrence of a variable, and for constant-seeded variable
	// arguments.
	Read
	// ConstOp compares a literal against the row's column value.
	ConstOp
)

// MatchOperation is one column's worth of binding logic for one goal
// instance, baked once by the preprocessor and re-evaluated once per
// candidate row during every tick. Row is the predicate's row struct type;
// T is this column's type.
type MatchOperation[Row any, T comparable] struct {
	Code    MatchCode
	Cell    cellRef[T]
	Literal T
	Project func(Row) T
}

// WriteOp returns a MatchOperation that binds cell from column proj(row).
func WriteOp[Row any, T comparable](cell cellRef[T], proj func(Row) T) MatchOperation[Row, T] {
	return MatchOperation[Row, T]{Code: Write, Cell: cell, Project: proj}
}

// ReadOp returns a MatchOperation that tests cell against column proj(row).
func ReadOp[Row any, T comparable](cell cellRef[T], proj func(Row) T) MatchOperation[Row, T] {
	return MatchOperation[Row, T]{Code: Read, Cell: cell, Project: proj}
}

// ConstOpOf returns a MatchOperation that tests a literal against column
// proj(row).
func ConstOpOf[Row any, T comparable](lit T, proj func(Row) T) MatchOperation[Row, T] {
	return MatchOperation[Row, T]{Code: ConstOp, Literal: lit, Project: proj}
}

// Apply executes the match operation against row, returning false if a Read
// or ConstOp comparison fails. A Write always succeeds.
func (m MatchOperation[Row, T]) Apply(row Row) bool {
	v := m.Project(row)
	switch m.Code {
	case Write:
		m.Cell.Set(v)
		return true
	case Read:
		return m.Cell.Get() == v
	case ConstOp:
		return m.Literal == v
	default:
		panic("ted: unknown match opcode")
	}
}

// MatchOpCode reports this operation's opcode, letting index selection
// (predicate.go) skip write-mode columns without knowing T.
func (m MatchOperation[Row, T]) MatchOpCode() MatchCode { return m.Code }

// Value returns the operation's current read-mode value (the bound cell's
// contents, for Read; the literal, for ConstOp) for use as an index probe
// key. It panics if called on a Write-mode operation, which has no value
// until a candidate row supplies one.
func (m MatchOperation[Row, T]) Value() any {
	switch m.Code {
	case Read:
		return m.Cell.Get()
	case ConstOp:
		return m.Literal
	default:
		panic("ted: Value() called on a write-mode match operation")
	}
}

// AnyMatchOperation type-erases MatchOperation so a goal's full column-order
// list of match operations (spanning several column types) can live in one
// slice. MatchOpCode/Value let index selection (predicate.go) inspect an
// operation without knowing its column type T.
type AnyMatchOperation[Row any] interface {
	Apply(row Row) bool
	MatchOpCode() MatchCode
	Value() any
}
