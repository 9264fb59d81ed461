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
	"fmt"
	"reflect"
)

// Term is an argument of a goal: a constant, a variable, or a functional
// expression over other terms. The sum type is closed: the only
// implementations are Constant, *Variable, and *FunExpr.
//
// This mirrors datalog.go's Term/Const/Var interfaces, but replaces
// pointer-identity dispatch with an explicit closed kind, since the
// preprocessor (not a runtime unifier) is what needs to distinguish them.
type Term interface {
	fmt.Stringer
	termKind() termKind
	termType() reflect.Type
}

type termKind int

const (
	kindConst termKind = iota
	kindVar
	kindFun
)

// Constant is a literal value term, e.g. 42, "hello", or an enum ordinal.
type Constant struct {
	Value any
	Type  reflect.Type
}

// Const wraps a literal Go value as a Term.
func Const(v any) Constant {
	return Constant{Value: v, Type: reflect.TypeOf(v)}
}

func (c Constant) termKind() termKind      { return kindConst }
func (c Constant) termType() reflect.Type  { return c.Type }
func (c Constant) String() string          { return fmt.Sprintf("%v", c.Value) }

// Variable is a rule-scope variable occurrence. Two occurrences denote the
// same logical variable iff they are the same *Variable pointer: host code
// is responsible for reusing the same *Variable value for repeated
// occurrences of "the same" variable, exactly as datalog.go:45-55 requires callers to reuse the same
// Var object.
type Variable struct {
	Name string
	Type reflect.Type
	vid  uint64
}

// NewVariable declares a fresh variable of the given name and type. The name
// is cosmetic and need not be unique; identity is by pointer.
func NewVariable(name string, typ reflect.Type) *Variable {
	return &Variable{Name: name, Type: typ, vid: nextCellID()}
}

func (v *Variable) termKind() termKind     { return kindVar }
func (v *Variable) termType() reflect.Type { return v.Type }
func (v *Variable) String() string         { return v.Name }

// FunExpr is a functional expression over other terms, e.g. a+b or
// float64(age). A FunExpr goal argument is not rewritten into a temporary
// Variable plus a preceding Eval goal: it is evaluated inline, once per
// candidate row, and compared against the row's column (funExprMatchOp in
// predicate.go; see preprocessor.go).
type FunExpr struct {
	Op   string
	Args []Term
	Type reflect.Type
	// Fn evaluates the expression given the chased values of Args, in order.
	Fn func(args []any) (any, error)
}

func (f *FunExpr) termKind() termKind     { return kindFun }
func (f *FunExpr) termType() reflect.Type { return f.Type }
func (f *FunExpr) String() string {
	s := f.Op + "("
	for i, a := range f.Args {
		if i > 0 {
			s += ", "
		}
		s += a.String()
	}
	return s + ")"
}

// IsVariable reports whether t is a *Variable.
func IsVariable(t Term) (*Variable, bool) {
	v, ok := t.(*Variable)
	return v, ok
}

// IsConstant reports whether t is a Constant.
func IsConstant(t Term) (Constant, bool) {
	c, ok := t.(Constant)
	return c, ok
}

// IsFunExpr reports whether t is a *FunExpr.
func IsFunExpr(t Term) (*FunExpr, bool) {
	f, ok := t.(*FunExpr)
	return f, ok
}
