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

	"github.com/pkg/errors"
)

// AnyPredicate type-erases Predicate[Row] so the dependency graph, the
// scheduler, and a rule's higher-order arguments can all hold "some
// predicate" without knowing its row type: rules hold this handle, not a
// pointer typed to a specific Row, so predicates can reference each other
// regardless of declaration order.
type AnyPredicate interface {
	ID() PredicateId
	Name() string
	// Dependencies returns the closure of predicates this predicate's rules
	// read, directly or through higher-order arguments.
	Dependencies() []AnyPredicate
	// IsDynamic reports whether this predicate needs work done on it every
	// tick (either re-derived by rules, or an extensional predicate with
	// input/update sources).
	IsDynamic() bool
	// tick runs this predicate's per-update-cycle work.
	tick(firstTick bool) error
}

// AnyColumn type-erases Column[Row,T] so a Predicate[Row] can hold a
// heterogeneous, ordered list of its columns regardless of each column's
// own value type. Exported so a collaborator that only discovers its
// column count at runtime (tedrepl's synthesized answer predicate) can
// assemble a []AnyColumn[Row] itself and hand it to NewPredicateColumns.
type AnyColumn[Row comparable] interface {
	Name() string
	// buildMatch resolves arg against the goal analyzer a and returns the
	// match operation this column contributes.
	buildMatch(a *analyzer, arg Term) AnyMatchOperation[Row]
}

// Column is one named, typed field of a predicate's row struct. Project
// extracts the column's value from a row; Assign writes a resolved value
// back into a row being assembled by a rule head.
type Column[Row comparable, T comparable] struct {
	name    string
	project func(Row) T
	assign  func(*Row, T)
}

// NewColumn declares a column named name, with project extracting its
// value from a row and assign writing a resolved value into one (used when
// this column is in a rule's head pattern).
func NewColumn[Row comparable, T comparable](name string, project func(Row) T, assign func(*Row, T)) *Column[Row, T] {
	return &Column[Row, T]{name: name, project: project, assign: assign}
}

func (c *Column[Row, T]) Name() string { return c.name }

// Var declares a fresh rule-scope variable of this column's type, for use
// as a head or body argument referring to this column.
func (c *Column[Row, T]) Var(name string) *Variable {
	var zero T
	return NewVariable(name, reflect.TypeOf(zero))
}

func (c *Column[Row, T]) buildMatch(a *analyzer, arg Term) AnyMatchOperation[Row] {
	switch t := arg.(type) {
	case Constant:
		return ConstOpOf[Row, T](t.Value.(T), c.project)
	case *Variable:
		ref, isWrite := ResolveVariable[T](a, t)
		if isWrite {
			return WriteOp[Row, T](ref, c.project)
		}
		return ReadOp[Row, T](ref, c.project)
	case *FunExpr:
		compute := funExprGetter[T](a, t)
		return &funExprMatchOp[Row, T]{compute: compute, project: c.project}
	default:
		panic(errors.WithStack(ErrBadTerm))
	}
}

// funExprMatchOp evaluates a functional-expression argument once per
// candidate row and compares it against the row's column: rather than
// rewriting the enclosing goal list to insert a separate temp-variable/Eval
// pair, the expression is evaluated inline at match time, which is
// observationally identical (computed once per candidate row, compared
// against the column) since FunExpr operands must already be bound.
type funExprMatchOp[Row any, T comparable] struct {
	compute func() T
	project func(Row) T
}

func (m *funExprMatchOp[Row, T]) Apply(row Row) bool      { return m.compute() == m.project(row) }
func (m *funExprMatchOp[Row, T]) MatchOpCode() MatchCode  { return Read }
func (m *funExprMatchOp[Row, T]) Value() any              { return m.compute() }

// funExprGetter builds a closure that evaluates f once, chasing every
// operand through the analyzer (constants literally, variables through
// their already-bound cell — an unbound operand is a schema error).
func funExprGetter[T comparable](a *analyzer, f *FunExpr) func() T {
	getters := make([]func() any, len(f.Args))
	for i, arg := range f.Args {
		getters[i] = anyGetter(a, arg)
	}
	fn := f.Fn
	return func() T {
		args := make([]any, len(getters))
		for i, g := range getters {
			args[i] = g()
		}
		v, err := fn(args)
		if err != nil {
			panic(errors.WithStack(err))
		}
		return v.(T)
	}
}

// anyGetter is funExprGetter's type-erased operand resolver: it does not
// need to know T statically, since FunExpr.Fn itself receives []any.
func anyGetter(a *analyzer, t Term) func() any {
	switch v := t.(type) {
	case Constant:
		lit := v.Value
		return func() any { return lit }
	case *Variable:
		cell, ok := a.cellFor(v)
		if !ok {
			panic(errors.WithStack(ErrUnboundEvalOperand))
		}
		return cell.GetAny
	case *FunExpr:
		getters := make([]func() any, len(v.Args))
		for i, arg := range v.Args {
			getters[i] = anyGetter(a, arg)
		}
		fn := v.Fn
		return func() any {
			args := make([]any, len(getters))
			for i, g := range getters {
				args[i] = g()
			}
			res, err := fn(args)
			if err != nil {
				panic(errors.WithStack(err))
			}
			return res
		}
	default:
		panic(errors.WithStack(ErrBadTerm))
	}
}

// indexDescriptor binds one attached index to the single column ordinal it
// covers. Index selection inspects the goal's pattern of read-mode vs
// write-mode argument positions and picks an index whose indexed columns
// are all read-mode, with the highest priority. A composite/multi-column
// key is modeled as one column whose own type is a tuple struct, rather
// than as a descriptor spanning several ordinals.
type indexDescriptor[Row comparable] struct {
	ordinal  int
	priority int
	makeCall func(key AnyMatchOperation[Row], remaining []AnyMatchOperation[Row]) Call
}

// DefaultKeyIndexPriority is the preprocessor's default key-index priority.
// General indices default to 100·arity, computed by IndexBy.
const DefaultKeyIndexPriority = 1000

// Predicate is a named, typed relation: an extensional table the host
// populates directly, or an intensional one the engine derives each tick
// by firing rules.
type Predicate[Row comparable] struct {
	id      PredicateId
	name    string
	columns []AnyColumn[Row]
	table   *Table[Row]

	indexDescs []indexDescriptor[Row]
	rules      []*Rule[Row]
	deps       map[PredicateId]AnyPredicate

	static      bool
	intensional bool

	initial *Table[Row]
	input   *Table[Row]
	updates []columnUpdate[Row]

	deadRuleMode DeadRuleMode
}

type columnUpdate[Row comparable] struct {
	apply func(table *Table[Row]) error
}

// NewPredicate declares an extensional, static predicate named name with
// the given columns in declaration order. Call If to make it intensional,
// or Dynamic to make it an extensional predicate with input/update
// sources.
func NewPredicate[Row comparable](name string, columns ...AnyColumn[Row]) *Predicate[Row] {
	return NewPredicateColumns(name, columns)
}

// NewPredicateColumns is NewPredicate taking its columns as a slice rather
// than variadically, for a caller that assembles a variable-length column
// list at runtime (e.g. tedrepl's synthesized answer predicate, one column
// per variable discovered while parsing a query).
func NewPredicateColumns[Row comparable](name string, columns []AnyColumn[Row]) *Predicate[Row] {
	return &Predicate[Row]{
		id:      NewPredicateId(),
		name:    name,
		columns: columns,
		table:   NewTable[Row](16),
		static:  true,
		deps:    make(map[PredicateId]AnyPredicate),
	}
}

func (p *Predicate[Row]) ID() PredicateId { return p.id }
func (p *Predicate[Row]) Name() string    { return p.name }

// Table returns the predicate's underlying storage, for direct host
// population of static/extensional predicates.
func (p *Predicate[Row]) Table() *Table[Row] { return p.table }

// Unique enables row-uniqueness enforcement on the predicate's table.
func (p *Predicate[Row]) Unique(unique bool) *Predicate[Row] {
	p.table.SetUnique(unique)
	return p
}

// SetDeadRuleMode controls whether a rule body that constant-folds to
// always-false is silently dropped or raises ErrDeadRule.
func (p *Predicate[Row]) SetDeadRuleMode(mode DeadRuleMode) { p.deadRuleMode = mode }

// Dynamic marks the predicate as an extensional, dynamic base predicate
// driven by three composable update sources: an initial-value table, an
// additive per-tick input table, and per-column update tables (see
// SetInitial/SetInput/AddColumnUpdate).
func (p *Predicate[Row]) Dynamic() *Predicate[Row] {
	p.static = false
	return p
}

// IsDynamic implements AnyPredicate.
func (p *Predicate[Row]) IsDynamic() bool {
	return p.intensional || !p.static
}

// SetInitial installs rows applied once, on the first tick only.
func (p *Predicate[Row]) SetInitial(rows ...Row) {
	t := NewTable[Row](len(rows) + 1)
	for _, r := range rows {
		t.Add(r)
	}
	p.initial = t
	p.static = false
}

// SetInput installs a table whose rows are merged additively into this
// predicate's table at the start of every tick.
func (p *Predicate[Row]) SetInput(input *Table[Row]) {
	p.input = input
	p.static = false
}

// AddColumnUpdate installs a per-column update applied at the end of every
// tick. apply is given the predicate's live table to mutate in place
// (typically via ReplaceRow/AddOrReplace against an attached key index).
func (p *Predicate[Row]) AddColumnUpdate(apply func(table *Table[Row]) error) {
	p.updates = append(p.updates, columnUpdate[Row]{apply: apply})
	p.static = false
}

// IndexByKey attaches a unique-key index over col to p and registers it
// for index selection at the default key-index priority. If col's value
// type implements Enum, the index is direct-addressed by ordinal instead
// of hashed.
func IndexByKey[Row comparable, T comparable](p *Predicate[Row], col *Column[Row, T]) *KeyIndex[Row, T] {
	var idx *KeyIndex[Row, T]
	if ordinalOf, maxOrdinal, ok := enumOrdinal[T](); ok {
		idx = NewEnumKeyIndex[Row, T](p.table, col.project, ordinalOf, maxOrdinal)
	} else {
		idx = NewKeyIndex[Row, T](p.table, col.project)
	}
	ord := p.ordinalOf(col)
	p.indexDescs = append(p.indexDescs, indexDescriptor[Row]{
		ordinal:  ord,
		priority: DefaultKeyIndexPriority,
		makeCall: func(key AnyMatchOperation[Row], remaining []AnyMatchOperation[Row]) Call {
			return keyProbe[Row, T](p.table, idx, func() T { return key.Value().(T) }, remaining)
		},
	})
	return idx
}

// IndexBy attaches a general (multi-valued) index over col to p, at
// priority 100*arity unless priorityOverride is given. If col's value type
// implements Enum, the index is direct-addressed by ordinal instead of
// hashed.
func IndexBy[Row comparable, T comparable](p *Predicate[Row], col *Column[Row, T], priorityOverride ...int) *GeneralIndex[Row, T] {
	var idx *GeneralIndex[Row, T]
	if ordinalOf, maxOrdinal, ok := enumOrdinal[T](); ok {
		idx = NewEnumGeneralIndex[Row, T](p.table, col.project, ordinalOf, maxOrdinal, true)
	} else {
		idx = NewGeneralIndex[Row, T](p.table, col.project, true)
	}
	priority := 100 * len(p.columns)
	if len(priorityOverride) > 0 {
		priority = priorityOverride[0]
	}
	ord := p.ordinalOf(col)
	p.indexDescs = append(p.indexDescs, indexDescriptor[Row]{
		ordinal:  ord,
		priority: priority,
		makeCall: func(key AnyMatchOperation[Row], remaining []AnyMatchOperation[Row]) Call {
			return generalProbe[Row, T](p.table, idx, func() T { return key.Value().(T) }, remaining)
		},
	})
	return idx
}

// ordinalOf returns col's position in p's column list, panicking with
// ErrUnknownColumn if col was not declared on p.
func (p *Predicate[Row]) ordinalOf(col AnyColumn[Row]) int {
	for i, c := range p.columns {
		if c == col {
			return i
		}
	}
	panic(errors.WithStack(ErrUnknownColumn))
}

// compileCall resolves args against the goal analyzer a and materializes a
// Call for this predicate, choosing the highest-priority index whose
// column is fully read-mode. Falls back to a linear scan if no index
// applies.
func (p *Predicate[Row]) compileCall(a *analyzer, args []Term) Call {
	if len(args) != len(p.columns) {
		panic(errors.WithStack(ErrArityMismatch))
	}
	a.reportDependency(p)
	ops := make([]AnyMatchOperation[Row], len(p.columns))
	for i, col := range p.columns {
		ops[i] = col.buildMatch(a, args[i])
	}
	var best *indexDescriptor[Row]
	for i := range p.indexDescs {
		d := &p.indexDescs[i]
		if ops[d.ordinal].MatchOpCode() == Write {
			continue
		}
		if best == nil || d.priority > best.priority {
			best = d
		}
	}
	if best != nil {
		remaining := make([]AnyMatchOperation[Row], 0, len(ops)-1)
		for i, op := range ops {
			if i == best.ordinal {
				continue
			}
			remaining = append(remaining, op)
		}
		return best.makeCall(ops[best.ordinal], remaining)
	}
	return linearScan[Row](p.table, ops)
}

// Rule is a compiled rule body plus a head-row assembler. It is built once
// by (*Predicate[Row]).If and re-used, unchanged, on every subsequent
// tick.
type Rule[Row comparable] struct {
	pred     *Predicate[Row]
	analyzer *analyzer
	call     Call
	assemble func() Row
	deps     []AnyPredicate
}

// If attaches a rule to p: body is compiled against a fresh analyzer in
// order (so earlier goals' bindings are visible to later ones), then each
// of p's head columns resolves its own head variable (set up beforehand
// via the Column.Var helper and referenced identically inside body)
// against that same analyzer to build the row-assembly closure. Safety
// (every head variable must occur in body) is enforced by resolveHeadVar:
// an unbound head variable panics with ErrUnsafeRule.
func (p *Predicate[Row]) If(head []Term, body ...Goal) *Rule[Row] {
	if len(head) != len(p.columns) {
		panic(errors.WithStack(ErrArityMismatch))
	}
	a := newAnalyzer()
	body = Simplify(body)
	if len(body) == 1 {
		if tv, ok := body[0].(trivialGoal); ok && !bool(tv) {
			if p.deadRuleMode == RaiseDeadRule {
				panic(errors.WithStack(ErrDeadRule))
			}
			return nil
		}
	}
	call := andGoal{goals: body}.compile(a)
	assemblers := make([]func(*Row), len(head))
	for i, col := range p.columns {
		assemblers[i] = resolveHeadVar(p, col, a, head[i])
	}
	rule := &Rule[Row]{
		pred:     p,
		analyzer: a,
		call:     call,
		deps:     a.dependencies(),
		assemble: func() Row {
			var row Row
			for _, assign := range assemblers {
				assign(&row)
			}
			return row
		},
	}
	p.rules = append(p.rules, rule)
	for _, dep := range rule.deps {
		p.deps[dep.ID()] = dep
	}
	p.intensional = true
	return rule
}

// resolveHeadVar builds the closure that assigns a resolved head argument
// into the column's slot of an assembling row. Go cannot let a method on
// Predicate[Row] introduce its own type parameter T (the column's value
// type), so this is a package-level generic function instead, mirroring
// ResolveVariable in analyzer.go.
func resolveHeadVar[Row comparable, T comparable](p *Predicate[Row], col *Column[Row, T], a *analyzer, t Term) func(*Row) {
	switch v := t.(type) {
	case Constant:
		lit := v.Value.(T)
		return func(row *Row) { col.assign(row, lit) }
	case *Variable:
		cell, ok := a.cellFor(v)
		if !ok {
			panic(errors.WithStack(ErrUnsafeRule))
		}
		ref := cellRef[T]{cell: cell}
		return func(row *Row) { col.assign(row, ref.Get()) }
	case *FunExpr:
		get := funExprGetter[T](a, v)
		return func(row *Row) { col.assign(row, get()) }
	default:
		panic(errors.WithStack(ErrBadTerm))
	}
}

// Dependencies implements AnyPredicate.
func (p *Predicate[Row]) Dependencies() []AnyPredicate {
	preds := make([]AnyPredicate, 0, len(p.deps))
	for _, d := range p.deps {
		preds = append(preds, d)
	}
	return preds
}

// tick implements AnyPredicate: an intensional predicate is cleared and
// re-derived by firing its rules in declaration order; an extensional
// dynamic predicate applies its initial emission (on firstTick only),
// merges its input table additively, then applies its column-update
// sources.
func (p *Predicate[Row]) tick(firstTick bool) error {
	if p.intensional {
		p.table.Clear()
		for _, rule := range p.rules {
			for rule.call.Next() {
				row := rule.assemble()
				if _, _, err := p.table.Add(row); err != nil {
					return errors.Wrapf(err, "ted: predicate %s", p.name)
				}
			}
		}
		return nil
	}
	if firstTick && p.initial != nil {
		for _, r := range p.initial.Rows() {
			if _, _, err := p.table.Add(p.initial.Get(r)); err != nil {
				return errors.Wrapf(err, "ted: predicate %s initial", p.name)
			}
		}
	}
	if p.input != nil {
		for _, r := range p.input.Rows() {
			if _, _, err := p.table.Add(p.input.Get(r)); err != nil {
				return errors.Wrapf(err, "ted: predicate %s input", p.name)
			}
		}
	}
	for _, u := range p.updates {
		if err := u.apply(p.table); err != nil {
			return errors.Wrapf(err, "ted: predicate %s update", p.name)
		}
	}
	return nil
}
