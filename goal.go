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
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Goal is a rule-body element before compilation: a predicate applied to
// argument terms, or a primitive combinator over sub-goals. compile
// threads the goal analyzer through in body order and returns the Call
// the preprocessor will drive at evaluation time.
type Goal interface {
	compile(a *analyzer) Call
}

// predicateGoal applies a predicate to argument terms. It is produced by
// Apply and by (*Predicate).ApplyAny.
type predicateGoal[Row comparable] struct {
	pred *Predicate[Row]
	args []Term
}

// Apply builds a goal that calls pred with args, one term per column in
// declaration order.
func Apply[Row comparable](pred *Predicate[Row], args ...Term) Goal {
	return predicateGoal[Row]{pred: pred, args: args}
}

func (g predicateGoal[Row]) compile(a *analyzer) Call {
	return g.pred.compileCall(a, g.args)
}

// Applicable is the type-erased view of (*Predicate[Row]).ApplyAny, for
// callers that build goals against a predicate without knowing its Row type
// statically — e.g. tedrepl's literal-list parser, which only ever sees
// predicate names and argument terms, never Go row structs.
type Applicable interface {
	ApplyAny(args ...Term) Goal
}

// ApplyAny is Apply bound to a specific predicate, for a caller (such as a
// registry keyed by predicate name) that only holds an Applicable.
func (p *Predicate[Row]) ApplyAny(args ...Term) Goal {
	return predicateGoal[Row]{pred: p, args: args}
}

// Arity returns the number of columns p was declared with.
func (p *Predicate[Row]) Arity() int { return len(p.columns) }

// andGoal is the conjunction of sub-goals, compiled left to right against
// the same analyzer so that bindings flow from one sub-goal to the next.
type andGoal struct{ goals []Goal }

// And builds the conjunction of goals, evaluated left to right.
func And(goals ...Goal) Goal { return andGoal{goals} }

func (g andGoal) compile(a *analyzer) Call {
	if len(g.goals) == 1 {
		return g.goals[0].compile(a)
	}
	calls := make([]Call, len(g.goals))
	for i, sub := range g.goals {
		calls[i] = sub.compile(a)
	}
	return newAnd(calls...)
}

// orGoal is the disjunction of branches. Branches compile against the
// same analyzer as their parent (not a fork): a variable a branch writes
// must remain visible to the rule head and to goals after the Or, which a
// forked, per-branch cell would prevent.
type orGoal struct{ goals []Goal }

// Or builds the disjunction of goals, tried in order on each restart.
func Or(goals ...Goal) Goal { return orGoal{goals} }

func (g orGoal) compile(a *analyzer) Call {
	calls := make([]Call, len(g.goals))
	for i, sub := range g.goals {
		calls[i] = sub.compile(a)
	}
	return newOr(calls...)
}

// notGoal negates goal, which compiles in a forked analyzer since its
// bindings are never observed outside (Not publishes no writes).
type notGoal struct{ goal Goal }

// Not builds a negation over goal.
func Not(goal Goal) Goal { return notGoal{goal} }

func (g notGoal) compile(a *analyzer) Call {
	return newNot(g.goal.compile(a.fork()))
}

// onceGoal truncates goal to its first solution. Like Or, it shares its
// parent's analyzer rather than forking, so that a variable goal first
// binds (e.g. q(x) :- Once[p(x)]) remains visible to the head.
type onceGoal struct{ goal Goal }

// Once builds a call that truncates goal to its first solution.
func Once(goal Goal) Goal { return onceGoal{goal} }

func (g onceGoal) compile(a *analyzer) Call {
	return newOnce(g.goal.compile(a))
}

// limitGoal truncates goal to its first k solutions.
type limitGoal struct {
	k    int
	goal Goal
}

// LimitSolutions builds a call that truncates goal to its first k
// solutions.
func LimitSolutions(k int, goal Goal) Goal { return limitGoal{k: k, goal: goal} }

func (g limitGoal) compile(a *analyzer) Call {
	return newLimit(g.k, g.goal.compile(a))
}

// firstOfGoal commits to the first branch (in order) that yields a
// solution, suppressing further backtracking into it or trial of later
// branches. Like Or, branches share the parent analyzer.
type firstOfGoal struct{ goals []Goal }

// FirstOf builds a call that commits to the first branch, in order, that
// yields a solution.
func FirstOf(goals ...Goal) Goal { return firstOfGoal{goals} }

func (g firstOfGoal) compile(a *analyzer) Call {
	calls := make([]Call, len(g.goals))
	for i, sub := range g.goals {
		calls[i] = sub.compile(a)
	}
	return newFirstOf(calls...)
}

// trivialGoal is the canonical True/False goal the preprocessor's pruning
// pass reduces trivially-true/trivially-false goals to.
type trivialGoal bool

// True builds a goal that always succeeds exactly once per restart cycle.
func True() Goal { return trivialGoal(true) }

// False builds a goal that never succeeds.
func False() Goal { return trivialGoal(false) }

type trivialCall struct {
	value   bool
	matched bool
}

func (c *trivialCall) Next() bool {
	if !c.value {
		return false
	}
	if c.matched {
		c.matched = false
		return false
	}
	c.matched = true
	return true
}

func (g trivialGoal) compile(a *analyzer) Call {
	return &trivialCall{value: bool(g)}
}

// inGoal is a membership test or generator over a fixed set of values.
type inGoal[T comparable] struct {
	x      *Variable
	write  bool
	values []T
}

// In builds a membership goal over values. If x is not yet bound when
// compiled, In runs in generate mode, iterating every value into x; if x is
// already bound, In runs in test mode.
func In[T comparable](x *Variable, values []T) Goal {
	return inGoal[T]{x: x, values: values}
}

func (g inGoal[T]) compile(a *analyzer) Call {
	ref, isWrite := ResolveVariable[T](a, g.x)
	return In_[T](ref, isWrite, g.values)
}

// In_ is the low-level constructor used by In's compiled form and by
// preprocessor-generated calls that already know the cell and mode.
func In_[T comparable](cell cellRef[T], write bool, values []T) Call {
	return in(cell, write, values)
}

// evalGoal wraps an arbitrary computation as a goal: in write mode (x not
// yet bound) it computes and stores; in read mode it computes and
// compares.
type evalGoal[T comparable] struct {
	x       *Variable
	compute func() (T, error)
}

// Eval builds a goal that computes compute() once per solution and binds
// (or checks) x against the result.
func Eval[T comparable](x *Variable, compute func() (T, error)) Goal {
	return evalGoal[T]{x: x, compute: compute}
}

func (g evalGoal[T]) compile(a *analyzer) Call {
	ref, isWrite := ResolveVariable[T](a, g.x)
	return eval(ref, isWrite, g.compute)
}

// assignGoal always writes value into x, regardless of whether x was
// already bound in the analyzer. It backs FirstOf/Or alternatives like
// b="odd" / b="even", which must behave as an assignment no matter which
// branch is compiled first.
type assignGoal[T comparable] struct {
	x     *Variable
	value T
}

// Assign builds a goal that unconditionally sets x to value.
func Assign[T comparable](x *Variable, value T) Goal {
	return assignGoal[T]{x: x, value: value}
}

func (g assignGoal[T]) compile(a *analyzer) Call {
	ref, _ := ResolveVariable[T](a, g.x)
	return eval(ref, true, func() (T, error) { return g.value, nil })
}

// compareGoal implements the comparison-evaluator family (Eq/Neq/Lt/...):
// both operands are read-mode terms (already bound variables or
// constants); the goal succeeds once if the comparison holds.
type compareGoal[T comparable] struct {
	x, y func(a *analyzer) func() T
	test func(cmp int) bool
	// equality is true for Eq/Neq, which only ever need to know whether the
	// two values are equal: they use Equal (DeepEqual fallback, never
	// errors) rather than Compare, so that Eq/Neq work for types with no
	// registered ordering (e.g. string), per operators.go's "equality
	// always works, ordering may not" contract.
	equality bool
}

func compareTermGetter[T comparable](t Term) func(a *analyzer) func() T {
	switch v := t.(type) {
	case Constant:
		lit := v.Value.(T)
		return func(a *analyzer) func() T { return func() T { return lit } }
	case *Variable:
		return func(a *analyzer) func() T {
			ref, _ := ResolveVariable[T](a, v)
			return ref.Get
		}
	default:
		panic(errors.WithStack(ErrBadTerm))
	}
}

func (g compareGoal[T]) compile(a *analyzer) Call {
	xGet, yGet := g.x(a), g.y(a)
	if g.equality {
		return &evalOnceCall{compute: func() (bool, error) {
			return g.test(boolToCmp(Equal(any(xGet()), any(yGet())))), nil
		}}
	}
	return &evalOnceCall{compute: func() (bool, error) {
		cmp, err := Compare(any(xGet()), any(yGet()))
		if err != nil {
			return false, err
		}
		return g.test(cmp), nil
	}}
}

// boolToCmp maps equality to Compare's 0/nonzero convention, so g.test (built
// for Compare's result) also works for the Equal-based path Eq/Neq use.
func boolToCmp(eq bool) int {
	if eq {
		return 0
	}
	return 1
}

// evalOnceCall yields once if compute() returns true: a comparison
// evaluator has no write target, so it is purely a read-only test.
type evalOnceCall struct {
	compute func() (bool, error)
	matched bool
}

func (c *evalOnceCall) Next() bool {
	if c.matched {
		c.matched = false
		return false
	}
	ok, err := c.compute()
	if err != nil || !ok {
		return false
	}
	c.matched = true
	return true
}

// Eq, Neq, Lt, Lte, Gt, Gte build comparison goals over two terms, using
// the registered operator table (operators.go) to compare their runtime
// values.
func Eq[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c == 0 }, equality: true}
}
func Neq[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c != 0 }, equality: true}
}
func Lt[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c < 0 }}
}
func Lte[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c <= 0 }}
}
func Gt[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c > 0 }}
}
func Gte[T comparable](x, y Term) Goal {
	return compareGoal[T]{x: compareTermGetter[T](x), y: compareTermGetter[T](y), test: func(c int) bool { return c >= 0 }}
}

// probGoal succeeds with a fixed probability, per coin flip.
type probGoal struct {
	p   float64
	rng *Rng
}

// Prob builds a goal that succeeds with probability p, drawn from rng.
func Prob(p float64, rng *Rng) Goal { return probGoal{p: p, rng: rng} }

func (g probGoal) compile(a *analyzer) Call { return prob(g.p, g.rng) }

// randomElementGoal picks one uniformly-random live row out of a
// predicate's table and binds its columns.
type randomElementGoal[Row comparable] struct {
	pred *Predicate[Row]
	rng  *Rng
	args []Term
}

// RandomElement builds a goal that binds args (one per column of pred, all
// write-mode) from one uniformly-chosen live row of pred's table.
func RandomElement[Row comparable](pred *Predicate[Row], rng *Rng, args ...Term) Goal {
	return randomElementGoal[Row]{pred: pred, rng: rng, args: args}
}

func (g randomElementGoal[Row]) compile(a *analyzer) Call {
	a.reportDependency(g.pred)
	if len(g.args) != len(g.pred.columns) {
		panic(errors.WithStack(ErrArityMismatch))
	}
	ops := make([]AnyMatchOperation[Row], len(g.args))
	for i, col := range g.pred.columns {
		ops[i] = col.buildMatch(a, g.args[i])
	}
	return randomElement[Row](g.pred.table, g.rng, ops)
}

// pickRandomlyGoal binds x to one of a fixed set of literals, chosen
// uniformly at random.
type pickRandomlyGoal[T any] struct {
	x      *Variable
	values []T
	rng    *Rng
}

// PickRandomly builds a goal that binds x to one of values, chosen
// uniformly at random.
func PickRandomly[T any](x *Variable, values []T, rng *Rng) Goal {
	return pickRandomlyGoal[T]{x: x, values: values, rng: rng}
}

func (g pickRandomlyGoal[T]) compile(a *analyzer) Call {
	ref, _ := ResolveVariable[T](a, g.x)
	return pickRandomly(ref, g.values, g.rng)
}

// aggregateGoal family: the aggregate's own output variable(s) are resolved
// against the parent analyzer a (so they remain visible to the rule head),
// while the inner body compiles against a forked analyzer, so its bindings
// stay private to the aggregation.

type sumGoal[T constraints.Integer | constraints.Float] struct {
	result  *Variable
	project *Variable
	body    Goal
}

// Sum builds a goal that binds result to the sum of project's value over
// every solution of body.
func Sum[T constraints.Integer | constraints.Float](result, project *Variable, body Goal) Goal {
	return sumGoal[T]{result: result, project: project, body: body}
}

func (g sumGoal[T]) compile(a *analyzer) Call {
	resultRef, _ := ResolveVariable[T](a, g.result)
	child := a.fork()
	inner := g.body.compile(child)
	projectRef, _ := ResolveVariable[T](child, g.project)
	return sum[T](inner, resultRef, projectRef.Get)
}

type countGoal struct {
	result *Variable
	body   Goal
}

// Count builds a goal that binds result to the number of solutions of
// body.
func Count(result *Variable, body Goal) Goal { return countGoal{result: result, body: body} }

func (g countGoal) compile(a *analyzer) Call {
	resultRef, _ := ResolveVariable[int](a, g.result)
	inner := g.body.compile(a.fork())
	return count(inner, resultRef)
}

type extremeGoal[T constraints.Ordered] struct {
	result  *Variable
	project *Variable
	body    Goal
	wantMax bool
}

// Max builds a goal that binds result to the greatest project value over
// every solution of body, ending if body has no solutions.
func Max[T constraints.Ordered](result, project *Variable, body Goal) Goal {
	return extremeGoal[T]{result: result, project: project, body: body, wantMax: true}
}

// Min builds a goal that binds result to the least project value over
// every solution of body, ending if body has no solutions.
func Min[T constraints.Ordered](result, project *Variable, body Goal) Goal {
	return extremeGoal[T]{result: result, project: project, body: body, wantMax: false}
}

func (g extremeGoal[T]) compile(a *analyzer) Call {
	resultRef, _ := ResolveVariable[T](a, g.result)
	child := a.fork()
	inner := g.body.compile(child)
	projectRef, _ := ResolveVariable[T](child, g.project)
	if g.wantMax {
		return max_[T](inner, resultRef, projectRef.Get)
	}
	return min_[T](inner, resultRef, projectRef.Get)
}

type maximalGoal[V any, S constraints.Ordered] struct {
	v, score *Variable
	body     Goal
	wantMax  bool
}

// Maximal builds a goal that binds v to the value it takes at the solution
// of body where score is greatest, provided body has at least one
// solution.
func Maximal[V any, S constraints.Ordered](v, score *Variable, body Goal) Goal {
	return maximalGoal[V, S]{v: v, score: score, body: body, wantMax: true}
}

// Minimal is Maximal with the sense of comparison reversed.
func Minimal[V any, S constraints.Ordered](v, score *Variable, body Goal) Goal {
	return maximalGoal[V, S]{v: v, score: score, body: body, wantMax: false}
}

func (g maximalGoal[V, S]) compile(a *analyzer) Call {
	// v typically occurs again inside body (e.g. Maximal(name, score,
	// Item(name, score))): body must compile first, in a forked scope, so
	// that occurrence is v's first-ever binding and gets write (generate)
	// mode. Only afterward is v resolved against the parent, which at that
	// point has never seen v and so gets a distinct, fresh output cell - the
	// one resolveHeadVar later finds for the rule head.
	child := a.fork()
	inner := g.body.compile(child)
	vInner, _ := ResolveVariable[V](child, g.v)
	sInner, _ := ResolveVariable[S](child, g.score)
	vRef, _ := ResolveVariable[V](a, g.v)
	if g.wantMax {
		return maximal[V, S](inner, vRef, vInner.Get, sInner.Get)
	}
	return minimal[V, S](inner, vRef, vInner.Get, sInner.Get)
}
