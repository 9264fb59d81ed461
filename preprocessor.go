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

// This file covers the canonicalization passes that are not already
// folded into the goal/call compilation pipeline:
//
//  1. Hoisting functional expressions is handled inline, at match-operation
//     build time (predicate.go's funExprMatchOp): a FunExpr argument is
//     evaluated once per candidate row and compared against the row's
//     column, which is observationally identical to inserting a temporary
//     variable and a preceding Eval goal, without needing to splice a new
//     goal into an already-built Goal tree.
//  2. Constant-folding is Fold, below.
//  3. Definition inlining has no separate representation: a "definition" in
//     this rendering is simply a Go function from parameters to a Goal tree
//     (e.g. func Ancestor(x, y *Variable) Goal { return Or(...) }).
//     Calling it already produces a fresh, substituted body — Go's own
//     function abstraction does the alpha-conversion and substitution a
//     macro-style inliner would otherwise have to perform by hand.
//  4. Dropping trivially-true/false goals is Simplify, below.
//  5. Emitting calls is Goal.compile (goal.go) and Predicate.compileCall
//     (predicate.go).

// Fold constant-folds t: a FunExpr all of whose arguments fold to Constant
// is replaced by the Constant result of evaluating it; anything else is
// returned unchanged. Host code calls Fold on a term before using it as a
// goal argument.
func Fold(t Term) Term {
	f, ok := t.(*FunExpr)
	if !ok {
		return t
	}
	args := make([]Term, len(f.Args))
	allConst := true
	for i, a := range f.Args {
		folded := Fold(a)
		args[i] = folded
		if _, isConst := folded.(Constant); !isConst {
			allConst = false
		}
	}
	if !allConst {
		return &FunExpr{Op: f.Op, Args: args, Type: f.Type, Fn: f.Fn}
	}
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.(Constant).Value
	}
	v, err := f.Fn(vals)
	if err != nil {
		// An expression whose arguments are all known at rule-construction
		// time but whose evaluation fails (e.g. constant division by zero)
		// is a schema error: surface it immediately rather than deferring
		// to a per-tick Eval failure that would never actually occur.
		panic(err)
	}
	return Const(v)
}

// Simplify drops every trivially-true goal from goals and, if any goal is
// trivially false, collapses the whole body to the singleton false body.
// It does not recurse into
// combinators (And/Or/...): those already behave correctly when handed a
// True/False sub-goal, since trivialCall's Next() implements exactly the
// "always succeeds once"/"never succeeds" contract those combinators
// expect. Simplify exists to keep a body's printed/inspected form free of
// no-op goals, not because leaving them in would change evaluation.
func Simplify(goals []Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		if tv, ok := g.(trivialGoal); ok {
			if !bool(tv) {
				return []Goal{False()}
			}
			continue
		}
		out = append(out, g)
	}
	if len(out) == 0 {
		return []Goal{True()}
	}
	return out
}
