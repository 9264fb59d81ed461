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

import "github.com/pkg/errors"

// Schema errors: raised at predicate/rule construction time, before any
// tick runs. These abort program construction.
var (
	ErrPredicateCollision = errors.New("ted: predicate name already declared")
	ErrUnknownColumn      = errors.New("ted: unknown column name")
	ErrArityMismatch      = errors.New("ted: wrong number of arguments")
	ErrBadTerm            = errors.New("ted: unsupported term in this argument position")
	ErrUnsafeRule         = errors.New("ted: rule head variable does not appear in the body")
	ErrCyclicDependency   = errors.New("ted: predicate dependency graph has a cycle")
	ErrNoIndex            = errors.New("ted: predicate has no index usable for this goal pattern")
)

// Determinism errors: raised during Update() by a table mutation. These
// abort the current tick; the offending table is left as it was just before
// the offending insert.
var (
	ErrDuplicateKey  = errors.New("ted: duplicate key inserted into key index")
	ErrNotUnique     = errors.New("ted: row violates table uniqueness constraint")
	ErrRowNotFound   = errors.New("ted: no row with that key")
	ErrIndexRequired = errors.New("ted: AddOrReplace requires a key index")
)

// Evaluation errors: raised while a rule is firing. The scheduler makes no
// recovery attempt; these propagate out of Update(). ErrUnboundEvalOperand
// is the exception: it is raised (as a panic) when a rule is built, by the
// FunExpr operand resolver in predicate.go.
var (
	ErrUndefinedOperator  = errors.New("ted: operator not defined for this type")
	ErrMissingResolver    = errors.New("ted: no resolver registered for external constant")
	ErrUnboundEvalOperand = errors.New("ted: Eval operand is unbound")
)

// Dead-code errors: raised at preprocess time when a rule body is reducible
// to false. DeadRuleMode controls whether this raises ErrDeadRule or
// silently drops the rule; see Predicate.SetDeadRuleMode.
var ErrDeadRule = errors.New("ted: rule body is always false")

// DeadRuleMode selects how the preprocessor handles a rule body that
// constant-folds to always-false.
type DeadRuleMode int

const (
	// DropDeadRule silently removes the rule from its predicate's rule list.
	DropDeadRule DeadRuleMode = iota
	// RaiseDeadRule makes (*Predicate).If panic with ErrDeadRule.
	RaiseDeadRule
)
