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
	"github.com/sirupsen/logrus"
)

// Program owns a set of predicates, their dependency graph, and a
// program-scoped RNG. Registering a predicate marks the topological order
// stale, and the next Update recomputes it, since rule attachment (and
// therefore the dependency graph) is expected to settle before then.
type Program struct {
	predicates map[PredicateId]AnyPredicate
	order      []AnyPredicate
	dirty      bool

	rng       *Rng
	firstTick bool
	log       logrus.FieldLogger
}

// NewProgram constructs an empty program with a freshly-seeded RNG and a
// no-op logger. Every random call site draws from a private child stream
// rather than the program's RNG directly, so call order across rules never
// affects the sequence any one rule sees.
func NewProgram(seed int64) *Program {
	noop := logrus.New()
	noop.SetOutput(discardWriter{})
	return &Program{
		predicates: make(map[PredicateId]AnyPredicate),
		rng:        NewRng(seed),
		firstTick:  true,
		log:        noop,
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetLogger attaches a structured logger for per-tick/per-predicate
// diagnostics. Passing nil restores the no-op logger.
func (prog *Program) SetLogger(log logrus.FieldLogger) {
	if log == nil {
		noop := logrus.New()
		noop.SetOutput(discardWriter{})
		prog.log = noop
		return
	}
	prog.log = log
}

// SetSeed reseeds the program's RNG. Existing Rng children already handed
// out to compiled calls are unaffected; call this before compiling any
// rule that uses Prob/RandomElement/PickRandomly if determinism across a
// reseed matters.
func (prog *Program) SetSeed(seed int64) { prog.rng.SetSeed(seed) }

// Rng returns a fresh child of the program's RNG, for a call site
// (Prob/RandomElement/PickRandomly) to own a private, order-independent
// sub-stream.
func (prog *Program) Rng() *Rng { return prog.rng.Child() }

// Register adds p to the program, keyed by its id. It marks the dependency
// order stale; the next Update recomputes it.
func Register[Row comparable](prog *Program, p *Predicate[Row]) *Predicate[Row] {
	prog.predicates[p.ID()] = p
	prog.dirty = true
	return p
}

// resolveOrder computes a topological order over every registered
// predicate by dependency: a predicate with no incoming dependency is
// ranked first. Depth-first postorder over Dependencies (each predicate is
// appended after everything it reads) gives one valid topological order; a
// cycle is detected via the in-progress marker and reported as
// ErrCyclicDependency.
func (prog *Program) resolveOrder() error {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[PredicateId]int, len(prog.predicates))
	order := make([]AnyPredicate, 0, len(prog.predicates))

	var visit func(p AnyPredicate) error
	visit = func(p AnyPredicate) error {
		switch state[p.ID()] {
		case done:
			return nil
		case inProgress:
			return errors.Wrapf(errors.WithStack(ErrCyclicDependency), "ted: predicate %s", p.Name())
		}
		state[p.ID()] = inProgress
		for _, dep := range p.Dependencies() {
			if _, ok := prog.predicates[dep.ID()]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[p.ID()] = done
		order = append(order, p)
		return nil
	}

	for _, p := range prog.predicates {
		if err := visit(p); err != nil {
			return err
		}
	}
	prog.order = order
	prog.dirty = false
	return nil
}

// Update runs one tick: recompute the dependency order if stale, then
// bring every predicate up to date in that order. The first call to Update
// also fires every dynamic predicate's initial-value emission.
func (prog *Program) Update() error {
	if prog.dirty {
		if err := prog.resolveOrder(); err != nil {
			return err
		}
	}
	for _, p := range prog.order {
		if !p.IsDynamic() {
			continue
		}
		entry := prog.log.WithField("predicate", p.Name())
		entry.Debug("ted: updating predicate")
		if err := p.tick(prog.firstTick); err != nil {
			entry.WithError(err).Error("ted: predicate update failed")
			return err
		}
	}
	prog.firstTick = false
	return nil
}
