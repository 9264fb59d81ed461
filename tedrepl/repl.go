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

// Package tedrepl parses strings of the form
// "pred(arg, ...), pred(arg, ...), ..." into a goal list against predicates
// a host has already registered by name, and synthesizes an answer
// predicate whose columns are the variables discovered in the query, in
// first-occurrence order. It does not provide an interactive command loop,
// a history, or readline editing, and no command in this repository wraps
// Parse in one.
package tedrepl

import (
	"reflect"
	"strconv"

	"github.com/pkg/errors"

	"github.com/kevinawalsh/ted"
)

// MaxArity bounds the number of distinct variables a single parsed query may
// discover, since the synthesized answer predicate's row type is a fixed-
// size array rather than a slice (ted.Predicate's Row parameter must be
// comparable, and Go slices are not).
const MaxArity = 32

// Row is the synthesized answer predicate's row type: one arbitrary-typed
// slot per discovered variable, in discovery order. Unused trailing slots
// are ignored once a query is parsed.
type Row [MaxArity]any

// Resolver resolves an external constant named by a $name or $"text" term.
type Resolver func(name string) (any, error)

// Registry looks up a predicate by name for Goal construction. A host
// populates it with its own ted.Predicate[Row] values (which already
// satisfy ted.Applicable via (*ted.Predicate[Row]).ApplyAny).
type Registry map[string]ted.Applicable

// ParseResult is the outcome of parsing one query: the synthesized answer
// predicate (not yet registered with any ted.Program — the caller does
// that) and the variable names that became its columns, in column order.
type ParseResult struct {
	Predicate *ted.Predicate[Row]
	Variables []string
}

// Parse parses text as a comma-separated goal list and synthesizes an
// answer predicate named resultName whose columns are the variables
// discovered in the query, in discovery order.
func Parse(resultName, text string, registry Registry, resolve Resolver) (*ParseResult, error) {
	p := &parser{lex: newLexer(text), registry: registry, resolve: resolve, varIndex: map[string]int{}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	goals, err := p.parseGoalList()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokEOF {
		return nil, errors.Errorf("tedrepl: unexpected trailing input at column %d", p.tok.col)
	}
	if len(p.varNames) > MaxArity {
		return nil, errors.Errorf("tedrepl: query discovers %d variables, exceeding MaxArity %d", len(p.varNames), MaxArity)
	}

	columns := make([]ted.AnyColumn[Row], len(p.varNames))
	head := make([]ted.Term, len(p.varNames))
	for i := range p.varNames {
		idx := i
		columns[i] = ted.NewColumn[Row, any](p.varNames[i],
			func(r Row) any { return r[idx] },
			func(r *Row, v any) { r[idx] = v })
		head[i] = p.varTerms[i]
	}
	pred := ted.NewPredicateColumns(resultName, columns)
	pred.If(head, goals...)

	return &ParseResult{Predicate: pred, Variables: p.varNames}, nil
}

// parser is a recursive-descent parser over the lexer's token stream,
// threading variable discovery (name -> *ted.Variable, in first-occurrence
// order) across the whole goal list, the way ted's own goal analyzer
// threads bindings across a rule body (analyzer.go).
type parser struct {
	lex      *lexer
	tok      token
	registry Registry
	resolve  Resolver

	varIndex map[string]int
	varNames []string
	varTerms []ted.Term
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expect(tt tokenType, what string) (token, error) {
	if p.tok.typ != tt {
		return token{}, errors.Errorf("tedrepl: expected %s at column %d, got %q", what, p.tok.col, p.tok.text)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

func (p *parser) parseGoalList() ([]ted.Goal, error) {
	var goals []ted.Goal
	for {
		g, err := p.parseGoal()
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
		if p.tok.typ != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

func (p *parser) parseGoal() (ted.Goal, error) {
	nameTok, err := p.expect(tokIdent, "predicate name")
	if err != nil {
		return nil, err
	}
	pred, ok := p.registry[nameTok.text]
	if !ok {
		return nil, errors.Errorf("tedrepl: undefined predicate %q", nameTok.text)
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []ted.Term
	if p.tok.typ != tokRParen {
		for {
			arg, err := p.parseArg()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.typ != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return pred.ApplyAny(args...), nil
}

func (p *parser) parseArg() (ted.Term, error) {
	switch p.tok.typ {
	case tokNumber:
		text := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return parseNumberLiteral(text)
	case tokString:
		text := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ted.Const(text), nil
	case tokDollar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		var name string
		switch p.tok.typ {
		case tokIdent:
			name = p.tok.text
		case tokString:
			name = p.tok.text
		default:
			return nil, errors.Errorf("tedrepl: expected name after '$' at column %d", p.tok.col)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.resolve == nil {
			return nil, errors.WithStack(ted.ErrMissingResolver)
		}
		v, err := p.resolve(name)
		if err != nil {
			return nil, errors.Wrapf(err, "tedrepl: resolving $%s", name)
		}
		return ted.Const(v), nil
	case tokIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.variableFor(name), nil
	default:
		return nil, errors.Errorf("tedrepl: expected an argument at column %d, got %q", p.tok.col, p.tok.text)
	}
}

// variableFor returns the shared *ted.Variable for name, creating it (and
// recording discovery order) on first occurrence across the whole query.
func (p *parser) variableFor(name string) *ted.Variable {
	if i, ok := p.varIndex[name]; ok {
		return p.varTerms[i].(*ted.Variable)
	}
	v := ted.NewVariable(name, reflect.TypeOf((*any)(nil)).Elem())
	p.varIndex[name] = len(p.varNames)
	p.varNames = append(p.varNames, name)
	p.varTerms = append(p.varTerms, v)
	return v
}

func parseNumberLiteral(text string) (ted.Term, error) {
	if i, err := strconv.Atoi(text); err == nil {
		return ted.Const(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "tedrepl: parse number %q", text)
	}
	return ted.Const(f), nil
}
