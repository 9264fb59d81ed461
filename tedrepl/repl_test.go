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

package tedrepl

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/ted"
)

type likesRow struct {
	Who   string
	Whom  string
}

func newLikesPredicate() *ted.Predicate[likesRow] {
	who := ted.NewColumn("who", func(r likesRow) string { return r.Who }, func(r *likesRow, v string) { r.Who = v })
	whom := ted.NewColumn("whom", func(r likesRow) string { return r.Whom }, func(r *likesRow, v string) { r.Whom = v })
	pred := ted.NewPredicate[likesRow]("likes", who, whom)
	for _, row := range []likesRow{{"alice", "bob"}, {"bob", "carol"}, {"alice", "carol"}} {
		pred.Table().Add(row)
	}
	return pred
}

func TestParseDiscoversVariablesInOrder(t *testing.T) {
	likes := newLikesPredicate()
	registry := Registry{"likes": likes}

	result, err := Parse("answer", "likes(X, Y)", registry, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Y"}, result.Variables)

	prog := ted.NewProgram(1)
	ted.Register(prog, result.Predicate)
	require.NoError(t, prog.Update())

	var got [][2]string
	for _, r := range result.Predicate.Table().Rows() {
		row := result.Predicate.Table().Get(r)
		got = append(got, [2]string{row[0].(string), row[1].(string)})
	}
	sort.Slice(got, func(i, j int) bool { return got[i][0]+got[i][1] < got[j][0]+got[j][1] })
	require.Equal(t, [][2]string{{"alice", "bob"}, {"alice", "carol"}, {"bob", "carol"}}, got)
}

func TestParseConstantArgument(t *testing.T) {
	likes := newLikesPredicate()
	registry := Registry{"likes": likes}

	result, err := Parse("answer", `likes("alice", Y)`, registry, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Y"}, result.Variables)

	prog := ted.NewProgram(1)
	ted.Register(prog, result.Predicate)
	require.NoError(t, prog.Update())

	var got []string
	for _, r := range result.Predicate.Table().Rows() {
		got = append(got, result.Predicate.Table().Get(r)[0].(string))
	}
	sort.Strings(got)
	require.Equal(t, []string{"bob", "carol"}, got)
}

func TestParseExternalConstant(t *testing.T) {
	likes := newLikesPredicate()
	registry := Registry{"likes": likes}
	resolve := func(name string) (any, error) {
		if name == "whoami" {
			return "alice", nil
		}
		return nil, require.AnError
	}

	result, err := Parse("answer", "likes($whoami, Y)", registry, resolve)
	require.NoError(t, err)
	require.Equal(t, []string{"Y"}, result.Variables)
}

func TestParseUndefinedPredicateErrors(t *testing.T) {
	_, err := Parse("answer", "mystery(X)", Registry{}, nil)
	require.Error(t, err)
}

func TestParseSyntaxErrors(t *testing.T) {
	likes := newLikesPredicate()
	registry := Registry{"likes": likes}
	_, err := Parse("answer", "likes(X, Y", registry, nil)
	require.Error(t, err)
}
