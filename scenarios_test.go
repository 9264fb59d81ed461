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
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

type numRow struct{ N int }

var numCol = NewColumn[numRow, int]("n", func(r numRow) int { return r.N }, func(r *numRow, v int) { r.N = v })

func numbers(ns ...int) []numRow {
	rows := make([]numRow, len(ns))
	for i, n := range ns {
		rows[i] = numRow{N: n}
	}
	return rows
}

func collectInts(p *Predicate[numRow]) []int {
	var out []int
	for _, r := range p.Table().Rows() {
		out = append(out, p.Table().Get(r).N)
	}
	sort.Ints(out)
	return out
}

func TestScenarioA_Intersection(t *testing.T) {
	P := NewPredicate[numRow]("P", numCol)
	Q := NewPredicate[numRow]("Q", numCol)
	for _, r := range numbers(1, 2, 3, 4, 5, 6) {
		P.Table().Add(r)
	}
	for _, r := range numbers(2, 4, 6, 8, 10) {
		Q.Table().Add(r)
	}
	R := NewPredicate[numRow]("R", numCol)
	a := numCol.Var("a")
	R.If([]Term{a}, Apply(P, a), Apply(Q, a))

	prog := NewProgram(1)
	Register(prog, P)
	Register(prog, Q)
	Register(prog, R)
	require.NoError(t, prog.Update())

	require.Equal(t, []int{2, 4, 6}, collectInts(R))
}

func TestScenarioB_SymmetricDifference(t *testing.T) {
	P := NewPredicate[numRow]("P", numCol)
	Q := NewPredicate[numRow]("Q", numCol)
	for _, r := range numbers(1, 2, 3, 4, 5, 6) {
		P.Table().Add(r)
	}
	for _, r := range numbers(2, 4, 6, 8, 10) {
		Q.Table().Add(r)
	}
	R := NewPredicate[numRow]("R", numCol)
	a1 := numCol.Var("a")
	R.If([]Term{a1}, Apply(P, a1), Not(Apply(Q, a1)))
	a2 := numCol.Var("a")
	R.If([]Term{a2}, Apply(Q, a2), Not(Apply(P, a2)))

	prog := NewProgram(1)
	Register(prog, P)
	Register(prog, Q)
	Register(prog, R)
	require.NoError(t, prog.Update())

	require.Equal(t, []int{1, 3, 5, 8, 10}, collectInts(R))
}

type dayRow struct{ Day string }
type dayPairRow struct{ Day, Next string }

func TestScenarioC_KeyIndexedJoin(t *testing.T) {
	dayCol := NewColumn[dayRow, string]("day", func(r dayRow) string { return r.Day }, func(r *dayRow, v string) { r.Day = v })
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

	Day := NewPredicate[dayRow]("Day", dayCol)
	for _, n := range names {
		Day.Table().Add(dayRow{Day: n})
	}

	dCol := NewColumn[dayPairRow, string]("d", func(r dayPairRow) string { return r.Day }, func(r *dayPairRow, v string) { r.Day = v })
	nCol := NewColumn[dayPairRow, string]("n", func(r dayPairRow) string { return r.Next }, func(r *dayPairRow, v string) { r.Next = v })
	NextDay := NewPredicate[dayPairRow]("NextDay", dCol, nCol)
	IndexByKey[dayPairRow, string](NextDay, dCol)
	for i, n := range names {
		NextDay.Table().Add(dayPairRow{Day: n, Next: names[(i+1)%len(names)]})
	}

	type mRow struct{ D, N string }
	mdCol := NewColumn[mRow, string]("d", func(r mRow) string { return r.D }, func(r *mRow, v string) { r.D = v })
	mnCol := NewColumn[mRow, string]("n", func(r mRow) string { return r.N }, func(r *mRow, v string) { r.N = v })
	M := NewPredicate[mRow]("M", mdCol, mnCol)
	d := dCol.Var("d")
	n := nCol.Var("n")
	M.If([]Term{d, n}, Apply(Day, d), Apply(NextDay, d, n))

	prog := NewProgram(1)
	Register(prog, Day)
	Register(prog, NextDay)
	Register(prog, M)
	require.NoError(t, prog.Update())

	got := map[string]string{}
	for _, r := range M.Table().Rows() {
		row := M.Table().Get(r)
		got[row.D] = row.N
	}
	for i, n := range names {
		require.Equal(t, names[(i+1)%len(names)], got[n])
	}
}

// oddOf builds a goal testing whether aVar's bound int value is odd, by
// comparing aVar%2 against the literal 1 through the same read-mode
// comparison machinery Eq/Neq/Lt use.
func oddOf(aVar *Variable) Goal {
	return compareGoal[int]{
		x: func(an *analyzer) func() int {
			ref, _ := ResolveVariable[int](an, aVar)
			return func() int { return ref.Get() % 2 }
		},
		y:    func(an *analyzer) func() int { return func() int { return 1 } },
		test: func(c int) bool { return c == 0 },
	}
}

func TestScenarioD_FirstOf(t *testing.T) {
	P := NewPredicate[numRow]("P", numCol)
	for _, r := range numbers(1, 2, 3, 4, 5, 6) {
		P.Table().Add(r)
	}

	type strRow struct{ S string }
	sCol := NewColumn[strRow, string]("s", func(r strRow) string { return r.S }, func(r *strRow, v string) { r.S = v })
	Q := NewPredicate[strRow]("Q", sCol)

	a := numCol.Var("a")
	b := sCol.Var("b")
	Q.If([]Term{b}, Apply(P, a), FirstOf(
		And(oddOf(a), Assign(b, "odd")),
		Assign(b, "even"),
	))

	prog := NewProgram(1)
	Register(prog, P)
	Register(prog, Q)
	require.NoError(t, prog.Update())

	var got []string
	for _, r := range Q.Table().Rows() {
		got = append(got, Q.Table().Get(r).S)
	}
	sort.Strings(got)
	require.Equal(t, []string{"even", "even", "even", "odd", "odd", "odd"}, got)
}

type itemRow struct {
	Name  string
	Score int
}

func TestScenarioE_Maximal(t *testing.T) {
	nameCol := NewColumn[itemRow, string]("name", func(r itemRow) string { return r.Name }, func(r *itemRow, v string) { r.Name = v })
	scoreCol := NewColumn[itemRow, int]("score", func(r itemRow) int { return r.Score }, func(r *itemRow, v int) { r.Score = v })
	Item := NewPredicate[itemRow]("Item", nameCol, scoreCol)
	Item.Table().Add(itemRow{Name: "a", Score: 3})
	Item.Table().Add(itemRow{Name: "b", Score: 9})
	Item.Table().Add(itemRow{Name: "c", Score: 5})

	type topRow struct{ Name string }
	topCol := NewColumn[topRow, string]("name", func(r topRow) string { return r.Name }, func(r *topRow, v string) { r.Name = v })
	Top := NewPredicate[topRow]("Top", topCol)

	name := nameCol.Var("name")
	score := scoreCol.Var("score")
	Top.If([]Term{name}, Maximal[string, int](name, score, Apply(Item, name, score)))

	prog := NewProgram(1)
	Register(prog, Item)
	Register(prog, Top)
	require.NoError(t, prog.Update())

	require.Equal(t, 1, Top.Table().Len())
	require.Equal(t, "b", Top.Table().Get(RowID(0)).Name)
}

type pairRow struct{ K, V int }

func TestScenarioF_Once(t *testing.T) {
	Keys := NewPredicate[numRow]("Keys", numCol)
	Keys.Table().Add(numRow{N: 1})
	Keys.Table().Add(numRow{N: 2})

	pkCol := NewColumn[pairRow, int]("k", func(r pairRow) int { return r.K }, func(r *pairRow, v int) { r.K = v })
	pvCol := NewColumn[pairRow, int]("v", func(r pairRow) int { return r.V }, func(r *pairRow, v int) { r.V = v })
	Pair := NewPredicate[pairRow]("Pair", pkCol, pvCol)
	Pair.Table().Add(pairRow{K: 1, V: 10})
	Pair.Table().Add(pairRow{K: 1, V: 20})
	Pair.Table().Add(pairRow{K: 1, V: 30})
	Pair.Table().Add(pairRow{K: 2, V: 40})

	First := NewPredicate[pairRow]("First", pkCol, pvCol)
	k := numCol.Var("k")
	v := pvCol.Var("v")
	First.If([]Term{k, v}, Apply(Keys, k), Once(Apply(Pair, k, v)))

	prog := NewProgram(1)
	Register(prog, Keys)
	Register(prog, Pair)
	Register(prog, First)
	require.NoError(t, prog.Update())

	require.Equal(t, 2, First.Table().Len())
	got := map[int]int{}
	for _, r := range First.Table().Rows() {
		row := First.Table().Get(r)
		got[row.K] = row.V
	}
	require.Equal(t, 10, got[1], "Once must commit to the first Pair solution for k=1")
	require.Equal(t, 40, got[2])
}

type memberRow struct {
	Name  string
	Group int
}
type peerRow struct{ A, B string }

func TestScenarioG_GeneralIndexSelfJoin(t *testing.T) {
	nameCol := NewColumn[memberRow, string]("name", func(r memberRow) string { return r.Name }, func(r *memberRow, v string) { r.Name = v })
	groupCol := NewColumn[memberRow, int]("group", func(r memberRow) int { return r.Group }, func(r *memberRow, v int) { r.Group = v })
	Member := NewPredicate[memberRow]("Member", nameCol, groupCol)
	IndexBy[memberRow, int](Member, groupCol)
	Member.Table().Add(memberRow{Name: "alice", Group: 1})
	Member.Table().Add(memberRow{Name: "bob", Group: 1})
	Member.Table().Add(memberRow{Name: "carol", Group: 2})

	aCol := NewColumn[peerRow, string]("a", func(r peerRow) string { return r.A }, func(r *peerRow, v string) { r.A = v })
	bCol := NewColumn[peerRow, string]("b", func(r peerRow) string { return r.B }, func(r *peerRow, v string) { r.B = v })
	Peer := NewPredicate[peerRow]("Peer", aCol, bCol)

	aName := nameCol.Var("a")
	bName := nameCol.Var("b")
	g := groupCol.Var("g")
	Peer.If([]Term{aName, bName},
		Apply(Member, aName, g),
		Apply(Member, bName, g),
		Neq[string](aName, bName),
	)

	prog := NewProgram(1)
	Register(prog, Member)
	Register(prog, Peer)
	require.NoError(t, prog.Update())

	require.Equal(t, 2, Peer.Table().Len())
	seen := map[[2]string]bool{}
	for _, r := range Peer.Table().Rows() {
		row := Peer.Table().Get(r)
		seen[[2]string{row.A, row.B}] = true
	}
	require.True(t, seen[[2]string{"alice", "bob"}])
	require.True(t, seen[[2]string{"bob", "alice"}])
}

func TestScenarioH_DuplicateKeyErrorEndToEnd(t *testing.T) {
	Seed := NewPredicate[numRow]("Seed", numCol)
	Seed.Table().Add(numRow{N: 5})
	Seed.Table().Add(numRow{N: 5})

	KOut := NewPredicate[numRow]("KOut", numCol)
	IndexByKey[numRow, int](KOut, numCol)
	k := numCol.Var("k")
	KOut.If([]Term{k}, Apply(Seed, k))

	prog := NewProgram(1)
	Register(prog, Seed)
	Register(prog, KOut)
	err := prog.Update()
	require.Error(t, err, "deriving two rows with the same indexed key must surface as an error")
}
