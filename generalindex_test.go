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

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

type bucketedRow struct {
	Group int
	Value int
}

func walkBucket(tbl *Table[bucketedRow], idx *GeneralIndex[bucketedRow, int], v int) []int {
	var vals []int
	for r := idx.FirstRowWithValue(v); r != NoRow; r = idx.NextRowWithValue(r) {
		vals = append(vals, tbl.Get(r).Value)
	}
	sort.Ints(vals)
	return vals
}

func TestGeneralIndexBucketMembership(t *testing.T) {
	tbl := NewTable[bucketedRow](4)
	idx := NewGeneralIndex[bucketedRow, int](tbl, func(r bucketedRow) int { return r.Group }, true)
	for i := 0; i < 10; i++ {
		tbl.Add(bucketedRow{Group: i % 3, Value: i})
	}
	for g := 0; g < 3; g++ {
		var want []int
		for i := 0; i < 10; i++ {
			if i%3 == g {
				want = append(want, i)
			}
		}
		got := walkBucket(tbl, idx, g)
		require.Equal(t, want, got, "bucket %d: %s", g, spew.Sdump(idx.values))
	}
}

func TestGeneralIndexRemoveUpdatesCount(t *testing.T) {
	tbl := NewTable[bucketedRow](4)
	idx := NewGeneralIndex[bucketedRow, int](tbl, func(r bucketedRow) int { return r.Group }, true)
	ids := make([]RowID, 4)
	for i := range ids {
		ids[i], _, _ = tbl.Add(bucketedRow{Group: 1, Value: i})
	}
	require.Equal(t, 4, len(walkBucket(tbl, idx, 1)))
	tbl.Remove(ids[0])
	require.Equal(t, 3, len(walkBucket(tbl, idx, 1)))
}

func TestGeneralIndexDoubleRemoveIsNoOp(t *testing.T) {
	tbl := NewTable[bucketedRow](4)
	idx := NewGeneralIndex[bucketedRow, int](tbl, func(r bucketedRow) int { return r.Group }, true)
	row := bucketedRow{Group: 0, Value: 1}
	// Exercise onRemove twice against the same, now-stale RowID directly: the
	// table itself never issues a double-remove, but the index must still
	// tolerate it (double removal is defined to be harmless).
	tbl.Add(row)
	idx.onRemove(0, row)
	require.NotPanics(t, func() { idx.onRemove(0, row) })
}

func TestGeneralIndexReindexReclaimsTombstones(t *testing.T) {
	tbl := NewTable[bucketedRow](8)
	idx := NewGeneralIndex[bucketedRow, int](tbl, func(r bucketedRow) int { return r.Group }, true)
	ids := make([]RowID, 8)
	for i := range ids {
		ids[i], _, _ = tbl.Add(bucketedRow{Group: i, Value: i})
	}
	for _, id := range ids {
		tbl.Remove(id)
	}
	idx.Reindex()
	for g := 0; g < 8; g++ {
		require.Equal(t, NoRow, idx.FirstRowWithValue(g))
	}
}
