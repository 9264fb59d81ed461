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
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestTableAddGrows(t *testing.T) {
	tbl := NewTable[int](2)
	for i := 0; i < 10; i++ {
		_, ok, err := tbl.Add(i)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 10, tbl.Len())
	require.GreaterOrEqual(t, tbl.Cap(), 10)
	for i := 0; i < 10; i++ {
		require.Equal(t, i, tbl.Get(RowID(i)))
	}
}

func TestTableUniqueRejectsDuplicate(t *testing.T) {
	tbl := NewTable[int](4)
	tbl.SetUnique(true)
	_, ok, err := tbl.Add(7)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = tbl.Add(7)
	require.NoError(t, err)
	require.False(t, ok, "duplicate row under uniqueness must be rejected")
	require.Equal(t, 1, tbl.Len())
}

func TestTableRemoveSwapsLast(t *testing.T) {
	tbl := NewTable[int](4)
	ids := make([]RowID, 5)
	for i := 0; i < 5; i++ {
		ids[i], _, _ = tbl.Add(i * 10)
	}
	tbl.Remove(ids[1])
	require.Equal(t, 4, tbl.Len())
	// the last live row (40) should have been swapped into slot 1.
	require.Equal(t, 40, tbl.Get(ids[1]), "%s", spew.Sdump(tbl.data[:tbl.n]))
}

func TestTableClearPreservesCapacity(t *testing.T) {
	tbl := NewTable[int](8)
	for i := 0; i < 5; i++ {
		tbl.Add(i)
	}
	cap := tbl.Cap()
	tbl.Clear()
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, cap, tbl.Cap())
}

func TestTableReclaimDropsAndCompacts(t *testing.T) {
	tbl := NewTable[int](4)
	tbl.SetReclaim(func(row int) bool { return row%2 == 0 })
	for i := 0; i < 4; i++ {
		tbl.Add(i)
	}
	// table is now full (cap 4); the next Add triggers growOrCompact, which
	// reclaims even rows (0, 2) before considering growth.
	_, ok, err := tbl.Add(101)
	require.NoError(t, err)
	require.True(t, ok)
	for i := 0; i < tbl.Len(); i++ {
		require.False(t, tbl.reclaim(tbl.Get(RowID(i))), "reclaimed row survived compaction")
	}
}

func TestTableAddOrReplace(t *testing.T) {
	type row struct {
		K, V int
	}
	tbl := NewTable[row](4)
	NewKeyIndex[row, int](tbl, func(r row) int { return r.K })
	id, err := tbl.AddOrReplace(row{K: 1, V: 10})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	id2, err := tbl.AddOrReplace(row{K: 1, V: 20})
	require.NoError(t, err)
	require.Equal(t, id, id2)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, 20, tbl.Get(id).V)
}
