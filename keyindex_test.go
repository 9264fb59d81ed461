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

	"github.com/stretchr/testify/require"
)

type kvRow struct {
	K, V int
}

func TestKeyIndexRowWithKey(t *testing.T) {
	tbl := NewTable[kvRow](4)
	idx := NewKeyIndex[kvRow, int](tbl, func(r kvRow) int { return r.K })
	for i := 0; i < 6; i++ {
		_, ok, err := tbl.Add(kvRow{K: i, V: i * i})
		require.NoError(t, err)
		require.True(t, ok)
	}
	for i := 0; i < 6; i++ {
		r := idx.RowWithKey(i)
		require.True(t, r.Valid())
		require.Equal(t, i*i, tbl.Get(r).V)
	}
	require.Equal(t, NoRow, idx.RowWithKey(99))
}

func TestKeyIndexDuplicateKeyRejected(t *testing.T) {
	tbl := NewTable[kvRow](4)
	NewKeyIndex[kvRow, int](tbl, func(r kvRow) int { return r.K })
	_, ok, err := tbl.Add(kvRow{K: 1, V: 1})
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = tbl.Add(kvRow{K: 1, V: 2})
	require.Error(t, err)
	require.False(t, ok)
	require.Equal(t, 1, tbl.Len(), "table length stays 1 after rejected duplicate")
	require.Equal(t, 1, tbl.Get(RowID(0)).V, "first row remains")
}

func TestKeyIndexBucketInvariant(t *testing.T) {
	tbl := NewTable[kvRow](8)
	idx := NewKeyIndex[kvRow, int](tbl, func(r kvRow) int { return r.K })
	for i := 0; i < 8; i++ {
		tbl.Add(kvRow{K: i, V: i})
	}
	require.Equal(t, 2*tbl.Cap(), len(idx.buckets))
	require.Equal(t, uint64(len(idx.buckets)-1), idx.mask)
}

func TestKeyIndexRemoveAndReinsert(t *testing.T) {
	tbl := NewTable[kvRow](4)
	idx := NewKeyIndex[kvRow, int](tbl, func(r kvRow) int { return r.K })
	id, _, _ := tbl.Add(kvRow{K: 5, V: 50})
	require.True(t, idx.RowWithKey(5).Valid())
	tbl.Remove(id)
	require.Equal(t, NoRow, idx.RowWithKey(5))
	tbl.Add(kvRow{K: 5, V: 51})
	r := idx.RowWithKey(5)
	require.True(t, r.Valid())
	require.Equal(t, 51, tbl.Get(r).V)
}
