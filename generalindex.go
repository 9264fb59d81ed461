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

// GeneralIndex is a multi-valued hash index: each bucket roots a linked
// list of every live row projecting to that bucket's value. previousRow
// is only materialized when mutation (Remove) support is requested, since
// it costs one extra RowID per table slot.
type GeneralIndex[Row comparable, C comparable] struct {
	values  []C
	firstRow []RowID
	count    []int
	occupied []bool
	mask     uint64

	nextRow     []RowID
	previousRow []RowID // nil unless mutation-enabled

	project func(Row) C

	completeDeletions int

	enumDirect bool
	ordinalOf  func(C) int
	maxOrdinal int
}

// NewGeneralIndex creates a GeneralIndex over table, projecting each row's
// indexed column with project, and attaches it to table. mutation enables
// O(1) Remove by also maintaining back-links.
func NewGeneralIndex[Row comparable, C comparable](table *Table[Row], project func(Row) C, mutation bool) *GeneralIndex[Row, C] {
	idx := &GeneralIndex[Row, C]{project: project}
	idx.allocateBuckets(table.Cap())
	idx.allocateRows(table.Cap(), mutation)
	table.AttachIndex(idx)
	return idx
}

// NewEnumGeneralIndex creates a direct-addressed GeneralIndex over an
// enumerated column: buckets.length = maxOrdinal+1 and Expand never resizes
// the bucket array, only nextRow/previousRow (to track table growth).
func NewEnumGeneralIndex[Row comparable, C comparable](table *Table[Row], project func(Row) C, ordinal func(C) int, maxOrdinal int, mutation bool) *GeneralIndex[Row, C] {
	idx := &GeneralIndex[Row, C]{
		project:    project,
		enumDirect: true,
		ordinalOf:  ordinal,
		maxOrdinal: maxOrdinal,
	}
	n := maxOrdinal + 1
	idx.values = make([]C, n)
	idx.firstRow = make([]RowID, n)
	idx.count = make([]int, n)
	idx.occupied = make([]bool, n)
	for i := range idx.firstRow {
		idx.firstRow[i] = NoRow
	}
	idx.mask = ^uint64(0)
	idx.allocateRows(table.Cap(), mutation)
	table.AttachIndex(idx)
	return idx
}

func (idx *GeneralIndex[Row, C]) allocateBuckets(tableCap int) {
	n := nextPowerOfTwo(tableCap * 2)
	if n < 2 {
		n = 2
	}
	idx.values = make([]C, n)
	idx.firstRow = make([]RowID, n)
	idx.count = make([]int, n)
	idx.occupied = make([]bool, n)
	for i := range idx.firstRow {
		idx.firstRow[i] = NoRow
	}
	idx.mask = uint64(n - 1)
}

func (idx *GeneralIndex[Row, C]) allocateRows(tableCap int, mutation bool) {
	idx.nextRow = make([]RowID, tableCap)
	for i := range idx.nextRow {
		idx.nextRow[i] = NoRow
	}
	if mutation {
		idx.previousRow = make([]RowID, tableCap)
		for i := range idx.previousRow {
			idx.previousRow[i] = NoRow
		}
	}
}

func (idx *GeneralIndex[Row, C]) bucketFor(v C) int {
	if idx.enumDirect {
		return idx.ordinalOf(v)
	}
	return int(hashKey(v) & idx.mask)
}

// probe finds v's bucket, or the first empty slot where it would go.
func (idx *GeneralIndex[Row, C]) probe(v C) (slot int, found bool) {
	n := len(idx.values)
	start := idx.bucketFor(v)
	for i := 0; i < n; i++ {
		slot = (start + i) % n
		if !idx.occupied[slot] {
			return slot, false
		}
		if idx.values[slot] == v {
			return slot, true
		}
	}
	return -1, false
}

// FirstRowWithValue returns the first live row whose column equals v, or
// NoRow. A bucket whose list was emptied by Remove (firstRow == DeletedRow)
// reports NoRow, exactly like a bucket that was never occupied.
func (idx *GeneralIndex[Row, C]) FirstRowWithValue(v C) RowID {
	slot, found := idx.probe(v)
	if !found {
		return NoRow
	}
	fr := idx.firstRow[slot]
	if fr == DeletedRow {
		return NoRow
	}
	return fr
}

// NextRowWithValue continues the walk started by FirstRowWithValue.
func (idx *GeneralIndex[Row, C]) NextRowWithValue(r RowID) RowID {
	return idx.nextRow[r]
}

// CountsByKey returns, for every key currently present with at least one
// live row, the live row count. Emptied tombstone buckets are skipped.
func (idx *GeneralIndex[Row, C]) CountsByKey() map[C]int {
	m := make(map[C]int)
	for i, occ := range idx.occupied {
		if occ && idx.firstRow[i] != DeletedRow {
			m[idx.values[i]] = idx.count[i]
		}
	}
	return m
}

// Keys returns every value currently present with at least one live row.
func (idx *GeneralIndex[Row, C]) Keys() []C {
	var ks []C
	for i, occ := range idx.occupied {
		if occ && idx.firstRow[i] != DeletedRow {
			ks = append(ks, idx.values[i])
		}
	}
	return ks
}

func (idx *GeneralIndex[Row, C]) maybeReindex() {
	if idx.completeDeletions > len(idx.values)/4 {
		idx.Reindex()
	}
}

// Reindex clears and rebuilds bucket occupancy from the current nextRow
// chains, reclaiming tombstoned buckets. Exported so callers (and table
// rebuilds) can force it directly.
func (idx *GeneralIndex[Row, C]) Reindex() {
	// Walk every live chain before clearing, then rebuild from scratch; the
	// chains themselves (nextRow/previousRow per row) are left untouched,
	// only bucket occupancy/firstRow bookkeeping is redone.
	type chain struct {
		v     C
		first RowID
		n     int
	}
	var chains []chain
	for i, occ := range idx.occupied {
		if occ && idx.firstRow[i] != DeletedRow {
			chains = append(chains, chain{idx.values[i], idx.firstRow[i], idx.count[i]})
		}
	}
	for i := range idx.occupied {
		idx.occupied[i] = false
		idx.firstRow[i] = NoRow
		idx.count[i] = 0
	}
	idx.completeDeletions = 0
	for _, c := range chains {
		slot, found := idx.probe(c.v)
		if found {
			// Should not happen post-clear, but merge defensively.
			idx.firstRow[slot] = c.first
			idx.count[slot] += c.n
			continue
		}
		idx.values[slot] = c.v
		idx.firstRow[slot] = c.first
		idx.count[slot] = c.n
		idx.occupied[slot] = true
	}
}

func (idx *GeneralIndex[Row, C]) onAdd(r RowID, row Row) {
	idx.maybeReindex()
	v := idx.project(row)
	slot, found := idx.probe(v)
	if !found {
		idx.values[slot] = v
		idx.occupied[slot] = true
		idx.firstRow[slot] = NoRow
		idx.count[slot] = 0
	}
	if idx.firstRow[slot] == DeletedRow {
		idx.firstRow[slot] = NoRow
		idx.count[slot] = 0
	}
	old := idx.firstRow[slot]
	idx.nextRow[r] = old
	if idx.previousRow != nil {
		idx.previousRow[r] = NoRow
		if old != NoRow {
			idx.previousRow[old] = r
		}
	}
	idx.firstRow[slot] = r
	idx.count[slot]++
}

// onRemove unlinks r from its bucket's list. Requires previousRow
// (mutation-enabled). Removing a row that is no longer present in its
// bucket's list is a no-op: double-deletion is harmless rather than an
// error.
func (idx *GeneralIndex[Row, C]) onRemove(r RowID, row Row) {
	if idx.previousRow == nil {
		return
	}
	v := idx.project(row)
	slot, found := idx.probe(v)
	if !found {
		return
	}
	if idx.firstRow[slot] != r && idx.previousRow[r] == NoRow {
		// r is not the bucket head and has no recorded predecessor: it is
		// already unlinked (double-delete). No-op.
		return
	}
	prev := idx.previousRow[r]
	next := idx.nextRow[r]
	if prev == NoRow {
		if idx.firstRow[slot] != r {
			return // already removed
		}
		idx.firstRow[slot] = next
	} else {
		idx.nextRow[prev] = next
	}
	if next != NoRow {
		idx.previousRow[next] = prev
	}
	idx.nextRow[r] = NoRow
	idx.previousRow[r] = NoRow
	idx.count[slot]--
	if idx.count[slot] <= 0 {
		idx.count[slot] = 0
		idx.firstRow[slot] = DeletedRow
		idx.completeDeletions++
	}
}

func (idx *GeneralIndex[Row, C]) onExpand(newCap int) {
	if !idx.enumDirect {
		idx.allocateBuckets(newCap)
	}
	mutation := idx.previousRow != nil
	idx.allocateRows(newCap, mutation)
}

func (idx *GeneralIndex[Row, C]) onClear() {
	for i := range idx.occupied {
		idx.occupied[i] = false
		idx.firstRow[i] = NoRow
		idx.count[i] = 0
	}
	for i := range idx.nextRow {
		idx.nextRow[i] = NoRow
	}
	for i := range idx.previousRow {
		idx.previousRow[i] = NoRow
	}
	idx.completeDeletions = 0
}

func (idx *GeneralIndex[Row, C]) onRebuild(data []Row, n int) {
	idx.onClear()
	for i := 0; i < n; i++ {
		idx.onAdd(RowID(i), data[i])
	}
}
