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

// tableIndex is the notification interface every index attached to a Table
// implements, so the table can keep them in sync without knowing their
// column or key types.
type tableIndex[Row any] interface {
	onAdd(r RowID, row Row)
	onRemove(r RowID, row Row)
	onExpand(newCap int)
	onClear()
	onRebuild(data []Row, n int)
}

// keyIndexer is implemented by a Table's key index, if it has one. It lets
// Table.AddOrReplace find an existing row with the same key as a candidate
// row without Table needing to know the key's type.
type keyIndexer[Row any] interface {
	tableIndex[Row]
	rowWithKeyOf(row Row) RowID
}

// PostCompactionTargetLoad is the live/capacity ratio Table.Reclaim aims
// for: if reclamation leaves fewer live rows than this fraction of the
// current capacity, the destination array is left at the same size (rather
// than being doubled again on the very next Add).
const PostCompactionTargetLoad = 0.5

// Table is a growable, dense array of row tuples for one predicate. Row is
// typically a small struct of column values.
type Table[Row comparable] struct {
	data []Row
	n    int

	unique  bool
	rowSet  *rowSet[Row]
	hashRow func(Row) uint64

	indices  []tableIndex[Row]
	keyIndex keyIndexer[Row]

	reclaim func(Row) bool
}

// NewTable constructs an empty table with the given initial capacity
// (rounded up to a power of two).
func NewTable[Row comparable](initialCapacity int) *Table[Row] {
	cap := nextPowerOfTwo(initialCapacity)
	if cap < 1 {
		cap = 1
	}
	return &Table[Row]{
		data:    make([]Row, cap),
		hashRow: defaultRowHash[Row],
	}
}

func defaultRowHash[Row comparable](row Row) uint64 {
	return hashKey(row)
}

// SetUnique enables uniqueness enforcement: Add will refuse a row that is
// equal (under ==) to any existing live row. SetHashRow may be used first to
// override the hash used to bucket candidate rows in the row-set.
func (t *Table[Row]) SetUnique(unique bool) {
	t.unique = unique
	if unique && t.rowSet == nil {
		t.rowSet = newRowSet[Row](len(t.data), t.hashRow)
	}
}

// SetHashRow overrides the hash function used by the uniqueness row-set.
func (t *Table[Row]) SetHashRow(h func(Row) uint64) {
	t.hashRow = h
	if t.rowSet != nil {
		t.rowSet.hash = h
	}
}

// SetReclaim installs a reclamation predicate: on capacity overflow, rows
// for which reclaim returns true are dropped instead of growing the table.
func (t *Table[Row]) SetReclaim(reclaim func(Row) bool) {
	t.reclaim = reclaim
}

// AttachIndex registers idx to be notified of every future Add/Remove/
// expansion/clear. If idx is also a key index, it becomes the table's
// AddOrReplace target (a table has at most one key index).
func (t *Table[Row]) AttachIndex(idx tableIndex[Row]) {
	t.indices = append(t.indices, idx)
	if ki, ok := idx.(keyIndexer[Row]); ok {
		t.keyIndex = ki
	}
}

// Len returns the number of live rows.
func (t *Table[Row]) Len() int { return t.n }

// Cap returns the table's current backing capacity, always a power of two.
func (t *Table[Row]) Cap() int { return len(t.data) }

// Get returns the row stored at r. The caller must ensure r is live; Get
// does not check r.Valid().
func (t *Table[Row]) Get(r RowID) Row { return t.data[r] }

// Rows returns every live row id in storage order, [0, Len()).
func (t *Table[Row]) Rows() []RowID {
	ids := make([]RowID, t.n)
	for i := range ids {
		ids[i] = RowID(i)
	}
	return ids
}

// Add appends row, growing or compacting the table first if it is full.
// If uniqueness is enabled and row duplicates a live row, Add is a no-op
// (length is not incremented, indices are not touched) and returns false.
// If row's key collides with an existing live row under the table's key
// index, Add returns ErrDuplicateKey; the slot data[n] is cleared again and
// n is not incremented, so the row is not live and the table's prior state
// is observably unchanged.
func (t *Table[Row]) Add(row Row) (rowID RowID, added bool, err error) {
	if t.n >= len(t.data) {
		if err := t.growOrCompact(); err != nil {
			return NoRow, false, err
		}
	}
	if t.unique {
		if _, found := t.rowSet.find(row); found {
			return NoRow, false, nil
		}
	}
	r := RowID(t.n)
	t.data[r] = row
	if t.unique {
		t.rowSet.insert(r, row)
	}
	if dupErr := t.notifyAdd(r, row); dupErr != nil {
		if t.unique {
			t.rowSet.remove(r, row)
		}
		var zero Row
		t.data[r] = zero
		return NoRow, false, dupErr
	}
	t.n++
	return r, true, nil
}

// notifyAdd tells every attached index about r, recovering a key-index
// collision (KeyIndex.onAdd panics, since the tableIndex interface has no
// error return) into a plain error the rest of Add can handle uniformly. If
// an index partway through the list panics, every index notified before it
// is rolled back via onRemove so none of them is left pointing at a row
// slot that the caller is about to treat as never having existed.
func (t *Table[Row]) notifyAdd(r RowID, row Row) (err error) {
	notified := 0
	defer func() {
		if p := recover(); p != nil {
			for _, idx := range t.indices[:notified] {
				idx.onRemove(r, row)
			}
			if e, ok := p.(error); ok {
				err = e
				return
			}
			panic(p)
		}
	}()
	for _, idx := range t.indices {
		idx.onAdd(r, row)
		notified++
	}
	return nil
}

// AddOrReplace inserts row, or overwrites the existing row with the same
// key if one exists. Requires a key index to have been attached.
func (t *Table[Row]) AddOrReplace(row Row) (RowID, error) {
	if t.keyIndex == nil {
		return NoRow, errors.WithStack(ErrIndexRequired)
	}
	existing := t.keyIndex.rowWithKeyOf(row)
	if existing == NoRow {
		r, ok, err := t.Add(row)
		if err != nil {
			return NoRow, err
		}
		if !ok {
			return NoRow, errors.WithStack(ErrNotUnique)
		}
		return r, nil
	}
	return existing, t.ReplaceRow(existing, row)
}

// ReplaceRow overwrites rowId's contents in place. If the table has only a
// key index, the overwrite happens without touching it (the caller is
// responsible for keeping the key column unchanged, which KeyIndex assumes
// between Add and any Reclaim). If there are other indices, the old row is
// removed from each non-key index and the new one reinserted, since its
// non-key columns may have changed bucket.
func (t *Table[Row]) ReplaceRow(rowId RowID, row Row) error {
	old := t.data[rowId]
	if t.unique {
		t.rowSet.remove(rowId, old)
	}
	onlyKeyIndex := len(t.indices) == 0 ||
		(len(t.indices) == 1 && t.indices[0] == tableIndex[Row](t.keyIndex))
	if !onlyKeyIndex {
		for _, idx := range t.indices {
			if idx == tableIndex[Row](t.keyIndex) {
				continue
			}
			idx.onRemove(rowId, old)
		}
	}
	t.data[rowId] = row
	if t.unique {
		t.rowSet.insert(rowId, row)
	}
	if !onlyKeyIndex {
		for _, idx := range t.indices {
			if idx == tableIndex[Row](t.keyIndex) {
				continue
			}
			idx.onAdd(rowId, row)
		}
	}
	return nil
}

// Remove deletes rowId by swapping the last live row into its slot
// (index-aware: every attached index is notified of both the removal and,
// if a swap occurred, the relocation).
func (t *Table[Row]) Remove(rowId RowID) {
	if !rowId.Valid() || int(rowId) >= t.n {
		return
	}
	old := t.data[rowId]
	if t.unique {
		t.rowSet.remove(rowId, old)
	}
	for _, idx := range t.indices {
		idx.onRemove(rowId, old)
	}
	last := RowID(t.n - 1)
	if rowId != last {
		moved := t.data[last]
		t.data[rowId] = moved
		if t.unique {
			t.rowSet.remove(last, moved)
			t.rowSet.insert(rowId, moved)
		}
		for _, idx := range t.indices {
			idx.onRemove(last, moved)
			idx.onAdd(rowId, moved)
		}
	}
	var zero Row
	t.data[last] = zero
	t.n--
}

// Clear empties the table and every attached index, but keeps the backing
// array's capacity.
func (t *Table[Row]) Clear() {
	var zero Row
	for i := 0; i < t.n; i++ {
		t.data[i] = zero
	}
	t.n = 0
	if t.rowSet != nil {
		t.rowSet = newRowSet[Row](len(t.data), t.hashRow)
	}
	for _, idx := range t.indices {
		idx.onClear()
	}
}

// growOrCompact doubles the table's capacity, unless a reclamation
// predicate is set and compaction can avoid growth (or can grow less).
func (t *Table[Row]) growOrCompact() error {
	if t.reclaim != nil {
		return t.Reclaim()
	}
	return t.expand(len(t.data) * 2)
}

// expand grows the backing array to newCap (which must be a power of two
// at least as large as the current live length) and rebuilds every index
// and the row-set, since index bucket counts are defined relative to table
// capacity.
func (t *Table[Row]) expand(newCap int) error {
	newData := make([]Row, newCap)
	copy(newData, t.data[:t.n])
	t.data = newData
	if t.rowSet != nil {
		t.rowSet = newRowSet[Row](newCap, t.hashRow)
		for i := 0; i < t.n; i++ {
			t.rowSet.insert(RowID(i), t.data[i])
		}
	}
	for _, idx := range t.indices {
		idx.onExpand(newCap)
		idx.onRebuild(t.data, t.n)
	}
	return nil
}

// Reclaim drops every live row for which the reclamation predicate is true,
// compacting survivors into contiguous order at the front of the array,
// then rebuilds every index and the row-set from the compacted result in a
// single pass. If no reclamation predicate is set this is a no-op.
//
// Reclaim assumes the caller never mutates a row's key-column values
// between insertion and reclamation: the rebuild walks the compacted array
// once and re-derives every index purely from current row contents.
func (t *Table[Row]) Reclaim() error {
	if t.reclaim == nil {
		return nil
	}
	survivors := make([]Row, 0, t.n)
	for i := 0; i < t.n; i++ {
		row := t.data[i]
		if !t.reclaim(row) {
			survivors = append(survivors, row)
		}
	}
	load := float64(len(survivors)) / float64(len(t.data))
	newCap := len(t.data)
	if load > PostCompactionTargetLoad || len(survivors) >= len(t.data) {
		newCap = nextPowerOfTwo(len(survivors) + 1)
		if newCap <= len(t.data) {
			newCap = len(t.data) * 2
		}
	}
	newData := make([]Row, newCap)
	copy(newData, survivors)
	t.data = newData
	t.n = len(survivors)

	if t.rowSet != nil {
		t.rowSet = newRowSet[Row](newCap, t.hashRow)
		for i := 0; i < t.n; i++ {
			t.rowSet.insert(RowID(i), t.data[i])
		}
	}
	for _, idx := range t.indices {
		idx.onExpand(newCap)
		idx.onRebuild(t.data, t.n)
	}
	return nil
}

// rowSet is a closed-addressed hash of live row numbers, used to enforce
// uniqueness at insertion time. It is rebuilt whenever its owning Table
// expands or is cleared, since bucket count tracks table capacity.
type rowSet[Row comparable] struct {
	buckets []RowID // empty slot == NoRow
	rows    []Row   // parallel, for equality checks on probe
	mask    uint64
	hash    func(Row) uint64
}

func newRowSet[Row comparable](tableCap int, hash func(Row) uint64) *rowSet[Row] {
	n := nextPowerOfTwo(tableCap * 2)
	if n < 2 {
		n = 2
	}
	buckets := make([]RowID, n)
	for i := range buckets {
		buckets[i] = NoRow
	}
	return &rowSet[Row]{
		buckets: buckets,
		rows:    make([]Row, n),
		mask:    uint64(n - 1),
		hash:    hash,
	}
}

func (s *rowSet[Row]) find(row Row) (RowID, bool) {
	i := s.hash(row) & s.mask
	for {
		r := s.buckets[i]
		if r == NoRow {
			return NoRow, false
		}
		if s.rows[i] == row {
			return r, true
		}
		i = (i + 1) & s.mask
	}
}

func (s *rowSet[Row]) insert(r RowID, row Row) {
	i := s.hash(row) & s.mask
	for s.buckets[i] != NoRow {
		i = (i + 1) & s.mask
	}
	s.buckets[i] = r
	s.rows[i] = row
}

func (s *rowSet[Row]) remove(r RowID, row Row) {
	i := s.hash(row) & s.mask
	for s.buckets[i] != NoRow {
		if s.buckets[i] == r && s.rows[i] == row {
			// Linear-probe deletion: shift the following cluster back to
			// avoid breaking probe chains.
			s.buckets[i] = NoRow
			var zero Row
			s.rows[i] = zero
			j := (i + 1) & s.mask
			for s.buckets[j] != NoRow {
				moveR, moveRow := s.buckets[j], s.rows[j]
				s.buckets[j] = NoRow
				s.rows[j] = zero
				k := s.hash(moveRow) & s.mask
				for s.buckets[k] != NoRow {
					k = (k + 1) & s.mask
				}
				s.buckets[k] = moveR
				s.rows[k] = moveRow
				j = (j + 1) & s.mask
			}
			return
		}
		i = (i + 1) & s.mask
	}
}
