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

// Enum is implemented by a column's value type to opt a KeyIndex or
// GeneralIndex attached to that column into direct-addressed storage: the
// value's Ordinal indexes the bucket array directly instead of being
// hashed, and the bucket array is sized MaxOrdinal()+1 once and never
// resized by table growth. IndexByKey and IndexBy detect this
// automatically from the column's zero value.
type Enum interface {
	Ordinal() int
	MaxOrdinal() int
}

// enumOrdinal reports whether T implements Enum, returning the ordinal
// projection and upper bound NewEnumKeyIndex/NewEnumGeneralIndex need.
func enumOrdinal[T comparable]() (ordinalOf func(T) int, maxOrdinal int, ok bool) {
	var zero T
	e, ok := any(zero).(Enum)
	if !ok {
		return nil, 0, false
	}
	return func(v T) int { return any(v).(Enum).Ordinal() }, e.MaxOrdinal(), true
}

// KeyIndex is a unique-column hash index: at most one live row may have any
// given key. It is a linear-probing, open-addressed table of (key, rowId)
// pairs. Bucket-array length is 2x the owning table's capacity, or
// maxOrdinal+1 for an enum-direct index (see NewEnumKeyIndex).
type KeyIndex[Row comparable, K comparable] struct {
	buckets  []K
	rowIds   []RowID
	occupied []bool
	mask     uint64
	project  func(Row) K

	enumDirect bool
	maxOrdinal int        // only meaningful when enumDirect
	ordinalOf  func(K) int // only set when enumDirect
}

// NewKeyIndex creates a KeyIndex over table, projecting each row's key with
// project, and attaches it to table.
func NewKeyIndex[Row comparable, K comparable](table *Table[Row], project func(Row) K) *KeyIndex[Row, K] {
	idx := &KeyIndex[Row, K]{project: project}
	idx.allocate(table.Cap())
	table.AttachIndex(idx)
	return idx
}

// NewEnumKeyIndex creates a KeyIndex over an enumerated column: instead of
// hashing, the key's ordinal directly addresses the bucket array, which is
// sized maxOrdinal+1 and never resized by table growth. It attaches to
// table.
func NewEnumKeyIndex[Row comparable, K comparable](table *Table[Row], project func(Row) K, ordinal func(K) int, maxOrdinal int) *KeyIndex[Row, K] {
	idx := &KeyIndex[Row, K]{
		project:    project,
		enumDirect: true,
		maxOrdinal: maxOrdinal,
		ordinalOf:  ordinal,
	}
	n := maxOrdinal + 1
	idx.buckets = make([]K, n)
	idx.rowIds = make([]RowID, n)
	idx.occupied = make([]bool, n)
	for i := range idx.rowIds {
		idx.rowIds[i] = NoRow
	}
	idx.mask = ^uint64(0) // unused in direct mode
	table.AttachIndex(idx)
	return idx
}

func (idx *KeyIndex[Row, K]) allocate(tableCap int) {
	n := nextPowerOfTwo(tableCap * 2)
	if n < 2 {
		n = 2
	}
	idx.buckets = make([]K, n)
	idx.rowIds = make([]RowID, n)
	idx.occupied = make([]bool, n)
	for i := range idx.rowIds {
		idx.rowIds[i] = NoRow
	}
	idx.mask = uint64(n - 1)
}

func (idx *KeyIndex[Row, K]) bucketFor(k K) int {
	if idx.enumDirect {
		return idx.ordinalOf(k)
	}
	return int(hashKey(k) & idx.mask)
}

func (idx *KeyIndex[Row, K]) probe(k K) (slot int, found bool) {
	n := len(idx.buckets)
	start := idx.bucketFor(k)
	for i := 0; i < n; i++ {
		slot = (start + i) % n
		if !idx.occupied[slot] {
			return slot, false
		}
		if idx.buckets[slot] == k {
			return slot, true
		}
	}
	return -1, false
}

// RowWithKey returns the row whose key equals k, or NoRow.
func (idx *KeyIndex[Row, K]) RowWithKey(k K) RowID {
	slot, found := idx.probe(k)
	if !found {
		return NoRow
	}
	return idx.rowIds[slot]
}

// rowWithKeyOf implements keyIndexer for Table.AddOrReplace.
func (idx *KeyIndex[Row, K]) rowWithKeyOf(row Row) RowID {
	return idx.RowWithKey(idx.project(row))
}

// add inserts (key, r) into the index. It returns ErrDuplicateKey, without
// panicking, if another live row already holds that key.
func (idx *KeyIndex[Row, K]) add(r RowID, k K) error {
	slot, found := idx.probe(k)
	if found {
		return errors.WithStack(ErrDuplicateKey)
	}
	idx.buckets[slot] = k
	idx.rowIds[slot] = r
	idx.occupied[slot] = true
	return nil
}

func (idx *KeyIndex[Row, K]) onAdd(r RowID, row Row) {
	k := idx.project(row)
	if err := idx.add(r, k); err != nil {
		// A duplicate key here means the row would violate the key-index
		// invariant (two live rows with the same key). Surface it as a
		// panic, since the tableIndex interface's onAdd returns nothing:
		// Table.notifyAdd recovers it, rolls back the indices already
		// notified, and Table.Add returns it as an error without making
		// the row live.
		panic(err)
	}
}

func (idx *KeyIndex[Row, K]) onRemove(r RowID, row Row) {
	k := idx.project(row)
	slot, found := idx.probe(k)
	if found && idx.rowIds[slot] == r {
		idx.removeSlot(slot)
	}
}

func (idx *KeyIndex[Row, K]) removeSlot(slot int) {
	n := len(idx.buckets)
	idx.occupied[slot] = false
	idx.rowIds[slot] = NoRow
	var zero K
	idx.buckets[slot] = zero
	// Re-insert the following cluster so later probes still terminate.
	j := (slot + 1) % n
	for idx.occupied[j] {
		k, r := idx.buckets[j], idx.rowIds[j]
		idx.occupied[j] = false
		idx.rowIds[j] = NoRow
		idx.buckets[j] = zero
		newSlot, _ := idx.probe(k)
		idx.buckets[newSlot] = k
		idx.rowIds[newSlot] = r
		idx.occupied[newSlot] = true
		j = (j + 1) % n
	}
}

func (idx *KeyIndex[Row, K]) onExpand(newCap int) {
	if idx.enumDirect {
		return
	}
	idx.allocate(newCap)
}

func (idx *KeyIndex[Row, K]) onClear() {
	for i := range idx.rowIds {
		idx.rowIds[i] = NoRow
		idx.occupied[i] = false
	}
}

func (idx *KeyIndex[Row, K]) onRebuild(data []Row, n int) {
	idx.onClear()
	for i := 0; i < n; i++ {
		r := RowID(i)
		if err := idx.add(r, idx.project(data[i])); err != nil {
			panic(err)
		}
	}
}

// Keys returns every key currently present in the index.
func (idx *KeyIndex[Row, K]) Keys() []K {
	var ks []K
	for i, occ := range idx.occupied {
		if occ {
			ks = append(ks, idx.buckets[i])
		}
	}
	return ks
}
