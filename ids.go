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
	"sync/atomic"

	"github.com/google/uuid"
)

// RowID identifies a row within a single table's dense array. Two reserved
// values are carved out of the 32-bit space: NoRow marks end-of-list or
// not-found, and DeletedRow marks a bucket that is allocated but currently
// empty. Any id strictly less than DeletedRow is a valid, addressable slot.
type RowID uint32

const (
	// NoRow is returned when a lookup finds nothing, or to terminate a
	// general-index bucket's linked list.
	NoRow RowID = ^RowID(0)
	// DeletedRow marks a general-index bucket whose list has been emptied by
	// Remove, but which has not yet been reclaimed by Reindex.
	DeletedRow RowID = NoRow - 1
)

// Valid reports whether r addresses a live table slot, i.e. is neither NoRow
// nor DeletedRow.
func (r RowID) Valid() bool {
	return r < DeletedRow
}

// PredicateId stably identifies a predicate in a Program's arena. Rules
// reference other predicates by id rather than by pointer, so that cyclic
// references between predicates (a rule body can mention a predicate that
// isn't constructed yet) don't require a two-phase pointer fixup; the
// program resolves ids to predicates when it materializes calls.
type PredicateId uuid.UUID

// NewPredicateId mints a fresh, globally unique predicate identifier.
func NewPredicateId() PredicateId {
	return PredicateId(uuid.New())
}

func (id PredicateId) String() string {
	return uuid.UUID(id).String()
}

// cellSeq is a process-wide counter used to distinguish ValueCells created
// for distinct variables within a rule body. It does not need to be
// cryptographically random, only distinct within a single preprocessor run,
// but is process-wide for simplicity and because allocation is cheap.
var cellSeq uint64

// nextCellID returns a fresh id, distinct from every other id returned by
// this process, for use as a ValueCell or variable identity.
func nextCellID() uint64 {
	return atomic.AddUint64(&cellSeq, 1)
}
