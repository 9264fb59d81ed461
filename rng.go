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

import "math/rand"

// Rng is the engine's process-wide random source, hidden behind a
// program-scoped object so that embedding hosts control determinism instead
// of relying on package-level globals. Prob, RandomElement, and
// PickRandomly all draw from a Program's Rng.
//
// A Rng can spawn child Rngs, each seeded deterministically from the
// parent's stream. This lets every call site (e.g. a Prob call materialized
// once per rule, reused every tick) own a private, order-independent
// sub-stream: two ticks with the same seed and the same extensional input
// produce identical results regardless of which calls happen to draw from
// the shared source first.
type Rng struct {
	src *rand.Rand
}

// NewRng returns a Rng seeded deterministically from seed.
func NewRng(seed int64) *Rng {
	return &Rng{src: rand.New(rand.NewSource(seed))}
}

// Child spawns a new Rng seeded from a value drawn from the parent. Calling
// Child in a fixed order from a freshly-seeded parent is deterministic.
func (r *Rng) Child() *Rng {
	return NewRng(r.src.Int63())
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (r *Rng) Float64() float64 {
	return r.src.Float64()
}

// Intn returns a pseudo-random number in [0, n).
func (r *Rng) Intn(n int) int {
	return r.src.Intn(n)
}

// SetSeed reseeds r in place, discarding its prior stream. Existing children
// spawned before the reseed are unaffected.
func (r *Rng) SetSeed(seed int64) {
	r.src = rand.New(rand.NewSource(seed))
}
