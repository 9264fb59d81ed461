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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// hashKey produces a bucket hash for an arbitrary comparable key. Every
// non-enum KeyIndex and GeneralIndex uses this to pick its initial bucket;
// linear probing resolves collisions. Using a single well-distributed hash
// (xxhash) instead of Go's map hashing keeps bucket placement stable and
// inspectable across runs, which the engine's determinism requirement
// depends on.
func hashKey(k any) uint64 {
	var buf [8]byte
	switch v := k.(type) {
	case int:
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		return xxhash.Sum64(buf[:])
	case int32:
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
		return xxhash.Sum64(buf[:4])
	case int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		return xxhash.Sum64(buf[:])
	case uint32:
		binary.LittleEndian.PutUint32(buf[:4], v)
		return xxhash.Sum64(buf[:4])
	case uint64:
		binary.LittleEndian.PutUint64(buf[:], v)
		return xxhash.Sum64(buf[:])
	case float64:
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		return xxhash.Sum64(buf[:])
	case bool:
		if v {
			return xxhash.Sum64([]byte{1})
		}
		return xxhash.Sum64([]byte{0})
	case string:
		return xxhash.Sum64String(v)
	default:
		return xxhash.Sum64String(fmt.Sprintf("%v", v))
	}
}

// nextPowerOfTwo returns the smallest power of two >= n, with a floor of 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
