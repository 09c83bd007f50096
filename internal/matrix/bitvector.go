// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package matrix

import (
	"math/bits"
	"strings"
)

// BitVector is a fixed-length vector over GF(2) packed into 64-bit words.
type BitVector struct {
	words []uint64
	n     int
}

// NewBitVector returns a zero vector of length n.
func NewBitVector(n int) *BitVector {
	return &BitVector{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of coordinates.
func (v *BitVector) Len() int {
	return v.n
}

// Set sets coordinate i to 1.
func (v *BitVector) Set(i int) {
	v.words[i/64] |= 1 << (uint(i) % 64)
}

// Clear sets coordinate i to 0.
func (v *BitVector) Clear(i int) {
	v.words[i/64] &^= 1 << (uint(i) % 64)
}

// Flip toggles coordinate i.
func (v *BitVector) Flip(i int) {
	v.words[i/64] ^= 1 << (uint(i) % 64)
}

// Get reports whether coordinate i is 1.
func (v *BitVector) Get(i int) bool {
	return v.words[i/64]&(1<<(uint(i)%64)) != 0
}

// Xor adds o to v in place. Both vectors must have the same length.
func (v *BitVector) Xor(o *BitVector) {
	for i, w := range o.words {
		v.words[i] ^= w
	}
}

// IsZero reports whether every coordinate is 0.
func (v *BitVector) IsZero() bool {
	for _, w := range v.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of coordinates set to 1.
func (v *BitVector) Count() int {
	c := 0
	for _, w := range v.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// Ones returns the set coordinates in ascending order.
func (v *BitVector) Ones() []int {
	var out []int
	for wi, w := range v.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*64+b)
			w &= w - 1
		}
	}
	return out
}

// First returns the lowest set coordinate, or -1 for the zero vector.
func (v *BitVector) First() int {
	for wi, w := range v.words {
		if w != 0 {
			return wi*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// Clone returns an independent copy.
func (v *BitVector) Clone() *BitVector {
	words := make([]uint64, len(v.words))
	copy(words, v.words)
	return &BitVector{words: words, n: v.n}
}

// Equal reports whether v and o have the same length and coordinates.
func (v *BitVector) Equal(o *BitVector) bool {
	if v.n != o.n {
		return false
	}
	for i, w := range v.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}

// String renders the vector as a string of 0s and 1s.
func (v *BitVector) String() string {
	var sb strings.Builder
	sb.Grow(v.n)
	for i := 0; i < v.n; i++ {
		if v.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
