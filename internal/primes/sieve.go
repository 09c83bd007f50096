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

package primes

import (
	"fmt"
	"math"
	"sort"
	"sync"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

const (
	// DefaultCeiling keeps every prime below 2^32 so products of two residues
	// fit in a uint64.
	DefaultCeiling uint64 = 1<<32 - 1

	segmentSize = 1 << 16
)

// Sieve is a cached, upward-extending prime sieve. It is safe for concurrent use.
type Sieve struct {
	mu      sync.Mutex
	primes  []uint64
	limit   uint64 // every prime <= limit is in primes
	ceiling uint64
}

// NewSieve returns a sieve that refuses to extend beyond ceiling.
// A zero ceiling selects DefaultCeiling.
func NewSieve(ceiling uint64) *Sieve {
	if ceiling == 0 || ceiling > DefaultCeiling {
		ceiling = DefaultCeiling
	}
	return &Sieve{
		primes:  []uint64{2, 3, 5, 7},
		limit:   10,
		ceiling: ceiling,
	}
}

// Ceiling returns the largest value the sieve will examine.
func (s *Sieve) Ceiling() uint64 {
	return s.ceiling
}

// PrimesUpTo returns every prime p <= bound in ascending order.
func (s *Sieve) PrimesUpTo(bound uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.extend(bound); err != nil {
		return nil, err
	}
	n := sort.Search(len(s.primes), func(i int) bool { return s.primes[i] > bound })
	out := make([]uint64, n)
	copy(out, s.primes[:n])
	return out, nil
}

// PrimesFrom returns the first count primes p >= lower in ascending order.
func (s *Sieve) PrimesFrom(lower uint64, count int) ([]uint64, error) {
	if count < 0 {
		return nil, fmt.Errorf("prime count %d: %w", count, gnfserrors.ErrBounds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := lower
	for {
		if err := s.extend(target); err != nil {
			return nil, err
		}
		start := sort.Search(len(s.primes), func(i int) bool { return s.primes[i] >= lower })
		if len(s.primes)-start >= count {
			out := make([]uint64, count)
			copy(out, s.primes[start:start+count])
			return out, nil
		}
		target = s.clamp(grow(target, s.limit))
	}
}

// NthPrime returns the prime at zero-based position index, so NthPrime(0) is 2.
func (s *Sieve) NthPrime(index int) (uint64, error) {
	if index < 0 {
		return 0, fmt.Errorf("prime index %d: %w", index, gnfserrors.ErrBounds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.clamp(estimateNth(index))
	for len(s.primes) <= index {
		if err := s.extend(target); err != nil {
			return 0, err
		}
		target = s.clamp(grow(target, s.limit))
	}
	return s.primes[index], nil
}

// IsPrime reports whether n is prime, consulting the cache when it covers n.
func (s *Sieve) IsPrime(n uint64) bool {
	s.mu.Lock()
	covered := n <= s.limit
	var found bool
	if covered {
		i := sort.Search(len(s.primes), func(i int) bool { return s.primes[i] >= n })
		found = i < len(s.primes) && s.primes[i] == n
	}
	s.mu.Unlock()

	if covered {
		return found
	}
	return isPrimeTrial(n)
}

// extend sieves (s.limit, bound]. The caller holds s.mu.
func (s *Sieve) extend(bound uint64) error {
	if bound <= s.limit {
		return nil
	}
	if bound > s.ceiling {
		return fmt.Errorf("prime bound %d exceeds ceiling %d: %w", bound, s.ceiling, gnfserrors.ErrBounds)
	}

	root := isqrt(bound)
	if root > s.limit {
		if err := s.extend(root); err != nil {
			return err
		}
	}

	marks := make([]bool, segmentSize)
	for low := s.limit + 1; low <= bound; low += segmentSize {
		high := low + segmentSize - 1
		if high > bound {
			high = bound
		}
		width := high - low + 1
		for i := uint64(0); i < width; i++ {
			marks[i] = false
		}

		for _, p := range s.primes {
			if p*p > high {
				break
			}
			start := (low + p - 1) / p * p
			if start < p*p {
				start = p * p
			}
			for m := start; m <= high; m += p {
				marks[m-low] = true
			}
		}

		for i := uint64(0); i < width; i++ {
			if !marks[i] && low+i >= 2 {
				s.primes = append(s.primes, low+i)
			}
		}
		s.limit = high
	}
	return nil
}

// clamp caps target at the ceiling until the ceiling itself has been sieved,
// after which the unclamped target produces the bounds error.
func (s *Sieve) clamp(target uint64) uint64 {
	if target > s.ceiling && s.limit < s.ceiling {
		return s.ceiling
	}
	return target
}

// estimateNth is an upper estimate of the index-th prime (Rosser's bound).
func estimateNth(index int) uint64 {
	n := float64(index + 1)
	if n < 6 {
		return 15
	}
	return uint64(n*(math.Log(n)+math.Log(math.Log(n)))) + 1
}

func grow(target, limit uint64) uint64 {
	if limit > target {
		target = limit
	}
	next := target + target/2 + segmentSize
	if next < target {
		return math.MaxUint64
	}
	return next
}

func isqrt(n uint64) uint64 {
	r := uint64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func isPrimeTrial(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
