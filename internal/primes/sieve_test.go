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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

func naivePrimes(bound uint64) []uint64 {
	var out []uint64
	for n := uint64(2); n <= bound; n++ {
		if isPrimeTrial(n) {
			out = append(out, n)
		}
	}
	return out
}

func TestPrimesUpTo(t *testing.T) {
	tests := []struct {
		name  string
		bound uint64
	}{
		{"below seed", 5},
		{"seed limit", 10},
		{"small", 100},
		{"crosses one segment", segmentSize + 17},
		{"several segments", 3*segmentSize + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSieve(0)
			got, err := s.PrimesUpTo(tt.bound)
			require.NoError(t, err)
			assert.Equal(t, naivePrimes(tt.bound), got)
		})
	}
}

func TestIncrementalMatchesFresh(t *testing.T) {
	incremental := NewSieve(0)
	for _, bound := range []uint64{30, 1000, 70000, 200000} {
		_, err := incremental.PrimesUpTo(bound)
		require.NoError(t, err)
	}

	got, err := incremental.PrimesUpTo(200000)
	require.NoError(t, err)
	want, err := NewSieve(0).PrimesUpTo(200000)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPrimesFrom(t *testing.T) {
	s := NewSieve(0)

	got, err := s.PrimesFrom(320, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{331, 337, 347, 349, 353, 359, 367, 373, 379, 383}, got)

	got, err = s.PrimesFrom(2, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 5, 7, 11}, got)

	got, err = s.PrimesFrom(331, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{331}, got)
}

func TestNthPrime(t *testing.T) {
	tests := []struct {
		index int
		want  uint64
	}{
		{0, 2},
		{1, 3},
		{4, 11},
		{24, 97},
		{99, 541},
		{999, 7919},
	}

	s := NewSieve(0)
	for _, tt := range tests {
		got, err := s.NthPrime(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "NthPrime(%d)", tt.index)
	}

	_, err := s.NthPrime(-1)
	assert.True(t, errors.Is(err, gnfserrors.ErrBounds))
}

func TestCeiling(t *testing.T) {
	s := NewSieve(1000)

	_, err := s.PrimesUpTo(1001)
	assert.True(t, errors.Is(err, gnfserrors.ErrBounds), "PrimesUpTo beyond ceiling: got %v", err)

	got, err := s.PrimesUpTo(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(997), got[len(got)-1])

	// 168 primes lie below 1000.
	p, err := s.NthPrime(167)
	require.NoError(t, err)
	assert.Equal(t, uint64(997), p)

	_, err = s.NthPrime(168)
	assert.True(t, errors.Is(err, gnfserrors.ErrBounds))

	_, err = s.PrimesFrom(990, 3)
	assert.True(t, errors.Is(err, gnfserrors.ErrBounds))
}

func TestIsPrime(t *testing.T) {
	s := NewSieve(0)
	_, err := s.PrimesUpTo(100)
	require.NoError(t, err)

	assert.True(t, s.IsPrime(97))
	assert.False(t, s.IsPrime(91))
	assert.True(t, s.IsPrime(1000003))
	assert.False(t, s.IsPrime(999985999949))
	assert.False(t, s.IsPrime(1))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewSieve(0)
	want := naivePrimes(50000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(bound uint64) {
			defer wg.Done()
			_, _ = s.PrimesUpTo(bound)
		}(uint64(5000 * (i + 1)))
	}
	wg.Wait()

	got, err := s.PrimesUpTo(50000)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
