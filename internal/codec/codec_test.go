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

package codec

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

var bigIntComparer = cmp.Comparer(func(x, y *big.Int) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Cmp(y) == 0
})

// sample returns relations of 8051 with a mix of smooth and rough ones.
func sample(t *testing.T) (*poly.Polynomial, []*relation.Relation) {
	t.Helper()
	f, err := poly.New(big.NewInt(8051), big.NewInt(20), 3)
	require.NoError(t, err)
	fb, err := factorbase.New(primes.NewSieve(0), 100, 3)
	require.NoError(t, err)

	var rels []*relation.Relation
	for _, ab := range [][2]int64{{1, 1}, {-3, 2}, {7, 1}, {-19, 1}, {13, 5}, {101, 3}} {
		r, err := relation.New(ab[0], ab[1], f)
		require.NoError(t, err)
		r.Sieve(fb, true)
		rels = append(rels, r)
	}
	return f, rels
}

func TestRoundTrip(t *testing.T) {
	f, rels := sample(t)

	for _, r := range rels {
		data, err := Marshal(r)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err, "record %s", data)
		if diff := cmp.Diff(r, got, bigIntComparer); diff != "" {
			t.Errorf("round trip of %v changed it (-want +got):\n%s", r, diff)
		}
		assert.NoError(t, got.Verify(f))
		assert.Equal(t, r.IsSmooth(), got.IsSmooth())
	}
}

func TestGroupRoundTrip(t *testing.T) {
	_, rels := sample(t)

	got, err := EncodeGroup(rels).Decode()
	require.NoError(t, err)
	if diff := cmp.Diff(rels, got, bigIntComparer); diff != "" {
		t.Errorf("group round trip (-want +got):\n%s", diff)
	}
}

func TestEncodeShape(t *testing.T) {
	f, err := poly.New(big.NewInt(8051), big.NewInt(20), 3)
	require.NoError(t, err)
	r, err := relation.New(1, 1, f)
	require.NoError(t, err)
	r.RationalQuotient, r.RationalFactors = relation.TrialDivide(r.RationalNorm, []uint64{2, 3, 5, 7})

	data, err := Marshal(r)
	require.NoError(t, err)
	s := string(data)
	assert.True(t, strings.HasPrefix(s, `{"v":1,"a":1,"b":1,"rn":"21"`), s)
	assert.Contains(t, s, `"rf":[[3,1],[7,1]]`)
	assert.NotContains(t, s, `"rq"`)
	assert.Contains(t, s, `"aq"`)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"v":1,`},
		{"future version", `{"v":2,"a":1,"b":1,"rn":"21","an":"-8051","rf":[[3,1],[7,1]],"af":[]}`},
		{"non-positive b", `{"v":1,"a":1,"b":0,"rn":"1","an":"1","rf":[],"af":[]}`},
		{"bad norm", `{"v":1,"a":1,"b":1,"rn":"x21","an":"1","rf":[],"af":[]}`},
		{"wrong factorisation", `{"v":1,"a":1,"b":1,"rn":"21","an":"1","rf":[[3,1],[5,1]],"af":[]}`},
		{"unordered primes", `{"v":1,"a":1,"b":1,"rn":"21","an":"1","rf":[[7,1],[3,1]],"af":[]}`},
		{"zero exponent", `{"v":1,"a":1,"b":1,"rn":"21","an":"1","rf":[[3,1],[7,1],[11,0]],"af":[]}`},
		{"zero norm", `{"v":1,"a":1,"b":1,"rn":"0","an":"1","rf":[],"af":[]}`},
		{"huge exponent", `{"v":1,"a":1,"b":1,"rn":"21","an":"1","rf":[[3,18446744073709551615]],"af":[]}`},
		{"exponents beyond norm size", `{"v":1,"a":1,"b":1,"rn":"8","an":"1","rf":[[2,3],[3,2]],"af":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, gnfserrors.ErrCheckpointCorrupt), "err = %v", err)
		})
	}
}

func TestGroupDecodeRejects(t *testing.T) {
	_, rels := sample(t)
	g := EncodeGroup(rels)
	g.Relations[2].RationalNorm = "1"

	_, err := g.Decode()
	assert.True(t, errors.Is(err, gnfserrors.ErrCheckpointCorrupt))

	g = EncodeGroup(rels)
	g.V = 0
	_, err = g.Decode()
	assert.True(t, errors.Is(err, gnfserrors.ErrCheckpointCorrupt))
}
