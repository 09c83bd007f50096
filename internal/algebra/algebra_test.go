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

package algebra

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
)

func elementOf(vals ...int64) Element {
	e := make(Element, len(vals))
	for i, v := range vals {
		e[i] = big.NewInt(v)
	}
	return e
}

func cubicField(t *testing.T) *Field {
	t.Helper()
	f, err := poly.New(big.NewInt(8051), big.NewInt(20), 3)
	require.NoError(t, err)
	return NewField(f)
}

func TestMonicTransform(t *testing.T) {
	// f = 2x^2 + 3x + 5 becomes F = y^2 + 3y + 10 with w = 2*theta.
	f, err := poly.FromTerms([]*big.Int{big.NewInt(5), big.NewInt(3), big.NewInt(2)}, big.NewInt(7))
	require.NoError(t, err)
	k := NewField(f)

	monic := k.Monic()
	require.Len(t, monic, 3)
	assert.Equal(t, int64(10), monic[0].Int64())
	assert.Equal(t, int64(3), monic[1].Int64())
	assert.Equal(t, int64(1), monic[2].Int64())
	assert.Equal(t, int64(2), k.Leading().Int64())

	// FromPair(a, b) = c*a + b*w
	e := k.FromPair(4, -3)
	assert.Equal(t, int64(8), e[0].Int64())
	assert.Equal(t, int64(-3), e[1].Int64())
}

func TestMulReducesByF(t *testing.T) {
	k := cubicField(t)

	// w * w^2 = w^3 = -2w - 11
	got := k.Mul(elementOf(0, 1, 0), elementOf(0, 0, 1))
	assert.True(t, k.Equal(got, elementOf(-11, -2, 0)), "w^3 = %v", got)

	// w^2 * w^2 = w^4 = -2w^2 - 11w
	got = k.Mul(elementOf(0, 0, 1), elementOf(0, 0, 1))
	assert.True(t, k.Equal(got, elementOf(0, -11, -2)), "w^4 = %v", got)

	assert.True(t, k.Equal(k.DerivativeAtRoot(), elementOf(2, 0, 3)))
}

func TestEvaluateMatchesHomomorphism(t *testing.T) {
	k := cubicField(t)
	n := big.NewInt(8051)

	x := elementOf(3, -5, 7)
	y := elementOf(-2, 4, 1)

	lhs := k.Evaluate(k.Mul(x, y), n)
	rhs := new(big.Int).Mul(k.Evaluate(x, n), k.Evaluate(y, n))
	rhs.Mod(rhs, n)
	assert.Equal(t, 0, lhs.Cmp(rhs), "phi(xy) = %v, phi(x)phi(y) = %v", lhs, rhs)

	// phi(w) = c*m = 20
	assert.Equal(t, int64(20), k.Evaluate(elementOf(0, 1, 0), n).Int64())
}

func TestIrreducible(t *testing.T) {
	f, err := poly.FromTerms([]*big.Int{big.NewInt(1), big.NewInt(0), big.NewInt(1)}, big.NewInt(10))
	require.NoError(t, err)
	k := NewField(f)

	assert.True(t, newResidueRing(k, 3).irreducible(), "x^2 + 1 is irreducible mod 3")
	assert.False(t, newResidueRing(k, 5).irreducible(), "x^2 + 1 splits mod 5")

	cubic := cubicField(t)
	for _, p := range []uint64{3, 5, 7, 11, 13, 17, 19, 23, 29, 31} {
		rr := newResidueRing(cubic, p)
		hasRoot := false
		for r := uint64(0); r < p; r++ {
			if (r*r%p*r+2*r+11)%p == 0 {
				hasRoot = true
				break
			}
		}
		// A cubic is irreducible exactly when it has no root.
		assert.Equal(t, !hasRoot, rr.irreducible(), "irreducibility mod %d", p)
	}
}

func TestSquareRootRecoversRoot(t *testing.T) {
	k := cubicField(t)
	sieve := primes.NewSieve(0)

	big1, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	tests := []struct {
		name string
		beta Element
	}{
		{"small", elementOf(3, 5, -7)},
		{"integer", elementOf(12, 0, 0)},
		{"large", Element{big1, new(big.Int).Neg(big1), big.NewInt(99)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gamma := k.Mul(tt.beta, tt.beta)
			p, err := k.InertPrime(context.Background(), sieve, 300, gamma)
			require.NoError(t, err)
			assert.Greater(t, p, uint64(300))

			root, err := k.SquareRoot(context.Background(), gamma, p)
			require.NoError(t, err)

			neg := k.Scale(tt.beta, big.NewInt(-1))
			assert.True(t, k.Equal(root, tt.beta) || k.Equal(root, neg), "root = %v, want +-%v", root, tt.beta)
		})
	}
}

func TestSquareRootOfProduct(t *testing.T) {
	k := cubicField(t)

	pairs := [][2]int64{{1, 1}, {3, 2}, {-1, 1}, {-7, 3}, {13, 5}, {-4, 9}}
	var elems []Element
	for _, ab := range pairs {
		e := k.FromPair(ab[0], ab[1])
		elems = append(elems, e, e)
	}
	gamma := k.Product(elems)

	p, err := k.InertPrime(context.Background(), primes.NewSieve(0), 300, gamma)
	require.NoError(t, err)
	root, err := k.SquareRoot(context.Background(), gamma, p)
	require.NoError(t, err)
	assert.True(t, k.Equal(k.Mul(root, root), gamma))
}

func TestSquareRootRejectsNonSquare(t *testing.T) {
	k := cubicField(t)
	gamma := elementOf(0, 1, 0)

	p, err := k.InertPrime(context.Background(), primes.NewSieve(0), 300, gamma)
	require.NoError(t, err)
	_, err = k.SquareRoot(context.Background(), gamma, p)
	assert.True(t, errors.Is(err, ErrNotSquare), "SquareRoot error = %v", err)
}

func TestSquareRootLinearField(t *testing.T) {
	f, err := poly.FromTerms([]*big.Int{big.NewInt(-7), big.NewInt(1)}, big.NewInt(10))
	require.NoError(t, err)
	k := NewField(f)

	gamma := elementOf(144)
	root, err := k.SquareRoot(context.Background(), gamma, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(12), new(big.Int).Abs(root[0]).Int64())
}
