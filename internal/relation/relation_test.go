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

package relation

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
)

type fixture struct {
	f         *poly.Polynomial
	fb        *factorbase.FactorBase
	algebraic *factorbase.Collection
	quadratic *factorbase.Collection
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, err := poly.New(big.NewInt(8051), big.NewInt(20), 3)
	require.NoError(t, err)
	fb, err := factorbase.New(primes.NewSieve(0), 100, 3)
	require.NoError(t, err)
	alg, err := factorbase.BuildAlgebraic(context.Background(), fb, f, 2)
	require.NoError(t, err)
	quad, err := factorbase.BuildQuadratic(context.Background(), fb, f, 2)
	require.NoError(t, err)
	return &fixture{f: f, fb: fb, algebraic: alg, quadratic: quad}
}

func TestNorms(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		a, b          int64
		wantRational  int64
		wantAlgebraic int64
	}{
		// F(a, -b) = a^3 + 2ab^2 - 11b^3 for f = x^3 + 2x + 11
		{1, 1, 21, -8},
		{3, 2, 43, -37},
		{-1, 1, 19, -14},
		{-7, 3, 53, -766},
	}

	for _, tt := range tests {
		r, err := New(tt.a, tt.b, fx.f)
		require.NoError(t, err)
		assert.Equal(t, tt.wantRational, r.RationalNorm.Int64(), "rational norm of (%d, %d)", tt.a, tt.b)
		assert.Equal(t, tt.wantAlgebraic, r.AlgebraicNorm.Int64(), "algebraic norm of (%d, %d)", tt.a, tt.b)
	}
}

func TestNewRejectsNonPositiveB(t *testing.T) {
	fx := newFixture(t)
	_, err := New(3, 0, fx.f)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
	_, err = New(3, -2, fx.f)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
}

func TestNewZeroAlgebraicNorm(t *testing.T) {
	// f = (x - 2)(x^2 + 1) has the rational root 2, so the pair (-2, 1)
	// has algebraic norm F(-2, -1) = -f(2) = 0.
	f, err := poly.FromTerms([]*big.Int{big.NewInt(-2), big.NewInt(1), big.NewInt(-2), big.NewInt(1)}, big.NewInt(10))
	require.NoError(t, err)
	_, err = New(-2, 1, f)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvariantViolation), "New error = %v", err)

	var root *RootError
	require.True(t, errors.As(err, &root))
	assert.Equal(t, RootError{A: -2, B: 1}, *root)
}

func TestTrialDivide(t *testing.T) {
	small, err := primes.NewSieve(0).PrimesUpTo(100)
	require.NoError(t, err)
	wide, err := primes.NewSieve(0).PrimesUpTo(200)
	require.NoError(t, err)

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	huge.Mul(huge, big.NewInt(243*101))

	tests := []struct {
		name      string
		norm      *big.Int
		base      []uint64
		wantQuot  int64
		wantPrime []PrimePower
	}{
		{"negative smooth", big.NewInt(-8), small, -1, []PrimePower{{2, 3}}},
		{"leftover prime in base", big.NewInt(2 * 97), small, 1, []PrimePower{{2, 1}, {97, 1}}},
		{"rough", big.NewInt(3 * 103 * 103), small, 103 * 103, []PrimePower{{3, 1}}},
		{"zero", big.NewInt(0), small, 0, nil},
		{"unit", big.NewInt(1), small, 1, nil},
		{"big norm rough", huge, small, 101, []PrimePower{{2, 70}, {3, 5}}},
		{"big norm smooth", huge, wide, 1, []PrimePower{{2, 70}, {3, 5}, {101, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, fs := TrialDivide(tt.norm, tt.base)
			assert.Equal(t, tt.wantQuot, q.Int64())
			assert.Equal(t, Factorization(tt.wantPrime), fs)
		})
	}
}

func TestSieveAndVerify(t *testing.T) {
	fx := newFixture(t)

	r, err := New(1, 1, fx.f)
	require.NoError(t, err)
	r.Sieve(fx.fb, false)
	require.True(t, r.IsSmooth())
	assert.Equal(t, Factorization{{3, 1}, {7, 1}}, r.RationalFactors)
	assert.Equal(t, Factorization{{2, 3}}, r.AlgebraicFactors)
	require.NoError(t, r.Verify(fx.f))

	r.AlgebraicFactors = Factorization{{2, 2}}
	assert.True(t, errors.Is(r.Verify(fx.f), gnfserrors.ErrInvariantViolation))
}

func TestSieveSkipsAlgebraicWhenRationalRough(t *testing.T) {
	fx := newFixture(t)

	// a + 20b = 101 * 1 with a = 1, b = 5: rational norm 101 exceeds the base.
	r, err := New(1, 5, fx.f)
	require.NoError(t, err)
	r.Sieve(fx.fb, false)
	assert.False(t, r.IsRationalSmooth())
	assert.Equal(t, 0, r.AlgebraicQuotient.Cmp(r.AlgebraicNorm))
	assert.Nil(t, r.AlgebraicFactors)

	r.Sieve(fx.fb, true)
	assert.NotEqual(t, 0, r.AlgebraicQuotient.CmpAbs(r.AlgebraicNorm), "exhaustive sieve should divide the algebraic side")
}

func TestSmoothRelationsReduceToUnits(t *testing.T) {
	fx := newFixture(t)

	found := 0
	for b := int64(1); b <= 10; b++ {
		for a := int64(-50); a <= 50; a++ {
			if !Coprime(a, b) || a == -20*b {
				continue
			}
			r, err := New(a, b, fx.f)
			require.NoError(t, err)
			r.Sieve(fx.fb, false)
			if !r.IsSmooth() {
				continue
			}
			found++

			q, _ := TrialDivide(r.RationalNorm, fx.fb.Rational)
			assert.True(t, isUnit(q), "rational quotient of (%d, %d) = %v", a, b, q)
			q, _ = TrialDivide(r.AlgebraicNorm, fx.fb.Algebraic)
			assert.True(t, isUnit(q), "algebraic quotient of (%d, %d) = %v", a, b, q)
			require.NoError(t, r.Verify(fx.f))
		}
	}
	assert.Greater(t, found, 20)
}

func TestLayoutVector(t *testing.T) {
	fx := newFixture(t)
	layout := NewLayout(fx.f, fx.fb, fx.algebraic, fx.quadratic)

	wantColumns := 1 + len(fx.fb.Rational) + 1 + fx.algebraic.Len() + len(layout.Characters())
	assert.Equal(t, wantColumns, layout.Columns())
	assert.NotEmpty(t, layout.Characters())

	r, err := New(1, 1, fx.f)
	require.NoError(t, err)
	r.Sieve(fx.fb, false)

	v, err := layout.Vector(r)
	require.NoError(t, err)

	// rational sign clear, 3 and 7 set
	assert.False(t, v.Get(0))
	assert.True(t, v.Get(1+1)) // 3 is the second rational prime
	assert.True(t, v.Get(1+3)) // 7 is the fourth
	assert.False(t, v.Get(1+0))

	// algebraic sign set, ideal (2, 1) set
	algSign := 1 + len(fx.fb.Rational)
	assert.True(t, v.Get(algSign))
	assert.True(t, v.Get(algSign+1), "ideal (2, 1) is the first algebraic column")

	rough, err := New(1, 5, fx.f)
	require.NoError(t, err)
	rough.Sieve(fx.fb, false)
	_, err = layout.Vector(rough)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvariantViolation))
}

func TestLayoutIdealColumn(t *testing.T) {
	fx := newFixture(t)
	layout := NewLayout(fx.f, fx.fb, fx.algebraic, fx.quadratic)

	// (3, 2): algebraic norm -37, ideal (37, 17).
	r, err := New(3, 2, fx.f)
	require.NoError(t, err)
	r.Sieve(fx.fb, false)
	require.True(t, r.IsSmooth())

	v, err := layout.Vector(r)
	require.NoError(t, err)

	col, ok := layout.algebraic[factorbase.Pair{P: 37, R: 17}]
	require.True(t, ok)
	assert.True(t, v.Get(col))
}

func TestModHelpers(t *testing.T) {
	assert.Equal(t, uint64(4), mod64(-1, 5))
	assert.Equal(t, uint64(0), mod64(-5, 5))
	assert.Equal(t, uint64(2), mod64(7, 5))
	assert.Equal(t, uint64(19), invMod(2, 37))
	assert.Equal(t, 1, legendre(4, 7))
	assert.Equal(t, -1, legendre(3, 7))
	assert.Equal(t, 0, legendre(14, 7))
}

func TestGroupAndCombineRough(t *testing.T) {
	mk := func(a, b, alg, rat int64) *Relation {
		return &Relation{A: a, B: b, AlgebraicQuotient: big.NewInt(alg), RationalQuotient: big.NewInt(rat)}
	}
	rough := []*Relation{
		mk(7, 3, 103, 107),
		mk(5, 2, 103, 107),
		mk(9, 4, 109, 107),
		mk(11, 6, 109, 113),
		mk(13, 2, 103, 107),
	}

	groups := GroupRough(rough)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(5), groups[0][0].A)
	assert.Equal(t, int64(13), groups[0][1].A)

	a, b, ok := CombineRough([2]*Relation{mk(5, 2, 0, 0), mk(7, 3, 0, 0)})
	require.True(t, ok)
	assert.Equal(t, int64(21), a)
	assert.Equal(t, int64(40), b)

	_, _, ok = CombineRough([2]*Relation{mk(1, 2, 0, 0), mk(7, 3, 0, 0)})
	assert.False(t, ok, "negative a' must be rejected")

	_, _, ok = CombineRough([2]*Relation{mk(4, 2, 0, 0), mk(8, 4, 0, 0)})
	assert.False(t, ok, "gcd(12, 48) != 1 must be rejected")
}
