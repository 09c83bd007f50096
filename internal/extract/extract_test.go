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

package extract

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirseerhq/sirseer-gnfs/internal/algebra"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/matrix"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

type session struct {
	n     *big.Int
	f     *poly.Polynomial
	fb    *factorbase.FactorBase
	sieve *primes.Sieve
	rels  []*relation.Relation
	deps  [][]int
}

// collect runs a small serial sieve and solve for n.
func collect(t *testing.T, n, base int64, bound uint64, valueRange int64) *session {
	t.Helper()
	ctx := context.Background()

	f, err := poly.New(big.NewInt(n), big.NewInt(base), 3)
	require.NoError(t, err)
	sieve := primes.NewSieve(0)
	fb, err := factorbase.New(sieve, bound, 3)
	require.NoError(t, err)
	alg, err := factorbase.BuildAlgebraic(ctx, fb, f, 2)
	require.NoError(t, err)
	quad, err := factorbase.BuildQuadratic(ctx, fb, f, 2)
	require.NoError(t, err)
	layout := relation.NewLayout(f, fb, alg, quad)

	target := layout.Columns() + 10
	var rels []*relation.Relation
	for b := int64(1); len(rels) < target && b <= valueRange; b++ {
		for a := -valueRange; a <= valueRange && len(rels) < target; a++ {
			if !relation.Coprime(a, b) || a+b*base == 0 {
				continue
			}
			r, err := relation.New(a, b, f)
			require.NoError(t, err)
			r.Sieve(fb, false)
			if r.IsSmooth() {
				rels = append(rels, r)
			}
		}
	}
	require.Greater(t, len(rels), layout.Columns(), "not enough relations")

	m := matrix.New(layout.Columns())
	for _, r := range rels {
		v, err := layout.Vector(r)
		require.NoError(t, err)
		require.NoError(t, m.AddRow(v))
	}
	deps, err := m.NullSpace(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, deps)

	return &session{n: big.NewInt(n), f: f, fb: fb, sieve: sieve, rels: rels, deps: deps}
}

func TestExtractFactors(t *testing.T) {
	tests := []struct {
		name       string
		n          int64
		base       int64
		bound      uint64
		valueRange int64
	}{
		{"8051 monic", 8051, 20, 100, 200},
		{"8051 leading coefficient 2", 8051, 15, 100, 300},
		{"1000009", 1000009, 60, 100, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := collect(t, tt.n, tt.base, tt.bound, tt.valueRange)
			e := New(s.n, s.f, s.sieve, s.fb.AlgebraicMax, nil)

			factors, err := e.Extract(context.Background(), s.rels, s.deps)
			require.NoError(t, err)
			product := new(big.Int).Mul(factors.P, factors.Q)
			assert.Equal(t, 0, product.Cmp(s.n), "%v * %v != %v", factors.P, factors.Q, s.n)
			assert.Equal(t, 1, factors.P.Cmp(big.NewInt(1)))
			assert.Equal(t, 1, factors.Q.Cmp(big.NewInt(1)))
		})
	}
}

func TestDependenciesGiveCongruentSquares(t *testing.T) {
	s := collect(t, 8051, 20, 100, 200)
	e := New(s.n, s.f, s.sieve, s.fb.AlgebraicMax, nil)

	for _, dep := range s.deps {
		_, err := e.TryDependency(context.Background(), s.rels, dep)
		if err != nil {
			assert.False(t, errors.Is(err, gnfserrors.ErrInvariantViolation), "dependency %v: %v", dep, err)
		}
	}
}

func TestExtractExhausted(t *testing.T) {
	s := collect(t, 8051, 20, 100, 200)
	e := New(s.n, s.f, s.sieve, s.fb.AlgebraicMax, nil)

	_, err := e.Extract(context.Background(), s.rels, nil)
	assert.True(t, errors.Is(err, gnfserrors.ErrNoFactorFound), "Extract error = %v", err)
}

func TestExtractCancelled(t *testing.T) {
	s := collect(t, 8051, 20, 100, 200)
	e := New(s.n, s.f, s.sieve, s.fb.AlgebraicMax, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, s.rels, s.deps)
	assert.True(t, errors.Is(err, gnfserrors.ErrCancelled), "Extract error = %v", err)
}

func TestTryDependencyEmpty(t *testing.T) {
	s := collect(t, 8051, 20, 100, 200)
	e := New(s.n, s.f, s.sieve, s.fb.AlgebraicMax, nil)

	_, err := e.TryDependency(context.Background(), s.rels, nil)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvariantViolation))
}

func TestExtractReduciblePolynomial(t *testing.T) {
	// 100160063 = f(100) with f = (x^2 + 7)(x^2 + 9), which splits mod every
	// prime, so no dependency can be square-rooted.
	n := big.NewInt(100160063)
	f, err := poly.New(n, big.NewInt(100), 4)
	require.NoError(t, err)
	r, err := relation.New(1, 1, f)
	require.NoError(t, err)

	e := New(n, f, primes.NewSieve(0), 10, nil)
	rels := []*relation.Relation{r, r}
	_, err = e.Extract(context.Background(), rels, [][]int{{0, 1}, {0, 1}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, algebra.ErrNoInertPrime), "Extract error = %v", err)
	assert.True(t, errors.Is(err, gnfserrors.ErrNoFactorFound), "Extract error = %v", err)
	assert.Contains(t, err.Error(), "dependency 0:")
	assert.Contains(t, err.Error(), "probably reducible")
}
