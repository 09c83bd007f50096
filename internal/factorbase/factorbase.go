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

package factorbase

import (
	"fmt"
	"math/big"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
)

// quadraticGap separates the largest algebraic prime from the smallest quadratic one.
const quadraticGap = 20

// Kind names one of the three bases.
type Kind string

const (
	Rational  Kind = "rational"
	Algebraic Kind = "algebraic"
	Quadratic Kind = "quadratic"
)

// FactorBase holds the bounds of a session and the ascending primes of each base.
type FactorBase struct {
	RationalMax    uint64   `json:"rational_max"`
	AlgebraicMax   uint64   `json:"algebraic_max"`
	QuadraticMin   uint64   `json:"quadratic_min"`
	QuadraticMax   uint64   `json:"quadratic_max"`
	QuadraticCount int      `json:"quadratic_count"`
	Rational       []uint64 `json:"rational"`
	Algebraic      []uint64 `json:"algebraic"`
	Quadratic      []uint64 `json:"quadratic"`
}

// Bounds computes the bounds for a rational bound B and polynomial degree
// without populating any primes. The quadratic maximum is the prime at
// position QuadraticMin + QuadraticCount of the prime sequence.
func Bounds(sieve *primes.Sieve, rationalMax uint64, degree int) (*FactorBase, error) {
	if rationalMax == 0 {
		return nil, fmt.Errorf("rational bound must be positive: %w", gnfserrors.ErrBounds)
	}
	if degree < 1 {
		return nil, fmt.Errorf("polynomial degree %d must be at least 1: %w", degree, gnfserrors.ErrInvalidParameter)
	}
	ceiling := sieve.Ceiling()
	if rationalMax > (ceiling-quadraticGap)/3 {
		return nil, fmt.Errorf("rational bound %d exceeds the prime ceiling %d: %w", rationalMax, ceiling, gnfserrors.ErrBounds)
	}

	fb := &FactorBase{
		RationalMax:    rationalMax,
		AlgebraicMax:   3 * rationalMax,
		QuadraticCount: QuadraticBaseSize(degree),
	}
	fb.QuadraticMin = fb.AlgebraicMax + quadraticGap

	index := fb.QuadraticMin + uint64(fb.QuadraticCount)
	if index > uint64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("quadratic index %d overflows: %w", index, gnfserrors.ErrBounds)
	}
	quadMax, err := sieve.NthPrime(int(index))
	if err != nil {
		return nil, fmt.Errorf("failed to compute quadratic bound: %w", err)
	}
	fb.QuadraticMax = quadMax
	return fb, nil
}

// New computes the bounds and fills all three prime bases from the shared sieve.
func New(sieve *primes.Sieve, rationalMax uint64, degree int) (*FactorBase, error) {
	fb, err := Bounds(sieve, rationalMax, degree)
	if err != nil {
		return nil, err
	}

	if fb.Rational, err = sieve.PrimesUpTo(fb.RationalMax); err != nil {
		return nil, fmt.Errorf("failed to build rational base: %w", err)
	}
	if fb.Algebraic, err = sieve.PrimesUpTo(fb.AlgebraicMax); err != nil {
		return nil, fmt.Errorf("failed to build algebraic base: %w", err)
	}
	if fb.Quadratic, err = sieve.PrimesFrom(fb.QuadraticMin, fb.QuadraticCount); err != nil {
		return nil, fmt.Errorf("failed to build quadratic base: %w", err)
	}
	return fb, nil
}

// Primes returns the base of the given kind.
func (fb *FactorBase) Primes(kind Kind) []uint64 {
	switch kind {
	case Rational:
		return fb.Rational
	case Algebraic:
		return fb.Algebraic
	case Quadratic:
		return fb.Quadratic
	default:
		return nil
	}
}

// SetPrimes installs a base restored from a checkpoint.
func (fb *FactorBase) SetPrimes(kind Kind, ps []uint64) {
	switch kind {
	case Rational:
		fb.Rational = ps
	case Algebraic:
		fb.Algebraic = ps
	case Quadratic:
		fb.Quadratic = ps
	}
}

// Complete reports whether all three bases are populated.
func (fb *FactorBase) Complete() bool {
	return len(fb.Rational) > 0 && len(fb.Algebraic) > 0 && len(fb.Quadratic) == fb.QuadraticCount
}

// QuadraticBaseSize returns the number of quadratic character primes for a degree.
func QuadraticBaseSize(degree int) int {
	switch {
	case degree <= 3:
		return 10
	case degree == 4:
		return 20
	case degree <= 6:
		return 40
	case degree == 7:
		return 80
	default:
		return 100
	}
}

// DefaultRationalBound chooses B from the number of decimal digits of n.
func DefaultRationalBound(n *big.Int) uint64 {
	digits := len(new(big.Int).Abs(n).String())
	switch {
	case digits <= 10:
		return 100
	case digits <= 18:
		return uint64(digits) * 1000
	case digits <= 100:
		return 100000
	case digits <= 150:
		return 250000
	case digits <= 200:
		return 125000000
	default:
		return 250000000
	}
}
