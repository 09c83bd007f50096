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
	"fmt"
	"math/big"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/matrix"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
)

// Layout assigns a matrix column to every quantity whose parity a smooth
// relation contributes. Columns are, in order: the rational sign, one per
// rational prime, the algebraic sign, one per algebraic (p, r) pair, one per
// algebraic prime dividing the leading coefficient (ideals above p that
// divide b), and one per usable quadratic character.
type Layout struct {
	rational   map[uint64]int
	algebraic  map[factorbase.Pair]int
	projective map[uint64]int
	characters []factorbase.Pair

	rationalSign  int
	algebraicSign int
	charOffset    int
	columns       int
}

// NewLayout builds the column layout for a session. Quadratic pairs whose
// prime divides the leading coefficient, or at which f has a repeated root,
// do not give a well defined character and are left out.
func NewLayout(f *poly.Polynomial, fb *factorbase.FactorBase, algebraic, quadratic *factorbase.Collection) *Layout {
	l := &Layout{
		rational:   make(map[uint64]int, len(fb.Rational)),
		algebraic:  make(map[factorbase.Pair]int, algebraic.Len()),
		projective: make(map[uint64]int),
	}

	col := 0
	l.rationalSign = col
	col++
	for _, p := range fb.Rational {
		l.rational[p] = col
		col++
	}

	l.algebraicSign = col
	col++
	for i := 0; i < algebraic.Len(); i++ {
		l.algebraic[algebraic.At(i)] = col
		col++
	}

	leading := f.LeadingCoefficient()
	divides := func(p uint64) bool {
		return new(big.Int).Mod(leading, new(big.Int).SetUint64(p)).Sign() == 0
	}
	for _, p := range fb.Algebraic {
		if divides(p) {
			l.projective[p] = col
			col++
		}
	}

	l.charOffset = col
	for i := 0; i < quadratic.Len(); i++ {
		pair := quadratic.At(i)
		if divides(pair.P) {
			continue
		}
		if f.DerivativeMod(pair.R, pair.P) == 0 {
			continue
		}
		l.characters = append(l.characters, pair)
	}
	col += len(l.characters)

	l.columns = col
	return l
}

// Columns returns the number of matrix columns.
func (l *Layout) Columns() int {
	return l.columns
}

// Characters returns the quadratic character pairs in column order.
func (l *Layout) Characters() []factorbase.Pair {
	out := make([]factorbase.Pair, len(l.characters))
	copy(out, l.characters)
	return out
}

// Vector returns the exponent-parity vector of a smooth relation.
func (l *Layout) Vector(r *Relation) (*matrix.BitVector, error) {
	if !r.IsSmooth() {
		return nil, fmt.Errorf("relation (%d, %d) is not smooth: %w", r.A, r.B, gnfserrors.ErrInvariantViolation)
	}
	v := matrix.NewBitVector(l.columns)

	if r.RationalNorm.Sign() < 0 {
		v.Set(l.rationalSign)
	}
	for _, pp := range r.RationalFactors {
		if pp.Exp%2 == 0 {
			continue
		}
		col, ok := l.rational[pp.Prime]
		if !ok {
			return nil, fmt.Errorf("relation (%d, %d): rational prime %d has no column: %w", r.A, r.B, pp.Prime, gnfserrors.ErrInvariantViolation)
		}
		v.Set(col)
	}

	if r.AlgebraicNorm.Sign() < 0 {
		v.Set(l.algebraicSign)
	}
	for _, pp := range r.AlgebraicFactors {
		if pp.Exp%2 == 0 {
			continue
		}
		p := pp.Prime
		bm := mod64(r.B, p)
		if bm == 0 {
			col, ok := l.projective[p]
			if !ok {
				return nil, fmt.Errorf("relation (%d, %d): prime %d divides b but not the leading coefficient: %w", r.A, r.B, p, gnfserrors.ErrInvariantViolation)
			}
			v.Set(col)
			continue
		}
		root := mulMod((p-mod64(r.A, p))%p, invMod(bm, p), p)
		col, ok := l.algebraic[factorbase.Pair{P: p, R: root}]
		if !ok {
			return nil, fmt.Errorf("relation (%d, %d): ideal (%d, %d) has no column: %w", r.A, r.B, p, root, gnfserrors.ErrInvariantViolation)
		}
		v.Set(col)
	}

	for i, ch := range l.characters {
		// a + b*s mod q; a zero value has no character and leaves the bit clear.
		val := (mod64(r.A, ch.P) + mulMod(mod64(r.B, ch.P), ch.R, ch.P)) % ch.P
		if val != 0 && legendre(val, ch.P) == -1 {
			v.Set(l.charOffset + i)
		}
	}
	return v, nil
}

// mod64 returns x mod p in [0, p).
func mod64(x int64, p uint64) uint64 {
	if x >= 0 {
		return uint64(x) % p
	}
	r := uint64(-(x + 1)) % p
	return (p - 1 - r) % p
}

func mulMod(a, b, m uint64) uint64 {
	return a * b % m
}

func powMod(base, exp, m uint64) uint64 {
	result := uint64(1) % m
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = result * base % m
		}
		base = base * base % m
		exp >>= 1
	}
	return result
}

// invMod inverts a modulo the prime p; a must be non-zero mod p.
func invMod(a, p uint64) uint64 {
	if p == 2 {
		return 1
	}
	return powMod(a, p-2, p)
}

// legendre returns the Legendre symbol (a/p) for an odd prime p.
func legendre(a, p uint64) int {
	a %= p
	if a == 0 {
		return 0
	}
	if powMod(a, (p-1)/2, p) == 1 {
		return 1
	}
	return -1
}
