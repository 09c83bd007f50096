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
	"fmt"
	"math/big"

	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
)

var (
	// ErrNotSquare indicates the element has no square root in Z[w].
	ErrNotSquare = errors.New("element is not a square")

	// ErrNoInertPrime indicates no prime below the search limit keeps F
	// irreducible and the element non-zero.
	ErrNoInertPrime = errors.New("no inert prime found")
)

const (
	// inertSearchLimit bounds the number of primes tried for an inert prime.
	inertSearchLimit = 5000

	// liftMargin is the number of bits beyond the element's size at which
	// lifting gives up.
	liftMargin = 128
)

// InertPrime returns the smallest odd prime p > start at which F is
// irreducible and gamma does not vanish.
func (k *Field) InertPrime(ctx context.Context, sieve *primes.Sieve, start uint64, gamma Element) (uint64, error) {
	if start < 2 {
		start = 2
	}
	candidates, err := sieve.PrimesFrom(start+1, inertSearchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list inert prime candidates: %w", err)
	}
	for i, p := range candidates {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if p == 2 {
			continue
		}
		rr := newResidueRing(k, p)
		if !rr.irreducible() {
			continue
		}
		if rr.isZero(rr.reduceElement(gamma)) {
			continue
		}
		return p, nil
	}
	return 0, fmt.Errorf("searched %d primes above %d: %w", len(candidates), start, ErrNoInertPrime)
}

// SquareRoot returns beta with beta^2 = gamma exactly. The root is computed
// modulo the inert prime p, lifted p-adically and checked by squaring.
func (k *Field) SquareRoot(ctx context.Context, gamma Element, p uint64) (Element, error) {
	rr := newResidueRing(k, p)
	g := rr.reduceElement(gamma)
	if rr.isZero(g) {
		return nil, fmt.Errorf("gamma vanishes mod %d: %w", p, ErrNoInertPrime)
	}

	root, err := rr.sqrt(g)
	if err != nil {
		return nil, err
	}

	// rho is an inverse square root of gamma, lifted by
	// rho <- rho * (3 - gamma * rho^2) / 2, doubling the precision each step.
	rho := rr.toElement(rr.inverse(root))
	modulus := new(big.Int).SetUint64(p)
	target := MaxBits(gamma)/2 + 1
	limit := MaxBits(gamma) + liftMargin
	three := big.NewInt(3)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		modulus.Mul(modulus, modulus)
		half := new(big.Int).Add(modulus, big.NewInt(1))
		half.Rsh(half, 1)

		t := k.MulMod(rho, rho, modulus)
		t = k.MulMod(t, gamma, modulus)
		for i := range t {
			t[i].Neg(t[i])
		}
		t[0].Add(t[0], three)
		rho = k.MulMod(rho, t, modulus)
		rho = k.MulMod(rho, k.constant(half), modulus)

		if modulus.BitLen() > target {
			beta := symmetric(k.MulMod(gamma, rho, modulus), modulus)
			if k.Equal(k.Mul(beta, beta), gamma) {
				return beta, nil
			}
		}
		if modulus.BitLen() > limit {
			return nil, fmt.Errorf("no integral root within %d bits: %w", modulus.BitLen(), ErrNotSquare)
		}
	}
}

func (k *Field) constant(v *big.Int) Element {
	e := k.Zero()
	e[0].Set(v)
	return e
}

// symmetric maps every coefficient into (-m/2, m/2].
func symmetric(x Element, m *big.Int) Element {
	half := new(big.Int).Rsh(m, 1)
	for _, c := range x {
		if c.Cmp(half) > 0 {
			c.Sub(c, m)
		}
	}
	return x
}

// sqrt finds a square root of g in the field of q = p^d elements with
// Tonelli-Shanks.
func (rr *residueRing) sqrt(g []uint64) ([]uint64, error) {
	q := rr.order()
	qm1 := new(big.Int).Sub(q, big.NewInt(1))
	halfOrder := new(big.Int).Rsh(qm1, 1)

	if !rr.isOne(rr.pow(g, halfOrder)) {
		return nil, fmt.Errorf("gamma is a non-residue mod %d: %w", rr.p, ErrNotSquare)
	}

	// q - 1 = 2^s * t with t odd
	s := 0
	t := new(big.Int).Set(qm1)
	for t.Bit(0) == 0 {
		t.Rsh(t, 1)
		s++
	}

	z, err := rr.nonResidue(halfOrder)
	if err != nil {
		return nil, err
	}

	m := s
	c := rr.pow(z, t)
	tt := rr.pow(g, t)
	exp := new(big.Int).Add(t, big.NewInt(1))
	exp.Rsh(exp, 1)
	r := rr.pow(g, exp)

	for !rr.isOne(tt) {
		i := 0
		sq := tt
		for !rr.isOne(sq) {
			sq = rr.mul(sq, sq)
			i++
			if i == m {
				return nil, fmt.Errorf("tonelli-shanks did not converge mod %d: %w", rr.p, ErrNotSquare)
			}
		}
		b := c
		for j := 0; j < m-i-1; j++ {
			b = rr.mul(b, b)
		}
		m = i
		c = rr.mul(b, b)
		tt = rr.mul(tt, c)
		r = rr.mul(r, b)
	}

	if !rr.equal(rr.mul(r, r), g) {
		return nil, fmt.Errorf("square root check failed mod %d: %w", rr.p, ErrNotSquare)
	}
	return r, nil
}

// nonResidue returns the first element of the form y + k (k when d = 1),
// falling back to y^2 + k*y + k, that is not a square.
func (rr *residueRing) nonResidue(halfOrder *big.Int) ([]uint64, error) {
	minusOne := rr.one()
	minusOne[0] = rr.p - 1
	for k := uint64(0); k < rr.p; k++ {
		var z []uint64
		if rr.d == 1 {
			z = []uint64{k}
		} else {
			z = rr.fromPoly([]uint64{k, 1})
		}
		if rr.equal(rr.pow(z, halfOrder), minusOne) {
			return z, nil
		}
	}
	if rr.d > 1 {
		for k := uint64(1); k < rr.p; k++ {
			z := rr.fromPoly([]uint64{k, k, 1})
			if rr.equal(rr.pow(z, halfOrder), minusOne) {
				return z, nil
			}
		}
	}
	return nil, fmt.Errorf("no quadratic non-residue mod %d: %w", rr.p, ErrNotSquare)
}
