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
	"math/big"
)

// residueRing is Z[w]/(p) for a prime p < 2^32, with elements stored as d
// residues. When F is irreducible mod p it is the field of p^d elements.
type residueRing struct {
	p     uint64
	d     int
	monic []uint64 // F mod p, constant term first, monic[d] = 1
}

func newResidueRing(k *Field, p uint64) *residueRing {
	mod := new(big.Int).SetUint64(p)
	r := new(big.Int)
	monic := make([]uint64, k.d+1)
	for i, c := range k.monic {
		monic[i] = r.Mod(c, mod).Uint64()
	}
	return &residueRing{p: p, d: k.d, monic: monic}
}

func (rr *residueRing) reduceElement(x Element) []uint64 {
	mod := new(big.Int).SetUint64(rr.p)
	r := new(big.Int)
	out := make([]uint64, rr.d)
	for i, c := range x {
		out[i] = r.Mod(c, mod).Uint64()
	}
	return out
}

func (rr *residueRing) one() []uint64 {
	out := make([]uint64, rr.d)
	out[0] = 1 % rr.p
	return out
}

func (rr *residueRing) isOne(x []uint64) bool {
	if x[0] != 1%rr.p {
		return false
	}
	for _, c := range x[1:] {
		if c != 0 {
			return false
		}
	}
	return true
}

func (rr *residueRing) isZero(x []uint64) bool {
	for _, c := range x {
		if c != 0 {
			return false
		}
	}
	return true
}

func (rr *residueRing) equal(x, y []uint64) bool {
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// fromPoly reduces an arbitrary residue polynomial modulo F.
func (rr *residueRing) fromPoly(coeffs []uint64) []uint64 {
	work := make([]uint64, len(coeffs))
	for i, c := range coeffs {
		work[i] = c % rr.p
	}
	return rr.fold(work)
}

func (rr *residueRing) mul(x, y []uint64) []uint64 {
	p := rr.p
	prod := make([]uint64, 2*rr.d-1)
	for i, a := range x {
		if a == 0 {
			continue
		}
		for j, b := range y {
			prod[i+j] = (prod[i+j] + a*b%p) % p
		}
	}
	return rr.fold(prod)
}

// fold reduces coefficients of degree >= d using the monic F.
func (rr *residueRing) fold(prod []uint64) []uint64 {
	p := rr.p
	for i := len(prod) - 1; i >= rr.d; i-- {
		top := prod[i]
		if top == 0 {
			continue
		}
		for j := 0; j < rr.d; j++ {
			idx := i - rr.d + j
			sub := top * rr.monic[j] % p
			prod[idx] = (prod[idx] + p - sub) % p
		}
		prod[i] = 0
	}
	out := make([]uint64, rr.d)
	copy(out, prod)
	return out
}

func (rr *residueRing) pow(x []uint64, e *big.Int) []uint64 {
	result := rr.one()
	for i := e.BitLen() - 1; i >= 0; i-- {
		result = rr.mul(result, result)
		if e.Bit(i) == 1 {
			result = rr.mul(result, x)
		}
	}
	return result
}

// order returns p^d, the size of the ring.
func (rr *residueRing) order() *big.Int {
	return new(big.Int).Exp(new(big.Int).SetUint64(rr.p), big.NewInt(int64(rr.d)), nil)
}

// inverse returns x^(q-2), the inverse of a non-zero x when the ring is a field.
func (rr *residueRing) inverse(x []uint64) []uint64 {
	e := rr.order()
	e.Sub(e, big.NewInt(2))
	return rr.pow(x, e)
}

func (rr *residueRing) toElement(x []uint64) Element {
	out := make(Element, rr.d)
	for i, c := range x {
		out[i] = new(big.Int).SetUint64(c)
	}
	return out
}

// irreducible reports whether F is irreducible mod p (Ben-Or): for every
// 1 <= i <= d/2, gcd(y^(p^i) - y, F) must be 1.
func (rr *residueRing) irreducible() bool {
	if rr.d == 1 {
		return true
	}
	p := rr.p
	y := rr.fromPoly([]uint64{0, 1})
	pBig := new(big.Int).SetUint64(p)

	power := y
	for i := 1; i <= rr.d/2; i++ {
		power = rr.pow(power, pBig)
		diff := make([]uint64, rr.d)
		for j := range diff {
			diff[j] = (power[j] + p - y[j]) % p
		}
		g := polyGCD(diff, rr.monic, p)
		if len(g) != 1 {
			return false
		}
	}
	return true
}

// polyGCD returns the monic gcd of a and b over F_p; an empty result is the
// zero polynomial.
func polyGCD(a, b []uint64, p uint64) []uint64 {
	a = trim(append([]uint64(nil), a...))
	b = trim(append([]uint64(nil), b...))
	for len(b) > 0 {
		a, b = b, polyRem(a, b, p)
	}
	if len(a) == 0 {
		return a
	}
	inv := powMod(a[len(a)-1], p-2, p)
	for i := range a {
		a[i] = a[i] * inv % p
	}
	return a
}

// polyRem returns a mod b over F_p; b must be non-zero.
func polyRem(a, b []uint64, p uint64) []uint64 {
	r := append([]uint64(nil), a...)
	lead := powMod(b[len(b)-1], p-2, p)
	for len(r) >= len(b) {
		shift := len(r) - len(b)
		factor := r[len(r)-1] * lead % p
		for i, c := range b {
			sub := factor * c % p
			r[shift+i] = (r[shift+i] + p - sub) % p
		}
		r = trim(r[:len(r)-1])
	}
	return trim(r)
}

func trim(a []uint64) []uint64 {
	for len(a) > 0 && a[len(a)-1] == 0 {
		a = a[:len(a)-1]
	}
	return a
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
