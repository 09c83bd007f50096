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
	"math/big"
	"sort"
)

// PrimePower is one prime of a factorisation with its exponent.
type PrimePower struct {
	Prime uint64
	Exp   int
}

// Factorization is a list of prime powers in ascending prime order.
type Factorization []PrimePower

// Product returns the product of all prime powers.
func (fs Factorization) Product() *big.Int {
	product := big.NewInt(1)
	p := new(big.Int)
	e := new(big.Int)
	for _, pp := range fs {
		p.SetUint64(pp.Prime)
		e.SetInt64(int64(pp.Exp))
		product.Mul(product, new(big.Int).Exp(p, e, nil))
	}
	return product
}

// Exponent returns the exponent of prime, or 0 when it does not occur.
func (fs Factorization) Exponent(prime uint64) int {
	i := sort.Search(len(fs), func(i int) bool { return fs[i].Prime >= prime })
	if i < len(fs) && fs[i].Prime == prime {
		return fs[i].Exp
	}
	return 0
}

// TrialDivide divides every prime of base out of norm. Division stops once
// the quotient is 0 or a unit, or once the next prime squared exceeds it; a
// remaining quotient that is itself a base prime is then divided out. The
// returned quotient keeps the sign of norm.
func TrialDivide(norm *big.Int, base []uint64) (*big.Int, Factorization) {
	if norm.Sign() == 0 {
		return new(big.Int), nil
	}

	var fs Factorization
	abs := new(big.Int).Abs(norm)
	i := 0

	// Big path until the quotient fits a machine word.
	if !abs.IsUint64() {
		p := new(big.Int)
		q := new(big.Int)
		r := new(big.Int)
		for ; i < len(base) && !abs.IsUint64(); i++ {
			p.SetUint64(base[i])
			exp := 0
			for {
				q.QuoRem(abs, p, r)
				if r.Sign() != 0 {
					break
				}
				abs.Set(q)
				exp++
			}
			if exp > 0 {
				fs = append(fs, PrimePower{Prime: base[i], Exp: exp})
			}
		}
		if !abs.IsUint64() {
			return withSign(abs, norm.Sign()), fs
		}
	}

	rest, tail := trialDivideWord(abs.Uint64(), base, i)
	fs = append(fs, tail...)
	return withSign(new(big.Int).SetUint64(rest), norm.Sign()), fs
}

// trialDivideWord continues trial division of q by base[start:].
func trialDivideWord(q uint64, base []uint64, start int) (uint64, Factorization) {
	var fs Factorization
	for i := start; i < len(base) && q > 1; i++ {
		p := base[i]
		if p > q/p {
			break
		}
		exp := 0
		for q%p == 0 {
			q /= p
			exp++
		}
		if exp > 0 {
			fs = append(fs, PrimePower{Prime: p, Exp: exp})
		}
	}

	if q > 1 && len(base) > 0 && q <= base[len(base)-1] {
		j := sort.Search(len(base), func(j int) bool { return base[j] >= q })
		if j < len(base) && base[j] == q {
			fs = append(fs, PrimePower{Prime: q, Exp: 1})
			q = 1
		}
	}
	return q, fs
}

func withSign(abs *big.Int, sign int) *big.Int {
	if sign < 0 {
		return abs.Neg(abs)
	}
	return abs
}
