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

	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
)

// Element is a member of Z[w], stored as d coefficients of 1, w, ..., w^(d-1).
type Element []*big.Int

// Field is the order Z[w] of the monic transform F of a session polynomial.
type Field struct {
	d       int
	leading *big.Int
	monic   []*big.Int // F, constant term first, monic[d] = 1
	base    *big.Int
}

// NewField builds the monic transform of f.
func NewField(f *poly.Polynomial) *Field {
	d := f.Degree()
	c := f.LeadingCoefficient()
	monic := make([]*big.Int, d+1)
	for i := 0; i <= d; i++ {
		if i == d {
			monic[i] = big.NewInt(1)
			continue
		}
		scale := new(big.Int).Exp(c, big.NewInt(int64(d-1-i)), nil)
		monic[i] = scale.Mul(scale, f.Coefficient(i))
	}
	return &Field{d: d, leading: c, monic: monic, base: f.Base()}
}

// Degree returns d.
func (k *Field) Degree() int {
	return k.d
}

// Leading returns a copy of the leading coefficient c of f.
func (k *Field) Leading() *big.Int {
	return new(big.Int).Set(k.leading)
}

// Monic returns copies of the coefficients of F, constant term first.
func (k *Field) Monic() []*big.Int {
	out := make([]*big.Int, len(k.monic))
	for i, c := range k.monic {
		out[i] = new(big.Int).Set(c)
	}
	return out
}

// Zero returns the zero element.
func (k *Field) Zero() Element {
	e := make(Element, k.d)
	for i := range e {
		e[i] = new(big.Int)
	}
	return e
}

// One returns the unit element.
func (k *Field) One() Element {
	e := k.Zero()
	e[0].SetInt64(1)
	return e
}

// FromPair returns c*a + b*w, the image of a + b*theta scaled by c.
func (k *Field) FromPair(a, b int64) Element {
	e := k.Zero()
	e[0].Mul(k.leading, big.NewInt(a))
	if k.d == 1 {
		// w = -F(0) when F is linear.
		t := new(big.Int).Mul(big.NewInt(b), k.monic[0])
		e[0].Sub(e[0], t)
		return e
	}
	e[1].SetInt64(b)
	return e
}

// DerivativeAtRoot returns F'(w).
func (k *Field) DerivativeAtRoot() Element {
	coeffs := make([]*big.Int, k.d)
	for i := 1; i <= k.d; i++ {
		coeffs[i-1] = new(big.Int).Mul(k.monic[i], big.NewInt(int64(i)))
	}
	return k.reduce(coeffs, nil)
}

// Mul returns x*y exactly.
func (k *Field) Mul(x, y Element) Element {
	return k.reduce(mulPoly(x, y), nil)
}

// MulMod returns x*y with coefficients reduced into [0, m).
func (k *Field) MulMod(x, y Element, m *big.Int) Element {
	return k.reduce(mulPoly(x, y), m)
}

// Scale returns s*x.
func (k *Field) Scale(x Element, s *big.Int) Element {
	out := make(Element, len(x))
	for i, c := range x {
		out[i] = new(big.Int).Mul(c, s)
	}
	return out
}

// Product multiplies the elements with a balanced product tree.
func (k *Field) Product(xs []Element) Element {
	switch len(xs) {
	case 0:
		return k.One()
	case 1:
		return xs[0]
	}
	mid := len(xs) / 2
	return k.Mul(k.Product(xs[:mid]), k.Product(xs[mid:]))
}

// Equal reports whether x and y have identical coefficients.
func (k *Field) Equal(x, y Element) bool {
	for i := 0; i < k.d; i++ {
		if x[i].Cmp(y[i]) != 0 {
			return false
		}
	}
	return true
}

// IsZero reports whether every coefficient is zero.
func (k *Field) IsZero(x Element) bool {
	for _, c := range x {
		if c.Sign() != 0 {
			return false
		}
	}
	return true
}

// Evaluate maps x into Z/nZ by sending w to c*m, returning a value in [0, n).
func (k *Field) Evaluate(x Element, n *big.Int) *big.Int {
	at := new(big.Int).Mul(k.leading, k.base)
	at.Mod(at, n)
	result := new(big.Int)
	for i := len(x) - 1; i >= 0; i-- {
		result.Mul(result, at)
		result.Add(result, x[i])
		result.Mod(result, n)
	}
	return result
}

// MaxBits returns the bit length of the largest coefficient of x.
func MaxBits(x Element) int {
	bits := 0
	for _, c := range x {
		if b := c.BitLen(); b > bits {
			bits = b
		}
	}
	return bits
}

func mulPoly(x, y Element) []*big.Int {
	out := make([]*big.Int, len(x)+len(y)-1)
	for i := range out {
		out[i] = new(big.Int)
	}
	t := new(big.Int)
	for i, a := range x {
		if a.Sign() == 0 {
			continue
		}
		for j, b := range y {
			if b.Sign() == 0 {
				continue
			}
			out[i+j].Add(out[i+j], t.Mul(a, b))
		}
	}
	return out
}

// reduce folds coefficients of degree >= d back using F, optionally reducing
// every coefficient modulo m.
func (k *Field) reduce(coeffs []*big.Int, m *big.Int) Element {
	t := new(big.Int)
	for i := len(coeffs) - 1; i >= k.d; i-- {
		top := coeffs[i]
		if top.Sign() == 0 {
			continue
		}
		if m != nil {
			top.Mod(top, m)
		}
		for j := 0; j < k.d; j++ {
			if k.monic[j].Sign() == 0 {
				continue
			}
			idx := i - k.d + j
			coeffs[idx].Sub(coeffs[idx], t.Mul(top, k.monic[j]))
		}
		top.SetInt64(0)
	}

	out := make(Element, k.d)
	for i := 0; i < k.d; i++ {
		if i < len(coeffs) {
			out[i] = coeffs[i]
		} else {
			out[i] = new(big.Int)
		}
		if m != nil {
			out[i].Mod(out[i], m)
		}
	}
	return out
}
