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

package poly

import (
	"fmt"
	"math/big"
	"strings"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
)

// Polynomial is an immutable integer polynomial with coefficients stored from
// the constant term upward, together with the base m it was built from.
type Polynomial struct {
	coeffs []*big.Int
	base   *big.Int
}

// New decomposes n in base `base`, producing a polynomial of the given degree
// with f(base) = n. Coefficients below the leading one are taken greedily as
// min(remaining / base^i, base); the leading coefficient absorbs whatever the
// base^degree place holds so evaluation always reproduces n.
func New(n, base *big.Int, degree int) (*Polynomial, error) {
	if degree < 1 {
		return nil, fmt.Errorf("polynomial degree %d must be at least 1: %w", degree, gnfserrors.ErrInvalidParameter)
	}
	if base == nil || base.Cmp(bigOne) <= 0 {
		return nil, fmt.Errorf("polynomial base %v must be greater than 1: %w", base, gnfserrors.ErrInvalidParameter)
	}
	if n == nil || n.Cmp(bigOne) <= 0 {
		return nil, fmt.Errorf("n %v must be greater than 1: %w", n, gnfserrors.ErrInvalidParameter)
	}

	remaining := new(big.Int).Set(n)
	coeffs := make([]*big.Int, degree+1)
	place := new(big.Int).Exp(base, big.NewInt(int64(degree)), nil)

	for d := degree; d >= 0; d-- {
		c := new(big.Int)
		if remaining.Cmp(place) >= 0 {
			c.Quo(remaining, place)
			if d < degree && c.Cmp(base) > 0 {
				c.Set(base)
			}
			remaining.Sub(remaining, new(big.Int).Mul(c, place))
		}
		coeffs[d] = c
		if d > 0 {
			place.Quo(place, base)
		}
	}

	if coeffs[degree].Sign() == 0 {
		return nil, fmt.Errorf("base %v is too large for degree %d (base^%d > n): %w",
			base, degree, degree, gnfserrors.ErrInvalidParameter)
	}
	if remaining.Sign() != 0 {
		return nil, fmt.Errorf("decomposition of %v in base %v left %v: %w",
			n, base, remaining, gnfserrors.ErrInvariantViolation)
	}

	return &Polynomial{coeffs: coeffs, base: new(big.Int).Set(base)}, nil
}

// FromTerms rebuilds a polynomial from its coefficients (constant term first)
// and base, as stored in a checkpoint. Trailing zero coefficients are rejected.
func FromTerms(coeffs []*big.Int, base *big.Int) (*Polynomial, error) {
	if len(coeffs) < 2 {
		return nil, fmt.Errorf("polynomial needs at least 2 coefficients, got %d: %w", len(coeffs), gnfserrors.ErrInvalidParameter)
	}
	if base == nil || base.Cmp(bigOne) <= 0 {
		return nil, fmt.Errorf("polynomial base %v must be greater than 1: %w", base, gnfserrors.ErrInvalidParameter)
	}
	cp := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		if c == nil {
			return nil, fmt.Errorf("coefficient %d is missing: %w", i, gnfserrors.ErrInvalidParameter)
		}
		cp[i] = new(big.Int).Set(c)
	}
	if cp[len(cp)-1].Sign() == 0 {
		return nil, fmt.Errorf("leading coefficient is zero: %w", gnfserrors.ErrInvalidParameter)
	}
	return &Polynomial{coeffs: cp, base: new(big.Int).Set(base)}, nil
}

// Degree returns the degree of f.
func (p *Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Base returns a copy of m.
func (p *Polynomial) Base() *big.Int {
	return new(big.Int).Set(p.base)
}

// Coefficient returns a copy of the coefficient of x^i, or zero when i is out of range.
func (p *Polynomial) Coefficient(i int) *big.Int {
	if i < 0 || i >= len(p.coeffs) {
		return new(big.Int)
	}
	return new(big.Int).Set(p.coeffs[i])
}

// Coefficients returns copies of all coefficients, constant term first.
func (p *Polynomial) Coefficients() []*big.Int {
	out := make([]*big.Int, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = new(big.Int).Set(c)
	}
	return out
}

// LeadingCoefficient returns a copy of the coefficient of x^d.
func (p *Polynomial) LeadingCoefficient() *big.Int {
	return p.Coefficient(p.Degree())
}

// IsMonic reports whether the leading coefficient is 1.
func (p *Polynomial) IsMonic() bool {
	return p.coeffs[p.Degree()].Cmp(bigOne) == 0
}

// Evaluate returns f(x) using Horner's rule.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	result := new(big.Int)
	for i := p.Degree(); i >= 0; i-- {
		result.Mul(result, x)
		result.Add(result, p.coeffs[i])
	}
	return result
}

// EvaluateHomogeneous returns b^d * f(a/b) = sum c_i * a^i * b^(d-i).
// The result is exact for any signs of a and b.
func (p *Polynomial) EvaluateHomogeneous(a, b *big.Int) *big.Int {
	d := p.Degree()
	result := new(big.Int)
	aPow := big.NewInt(1)
	bPows := make([]*big.Int, d+1)
	bPows[0] = big.NewInt(1)
	for i := 1; i <= d; i++ {
		bPows[i] = new(big.Int).Mul(bPows[i-1], b)
	}

	term := new(big.Int)
	for i := 0; i <= d; i++ {
		if p.coeffs[i].Sign() != 0 {
			term.Mul(p.coeffs[i], aPow)
			term.Mul(term, bPows[d-i])
			result.Add(result, term)
		}
		aPow.Mul(aPow, a)
	}
	return result
}

// EvaluateMod returns f(x) mod m for m < 2^32.
func (p *Polynomial) EvaluateMod(x, m uint64) uint64 {
	return hornerMod(p.ResiduesMod(m), x%m, m)
}

// ResiduesMod returns every coefficient reduced into [0, m).
func (p *Polynomial) ResiduesMod(m uint64) []uint64 {
	mod := new(big.Int).SetUint64(m)
	r := new(big.Int)
	out := make([]uint64, len(p.coeffs))
	for i, c := range p.coeffs {
		out[i] = r.Mod(c, mod).Uint64()
	}
	return out
}

// RootsMod returns every r in [0, m) with f(r) = 0 mod m, ascending.
// The search is exhaustive over residues.
func (p *Polynomial) RootsMod(m uint64) []uint64 {
	if m == 0 {
		return nil
	}
	residues := p.ResiduesMod(m)
	var roots []uint64
	for r := uint64(0); r < m; r++ {
		if hornerMod(residues, r, m) == 0 {
			roots = append(roots, r)
		}
	}
	return roots
}

// DerivativeMod returns f'(x) mod m for m < 2^32.
func (p *Polynomial) DerivativeMod(x, m uint64) uint64 {
	residues := p.ResiduesMod(m)
	x %= m
	var result uint64
	for i := len(residues) - 1; i >= 1; i-- {
		c := residues[i] * (uint64(i) % m) % m
		result = (result*x + c) % m
	}
	return result
}

// Derivative returns the coefficients of f', constant term first.
func (p *Polynomial) Derivative() []*big.Int {
	d := p.Degree()
	out := make([]*big.Int, d)
	for i := 1; i <= d; i++ {
		out[i-1] = new(big.Int).Mul(p.coeffs[i], big.NewInt(int64(i)))
	}
	return out
}

// String renders f in descending powers, for example "x^3 + 2*x + 11".
func (p *Polynomial) String() string {
	var sb strings.Builder
	for i := p.Degree(); i >= 0; i-- {
		c := p.coeffs[i]
		if c.Sign() == 0 {
			continue
		}
		abs := new(big.Int).Abs(c)
		if sb.Len() > 0 {
			if c.Sign() < 0 {
				sb.WriteString(" - ")
			} else {
				sb.WriteString(" + ")
			}
		} else if c.Sign() < 0 {
			sb.WriteString("-")
		}

		switch {
		case i == 0:
			sb.WriteString(abs.String())
		case abs.Cmp(bigOne) == 0:
			// bare x term
		default:
			sb.WriteString(abs.String())
			sb.WriteString("*")
		}
		switch {
		case i == 1:
			sb.WriteString("x")
		case i > 1:
			fmt.Fprintf(&sb, "x^%d", i)
		}
	}
	if sb.Len() == 0 {
		return "0"
	}
	return sb.String()
}

func hornerMod(residues []uint64, x, m uint64) uint64 {
	var result uint64
	for i := len(residues) - 1; i >= 0; i-- {
		result = (result*x + residues[i]) % m
	}
	return result
}
