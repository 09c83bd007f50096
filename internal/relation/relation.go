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
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
)

// Relation is a coprime pair (a, b), b > 0, with its norms and the part of
// each norm trial division could not remove.
type Relation struct {
	A int64
	B int64

	RationalNorm  *big.Int
	AlgebraicNorm *big.Int

	// Quotients start equal to the norms and shrink as factor base primes are
	// divided out. A side is smooth once its quotient is 1 or -1.
	RationalQuotient  *big.Int
	AlgebraicQuotient *big.Int

	RationalFactors  Factorization
	AlgebraicFactors Factorization
}

// RootError reports a coprime pair whose algebraic norm is zero. Then b*x + a
// divides f, so a + b*m divides f(m) = N.
type RootError struct {
	A, B int64
}

func (e *RootError) Error() string {
	return fmt.Sprintf("algebraic norm of (%d, %d) is zero", e.A, e.B)
}

func (e *RootError) Unwrap() error {
	return gnfserrors.ErrInvariantViolation
}

// New computes both norms of (a, b). It fails with ErrInvalidParameter when
// b is not positive and with a *RootError, which matches
// ErrInvariantViolation, when the algebraic norm of a coprime pair is zero.
func New(a, b int64, f *poly.Polynomial) (*Relation, error) {
	if b <= 0 {
		return nil, fmt.Errorf("relation b=%d must be positive: %w", b, gnfserrors.ErrInvalidParameter)
	}

	rational, algebraic := Norms(a, b, f)
	if algebraic.Sign() == 0 {
		return nil, &RootError{A: a, B: b}
	}

	return &Relation{
		A:                 a,
		B:                 b,
		RationalNorm:      rational,
		AlgebraicNorm:     algebraic,
		RationalQuotient:  new(big.Int).Set(rational),
		AlgebraicQuotient: new(big.Int).Set(algebraic),
	}, nil
}

// Norms returns a + b*m and F(a, -b).
func Norms(a, b int64, f *poly.Polynomial) (rational, algebraic *big.Int) {
	bigA := big.NewInt(a)
	bigB := big.NewInt(b)

	rational = new(big.Int).Mul(bigB, f.Base())
	rational.Add(rational, bigA)

	algebraic = f.EvaluateHomogeneous(bigA, new(big.Int).Neg(bigB))
	return rational, algebraic
}

// IsSmooth reports whether both quotients are 1 or -1.
func (r *Relation) IsSmooth() bool {
	return isUnit(r.RationalQuotient) && isUnit(r.AlgebraicQuotient)
}

// IsRationalSmooth reports whether the rational quotient is 1 or -1.
func (r *Relation) IsRationalSmooth() bool {
	return isUnit(r.RationalQuotient)
}

// Sieve trial-divides the rational norm by the rational base and then the
// algebraic norm by the algebraic base. Unless exhaustive is set, the
// algebraic side is left untouched when the rational side is not smooth.
func (r *Relation) Sieve(fb *factorbase.FactorBase, exhaustive bool) {
	r.RationalQuotient, r.RationalFactors = TrialDivide(r.RationalNorm, fb.Rational)
	if !exhaustive && !isUnit(r.RationalQuotient) {
		return
	}
	r.AlgebraicQuotient, r.AlgebraicFactors = TrialDivide(r.AlgebraicNorm, fb.Algebraic)
}

// Verify re-derives the norms from (a, b) and checks that the stored
// factorisations multiply back to them. It is used on relations restored
// from a checkpoint.
func (r *Relation) Verify(f *poly.Polynomial) error {
	if r.B <= 0 {
		return fmt.Errorf("relation (%d, %d): b must be positive: %w", r.A, r.B, gnfserrors.ErrInvariantViolation)
	}
	if gcd64(r.A, r.B) != 1 {
		return fmt.Errorf("relation (%d, %d) is not coprime: %w", r.A, r.B, gnfserrors.ErrInvariantViolation)
	}
	rational, algebraic := Norms(r.A, r.B, f)
	if rational.Cmp(r.RationalNorm) != 0 || algebraic.Cmp(r.AlgebraicNorm) != 0 {
		return fmt.Errorf("relation (%d, %d) norms do not match its coordinates: %w", r.A, r.B, gnfserrors.ErrInvariantViolation)
	}

	check := func(side string, norm, quotient *big.Int, fs Factorization) error {
		product := fs.Product()
		product.Mul(product, quotient)
		if product.Cmp(norm) != 0 {
			return fmt.Errorf("relation (%d, %d) %s factorisation does not reproduce the norm: %w",
				r.A, r.B, side, gnfserrors.ErrInvariantViolation)
		}
		return nil
	}
	if err := check("rational", r.RationalNorm, r.RationalQuotient, r.RationalFactors); err != nil {
		return err
	}
	return check("algebraic", r.AlgebraicNorm, r.AlgebraicQuotient, r.AlgebraicFactors)
}

// String renders the pair and its norms.
func (r *Relation) String() string {
	return fmt.Sprintf("(a:%d, b:%d) rational=%v algebraic=%v", r.A, r.B, r.RationalNorm, r.AlgebraicNorm)
}

func isUnit(v *big.Int) bool {
	return v != nil && v.IsInt64() && (v.Int64() == 1 || v.Int64() == -1)
}

func gcd64(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Coprime reports whether gcd(a, b) = 1.
func Coprime(a, b int64) bool {
	return gcd64(a, b) == 1
}
