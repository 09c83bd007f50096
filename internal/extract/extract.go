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
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/algebra"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

// Factors is a non-trivial split of N.
type Factors struct {
	P *big.Int
	Q *big.Int

	// Dependency is the index of the dependency that produced the split.
	Dependency int
}

// Extractor holds what is shared by every dependency of a session.
type Extractor struct {
	n          *big.Int
	field      *algebra.Field
	sieve      *primes.Sieve
	inertStart uint64
	logger     *zap.Logger

	derivative *big.Int // F'(c*m) mod N
	leadingMod *big.Int // c mod N
}

// New prepares an extractor for n and f. Inert primes are searched above
// inertStart using the shared sieve.
func New(n *big.Int, f *poly.Polynomial, sieve *primes.Sieve, inertStart uint64, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	field := algebra.NewField(f)
	return &Extractor{
		n:          new(big.Int).Set(n),
		field:      field,
		sieve:      sieve,
		inertStart: inertStart,
		logger:     logger,
		derivative: field.Evaluate(field.DerivativeAtRoot(), n),
		leadingMod: new(big.Int).Mod(field.Leading(), n),
	}
}

// Extract tries each dependency in turn and returns the first non-trivial
// split of N.
func (e *Extractor) Extract(ctx context.Context, rels []*relation.Relation, deps [][]int) (*Factors, error) {
	for i, dep := range deps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extraction interrupted at dependency %d: %w", i, gnfserrors.ErrCancelled)
		}

		factors, err := e.TryDependency(ctx, rels, dep)
		switch {
		case err == nil && factors != nil:
			factors.Dependency = i
			return factors, nil
		case err == nil:
			e.logger.Debug("dependency gave a trivial factor", zap.Int("dependency", i), zap.Int("size", len(dep)))
		case errors.Is(err, algebra.ErrNoInertPrime):
			// Irreducibility mod p does not depend on the dependency, so the
			// rest would fail the same way.
			e.logger.Warn("no inert prime, polynomial is probably reducible", zap.Int("dependency", i), zap.Error(err))
			return nil, fmt.Errorf("dependency %d: %w; the polynomial is probably reducible: %w",
				i, err, gnfserrors.ErrNoFactorFound)
		case errors.Is(err, algebra.ErrNotSquare), errors.Is(err, errNotSquareRational):
			e.logger.Debug("dependency skipped", zap.Int("dependency", i), zap.Error(err))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("extraction interrupted at dependency %d: %w", i, gnfserrors.ErrCancelled)
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("tried %d dependencies: %w", len(deps), gnfserrors.ErrNoFactorFound)
}

var errNotSquareRational = errors.New("rational product is not a square")

// TryDependency computes x and y for one dependency. It returns nil factors
// and a nil error when both gcds are trivial.
func (e *Extractor) TryDependency(ctx context.Context, rels []*relation.Relation, dep []int) (*Factors, error) {
	if len(dep) == 0 {
		return nil, fmt.Errorf("empty dependency: %w", gnfserrors.ErrInvariantViolation)
	}

	x, err := e.rationalRoot(rels, dep)
	if err != nil {
		return nil, err
	}
	y, err := e.algebraicRoot(ctx, rels, dep)
	if err != nil {
		return nil, err
	}

	x2 := new(big.Int).Mul(x, x)
	x2.Mod(x2, e.n)
	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, e.n)
	if x2.Cmp(y2) != 0 {
		return nil, fmt.Errorf("x^2 and y^2 differ mod N for a dependency of %d relations: %w", len(dep), gnfserrors.ErrInvariantViolation)
	}

	for _, candidate := range []*big.Int{new(big.Int).Sub(x, y), new(big.Int).Add(x, y)} {
		g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(candidate), e.n)
		if g.Cmp(big.NewInt(1)) > 0 && g.Cmp(e.n) < 0 {
			return &Factors{P: g, Q: new(big.Int).Quo(e.n, g)}, nil
		}
	}
	return nil, nil
}

// rationalRoot returns F'(c*m) * c^ceil(k/2) * sqrt(prod(a + b*m)) mod N.
func (e *Extractor) rationalRoot(rels []*relation.Relation, dep []int) (*big.Int, error) {
	norms := make([]*big.Int, len(dep))
	for i, idx := range dep {
		norms[i] = rels[idx].RationalNorm
	}
	product := productTree(norms)
	if product.Sign() < 0 {
		return nil, fmt.Errorf("rational product is negative: %w", errNotSquareRational)
	}
	root := new(big.Int).Sqrt(product)
	if new(big.Int).Mul(root, root).Cmp(product) != 0 {
		return nil, errNotSquareRational
	}

	x := root.Mod(root, e.n)
	x.Mul(x, e.derivative)
	cPow := new(big.Int).Exp(e.leadingMod, big.NewInt(int64((len(dep)+1)/2)), e.n)
	x.Mul(x, cPow)
	return x.Mod(x, e.n), nil
}

// algebraicRoot returns phi(beta) for beta^2 = F'(w)^2 * prod(c*a + b*w) [* c].
func (e *Extractor) algebraicRoot(ctx context.Context, rels []*relation.Relation, dep []int) (*big.Int, error) {
	k := e.field
	elems := make([]algebra.Element, 0, len(dep)+3)
	for _, idx := range dep {
		elems = append(elems, k.FromPair(rels[idx].A, rels[idx].B))
	}
	fp := k.DerivativeAtRoot()
	elems = append(elems, fp, fp)
	if len(dep)%2 == 1 {
		c := k.Zero()
		c[0].Set(k.Leading())
		elems = append(elems, c)
	}
	gamma := k.Product(elems)

	p, err := k.InertPrime(ctx, e.sieve, e.inertStart, gamma)
	if err != nil {
		return nil, err
	}
	beta, err := k.SquareRoot(ctx, gamma, p)
	if err != nil {
		return nil, err
	}
	return k.Evaluate(beta, e.n), nil
}

func productTree(xs []*big.Int) *big.Int {
	switch len(xs) {
	case 0:
		return big.NewInt(1)
	case 1:
		return new(big.Int).Set(xs[0])
	}
	mid := len(xs) / 2
	return new(big.Int).Mul(productTree(xs[:mid]), productTree(xs[mid:]))
}
