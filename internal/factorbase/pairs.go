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
	"context"
	"fmt"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
)

// rootBatch is the number of primes handed to a worker at once.
const rootBatch = 64

// Pair is a prime together with one root.
type Pair struct {
	P uint64 `json:"p"`
	R uint64 `json:"r"`
}

// Collection is an immutable sequence of pairs ordered by prime, then root.
type Collection struct {
	pairs []Pair
}

// NewCollection wraps pairs, sorting them into canonical order.
func NewCollection(pairs []Pair) *Collection {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].P != cp[j].P {
			return cp[i].P < cp[j].P
		}
		return cp[i].R < cp[j].R
	})
	return &Collection{pairs: cp}
}

// Len returns the number of pairs.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pairs)
}

// At returns the i-th pair.
func (c *Collection) At(i int) Pair {
	return c.pairs[i]
}

// Pairs returns a copy of the pairs.
func (c *Collection) Pairs() []Pair {
	if c == nil {
		return nil
	}
	out := make([]Pair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// BuildRational pairs every rational prime with m mod p.
func BuildRational(fb *FactorBase, f *poly.Polynomial) *Collection {
	base := f.Base()
	mod := new(big.Int)
	r := new(big.Int)
	pairs := make([]Pair, 0, len(fb.Rational))
	for _, p := range fb.Rational {
		mod.SetUint64(p)
		pairs = append(pairs, Pair{P: p, R: r.Mod(base, mod).Uint64()})
	}
	return &Collection{pairs: pairs}
}

// BuildAlgebraic finds the roots of f modulo every algebraic prime.
func BuildAlgebraic(ctx context.Context, fb *FactorBase, f *poly.Polynomial, workers int) (*Collection, error) {
	return buildRoots(ctx, fb.Algebraic, f, workers)
}

// BuildQuadratic finds the roots of f modulo every quadratic prime.
func BuildQuadratic(ctx context.Context, fb *FactorBase, f *poly.Polynomial, workers int) (*Collection, error) {
	return buildRoots(ctx, fb.Quadratic, f, workers)
}

func buildRoots(ctx context.Context, ps []uint64, f *poly.Polynomial, workers int) (*Collection, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([][]Pair, (len(ps)+rootBatch-1)/rootBatch)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range results {
		lo := i * rootBatch
		hi := lo + rootBatch
		if hi > len(ps) {
			hi = len(ps)
		}
		g.Go(func() error {
			var out []Pair
			for _, p := range ps[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, r := range f.RootsMod(p) {
					out = append(out, Pair{P: p, R: r})
				}
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("root finding interrupted: %w", err)
	}

	var pairs []Pair
	for _, batch := range results {
		pairs = append(pairs, batch...)
	}
	return &Collection{pairs: pairs}, nil
}
