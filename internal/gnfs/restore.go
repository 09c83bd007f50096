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

package gnfs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/extract"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

var factorKinds = []factorbase.Kind{factorbase.Rational, factorbase.Algebraic, factorbase.Quadratic}

// buildPolynomial constructs f from the configured or derived base and degree.
func (c *Controller) buildPolynomial() error {
	n := c.cfg.N
	degree := c.cfg.Degree
	if degree == 0 {
		degree = poly.SelectDegree(n)
	}
	base := c.cfg.Base
	if base == nil {
		base = poly.DefaultBase(n, degree)
	}

	f, err := poly.New(n, base, degree)
	if err != nil {
		return err
	}
	c.poly = f
	c.snap.Base = base.String()
	c.snap.Degree = degree
	return nil
}

// buildFactorBases computes the bases and pairs, preferring valid restored
// copies, then derives the layout, sieve and extractor. Freshly computed
// parts are checkpointed.
func (c *Controller) buildFactorBases(ctx context.Context) error {
	bound := c.cfg.RationalBound
	if bound == 0 {
		bound = factorbase.DefaultRationalBound(c.cfg.N)
	}
	fb, err := factorbase.Bounds(c.primes, bound, c.poly.Degree())
	if err != nil {
		return err
	}

	restored := c.restored

	fresh := make(map[factorbase.Kind]bool)
	for _, kind := range factorKinds {
		if restored != nil && c.validBase(fb, kind, restored.FactorBases[kind]) {
			fb.SetPrimes(kind, restored.FactorBases[kind])
			continue
		}
		ps, err := c.computeBase(fb, kind)
		if err != nil {
			return err
		}
		fb.SetPrimes(kind, ps)
		fresh[kind] = true
	}

	pairs := map[factorbase.Kind]*factorbase.Collection{
		factorbase.Rational: factorbase.BuildRational(fb, c.poly),
	}
	for _, kind := range []factorbase.Kind{factorbase.Algebraic, factorbase.Quadratic} {
		if restored != nil && !fresh[kind] && c.validPairs(fb, kind, restored.FactorPairs[kind]) {
			pairs[kind] = factorbase.NewCollection(restored.FactorPairs[kind])
			continue
		}
		build := factorbase.BuildAlgebraic
		if kind == factorbase.Quadratic {
			build = factorbase.BuildQuadratic
		}
		coll, err := build(ctx, fb, c.poly, c.cfg.Workers)
		if err != nil {
			return err
		}
		pairs[kind] = coll
		fresh[kind] = true
	}

	c.fb = fb
	c.pairs = pairs
	c.layout = relation.NewLayout(c.poly, fb, pairs[factorbase.Algebraic], pairs[factorbase.Quadratic])
	c.sieve = sieve.New(c.poly, fb, sieve.Config{Workers: c.cfg.Workers, KeepRough: c.cfg.KeepRough}, c.logger)
	c.extractor = extract.New(c.cfg.N, c.poly, c.primes, fb.QuadraticMax, c.logger)
	c.snap.RationalBound = bound

	if c.sink != nil {
		for _, kind := range factorKinds {
			if restored == nil || fresh[kind] {
				_ = c.sink.SaveFactorBase(ctx, kind, fb.Primes(kind))
			}
			if restored == nil || fresh[kind] || kind == factorbase.Rational {
				_ = c.sink.SaveFactorPairs(ctx, kind, pairs[kind].Pairs())
			}
		}
	}

	c.adoptRelations(ctx)
	return nil
}

func (c *Controller) computeBase(fb *factorbase.FactorBase, kind factorbase.Kind) ([]uint64, error) {
	var (
		ps  []uint64
		err error
	)
	switch kind {
	case factorbase.Rational:
		ps, err = c.primes.PrimesUpTo(fb.RationalMax)
	case factorbase.Algebraic:
		ps, err = c.primes.PrimesUpTo(fb.AlgebraicMax)
	default:
		ps, err = c.primes.PrimesFrom(fb.QuadraticMin, fb.QuadraticCount)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s base: %w", kind, err)
	}
	return ps, nil
}

// validBase checks a restored base against the bounds: ascending primes in
// range, the right count for the quadratic base, and the largest prime
// below the bound present.
func (c *Controller) validBase(fb *factorbase.FactorBase, kind factorbase.Kind, ps []uint64) bool {
	if len(ps) == 0 {
		return false
	}
	for i, p := range ps {
		if !c.primes.IsPrime(p) || (i > 0 && p <= ps[i-1]) {
			return false
		}
	}
	last := ps[len(ps)-1]
	switch kind {
	case factorbase.Rational, factorbase.Algebraic:
		limit := fb.RationalMax
		if kind == factorbase.Algebraic {
			limit = fb.AlgebraicMax
		}
		if ps[0] != 2 || last > limit {
			return false
		}
		want, err := c.primes.PrimesUpTo(limit)
		return err == nil && len(want) == len(ps)
	default:
		return len(ps) == fb.QuadraticCount && ps[0] >= fb.QuadraticMin
	}
}

// validPairs checks that every restored pair is a root of f modulo a prime
// of the base.
func (c *Controller) validPairs(fb *factorbase.FactorBase, kind factorbase.Kind, pairs []factorbase.Pair) bool {
	if len(pairs) == 0 {
		return false
	}
	inBase := make(map[uint64]bool)
	for _, p := range fb.Primes(kind) {
		inBase[p] = true
	}
	seen := make(map[factorbase.Pair]bool, len(pairs))
	for _, pr := range pairs {
		if !inBase[pr.P] || pr.R >= pr.P || seen[pr] || c.poly.EvaluateMod(pr.R, pr.P) != 0 {
			return false
		}
		seen[pr] = true
	}
	return true
}

// adoptRelations moves restored relations into the session. Each relation's
// norms are re-derived from (a, b) and it is trial-divided again by the
// current base; relations that disagree, or are no longer smooth, are dropped.
func (c *Controller) adoptRelations(ctx context.Context) {
	if c.restored == nil {
		return
	}
	cp := c.restored
	c.restored = nil

	var dropped int
	for _, r := range cp.Smooth {
		pos := sieve.Position{A: r.A, B: r.B}
		if c.isAccepted(pos) {
			continue
		}
		if err := r.Verify(c.poly); err != nil {
			c.logger.Warn("dropping restored relation", zap.Int64("a", r.A), zap.Int64("b", r.B), zap.Error(err))
			dropped++
			continue
		}
		r.Sieve(c.fb, false)
		if !r.IsSmooth() {
			dropped++
			continue
		}
		c.accepted[pos] = struct{}{}
		c.smooth = append(c.smooth, r)
	}

	seenRough := make(map[sieve.Position]struct{}, len(cp.Rough))
	for _, r := range cp.Rough {
		pos := sieve.Position{A: r.A, B: r.B}
		if _, dup := seenRough[pos]; dup || len(c.rough) >= c.cfg.MaxRough {
			continue
		}
		if err := r.Verify(c.poly); err != nil {
			dropped++
			continue
		}
		r.Sieve(c.fb, true)
		seenRough[pos] = struct{}{}
		c.rough = append(c.rough, r)
	}

	if c.snap.Free == 0 {
		c.free = len(cp.Free)
	} else {
		c.free = c.snap.Free
	}

	if dropped > 0 {
		c.progress("Dropped %d restored relations that failed verification", dropped)
	}
	c.logger.Info("adopted restored relations",
		zap.Int("smooth", len(c.smooth)),
		zap.Int("rough", len(c.rough)),
		zap.Int("dropped", dropped))
	c.save(ctx)
}

// Restore rebuilds a session from a checkpoint. Parameters recorded in the
// snapshot (N, base, degree, bound, window) take precedence over cfg; a cfg.N
// that disagrees with the snapshot is rejected. Missing parts of the
// checkpoint are recomputed. Without a snapshot the session starts over
// from Init under cfg, keeping whatever stored relations verify.
func Restore(ctx context.Context, cfg Config, cp *state.Checkpoint, opts ...Option) (*Controller, error) {
	if err := checkCancelled(ctx, "restore"); err != nil {
		return nil, err
	}
	if cp == nil || cp.Snapshot == nil {
		if cfg.N == nil {
			return nil, fmt.Errorf("checkpoint has no session state and no n is configured: %w", gnfserrors.ErrCheckpointNotFound)
		}
		c, err := New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		c.restored = cp
		c.progress("No session state found; starting session %s over", c.SessionID())
		return c, nil
	}

	snap := cp.Snapshot
	var err error
	if cfg, err = mergeSnapshot(cfg, snap); err != nil {
		return nil, err
	}

	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	c.snap = snap.Clone()
	c.restored = cp

	if err := c.rebuild(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	c.progress("Restored session %s in phase %s with %d smooth relations, next pair (a=%d, b=%d)",
		c.SessionID(), c.snap.Phase, len(c.smooth), c.snap.Position.A, c.snap.Position.B)
	return c, nil
}

// mergeSnapshot overlays the parameters recorded in snap onto cfg.
func mergeSnapshot(cfg Config, snap *state.Snapshot) (Config, error) {
	n, ok := parseInt(snap.N)
	if !ok {
		return cfg, fmt.Errorf("snapshot n %q is not an integer: %w", snap.N, gnfserrors.ErrCheckpointCorrupt)
	}
	if cfg.N != nil && cfg.N.Cmp(n) != 0 {
		return cfg, fmt.Errorf("session %s factors %s, not %s: %w", snap.SessionID, n, cfg.N, gnfserrors.ErrInvalidParameter)
	}
	cfg.N = n
	cfg.SessionID = snap.SessionID

	if snap.Base != "" {
		base, ok := parseInt(snap.Base)
		if !ok {
			return cfg, fmt.Errorf("snapshot base %q is not an integer: %w", snap.Base, gnfserrors.ErrCheckpointCorrupt)
		}
		cfg.Base = base
	}
	if snap.Degree > 0 {
		cfg.Degree = snap.Degree
	}
	if snap.RationalBound > 0 {
		cfg.RationalBound = snap.RationalBound
	}
	if snap.Window.Range > 0 {
		cfg.ValueRange = snap.Window.Range
	}
	return cfg, nil
}

// rebuild recomputes the derived state of a restored snapshot.
func (c *Controller) rebuild(ctx context.Context) error {
	if c.snap.Phase.Terminal() {
		c.restored = nil
		return nil
	}
	if !c.reached(state.PhasePolynomialSelected) {
		return nil
	}
	if err := c.buildPolynomial(); err != nil {
		return err
	}
	if !c.reached(state.PhaseFactorBasesBuilt) {
		return nil
	}
	if err := c.buildFactorBases(ctx); err != nil {
		return err
	}
	c.initSieveState()
	return nil
}
