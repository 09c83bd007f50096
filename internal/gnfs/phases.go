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
	"errors"
	"fmt"
	"math/big"
	"sort"

	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/algebra"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/matrix"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// primalityRounds is the Miller-Rabin round count used to reject prime N.
const primalityRounds = 20

// SelectPolynomial builds the polynomial for N. A prime N fails the session;
// a perfect square N, or a base sharing a factor with N, ends it in Done.
func (c *Controller) SelectPolynomial(ctx context.Context) error {
	if c.snap.Phase.Terminal() {
		return c.terminalResult()
	}
	if c.poly != nil {
		return nil
	}
	if err := checkCancelled(ctx, "polynomial selection"); err != nil {
		return c.settle(ctx, err)
	}

	n := c.cfg.N
	if n.ProbablyPrime(primalityRounds) {
		return c.settle(ctx, fmt.Errorf("n %s is prime: %w", n, gnfserrors.ErrInvalidParameter))
	}
	if root := new(big.Int).Sqrt(n); new(big.Int).Mul(root, root).Cmp(n) == 0 {
		c.finish(ctx, root, new(big.Int).Set(root), "n is a perfect square")
		return nil
	}

	if err := c.buildPolynomial(); err != nil {
		return c.settle(ctx, err)
	}
	if g := new(big.Int).GCD(nil, nil, c.poly.Base(), n); g.Cmp(big.NewInt(1)) > 0 && g.Cmp(n) < 0 {
		c.finish(ctx, g, new(big.Int).Quo(n, g), "polynomial base shares a factor with n")
		return nil
	}

	c.transition(ctx, state.PhasePolynomialSelected)
	c.progress("Selected polynomial %s with base %s", c.poly, c.poly.Base())
	return nil
}

// BuildFactorBases builds the three prime bases and their root pairs and
// checkpoints them. With Shortcuts set, a base prime dividing N ends the
// session in Done.
func (c *Controller) BuildFactorBases(ctx context.Context) error {
	if c.snap.Phase.Terminal() {
		return c.terminalResult()
	}
	if c.fb != nil {
		return nil
	}
	if c.poly == nil {
		return fmt.Errorf("factor bases need a polynomial: %w", gnfserrors.ErrInvalidParameter)
	}
	if err := checkCancelled(ctx, "factor base construction"); err != nil {
		return c.settle(ctx, err)
	}

	if err := c.buildFactorBases(ctx); err != nil {
		return c.settle(ctx, err)
	}

	if c.cfg.Shortcuts {
		n := c.cfg.N
		rem := new(big.Int)
		bp := new(big.Int)
		for _, p := range c.fb.Algebraic {
			bp.SetUint64(p)
			if bp.Cmp(n) >= 0 {
				break
			}
			if rem.Mod(n, bp).Sign() == 0 {
				c.finish(ctx, new(big.Int).Set(bp), new(big.Int).Quo(n, bp), "trial division by the factor base")
				return nil
			}
		}
	}

	c.initSieveState()
	c.transition(ctx, state.PhaseFactorBasesBuilt)
	c.progress("Factor bases built: %d rational, %d algebraic, %d quadratic primes; %d matrix columns",
		len(c.fb.Rational), len(c.fb.Algebraic), len(c.fb.Quadratic), c.layout.Columns())
	return nil
}

// initSieveState sets the relation target and search window unless a
// checkpoint already did.
func (c *Controller) initSieveState() {
	if c.snap.Target == 0 {
		c.snap.Target = c.cfg.RelationTarget
		if c.snap.Target == 0 {
			c.snap.Target = c.layout.Columns() + c.cfg.RelationMargin
		}
	}
	if c.snap.Window.Range == 0 {
		c.snap.Window = sieve.Window{Range: c.cfg.ValueRange, MaxB: c.cfg.ValueRange}
		c.snap.Position = c.snap.Window.Start()
	}
}

// Sieve collects smooth relations until the target is reached, growing the
// window whenever it runs out, at most growthsPerRound*(MaxRetries+1) times.
// Every accepted relation is checkpointed before it is counted, and the
// position after every committed row. A pair with a zero algebraic norm
// splits N and ends the session in Done.
func (c *Controller) Sieve(ctx context.Context) error {
	_, err := c.sieveRound(ctx, c.growthAllowance())
	return err
}

// growthsPerRound is how many times the window may grow for each sieve round
// the retry budget allows.
const growthsPerRound = 16

func (c *Controller) growthAllowance() int {
	return growthsPerRound * (c.cfg.MaxRetries + 1)
}

// sieveRound is Sieve with an explicit window growth allowance. It returns the
// number of growths used. When the allowance runs out the window is still
// grown, so a later call continues, and ErrInsufficientRelations is returned.
func (c *Controller) sieveRound(ctx context.Context, allowance int) (int, error) {
	if c.snap.Phase.Terminal() {
		return 0, c.terminalResult()
	}
	if c.sieve == nil {
		return 0, fmt.Errorf("sieving needs factor bases: %w", gnfserrors.ErrInvalidParameter)
	}
	if err := checkCancelled(ctx, "sieving"); err != nil {
		return 0, c.settle(ctx, err)
	}
	c.transition(ctx, state.PhaseSieving)
	c.progress("Sieving for %d smooth relations from (a=%d, b=%d), have %d",
		c.snap.Target, c.snap.Position.A, c.snap.Position.B, len(c.smooth))

	hooks := sieve.Hooks{
		OnSmooth: func(rels []*relation.Relation) {
			c.acceptSmooth(ctx, rels)
		},
		OnRough: func(rels []*relation.Relation) {
			c.rough = append(c.rough, rels...)
			c.appendRelations(ctx, state.RelationRough, rels)
		},
		OnRow: func(next sieve.Position, scanned int64) {
			c.snap.Position = next
			for _, o := range c.observers {
				o.PairsScanned(scanned)
			}
			c.save(ctx)
		},
	}

	grown := 0
	for len(c.smooth) < c.snap.Target {
		req := sieve.Request{
			Window:    c.snap.Window,
			From:      c.snap.Position,
			Smooth:    c.snap.Target - len(c.smooth),
			RoughRoom: c.cfg.MaxRough - len(c.rough),
			Skip:      c.isAccepted,
		}
		_, err := c.sieve.Run(ctx, req, hooks)
		if errors.Is(err, sieve.ErrWindowExhausted) {
			c.snap.Window = c.snap.Window.Grow()
			c.save(ctx)
			if grown >= allowance {
				return grown, c.settle(ctx, fmt.Errorf("window grew %d times with %d of %d relations, now up to b=%d: %w",
					grown, len(c.smooth), c.snap.Target, c.snap.Window.MaxB, gnfserrors.ErrInsufficientRelations))
			}
			grown++
			c.progress("Window exhausted with %d of %d relations; extending to b=%d",
				len(c.smooth), c.snap.Target, c.snap.Window.MaxB)
			continue
		}
		if err != nil {
			return grown, c.splitOrSettle(ctx, err)
		}
	}

	if c.cfg.KeepRough && len(c.rough) > 0 {
		found, err := c.sieve.Amplify(ctx, c.rough, c.isAccepted)
		if err != nil {
			return grown, c.splitOrSettle(ctx, err)
		}
		if len(found) > 0 {
			c.acceptSmooth(ctx, found)
			c.progress("Rough pairing added %d smooth relations", len(found))
		}
	}

	c.save(ctx)
	c.progress("Sieving complete: %d smooth and %d rough relations", len(c.smooth), len(c.rough))
	return grown, nil
}

// splitOrSettle ends the session in Done when err reports a pair at which f
// vanishes and a + b*m gives a proper factor of N. Any other error is settled.
func (c *Controller) splitOrSettle(ctx context.Context, err error) error {
	var root *relation.RootError
	if !errors.As(err, &root) {
		return c.settle(ctx, err)
	}
	n := c.cfg.N
	d := big.NewInt(root.B)
	d.Mul(d, c.poly.Base())
	d.Add(d, big.NewInt(root.A))
	g := d.GCD(nil, nil, d.Abs(d), n)
	if g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(n) >= 0 {
		return c.settle(ctx, fmt.Errorf("polynomial %s has the rational root %d/%d: %w",
			c.poly, -root.A, root.B, gnfserrors.ErrInvalidParameter))
	}
	c.finish(ctx, g, new(big.Int).Quo(n, g), fmt.Sprintf("polynomial vanishes at (a=%d, b=%d)", root.A, root.B))
	return nil
}

func (c *Controller) acceptSmooth(ctx context.Context, rels []*relation.Relation) {
	for _, r := range rels {
		c.accepted[sieve.Position{A: r.A, B: r.B}] = struct{}{}
	}
	c.smooth = append(c.smooth, rels...)
	c.appendRelations(ctx, state.RelationSmooth, rels)
}

func (c *Controller) isAccepted(p sieve.Position) bool {
	_, ok := c.accepted[p]
	return ok
}

// Solve builds the parity matrix of the smooth relations and finds its
// dependencies. Each dependency is checkpointed as a free relation group.
// Relations are put in (b, a) order first, so the result does not depend on
// the order they were found or restored in.
func (c *Controller) Solve(ctx context.Context) error {
	if c.snap.Phase.Terminal() {
		return c.terminalResult()
	}
	if c.layout == nil {
		return fmt.Errorf("solving needs factor bases: %w", gnfserrors.ErrInvalidParameter)
	}
	if err := checkCancelled(ctx, "solving"); err != nil {
		return c.settle(ctx, err)
	}
	c.transition(ctx, state.PhaseSolving)
	c.deps = nil

	sort.Slice(c.smooth, func(i, j int) bool {
		if c.smooth[i].B != c.smooth[j].B {
			return c.smooth[i].B < c.smooth[j].B
		}
		return c.smooth[i].A < c.smooth[j].A
	})

	columns := c.layout.Columns()
	m := matrix.New(columns)
	for _, r := range c.smooth {
		v, err := c.layout.Vector(r)
		if err != nil {
			return c.settle(ctx, err)
		}
		if err := m.AddRow(v); err != nil {
			return c.settle(ctx, err)
		}
	}

	deps, err := m.NullSpace(ctx)
	if err != nil {
		return c.settle(ctx, err)
	}
	c.deps = deps

	for _, dep := range deps {
		group := make([]*relation.Relation, len(dep))
		for i, idx := range dep {
			group[i] = c.smooth[idx]
		}
		if c.sink != nil {
			_ = c.sink.AppendRelations(ctx, state.RelationFree, group)
		}
		for _, o := range c.observers {
			o.RelationsFound(state.RelationFree, 1)
		}
	}
	c.free = len(deps)
	c.save(ctx)
	c.progress("Found %d dependencies among %d relations and %d columns", len(deps), len(c.smooth), columns)
	return nil
}

// Extract tries the dependencies of the last solve in turn. It returns
// ErrNoFactorFound when every one of them gives a trivial factor.
func (c *Controller) Extract(ctx context.Context) (*Factors, error) {
	if c.snap.Phase.Terminal() {
		if err := c.terminalResult(); err != nil {
			return nil, err
		}
		return c.Factors(), nil
	}
	if c.extractor == nil {
		return nil, fmt.Errorf("extraction needs factor bases: %w", gnfserrors.ErrInvalidParameter)
	}
	if len(c.deps) == 0 {
		return nil, c.settle(ctx, fmt.Errorf("no dependencies to extract: %w", gnfserrors.ErrInsufficientRelations))
	}
	if err := checkCancelled(ctx, "extraction"); err != nil {
		return nil, c.settle(ctx, err)
	}
	c.transition(ctx, state.PhaseExtracting)

	found, err := c.extractor.Extract(ctx, c.smooth, c.deps)
	tried := len(c.deps)
	if err == nil {
		tried = found.Dependency + 1
	}
	for _, o := range c.observers {
		o.DependenciesTried(tried)
	}
	if errors.Is(err, algebra.ErrNoInertPrime) && !c.reducibleNoted {
		c.reducibleNoted = true
		c.progress("No inert prime found for %s; the polynomial is probably reducible, try another base or degree", c.poly)
	}
	if err != nil {
		return nil, c.settle(ctx, err)
	}
	return c.finish(ctx, found.P, found.Q, fmt.Sprintf("dependency %d of %d", found.Dependency+1, len(c.deps))), nil
}

// Run drives the session from its current phase to Done. A round that ends
// without a factor raises the relation target, grows the window and sieves
// again, at most MaxRetries times per call. Window growths inside sieving
// share one allowance of growthsPerRound*(MaxRetries+1) per call. When either
// budget runs out Run returns ErrNoFactorFound and leaves the session in
// Sieving, with the raised target or grown window, so a later call can
// continue it.
func (c *Controller) Run(ctx context.Context) (*Factors, error) {
	if c.snap.Phase.Terminal() {
		if err := c.terminalResult(); err != nil {
			return nil, err
		}
		return c.Factors(), nil
	}

	if err := c.SelectPolynomial(ctx); err != nil {
		return nil, err
	}
	if f := c.Factors(); f != nil {
		return f, nil
	}
	if err := c.BuildFactorBases(ctx); err != nil {
		return nil, err
	}
	if f := c.Factors(); f != nil {
		return f, nil
	}

	allowance := c.growthAllowance()
	for round := 0; ; round++ {
		grown, err := c.sieveRound(ctx, allowance)
		allowance -= grown
		if gnfserrors.IsRecoverable(err) {
			return nil, fmt.Errorf("no factor after %d sieve rounds (last: %v): %w",
				round+1, err, gnfserrors.ErrNoFactorFound)
		}
		if err != nil {
			return nil, err
		}
		if f := c.Factors(); f != nil {
			return f, nil
		}

		err = c.Solve(ctx)
		if err == nil {
			var f *Factors
			if f, err = c.Extract(ctx); err == nil {
				return f, nil
			}
		}
		if !gnfserrors.IsRecoverable(err) {
			return nil, err
		}

		c.nextRound(ctx, err)
		if round >= c.cfg.MaxRetries {
			return nil, fmt.Errorf("no factor after %d sieve rounds (last: %v): %w",
				round+1, err, gnfserrors.ErrNoFactorFound)
		}
	}
}

// nextRound raises the relation target and grows the window after a round
// that gave no factor.
func (c *Controller) nextRound(ctx context.Context, cause error) {
	c.snap.Retries++
	target := c.snap.Target
	if len(c.smooth) > target {
		target = len(c.smooth)
	}
	if cols := c.layout.Columns(); target < cols {
		target = cols
	}
	c.snap.Target = target + c.cfg.RelationMargin
	c.snap.Window = c.snap.Window.Grow()
	c.transition(ctx, state.PhaseSieving)

	c.logger.Info("starting another sieve round",
		zap.Int("retry", c.snap.Retries),
		zap.Int("target", c.snap.Target),
		zap.Int64("max_b", c.snap.Window.MaxB),
		zap.Error(cause))
	c.progress("Round %d gave no factor; sieving for %d relations up to b=%d",
		c.snap.Retries, c.snap.Target, c.snap.Window.MaxB)
}

// terminalResult is nil for a Done session and the recorded failure for a
// Failed one.
func (c *Controller) terminalResult() error {
	if c.snap.Phase == state.PhaseDone {
		return nil
	}
	return c.terminalError()
}
