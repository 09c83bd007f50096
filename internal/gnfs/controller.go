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
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/extract"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/primes"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// Factors is the result of a successful session, with P <= Q.
type Factors struct {
	P *big.Int
	Q *big.Int
}

// Controller owns the state of one factorization session.
type Controller struct {
	cfg  Config
	snap *state.Snapshot

	logger     *zap.Logger
	progressFn state.ProgressFunc
	observers  []state.Observer
	rawSink    state.Sink
	retry      *checkpoint.RetryConfig
	sink       *checkpoint.Async

	primes    *primes.Sieve
	poly      *poly.Polynomial
	fb        *factorbase.FactorBase
	pairs     map[factorbase.Kind]*factorbase.Collection
	layout    *relation.Layout
	sieve     *sieve.Sieve
	extractor *extract.Extractor

	smooth   []*relation.Relation
	rough    []*relation.Relation
	accepted map[sieve.Position]struct{}
	deps     [][]int
	free     int

	reducibleNoted bool

	// restored holds checkpoint data not yet adopted.
	restored *state.Checkpoint
}

// New creates a session in the Init phase.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	c := &Controller{
		cfg:      cfg,
		logger:   zap.NewNop(),
		primes:   primes.NewSieve(cfg.PrimeLimit),
		accepted: make(map[sieve.Position]struct{}),
		snap: &state.Snapshot{
			SessionID: cfg.SessionID,
			N:         cfg.N.String(),
			Phase:     state.PhaseInit,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("session", cfg.SessionID))
	if c.rawSink != nil {
		c.sink = checkpoint.NewAsync(c.rawSink, c.retry, c.logger)
	}
	return c, nil
}

// SessionID returns the session identifier.
func (c *Controller) SessionID() string {
	return c.cfg.SessionID
}

// Phase returns the current phase.
func (c *Controller) Phase() state.Phase {
	return c.snap.Phase
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() *state.Snapshot {
	s := c.snap.Clone()
	c.fillCounts(s)
	return s
}

// Polynomial returns the selected polynomial, or nil before selection.
func (c *Controller) Polynomial() *poly.Polynomial {
	return c.poly
}

// FactorBase returns the factor bases, or nil before they are built.
func (c *Controller) FactorBase() *factorbase.FactorBase {
	return c.fb
}

// Relations returns the smooth relations collected so far.
func (c *Controller) Relations() []*relation.Relation {
	return append([]*relation.Relation(nil), c.smooth...)
}

// Dependencies returns the dependencies found by the last solve.
func (c *Controller) Dependencies() [][]int {
	return c.deps
}

// Factors returns the factors of a Done session, or nil.
func (c *Controller) Factors() *Factors {
	if c.snap.Phase != state.PhaseDone || len(c.snap.Factors) != 2 {
		return nil
	}
	p, okP := new(big.Int).SetString(c.snap.Factors[0], 10)
	q, okQ := new(big.Int).SetString(c.snap.Factors[1], 10)
	if !okP || !okQ {
		return nil
	}
	return &Factors{P: p, Q: q}
}

// Flush waits until all checkpoint data queued so far has been written.
func (c *Controller) Flush(ctx context.Context) error {
	if c.sink == nil {
		return nil
	}
	return c.sink.Flush(ctx)
}

// Close saves the session state and drains the checkpoint queue. It reports
// checkpoint writes that failed during the session.
func (c *Controller) Close(ctx context.Context) error {
	if c.sink == nil {
		return nil
	}
	c.save(ctx)
	return c.sink.Close(ctx)
}

func (c *Controller) fillCounts(s *state.Snapshot) {
	s.Smooth = len(c.smooth)
	s.Rough = len(c.rough)
	s.Free = c.free
}

// save queues a snapshot of the current state.
func (c *Controller) save(ctx context.Context) {
	c.fillCounts(c.snap)
	c.snap.UpdatedAt = time.Now().UTC()
	if c.sink != nil {
		_ = c.sink.SaveState(ctx, c.snap)
	}
}

func (c *Controller) appendRelations(ctx context.Context, kind state.RelationKind, rels []*relation.Relation) {
	if c.sink != nil {
		_ = c.sink.AppendRelations(ctx, kind, rels)
	}
	for _, o := range c.observers {
		o.RelationsFound(kind, len(rels))
	}
}

// transition moves the session to phase and checkpoints it.
func (c *Controller) transition(ctx context.Context, to state.Phase) {
	from := c.snap.Phase
	c.snap.Phase = to
	c.save(ctx)
	if from == to {
		return
	}
	c.logger.Info("phase changed", zap.String("from", string(from)), zap.String("to", string(to)))
	for _, o := range c.observers {
		o.PhaseChanged(from, to)
	}
}

func (c *Controller) progress(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Debug(msg)
	if c.progressFn != nil {
		c.progressFn(msg)
	}
}

// finish ends the session in Done with p * q = N.
func (c *Controller) finish(ctx context.Context, p, q *big.Int, how string) *Factors {
	if p.Cmp(q) > 0 {
		p, q = q, p
	}
	c.snap.Factors = []string{p.String(), q.String()}
	c.transition(ctx, state.PhaseDone)
	c.progress("Found factors %s and %s (%s)", p, q, how)
	return &Factors{P: new(big.Int).Set(p), Q: new(big.Int).Set(q)}
}

// settle applies the session consequences of err and returns it. Fatal
// errors end the session in Failed; cancellation checkpoints the state.
// Recoverable and unclassified errors leave the phase unchanged.
func (c *Controller) settle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	switch gnfserrors.Classify(err) {
	case gnfserrors.KindFatal:
		if c.snap.Phase != state.PhaseFailed {
			c.snap.Failure = err.Error()
			c.transition(ctx, state.PhaseFailed)
			c.progress("Session failed: %v", err)
		}
	case gnfserrors.KindCancelled:
		c.save(ctx)
		c.progress("Cancelled in phase %s", c.snap.Phase)
		if !errors.Is(err, gnfserrors.ErrCancelled) {
			err = fmt.Errorf("%v: %w", err, gnfserrors.ErrCancelled)
		}
	case gnfserrors.KindRecoverable:
		c.progress("Recoverable: %v", err)
	}
	return err
}

// checkCancelled reports a cancelled context as ErrCancelled.
func checkCancelled(ctx context.Context, phase string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %v: %w", phase, err, gnfserrors.ErrCancelled)
	}
	return nil
}

// terminalError reports why a terminal session cannot run again.
func (c *Controller) terminalError() error {
	return fmt.Errorf("session %s failed earlier (%s): %w", c.cfg.SessionID, c.snap.Failure, gnfserrors.ErrInvalidParameter)
}

var phaseRank = func() map[state.Phase]int {
	m := make(map[state.Phase]int, len(state.Phases))
	for i, p := range state.Phases {
		m[p] = i
	}
	return m
}()

// reached reports whether the session has passed through phase p. Terminal
// phases count as having passed every other phase.
func (c *Controller) reached(p state.Phase) bool {
	return phaseRank[c.snap.Phase] >= phaseRank[p]
}

func parseInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}
