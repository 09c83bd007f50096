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

package sieve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/poly"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

// ErrWindowExhausted is returned when every row of the window has been
// examined before the requested number of smooth relations was found.
var ErrWindowExhausted = errors.New("sieve window exhausted")

const (
	// minChunk is the smallest run of a values handed to one worker.
	minChunk = 64

	// pollInterval is how many pairs a worker examines between
	// cancellation checks.
	pollInterval = 256
)

// Window bounds the search rectangle: -Range <= a <= Range and 1 <= b <= MaxB.
type Window struct {
	Range int64 `json:"range"`
	MaxB  int64 `json:"max_b"`
}

// Start returns the first position of the window.
func (w Window) Start() Position {
	return Position{A: -w.Range, B: 1}
}

// Grow extends the window by Range further rows.
func (w Window) Grow() Window {
	return Window{Range: w.Range, MaxB: w.MaxB + w.Range}
}

// Validate rejects windows that contain no pairs.
func (w Window) Validate() error {
	if w.Range < 1 {
		return fmt.Errorf("window range %d must be positive: %w", w.Range, gnfserrors.ErrInvalidParameter)
	}
	if w.MaxB < 1 {
		return fmt.Errorf("window max b %d must be positive: %w", w.MaxB, gnfserrors.ErrInvalidParameter)
	}
	return nil
}

// Position is the next pair to examine.
type Position struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

// Config holds the settings that stay fixed for the life of a Sieve.
type Config struct {
	// Workers bounds the goroutines used per row. Values below 1 mean 1.
	Workers int

	// KeepRough keeps pairs that fail the smoothness test so they can be
	// paired later. The algebraic side of such pairs is always trial-divided.
	KeepRough bool
}

// Request describes one call to Run.
type Request struct {
	Window Window
	From   Position

	// Smooth is the number of smooth relations still wanted.
	Smooth int

	// RoughRoom caps the rough relations kept by this call.
	RoughRoom int

	// Skip, when set, reports pairs that are already accepted. Such pairs
	// are dropped when their row is committed.
	Skip func(Position) bool
}

// Hooks observe a run. All hooks are called on the goroutine that called Run.
type Hooks struct {
	// OnSmooth receives the smooth relations of a row before they are counted.
	OnSmooth func(rels []*relation.Relation)

	// OnRough receives the rough relations kept from a row.
	OnRough func(rels []*relation.Relation)

	// OnRow is called after a row is committed with the next position and the
	// number of pairs examined in that row.
	OnRow func(next Position, scanned int64)
}

// Result is what Run committed before it returned. It is valid on every
// return path, including errors.
type Result struct {
	Smooth  []*relation.Relation
	Rough   []*relation.Relation
	Next    Position
	Scanned int64
	Rows    int
}

// Sieve tests pairs against one polynomial and factor base.
type Sieve struct {
	f      *poly.Polynomial
	fb     *factorbase.FactorBase
	cfg    Config
	logger *zap.Logger
}

// New creates a sieve. A nil logger discards output.
func New(f *poly.Polynomial, fb *factorbase.FactorBase, cfg Config, logger *zap.Logger) *Sieve {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sieve{f: f, fb: fb, cfg: cfg, logger: logger}
}

// Run sieves rows starting at req.From until req.Smooth smooth relations have
// been committed or the window is used up. The last row is always finished,
// so a run may return a few more relations than requested.
func (s *Sieve) Run(ctx context.Context, req Request, hooks Hooks) (*Result, error) {
	if err := req.Window.Validate(); err != nil {
		return nil, err
	}

	pos := normalize(req.From, req.Window)
	res := &Result{Next: pos}
	roughRoom := req.RoughRoom

	for len(res.Smooth) < req.Smooth {
		if pos.B > req.Window.MaxB {
			return res, fmt.Errorf("reached b=%d with %d of %d relations: %w",
				req.Window.MaxB, len(res.Smooth), req.Smooth, ErrWindowExhausted)
		}
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("sieve interrupted at (%d, %d): %w", pos.A, pos.B, gnfserrors.ErrCancelled)
		}

		row, err := s.sieveRow(ctx, pos.B, pos.A, req.Window.Range)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, fmt.Errorf("sieve interrupted in row b=%d: %w", pos.B, gnfserrors.ErrCancelled)
			}
			return res, err
		}

		smooth := filter(row.smooth, req.Skip)
		if len(smooth) > 0 {
			if hooks.OnSmooth != nil {
				hooks.OnSmooth(smooth)
			}
			res.Smooth = append(res.Smooth, smooth...)
		}

		if s.cfg.KeepRough && roughRoom > 0 && len(row.rough) > 0 {
			rough := row.rough
			if len(rough) > roughRoom {
				rough = rough[:roughRoom]
			}
			roughRoom -= len(rough)
			if hooks.OnRough != nil {
				hooks.OnRough(rough)
			}
			res.Rough = append(res.Rough, rough...)
		}

		res.Scanned += row.scanned
		res.Rows++
		pos = Position{A: -req.Window.Range, B: pos.B + 1}
		res.Next = pos
		if hooks.OnRow != nil {
			hooks.OnRow(pos, row.scanned)
		}

		s.logger.Debug("row committed",
			zap.Int64("b", pos.B-1),
			zap.Int("smooth", len(smooth)),
			zap.Int("total", len(res.Smooth)),
			zap.Int64("scanned", row.scanned))
	}
	return res, nil
}

// normalize moves a position that lies past the end of its row to the start
// of the next row, and a position before the window to its start.
func normalize(p Position, w Window) Position {
	if p.B < 1 {
		return w.Start()
	}
	if p.A < -w.Range {
		p.A = -w.Range
	}
	if p.A > w.Range {
		return Position{A: -w.Range, B: p.B + 1}
	}
	return p
}

func filter(rels []*relation.Relation, skip func(Position) bool) []*relation.Relation {
	if skip == nil {
		return rels
	}
	out := rels[:0:0]
	for _, r := range rels {
		if !skip(Position{A: r.A, B: r.B}) {
			out = append(out, r)
		}
	}
	return out
}

type chunk struct {
	smooth  []*relation.Relation
	rough   []*relation.Relation
	scanned int64
}

// sieveRow examines a in [from, to] for one b.
func (s *Sieve) sieveRow(ctx context.Context, b, from, to int64) (chunk, error) {
	n := to - from + 1
	size := (n + int64(s.cfg.Workers) - 1) / int64(s.cfg.Workers)
	if size < minChunk {
		size = minChunk
	}
	parts := make([]chunk, (n+size-1)/size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range parts {
		lo := from + int64(i)*size
		hi := min(lo+size-1, to)
		g.Go(func() error {
			c, err := s.sieveChunk(gctx, b, lo, hi)
			parts[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return chunk{}, err
	}

	var row chunk
	for _, c := range parts {
		row.smooth = append(row.smooth, c.smooth...)
		row.rough = append(row.rough, c.rough...)
		row.scanned += c.scanned
	}
	return row, nil
}

func (s *Sieve) sieveChunk(ctx context.Context, b, lo, hi int64) (chunk, error) {
	var c chunk
	for a := lo; a <= hi; a++ {
		if (a-lo)%pollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return c, err
			}
		}
		if !relation.Coprime(a, b) {
			continue
		}
		r, err := relation.New(a, b, s.f)
		if err != nil {
			return c, err
		}
		if r.RationalNorm.Sign() == 0 {
			continue
		}
		c.scanned++

		r.Sieve(s.fb, s.cfg.KeepRough)
		switch {
		case r.IsSmooth():
			c.smooth = append(c.smooth, r)
		case s.cfg.KeepRough:
			c.rough = append(c.rough, r)
		}
	}
	return c, nil
}
