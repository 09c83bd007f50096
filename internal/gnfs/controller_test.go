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
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is an Observer that keeps every event.
type recorder struct {
	mu          sync.Mutex
	transitions []state.Phase
	relations   map[state.RelationKind]int
	scanned     int64
	tried       int
	onScanned   func(total int64)
}

func newRecorder() *recorder {
	return &recorder{relations: make(map[state.RelationKind]int)}
}

func (r *recorder) PhaseChanged(_, to state.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, to)
}

func (r *recorder) RelationsFound(kind state.RelationKind, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.relations[kind] += count
}

func (r *recorder) PairsScanned(count int64) {
	r.mu.Lock()
	r.scanned += count
	total := r.scanned
	fn := r.onScanned
	r.mu.Unlock()
	if fn != nil {
		fn(total)
	}
}

func (r *recorder) DependenciesTried(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tried += count
}

func smallConfig(n int64, base int64, bound uint64, valueRange int64) Config {
	return Config{
		N:             big.NewInt(n),
		Base:          big.NewInt(base),
		Degree:        3,
		RationalBound: bound,
		ValueRange:    valueRange,
		Workers:       2,
	}
}

func config8051() Config {
	return smallConfig(8051, 20, 100, 200)
}

func config1000009() Config {
	return smallConfig(1000009, 60, 100, 300)
}

func assertFactors(t *testing.T, f *Factors, p, q int64) {
	t.Helper()
	require.NotNil(t, f)
	assert.Equal(t, big.NewInt(p).String(), f.P.String())
	assert.Equal(t, big.NewInt(q).String(), f.Q.String())
}

func TestRunFactorsSemiprimes(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		p, q int64
	}{
		{name: "8051", cfg: config8051(), p: 83, q: 97},
		{name: "1000009", cfg: config1000009(), p: 293, q: 3413},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			var messages []string
			c, err := New(tt.cfg,
				WithObserver(rec),
				WithProgress(func(msg string) { messages = append(messages, msg) }))
			require.NoError(t, err)

			f, err := c.Run(context.Background())
			require.NoError(t, err)
			assertFactors(t, f, tt.p, tt.q)

			assert.Equal(t, state.PhaseDone, c.Phase())
			assertFactors(t, c.Factors(), tt.p, tt.q)
			assert.Equal(t, []state.Phase{
				state.PhasePolynomialSelected,
				state.PhaseFactorBasesBuilt,
				state.PhaseSieving,
				state.PhaseSolving,
				state.PhaseExtracting,
				state.PhaseDone,
			}, rec.transitions)

			snap := c.Snapshot()
			assert.Equal(t, []string{f.P.String(), f.Q.String()}, snap.Factors)
			assert.Greater(t, snap.Smooth, c.layout.Columns())
			assert.Equal(t, snap.Smooth, rec.relations[state.RelationSmooth])
			assert.Equal(t, len(c.Dependencies()), rec.relations[state.RelationFree])
			assert.Positive(t, rec.scanned)
			assert.Positive(t, rec.tried)
			assert.NotEmpty(t, messages)
			assert.Contains(t, messages[len(messages)-1], "Found factors")
		})
	}
}

func TestRunLargerSemiprime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping twelve digit factorization in short mode")
	}
	cfg := smallConfig(999985999949, 9999, 500, 1000)
	c, err := New(cfg)
	require.NoError(t, err)

	f, err := c.Run(context.Background())
	require.NoError(t, err)
	assertFactors(t, f, 999983, 1000003)
}

func TestRunAutomaticParameters(t *testing.T) {
	c, err := New(Config{N: big.NewInt(8051), Workers: 2})
	require.NoError(t, err)

	require.NoError(t, c.SelectPolynomial(context.Background()))
	require.NotNil(t, c.Polynomial())
	assert.Equal(t, 3, c.Polynomial().Degree())
	assert.Equal(t, state.PhasePolynomialSelected, c.Phase())
	assert.Equal(t, 3, c.Snapshot().Degree)
	assert.NotEmpty(t, c.Snapshot().Base)
}

func TestRunPrimeFails(t *testing.T) {
	cfg := config8051()
	cfg.N = big.NewInt(1000003)
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
	assert.Equal(t, state.PhaseFailed, c.Phase())
	assert.NotEmpty(t, c.Snapshot().Failure)

	_, err = c.Run(context.Background())
	assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
	assert.Nil(t, c.Factors())
}

func TestRunShortcuts(t *testing.T) {
	t.Run("perfect square", func(t *testing.T) {
		cfg := config8051()
		cfg.N = big.NewInt(97 * 97)
		c, err := New(cfg)
		require.NoError(t, err)

		f, err := c.Run(context.Background())
		require.NoError(t, err)
		assertFactors(t, f, 97, 97)
		assert.Nil(t, c.Polynomial())
	})

	t.Run("base shares a factor", func(t *testing.T) {
		cfg := config8051()
		cfg.Base = big.NewInt(83)
		cfg.Degree = 2
		c, err := New(cfg)
		require.NoError(t, err)

		f, err := c.Run(context.Background())
		require.NoError(t, err)
		assertFactors(t, f, 83, 97)
		assert.Nil(t, c.FactorBase())
	})

	t.Run("trial division by the factor base", func(t *testing.T) {
		cfg := config8051()
		cfg.Shortcuts = true
		c, err := New(cfg)
		require.NoError(t, err)

		f, err := c.Run(context.Background())
		require.NoError(t, err)
		assertFactors(t, f, 83, 97)
		assert.Empty(t, c.Relations())
	})

	t.Run("shortcuts off sieves", func(t *testing.T) {
		c, err := New(config8051())
		require.NoError(t, err)
		require.NoError(t, c.SelectPolynomial(context.Background()))
		require.NoError(t, c.BuildFactorBases(context.Background()))
		assert.Equal(t, state.PhaseFactorBasesBuilt, c.Phase())
	})
}

func TestRunCancelled(t *testing.T) {
	c, err := New(config8051())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gnfserrors.ErrCancelled))
	assert.Equal(t, state.PhaseInit, c.Phase())

	f, err := c.Run(context.Background())
	require.NoError(t, err)
	assertFactors(t, f, 83, 97)
}

func TestRunRetriesExhausted(t *testing.T) {
	cfg := config8051()
	cfg.RelationTarget = 5
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gnfserrors.ErrNoFactorFound))
	assert.Equal(t, state.PhaseSieving, c.Phase())

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.Retries)
	assert.GreaterOrEqual(t, snap.Target, c.layout.Columns()+defaultRelationMargin)
	assert.Equal(t, int64(400), snap.Window.MaxB)

	f, err := c.Run(context.Background())
	require.NoError(t, err)
	assertFactors(t, f, 83, 97)
}

func TestRunWindowGrowthBounded(t *testing.T) {
	cfg := config8051()
	cfg.ValueRange = 2
	cfg.RelationTarget = 10000
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gnfserrors.ErrNoFactorFound), "Run error = %v", err)
	assert.Equal(t, state.PhaseSieving, c.Phase())

	// Sixteen growths are allowed; the one that runs out is still applied.
	snap := c.Snapshot()
	assert.Equal(t, int64(2+17*2), snap.Window.MaxB)
	assert.Equal(t, sieve.Position{A: -2, B: 35}, snap.Position)
	assert.Equal(t, 0, snap.Retries)

	_, err = c.Run(context.Background())
	assert.True(t, errors.Is(err, gnfserrors.ErrNoFactorFound), "Run error = %v", err)
	assert.Equal(t, int64(2+34*2), c.Snapshot().Window.MaxB)
}

func TestRunPolynomialWithRationalRoot(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		poly string
		p, q int64
	}{
		{"x^3 + 1", 1000001, "x^3 + 1", 101, 9901},
		{"(x + 1)(x^2 + 1)", 1010101, "x^3 + x^2 + x + 1", 101, 10001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var messages []string
			c, err := New(Config{N: big.NewInt(tt.n), Workers: 2},
				WithProgress(func(msg string) { messages = append(messages, msg) }))
			require.NoError(t, err)

			f, err := c.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.poly, c.Polynomial().String())
			assertFactors(t, f, tt.p, tt.q)
			assert.Equal(t, state.PhaseDone, c.Phase())
			assert.Empty(t, c.Snapshot().Failure)
			require.NotEmpty(t, messages)
			assert.Contains(t, messages[len(messages)-1], "polynomial vanishes at (a=1, b=1)")
		})
	}
}

func TestSplitAtRoot(t *testing.T) {
	ctx := context.Background()

	t.Run("proper factor", func(t *testing.T) {
		c, err := New(config8051())
		require.NoError(t, err)
		require.NoError(t, c.SelectPolynomial(ctx))

		// 3 + 4*20 = 83
		require.NoError(t, c.splitOrSettle(ctx, &relation.RootError{A: 3, B: 4}))
		assert.Equal(t, state.PhaseDone, c.Phase())
		assertFactors(t, c.Factors(), 83, 97)
	})

	t.Run("trivial split", func(t *testing.T) {
		c, err := New(config8051())
		require.NoError(t, err)
		require.NoError(t, c.SelectPolynomial(ctx))

		// -19 + 1*20 = 1
		err = c.splitOrSettle(ctx, &relation.RootError{A: -19, B: 1})
		assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter), "error = %v", err)
		assert.Equal(t, state.PhaseFailed, c.Phase())
		assert.Contains(t, c.Snapshot().Failure, "rational root")
	})

	t.Run("other errors settle", func(t *testing.T) {
		c, err := New(config8051())
		require.NoError(t, err)
		require.NoError(t, c.SelectPolynomial(ctx))

		err = c.splitOrSettle(ctx, fmt.Errorf("row 3: %w", gnfserrors.ErrBounds))
		assert.True(t, errors.Is(err, gnfserrors.ErrBounds))
		assert.Equal(t, state.PhaseFailed, c.Phase())
	})
}

func TestPhasesOutOfOrder(t *testing.T) {
	c, err := New(config8051())
	require.NoError(t, err)
	ctx := context.Background()

	assert.True(t, errors.Is(c.BuildFactorBases(ctx), gnfserrors.ErrInvalidParameter))
	assert.True(t, errors.Is(c.Sieve(ctx), gnfserrors.ErrInvalidParameter))
	assert.True(t, errors.Is(c.Solve(ctx), gnfserrors.ErrInvalidParameter))
	_, err = c.Extract(ctx)
	assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
	assert.Equal(t, state.PhaseInit, c.Phase())
}

func TestStepwisePhases(t *testing.T) {
	c, err := New(config8051())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.SelectPolynomial(ctx))
	require.NoError(t, c.BuildFactorBases(ctx))
	require.NotNil(t, c.FactorBase())
	assert.Len(t, c.FactorBase().Rational, 25)

	require.NoError(t, c.Sieve(ctx))
	assert.GreaterOrEqual(t, len(c.Relations()), c.Snapshot().Target)
	for _, r := range c.Relations() {
		assert.True(t, r.IsSmooth(), "relation %v", r)
	}

	require.NoError(t, c.Solve(ctx))
	deps := c.Dependencies()
	require.NotEmpty(t, deps)
	assert.Equal(t, len(deps), c.Snapshot().Free)

	rels := c.Relations()
	for i := 1; i < len(rels); i++ {
		prev, cur := rels[i-1], rels[i]
		assert.True(t, prev.B < cur.B || (prev.B == cur.B && prev.A < cur.A))
	}

	f, err := c.Extract(ctx)
	require.NoError(t, err)
	assertFactors(t, f, 83, 97)

	// Every phase method is a no-op on a finished session.
	require.NoError(t, c.Sieve(ctx))
	f, err = c.Extract(ctx)
	require.NoError(t, err)
	assertFactors(t, f, 83, 97)
}

func TestCheckpointedRunResumes(t *testing.T) {
	ctx := context.Background()

	baseline, err := New(config1000009())
	require.NoError(t, err)
	want, err := baseline.Run(ctx)
	require.NoError(t, err)

	root := t.TempDir()
	cfg := config1000009()
	cfg.SessionID = "resume-test"
	store := checkpoint.NewFileStore(root, cfg.SessionID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	rec := newRecorder()
	rec.onScanned = func(int64) { cancel() }

	first, err := New(cfg, WithSink(store), WithObserver(rec))
	require.NoError(t, err)
	_, err = first.Run(runCtx)
	require.True(t, errors.Is(err, gnfserrors.ErrCancelled), "got %v", err)
	assert.Equal(t, state.PhaseSieving, first.Phase())
	interrupted := first.Snapshot()
	require.NoError(t, first.Close(ctx))
	require.NoError(t, store.Close())

	cp, err := store.LoadAll(ctx, cfg.SessionID)
	require.NoError(t, err)
	require.NotNil(t, cp.Snapshot)
	assert.Equal(t, state.PhaseSieving, cp.Snapshot.Phase)
	assert.Equal(t, interrupted.Position, cp.Snapshot.Position)
	assert.Len(t, cp.Smooth, interrupted.Smooth)
	for _, kind := range []factorbase.Kind{factorbase.Rational, factorbase.Algebraic, factorbase.Quadratic} {
		assert.NotEmpty(t, cp.FactorBases[kind], "%s base", kind)
		assert.NotEmpty(t, cp.FactorPairs[kind], "%s pairs", kind)
	}
	require.Less(t, interrupted.Smooth, interrupted.Target)

	resumeStore := checkpoint.NewFileStore(root, cfg.SessionID)
	defer resumeStore.Close()
	second, err := Restore(ctx, Config{Workers: 2}, cp, WithSink(resumeStore))
	require.NoError(t, err)
	assert.Equal(t, cfg.SessionID, second.SessionID())
	assert.Equal(t, state.PhaseSieving, second.Phase())
	assert.Len(t, second.Relations(), interrupted.Smooth)

	got, err := second.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, second.Close(ctx))
	assertFactors(t, got, want.P.Int64(), want.Q.Int64())
	assert.Equal(t, keys(baseline.Relations()), keys(second.Relations()))

	final, err := resumeStore.LoadAll(ctx, cfg.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.PhaseDone, final.Snapshot.Phase)
	assert.Equal(t, []string{"293", "3413"}, final.Snapshot.Factors)
	assert.NotEmpty(t, final.Free)
}

func keys(rels []*relation.Relation) [][2]int64 {
	out := make([][2]int64, len(rels))
	for i, r := range rels {
		out[i] = [2]int64{r.A, r.B}
	}
	return out
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to restore", func(t *testing.T) {
		_, err := Restore(ctx, Config{}, nil)
		assert.True(t, errors.Is(err, gnfserrors.ErrCheckpointNotFound))
	})

	t.Run("n mismatch", func(t *testing.T) {
		cp := &state.Checkpoint{Snapshot: &state.Snapshot{SessionID: "s", N: "8051", Phase: state.PhaseInit}}
		cfg := config8051()
		cfg.N = big.NewInt(8053)
		_, err := Restore(ctx, cfg, cp)
		assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
	})

	t.Run("corrupt n", func(t *testing.T) {
		cp := &state.Checkpoint{Snapshot: &state.Snapshot{SessionID: "s", N: "eighty", Phase: state.PhaseInit}}
		_, err := Restore(ctx, Config{}, cp)
		assert.True(t, errors.Is(err, gnfserrors.ErrCheckpointCorrupt))
	})

	t.Run("snapshot parameters win", func(t *testing.T) {
		cp := &state.Checkpoint{Snapshot: &state.Snapshot{
			SessionID:     "s",
			N:             "8051",
			Base:          "20",
			Degree:        3,
			RationalBound: 100,
			Phase:         state.PhasePolynomialSelected,
		}}
		c, err := Restore(ctx, Config{Base: big.NewInt(30), Degree: 4}, cp)
		require.NoError(t, err)
		require.NotNil(t, c.Polynomial())
		assert.Equal(t, "20", c.Polynomial().Base().String())
		assert.Equal(t, 3, c.Polynomial().Degree())
		assert.Equal(t, "s", c.SessionID())
	})

	t.Run("done session", func(t *testing.T) {
		cp := &state.Checkpoint{Snapshot: &state.Snapshot{
			SessionID: "s",
			N:         "8051",
			Phase:     state.PhaseDone,
			Factors:   []string{"83", "97"},
		}}
		c, err := Restore(ctx, Config{}, cp)
		require.NoError(t, err)
		f, err := c.Run(ctx)
		require.NoError(t, err)
		assertFactors(t, f, 83, 97)
	})

	t.Run("failed session", func(t *testing.T) {
		cp := &state.Checkpoint{Snapshot: &state.Snapshot{
			SessionID: "s",
			N:         "8051",
			Phase:     state.PhaseFailed,
			Failure:   "boom",
		}}
		c, err := Restore(ctx, Config{}, cp)
		require.NoError(t, err)
		_, err = c.Run(ctx)
		assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter))
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestRestoreVerifiesRelations(t *testing.T) {
	ctx := context.Background()

	source, err := New(config8051())
	require.NoError(t, err)
	_, err = source.Run(ctx)
	require.NoError(t, err)

	var stored []*relation.Relation
	for _, r := range source.Relations() {
		fresh, err := relation.New(r.A, r.B, source.Polynomial())
		require.NoError(t, err)
		stored = append(stored, fresh)
	}
	tampered, err := relation.New(stored[0].A, stored[0].B, source.Polynomial())
	require.NoError(t, err)
	tampered.B++
	stored = append(stored, stored[1], tampered)

	var messages []string
	c, err := Restore(ctx, config8051(), &state.Checkpoint{Smooth: stored},
		WithProgress(func(msg string) { messages = append(messages, msg) }))
	require.NoError(t, err)
	assert.Equal(t, state.PhaseInit, c.Phase())

	require.NoError(t, c.SelectPolynomial(ctx))
	require.NoError(t, c.BuildFactorBases(ctx))
	assert.Len(t, c.Relations(), len(source.Relations()))

	var dropped bool
	for _, msg := range messages {
		if strings.Contains(msg, "Dropped 1 restored") {
			dropped = true
		}
	}
	assert.True(t, dropped, "messages: %v", messages)

	f, err := c.Run(ctx)
	require.NoError(t, err)
	assertFactors(t, f, 83, 97)
	assert.Equal(t, keys(source.Relations()), keys(c.Relations()))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing n", mutate: func(c *Config) { c.N = nil }},
		{name: "n of one", mutate: func(c *Config) { c.N = big.NewInt(1) }},
		{name: "base of one", mutate: func(c *Config) { c.Base = big.NewInt(1) }},
		{name: "negative degree", mutate: func(c *Config) { c.Degree = -1 }},
		{name: "negative target", mutate: func(c *Config) { c.RelationTarget = -1 }},
		{name: "negative range", mutate: func(c *Config) { c.ValueRange = -5 }},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -2 }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }},
	}

	require.NoError(t, config8051().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config8051()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, gnfserrors.ErrInvalidParameter), "got %v", err)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	n := big.NewInt(8051)
	c, err := New(Config{N: n})
	require.NoError(t, err)

	assert.Equal(t, int64(defaultValueRange), c.cfg.ValueRange)
	assert.Equal(t, defaultRelationMargin, c.cfg.RelationMargin)
	assert.Equal(t, 1, c.cfg.Workers)
	assert.NotEmpty(t, c.SessionID())

	n.SetInt64(9)
	assert.Equal(t, "8051", c.cfg.N.String())
}
