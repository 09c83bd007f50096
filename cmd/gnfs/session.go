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

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint/badgerstore"
	"github.com/sirseerhq/sirseer-gnfs/internal/config"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/gnfs"
	"github.com/sirseerhq/sirseer-gnfs/internal/metadata"
	"github.com/sirseerhq/sirseer-gnfs/internal/metrics"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// closeTimeout bounds how long the command waits for queued checkpoint
// writes after the session stops.
const closeTimeout = 30 * time.Second

// store is a checkpoint backend the command can write to and read from.
type store interface {
	state.Sink
	state.Source
	Close() error
}

// addSessionFlags defines the flags shared by factor and resume.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("workers", 0, "Sieve worker goroutines (default: one per CPU)")
	cmd.Flags().Int("max-retries", 0, "Extra sieve rounds after a round without a factor")
	cmd.Flags().Bool("keep-rough", false, "Keep relations with one large prime and pair them")
	cmd.Flags().String("checkpoint-dir", "", "Directory holding session checkpoints")
	cmd.Flags().String("backend", "", "Checkpoint backend: file or badger")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().String("log-format", "", "Log format: console or json")
	cmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file when the run ends")
	cmd.Flags().Bool("json", false, "Print the run metadata as JSON instead of the factors")
	cmd.Flags().Bool("quiet", false, "Do not draw the live sieve progress line")
}

// loadSettings loads the configuration and applies the flags that were set
// on the command line, which take precedence over everything else.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies the flags that were set onto cfg. An explicit --degree
// must be at least 1; only leaving it unset selects the degree from n.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	f := &cfg.Factorization

	if flags.Changed("base") {
		f.Base, _ = flags.GetString("base")
	}
	if flags.Changed("degree") {
		f.Degree, _ = flags.GetInt("degree")
		if f.Degree < 1 {
			return fmt.Errorf("--degree must be at least 1, got: %d: %w", f.Degree, gnfserrors.ErrInvalidParameter)
		}
	}
	if flags.Changed("bound") {
		f.RationalBound, _ = flags.GetInt("bound")
	}
	if flags.Changed("range") {
		f.ValueRange, _ = flags.GetInt64("range")
	}
	if flags.Changed("target") {
		f.RelationTarget, _ = flags.GetInt("target")
	}
	if flags.Changed("margin") {
		f.RelationMargin, _ = flags.GetInt("margin")
	}
	if flags.Changed("no-shortcuts") {
		off, _ := flags.GetBool("no-shortcuts")
		f.Shortcuts = !off
	}
	if flags.Changed("keep-rough") {
		f.KeepRough, _ = flags.GetBool("keep-rough")
	}
	if flags.Changed("max-retries") {
		f.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("workers") {
		cfg.Sieve.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("no-checkpoint") {
		off, _ := flags.GetBool("no-checkpoint")
		cfg.Checkpoint.Enabled = !off
	}
	if flags.Changed("checkpoint-dir") {
		cfg.Checkpoint.Dir, _ = flags.GetString("checkpoint-dir")
	}
	if flags.Changed("backend") {
		cfg.Checkpoint.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}
	return nil
}

// engineConfig converts the validated configuration to a session config.
func engineConfig(cfg *config.Config, sessionID string) (gnfs.Config, error) {
	f := cfg.Factorization
	ec := gnfs.Config{
		Degree:         f.Degree,
		RationalBound:  uint64(f.RationalBound),
		RelationTarget: f.RelationTarget,
		RelationMargin: f.RelationMargin,
		ValueRange:     f.ValueRange,
		Workers:        cfg.Sieve.Workers,
		KeepRough:      f.KeepRough,
		MaxRough:       f.MaxRough,
		MaxRetries:     f.MaxRetries,
		PrimeLimit:     f.PrimeLimit,
		Shortcuts:      f.Shortcuts,
		SessionID:      sessionID,
	}
	if f.N != "" {
		n, err := config.ParseInt(f.N)
		if err != nil {
			return gnfs.Config{}, err
		}
		ec.N = n
	}
	if f.Base != "" {
		base, err := config.ParseInt(f.Base)
		if err != nil {
			return gnfs.Config{}, err
		}
		ec.Base = base
	}
	if ec.Workers == 0 {
		ec.Workers = runtime.NumCPU()
	}
	return ec, nil
}

// openStore opens the configured checkpoint backend for sessionID.
func openStore(cfg *config.Config, sessionID string, logger *zap.Logger) (store, error) {
	switch cfg.Checkpoint.Backend {
	case config.BackendBadger:
		s, err := badgerstore.Open(badgerstore.Config{
			Path:   filepath.Join(cfg.Checkpoint.Dir, "badger"),
			Logger: logger.Named("badger").WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)),
		}, sessionID)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return checkpoint.NewFileStore(cfg.Checkpoint.Dir, sessionID), nil
	}
}

// session holds the collaborators of one command invocation.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    store
	tracker  *metadata.Tracker
	metrics  *metrics.Metrics
	display  *progressDisplay
	previous *metadata.RunMetadata
	jsonOut  bool
	out      io.Writer
	errOut   io.Writer
}

func newSession(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) *session {
	jsonOut, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	return &session{
		cfg:     cfg,
		logger:  logger,
		tracker: metadata.New(),
		metrics: metrics.New(),
		display: newProgressDisplay(cmd.ErrOrStderr(), !quiet),
		jsonOut: jsonOut,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
	}
}

// options wires the session's collaborators into a controller.
func (s *session) options() []gnfs.Option {
	opts := []gnfs.Option{
		gnfs.WithLogger(s.logger),
		gnfs.WithObserver(s.tracker),
		gnfs.WithObserver(s.metrics),
		gnfs.WithObserver(s.display),
		gnfs.WithProgress(func(msg string) {
			s.display.clear()
			s.logger.Info(msg)
		}),
	}
	if s.store != nil {
		opts = append(opts, gnfs.WithSink(s.store), gnfs.WithRetry(checkpoint.DefaultRetryConfig()))
	}
	return opts
}

func (s *session) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close checkpoint store", zap.Error(err))
	}
}

// finish drains the checkpoint queue, records the run and prints its result.
// It returns runErr unchanged.
func (s *session) finish(c *gnfs.Controller, runErr error) error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		s.logger.Warn("some checkpoint writes failed", zap.Error(err))
	}
	s.closeStore()
	s.display.clear()

	snap := c.Snapshot()
	params := metadata.RunParams{
		N:             snap.N,
		Base:          snap.Base,
		Degree:        snap.Degree,
		RationalBound: int(snap.RationalBound),
		ValueRange:    snap.Window.Range,
		Workers:       s.cfg.Sieve.Workers,
	}
	if s.store != nil {
		params.Backend = s.cfg.Checkpoint.Backend
	}
	md := s.tracker.GenerateMetadata(version, params, snap, runErr, s.previous)

	if s.store != nil {
		if err := metadata.SaveMetadata(md, state.SessionDir(s.cfg.Checkpoint.Dir, snap.SessionID)); err != nil {
			s.logger.Warn("failed to save run metadata", zap.Error(err))
		}
	}
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			s.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}

	if s.jsonOut {
		if err := metadata.WriteMetadataToWriter(md, s.out); err != nil {
			return fmt.Errorf("failed to write run metadata: %w", err)
		}
	} else if f := c.Factors(); f != nil {
		fmt.Fprintf(s.out, "%s = %s * %s\n", snap.N, f.P, f.Q)
	}

	if runErr != nil && s.store != nil && !snap.Phase.Terminal() {
		fmt.Fprintf(s.errOut, "Session %s saved in phase %s; continue with: gnfs resume %s\n",
			snap.SessionID, snap.Phase, snap.SessionID)
	}
	return runErr
}

// progressDisplay draws a single live line on stderr while the sieve runs.
// It is an observer; phase changes and progress messages clear the line.
type progressDisplay struct {
	mu      sync.Mutex
	w       io.Writer
	enabled bool
	start   time.Time
	scanned int64
	smooth  int
	drawn   bool
}

var _ state.Observer = (*progressDisplay)(nil)

func newProgressDisplay(w io.Writer, enabled bool) *progressDisplay {
	return &progressDisplay{w: w, enabled: enabled, start: time.Now()}
}

func (d *progressDisplay) PhaseChanged(_, _ state.Phase) {
	d.clear()
}

func (d *progressDisplay) RelationsFound(kind state.RelationKind, count int) {
	if kind != state.RelationSmooth {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.smooth += count
}

func (d *progressDisplay) PairsScanned(count int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanned += count
	if !d.enabled {
		return
	}

	var rate string
	if elapsed := time.Since(d.start).Seconds(); elapsed > 0 {
		rate = fmt.Sprintf(" | %.0f pairs/s", float64(d.scanned)/elapsed)
	}
	fmt.Fprintf(d.w, "\rSieving: %d pairs scanned | %d smooth relations%s", d.scanned, d.smooth, rate)
	d.drawn = true
}

func (d *progressDisplay) DependenciesTried(int) {}

// clear erases the live line if one is drawn.
func (d *progressDisplay) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drawn {
		fmt.Fprint(d.w, "\r\033[K")
		d.drawn = false
	}
}
