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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/gnfs"
	"github.com/sirseerhq/sirseer-gnfs/internal/logging"
	"github.com/sirseerhq/sirseer-gnfs/internal/metadata"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

func newResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <session>",
		Short: "Continue a checkpointed factorization session",
		Long: `Continue a session from its checkpoint.

The number, polynomial and bounds recorded in the checkpoint are used;
worker count, retry budget, logging and metrics follow the current
configuration. Relations read back from the checkpoint are verified before
they are used. A finished session prints its result again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, args[0])
		},
	}
	addSessionFlags(cmd)
	return cmd
}

// runResume restores sessionID from the configured backend and runs it.
func runResume(cmd *cobra.Command, sessionID string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// The checkpoint decides which number is factored.
	cfg.Factorization.N = ""
	cfg.Checkpoint.Enabled = true

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("%v: %w", err, gnfserrors.ErrInvalidParameter)
	}
	defer func() { _ = logger.Sync() }()

	s := newSession(cmd, cfg, logger)
	if s.store, err = openStore(cfg, sessionID, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cp, err := s.store.LoadAll(ctx, sessionID)
	if err != nil {
		s.closeStore()
		return err
	}
	if cp.Snapshot == nil {
		s.closeStore()
		return fmt.Errorf("session %s has no saved state: %w", sessionID, gnfserrors.ErrCheckpointNotFound)
	}
	cfg.Factorization.N = cp.Snapshot.N
	if err := cfg.Validate(); err != nil {
		s.closeStore()
		return err
	}

	ec, err := engineConfig(cfg, sessionID)
	if err != nil {
		s.closeStore()
		return err
	}

	dir := state.SessionDir(cfg.Checkpoint.Dir, sessionID)
	if s.previous, err = metadata.LoadLatestMetadata(dir, sessionID); err != nil {
		logger.Warn("ignoring unreadable run metadata", zap.Error(err))
	}

	c, err := gnfs.Restore(ctx, ec, cp, s.options()...)
	if err != nil {
		s.closeStore()
		return err
	}
	logger.Info("resuming session",
		zap.String("session", sessionID),
		zap.String("phase", string(c.Phase())),
		zap.Int("smooth", len(c.Relations())))

	_, runErr := c.Run(ctx)
	return s.finish(c, runErr)
}
