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
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/gnfs"
	"github.com/sirseerhq/sirseer-gnfs/internal/logging"
)

func newFactorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factor [n]",
		Short: "Start a new factorization session",
		Long: `Factor a composite integer with the general number field sieve.

N may be given as an argument, in the configuration file or in GNFS_N.
Parameters left unset are derived from the size of N. The session is
checkpointed as it runs unless --no-checkpoint is given; an interrupted
session can be continued with "gnfs resume <session>".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFactor(cmd, args)
		},
	}

	cmd.Flags().String("base", "", "Polynomial base m (default: the degree-th root of n)")
	cmd.Flags().Int("degree", 0, "Polynomial degree (default: from the size of n)")
	cmd.Flags().Int("bound", 0, "Rational factor base bound (default: from the size of n)")
	cmd.Flags().Int64("range", 0, "Largest |a| sieved, and rows added when the window grows")
	cmd.Flags().Int("target", 0, "Smooth relations to collect before the first solve")
	cmd.Flags().Int("margin", 0, "Relations beyond the matrix column count")
	cmd.Flags().Bool("no-shortcuts", false, "Skip trial division of n by the factor base")
	cmd.Flags().Bool("no-checkpoint", false, "Do not checkpoint the session")
	cmd.Flags().String("session", "", "Session identifier (default: a new UUID)")
	addSessionFlags(cmd)

	return cmd
}

// runFactor starts a new session and drives it to a result.
func runFactor(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Factorization.N = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	ec, err := engineConfig(cfg, sessionID)
	if err != nil {
		return err
	}

	s := newSession(cmd, cfg, logger)
	if cfg.Checkpoint.Enabled {
		if s.store, err = openStore(cfg, sessionID, logger); err != nil {
			return err
		}
	}

	c, err := gnfs.New(ec, s.options()...)
	if err != nil {
		s.closeStore()
		return err
	}
	logger.Info("starting session",
		zap.String("session", c.SessionID()),
		zap.String("n", ec.N.String()),
		zap.Int("workers", ec.Workers),
		zap.Bool("checkpoint", cfg.Checkpoint.Enabled))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, runErr := c.Run(ctx)
	return s.finish(c, runErr)
}
