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

	"github.com/spf13/cobra"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

var version = "dev"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(gnfserrors.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gnfs",
		Short: "Factor integers with the general number field sieve",
		Long: `SirSeer GNFS factors a composite integer with the general number field
sieve. Sessions are checkpointed as they run, so an interrupted factorization
can be continued with the resume command.`,
		Version:       version,
		SilenceUsage:  true, // Don't show usage on error
		SilenceErrors: true, // We'll handle error printing ourselves
	}
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default: .gnfs.yaml or ~/.sirseer/gnfs.yaml)")

	rootCmd.AddCommand(newFactorCommand(), newResumeCommand())
	return rootCmd
}
