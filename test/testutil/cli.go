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
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// gnfsBinary compiles cmd/gnfs into a directory that outlives any single
// test, so every test in the package shares one build.
var gnfsBinary = sync.OnceValues(func() (string, error) {
	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "sirseer-gnfs-test")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "gnfs")
	build := exec.Command("go", "build", "-o", path, "./cmd/gnfs")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go build ./cmd/gnfs: %v\n%s", err, out)
	}
	return path, nil
})

// BuildBinary returns the path of the gnfs binary, building it on first use.
func BuildBinary(t *testing.T) string {
	t.Helper()
	path, err := gnfsBinary()
	if err != nil {
		t.Fatalf("building gnfs: %v", err)
	}
	return path
}

// CLIResult is what a finished gnfs process left behind.
type CLIResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Command prepares gnfs with args. HOME is a fresh directory and GNFS_N is
// cleared, so neither a user config file nor the caller's environment picks
// the number; env entries are added last and win.
func Command(t *testing.T, args []string, env map[string]string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	cmd := exec.Command(BuildBinary(t), args...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir(), "GNFS_N=")
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd, stdout, stderr
}

// RunCLI runs gnfs to completion.
func RunCLI(t *testing.T, args []string, env map[string]string) CLIResult {
	t.Helper()
	cmd, stdout, stderr := Command(t, args, env)
	return Result(cmd.Run(), stdout, stderr)
}

// Result turns the error of a finished command into an exit code: the
// process status, or -1 when gnfs could not be started at all.
func Result(err error, stdout, stderr *bytes.Buffer) CLIResult {
	code := 0
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case err != nil:
		code = -1
	}
	return CLIResult{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func AssertCLISuccess(t *testing.T, result CLIResult) {
	t.Helper()
	if result.Err != nil {
		t.Fatalf("gnfs exited with %d: %v\nstderr:\n%s", result.ExitCode, result.Err, result.Stderr)
	}
}

// AssertCLIError requires a failed run whose stderr mentions want. An empty
// want only checks the failure.
func AssertCLIError(t *testing.T, result CLIResult, want string) {
	t.Helper()
	if result.Err == nil {
		t.Fatalf("gnfs succeeded, want failure\nstdout:\n%s", result.Stdout)
	}
	if want != "" && !strings.Contains(result.Stderr, want) {
		t.Errorf("stderr = %q, want it to mention %q", result.Stderr, want)
	}
}

func AssertExitCode(t *testing.T, result CLIResult, want int) {
	t.Helper()
	if result.ExitCode != want {
		t.Errorf("exit code = %d, want %d\nstderr:\n%s", result.ExitCode, want, result.Stderr)
	}
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}
		dir = parent
	}
}
