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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	"github.com/sirseerhq/sirseer-gnfs/internal/metadata"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// AssertFactorOutput checks the line printed for a factored n
func AssertFactorOutput(t *testing.T, result CLIResult, n, p, q string) {
	t.Helper()

	want := n + " = " + p + " * " + q + "\n"
	if result.Stdout != want {
		t.Errorf("Expected output %q, got %q\nStderr: %s", want, result.Stdout, result.Stderr)
	}
}

// AssertSessionFiles checks that a file-backed session directory holds a
// snapshot and the relation logs
func AssertSessionFiles(t *testing.T, sessionDir string) {
	t.Helper()

	AssertDirExists(t, sessionDir)
	AssertFileExists(t, filepath.Join(sessionDir, state.StateFileName))
	AssertFileExists(t, filepath.Join(sessionDir, "smooth.ndjson"))
}

// LoadSession reads a file-backed session the way the resume command does
func LoadSession(t *testing.T, root, session string) *state.Checkpoint {
	t.Helper()

	store := checkpoint.NewFileStore(root, session)
	defer store.Close()

	cp, err := store.LoadAll(t.Context(), session)
	if err != nil {
		t.Fatalf("Failed to load session %s: %v", session, err)
	}
	return cp
}

// AssertMetadataFile validates the latest run metadata of a session
func AssertMetadataFile(t *testing.T, sessionDir, session string, phase state.Phase) *metadata.RunMetadata {
	t.Helper()

	md, err := metadata.LoadLatestMetadata(sessionDir, session)
	if err != nil {
		t.Fatalf("Failed to load metadata: %v", err)
	}
	if md == nil {
		t.Fatal("No metadata file found")
	}

	if md.EngineVersion == "" || md.RunID == "" {
		t.Errorf("Metadata lacks version or run id: %+v", md)
	}
	if md.MethodVersion != metadata.MethodVersion {
		t.Errorf("Unexpected method version: %s", md.MethodVersion)
	}
	if md.Results.Phase != string(phase) {
		t.Errorf("Expected phase %s in metadata, got %s", phase, md.Results.Phase)
	}
	return md
}

// AssertContainsString checks if a string contains a substring
func AssertContainsString(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected string to contain %q, got: %s", needle, haystack)
	}
}

// AssertEqual compares two values and fails if they're not equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("Got %v, want %v", got, want)
	}
}

// AssertDirExists checks that a directory exists
func AssertDirExists(t *testing.T, path string) {
	t.Helper()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Expected directory to exist: %s", path)
		}
		t.Fatalf("Failed to stat directory: %v", err)
	}

	if !info.IsDir() {
		t.Fatalf("Expected %s to be a directory", path)
	}
}
