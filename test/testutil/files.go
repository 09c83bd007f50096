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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes data as a YAML file named name in dir and returns its path
func WriteYAML(t *testing.T, dir, name string, data interface{}) string {
	t.Helper()

	content, err := yaml.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal YAML: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write YAML file: %v", err)
	}
	return path
}

// ReadJSON reads JSON from a file into a struct
func ReadJSON(t *testing.T, path string, v interface{}) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
}

// DecodeJSON decodes the JSON document in s into v
func DecodeJSON(t *testing.T, s string, v interface{}) {
	t.Helper()

	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, s)
	}
}

// AssertFileExists checks that a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Expected file to exist: %s", path)
	}
}

// MetadataFiles returns the run metadata files of a session directory,
// oldest first
func MetadataFiles(t *testing.T, sessionDir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(sessionDir, "run-metadata-*.json"))
	if err != nil {
		t.Fatalf("Failed to glob metadata files: %v", err)
	}
	return matches
}
