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

package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

// StateFileName is the snapshot file inside a session directory.
const StateFileName = "session.state"

// SessionDir returns the directory holding one session's checkpoint files.
// An empty root means ~/.sirseer/gnfs.
// Returns: <root>/<sessionID>
func SessionDir(root, sessionID string) string {
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if home directory is not accessible
			homeDir = "."
		}
		root = filepath.Join(homeDir, ".sirseer", "gnfs")
	}
	return filepath.Join(root, sessionID)
}

// SaveState atomically saves the snapshot to disk with integrity validation.
// It uses a write-to-temp-and-rename pattern to ensure atomicity.
// The checksum is calculated and stored to detect corruption.
func SaveState(snapshot *Snapshot, stateFile string) error {
	data, err := EncodeState(snapshot)
	if err != nil {
		return err
	}
	return WriteFileAtomic(stateFile, data)
}

// EncodeState stamps the snapshot with the current version and its checksum
// and returns its compact JSON form.
func EncodeState(snapshot *Snapshot) ([]byte, error) {
	snapshot.Version = CurrentVersion
	snapshot.Checksum = ""

	checksum, err := calculateChecksum(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	snapshot.Checksum = checksum

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

// WriteFileAtomic writes data to a temporary file next to path, syncs it and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0o755); mkdirErr != nil {
		return fmt.Errorf("failed to create state directory: %w", mkdirErr)
	}

	tempFile := path + ".tmp"
	if writeErr := os.WriteFile(tempFile, data, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write temporary file: %w", writeErr)
	}

	// Sync to ensure data is flushed to disk
	file, err := os.Open(tempFile)
	if err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadState reads and validates a snapshot from disk.
// It verifies the checksum and version compatibility.
func LoadState(stateFile string) (*Snapshot, error) {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no session state found at %s: %w", stateFile, gnfserrors.ErrCheckpointNotFound)
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", stateFile, err)
	}
	return DecodeState(data)
}

// DecodeState parses and validates a snapshot produced by SaveState.
func DecodeState(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if unmarshalErr := json.Unmarshal(data, &snapshot); unmarshalErr != nil {
		return nil, fmt.Errorf("state is corrupted (invalid JSON: %v): %w", unmarshalErr, gnfserrors.ErrCheckpointCorrupt)
	}

	if snapshot.Version != CurrentVersion {
		return nil, fmt.Errorf("state version (%d) is incompatible with current version (%d): %w",
			snapshot.Version, CurrentVersion, gnfserrors.ErrCheckpointCorrupt)
	}

	savedChecksum := snapshot.Checksum
	snapshot.Checksum = ""
	calculatedChecksum, err := calculateChecksum(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum for validation: %w", err)
	}
	if savedChecksum != calculatedChecksum {
		return nil, fmt.Errorf("state is corrupted (checksum mismatch): %w", gnfserrors.ErrCheckpointCorrupt)
	}
	snapshot.Checksum = savedChecksum

	if !snapshot.Phase.Valid() {
		return nil, fmt.Errorf("state has unknown phase %q: %w", snapshot.Phase, gnfserrors.ErrCheckpointCorrupt)
	}
	return &snapshot, nil
}

// DeleteState removes a snapshot file. A missing file is not an error.
func DeleteState(stateFile string) error {
	err := os.Remove(stateFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// calculateChecksum computes the SHA256 hash of the snapshot content.
// The checksum field itself is excluded from the calculation.
func calculateChecksum(snapshot *Snapshot) (string, error) {
	snapshotCopy := *snapshot
	snapshotCopy.Checksum = ""

	data, err := json.Marshal(snapshotCopy)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
