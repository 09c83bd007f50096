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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		SessionID:     "test-session",
		N:             "8051",
		Base:          "20",
		Degree:        3,
		RationalBound: 100,
		Phase:         PhaseSieving,
		Smooth:        42,
		Rough:         7,
		Window:        sieve.Window{Range: 200, MaxB: 200},
		Position:      sieve.Position{A: -200, B: 4},
		Target:        104,
		UpdatedAt:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestSessionDir(t *testing.T) {
	tests := []struct {
		name       string
		root       string
		session    string
		wantSuffix string
	}{
		{"default root", "", "abc", filepath.Join(".sirseer", "gnfs", "abc")},
		{"explicit root", "/tmp/runs", "abc", filepath.Join("/tmp/runs", "abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionDir(tt.root, tt.session)
			if !strings.HasSuffix(got, tt.wantSuffix) {
				t.Errorf("SessionDir(%q, %q) = %q, want suffix %q", tt.root, tt.session, got, tt.wantSuffix)
			}
		})
	}
}

func TestSaveAndLoadState(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), StateFileName)
	snap := testSnapshot()

	if err := SaveState(snap, stateFile); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if _, err := os.Stat(stateFile); err != nil {
		t.Fatalf("State file not created: %v", err)
	}

	loaded, err := LoadState(stateFile)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.N != snap.N || loaded.Base != snap.Base || loaded.Degree != snap.Degree {
		t.Errorf("polynomial mismatch: got %s/%s/%d", loaded.N, loaded.Base, loaded.Degree)
	}
	if loaded.Position != snap.Position {
		t.Errorf("Position mismatch: got %+v, want %+v", loaded.Position, snap.Position)
	}
	if loaded.Window != snap.Window {
		t.Errorf("Window mismatch: got %+v, want %+v", loaded.Window, snap.Window)
	}
	if loaded.Phase != PhaseSieving {
		t.Errorf("Phase mismatch: got %q", loaded.Phase)
	}
	if !loaded.UpdatedAt.Equal(snap.UpdatedAt) {
		t.Errorf("UpdatedAt mismatch: got %v, want %v", loaded.UpdatedAt, snap.UpdatedAt)
	}
	if loaded.Version != CurrentVersion {
		t.Errorf("Version mismatch: got %d, want %d", loaded.Version, CurrentVersion)
	}
	if loaded.Checksum == "" {
		t.Error("Checksum should not be empty")
	}
}

func TestSaveStateTwice(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), StateFileName)
	snap := testSnapshot()

	for i := 0; i < 2; i++ {
		snap.Smooth += i
		if err := SaveState(snap, stateFile); err != nil {
			t.Fatalf("SaveState #%d failed: %v", i, err)
		}
	}
	if _, err := LoadState(stateFile); err != nil {
		t.Fatalf("LoadState after resave failed: %v", err)
	}
}

func TestLoadState_FileNotExist(t *testing.T) {
	_, err := LoadState(filepath.Join(t.TempDir(), "nonexistent.state"))
	if !errors.Is(err, gnfserrors.ErrCheckpointNotFound) {
		t.Errorf("LoadState error = %v, want ErrCheckpointNotFound", err)
	}
}

func TestLoadState_CorruptedJSON(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "corrupted.state")
	if err := os.WriteFile(stateFile, []byte("{ invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadState(stateFile)
	if !errors.Is(err, gnfserrors.ErrCheckpointCorrupt) {
		t.Fatalf("LoadState error = %v, want ErrCheckpointCorrupt", err)
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadState_ChecksumMismatch(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "tampered.state")
	if err := SaveState(testSnapshot(), stateFile); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(stateFile)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"smooth":42`, `"smooth":420`, 1)
	if tampered == string(data) {
		t.Fatal("tampering did not change the file")
	}
	if err := os.WriteFile(stateFile, []byte(tampered), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = LoadState(stateFile)
	if !errors.Is(err, gnfserrors.ErrCheckpointCorrupt) {
		t.Fatalf("LoadState error = %v, want ErrCheckpointCorrupt", err)
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadState_VersionMismatch(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "oldversion.state")

	old := map[string]interface{}{
		"version":    0,
		"checksum":   "",
		"session_id": "old",
		"n":          "8051",
		"phase":      "sieving",
	}
	data, _ := json.Marshal(old)
	if err := os.WriteFile(stateFile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadState(stateFile)
	if !errors.Is(err, gnfserrors.ErrCheckpointCorrupt) {
		t.Fatalf("LoadState error = %v, want ErrCheckpointCorrupt", err)
	}
	if !strings.Contains(err.Error(), "incompatible with current version") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadState_UnknownPhase(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "phase.state")
	snap := testSnapshot()
	snap.Phase = "warp"
	if err := SaveState(snap, stateFile); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadState(stateFile); !errors.Is(err, gnfserrors.ErrCheckpointCorrupt) {
		t.Errorf("LoadState error = %v, want ErrCheckpointCorrupt", err)
	}
}

func TestAtomicWrite(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "atomic.state")
	if err := SaveState(testSnapshot(), stateFile); err != nil {
		t.Fatal(err)
	}

	initialData, err := os.ReadFile(stateFile)
	if err != nil {
		t.Fatal(err)
	}

	// A leftover temp file from an interrupted write must not affect the
	// committed snapshot.
	if err := os.WriteFile(stateFile+".tmp", []byte("partial write"), 0o644); err != nil {
		t.Fatal(err)
	}

	currentData, err := os.ReadFile(stateFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(currentData) != string(initialData) {
		t.Error("Original state file was modified during partial write")
	}
	if _, err := LoadState(stateFile); err != nil {
		t.Errorf("LoadState failed with a stale temp file present: %v", err)
	}
}

func TestDeleteState(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "delete.state")
	if err := SaveState(testSnapshot(), stateFile); err != nil {
		t.Fatal(err)
	}

	if err := DeleteState(stateFile); err != nil {
		t.Fatalf("DeleteState failed: %v", err)
	}
	if _, err := os.Stat(stateFile); !os.IsNotExist(err) {
		t.Error("State file still exists after deletion")
	}
	if err := DeleteState(stateFile); err != nil {
		t.Errorf("DeleteState on non-existent file should not error: %v", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			snap := testSnapshot()
			snap.Smooth = id
			_ = SaveState(snap, filepath.Join(dir, fmt.Sprintf("s%d.state", id)))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		loaded, err := LoadState(filepath.Join(dir, fmt.Sprintf("s%d.state", i)))
		if err != nil {
			t.Fatalf("Failed to load state %d: %v", i, err)
		}
		if loaded.Smooth != i {
			t.Errorf("state %d has smooth=%d", i, loaded.Smooth)
		}
	}
}

func TestPhase(t *testing.T) {
	for _, p := range Phases {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
		want := p == PhaseDone || p == PhaseFailed
		if p.Terminal() != want {
			t.Errorf("%q.Terminal() = %v, want %v", p, p.Terminal(), want)
		}
	}
	if Phase("bogus").Valid() {
		t.Error("unknown phase reported valid")
	}
}

func TestSnapshotClone(t *testing.T) {
	snap := testSnapshot()
	snap.Factors = []string{"83", "97"}

	c := snap.Clone()
	c.Factors[0] = "1"
	c.Smooth = 0
	if snap.Factors[0] != "83" || snap.Smooth != 42 {
		t.Error("Clone shares state with the original")
	}
}
