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

// Package metadata tracks and persists metadata about factorization runs. It
// records how much work each run did, how long each phase took and how the
// run ended, and links resumed runs to their predecessors.
//
// Metadata is saved as JSON files in the session directory next to the
// checkpoint, so external tools can analyze run history and performance.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

const (
	// MethodVersion identifies the polynomial selection and square root method.
	MethodVersion = "gnfs-base-m-v1"
)

// Tracker collects statistics during a run. It implements state.Observer so
// it can be attached to the controller directly. All methods are safe for
// concurrent use.
type Tracker struct {
	mu sync.Mutex

	now        func() time.Time
	startTime  time.Time
	phase      state.Phase
	phaseStart time.Time
	durations  map[state.Phase]time.Duration

	stats RunStats
}

// RunStats holds the counters accumulated from observer events.
type RunStats struct {
	Smooth            int
	Rough             int
	Free              int
	PairsScanned      int64
	DependenciesTried int
	Transitions       int
}

var _ state.Observer = (*Tracker)(nil)

// New creates a new metadata tracker started at the current time.
func New() *Tracker {
	return newTracker(time.Now)
}

func newTracker(now func() time.Time) *Tracker {
	start := now()
	return &Tracker{
		now:        now,
		startTime:  start,
		phaseStart: start,
		durations:  make(map[state.Phase]time.Duration),
	}
}

// PhaseChanged records time spent in the phase being left.
func (t *Tracker) PhaseChanged(from, to state.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if from != "" {
		t.durations[from] += now.Sub(t.phaseStart)
	}
	t.phase = to
	t.phaseStart = now
	t.stats.Transitions++
}

// RelationsFound adds count relations of the given kind.
func (t *Tracker) RelationsFound(kind state.RelationKind, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case state.RelationSmooth:
		t.stats.Smooth += count
	case state.RelationRough:
		t.stats.Rough += count
	case state.RelationFree:
		t.stats.Free += count
	}
}

// PairsScanned adds count scanned (a, b) pairs.
func (t *Tracker) PairsScanned(count int64) {
	t.mu.Lock()
	t.stats.PairsScanned += count
	t.mu.Unlock()
}

// DependenciesTried adds count dependencies handed to the extractor.
func (t *Tracker) DependenciesTried(count int) {
	t.mu.Lock()
	t.stats.DependenciesTried += count
	t.mu.Unlock()
}

// Stats returns a copy of the counters so far.
func (t *Tracker) Stats() RunStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// GenerateMetadata creates the record for the run so far. The snapshot, if
// given, supplies the session, final phase and factors; runErr is the error
// the run ended with, if any. previous links a resumed run to its predecessor.
func (t *Tracker) GenerateMetadata(engineVersion string, params RunParams, snapshot *state.Snapshot, runErr error, previous *RunMetadata) *RunMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()

	completedAt := t.now()

	durations := make(map[string]string, len(t.durations)+1)
	for phase, d := range t.durations {
		durations[string(phase)] = d.String()
	}
	if t.phase != "" {
		durations[string(t.phase)] = (t.durations[t.phase] + completedAt.Sub(t.phaseStart)).String()
	}

	results := RunResults{
		Phase:             string(t.phase),
		Smooth:            t.stats.Smooth,
		Rough:             t.stats.Rough,
		Free:              t.stats.Free,
		PairsScanned:      t.stats.PairsScanned,
		DependenciesTried: t.stats.DependenciesTried,
		Transitions:       t.stats.Transitions,
		PhaseDurations:    durations,
		Duration:          completedAt.Sub(t.startTime).String(),
		StartedAt:         t.startTime,
		CompletedAt:       completedAt,
	}
	if runErr != nil {
		results.Error = runErr.Error()
	}

	md := &RunMetadata{
		EngineVersion: engineVersion,
		MethodVersion: MethodVersion,
		RunID:         uuid.NewString(),
		Parameters:    params,
		Results:       results,
	}
	if snapshot != nil {
		md.SessionID = snapshot.SessionID
		md.Results.Phase = string(snapshot.Phase)
		md.Results.Factors = append([]string(nil), snapshot.Factors...)
	}
	if previous != nil {
		md.Resumed = true
		md.PreviousRun = &RunRef{
			RunID:       previous.RunID,
			CompletedAt: previous.Results.CompletedAt,
		}
	}
	return md
}

// SaveMetadata persists a RunMetadata record to a JSON file in dir. The file
// is written atomically using a temporary file and rename, and is named
// run-metadata-{unix nanoseconds}.json so names sort by start time.
func SaveMetadata(metadata *RunMetadata, dir string) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	filename := fmt.Sprintf("run-metadata-%d.json", metadata.Results.StartedAt.UnixNano())
	if err := state.WriteFileAtomic(filepath.Join(dir, filename), append(data, '\n')); err != nil {
		return fmt.Errorf("failed to save metadata file: %w", err)
	}
	return nil
}

// LoadLatestMetadata loads the most recent metadata record for sessionID
// from dir. Returns nil if there is none.
func LoadLatestMetadata(dir, sessionID string) (*RunMetadata, error) {
	files, err := filepath.Glob(filepath.Join(dir, "run-metadata-*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	var latest *RunMetadata
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var md RunMetadata
		if err := json.Unmarshal(data, &md); err != nil {
			return nil, fmt.Errorf("failed to parse metadata %s: %w", file, err)
		}
		if md.SessionID != sessionID {
			continue
		}
		if latest == nil || md.Results.StartedAt.After(latest.Results.StartedAt) {
			m := md
			latest = &m
		}
	}
	return latest, nil
}

// WriteMetadataToWriter serializes metadata to indented JSON on w.
func WriteMetadataToWriter(metadata *RunMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}
