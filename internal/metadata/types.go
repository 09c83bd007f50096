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

// Package metadata types define the structures used for tracking and
// persisting information about factorization runs.
package metadata

import (
	"time"
)

// RunMetadata is the record written when a run ends, successfully or not.
// A resumed session produces one record per run, linked through PreviousRun.
type RunMetadata struct {
	EngineVersion string     `json:"engine_version"`
	MethodVersion string     `json:"method_version"`
	RunID         string     `json:"run_id"`
	SessionID     string     `json:"session_id"`
	Parameters    RunParams  `json:"parameters"`
	Results       RunResults `json:"results"`
	Resumed       bool       `json:"resumed"`
	PreviousRun   *RunRef    `json:"previous_run,omitempty"`
}

// RunParams captures the inputs of a run so it can be reproduced.
type RunParams struct {
	N             string `json:"n"`
	Base          string `json:"base"`
	Degree        int    `json:"degree"`
	RationalBound int    `json:"rational_bound"`
	ValueRange    int64  `json:"value_range"`
	Workers       int    `json:"workers"`
	Backend       string `json:"backend,omitempty"`
}

// RunResults contains the counters observed during a run.
type RunResults struct {
	Phase             string            `json:"phase"`
	Factors           []string          `json:"factors,omitempty"`
	Error             string            `json:"error,omitempty"`
	Smooth            int               `json:"smooth_relations"`
	Rough             int               `json:"rough_relations"`
	Free              int               `json:"free_relations"`
	PairsScanned      int64             `json:"pairs_scanned"`
	DependenciesTried int               `json:"dependencies_tried"`
	Transitions       int               `json:"phase_transitions"`
	PhaseDurations    map[string]string `json:"phase_durations,omitempty"`
	Duration          string            `json:"run_duration"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       time.Time         `json:"completed_at"`
}

// RunRef links a resumed run to the run it continues.
type RunRef struct {
	RunID       string    `json:"run_id"`
	CompletedAt time.Time `json:"completed_at"`
}
