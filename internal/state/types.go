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
	"time"

	"github.com/sirseerhq/sirseer-gnfs/internal/sieve"
)

// CurrentVersion is the current snapshot schema version.
// Increment this when making breaking changes to the Snapshot structure.
const CurrentVersion = 1

// Phase is the position of a session in the factorization pipeline.
type Phase string

const (
	PhaseInit               Phase = "init"
	PhasePolynomialSelected Phase = "polynomial_selected"
	PhaseFactorBasesBuilt   Phase = "factor_bases_built"
	PhaseSieving            Phase = "sieving"
	PhaseSolving            Phase = "solving"
	PhaseExtracting         Phase = "extracting"
	PhaseDone               Phase = "done"
	PhaseFailed             Phase = "failed"
)

// Phases lists every phase in pipeline order.
var Phases = []Phase{
	PhaseInit,
	PhasePolynomialSelected,
	PhaseFactorBasesBuilt,
	PhaseSieving,
	PhaseSolving,
	PhaseExtracting,
	PhaseDone,
	PhaseFailed,
}

// Terminal reports whether no further transition can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// Snapshot is the persistent state of a factorization session. It holds
// everything needed to rebuild the session except the relations and factor
// bases, which a Sink stores separately.
type Snapshot struct {
	// Version indicates the schema version of this snapshot.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of the snapshot content (excluding this field).
	Checksum string `json:"checksum"`

	// SessionID identifies the session across restarts.
	SessionID string `json:"session_id"`

	// N is the number being factored, in decimal.
	N string `json:"n"`

	// Base and Degree define the polynomial. Coefficients are recomputed
	// from N on restore.
	Base   string `json:"base"`
	Degree int    `json:"degree"`

	// RationalBound is the rational factor base bound B.
	RationalBound uint64 `json:"rational_bound"`

	Phase Phase `json:"phase"`

	// Relation counts.
	Smooth int `json:"smooth"`
	Rough  int `json:"rough"`
	Free   int `json:"free"`

	// Window is the current search window and Position the next pair the
	// sieve will examine.
	Window   sieve.Window   `json:"window"`
	Position sieve.Position `json:"position"`

	// Target is the smooth relation count that ends the current sieve phase.
	Target int `json:"target"`

	// Retries counts the sieve rounds started after a solve or extraction
	// gave no factor.
	Retries int `json:"retries"`

	// Factors holds the two factors in decimal once the session is done.
	Factors []string `json:"factors,omitempty"`

	// Failure records why the session moved to PhaseFailed.
	Failure string `json:"failure,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares nothing with s.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	if s.Factors != nil {
		c.Factors = append([]string(nil), s.Factors...)
	}
	return &c
}
