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
	"context"

	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

// RelationKind names one of the relation sets of a session.
type RelationKind string

const (
	RelationSmooth RelationKind = "smooth"
	RelationRough  RelationKind = "rough"
	RelationFree   RelationKind = "free"
)

// Sink receives checkpoint data from the engine. Every method must be safe
// to call again with data it has already seen. For RelationFree each call
// carries exactly one free relation group.
type Sink interface {
	SaveState(ctx context.Context, snapshot *Snapshot) error
	AppendRelations(ctx context.Context, kind RelationKind, rels []*relation.Relation) error
	SaveFactorBase(ctx context.Context, kind factorbase.Kind, primes []uint64) error
	SaveFactorPairs(ctx context.Context, kind factorbase.Kind, pairs []factorbase.Pair) error
}

// Checkpoint is everything a Source could recover for a session. Any field
// may be empty.
type Checkpoint struct {
	Snapshot    *Snapshot
	FactorBases map[factorbase.Kind][]uint64
	FactorPairs map[factorbase.Kind][]factorbase.Pair
	Smooth      []*relation.Relation
	Rough       []*relation.Relation
	Free        [][]*relation.Relation
}

// Source loads a previously checkpointed session.
type Source interface {
	LoadAll(ctx context.Context, sessionID string) (*Checkpoint, error)
}

// ProgressFunc receives human readable milestones.
type ProgressFunc func(message string)

// Observer receives structured progress events. Implementations must be
// cheap; they are called on the engine's goroutine.
type Observer interface {
	PhaseChanged(from, to Phase)
	RelationsFound(kind RelationKind, count int)
	PairsScanned(count int64)
	DependenciesTried(count int)
}
