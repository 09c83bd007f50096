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

package checkpoint

import (
	"encoding/json"
	"fmt"

	"github.com/sirseerhq/sirseer-gnfs/internal/codec"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// FactorBaseDoc is the stored form of one prime base.
type FactorBaseDoc struct {
	V      int             `json:"v"`
	Kind   factorbase.Kind `json:"kind"`
	Primes []uint64        `json:"primes"`
}

// FactorPairsDoc is the stored form of one pair collection.
type FactorPairsDoc struct {
	V     int               `json:"v"`
	Kind  factorbase.Kind   `json:"kind"`
	Pairs []factorbase.Pair `json:"pairs"`
}

// EncodeFactorBase returns the JSON document for a prime base.
func EncodeFactorBase(kind factorbase.Kind, primes []uint64) ([]byte, error) {
	return json.Marshal(FactorBaseDoc{V: codec.Version, Kind: kind, Primes: primes})
}

// EncodeFactorPairs returns the JSON document for a pair collection.
func EncodeFactorPairs(kind factorbase.Kind, pairs []factorbase.Pair) ([]byte, error) {
	return json.Marshal(FactorPairsDoc{V: codec.Version, Kind: kind, Pairs: pairs})
}

// Builder assembles a state.Checkpoint from stored records. Smooth and rough
// relations are deduplicated by (a, b) and keep their first position, so
// records appended twice by a retried write load once.
type Builder struct {
	cp   *state.Checkpoint
	seen map[state.RelationKind]map[[2]int64]struct{}
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		cp: &state.Checkpoint{
			FactorBases: make(map[factorbase.Kind][]uint64),
			FactorPairs: make(map[factorbase.Kind][]factorbase.Pair),
		},
		seen: map[state.RelationKind]map[[2]int64]struct{}{
			state.RelationSmooth: {},
			state.RelationRough:  {},
		},
	}
}

// SetSnapshot installs the session snapshot.
func (b *Builder) SetSnapshot(s *state.Snapshot) {
	b.cp.Snapshot = s
}

// AddFactorBase decodes a FactorBaseDoc.
func (b *Builder) AddFactorBase(data []byte) error {
	var doc FactorBaseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("factor base document is not valid JSON (%v): %w", err, gnfserrors.ErrCheckpointCorrupt)
	}
	if doc.V != codec.Version {
		return fmt.Errorf("factor base document version %d is not supported: %w", doc.V, gnfserrors.ErrCheckpointCorrupt)
	}
	for i := 1; i < len(doc.Primes); i++ {
		if doc.Primes[i] <= doc.Primes[i-1] {
			return fmt.Errorf("%s factor base is not ascending at %d: %w", doc.Kind, i, gnfserrors.ErrCheckpointCorrupt)
		}
	}
	b.cp.FactorBases[doc.Kind] = doc.Primes
	return nil
}

// AddFactorPairs decodes a FactorPairsDoc.
func (b *Builder) AddFactorPairs(data []byte) error {
	var doc FactorPairsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("factor pairs document is not valid JSON (%v): %w", err, gnfserrors.ErrCheckpointCorrupt)
	}
	if doc.V != codec.Version {
		return fmt.Errorf("factor pairs document version %d is not supported: %w", doc.V, gnfserrors.ErrCheckpointCorrupt)
	}
	b.cp.FactorPairs[doc.Kind] = doc.Pairs
	return nil
}

// AddRelation decodes one record of a smooth or rough relation file.
func (b *Builder) AddRelation(kind state.RelationKind, data []byte) error {
	r, err := codec.Unmarshal(data)
	if err != nil {
		return err
	}
	key := [2]int64{r.A, r.B}
	seen := b.seen[kind]
	if seen == nil {
		return fmt.Errorf("relation kind %q is not a single relation set: %w", kind, gnfserrors.ErrCheckpointCorrupt)
	}
	if _, dup := seen[key]; dup {
		return nil
	}
	seen[key] = struct{}{}

	switch kind {
	case state.RelationSmooth:
		b.cp.Smooth = append(b.cp.Smooth, r)
	default:
		b.cp.Rough = append(b.cp.Rough, r)
	}
	return nil
}

// AddGroup decodes one free relation group record.
func (b *Builder) AddGroup(data []byte) error {
	var g codec.Group
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("free group record is not valid JSON (%v): %w", err, gnfserrors.ErrCheckpointCorrupt)
	}
	rels, err := g.Decode()
	if err != nil {
		return err
	}
	b.cp.Free = append(b.cp.Free, rels)
	return nil
}

// Checkpoint returns the assembled checkpoint.
func (b *Builder) Checkpoint() *state.Checkpoint {
	return b.cp
}

// encodeRelations renders a batch as records for one relation file. A free
// batch becomes a single group record.
func encodeRelations(kind state.RelationKind, rels []*relation.Relation) []interface{} {
	if kind == state.RelationFree {
		return []interface{}{codec.EncodeGroup(rels)}
	}
	out := make([]interface{}, len(rels))
	for i, r := range rels {
		out[i] = codec.Encode(r)
	}
	return out
}
