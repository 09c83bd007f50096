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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/ndjson"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

var relationKinds = []state.RelationKind{state.RelationSmooth, state.RelationRough, state.RelationFree}

var factorKinds = []factorbase.Kind{factorbase.Rational, factorbase.Algebraic, factorbase.Quadratic}

// FileStore keeps sessions as directories under a root. As a Sink it writes
// to one session; as a Source it can read any session under the root.
type FileStore struct {
	root    string
	session string

	mu      sync.Mutex
	writers map[state.RelationKind]*ndjson.Writer
}

var (
	_ state.Sink   = (*FileStore)(nil)
	_ state.Source = (*FileStore)(nil)
)

// NewFileStore creates a store for session under root. An empty root means
// the default location, see state.SessionDir.
func NewFileStore(root, session string) *FileStore {
	return &FileStore{
		root:    root,
		session: session,
		writers: make(map[state.RelationKind]*ndjson.Writer),
	}
}

// Dir returns the directory of the store's session.
func (s *FileStore) Dir() string {
	return state.SessionDir(s.root, s.session)
}

// SaveState writes the snapshot atomically.
func (s *FileStore) SaveState(_ context.Context, snapshot *state.Snapshot) error {
	return state.SaveState(snapshot.Clone(), filepath.Join(s.Dir(), state.StateFileName))
}

// AppendRelations appends rels to the file of their kind and syncs it.
func (s *FileStore) AppendRelations(_ context.Context, kind state.RelationKind, rels []*relation.Relation) error {
	if len(rels) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer(kind)
	if err != nil {
		return err
	}
	for _, rec := range encodeRelations(kind, rels) {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to append %s relation: %w", kind, err)
		}
	}
	return w.Sync()
}

// SaveFactorBase writes the primes of one base atomically.
func (s *FileStore) SaveFactorBase(_ context.Context, kind factorbase.Kind, primes []uint64) error {
	data, err := EncodeFactorBase(kind, primes)
	if err != nil {
		return fmt.Errorf("failed to encode %s factor base: %w", kind, err)
	}
	return state.WriteFileAtomic(filepath.Join(s.Dir(), factorBaseFile(kind)), data)
}

// SaveFactorPairs writes one pair collection atomically.
func (s *FileStore) SaveFactorPairs(_ context.Context, kind factorbase.Kind, pairs []factorbase.Pair) error {
	data, err := EncodeFactorPairs(kind, pairs)
	if err != nil {
		return fmt.Errorf("failed to encode %s pairs: %w", kind, err)
	}
	return state.WriteFileAtomic(filepath.Join(s.Dir(), factorPairsFile(kind)), data)
}

// LoadAll reads every stored part of a session. Missing parts are left empty;
// a missing session directory is ErrCheckpointNotFound.
func (s *FileStore) LoadAll(ctx context.Context, sessionID string) (*state.Checkpoint, error) {
	dir := state.SessionDir(s.root, sessionID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no session %s under %s: %w", sessionID, dir, gnfserrors.ErrCheckpointNotFound)
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	b := NewBuilder()

	snapshot, err := state.LoadState(filepath.Join(dir, state.StateFileName))
	switch {
	case err == nil:
		b.SetSnapshot(snapshot)
	case errors.Is(err, gnfserrors.ErrCheckpointNotFound):
	default:
		return nil, err
	}

	for _, kind := range factorKinds {
		if err := readOptional(filepath.Join(dir, factorBaseFile(kind)), b.AddFactorBase); err != nil {
			return nil, err
		}
		if err := readOptional(filepath.Join(dir, factorPairsFile(kind)), b.AddFactorPairs); err != nil {
			return nil, err
		}
	}

	for _, kind := range relationKinds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading session interrupted: %w", gnfserrors.ErrCancelled)
		}
		add := func(line []byte) error { return b.AddRelation(kind, line) }
		if kind == state.RelationFree {
			add = b.AddGroup
		}
		if _, err := ndjson.ReadFile(filepath.Join(dir, relationFile(kind)), add); err != nil {
			return nil, fmt.Errorf("failed to load %s relations: %w", kind, err)
		}
	}
	return b.Checkpoint(), nil
}

// Close closes the open relation files.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	for kind, w := range s.writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close %s relations: %w", kind, err)
		}
		delete(s.writers, kind)
	}
	return first
}

func (s *FileStore) writer(kind state.RelationKind) (*ndjson.Writer, error) {
	if w, ok := s.writers[kind]; ok {
		return w, nil
	}
	w, err := ndjson.OpenFile(filepath.Join(s.Dir(), relationFile(kind)))
	if err != nil {
		return nil, err
	}
	s.writers[kind] = w
	return w, nil
}

func readOptional(path string, decode func([]byte) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return decode(data)
}

func relationFile(kind state.RelationKind) string {
	return string(kind) + ".ndjson"
}

func factorBaseFile(kind factorbase.Kind) string {
	return "factorbase-" + string(kind) + ".json"
}

func factorPairsFile(kind factorbase.Kind) string {
	return "pairs-" + string(kind) + ".json"
}
