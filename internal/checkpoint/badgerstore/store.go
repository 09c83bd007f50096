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

package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/checkpoint"
	"github.com/sirseerhq/sirseer-gnfs/internal/codec"
	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

// sequenceBandwidth is how many free group ids are leased at once.
const sequenceBandwidth = 64

// Config configures the database.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	// SyncWrites makes every commit durable before it returns.
	SyncWrites bool

	// Logger receives badger's own log output. Nil silences it.
	Logger *zap.Logger
}

// Store is a checkpoint Sink for one session and a Source for any session in
// the same database.
type Store struct {
	db      *badger.DB
	session string
	free    *badger.Sequence
}

var (
	_ state.Sink   = (*Store)(nil)
	_ state.Source = (*Store)(nil)
)

// zapLogger adapts zap to badger's logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l *zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Open opens the database and prepares a store for session.
func Open(cfg Config, session string) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger path is required for a persistent store: %w", gnfserrors.ErrInvalidParameter)
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapLogger{s: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	seq, err := db.GetSequence(sessionKey(session, "seq", "free"), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("lease free group sequence: %w", err)
	}
	return &Store{db: db, session: session, free: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	relErr := s.free.Release()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger database: %w", err)
	}
	if relErr != nil {
		return fmt.Errorf("release free group sequence: %w", relErr)
	}
	return nil
}

// SaveState stores the snapshot under the session's state key.
func (s *Store) SaveState(ctx context.Context, snapshot *state.Snapshot) error {
	data, err := state.EncodeState(snapshot.Clone())
	if err != nil {
		return err
	}
	return s.withTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.session, "state"), data)
	})
}

// AppendRelations stores a batch. Smooth and rough relations already present
// are overwritten with identical records.
func (s *Store) AppendRelations(ctx context.Context, kind state.RelationKind, rels []*relation.Relation) error {
	if len(rels) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if kind == state.RelationFree {
		id, err := s.free.Next()
		if err != nil {
			return fmt.Errorf("next free group id: %w", err)
		}
		data, err := json.Marshal(codec.EncodeGroup(rels))
		if err != nil {
			return fmt.Errorf("encode free group: %w", err)
		}
		if err := wb.Set(relationKey(s.session, kind, uint64Key(id)), data); err != nil {
			return fmt.Errorf("write free group: %w", err)
		}
		return wb.Flush()
	}

	for _, r := range rels {
		data, err := codec.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode relation (%d, %d): %w", r.A, r.B, err)
		}
		if err := wb.Set(relationKey(s.session, kind, pairKey(r.A, r.B)), data); err != nil {
			return fmt.Errorf("write relation (%d, %d): %w", r.A, r.B, err)
		}
	}
	return wb.Flush()
}

// SaveFactorBase stores one prime base.
func (s *Store) SaveFactorBase(ctx context.Context, kind factorbase.Kind, primes []uint64) error {
	data, err := checkpoint.EncodeFactorBase(kind, primes)
	if err != nil {
		return fmt.Errorf("encode %s factor base: %w", kind, err)
	}
	return s.withTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.session, "fb", string(kind)), data)
	})
}

// SaveFactorPairs stores one pair collection.
func (s *Store) SaveFactorPairs(ctx context.Context, kind factorbase.Kind, pairs []factorbase.Pair) error {
	data, err := checkpoint.EncodeFactorPairs(kind, pairs)
	if err != nil {
		return fmt.Errorf("encode %s pairs: %w", kind, err)
	}
	return s.withTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(sessionKey(s.session, "fp", string(kind)), data)
	})
}

// LoadAll reads every stored part of sessionID. A session without any key is
// ErrCheckpointNotFound.
func (s *Store) LoadAll(ctx context.Context, sessionID string) (*state.Checkpoint, error) {
	b := checkpoint.NewBuilder()
	found := false

	err := s.withReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID, "state"))
		switch {
		case err == nil:
			found = true
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			snapshot, err := state.DecodeState(data)
			if err != nil {
				return err
			}
			b.SetSnapshot(snapshot)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		for _, section := range []struct {
			prefix []byte
			add    func([]byte) error
		}{
			{sessionKey(sessionID, "fb", ""), b.AddFactorBase},
			{sessionKey(sessionID, "fp", ""), b.AddFactorPairs},
			{relationKey(sessionID, state.RelationSmooth, nil), func(v []byte) error { return b.AddRelation(state.RelationSmooth, v) }},
			{relationKey(sessionID, state.RelationRough, nil), func(v []byte) error { return b.AddRelation(state.RelationRough, v) }},
			{relationKey(sessionID, state.RelationFree, nil), b.AddGroup},
		} {
			n, err := scan(ctx, txn, section.prefix, section.add)
			if err != nil {
				return err
			}
			found = found || n > 0
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if !found {
		return nil, fmt.Errorf("no session %s in badger store: %w", sessionID, gnfserrors.ErrCheckpointNotFound)
	}
	return b.Checkpoint(), nil
}

func scan(ctx context.Context, txn *badger.Txn, prefix []byte, add func([]byte) error) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("load interrupted: %w", gnfserrors.ErrCancelled)
		}
		if err := it.Item().Value(add); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Store) withTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

func (s *Store) withReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	return fn(txn)
}

// sessionKey joins parts under the session prefix.
func sessionKey(session string, parts ...string) []byte {
	key := []byte("gnfs/" + session)
	for _, p := range parts {
		key = append(key, '/')
		key = append(key, p...)
	}
	return key
}

func relationKey(session string, kind state.RelationKind, suffix []byte) []byte {
	return append(sessionKey(session, "rel", string(kind), ""), suffix...)
}

// pairKey encodes (a, b) so that byte order matches (b, a) order.
func pairKey(a, b int64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(b)^(1<<63))
	binary.BigEndian.PutUint64(key[8:], uint64(a)^(1<<63))
	return key
}

func uint64Key(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}
