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
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sirseerhq/sirseer-gnfs/internal/factorbase"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

type opKind int

const (
	opState opKind = iota
	opRelations
	opFactorBase
	opFactorPairs
	opBarrier
)

type op struct {
	kind     opKind
	snapshot *state.Snapshot
	relKind  state.RelationKind
	rels     []*relation.Relation
	fbKind   factorbase.Kind
	primes   []uint64
	pairs    []factorbase.Pair
	done     chan struct{}
}

// Async forwards sink calls to a background goroutine. Its Sink methods
// never block and always return nil; failures are logged and counted.
type Async struct {
	sink   state.Sink
	retry  *RetryConfig
	logger *zap.Logger

	mu       sync.Mutex
	pending  []op
	closed   bool
	failures int
	dropped  int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

var _ state.Sink = (*Async)(nil)

// NewAsync starts the dispatcher goroutine. Close must be called to stop it.
func NewAsync(sink state.Sink, retry *RetryConfig, logger *zap.Logger) *Async {
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Async{
		sink:   sink,
		retry:  retry,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// SaveState queues a copy of snapshot. An older snapshot still waiting in the
// queue is discarded.
func (a *Async) SaveState(_ context.Context, snapshot *state.Snapshot) error {
	a.enqueue(op{kind: opState, snapshot: snapshot.Clone()})
	return nil
}

// AppendRelations queues a batch of relations.
func (a *Async) AppendRelations(_ context.Context, kind state.RelationKind, rels []*relation.Relation) error {
	if len(rels) == 0 {
		return nil
	}
	a.enqueue(op{kind: opRelations, relKind: kind, rels: append([]*relation.Relation(nil), rels...)})
	return nil
}

// SaveFactorBase queues a factor base.
func (a *Async) SaveFactorBase(_ context.Context, kind factorbase.Kind, primes []uint64) error {
	a.enqueue(op{kind: opFactorBase, fbKind: kind, primes: append([]uint64(nil), primes...)})
	return nil
}

// SaveFactorPairs queues a pair collection.
func (a *Async) SaveFactorPairs(_ context.Context, kind factorbase.Kind, pairs []factorbase.Pair) error {
	a.enqueue(op{kind: opFactorPairs, fbKind: kind, pairs: append([]factorbase.Pair(nil), pairs...)})
	return nil
}

// Flush waits until everything queued before the call has been applied.
func (a *Async) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !a.enqueue(op{kind: opBarrier, done: done}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close applies everything still queued and stops the dispatcher. It
// reports how many requests failed over the dispatcher's lifetime.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.stop)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-ctx.Done():
		return fmt.Errorf("checkpoint queue not drained: %w", ctx.Err())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		return fmt.Errorf("%d checkpoint writes failed", a.failures)
	}
	return nil
}

// Stats reports failed requests and snapshots superseded while queued.
func (a *Async) Stats() (failures, dropped int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures, a.dropped
}

func (a *Async) enqueue(o op) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Warn("checkpoint request after close ignored")
		return false
	}

	if o.kind == opState {
		// Keep queue order so the snapshot never runs ahead of the
		// relations queued before it.
		kept := a.pending[:0]
		for _, p := range a.pending {
			if p.kind == opState {
				a.dropped++
				continue
			}
			kept = append(kept, p)
		}
		a.pending = kept
	}
	a.pending = append(a.pending, o)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

func (a *Async) run() {
	defer close(a.done)

	for {
		a.mu.Lock()
		batch := a.pending
		a.pending = nil
		closed := a.closed
		a.mu.Unlock()

		for _, o := range batch {
			a.apply(o)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}

		select {
		case <-a.wake:
		case <-a.stop:
		}
	}
}

func (a *Async) apply(o op) {
	if o.kind == opBarrier {
		close(o.done)
		return
	}

	ctx := context.Background()
	name, call := a.describe(o)
	err := a.retry.retry(ctx, func() error { return call(ctx) }, func(attempt int, backoff time.Duration, err error) {
		a.logger.Debug("retrying checkpoint write",
			zap.String("request", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
	})
	if err != nil {
		a.mu.Lock()
		a.failures++
		a.mu.Unlock()
		a.logger.Warn("checkpoint write failed", zap.String("request", name), zap.Error(err))
	}
}

func (a *Async) describe(o op) (string, func(context.Context) error) {
	switch o.kind {
	case opState:
		return "state", func(ctx context.Context) error { return a.sink.SaveState(ctx, o.snapshot) }
	case opRelations:
		return "relations/" + string(o.relKind), func(ctx context.Context) error {
			return a.sink.AppendRelations(ctx, o.relKind, o.rels)
		}
	case opFactorBase:
		return "factorbase/" + string(o.fbKind), func(ctx context.Context) error {
			return a.sink.SaveFactorBase(ctx, o.fbKind, o.primes)
		}
	default:
		return "pairs/" + string(o.fbKind), func(ctx context.Context) error {
			return a.sink.SaveFactorPairs(ctx, o.fbKind, o.pairs)
		}
	}
}
