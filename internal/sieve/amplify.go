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

package sieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

// Amplify pairs rough relations whose quotients match on both sides,
// derives a new candidate from each pair, and returns the candidates that
// are smooth. Candidates reported by skip, and repeats, are dropped.
// The yield is best effort; an empty result is normal.
func (s *Sieve) Amplify(ctx context.Context, rough []*relation.Relation, skip func(Position) bool) ([]*relation.Relation, error) {
	var out []*relation.Relation
	seen := make(map[Position]struct{})

	for _, pair := range relation.GroupRough(rough) {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("rough pairing interrupted: %w", gnfserrors.ErrCancelled)
		}

		a, b, ok := relation.CombineRough(pair)
		if !ok {
			continue
		}
		p := Position{A: a, B: b}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if skip != nil && skip(p) {
			continue
		}

		r, err := relation.New(a, b, s.f)
		if err != nil {
			s.logger.Warn("combined pair rejected", zap.Int64("a", a), zap.Int64("b", b), zap.Error(err))
			continue
		}
		if r.RationalNorm.Sign() == 0 {
			continue
		}
		r.Sieve(s.fb, false)
		if r.IsSmooth() {
			out = append(out, r)
		}
	}

	if len(out) > 0 {
		s.logger.Debug("rough pairing found smooth relations", zap.Int("count", len(out)), zap.Int("rough", len(rough)))
	}
	return out, nil
}
