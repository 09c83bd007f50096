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

package relation

import (
	"math/big"
	"sort"
)

// GroupRough pairs rough relations whose algebraic and rational quotients
// are both equal. Relations are ordered by algebraic quotient, then rational
// quotient, and neighbours with matching quotients are paired greedily; each
// relation joins at most one pair.
func GroupRough(rough []*Relation) [][2]*Relation {
	sorted := make([]*Relation, len(rough))
	copy(sorted, rough)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].AlgebraicQuotient.Cmp(sorted[j].AlgebraicQuotient); c != 0 {
			return c < 0
		}
		if c := sorted[i].RationalQuotient.Cmp(sorted[j].RationalQuotient); c != 0 {
			return c < 0
		}
		if sorted[i].B != sorted[j].B {
			return sorted[i].B < sorted[j].B
		}
		return sorted[i].A < sorted[j].A
	})

	var groups [][2]*Relation
	var last *Relation
	for _, r := range sorted {
		if last != nil &&
			r.AlgebraicQuotient.Cmp(last.AlgebraicQuotient) == 0 &&
			r.RationalQuotient.Cmp(last.RationalQuotient) == 0 {
			groups = append(groups, [2]*Relation{last, r})
			last = nil
			continue
		}
		last = r
	}
	return groups
}

// CombineRough derives a candidate pair from two rough relations with
// matching quotients: a' = (a1+b1)(a1-b1) and b' = (a2+b2)(a2-b2). It reports
// false when either value is not positive, does not fit an int64, or the
// result is not coprime.
func CombineRough(pair [2]*Relation) (a, b int64, ok bool) {
	combine := func(r *Relation) (int64, bool) {
		sum := new(big.Int).Add(big.NewInt(r.A), big.NewInt(r.B))
		diff := new(big.Int).Sub(big.NewInt(r.A), big.NewInt(r.B))
		v := sum.Mul(sum, diff)
		if v.Sign() <= 0 || !v.IsInt64() {
			return 0, false
		}
		return v.Int64(), true
	}

	if a, ok = combine(pair[0]); !ok {
		return 0, 0, false
	}
	if b, ok = combine(pair[1]); !ok {
		return 0, 0, false
	}
	if !Coprime(a, b) {
		return 0, 0, false
	}
	return a, b, true
}
