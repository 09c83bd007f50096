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

package matrix

import (
	"context"
	"fmt"
	"sort"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

// cancelCheckInterval is the number of pivots between context checks.
const cancelCheckInterval = 64

// Matrix is a GF(2) matrix stored by rows.
type Matrix struct {
	rows    []*BitVector
	columns int
}

// New returns an empty matrix with the given number of columns.
func New(columns int) *Matrix {
	return &Matrix{columns: columns}
}

// AddRow appends a row. The row must have exactly Columns() coordinates.
func (m *Matrix) AddRow(v *BitVector) error {
	if v.Len() != m.columns {
		return fmt.Errorf("row has %d columns, matrix has %d: %w", v.Len(), m.columns, gnfserrors.ErrInvariantViolation)
	}
	m.rows = append(m.rows, v)
	return nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.rows)
}

// Columns returns the number of columns.
func (m *Matrix) Columns() int {
	return m.columns
}

// Row returns row i.
func (m *Matrix) Row(i int) *BitVector {
	return m.rows[i]
}

// NullSpace returns every dependency found among the rows, each a sorted
// list of row indices whose vectors sum to zero. It fails with
// ErrInsufficientRelations when the matrix has no more rows than columns.
func (m *Matrix) NullSpace(ctx context.Context) ([][]int, error) {
	if len(m.rows) <= m.columns {
		return nil, fmt.Errorf("%d rows for %d columns: %w", len(m.rows), m.columns, gnfserrors.ErrInsufficientRelations)
	}

	active := m.pruneSingletons()

	// Dense elimination over the surviving rows, each tracking its history.
	work := make([]*BitVector, len(active))
	history := make([]*BitVector, len(active))
	for i, r := range active {
		work[i] = m.rows[r].Clone()
		history[i] = NewBitVector(len(m.rows))
		history[i].Set(r)
	}

	pivot := make([]bool, len(active))
	pivots := 0
	for col := 0; col < m.columns; col++ {
		p := -1
		for i := range work {
			if !pivot[i] && work[i].Get(col) {
				p = i
				break
			}
		}
		if p < 0 {
			continue
		}
		pivot[p] = true
		for i := range work {
			if !pivot[i] && work[i].Get(col) {
				work[i].Xor(work[p])
				history[i].Xor(history[p])
			}
		}

		pivots++
		if pivots%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("elimination interrupted after %d pivots: %w", pivots, gnfserrors.ErrCancelled)
			}
		}
	}

	var deps [][]int
	for i := range work {
		if pivot[i] {
			continue
		}
		if !work[i].IsZero() {
			return nil, fmt.Errorf("non-pivot row %d did not reduce to zero: %w", active[i], gnfserrors.ErrInvariantViolation)
		}
		dep := history[i].Ones()
		if err := m.verify(dep); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// pruneSingletons returns the indices of rows that survive singleton removal.
func (m *Matrix) pruneSingletons() []int {
	weight := make([]int, m.columns)
	for _, r := range m.rows {
		for _, c := range r.Ones() {
			weight[c]++
		}
	}

	alive := make([]bool, len(m.rows))
	for i := range alive {
		alive[i] = true
	}

	for changed := true; changed; {
		changed = false
		for c := 0; c < m.columns; c++ {
			if weight[c] != 1 {
				continue
			}
			for i, r := range m.rows {
				if alive[i] && r.Get(c) {
					alive[i] = false
					for _, oc := range r.Ones() {
						weight[oc]--
					}
					changed = true
					break
				}
			}
		}
	}

	var active []int
	for i, ok := range alive {
		if ok {
			active = append(active, i)
		}
	}
	return active
}

// verify checks that the rows of dep sum to zero.
func (m *Matrix) verify(dep []int) error {
	if len(dep) == 0 {
		return fmt.Errorf("empty dependency: %w", gnfserrors.ErrInvariantViolation)
	}
	if !sort.IntsAreSorted(dep) {
		return fmt.Errorf("dependency indices are not sorted: %w", gnfserrors.ErrInvariantViolation)
	}
	sum := NewBitVector(m.columns)
	for _, i := range dep {
		sum.Xor(m.rows[i])
	}
	if !sum.IsZero() {
		return fmt.Errorf("dependency %v does not sum to zero: %w", dep, gnfserrors.ErrInvariantViolation)
	}
	return nil
}

// Verify checks that the rows of dep sum to zero.
func (m *Matrix) Verify(dep []int) error {
	for _, i := range dep {
		if i < 0 || i >= len(m.rows) {
			return fmt.Errorf("dependency index %d out of range: %w", i, gnfserrors.ErrInvariantViolation)
		}
	}
	return m.verify(dep)
}
