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

// Package matrix finds linear dependencies among exponent-parity vectors
// over GF(2).
//
// A Matrix holds one BitVector per smooth relation. NullSpace first prunes
// the matrix the way structured Gaussian elimination does: a column set in
// exactly one row forces that row out of every dependency, so the row is
// dropped, and the pass repeats until no such column is left. The remaining
// rows are reduced densely while each row records which original rows were
// added into it. Every row that reduces to zero yields one dependency, and
// the dependencies found this way are independent.
//
// All work is deterministic: columns are pivoted in ascending order and the
// lowest-numbered eligible row becomes the pivot.
package matrix
