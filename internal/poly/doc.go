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

// Package poly models the integer polynomial f of a number field sieve session.
//
// The polynomial is built from N by writing it in base m, one coefficient per
// power of m from the highest degree down, so that f(m) = N holds exactly.
// Besides plain evaluation the package offers the homogeneous evaluation
// b^d * f(a/b) used for algebraic norms, which distributes powers of b over
// the terms instead of forming a rational.
//
// Modular helpers (EvaluateMod, RootsMod, DerivativeMod) work on uint64
// residues and assume moduli below 2^32, which the factor base builder
// guarantees.
package poly
