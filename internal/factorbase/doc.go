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

// Package factorbase builds the three prime bases of a session and the
// (prime, root) pairs derived from them.
//
// Given a rational bound B the bases are:
//   - rational: every prime p <= B
//   - algebraic: every prime p <= 3B
//   - quadratic: the first QuadraticBaseSize(degree) primes at or above 3B + 20
//
// Rational pairs carry r = m mod p. Algebraic and quadratic pairs carry every
// root r of f modulo p, found by exhaustive search. Root finding for separate
// primes is independent, so it is spread over a bounded worker pool and the
// results are merged back in prime order, which keeps the collections
// identical from run to run regardless of scheduling.
package factorbase
