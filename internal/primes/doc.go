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

// Package primes provides an incremental prime sieve shared by every factor base
// of a session. The sieve keeps all primes found so far and extends its range
// upward with a segmented pass of Eratosthenes when a larger bound is requested,
// so successive factor base builds never re-sieve from zero.
//
// A Sieve has a ceiling fixed at construction. Requests beyond it fail with
// errors.ErrBounds instead of attempting an unbounded sieve.
package primes
