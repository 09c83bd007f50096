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

// Package gnfs drives a factorization session through its phases:
//
//	Init -> PolynomialSelected -> FactorBasesBuilt -> Sieving -> Solving -> Extracting
//
// Extracting ends in Done with a factor pair, or returns to Sieving with a
// larger target when every dependency gave a trivial factor. Failed is reached
// only for errors more sieving cannot cure, such as a prime N or an
// impossible factor base bound.
//
// A Controller owns the session state. Each phase can be called on its own,
// or Run can drive the whole session. Every call checks the context before it
// starts and the sieve polls it while enumerating pairs, so a cancelled call
// leaves the session consistent and resumable. Checkpoint data is handed to
// the configured state.Sink through an asynchronous dispatcher and never
// blocks the sieve.
//
// A Controller is not safe for concurrent use.
package gnfs
