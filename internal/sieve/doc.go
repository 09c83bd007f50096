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

// Package sieve enumerates coprime pairs (a, b) over a rectangular window and
// keeps the ones whose rational and algebraic norms are smooth over the factor
// base.
//
// The window is walked row by row: b ascending, then a ascending from -Range
// to Range. Each row is split into contiguous chunks that are trial-divided in
// parallel, and the chunk results are merged back in enumeration order. A row
// is the unit of commit: its relations are handed to the OnSmooth hook and
// counted only once every chunk has finished, and the returned position then
// points at the start of the following row. A cancelled row is dropped and is
// replayed in full on the next call, so resuming from a returned position
// never skips or repeats a pair.
package sieve
