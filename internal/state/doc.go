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

// Package state defines the session snapshot of a factorization run, the
// contracts the engine uses to hand its progress to a checkpoint collaborator,
// and atomic persistence for the snapshot itself.
//
// A snapshot is small and rewritten at every phase transition and after each
// committed sieve row. It uses a write-to-temp-and-rename pattern so that a
// crash never leaves a half-written file behind, a SHA256 checksum to detect
// corruption, and a schema version for compatibility checks.
//
// Relations and factor bases are much larger and are handed to a Sink, which
// decides how to store them. A Source reads everything back for a resume; any
// part may be missing, and the engine recomputes what it cannot load.
//
// Example usage:
//
//	snap := &Snapshot{SessionID: id, N: "8051", Phase: PhaseSieving}
//	err := SaveState(snap, filepath.Join(SessionDir("", id), StateFileName))
package state
