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

// Package badgerstore keeps factorization checkpoints in a BadgerDB key-value
// store. Several sessions can share one database; every key of a session
// starts with gnfs/<session>/.
//
// Smooth and rough relations are keyed by their pair, encoded so that keys
// sort by b and then by a, which makes appends idempotent. Free relation
// groups are keyed by a persistent sequence in the order they were added.
package badgerstore
